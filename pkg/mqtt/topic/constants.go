package topic

// Standard MQTT wildcard definitions.
const (
	// Wildcard is the single-level wildcard "+".
	// Example: "fleet/v1/position/+" matches "fleet/v1/position/driver-42".
	Wildcard = "+"

	// MultiWildcard is the multi-level wildcard "#". It must be the last level of a filter.
	// Example: "fleet/v1/#" matches "fleet/v1/changes/positions/org-1".
	MultiWildcard = "#"
)
