package paths

// Topic segments of the FleetPeer MQTT protocol.
// They define the routing contract between drivers, the hub and admin consoles.

// Upstream: driver -> hub.
const (
	// Position carries a driver's position report.
	// Payload: { "token": "...", "position": { "latitude": .., "longitude": .., ... } }
	// Pattern: {root}/position/{driverID}
	Position = "position"
)

// Downstream: hub -> admin consoles.
const (
	// PositionChanges carries change-feed events of the positions table.
	// Payload: { "table": "positions", "op": "upsert", "driverId": "...", ... }
	// Pattern: {root}/changes/positions/{organizationID}
	PositionChanges = "changes/positions"
)

// GroupHub is the shared-subscription group of hub replicas.
const GroupHub = "fleet-hub"
