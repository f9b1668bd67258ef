package topic

import (
	"fmt"
	"strings"
)

// Builder constructs topic strings of the form {root}/{segment}/{id}.
// Segments are defined by the protocol package that owns them; the builder
// only guarantees a consistent layout across publishers and subscribers.
type Builder struct {
	// root is the base namespace for all topics (e.g., "fleet/v1").
	root string

	// share is the optional shared-subscription group.
	share string
}

// NewBuilder creates a new Builder with the specified root namespace.
// Leading and trailing slashes are trimmed.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.Trim(root, "/")}
}

// Root returns the namespace used by the builder.
func (b *Builder) Root() string {
	return b.root
}

// Shared returns a copy of the builder whose topics are prefixed with
// $share/{group}/ so that replicas of a consumer split the load.
func (b *Builder) Shared(group string) *Builder {
	return &Builder{root: b.root, share: group}
}

// Build returns {root}/{segment}/{id}.
func (b *Builder) Build(segment, id string) string {
	return b.build(segment, id)
}

// BuildWildcard returns {root}/{segment}/+, matching every identifier.
func (b *Builder) BuildWildcard(segment string) string {
	return b.build(segment, Wildcard)
}

// ParseID extracts the identifier from a concrete topic built for segment.
// It reports false if the topic does not belong to the segment.
func (b *Builder) ParseID(segment, topic string) (string, bool) {
	prefix := fmt.Sprintf("%s/%s/", b.root, segment)
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (b *Builder) build(segment, id string) string {
	t := fmt.Sprintf("%s/%s/%s", b.root, segment, id)
	if b.share != "" {
		return fmt.Sprintf("$share/%s/%s", b.share, t)
	}
	return t
}
