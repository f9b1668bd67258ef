package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// NamedFlagSetOptions is implemented by the aggregate options of a command.
type NamedFlagSetOptions interface {
	// Flags returns the flag sets grouped by section for help output.
	Flags() cliflag.NamedFlagSets

	// Complete fills in fields derived from other fields.
	Complete() error

	// Validate checks the completed options.
	Validate() error
}
