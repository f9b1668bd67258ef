// Package store opens the repository backend selected by StoreOptions.
package store

import (
	"context"
	"fmt"

	"github.com/autopeer-io/fleetpeer/internal/hub/core"
	"github.com/autopeer-io/fleetpeer/internal/hub/store/postgres"
	"github.com/autopeer-io/fleetpeer/internal/hub/store/sqlite"
	"github.com/autopeer-io/fleetpeer/pkg/options"
)

// Open returns a ready repository with its schema in place.
func Open(ctx context.Context, opts *options.StoreOptions) (core.Repository, error) {
	switch opts.Driver {
	case options.StoreDriverSQLite:
		return sqlite.Open(ctx, opts.DSN)
	case options.StoreDriverPostgres:
		return postgres.Open(ctx, opts.DSN, opts.MaxConns)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", opts.Driver)
	}
}
