package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*StoreOptions)(nil)

const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

// StoreOptions selects and configures the relational store of the hub.
type StoreOptions struct {
	// Driver is either "sqlite" or "postgres".
	Driver string `json:"driver" mapstructure:"driver"`

	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string `json:"dsn" mapstructure:"dsn"`

	// MaxConns caps the postgres pool size. Ignored for sqlite.
	MaxConns int32 `json:"max-conns" mapstructure:"max-conns"`

	// QueryTimeout bounds a single repository call.
	QueryTimeout time.Duration `json:"query-timeout" mapstructure:"query-timeout"`
}

func NewStoreOptions() *StoreOptions {
	return &StoreOptions{
		Driver:       StoreDriverSQLite,
		DSN:          "data/fleetpeer.db",
		MaxConns:     20,
		QueryTimeout: 2 * time.Second,
	}
}

func (o *StoreOptions) Validate() []error {
	errs := []error{}

	switch o.Driver {
	case StoreDriverSQLite, StoreDriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported store driver %q", o.Driver))
	}
	if o.DSN == "" {
		errs = append(errs, fmt.Errorf("store dsn is required"))
	}
	if o.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("store max-conns must be positive"))
	}

	return errs
}

func (o *StoreOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Driver, join(prefixes, "store.driver"), o.Driver, "Store backend: 'sqlite' or 'postgres'.")
	fs.StringVar(&o.DSN, join(prefixes, "store.dsn"), o.DSN, "Sqlite database path or postgres connection string.")
	fs.Int32Var(&o.MaxConns, join(prefixes, "store.max-conns"), o.MaxConns, "Maximum postgres pool connections.")
	fs.DurationVar(&o.QueryTimeout, join(prefixes, "store.query-timeout"), o.QueryTimeout, "Timeout of a single store query.")
}
