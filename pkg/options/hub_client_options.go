package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*HubClientOptions)(nil)

// HubClientOptions is used by the driver agent and fleetctl to reach the hub.
type HubClientOptions struct {
	// Server is the base URL of the hub HTTP API.
	Server string `json:"server" mapstructure:"server"`

	Email    string `json:"email" mapstructure:"email"`
	Password string `json:"password" mapstructure:"password"`

	// Timeout bounds a single request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

func NewHubClientOptions() *HubClientOptions {
	return &HubClientOptions{
		Server:  "http://127.0.0.1:8080",
		Timeout: 10 * time.Second,
	}
}

func (o *HubClientOptions) Validate() []error {
	errs := []error{}

	u, err := url.Parse(o.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("hub server must be an http(s) url, got %q", o.Server))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("hub timeout must be positive"))
	}

	return errs
}

func (o *HubClientOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Server, join(prefixes, "hub.server"), o.Server, "Base URL of the fleet hub.")
	fs.StringVar(&o.Email, join(prefixes, "hub.email"), o.Email, "Account email used to sign in.")
	fs.StringVar(&o.Password, join(prefixes, "hub.password"), o.Password, "Account password used to sign in.")
	fs.DurationVar(&o.Timeout, join(prefixes, "hub.timeout"), o.Timeout, "Timeout of a single hub request.")
}
