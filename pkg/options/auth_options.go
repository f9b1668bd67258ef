package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*AuthOptions)(nil)

// AuthOptions configures session token issuing on the hub.
type AuthOptions struct {
	// Secret signs HS256 session tokens.
	Secret string `json:"secret" mapstructure:"secret"`

	// Issuer is written into the iss claim.
	Issuer string `json:"issuer" mapstructure:"issuer"`

	// TokenTTL is the lifetime of a session.
	TokenTTL time.Duration `json:"token-ttl" mapstructure:"token-ttl"`
}

func NewAuthOptions() *AuthOptions {
	return &AuthOptions{
		Issuer:   "fleet-hub",
		TokenTTL: 12 * time.Hour,
	}
}

func (o *AuthOptions) Validate() []error {
	errs := []error{}

	if len(o.Secret) < 16 {
		errs = append(errs, fmt.Errorf("auth secret must be at least 16 characters"))
	}
	if o.TokenTTL < time.Minute {
		errs = append(errs, fmt.Errorf("auth token-ttl must be at least 1m"))
	}

	return errs
}

func (o *AuthOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Secret, join(prefixes, "auth.secret"), o.Secret, "HMAC secret used to sign session tokens.")
	fs.StringVar(&o.Issuer, join(prefixes, "auth.issuer"), o.Issuer, "Issuer claim of session tokens.")
	fs.DurationVar(&o.TokenTTL, join(prefixes, "auth.token-ttl"), o.TokenTTL, "Lifetime of a session token.")
}
