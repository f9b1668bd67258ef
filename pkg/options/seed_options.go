package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SeedOptions)(nil)

// SeedOptions bootstraps an organization and its first admin on hub startup.
// Seeding is skipped when AdminEmail is empty or the admin already exists.
type SeedOptions struct {
	Organization  string `json:"organization" mapstructure:"organization"`
	AdminName     string `json:"admin-name" mapstructure:"admin-name"`
	AdminEmail    string `json:"admin-email" mapstructure:"admin-email"`
	AdminPassword string `json:"admin-password" mapstructure:"admin-password"`
}

func NewSeedOptions() *SeedOptions {
	return &SeedOptions{
		Organization: "Default Fleet",
		AdminName:    "Administrator",
	}
}

// Enabled reports whether seeding was requested.
func (o *SeedOptions) Enabled() bool {
	return o != nil && o.AdminEmail != ""
}

func (o *SeedOptions) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	errs := []error{}
	if o.Organization == "" {
		errs = append(errs, fmt.Errorf("seed organization is required"))
	}
	if len(o.AdminPassword) < 6 {
		errs = append(errs, fmt.Errorf("seed admin password must be at least 6 characters"))
	}
	return errs
}

func (o *SeedOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Organization, join(prefixes, "seed.organization"), o.Organization, "Name of the organization created on first start.")
	fs.StringVar(&o.AdminName, join(prefixes, "seed.admin-name"), o.AdminName, "Display name of the seeded admin.")
	fs.StringVar(&o.AdminEmail, join(prefixes, "seed.admin-email"), o.AdminEmail, "Email of the seeded admin. Empty disables seeding.")
	fs.StringVar(&o.AdminPassword, join(prefixes, "seed.admin-password"), o.AdminPassword, "Password of the seeded admin.")
}
