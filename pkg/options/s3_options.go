package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*S3Options)(nil)

// S3Options configures the object store used for roster exports.
// An empty Endpoint disables exports.
type S3Options struct {
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"access-key-id" mapstructure:"access-key-id"`
	SecretAccessKey string `json:"secret-access-key" mapstructure:"secret-access-key"`
	UseSSL          bool   `json:"use-ssl" mapstructure:"use-ssl"`
	// InsecureSkipVerify disables certificate checks, for self-signed development endpoints.
	InsecureSkipVerify bool          `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`
	BucketName         string        `json:"bucket-name" mapstructure:"bucket-name"`
	Region             string        `json:"region" mapstructure:"region"`
	URLExpiry          time.Duration `json:"url-expiry" mapstructure:"url-expiry"`
}

func NewS3Options() *S3Options {
	return &S3Options{
		UseSSL:     true,
		BucketName: "fleet-exports",
		Region:     "us-east-1",
		URLExpiry:  time.Hour,
	}
}

// Enabled reports whether an object store endpoint is configured.
func (o *S3Options) Enabled() bool {
	return o != nil && o.Endpoint != ""
}

func (o *S3Options) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	errors := []error{}

	if o.BucketName == "" {
		errors = append(errors, fmt.Errorf("s3 bucket name is required when s3.endpoint is set"))
	}
	if o.URLExpiry <= 0 || o.URLExpiry > 7*24*time.Hour {
		errors = append(errors, fmt.Errorf("s3 url expiry must be within (0, 168h]"))
	}

	return errors
}

func (o *S3Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Endpoint, join(prefixes, "s3.endpoint"), o.Endpoint, "S3 service endpoint (e.g. s3.amazonaws.com or minio.local:9000). Empty disables exports.")
	fs.StringVar(&o.AccessKeyID, join(prefixes, "s3.access-key-id"), o.AccessKeyID, "S3 access key ID")
	fs.StringVar(&o.SecretAccessKey, join(prefixes, "s3.secret-access-key"), o.SecretAccessKey, "S3 secret access key")
	fs.BoolVar(&o.UseSSL, join(prefixes, "s3.use-ssl"), o.UseSSL, "Enable SSL for S3 connection")
	fs.BoolVar(&o.InsecureSkipVerify, join(prefixes, "s3.insecure-skip-verify"), o.InsecureSkipVerify, "Skip TLS certificate verification of the S3 endpoint")
	fs.StringVar(&o.BucketName, join(prefixes, "s3.bucket-name"), o.BucketName, "S3 bucket name for roster exports")
	fs.StringVar(&o.Region, join(prefixes, "s3.region"), o.Region, "S3 region")
	fs.DurationVar(&o.URLExpiry, join(prefixes, "s3.url-expiry"), o.URLExpiry, "Lifetime of presigned export download URLs")
}
