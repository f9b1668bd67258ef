package app

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/fleetpeer/pkg/log"
)

const (
	configFlagName = "config"

	// EnvPrefix prefixes every environment variable, e.g. FLEETPEER_HTTP_ADDR.
	EnvPrefix = "FLEETPEER"
)

// addConfigFlag registers --config on fs and arranges for viper to read it.
func addConfigFlag(fs *pflag.FlagSet, cfgFile *string) {
	fs.StringVarP(cfgFile, configFlagName, "c", *cfgFile, "Path to a YAML/JSON/TOML config file. Flags override file values.")
}

// loadConfig binds flags and env to v, reads the optional config file and
// decodes everything into opts.
func loadConfig(v *viper.Viper, fs *pflag.FlagSet, cfgFile string, opts any) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	if opts == nil {
		return nil
	}
	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}

// watchConfig re-applies the live-reloadable settings when the config file changes.
// Only the log level is reloadable; every other setting needs a restart.
func watchConfig(v *viper.Viper, onChange func(v *viper.Viper)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		log.Info("Config file changed", "file", e.Name)
		log.SetLevel(v.GetString("log.level"))
		if onChange != nil {
			onChange(v)
		}
	})
	v.WatchConfig()
}
