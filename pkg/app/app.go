package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/fleetpeer/pkg/log"
)

// RunFunc is the body of the command, called after options are loaded and valid.
type RunFunc func() error

// Option customizes an App.
type Option func(*App)

// App is a cobra command whose options come from flags, environment
// variables and an optional config file.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	logOptions  func() *log.Options
	runFunc     RunFunc
	args        cobra.PositionalArgs
	onReload    func(v *viper.Viper)
	cfgFile     string
	subcommands []*cobra.Command

	viper *viper.Viper
	cmd   *cobra.Command
}

// WithOptions sets the aggregate options decoded before running.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithLogOptions points at the log options inside the aggregate so the
// global logger is initialized before the run function.
func WithLogOptions(get func() *log.Options) Option {
	return func(a *App) { a.logOptions = get }
}

// WithRunFunc sets the command body.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDescription sets the long help text.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithConfigReload is called after the config file changes on disk.
func WithConfigReload(fn func(v *viper.Viper)) Option {
	return func(a *App) { a.onReload = fn }
}

// WithSubCommands adds sub commands that share the options of the root.
// Flags become persistent and options are loaded before any sub command runs.
func WithSubCommands(cmds ...*cobra.Command) Option {
	return func(a *App) { a.subcommands = append(a.subcommands, cmds...) }
}

// NewApp builds the command. Call Run to execute it.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
		viper:     viper.New(),
	}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command exposes the underlying cobra command, mostly for tests.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command and exits the process with status 1 on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          a.args,
		RunE:          a.runCommand,
	}

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil {
		namedFlagSets = a.options.Flags()
	}
	addConfigFlag(namedFlagSets.FlagSet("global"), &a.cfgFile)

	fs := cmd.Flags()
	if len(a.subcommands) > 0 {
		fs = cmd.PersistentFlags()
		cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error { return a.prepare(c) }
		cmd.RunE = func(c *cobra.Command, _ []string) error { return c.Help() }
		cmd.AddCommand(a.subcommands...)
	}
	for _, name := range namedFlagSets.Order {
		fs.AddFlagSet(namedFlagSets.FlagSets[name])
	}
	cliflag.SetUsageAndHelpFunc(cmd, namedFlagSets, 80)

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	if err := a.prepare(cmd); err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if a.cfgFile != "" {
		watchConfig(a.viper, a.onReload)
	}

	log.Info("Starting "+a.name, "config", a.cfgFile)

	if a.runFunc == nil {
		return nil
	}
	return a.runFunc()
}

// prepare loads, completes and validates the options, then initializes logging.
func (a *App) prepare(cmd *cobra.Command) error {
	if err := loadConfig(a.viper, cmd.Flags(), a.cfgFile, a.options); err != nil {
		return err
	}

	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return fmt.Errorf("failed to complete options: %w", err)
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.logOptions != nil {
		log.Init(a.logOptions())
	}
	return nil
}
