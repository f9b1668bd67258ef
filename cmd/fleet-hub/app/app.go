package app

import (
	"fmt"

	"github.com/spf13/viper"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/fleetpeer/cmd/fleet-hub/app/options"
	"github.com/autopeer-io/fleetpeer/pkg/app"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

const (
	commandName = "fleet-hub"
	commandDesc = `The fleet hub stores driver accounts and their latest positions.
It serves the HTTP API used by drivers and admins, ingests positions over
MQTT and publishes a change feed of position updates.`
)

func NewApp() *app.App {
	opts := options.NewHubOptions()
	application := app.NewApp(
		commandName,
		"Launch the fleet hub server",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithLogOptions(func() *log.Options { return opts.Log }),
		app.WithDefaultValidArgs(),
		app.WithConfigReload(func(v *viper.Viper) {
			log.Info("Configuration file changed, log level reloaded", "level", v.GetString("log.level"))
		}),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.HubOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewHubServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create hub server: %w", err)
		}

		return server.Run(ctx)
	}
}
