package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/fleetpeer/cmd/fleet-driver/app/options"
	"github.com/autopeer-io/fleetpeer/pkg/app"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

const (
	commandName = "fleet-driver"
	commandDesc = `The fleet driver agent signs in as a driver and keeps the driver's
position in the hub fresh. Positions come from a simulated circuit or a
recorded YAML track and are pushed over HTTP, or over MQTT when enabled.`
)

func NewApp() *app.App {
	opts := options.NewDriverOptions()
	return app.NewApp(
		commandName,
		"Launch the fleet driver agent",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithLogOptions(func() *log.Options { return opts.Log }),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.DriverOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		agent, err := cfg.NewAgent()
		if err != nil {
			return fmt.Errorf("failed to create driver agent: %w", err)
		}

		return agent.Run(ctx)
	}
}
