package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/fleetpeer/cmd/fleet-hub/app"
)

func main() {
	app.NewApp().Run()
}
