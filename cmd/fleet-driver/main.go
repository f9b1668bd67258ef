package main

import (
	"github.com/autopeer-io/fleetpeer/cmd/fleet-driver/app"
)

func main() {
	app.NewApp().Run()
}
