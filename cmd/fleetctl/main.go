package main

import (
	"github.com/autopeer-io/fleetpeer/cmd/fleetctl/app"
)

func main() {
	app.NewApp().Run()
}
