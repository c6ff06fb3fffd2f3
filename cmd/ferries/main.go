package main

import (
	"os"

	"github.com/ferrywatch/ferries_core/internal/bootstrap"
	"github.com/ferrywatch/ferries_core/internal/cli"
	"github.com/ferrywatch/ferries_core/internal/logging"
	"github.com/rs/zerolog/log"

	_ "time/tzdata"
)

func main() {
	logging.Setup()

	app := cli.NewApp(bootstrap.Build, os.Stdout)
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}
