package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/reseat-project/reseat/cmd/flags"
	"github.com/reseat-project/reseat/config"
	"github.com/reseat-project/reseat/httpserver"
	"github.com/reseat-project/reseat/pipeline"
)

var cliFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	},
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:  "reseat-server",
		Usage: "Serve the account provisioning API",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := config.Load(cCtx.String("config"))
			if err != nil {
				logger.Error("Failed to load configuration", "err", err)
				return err
			}

			runner, err := pipeline.New(cfg, logger)
			if err != nil {
				logger.Error("Failed to build pipeline", "err", err)
				return err
			}

			handler := httpserver.NewHandler(runner, logger)
			server, err := httpserver.New(
				flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr")), handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
