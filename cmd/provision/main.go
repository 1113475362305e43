package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/reseat-project/reseat/cmd/flags"
	"github.com/reseat-project/reseat/config"
	"github.com/reseat-project/reseat/pipeline"
)

var cliFlags = []cli.Flag{
	flags.ConfigFlag,
	flags.LogJsonFlag,
	flags.LogDebugFlag,
	flags.LogUidFlag,
	flags.LogServiceFlag,
	&cli.DurationFlag{
		Name:  "timeout",
		Value: 15 * time.Minute,
		Usage: "overall deadline for the provisioning run",
	},
	&cli.BoolFlag{
		Name:  "json-output",
		Value: false,
		Usage: "print the run result as JSON on stdout",
	},
}

func main() {
	app := &cli.App{
		Name:  "reseat-provision",
		Usage: "Run one account provisioning cycle and print the credentials",
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

			ctx, cancel := context.WithTimeout(context.Background(), cCtx.Duration("timeout"))
			defer cancel()
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := runner.Provision(ctx)
			if err != nil {
				logger.Error("Provisioning run failed", "err", err)
				return err
			}

			if cCtx.Bool("json-output") {
				return json.NewEncoder(os.Stdout).Encode(res)
			}

			logger.Info("Account provisioned",
				"email", res.Email,
				"token", res.Token,
				"deviceId", res.Device.DevDeviceID)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
