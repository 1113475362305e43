package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/reseat-project/reseat/cmd/flags"
	"github.com/reseat-project/reseat/idstore"
)

var cliFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "identity-doc",
		Usage: "path to the identity document; defaults to the platform location",
	},
	&cli.StringFlag{
		Name:  "product-doc",
		Usage: "path to the product document for the update-URL rewrite (optional)",
	},
	flags.LogJsonFlag,
	flags.LogDebugFlag,
	flags.LogUidFlag,
	flags.LogServiceFlag,
}

func main() {
	app := &cli.App{
		Name:  "reseat-resetid",
		Usage: "Rewrite the local device identity with fresh values",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			path := cCtx.String("identity-doc")
			if path == "" {
				var err error
				path, err = idstore.DefaultDocumentPath()
				if err != nil {
					logger.Error("Could not resolve identity document path", "err", err)
					return err
				}
			}

			store := idstore.NewAdvanced(logger, cCtx.String("product-doc"))
			set, err := store.Reset(path)
			if err != nil {
				logger.Error("Identity reset failed", "err", err)
				return err
			}

			logger.Info("Device identity rewritten",
				"path", path,
				"deviceId", set.DevDeviceID)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
