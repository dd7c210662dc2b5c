package main

import (
	"context"
	"log"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/app/bootstrap"
)

func main() {
	app := &cli.App{
		Name:  "escrow-api",
		Usage: "serve the deal escrow HTTP and gRPC APIs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/default.yaml",
				Usage:   "path to the YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Action: func(cctx *cli.Context) error {
			ctx := context.Background()
			runtime, err := bootstrap.NewRuntime(ctx, cctx.String("config"))
			if err != nil {
				return cli.Exit("bootstrap api runtime: "+err.Error(), 1)
			}
			return runtime.RunAPI(ctx)
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("run api: %v", err)
	}
}
