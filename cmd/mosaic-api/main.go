package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/mosaicdash/mosaic/pkg/cmd"
	"github.com/mosaicdash/mosaic/pkg/log"
	"github.com/mosaicdash/mosaic/pkg/otelhelper"
	"github.com/mosaicdash/mosaic/pkg/secrets"
	"github.com/mosaicdash/mosaic/pkg/services"
)

const defaultPort = 9092

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "mosaic-api",
		Usage:                 "Create and manage workspaces",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Storage URL for workspace persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "cache-url",
				Usage:   "Redis URL for the variable resolution cache",
				Sources: cli.EnvVars("CACHE_URL"),
			},
			&cli.StringFlag{
				Name:    "catalogue-path",
				Usage:   "Path to the directory containing resource descriptors",
				Value:   "./catalogue",
				Sources: cli.EnvVars("CATALOGUE_PATH"),
			},
			&cli.StringFlag{
				Name:     "secret-key",
				Usage:    "Key used to encrypt secure variable values at rest",
				Required: true,
				Sources:  cli.EnvVars("SECRET_KEY"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Mosaic API")

			persistence := cmd.NewPersistence(command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			resolutionCache := cmd.NewCache(ctx, logger, command.String("cache-url"))
			defer func() {
				if err := resolutionCache.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close cache", "error", err)
				}
			}()

			provider := cmd.NewCatalogue(logger, command.String("catalogue-path"))
			codec := secrets.NewCodec(command.String("secret-key"))

			workspaceService := services.NewWorkspace(persistence, resolutionCache, provider, codec, logger)

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "mosaic-api")
				if err != nil {
					return err
				}

				workspaceService.WithTracer(tracer)
			}

			api := NewAPI(logger, workspaceService)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
