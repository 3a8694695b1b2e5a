package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/yuhex/internal"
	pkgconfig "github.com/starford/yuhex/pkg/config"
)

type runFunc func(ctx context.Context, opts ...internal.Option) error

// command loads the configuration and hands it to run. A missing or invalid
// configuration is reported and ends the command without an error status.
func command(run runFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.Root().String("config")

		cfg := internal.NewDefaultConfig()
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			slog.Error("failed to load config", slog.String("path", configPath), slog.String("error", err.Error()))
			return nil
		}

		return run(ctx, internal.WithConfig(cfg))
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "yuhex",
		Usage: "Mirror a Yuque knowledge base into Hexo posts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "yuque.config.yaml",
				Value:       "yuque.config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Sync documents from Yuque into the post directory",
				Action: command(internal.RunSync),
			},
			{
				Name:   "clean",
				Usage:  "Remove generated posts, images, cache and marker",
				Action: command(internal.RunClean),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
