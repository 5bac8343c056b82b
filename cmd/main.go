package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"yt2mp3/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "err", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:    "yt2mp3",
		Usage:   "Submit YouTube URLs to a conversion service and manage the resulting MP3s",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Account username (or YT2MP3_USERNAME)",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Account password (or YT2MP3_PASSWORD)",
			},
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrSessionInvalidated):
			logger.Fatal("session rejected by server, log in again")
		case errors.Is(err, shared.ErrNotAuthenticated):
			logger.Fatalf("%v", err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
