// Command agent runs the client-resident notification engine against a
// notification API, presenting the badge, sound, alert, and banner
// surfaces on the terminal. It is the reference consumer of the engine.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/avd-uisa/notify-go/internal/config"
	"github.com/avd-uisa/notify-go/internal/engine"
	"github.com/avd-uisa/notify-go/internal/engine/apiclient"
	"github.com/avd-uisa/notify-go/internal/engine/dispatch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	if err := cfg.ValidateEngine(); err != nil {
		fmt.Println("Invalid config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})).With(slog.String("app", "avd-notify-agent"))

	client := apiclient.New(cfg.Engine.ServerURL, cfg.Engine.AccessToken, nil)

	eng := engine.New(engine.Config{
		PollInterval:    cfg.Engine.PollInterval,
		SnapshotLimit:   cfg.Engine.SnapshotLimit,
		MutationTimeout: cfg.Engine.MutationTimeout,
		BackoffBase:     cfg.Engine.BackoffBase,
		BackoffMax:      cfg.Engine.BackoffMax,
		Dispatch: dispatch.Config{
			SoundEnabled:   cfg.Engine.SoundEnabled,
			QuietThreshold: cfg.Engine.QuietThreshold,
		},
	}, client,
		&dispatch.LogBadge{Logger: logger},
		&dispatch.TerminalSound{Out: os.Stdout},
		&dispatch.LogAlert{Logger: logger, Allowed: cfg.Engine.AlertGranted},
		&dispatch.LogBanner{Logger: logger},
		logger,
	)

	if err := eng.Start(context.Background()); err != nil {
		logger.Error("Engine failed to start", "error", err)
		os.Exit(1)
	}

	logger.Info("Notification engine running", "server", cfg.Engine.ServerURL)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	eng.Stop()
	logger.Info("Notification engine stopped")
}
