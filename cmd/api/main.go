package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avd-uisa/notify-go/internal/config"
	appHTTP "github.com/avd-uisa/notify-go/internal/handler/http"
	"github.com/avd-uisa/notify-go/internal/pkg/cron"
	"github.com/avd-uisa/notify-go/internal/pkg/database"
	"github.com/avd-uisa/notify-go/internal/pkg/jwt"
	"github.com/avd-uisa/notify-go/internal/pkg/sse"
	"github.com/avd-uisa/notify-go/internal/repository/postgresql"
	notificationService "github.com/avd-uisa/notify-go/internal/service/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		fmt.Println("Invalid config:", err)
		os.Exit(1)
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		os.Exit(1)
	}
	defer db.Close()

	notificationRepo := postgresql.NewNotificationRepository(db)
	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.StreamTokenExpiration)
	hub := sse.NewHub()

	notifService := notificationService.NewNotificationService(notificationRepo, hub, notificationService.Config{})
	defer notifService.Stop()

	notificationHandler := appHTTP.NewNotificationHandler(notifService, jwtService)

	scheduler := cron.NewScheduler()
	scheduler.AddJob("notification-retention", 24*time.Hour, func(ctx context.Context) error {
		now := time.Now()
		purged, err := notificationRepo.PurgeOld(ctx, now.Add(-cfg.App.RetentionRead), now.Add(-cfg.App.RetentionMax))
		if err != nil {
			return err
		}
		if purged > 0 {
			slog.Info("Retention sweep removed notifications", "count", purged)
		}
		return nil
	})
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(jwtService, notificationHandler, appHTTP.RouterConfig{
		Env:         cfg.App.Env,
		FrontendURL: cfg.App.FrontendURL,
	})

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		slog.Info("Notification API listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	_ = server.Close()
}
