package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-dashboard/config"
	"github.com/yeremiapane/restaurant-dashboard/kds"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

func main() {
	cfg := config.Load()
	utils.InitLoggerWithLevel(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret)

	// Set gin mode
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize DB
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}

	var dialer kds.Dialer
	switch cfg.PushTransport {
	case "ws":
		dialer = &kds.WSDialer{BaseURL: cfg.PushURL(), Token: cfg.RemoteToken}
	case "bus":
		// producer di proses yang sama publish lewat POST /api/businesses/:business_id/push/:event
		dialer = kds.NewBusDialer(nil)
	case "off":
		utils.InfoLogger.Println("Push channel disabled, relying on scheduled sync")
	default:
		utils.ErrorLogger.Fatalf("unsupported PUSH_TRANSPORT %q", cfg.PushTransport)
	}

	app, err := newApp(cfg, db, dialer)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to build app: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		utils.ErrorLogger.Fatalf("Failed to start: %v", err)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: app.Router,
	}
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Errorf("http shutdown: %v", err)
	}
	app.Shutdown()
}
