package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/radiocast/backend/internal/config"
	"github.com/radiocast/backend/internal/logging"
	"github.com/radiocast/backend/internal/router"
	"github.com/radiocast/backend/internal/sentry"
)

func main() {
	// Initialize structured logging (reads LOGGING_LEVEL env var)
	logging.Initialize()

	// Load configuration
	cfg := config.Load()

	// Crash reporting, with listener IPs scrubbed from events
	if cfg.SentryDSN != "" {
		err := sentrygo.Init(sentrygo.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.SentryEnvironment,
			BeforeSend:  sentry.ScrubEvent,
		})
		if err != nil {
			slog.Error("failed to initialize sentry", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer sentrygo.Flush(2 * time.Second)
	}

	// Create router (wires cache, presence tracker, and broadcast hub)
	r := router.New(cfg)

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting server", slog.String("addr", addr))

	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
