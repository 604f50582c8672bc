package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/radiocast/backend/internal/broadcast"
	"github.com/radiocast/backend/internal/cache"
	"github.com/radiocast/backend/internal/charts"
	"github.com/radiocast/backend/internal/config"
	"github.com/radiocast/backend/internal/handlers"
	"github.com/radiocast/backend/internal/middleware"
	"github.com/radiocast/backend/internal/presence"
	"github.com/radiocast/backend/internal/services"
)

func New(cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewRealIPMiddleware(cfg.TrustedProxies).Handler)
	r.Use(middleware.RequestContextMiddleware)
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	// Listener-count pipeline: presence transitions feed the notifier, which
	// publishes to the hub consumed by the SSE streams.
	hub := broadcast.NewHub()
	notifier := broadcast.NewCountNotifier(hub.Publish)
	tracker := presence.NewTracker(notifier.OnChange)

	// Charts pipeline: one coalescing cache in front of the stats upstream.
	statsService := services.NewStatsService(cfg.StatsBaseURL, cfg.StatsAPIKey)
	chartCache := cache.New[*services.Chart](cfg.ChartTTL)
	normalizer := charts.NewNormalizer(cfg.ChartMaxLimit, cfg.ChartDefaultPeriodDays)

	// Handlers
	chartsHandler := handlers.NewChartsHandler(normalizer, chartCache, statsService)
	listenHandler := handlers.NewListenHandler(tracker, hub)

	// Rate limiter for chart queries
	chartsRateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	// Routes
	r.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Song charts (rate limited)
		r.With(chartsRateLimiter.Middleware).Get("/charts", chartsHandler.Top)

		// Live listener count
		r.Get("/listeners", listenHandler.Count)
		r.Get("/listen/events", listenHandler.Events)
	})

	return r
}
