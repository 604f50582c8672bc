package handlers

import (
	"context"
	"net/http"

	"github.com/radiocast/backend/internal/cache"
	"github.com/radiocast/backend/internal/charts"
	"github.com/radiocast/backend/internal/models"
	"github.com/radiocast/backend/internal/services"
)

// ChartsHandler serves the song charts through the coalescing cache: concurrent
// requests for the same normalized query share a single upstream computation.
type ChartsHandler struct {
	normalizer *charts.Normalizer
	cache      *cache.Cache[*services.Chart]
	stats      *services.StatsService
}

// NewChartsHandler creates a ChartsHandler.
func NewChartsHandler(normalizer *charts.Normalizer, c *cache.Cache[*services.Chart], stats *services.StatsService) *ChartsHandler {
	return &ChartsHandler{normalizer: normalizer, cache: c, stats: stats}
}

// Top handles GET /api/charts. Malformed query parameters are normalized to
// defaults, never rejected. An upstream failure yields a 503; it is not
// cached, so the next request retries the computation.
func (h *ChartsHandler) Top(w http.ResponseWriter, r *http.Request) {
	q := h.normalizer.Normalize(r.URL.Query())

	chart, err := h.cache.Get(r.Context(), q.CacheKey(), func(ctx context.Context) (*services.Chart, error) {
		return h.stats.TopTracks(ctx, q)
	})
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away while waiting; nothing useful to write.
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusServiceUnavailable, "charts are temporarily unavailable, try again shortly", err)
		return
	}

	writeJSON(w, http.StatusOK, chartToResponse(chart, q))
}

func chartToResponse(chart *services.Chart, q charts.Query) models.ChartResponse {
	resp := models.ChartResponse{
		Entries:     make([]models.ChartEntryResponse, len(chart.Entries)),
		Limit:       q.Limit,
		Search:      q.Search,
		SortBy:      string(q.SortBy),
		SortOrder:   string(q.SortOrder),
		GeneratedAt: chart.GeneratedAt,
	}
	if q.PeriodDays != charts.AllTime {
		period := q.PeriodDays
		resp.PeriodDays = &period
	}
	for i, e := range chart.Entries {
		resp.Entries[i] = models.ChartEntryResponse{
			Rank:      i + 1,
			TrackID:   e.TrackID,
			Title:     e.Title,
			Artist:    e.Artist,
			Plays:     e.Plays,
			Listeners: e.Listeners,
			Score:     e.Score,
			Trend:     e.Trend,
		}
	}
	return resp
}
