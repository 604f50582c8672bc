package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/radiocast/backend/internal/charts"
)

// StatsService computes song charts from the station's play-stats upstream.
// Building a chart means two upstream queries (current window plus the
// previous one for trend) and a scoring pass, so callers are expected to put
// it behind the coalescing cache rather than hitting it per request.
// Chart computation is idempotent and safe to retry.
type StatsService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ChartEntry is one ranked track in a computed chart.
type ChartEntry struct {
	TrackID   string
	Title     string
	Artist    string
	Plays     int
	Listeners int
	Score     float64 // plays normalized against the chart's top track, 0..1
	Trend     float64 // relative change in plays vs the previous window
}

// Chart is the result of one chart computation.
type Chart struct {
	Entries     []ChartEntry
	GeneratedAt time.Time
}

// playStat mirrors one row of the upstream /v1/plays response.
type playStat struct {
	TrackID   string `json:"trackId"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Plays     int    `json:"plays"`
	Listeners int    `json:"listeners"`
}

// NewStatsService creates a StatsService talking to the given upstream.
func NewStatsService(baseURL, apiKey string) *StatsService {
	return &StatsService{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// TopTracks computes the chart for a normalized query: fetches play stats for
// the query's window, diffs against the previous equal-length window for
// trend, filters, sorts, truncates, and normalizes scores.
func (s *StatsService) TopTracks(ctx context.Context, q charts.Query) (*Chart, error) {
	current, err := s.fetchPlays(ctx, q.PeriodDays, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch play stats: %w", err)
	}

	// Trend only makes sense for a bounded window; all-time charts have no
	// "previous all time" to diff against.
	previous := map[string]int{}
	if q.PeriodDays != charts.AllTime {
		prevStats, err := s.fetchPlays(ctx, q.PeriodDays, q.PeriodDays)
		if err != nil {
			return nil, fmt.Errorf("fetch previous window stats: %w", err)
		}
		for _, p := range prevStats {
			previous[p.TrackID] = p.Plays
		}
	}

	entries := make([]ChartEntry, 0, len(current))
	maxPlays := 0
	for _, p := range current {
		if q.Search != "" && !matchesSearch(p, q.Search) {
			continue
		}
		entries = append(entries, ChartEntry{
			TrackID:   p.TrackID,
			Title:     p.Title,
			Artist:    p.Artist,
			Plays:     p.Plays,
			Listeners: p.Listeners,
			Trend:     trend(p.Plays, previous[p.TrackID]),
		})
		if p.Plays > maxPlays {
			maxPlays = p.Plays
		}
	}

	if maxPlays > 0 {
		for i := range entries {
			entries[i].Score = float64(entries[i].Plays) / float64(maxPlays)
		}
	}

	sortEntries(entries, q.SortBy, q.SortOrder)

	if len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}

	return &Chart{Entries: entries, GeneratedAt: time.Now().UTC()}, nil
}

// fetchPlays queries the upstream for play stats over a window of `days`
// ending `offset` days ago. days=0 requests all-time stats.
func (s *StatsService) fetchPlays(ctx context.Context, days, offset int) ([]playStat, error) {
	params := url.Values{}
	if days > 0 {
		params.Set("days", strconv.Itoa(days))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	endpoint := s.baseURL + "/v1/plays"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stats request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("stats upstream returned %d: %s", resp.StatusCode, string(body))
	}

	var stats []playStat
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats response: %w", err)
	}

	return stats, nil
}

func matchesSearch(p playStat, search string) bool {
	return strings.Contains(strings.ToLower(p.Title), search) ||
		strings.Contains(strings.ToLower(p.Artist), search)
}

// trend is the relative change in plays vs the previous window. A track absent
// from the previous window trends at +1 per play (treated as up from zero).
func trend(plays, prevPlays int) float64 {
	if prevPlays == 0 {
		if plays == 0 {
			return 0
		}
		return float64(plays)
	}
	return float64(plays-prevPlays) / float64(prevPlays)
}

func sortEntries(entries []ChartEntry, field charts.SortField, order charts.SortOrder) {
	less := func(a, b ChartEntry) bool {
		switch field {
		case charts.SortByListeners:
			if a.Listeners != b.Listeners {
				return a.Listeners < b.Listeners
			}
		case charts.SortByTrend:
			if a.Trend != b.Trend {
				return a.Trend < b.Trend
			}
		default:
			if a.Plays != b.Plays {
				return a.Plays < b.Plays
			}
		}
		// Stable tie-break so equal queries render identical charts.
		return a.TrackID < b.TrackID
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if order == charts.SortAsc {
			return less(entries[i], entries[j])
		}
		return less(entries[j], entries[i])
	})
}
