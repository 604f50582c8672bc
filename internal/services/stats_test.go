package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/radiocast/backend/internal/charts"
)

func statsUpstream(t *testing.T, windows map[string][]playStat) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/plays" {
			http.NotFound(w, r)
			return
		}
		key := r.URL.Query().Get("days") + "/" + r.URL.Query().Get("offset")
		stats, ok := windows[key]
		if !ok {
			t.Errorf("unexpected window query %q", key)
		}
		json.NewEncoder(w).Encode(stats)
	}))
}

func normalize(t *testing.T, params url.Values) charts.Query {
	t.Helper()
	return charts.NewNormalizer(100, 30).Normalize(params)
}

func TestTopTracks_ScoresAndRanks(t *testing.T) {
	srv := statsUpstream(t, map[string][]playStat{
		"/": {
			{TrackID: "t1", Title: "Alpha", Artist: "One", Plays: 40, Listeners: 12},
			{TrackID: "t2", Title: "Beta", Artist: "Two", Plays: 100, Listeners: 30},
			{TrackID: "t3", Title: "Gamma", Artist: "Three", Plays: 10, Listeners: 4},
		},
	})
	defer srv.Close()

	s := NewStatsService(srv.URL, "")
	chart, err := s.TopTracks(context.Background(), normalize(t, url.Values{}))
	if err != nil {
		t.Fatalf("TopTracks: %v", err)
	}

	if len(chart.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(chart.Entries))
	}
	if chart.Entries[0].TrackID != "t2" {
		t.Errorf("top track = %s, want t2", chart.Entries[0].TrackID)
	}
	if chart.Entries[0].Score != 1.0 {
		t.Errorf("top score = %v, want 1.0", chart.Entries[0].Score)
	}
	if chart.Entries[1].Score != 0.4 {
		t.Errorf("second score = %v, want 0.4", chart.Entries[1].Score)
	}
}

func TestTopTracks_TrendAgainstPreviousWindow(t *testing.T) {
	srv := statsUpstream(t, map[string][]playStat{
		"7/": {
			{TrackID: "up", Title: "Riser", Artist: "A", Plays: 30},
			{TrackID: "down", Title: "Faller", Artist: "B", Plays: 10},
			{TrackID: "new", Title: "Debut", Artist: "C", Plays: 5},
		},
		"7/7": {
			{TrackID: "up", Title: "Riser", Artist: "A", Plays: 10},
			{TrackID: "down", Title: "Faller", Artist: "B", Plays: 40},
		},
	})
	defer srv.Close()

	s := NewStatsService(srv.URL, "")
	chart, err := s.TopTracks(context.Background(), normalize(t, url.Values{"period": {"7"}, "sortBy": {"trend"}}))
	if err != nil {
		t.Fatalf("TopTracks: %v", err)
	}

	byID := make(map[string]ChartEntry)
	for _, e := range chart.Entries {
		byID[e.TrackID] = e
	}

	if got := byID["up"].Trend; got != 2.0 {
		t.Errorf("up trend = %v, want 2.0 (10→30)", got)
	}
	if got := byID["down"].Trend; got != -0.75 {
		t.Errorf("down trend = %v, want -0.75 (40→10)", got)
	}
	if got := byID["new"].Trend; got != 5.0 {
		t.Errorf("new trend = %v, want 5.0 (absent→5)", got)
	}

	// sortBy=trend desc: biggest climber first
	if chart.Entries[0].TrackID != "new" {
		t.Errorf("top trending = %s, want new", chart.Entries[0].TrackID)
	}
}

func TestTopTracks_SearchAndLimit(t *testing.T) {
	srv := statsUpstream(t, map[string][]playStat{
		"/": {
			{TrackID: "t1", Title: "Midnight Drive", Artist: "Neon", Plays: 50},
			{TrackID: "t2", Title: "Sunrise", Artist: "Neon", Plays: 40},
			{TrackID: "t3", Title: "Noon", Artist: "Other", Plays: 30},
		},
	})
	defer srv.Close()

	s := NewStatsService(srv.URL, "")
	chart, err := s.TopTracks(context.Background(), normalize(t, url.Values{"search": {"NEON"}, "limit": {"1"}}))
	if err != nil {
		t.Fatalf("TopTracks: %v", err)
	}

	if len(chart.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(chart.Entries))
	}
	if chart.Entries[0].TrackID != "t1" {
		t.Errorf("entry = %s, want t1", chart.Entries[0].TrackID)
	}
	// Score normalization happens against the filtered set.
	if chart.Entries[0].Score != 1.0 {
		t.Errorf("score = %v, want 1.0", chart.Entries[0].Score)
	}
}

func TestTopTracks_UpstreamErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewStatsService(srv.URL, "")
	if _, err := s.TopTracks(context.Background(), normalize(t, url.Values{})); err == nil {
		t.Fatal("expected error from failing upstream")
	}
}

func TestFetchPlays_SendsAPIKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		json.NewEncoder(w).Encode([]playStat{})
	}))
	defer srv.Close()

	s := NewStatsService(srv.URL, "sekrit")
	if _, err := s.fetchPlays(context.Background(), 0, 0); err != nil {
		t.Fatalf("fetchPlays: %v", err)
	}
	if gotKey != "sekrit" {
		t.Errorf("X-API-Key = %q, want %q", gotKey, "sekrit")
	}
}
