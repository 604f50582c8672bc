package models

import "time"

// Charts
type ChartEntryResponse struct {
	Rank      int     `json:"rank"`
	TrackID   string  `json:"trackId"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Plays     int     `json:"plays"`
	Listeners int     `json:"listeners"`
	Score     float64 `json:"score"`
	Trend     float64 `json:"trend"`
}

type ChartResponse struct {
	Entries     []ChartEntryResponse `json:"entries"`
	Limit       int                  `json:"limit"`
	Search      string               `json:"search,omitempty"`
	SortBy      string               `json:"sortBy"`
	SortOrder   string               `json:"sortOrder"`
	PeriodDays  *int                 `json:"periodDays,omitempty"` // nil means all time
	GeneratedAt time.Time            `json:"generatedAt"`
}

// Listener count snapshot
type ListenerCountResponse struct {
	Count int `json:"count"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
