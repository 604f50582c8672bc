// Package charts normalizes song-chart query parameters into a canonical form
// and derives deterministic cache keys from them. Normalization is pure and
// total: malformed input falls back to documented defaults instead of erroring,
// so a chart request can never be rejected for a bad query string.
package charts

import (
	"net/url"
	"strconv"
	"strings"
)

// SortField enumerates the permitted chart sort columns.
type SortField string

const (
	SortByPlays     SortField = "plays"
	SortByListeners SortField = "listeners"
	SortByTrend     SortField = "trend"
)

// SortOrder is the chart sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DefaultLimit is the number of chart entries served when no limit is given.
const DefaultLimit = 10

// AllTime is the PeriodDays value meaning "no time window".
const AllTime = 0

// Query is a fully normalized chart query. Two semantically equal raw queries
// always normalize to the same Query value and therefore the same CacheKey.
type Query struct {
	Limit      int
	Search     string // lowercased, trimmed; empty means no filter
	SortBy     SortField
	SortOrder  SortOrder
	PeriodDays int // AllTime (0) means no window
}

// Normalizer holds the startup-time bounds applied during normalization.
type Normalizer struct {
	maxLimit          int
	defaultPeriodDays int
}

// NewNormalizer creates a Normalizer. Non-positive bounds fall back to
// maxLimit=100 and defaultPeriodDays=30.
func NewNormalizer(maxLimit, defaultPeriodDays int) *Normalizer {
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultPeriodDays < 1 {
		defaultPeriodDays = 30
	}
	return &Normalizer{maxLimit: maxLimit, defaultPeriodDays: defaultPeriodDays}
}

// Normalize converts raw URL query parameters into a canonical Query.
// It never fails: every malformed field is replaced by its default.
func (n *Normalizer) Normalize(params url.Values) Query {
	q := Query{
		Limit:      DefaultLimit,
		SortBy:     SortByPlays,
		SortOrder:  SortDesc,
		PeriodDays: AllTime,
	}

	if v, err := strconv.Atoi(strings.TrimSpace(params.Get("limit"))); err == nil {
		q.Limit = v
	}
	if q.Limit < 1 {
		q.Limit = 1
	}
	if q.Limit > n.maxLimit {
		q.Limit = n.maxLimit
	}

	q.Search = strings.ToLower(strings.TrimSpace(params.Get("search")))

	switch SortField(strings.ToLower(strings.TrimSpace(params.Get("sortBy")))) {
	case SortByPlays:
		q.SortBy = SortByPlays
	case SortByListeners:
		q.SortBy = SortByListeners
	case SortByTrend:
		q.SortBy = SortByTrend
	}

	if strings.ToLower(strings.TrimSpace(params.Get("sortOrder"))) == string(SortAsc) {
		q.SortOrder = SortAsc
	}

	// An absent period means all time; a present but unparseable or
	// non-positive period means the caller wanted a window and gets the
	// default one.
	if params.Has("period") {
		q.PeriodDays = n.defaultPeriodDays
		if v, err := strconv.Atoi(strings.TrimSpace(params.Get("period"))); err == nil && v > 0 {
			q.PeriodDays = v
		}
	}

	return q
}

// CacheKey derives a deterministic string key from the query. Each field is
// length-prefixed, so field values containing the separator cannot collide
// with a different query.
func (q Query) CacheKey() string {
	var b strings.Builder
	b.WriteString("charts")
	for _, field := range []string{
		strconv.Itoa(q.Limit),
		q.Search,
		string(q.SortBy),
		string(q.SortOrder),
		strconv.Itoa(q.PeriodDays),
	} {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(len(field)))
		b.WriteByte(':')
		b.WriteString(field)
	}
	return b.String()
}
