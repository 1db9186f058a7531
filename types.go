package main

import (
	"sync"

	"lrcsync-go/cache"
)

type contextKey string

const (
	cacheOnlyModeKey          contextKey = "cacheOnlyMode"
	rateLimitTypeKey          contextKey = "rateLimitType"
	apiKeyAuthenticatedKey    contextKey = "apiKeyAuthenticated"
	apiKeyInvalidKey          contextKey = "apiKeyInvalid"
	apiKeyRequiredForFreshKey contextKey = "apiKeyRequiredForFresh"
)

// CacheDump represents the full cache contents
type CacheDump map[string]cache.CacheEntry

// CachePerformance contains cache hit/miss statistics
type CachePerformance struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	NegativeHits int64   `json:"negative_hits"`
	HitRate      float64 `json:"hit_rate_percent"`
}

// CacheDumpResponse is the response format for /cache endpoint
type CacheDumpResponse struct {
	NumberOfKeys int              `json:"number_of_keys"`
	SizeInKB     int              `json:"size_kb"`
	SizeInMB     float64          `json:"size_mb"`
	Performance  CachePerformance `json:"performance"`
	Cache        CacheDump        `json:"cache"`
}

// InFlightRequest tracks concurrent requests for the same query
type InFlightRequest struct {
	wg     sync.WaitGroup
	result *CachedLyrics
	err    error
}

// CachedLyrics stores normalized LRC with track metadata
type CachedLyrics struct {
	RawLRC          string `json:"rawLrc"`
	PlainLyrics     string `json:"plainLyrics,omitempty"`
	TrackDurationMs int    `json:"trackDurationMs"`
	Provider        string `json:"provider"`
	Language        string `json:"language,omitempty"`
	Instrumental    bool   `json:"instrumental,omitempty"`
}

// NegativeCacheEntry stores info about failed lyrics lookups
type NegativeCacheEntry struct {
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// CaptionJSON is the wire shape of one synced lyric line
type CaptionJSON struct {
	TimestampMs int64  `json:"timestampMs"`
	Text        string `json:"text"`
}

// SkippedLineJSON is the wire shape of one parse diagnostic
type SkippedLineJSON struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}
