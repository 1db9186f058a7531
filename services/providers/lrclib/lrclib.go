package lrclib

import (
	"context"

	"lrcsync-go/config"
	"lrcsync-go/logcolors"
	"lrcsync-go/lrc"
	"lrcsync-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the LRCLIB provider
	ProviderName = "lrclib"

	// CachePrefix is the cache key prefix for LRCLIB lyrics
	CachePrefix = "lrclib_lyrics"
)

// LRCLibProvider implements the providers.Provider interface for LRCLIB
type LRCLibProvider struct{}

// NewProvider creates a new LRCLIB provider instance
func NewProvider() *LRCLibProvider {
	return &LRCLibProvider{}
}

// Name returns the provider identifier
func (p *LRCLibProvider) Name() string {
	return ProviderName
}

// CacheKeyPrefix returns the cache key prefix for this provider
func (p *LRCLibProvider) CacheKeyPrefix() string {
	return CachePrefix
}

// FetchLyrics fetches LRC lyrics from the LRCLIB API.
// An exact lookup is tried first; on a miss it falls back to fuzzy search.
func (p *LRCLibProvider) FetchLyrics(ctx context.Context, song, artist, album string, durationMs int) (*providers.LyricsResult, error) {
	conf := config.Get()
	baseURL := conf.Configuration.LRCLibBaseURL

	if song == "" && artist == "" {
		return nil, providers.NewProviderError(ProviderName, "song name and artist name cannot both be empty", nil)
	}

	log.Infof("%s [LRCLIB] Searching: %s - %s", logcolors.LogSearch, song, artist)

	track, err := GetTrack(ctx, baseURL, song, artist, album, durationMs)
	if err != nil {
		log.Infof("%s [LRCLIB] Exact lookup missed, trying search: %v", logcolors.LogFallback, err)

		tracks, searchErr := SearchTracks(ctx, baseURL, song, artist)
		if searchErr != nil {
			return nil, providers.NewProviderError(ProviderName, "search failed", searchErr)
		}

		track = SelectBestTrack(tracks, durationMs, conf.Configuration.DurationMatchDeltaMs)
		if track == nil {
			return nil, providers.NewProviderError(ProviderName, "no matching track found", nil)
		}
	}

	if track.SyncedLyrics == "" && track.PlainLyrics == "" && !track.Instrumental {
		return nil, providers.NewProviderError(ProviderName, "track has no lyrics", nil)
	}

	log.Infof("%s [LRCLIB] Found: %s - %s (%.0fs, synced: %t)",
		logcolors.LogSuccess, track.TrackName, track.ArtistName, track.Duration, track.SyncedLyrics != "")

	// Plain-only tracks still get a parseable LRC document
	rawLRC := track.SyncedLyrics
	if rawLRC == "" && track.PlainLyrics != "" {
		rawLRC = lrc.WrapPlain(track.PlainLyrics)
	}

	result := &providers.LyricsResult{
		RawLRC:          rawLRC,
		PlainLyrics:     track.PlainLyrics,
		TrackDurationMs: int(track.Duration * 1000),
		Provider:        ProviderName,
		Instrumental:    track.Instrumental,
	}

	return result, nil
}

// init registers the LRCLIB provider with the global registry
func init() {
	providers.Register(NewProvider())
}
