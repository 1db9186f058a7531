package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lrcsync-go/cache"
	"lrcsync-go/circuitbreaker"
	"lrcsync-go/logcolors"
	"lrcsync-go/lrc"
	"lrcsync-go/services/providers"
	"lrcsync-go/stats"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	// aggregateCachePrefix is the cache key prefix for the default /getLyrics
	// endpoint, which tries providers in order
	aggregateCachePrefix = "lrc_lyrics"

	// maxLRCBodySize limits the size of LRC documents accepted in request bodies
	maxLRCBodySize = 1 << 20 // 1 MiB
)

// defaultProviderOrder returns the providers tried by the aggregate endpoint
func defaultProviderOrder() []string {
	order := []string{"lrclib"}
	if conf.Configuration.KugouEnabled {
		order = append(order, "kugou")
	}
	return order
}

func getLyrics(w http.ResponseWriter, r *http.Request) {
	serveLyrics(w, r, "", aggregateCachePrefix, defaultProviderOrder())
}

// getLyricsWithProvider returns a handler pinned to a single provider
func getLyricsWithProvider(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := providers.Get(name)
		if err != nil {
			Respond(w, r).Error(http.StatusNotFound, map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		serveLyrics(w, r, name, p.CacheKeyPrefix(), []string{name})
	}
}

func serveLyrics(w http.ResponseWriter, r *http.Request, providerName, cachePrefix string, order []string) {
	songName := r.URL.Query().Get("s") + r.URL.Query().Get("song") + r.URL.Query().Get("songName")
	artistName := r.URL.Query().Get("a") + r.URL.Query().Get("artist") + r.URL.Query().Get("artistName")
	albumName := r.URL.Query().Get("al") + r.URL.Query().Get("album") + r.URL.Query().Get("albumName")
	durationStr := r.URL.Query().Get("d") + r.URL.Query().Get("duration")

	if songName == "" && artistName == "" {
		http.Error(w, "Song name or artist name not provided", http.StatusUnprocessableEntity)
		return
	}

	cacheKey := buildNormalizedCacheKey(cachePrefix, songName, artistName, albumName, durationStr)
	query := strings.ToLower(strings.TrimSpace(songName)) + " " + strings.ToLower(strings.TrimSpace(artistName))

	cacheOnlyMode, _ := r.Context().Value(cacheOnlyModeKey).(bool)
	if conf.FeatureFlags.CacheOnlyMode {
		cacheOnlyMode = true
	}

	// Check cache first
	if cached, ok := getCachedLyrics(cacheKey); ok {
		stats.Get().RecordCacheHit()
		log.Infof("%s Found cached lyrics for: %s", logcolors.LogCacheLyrics, query)
		Respond(w, r).SetCacheStatus("HIT").SetProvider(cached.Provider).JSON(lyricsPayload(cached))
		return
	}

	// Check negative cache (known "no lyrics" responses)
	if reason, found := getNegativeCache(cacheKey); found {
		stats.Get().RecordNegativeCacheHit()
		log.Infof("%s Returning cached 'no lyrics' response for: %s", logcolors.LogCacheNegative, query)
		Respond(w, r).SetCacheStatus("NEGATIVE_HIT").Error(http.StatusNotFound, map[string]interface{}{
			"error": reason,
		})
		return
	}

	// If in cache-only mode and no cache found, return 429
	if cacheOnlyMode {
		stats.Get().RecordCacheMiss()
		stats.Get().RecordRateLimit("exceeded")
		log.Warnf("%s Cache-only mode but no cache found for: %s", logcolors.LogCacheLyrics, query)
		w.Header().Set("Retry-After", "60")
		Respond(w, r).SetCacheStatus("MISS").Error(http.StatusTooManyRequests, map[string]interface{}{
			"error":   "Rate limit exceeded. This request requires cached data, but no cache is available for this query.",
			"message": "Please try again later or reduce your request rate.",
		})
		return
	}

	inFlight, loaded := inFlightReqs.LoadOrStore(cacheKey, &InFlightRequest{})
	req := inFlight.(*InFlightRequest)

	if loaded {
		log.Infof("%s Waiting for in-flight request to complete", logcolors.LogCacheLyrics)
		req.wg.Wait()

		if req.err != nil {
			Respond(w, r).SetCacheStatus("MISS").Error(lyricsErrorStatus(req.err), map[string]interface{}{
				"error": req.err.Error(),
			})
			return
		}

		Respond(w, r).SetCacheStatus("HIT").SetProvider(req.result.Provider).JSON(lyricsPayload(req.result))
		return
	}

	req.wg.Add(1)
	defer func() {
		req.wg.Done()
		time.AfterFunc(1*time.Second, func() {
			inFlightReqs.Delete(cacheKey)
		})
	}()

	// Parse duration from seconds to milliseconds
	var durationMs int
	if durationStr != "" {
		fmt.Sscanf(durationStr, "%d", &durationMs)
		durationMs = durationMs * 1000
	}

	result, err := fetchFromProviders(r, order, songName, artistName, albumName, durationMs)

	req.err = err
	if err != nil {
		log.Errorf("%s Error fetching lyrics: %v", logcolors.LogLyrics, err)

		// Cache permanent "no lyrics" errors to avoid repeated upstream calls
		if shouldNegativeCache(err) {
			setNegativeCache(cacheKey, err.Error())
			stats.Get().RecordCacheMiss()
			Respond(w, r).SetCacheStatus("MISS").Error(http.StatusNotFound, map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		stats.Get().RecordCacheMiss()
		Respond(w, r).SetCacheStatus("MISS").Error(http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	cached := &CachedLyrics{
		RawLRC:          result.RawLRC,
		PlainLyrics:     result.PlainLyrics,
		TrackDurationMs: result.TrackDurationMs,
		Provider:        result.Provider,
		Language:        result.Language,
		Instrumental:    result.Instrumental,
	}
	req.result = cached

	stats.Get().RecordCacheMiss()
	log.Infof("%s Caching lyrics for: %s (provider: %s, trackDuration: %dms)",
		logcolors.LogCacheLyrics, query, result.Provider, result.TrackDurationMs)
	setCachedLyrics(cacheKey, cached)

	Respond(w, r).SetCacheStatus("MISS").SetProvider(result.Provider).JSON(lyricsPayload(cached))
}

// lyricsErrorStatus maps a fetch error onto the HTTP status for the
// response. Permanent "no lyrics" answers are 404; everything else is a
// server-side failure. Deduplicated waiters use the same mapping as the
// request that did the fetching.
func lyricsErrorStatus(err error) int {
	if shouldNegativeCache(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// fetchFromProviders tries each provider in order behind the shared circuit
// breaker, returning the first successful result
func fetchFromProviders(r *http.Request, order []string, song, artist, album string, durationMs int) (*providers.LyricsResult, error) {
	var lastErr error

	for _, name := range order {
		if !breaker.Allow() {
			lastErr = circuitbreaker.ErrCircuitOpen
			log.Warnf("%s Skipping provider %s: circuit open", logcolors.LogCircuitBreaker, name)
			continue
		}

		p, err := providers.Get(name)
		if err != nil {
			lastErr = err
			continue
		}

		result, err := p.FetchLyrics(r.Context(), song, artist, album, durationMs)
		if err != nil {
			// Permanent "not found" answers are upstream working correctly
			if shouldNegativeCache(err) {
				breaker.RecordSuccess()
			} else {
				breaker.RecordFailure()
			}
			lastErr = err
			log.Infof("%s Provider %s failed, trying next: %v", logcolors.LogFallback, name, err)
			continue
		}

		breaker.RecordSuccess()

		if result.RawLRC == "" && result.PlainLyrics == "" && !result.Instrumental {
			lastErr = fmt.Errorf("lyrics content is empty")
			continue
		}

		return result, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no lyrics found")
	}
	return nil, lastErr
}

// lyricsPayload runs cached lyrics through the engine and builds the response body
func lyricsPayload(cached *CachedLyrics) map[string]interface{} {
	// Older cache entries may carry plain lyrics without a synced document
	raw := cached.RawLRC
	if raw == "" && cached.PlainLyrics != "" {
		raw = lrc.WrapPlain(cached.PlainLyrics)
	}

	doc, skipped := lrc.ParseWithDiagnostics(raw)
	stats.Get().RecordParse(len(skipped))

	return map[string]interface{}{
		"rawLrc":          raw,
		"plainLyrics":     cached.PlainLyrics,
		"offsetMs":        doc.OffsetMs,
		"captions":        captionsJSON(doc),
		"provider":        cached.Provider,
		"language":        cached.Language,
		"instrumental":    cached.Instrumental,
		"trackDurationMs": cached.TrackDurationMs,
	}
}

func captionsJSON(doc *lrc.Lyric) []CaptionJSON {
	captions := make([]CaptionJSON, 0, len(doc.Captions))
	for _, c := range doc.Captions {
		captions = append(captions, CaptionJSON{TimestampMs: c.TimestampMs, Text: c.Text})
	}
	return captions
}

// readLRCBody reads a raw LRC document from the request body
func readLRCBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLRCBodySize))
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("failed to read request body: %v", err),
		})
		return "", false
	}
	return string(body), true
}

// parseLyrics handles POST /parse: raw LRC in, captions and diagnostics out
func parseLyrics(w http.ResponseWriter, r *http.Request) {
	text, ok := readLRCBody(w, r)
	if !ok {
		return
	}

	doc, skipped := lrc.ParseWithDiagnostics(text)
	stats.Get().RecordParse(len(skipped))

	skippedJSON := make([]SkippedLineJSON, 0, len(skipped))
	for _, s := range skipped {
		skippedJSON = append(skippedJSON, SkippedLineJSON{Line: s.Line, Reason: s.Reason})
	}

	log.Debugf("%s Parsed %d captions, skipped %d lines", logcolors.LogParser, len(doc.Captions), len(skipped))

	Respond(w, r).JSON(map[string]interface{}{
		"offsetMs":     doc.OffsetMs,
		"langTag":      doc.LangTag,
		"captions":     captionsJSON(doc),
		"skippedLines": skippedJSON,
	})
}

// getLine handles /line: current caption at a playback position.
// The LRC document comes from the POST body or the "lrc" query parameter.
func getLine(w http.ResponseWriter, r *http.Request) {
	var text string
	if r.Method == http.MethodPost {
		body, ok := readLRCBody(w, r)
		if !ok {
			return
		}
		text = body
	} else {
		text = r.URL.Query().Get("lrc")
	}

	if text == "" {
		Respond(w, r).Error(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": "No LRC document provided",
		})
		return
	}

	var timeSec int64
	if t := r.URL.Query().Get("t"); t != "" {
		fmt.Sscanf(t, "%d", &timeSec)
	}

	doc := lrc.Parse(text)
	lineText, ok := doc.GetText(timeSec)
	index, _ := doc.GetIndex(timeSec)

	if !ok {
		Respond(w, r).Error(http.StatusNotFound, map[string]interface{}{
			"error": "No captions in document",
		})
		return
	}

	Respond(w, r).JSON(map[string]interface{}{
		"text":  lineText,
		"index": index,
		"t":     timeSec,
	})
}

// adjustOffset handles POST /adjustOffset: shifts timing and returns the
// re-serialized document
func adjustOffset(w http.ResponseWriter, r *http.Request) {
	text, ok := readLRCBody(w, r)
	if !ok {
		return
	}

	var timeSec, deltaMs int64
	if t := r.URL.Query().Get("t"); t != "" {
		fmt.Sscanf(t, "%d", &timeSec)
	}
	if d := r.URL.Query().Get("delta"); d != "" {
		fmt.Sscanf(d, "%d", &deltaMs)
	}

	if deltaMs == 0 {
		Respond(w, r).Error(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": "Missing or zero 'delta' query parameter (milliseconds)",
		})
		return
	}

	doc := lrc.Parse(text)
	doc.AdjustOffset(timeSec, deltaMs)

	Respond(w, r).JSON(map[string]interface{}{
		"lrc":      doc.AsLRC(),
		"offsetMs": doc.OffsetMs,
	})
}

func getStats(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != conf.Configuration.CacheAccessToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	s := stats.Get()
	snapshot := s.Snapshot()

	// Add cache storage info
	numKeys, sizeInKB := persistentCache.Stats()
	snapshot["cache_storage"] = map[string]interface{}{
		"keys":    numKeys,
		"size_kb": sizeInKB,
		"size_mb": float64(sizeInKB) / 1024,
	}

	// Add circuit breaker status
	state, failures, _ := breaker.Stats()
	snapshot["circuit_breaker"] = map[string]interface{}{
		"state":              state.String(),
		"failures":           failures,
		"cooldown_remaining": breaker.TimeUntilRetry().String(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func getCacheDump(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != conf.Configuration.CacheAccessToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	cacheDump := CacheDump{}
	persistentCache.Range(func(key string, entry cache.CacheEntry) bool {
		cacheDump[key] = entry
		return true
	})

	numKeys, sizeInKB := persistentCache.Stats()
	s := stats.Get()

	cacheDumpResponse := CacheDumpResponse{
		NumberOfKeys: numKeys,
		SizeInKB:     sizeInKB,
		SizeInMB:     float64(sizeInKB) / 1024,
		Performance: CachePerformance{
			Hits:         s.CacheHits.Load(),
			Misses:       s.CacheMisses.Load(),
			NegativeHits: s.NegativeCacheHits.Load(),
			HitRate:      s.CacheHitRate(),
		},
		Cache: cacheDump,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cacheDumpResponse)
}

func clearCache(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != conf.Configuration.CacheAccessToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := persistentCache.Clear(); err != nil {
		log.Errorf("%s Failed to clear cache: %v", logcolors.LogCacheClear, err)
		Respond(w, r).Error(http.StatusInternalServerError, map[string]interface{}{
			"error": fmt.Sprintf("Failed to clear cache: %v", err),
		})
		return
	}

	log.Infof("%s Cache cleared successfully", logcolors.LogCacheClear)
	Respond(w, r).JSON(map[string]interface{}{
		"message": "Cache cleared successfully",
	})
}

// clearProviderCache deletes all cache entries for one provider prefix,
// including its negative cache entries
func clearProviderCache(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != conf.Configuration.CacheAccessToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	providerName := mux.Vars(r)["provider"]

	prefix := aggregateCachePrefix
	if providerName != "aggregate" {
		p, err := providers.Get(providerName)
		if err != nil {
			Respond(w, r).Error(http.StatusNotFound, map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		prefix = p.CacheKeyPrefix()
	}

	var toDelete []string
	persistentCache.Range(func(key string, entry cache.CacheEntry) bool {
		if strings.HasPrefix(key, prefix+":") || strings.HasPrefix(key, "no_lyrics:"+prefix+":") {
			toDelete = append(toDelete, key)
		}
		return true
	})

	deleted := 0
	for _, key := range toDelete {
		if err := persistentCache.Delete(key); err != nil {
			log.Warnf("%s Failed to delete key %s: %v", logcolors.LogCacheClear, key, err)
		} else {
			deleted++
		}
	}

	log.Infof("%s Cleared %d entries for provider %s", logcolors.LogCacheClear, deleted, providerName)
	Respond(w, r).JSON(map[string]interface{}{
		"message":  "Provider cache cleared",
		"provider": providerName,
		"deleted":  deleted,
	})
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	state, failures, _ := breaker.Stats()

	health := map[string]interface{}{
		"status":          "ok",
		"providers":       providers.List(),
		"circuit_breaker": state.String(),
	}

	if state == circuitbreaker.StateOpen {
		health["status"] = "degraded"
		health["circuit_breaker_retry_in"] = breaker.TimeUntilRetry().String()
	}

	if len(providers.List()) == 0 {
		health["status"] = "unhealthy"
		health["error"] = "no lyric providers registered"
	}

	// Authenticated callers get failure details
	if conf.Configuration.CacheAccessToken != "" && r.Header.Get("Authorization") == conf.Configuration.CacheAccessToken {
		health["circuit_breaker_failures"] = failures
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != conf.Configuration.CacheAccessToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	state, failures, _ := breaker.Stats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"state":            state.String(),
		"failures":         failures,
		"time_until_retry": breaker.TimeUntilRetry().String(),
		"config": map[string]interface{}{
			"threshold":    conf.Configuration.CircuitBreakerThreshold,
			"cooldown_sec": conf.Configuration.CircuitBreakerCooldownSecs,
		},
	})
}

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != conf.Configuration.CacheAccessToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	breaker.Reset()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Circuit breaker reset to CLOSED state",
	})
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"help": "Synced lyrics API. Fetch LRC lyrics with /getLyrics?s=Shape%20of%20You&a=Ed%20Sheeran, or work with LRC documents directly via /parse, /line and /adjustOffset.",
		"endpoints": map[string]string{
			"GET /getLyrics?s=&a=&al=&d=":        "Fetch lyrics (lrclib, then kugou)",
			"GET /lrclib/getLyrics?s=&a=":        "Fetch lyrics from LRCLIB only",
			"GET /kugou/getLyrics?s=&a=":         "Fetch lyrics from Kugou only",
			"POST /parse":                        "Parse an LRC document (body) into captions with diagnostics",
			"GET|POST /line?t=<seconds>":         "Current caption at a playback position",
			"POST /adjustOffset?t=&delta=<ms>":   "Shift lyric timing and re-serialize",
			"GET /health":                        "Service health",
			"GET /stats":                         "Server statistics (authorized)",
			"GET /cache":                         "Cache dump (authorized)",
			"GET /cache/clear":                   "Clear the cache (authorized)",
			"GET /cache/clear/{provider}":        "Clear one provider's cache (authorized)",
		},
	})
}
