package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"lrcsync-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "lrcsync-go (https://github.com/lrcsync/lrcsync-go)"
)

var httpClient = &http.Client{
	Timeout: defaultTimeout,
}

// GetTrack fetches lyrics for an exact track match from the LRCLIB API.
// durationMs of 0 omits the duration parameter.
func GetTrack(ctx context.Context, baseURL, song, artist, album string, durationMs int) (*TrackResponse, error) {
	params := url.Values{}
	params.Set("track_name", song)
	params.Set("artist_name", artist)
	if album != "" {
		params.Set("album_name", album)
	}
	if durationMs > 0 {
		// LRCLIB expects duration in whole seconds
		params.Set("duration", strconv.Itoa(durationMs/1000))
	}

	requestURL := baseURL + "/api/get?" + params.Encode()

	log.Debugf("%s [LRCLIB] GET %s - %s", logcolors.LogSearch, song, artist)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
			return nil, fmt.Errorf("track not found: %s", errResp.Message)
		}
		return nil, fmt.Errorf("track not found")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var track TrackResponse
	if err := json.Unmarshal(body, &track); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &track, nil
}

// SearchTracks performs a fuzzy search when the exact lookup misses
func SearchTracks(ctx context.Context, baseURL, song, artist string) ([]TrackResponse, error) {
	params := url.Values{}
	params.Set("track_name", song)
	if artist != "" {
		params.Set("artist_name", artist)
	}

	requestURL := baseURL + "/api/search?" + params.Encode()

	log.Debugf("%s [LRCLIB] Search %s - %s", logcolors.LogSearch, song, artist)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var tracks []TrackResponse
	if err := json.Unmarshal(body, &tracks); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return tracks, nil
}

// SelectBestTrack picks the track whose duration is closest to the target,
// preferring synced lyrics. Returns nil when no track falls within deltaMs.
func SelectBestTrack(tracks []TrackResponse, durationMs, deltaMs int) *TrackResponse {
	if len(tracks) == 0 {
		return nil
	}

	var best *TrackResponse
	bestDiff := -1

	for i := range tracks {
		t := &tracks[i]
		if t.SyncedLyrics == "" && t.PlainLyrics == "" && !t.Instrumental {
			continue
		}

		diff := 0
		if durationMs > 0 {
			trackMs := int(t.Duration * 1000)
			diff = trackMs - durationMs
			if diff < 0 {
				diff = -diff
			}
			if deltaMs > 0 && diff > deltaMs {
				continue
			}
		}

		// Synced lyrics win ties against plain-only tracks
		if best == nil || diff < bestDiff ||
			(diff == bestDiff && t.SyncedLyrics != "" && best.SyncedLyrics == "") {
			best = t
			bestDiff = diff
		}
	}

	return best
}
