package kugou

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lrcsync-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const (
	// API endpoints
	lyricsSearchURL   = "https://krcs.kugou.com/search"
	lyricsDownloadURL = "https://krcs.kugou.com/download"
	songSearchURL     = "http://msearchcdn.kugou.com/api/v3/search/song"

	// Request defaults
	defaultTimeout = 10 * time.Second
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

var httpClient = &http.Client{
	Timeout: defaultTimeout,
}

// getJSON performs a GET request against a Kugou endpoint and decodes the
// JSON body into out. The context carries the caller's cancellation and
// deadline through the request.
func getJSON(ctx context.Context, requestURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// searchKeyword joins song and artist into the keyword the Kugou search
// endpoints expect.
func searchKeyword(song, artist string) string {
	if artist == "" {
		return song
	}
	return song + " " + artist
}

// SearchLyrics searches for lyric candidates. The song hash is required
// for the endpoint to return anything useful.
func SearchLyrics(ctx context.Context, song, artist string, durationMs int, hash string) ([]LyricsCandidate, error) {
	params := url.Values{}
	params.Set("ver", "1")
	params.Set("man", "yes")
	params.Set("client", "mobi")
	params.Set("keyword", searchKeyword(song, artist))
	if durationMs > 0 {
		params.Set("duration", strconv.Itoa(durationMs))
	}
	if hash != "" {
		params.Set("hash", hash)
	}

	log.Debugf("%s Searching lyrics: %s", logcolors.LogSearch, searchKeyword(song, artist))

	var searchResp SearchResponse
	if err := getJSON(ctx, lyricsSearchURL+"?"+params.Encode(), &searchResp); err != nil {
		return nil, err
	}

	if searchResp.Status != 200 {
		return nil, fmt.Errorf("API error: %s (code: %d)", searchResp.ErrMsg, searchResp.ErrCode)
	}

	return searchResp.Candidates, nil
}

// DownloadLyrics downloads LRC content for one candidate by its ID and
// access key. The payload arrives base64-encoded.
func DownloadLyrics(ctx context.Context, id, accessKey string) (string, error) {
	params := url.Values{}
	params.Set("ver", "1")
	params.Set("client", "pc")
	params.Set("id", id)
	params.Set("accesskey", accessKey)
	params.Set("fmt", "lrc")

	log.Debugf("%s Downloading lyrics ID: %s", logcolors.LogLyrics, id)

	var downloadResp DownloadResponse
	if err := getJSON(ctx, lyricsDownloadURL+"?"+params.Encode(), &downloadResp); err != nil {
		return "", err
	}

	if downloadResp.Status != 200 {
		return "", fmt.Errorf("API error: %s (code: %d)", downloadResp.Info, downloadResp.ErrorCode)
	}

	if downloadResp.Content == "" {
		return "", fmt.Errorf("lyrics content is empty")
	}

	lrcContent, err := DecodeBase64Content(downloadResp.Content)
	if err != nil {
		return "", fmt.Errorf("failed to decode lyrics content: %w", err)
	}

	return lrcContent, nil
}

// SearchSongs searches the song catalog. Lyric search needs a song hash,
// and this endpoint is where hashes come from.
func SearchSongs(ctx context.Context, song, artist string, pageSize int) ([]SongInfo, error) {
	if pageSize <= 0 {
		pageSize = 10
	}

	params := url.Values{}
	params.Set("keyword", searchKeyword(song, artist))
	params.Set("pagesize", strconv.Itoa(pageSize))
	params.Set("page", "1")
	params.Set("plat", "0")
	params.Set("version", "9108")

	var searchResp SongSearchResponse
	if err := getJSON(ctx, songSearchURL+"?"+params.Encode(), &searchResp); err != nil {
		return nil, err
	}

	if searchResp.Status != 1 {
		return nil, fmt.Errorf("API error: status %d, errcode %d", searchResp.Status, searchResp.ErrCode)
	}

	return searchResp.Data.Info, nil
}

// matchScore scores how well a candidate name matches the wanted name:
// exact for a case-insensitive equal, partial for a substring hit. When
// symmetric is set, the wanted name containing the candidate also counts
// (covers "Shape of You" against "Shape of You (Remix)" in either
// direction).
func matchScore(got, want string, exact, partial int, symmetric bool) int {
	if want == "" {
		return 0
	}
	g := strings.ToLower(got)
	w := strings.ToLower(want)
	switch {
	case g == w:
		return exact
	case strings.Contains(g, w), symmetric && strings.Contains(w, g):
		return partial
	}
	return 0
}

// durationScore rewards candidates whose duration is close to the
// target: 20 within 3s, 10 within 5s, 5 within 10s.
func durationScore(candidateMs, targetMs int) int {
	if targetMs <= 0 || candidateMs <= 0 {
		return 0
	}
	switch diff := abs(candidateMs - targetMs); {
	case diff < 3000:
		return 20
	case diff < 5000:
		return 10
	case diff < 10000:
		return 5
	}
	return 0
}

// clampUnit clamps a normalized score into [0, 1].
func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

// SelectBestCandidate picks the lyric candidate that best matches the
// requested track, returning it with a normalized match score in [0, 1].
// Synced candidates (krctype 1) and official uploads rank above
// otherwise equal matches.
func SelectBestCandidate(candidates []LyricsCandidate, song, artist string, durationMs int) (*LyricsCandidate, float64) {
	if len(candidates) == 0 {
		return nil, 0
	}

	// 60 API base + 20 synced + 20 song + 20 artist + 20 duration + 5 official
	const maxScore = 145

	var best *LyricsCandidate
	bestScore := -1

	for i := range candidates {
		c := &candidates[i]

		score := c.Score
		if c.KRCType == 1 {
			score += 20
		}
		score += matchScore(c.Song, song, 20, 10, true)
		score += matchScore(c.Singer, artist, 20, 10, false)
		score += durationScore(c.Duration, durationMs)
		if strings.Contains(c.ProductFrom, "官方") {
			score += 5
		}

		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	return best, clampUnit(float64(bestScore) / maxScore)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// filterSongsByDuration keeps songs within deltaMs of the target
// duration. SongInfo durations are in seconds.
func filterSongsByDuration(songs []SongInfo, durationMs, deltaMs int) []SongInfo {
	var filtered []SongInfo
	for _, s := range songs {
		if abs(s.Duration*1000-durationMs) <= deltaMs {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// SelectBestSong picks the catalog entry that best matches the requested
// track, returning it with a normalized score in [0, 1]. Entries with
// lossless or 320kbps audio get a small tiebreak bonus since their
// metadata tends to be better maintained.
func SelectBestSong(songs []SongInfo, song, artist string, durationMs int) (*SongInfo, float64) {
	if len(songs) == 0 {
		return nil, 0
	}

	// 30 song + 25 artist + 20 duration + 3 quality
	const maxScore = 78

	var best *SongInfo
	bestScore := -1

	for i := range songs {
		s := &songs[i]

		score := matchScore(s.SongName, song, 30, 15, true)
		score += matchScore(s.SingerName, artist, 25, 10, true)
		score += durationScore(s.Duration*1000, durationMs)
		if s.SQHash != "" {
			score += 2
		}
		if s.Hash320 != "" {
			score += 1
		}

		if score > bestScore {
			bestScore = score
			best = s
		}
	}

	return best, clampUnit(float64(bestScore) / maxScore)
}
