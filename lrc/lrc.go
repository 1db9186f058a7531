// Package lrc models LRC-format synced lyrics and answers
// "which line is showing at playback position T" queries.
//
// An LRC file mixes metadata tags and timestamped caption lines:
//
//	[ti:Let's Twist Again]
//	[ar:Chubby Checker]
//	[offset:-500]
//	[00:12.00]Lyrics beginning ...
//	[00:15.30]Some more lyrics ...
//
// Parsing is lossy by design: malformed lines are dropped individually
// and the overall parse always yields a document. Captions are kept
// sorted ascending by timestamp after every mutation.
package lrc

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// Leading [tag:value] shape that both captions and metadata tags share.
	// Control characters and nested brackets disqualify the line.
	lineStartRegex = regexp.MustCompile(`^\[([^\x00-\x08\x0A-\x1F\x7F\[\]:]*):([^\x00-\x08\x0A-\x1F\x7F\[\]]*)\]`)
)

const (
	// lookaheadMs shifts every lookup 2 seconds into the future so the
	// displayed line anticipates the upcoming lyric instead of lagging it.
	lookaheadMs = 2000

	// mergeWindowMs is the rolling window for MergeAdjacent. Captions
	// closer than this to the last kept caption are folded into it.
	mergeWindowMs = 2000

	// mergeSeparator joins caption texts when adjacent captions merge.
	mergeSeparator = "  "
)

// Caption is one timestamped lyric line.
type Caption struct {
	TimestampMs int64  `json:"timestampMs"`
	Text        string `json:"text"`
}

// Lyric is one fully parsed lyric track.
//
// Captions are ordered ascending by TimestampMs; every mutating method
// restores that invariant before returning. A Lyric is not safe for
// concurrent use; callers that share one across goroutines must provide
// their own exclusion.
type Lyric struct {
	// OffsetMs is the global shift applied to all lookups. Positive
	// delays the lyric, per the [offset:N] convention.
	OffsetMs int64 `json:"offsetMs"`

	// LangTag is an optional language/description label carried
	// alongside the captions. Informational only.
	LangTag string `json:"langTag,omitempty"`

	Captions []Caption `json:"captions"`
}

// SkippedLine records one input line the parser dropped.
type SkippedLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Parse parses LRC text into a Lyric. It never fails: unparseable lines
// are dropped individually and an empty document is returned for input
// containing no captions at all.
func Parse(text string) *Lyric {
	lyric, _ := ParseWithDiagnostics(text)
	return lyric
}

// ParseWithDiagnostics is Parse plus a record of every line that looked
// like a tag or caption but was dropped. Lines that do not match the
// leading [tag:value] shape at all (blank lines, plain text) are skipped
// without a record.
func ParseWithDiagnostics(text string) (*Lyric, []SkippedLine) {
	lyric := &Lyric{}
	var skipped []SkippedLine

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[offset") {
			raw := strings.TrimPrefix(line, "[offset:")
			raw = strings.TrimSuffix(raw, "]")
			raw = strings.ReplaceAll(raw, " ", "")
			if offset, err := strconv.ParseInt(raw, 10, 64); err == nil {
				// Later occurrences win.
				lyric.OffsetMs = offset
			} else {
				skipped = append(skipped, SkippedLine{Line: i + 1, Reason: "bad offset value"})
			}
			continue
		}

		if !lineStartRegex.MatchString(line) {
			continue
		}

		caption, ok := parseCaptionLine(line)
		if !ok {
			// Matched the bracket shape but the bracket group is not a
			// timestamp. Metadata tags like [ar:...] land here.
			skipped = append(skipped, SkippedLine{Line: i + 1, Reason: "no timestamp"})
			continue
		}
		lyric.Captions = append(lyric.Captions, caption)
	}

	// Some downloaded lyrics are not sorted.
	lyric.sortCaptions()
	lyric.MergeAdjacent()

	return lyric, skipped
}

// parseCaptionLine splits "[MM:SS.frac]text" into a Caption.
func parseCaptionLine(line string) (Caption, bool) {
	open := strings.IndexByte(line, '[')
	closing := strings.IndexByte(line, ']')
	if open < 0 || closing < 0 || closing < open {
		return Caption{}, false
	}

	ts, ok := parseTimestamp(line[open+1 : closing])
	if !ok {
		return Caption{}, false
	}

	return Caption{TimestampMs: ts, Text: line[closing+1:]}, true
}

// parseTimestamp parses "MM:SS.frac" into milliseconds. The fraction is
// a literal decimal of seconds, so ".5" and ".50" both mean 500ms.
func parseTimestamp(s string) (int64, bool) {
	colon := strings.IndexByte(s, ':')
	dot := strings.IndexByte(s, '.')
	if colon < 0 || dot < 0 || dot < colon {
		return 0, false
	}

	minutes, err := strconv.ParseUint(s[:colon], 10, 32)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseUint(s[colon+1:dot], 10, 32)
	if err != nil {
		return 0, false
	}
	fraction, err := strconv.ParseFloat("0."+s[dot+1:], 64)
	if err != nil {
		return 0, false
	}

	millis := int64(fraction * 1000.0)
	if millis < 0 {
		millis = 0
	}

	return int64(minutes)*60*1000 + int64(seconds)*1000 + millis, true
}

// adjustedTimeMs converts a playback position in seconds into the
// lookup time: position + lookahead + global offset, floored at zero.
func (l *Lyric) adjustedTimeMs(timeSec int64) int64 {
	adjusted := timeSec*1000 + lookaheadMs + l.OffsetMs
	if adjusted < 0 {
		adjusted = 0
	}
	return adjusted
}

// GetText returns the caption text showing at the given playback
// position in seconds. The second return is false only when the
// document has no captions. When the adjusted time is before the first
// caption, the first caption's text is returned rather than nothing.
func (l *Lyric) GetText(timeSec int64) (string, bool) {
	if len(l.Captions) == 0 {
		return "", false
	}

	adjusted := l.adjustedTimeMs(timeSec)
	text := l.Captions[0].Text
	for _, c := range l.Captions {
		if adjusted >= c.TimestampMs {
			text = c.Text
		} else {
			break
		}
	}
	return text, true
}

// GetIndex returns the index of the caption showing at the given
// playback position in seconds, defaulting to 0 when the adjusted time
// is before the first caption. The second return is false only when the
// document has no captions.
func (l *Lyric) GetIndex(timeSec int64) (int, bool) {
	if len(l.Captions) == 0 {
		return 0, false
	}

	adjusted := l.adjustedTimeMs(timeSec)
	index := 0
	for i, c := range l.Captions {
		if adjusted >= c.TimestampMs {
			index = i
		} else {
			break
		}
	}
	return index, true
}

// AdjustOffset nudges the lyric timing by deltaMs at the given playback
// position. Within the first 10 seconds, or while the first caption is
// showing, the nudge is a global correction: OffsetMs -= deltaMs (the
// LRC offset convention delays when positive, hence the sign flip).
// Later in the track only the currently showing caption's timestamp is
// moved, floored at zero. Captions are re-sorted afterwards since a
// per-line edit can reorder neighbors.
func (l *Lyric) AdjustOffset(timeSec, deltaMs int64) {
	if index, ok := l.GetIndex(timeSec); ok {
		if index == 0 || timeSec < 11 {
			l.OffsetMs -= deltaMs
		} else {
			ts := l.Captions[index].TimestampMs + deltaMs
			if ts < 0 {
				ts = 0
			}
			l.Captions[index].TimestampMs = ts
		}
	}

	l.sortCaptions()
}

// MergeAdjacent folds runs of near-simultaneous captions into one.
// Word-by-word karaoke LRC files otherwise flicker through fragments
// faster than anyone can read. A caption closer than 2 seconds to the
// last kept caption is appended to it, so each merged run keeps the
// timestamp of its first caption.
func (l *Lyric) MergeAdjacent() {
	if len(l.Captions) < 2 {
		return
	}

	merged := l.Captions[:1]
	for _, c := range l.Captions[1:] {
		last := &merged[len(merged)-1]
		if c.TimestampMs-last.TimestampMs < mergeWindowMs {
			last.Text += mergeSeparator + c.Text
		} else {
			merged = append(merged, c)
		}
	}
	l.Captions = merged
}

// AsLRC renders the document back to LRC text. A non-zero offset is
// emitted as a leading [offset:N] line. Timestamps render as
// [MM:SS.CC] with centisecond precision; minutes wrap at 60 and hours
// are never emitted.
func (l *Lyric) AsLRC() string {
	var b strings.Builder
	if l.OffsetMs != 0 {
		fmt.Fprintf(&b, "[offset:%d]\n", l.OffsetMs)
	}
	for _, c := range l.Captions {
		b.WriteString("[")
		b.WriteString(formatTimestamp(c.TimestampMs))
		b.WriteString("]")
		b.WriteString(c.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// WrapPlain converts plain, untimed lyric text into an LRC document by
// giving every non-empty line a zero timestamp. The wrapped text parses
// like any other LRC document, so unsynced lyrics flow through the same
// caption pipeline as synced ones.
func WrapPlain(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString("[00:00.00]")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (l *Lyric) sortCaptions() {
	sort.SliceStable(l.Captions, func(i, j int) bool {
		return l.Captions[i].TimestampMs < l.Captions[j].TimestampMs
	})
}

// formatTimestamp renders milliseconds as "MM:SS.CC".
func formatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 1000 / 60 % 60
	seconds := ms / 1000 % 60
	centis := ms % 1000 / 10
	return fmt.Sprintf("%02d:%02d.%02d", minutes, seconds, centis)
}
