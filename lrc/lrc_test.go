package lrc

import (
	"strings"
	"testing"
)

// sortedAscending reports whether captions are ordered by timestamp.
func sortedAscending(captions []Caption) bool {
	for i := 1; i < len(captions); i++ {
		if captions[i-1].TimestampMs > captions[i].TimestampMs {
			return false
		}
	}
	return true
}

func TestParseConcreteExample(t *testing.T) {
	input := "[offset:-500]\n[00:01.50]Hello\n[00:04.00]World\n"

	lyric := Parse(input)

	if lyric.OffsetMs != -500 {
		t.Errorf("Expected offset -500, got %d", lyric.OffsetMs)
	}
	expected := []Caption{
		{TimestampMs: 1500, Text: "Hello"},
		{TimestampMs: 4000, Text: "World"},
	}
	if len(lyric.Captions) != len(expected) {
		t.Fatalf("Expected %d captions, got %d", len(expected), len(lyric.Captions))
	}
	for i, want := range expected {
		if lyric.Captions[i] != want {
			t.Errorf("Caption %d: expected %+v, got %+v", i, want, lyric.Captions[i])
		}
	}
}

func TestParseFractionIsDecimalSeconds(t *testing.T) {
	// The fraction is a decimal of seconds, not a fixed centisecond
	// field: ".5" and ".50" both mean 500ms.
	tests := []struct {
		name     string
		line     string
		expected int64
	}{
		{name: "Two digit fraction", line: "[00:01.50]x", expected: 1500},
		{name: "One digit fraction", line: "[00:01.5]x", expected: 1500},
		{name: "Three digit fraction", line: "[00:01.055]x", expected: 1055},
		{name: "Minutes and seconds", line: "[02:03.00]x", expected: 123000},
		{name: "Large minutes", line: "[100:00.00]x", expected: 6000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lyric := Parse(tt.line)
			if len(lyric.Captions) != 1 {
				t.Fatalf("Expected 1 caption, got %d", len(lyric.Captions))
			}
			if lyric.Captions[0].TimestampMs != tt.expected {
				t.Errorf("Expected timestamp %d, got %d", tt.expected, lyric.Captions[0].TimestampMs)
			}
		})
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"[ar:Some Artist]",
		"[ti:Some Title]",
		"",
		"plain text without tags",
		"[00:aa.00]bad minute field",
		"[00:10]no dot in timestamp",
		"[00:10.00]Good line",
		"[99:99:99]no dot either",
	}, "\n")

	lyric, skipped := ParseWithDiagnostics(input)

	if len(lyric.Captions) != 1 {
		t.Fatalf("Expected 1 caption, got %d: %+v", len(lyric.Captions), lyric.Captions)
	}
	if lyric.Captions[0].Text != "Good line" {
		t.Errorf("Expected text %q, got %q", "Good line", lyric.Captions[0].Text)
	}

	// Tag-shaped lines that are not captions produce diagnostics; blank
	// and free-text lines do not.
	if len(skipped) == 0 {
		t.Error("Expected skip diagnostics for tag-shaped non-caption lines")
	}
	for _, s := range skipped {
		if s.Line <= 0 {
			t.Errorf("Expected positive line number, got %d", s.Line)
		}
		if s.Reason == "" {
			t.Error("Expected non-empty skip reason")
		}
	}
}

func TestParseEmptyLyricsLines(t *testing.T) {
	// A caption with no text after the bracket is kept; empty lines are
	// useful as verse separators.
	lyric := Parse("[00:05.00]\n[00:10.00]verse two")
	if len(lyric.Captions) != 2 {
		t.Fatalf("Expected 2 captions, got %d", len(lyric.Captions))
	}
	if lyric.Captions[0].Text != "" {
		t.Errorf("Expected empty caption text, got %q", lyric.Captions[0].Text)
	}
}

func TestParseOffsetVariants(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
	}{
		{name: "Negative offset", input: "[offset:-500]", expected: -500},
		{name: "Positive offset", input: "[offset:300]", expected: 300},
		{name: "Offset with spaces", input: "[offset: 250 ]", expected: 250},
		{name: "Later occurrence wins", input: "[offset:100]\n[offset:200]", expected: 200},
		{name: "Bad offset ignored", input: "[offset:abc]", expected: 0},
		{name: "Bad offset keeps previous", input: "[offset:100]\n[offset:abc]", expected: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lyric := Parse(tt.input)
			if lyric.OffsetMs != tt.expected {
				t.Errorf("Expected offset %d, got %d", tt.expected, lyric.OffsetMs)
			}
		})
	}
}

func TestParseUnsortedInput(t *testing.T) {
	input := "[00:30.00]third\n[00:10.00]first\n[00:20.00]second"

	lyric := Parse(input)

	if !sortedAscending(lyric.Captions) {
		t.Errorf("Expected captions sorted ascending, got %+v", lyric.Captions)
	}
	if len(lyric.Captions) != 3 {
		t.Fatalf("Expected 3 captions, got %d", len(lyric.Captions))
	}
	if lyric.Captions[0].Text != "first" {
		t.Errorf("Expected first caption %q, got %q", "first", lyric.Captions[0].Text)
	}
}

func TestParseMergesCloseCaptions(t *testing.T) {
	// Parsing finishes with a merge pass, so karaoke-style fragments
	// inside a 2-second window coalesce into the run's first caption.
	lyric := Parse("[00:01.00]Hello\n[00:02.00]World")

	if len(lyric.Captions) != 1 {
		t.Fatalf("Expected 1 merged caption, got %d: %+v", len(lyric.Captions), lyric.Captions)
	}
	if lyric.Captions[0].TimestampMs != 1000 {
		t.Errorf("Expected merged timestamp 1000, got %d", lyric.Captions[0].TimestampMs)
	}
	if lyric.Captions[0].Text != "Hello  World" {
		t.Errorf("Expected merged text %q, got %q", "Hello  World", lyric.Captions[0].Text)
	}
}

func TestMergeAdjacentConcrete(t *testing.T) {
	lyric := &Lyric{Captions: []Caption{
		{TimestampMs: 0, Text: "a"},
		{TimestampMs: 1000, Text: "b"},
		{TimestampMs: 4000, Text: "c"},
	}}

	lyric.MergeAdjacent()

	expected := []Caption{
		{TimestampMs: 0, Text: "a  b"},
		{TimestampMs: 4000, Text: "c"},
	}
	if len(lyric.Captions) != len(expected) {
		t.Fatalf("Expected %d captions, got %d: %+v", len(expected), len(lyric.Captions), lyric.Captions)
	}
	for i, want := range expected {
		if lyric.Captions[i] != want {
			t.Errorf("Caption %d: expected %+v, got %+v", i, want, lyric.Captions[i])
		}
	}
}

func TestMergeAdjacentWindowAnchorsAtFirstKept(t *testing.T) {
	// 0, 1500, 3000: 1500 merges into 0; 3000 is then 3000 away from
	// the kept caption at 0, so it survives even though it is only
	// 1500 after the raw caption at 1500.
	lyric := &Lyric{Captions: []Caption{
		{TimestampMs: 0, Text: "a"},
		{TimestampMs: 1500, Text: "b"},
		{TimestampMs: 3000, Text: "c"},
	}}

	lyric.MergeAdjacent()

	expected := []Caption{
		{TimestampMs: 0, Text: "a  b"},
		{TimestampMs: 3000, Text: "c"},
	}
	if len(lyric.Captions) != len(expected) {
		t.Fatalf("Expected %d captions, got %d: %+v", len(expected), len(lyric.Captions), lyric.Captions)
	}
	for i, want := range expected {
		if lyric.Captions[i] != want {
			t.Errorf("Caption %d: expected %+v, got %+v", i, want, lyric.Captions[i])
		}
	}
}

func TestMergeAdjacentIdempotent(t *testing.T) {
	lyric := &Lyric{Captions: []Caption{
		{TimestampMs: 0, Text: "a"},
		{TimestampMs: 500, Text: "b"},
		{TimestampMs: 1000, Text: "c"},
		{TimestampMs: 5000, Text: "d"},
		{TimestampMs: 6500, Text: "e"},
		{TimestampMs: 10000, Text: "f"},
	}}

	lyric.MergeAdjacent()
	once := make([]Caption, len(lyric.Captions))
	copy(once, lyric.Captions)

	lyric.MergeAdjacent()

	if len(lyric.Captions) != len(once) {
		t.Fatalf("Second merge changed caption count: %d vs %d", len(lyric.Captions), len(once))
	}
	for i := range once {
		if lyric.Captions[i] != once[i] {
			t.Errorf("Caption %d changed on second merge: %+v vs %+v", i, lyric.Captions[i], once[i])
		}
	}
	if !sortedAscending(lyric.Captions) {
		t.Error("Expected captions sorted after merge")
	}
}

func TestEmptyDocumentQueries(t *testing.T) {
	lyric := Parse("no captions here at all")

	if len(lyric.Captions) != 0 {
		t.Fatalf("Expected empty document, got %d captions", len(lyric.Captions))
	}

	for _, timeSec := range []int64{-100, 0, 5, 100000} {
		if _, ok := lyric.GetText(timeSec); ok {
			t.Errorf("GetText(%d): expected no result on empty document", timeSec)
		}
		if _, ok := lyric.GetIndex(timeSec); ok {
			t.Errorf("GetIndex(%d): expected no result on empty document", timeSec)
		}
	}
}

func TestGetTextDefaultsToFirstCaption(t *testing.T) {
	lyric := &Lyric{Captions: []Caption{
		{TimestampMs: 5000, Text: "first line"},
		{TimestampMs: 10000, Text: "second line"},
	}}

	// Adjusted time is 0*1000+2000 = 2000ms, before the first caption
	// at 5000ms: the first caption is returned, not nothing.
	text, ok := lyric.GetText(0)
	if !ok {
		t.Fatal("Expected a result from GetText on non-empty document")
	}
	if text != "first line" {
		t.Errorf("Expected %q, got %q", "first line", text)
	}

	index, ok := lyric.GetIndex(0)
	if !ok {
		t.Fatal("Expected a result from GetIndex on non-empty document")
	}
	if index != 0 {
		t.Errorf("Expected index 0, got %d", index)
	}
}

func TestGetTextPicksLastCaptionAtOrBefore(t *testing.T) {
	lyric := &Lyric{Captions: []Caption{
		{TimestampMs: 0, Text: "a"},
		{TimestampMs: 10000, Text: "b"},
		{TimestampMs: 20000, Text: "c"},
	}}

	tests := []struct {
		name     string
		timeSec  int64
		expected string
	}{
		// Lookups run 2 seconds ahead of the playback position.
		{name: "Start of track", timeSec: 0, expected: "a"},
		{name: "Lookahead crosses boundary", timeSec: 8, expected: "b"},
		{name: "Middle of track", timeSec: 12, expected: "b"},
		{name: "Last caption", timeSec: 30, expected: "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := lyric.GetText(tt.timeSec)
			if !ok {
				t.Fatal("Expected a result")
			}
			if text != tt.expected {
				t.Errorf("GetText(%d): expected %q, got %q", tt.timeSec, tt.expected, text)
			}
		})
	}
}

func TestGetTextHonorsOffset(t *testing.T) {
	lyric := &Lyric{Captions: []Caption{
		{TimestampMs: 0, Text: "a"},
		{TimestampMs: 10000, Text: "b"},
	}}

	// Positive offset delays the lyric lookup point.
	lyric.OffsetMs = 3000
	text, _ := lyric.GetText(5)
	if text != "b" {
		t.Errorf("With offset 3000: expected %q, got %q", "b", text)
	}

	lyric.OffsetMs = -3000
	text, _ = lyric.GetText(5)
	if text != "a" {
		t.Errorf("With offset -3000: expected %q, got %q", "a", text)
	}
}

func TestGetIndexClampsNegativeAdjustedTime(t *testing.T) {
	// A large negative offset at an early playback position drives the
	// adjusted time negative. Both queries clamp it to zero so they
	// always agree on the caption being shown.
	lyric := &Lyric{
		OffsetMs: -100000,
		Captions: []Caption{
			{TimestampMs: 0, Text: "a"},
			{TimestampMs: 50000, Text: "b"},
		},
	}

	text, ok := lyric.GetText(0)
	if !ok || text != "a" {
		t.Errorf("GetText(0): expected %q, got %q (ok=%v)", "a", text, ok)
	}

	index, ok := lyric.GetIndex(0)
	if !ok || index != 0 {
		t.Errorf("GetIndex(0): expected index 0, got %d (ok=%v)", index, ok)
	}
}

func TestAdjustOffsetEarlyTrackIsGlobal(t *testing.T) {
	lyric := &Lyric{Captions: []Caption{
		{TimestampMs: 0, Text: "a"},
		{TimestampMs: 3000, Text: "b"},
		{TimestampMs: 8000, Text: "c"},
	}}

	lyric.AdjustOffset(5, 1000)

	if lyric.OffsetMs != -1000 {
		t.Errorf("Expected global offset -1000, got %d", lyric.OffsetMs)
	}
	expected := []int64{0, 3000, 8000}
	for i, want := range expected {
		if lyric.Captions[i].TimestampMs != want {
			t.Errorf("Caption %d timestamp changed: expected %d, got %d", i, want, lyric.Captions[i].TimestampMs)
		}
	}
}

func TestAdjustOffsetPerLine(t *testing.T) {
	lyric := &Lyric{Captions: []Caption{
		{TimestampMs: 0, Text: "a"},
		{TimestampMs: 15000, Text: "b"},
		{TimestampMs: 20000, Text: "c"},
	}}

	// 15s is past the early-track window and resolves to index 1.
	lyric.AdjustOffset(15, 1000)

	if lyric.OffsetMs != 0 {
		t.Errorf("Expected global offset untouched, got %d", lyric.OffsetMs)
	}
	if lyric.Captions[1].TimestampMs != 16000 {
		t.Errorf("Expected caption 1 moved to 16000, got %d", lyric.Captions[1].TimestampMs)
	}
	if !sortedAscending(lyric.Captions) {
		t.Errorf("Expected captions sorted after adjustment, got %+v", lyric.Captions)
	}
}

func TestAdjustOffsetPerLineResorts(t *testing.T) {
	lyric := &Lyric{Captions: []Caption{
		{TimestampMs: 0, Text: "a"},
		{TimestampMs: 14000, Text: "b"},
		{TimestampMs: 16000, Text: "c"},
	}}

	// 13s adjusts to 15000ms, which resolves to caption 1. Pushing it by
	// 5 seconds moves it to 19000ms, past caption 2.
	lyric.AdjustOffset(13, 5000)

	if !sortedAscending(lyric.Captions) {
		t.Fatalf("Expected captions re-sorted, got %+v", lyric.Captions)
	}
	if lyric.Captions[1].Text != "c" || lyric.Captions[2].Text != "b" {
		t.Errorf("Expected captions to swap order, got %+v", lyric.Captions)
	}
	if lyric.Captions[2].TimestampMs != 19000 {
		t.Errorf("Expected moved caption at 19000, got %d", lyric.Captions[2].TimestampMs)
	}
}

func TestAdjustOffsetFloorsAtZero(t *testing.T) {
	lyric := &Lyric{Captions: []Caption{
		{TimestampMs: 0, Text: "a"},
		{TimestampMs: 15000, Text: "b"},
	}}

	lyric.AdjustOffset(15, -20000)

	if lyric.Captions[0].TimestampMs != 0 {
		t.Errorf("Expected floor at 0, got %d", lyric.Captions[0].TimestampMs)
	}
	if !sortedAscending(lyric.Captions) {
		t.Errorf("Expected captions sorted, got %+v", lyric.Captions)
	}
}

func TestAsLRCFormat(t *testing.T) {
	lyric := &Lyric{Captions: []Caption{
		{TimestampMs: 1500, Text: "Hello"},
		{TimestampMs: 61500, Text: "World"},
	}}

	expected := "[00:01.50]Hello\n[01:01.50]World\n"
	if got := lyric.AsLRC(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestAsLRCEmitsOffsetHeader(t *testing.T) {
	lyric := &Lyric{
		OffsetMs: -500,
		Captions: []Caption{{TimestampMs: 1500, Text: "Hello"}},
	}

	expected := "[offset:-500]\n[00:01.50]Hello\n"
	if got := lyric.AsLRC(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}

	lyric.OffsetMs = 0
	if got := lyric.AsLRC(); strings.Contains(got, "offset") {
		t.Errorf("Expected no offset header for zero offset, got %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	// Serialization keeps centisecond precision, so timestamps that are
	// multiples of 10ms survive a round trip exactly. Captions are kept
	// at least 2 seconds apart so the parse-time merge pass is a no-op.
	original := &Lyric{Captions: []Caption{
		{TimestampMs: 0, Text: "intro"},
		{TimestampMs: 12340, Text: "verse one"},
		{TimestampMs: 34560, Text: "chorus"},
		{TimestampMs: 78900, Text: "outro"},
	}}

	parsed := Parse(original.AsLRC())

	if len(parsed.Captions) != len(original.Captions) {
		t.Fatalf("Expected %d captions after round trip, got %d", len(original.Captions), len(parsed.Captions))
	}
	for i, want := range original.Captions {
		if parsed.Captions[i] != want {
			t.Errorf("Caption %d: expected %+v, got %+v", i, want, parsed.Captions[i])
		}
	}
	if parsed.OffsetMs != 0 {
		t.Errorf("Expected zero offset after round trip, got %d", parsed.OffsetMs)
	}
}

func TestRoundTripPrecisionLoss(t *testing.T) {
	// Sub-centisecond detail is truncated by the MM:SS.CC format:
	// 12345ms serializes as 12.34s and parses back as 12340ms.
	original := &Lyric{Captions: []Caption{{TimestampMs: 12345, Text: "x"}}}

	parsed := Parse(original.AsLRC())

	if len(parsed.Captions) != 1 {
		t.Fatalf("Expected 1 caption, got %d", len(parsed.Captions))
	}
	if parsed.Captions[0].TimestampMs != 12340 {
		t.Errorf("Expected 12340 after truncation, got %d", parsed.Captions[0].TimestampMs)
	}
}

func TestSortInvariantAfterEveryMutation(t *testing.T) {
	input := "[00:40.00]d\n[00:00.00]a\n[00:20.00]b\n[00:30.00]c"

	lyric := Parse(input)
	if !sortedAscending(lyric.Captions) {
		t.Fatalf("Sort invariant broken after parse: %+v", lyric.Captions)
	}

	lyric.AdjustOffset(28, 15000)
	if !sortedAscending(lyric.Captions) {
		t.Fatalf("Sort invariant broken after offset adjustment: %+v", lyric.Captions)
	}

	lyric.MergeAdjacent()
	if !sortedAscending(lyric.Captions) {
		t.Fatalf("Sort invariant broken after merge: %+v", lyric.Captions)
	}
}

func TestWrapPlain(t *testing.T) {
	plain := "The club isn't the best place\n\nYou come over and start up\r\n"

	wrapped := WrapPlain(plain)

	expected := "[00:00.00]The club isn't the best place\n[00:00.00]You come over and start up\n"
	if wrapped != expected {
		t.Errorf("WrapPlain() = %q, expected %q", wrapped, expected)
	}

	// The wrapped document parses like any other LRC text; the
	// zero-timestamped lines collapse into one caption.
	doc := Parse(wrapped)
	if len(doc.Captions) != 1 {
		t.Fatalf("Expected 1 merged caption, got %d", len(doc.Captions))
	}
	if doc.Captions[0].TimestampMs != 0 {
		t.Errorf("Expected timestamp 0, got %d", doc.Captions[0].TimestampMs)
	}
}

func TestWrapPlainEmpty(t *testing.T) {
	if got := WrapPlain(""); got != "" {
		t.Errorf("Expected empty output for empty input, got %q", got)
	}
	if got := WrapPlain("\n\n  \n"); got != "" {
		t.Errorf("Expected empty output for blank input, got %q", got)
	}
}
