package kugou

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
)

func TestExtractMetadata(t *testing.T) {
	lrc := `[ar:Test Artist]
[ti:Test Song]
[al:Test Album]
[by:LRC Creator]
[00:05.00]First lyrics line`

	metadata := ExtractMetadata(lrc)

	expectedMetadata := map[string]string{
		"artist":  "Test Artist",
		"title":   "Test Song",
		"album":   "Test Album",
		"creator": "LRC Creator",
	}

	for key, expected := range expectedMetadata {
		if metadata[key] != expected {
			t.Errorf("metadata[%q] = %q, expected %q", key, metadata[key], expected)
		}
	}
}

func TestExtractMetadata_InternalTagsSkipped(t *testing.T) {
	lrc := `[id:123456]
[hash:abcdef]
[sign:xyz]
[qq:123]
[total:180000]
[00:05.00]Lyrics`

	metadata := ExtractMetadata(lrc)

	// Internal tags should not be in metadata
	internalTags := []string{"id", "hash", "sign", "qq", "total"}
	for _, tag := range internalTags {
		if _, ok := metadata[tag]; ok {
			t.Errorf("Internal tag %q should not be in metadata", tag)
		}
	}
}

func TestStripLRCMetadata(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name: "Remove metadata tags",
			input: `[ar:Artist]
[ti:Title]
[00:05.00]First line
[00:10.00]Second line`,
			expected: `[00:05.00]First line
[00:10.00]Second line`,
		},
		{
			name: "Keep only timed lines",
			input: `[id:123]
[hash:abc]
[00:05.00]Lyrics`,
			expected: `[00:05.00]Lyrics`,
		},
		{
			name:     "All metadata, no lyrics",
			input:    `[ar:Artist]`,
			expected: ``,
		},
		{
			name:     "Empty input",
			input:    ``,
			expected: ``,
		},
		{
			name: "Skip blank lines",
			input: `[00:05.00]Line one

[00:10.00]Line two`,
			expected: `[00:05.00]Line one
[00:10.00]Line two`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StripLRCMetadata(tt.input)
			if result != tt.expected {
				t.Errorf("StripLRCMetadata() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestNormalizeLyrics_CreditRemoval(t *testing.T) {
	t.Run("Remove head credits", func(t *testing.T) {
		// Credit lines have pattern: [timestamp]text：text
		lrc := `[00:00.00]作词：Lyricist
[00:01.00]作曲：Composer
[00:05.00]Real lyrics start here
[00:10.00]More lyrics`

		result := NormalizeLyrics(lrc)

		if strings.Contains(result, "作词") {
			t.Error("Should remove head credit lines")
		}
		if !strings.Contains(result, "Real lyrics start here") {
			t.Error("Should keep real lyrics")
		}
	})

	t.Run("Remove tail credits", func(t *testing.T) {
		// Need more than MaxHeadTailLines (30) lines so tail credit isn't in head range
		var lines []string
		for i := 0; i < 35; i++ {
			lines = append(lines, "[00:"+fmt.Sprintf("%02d", i)+".00]Lyrics line "+fmt.Sprintf("%d", i+1))
		}
		lines = append(lines, "[03:00.00]制作：Producer")
		lrc := strings.Join(lines, "\n")

		result := NormalizeLyrics(lrc)

		if strings.Contains(result, "制作") {
			t.Error("Should remove tail credit lines")
		}
		if !strings.Contains(result, "Lyrics line 1") {
			t.Error("Should keep real lyrics")
		}
	})
}

func TestNormalizeLyrics_PureMusic(t *testing.T) {
	lrc := `[00:00.00]纯音乐，请欣赏`

	result := NormalizeLyrics(lrc)

	if !strings.Contains(result, "[Instrumental Only]") {
		t.Errorf("Expected '[Instrumental Only]', got %q", result)
	}
	if strings.Contains(result, "纯音乐") {
		t.Error("Should replace pure music placeholder")
	}
}

func TestNormalizeLyrics_HTMLEntities(t *testing.T) {
	lrc := `[00:05.00]Don&apos;t stop believing`

	result := NormalizeLyrics(lrc)

	if !strings.Contains(result, "Don't") {
		t.Errorf("Should replace &apos; with apostrophe, got %q", result)
	}
}

func TestNormalizeLyrics_PreservesNormalLyrics(t *testing.T) {
	lrc := `[00:05.00]First line of lyrics
[00:10.00]Second line of lyrics
[00:15.00]Third line of lyrics`

	result := NormalizeLyrics(lrc)

	lines := strings.Split(result, "\n")
	if len(lines) != 3 {
		t.Errorf("Expected 3 lines, got %d", len(lines))
	}
}

func TestNormalizeLyrics_EmptyInput(t *testing.T) {
	result := NormalizeLyrics("")
	if result != "" {
		t.Errorf("Expected empty string, got %q", result)
	}
}

func TestDetectLanguage_Metadata(t *testing.T) {
	metadata := map[string]string{
		"language": "Chinese",
	}

	result := DetectLanguage(metadata, "some content")
	if result != "zh" {
		t.Errorf("Expected 'zh', got %q", result)
	}
}

func TestDetectLanguage_ContentHeuristics(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "Chinese characters",
			content:  "你好世界",
			expected: "zh",
		},
		{
			name:     "Japanese hiragana",
			content:  "こんにちは",
			expected: "ja",
		},
		{
			name:     "Japanese katakana",
			content:  "コンニチハ",
			expected: "ja",
		},
		{
			name:     "Korean",
			content:  "안녕하세요",
			expected: "ko",
		},
		{
			name:     "English only",
			content:  "Hello world",
			expected: "en",
		},
		{
			name:     "Mixed with Chinese first",
			content:  "你好 hello",
			expected: "zh",
		},
		{
			name:     "Empty content",
			content:  "",
			expected: "en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectLanguage(nil, tt.content)
			if result != tt.expected {
				t.Errorf("DetectLanguage() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestNormalizeLanguageCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// Chinese variants
		{"Chinese (Chinese name)", "中文", "zh"},
		{"Chinese (English)", "chinese", "zh"},
		{"Chinese (abbrev)", "chi", "zh"},
		{"Mandarin", "普通话", "zh"},
		{"Cantonese", "粤语", "zh"},
		{"Mandarin alt", "国语", "zh"},

		// Japanese
		{"Japanese (Chinese name)", "日语", "ja"},
		{"Japanese (English)", "japanese", "ja"},
		{"Japanese (abbrev)", "jpn", "ja"},

		// Korean
		{"Korean (Chinese name)", "韩语", "ko"},
		{"Korean (English)", "korean", "ko"},
		{"Korean (abbrev)", "kor", "ko"},

		// English
		{"English (Chinese name)", "英语", "en"},
		{"English (English)", "english", "en"},
		{"English (abbrev)", "eng", "en"},

		// Spanish
		{"Spanish (Chinese name)", "西班牙语", "es"},
		{"Spanish (English)", "spanish", "es"},

		// French
		{"French (Chinese name)", "法语", "fr"},
		{"French (English)", "french", "fr"},

		// German
		{"German (Chinese name)", "德语", "de"},
		{"German (English)", "german", "de"},

		// Edge cases
		{"Already ISO code", "en", "en"},
		{"Short code", "zh", "zh"},
		{"Unknown long name", "Klingon", "en"}, // defaults to en
		{"Whitespace", "  english  ", "en"},
		{"Case insensitive", "ENGLISH", "en"},
		{"Empty", "", ""}, // Empty string returns as-is (len <= 3)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeLanguageCode(tt.input)
			if result != tt.expected {
				t.Errorf("normalizeLanguageCode(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDecodeBase64Content(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{
			name:     "Basic ASCII",
			input:    base64.StdEncoding.EncodeToString([]byte("[00:05.00]Hello")),
			expected: "[00:05.00]Hello",
		},
		{
			name:     "UTF-8 content",
			input:    base64.StdEncoding.EncodeToString([]byte("[00:05.00]你好")),
			expected: "[00:05.00]你好",
		},
		{
			name:     "With BOM",
			input:    base64.StdEncoding.EncodeToString([]byte("\ufeff[00:05.00]Content")),
			expected: "[00:05.00]Content",
		},
		{
			name:        "Invalid base64",
			input:       "not-valid-base64!!!",
			expectError: true,
		},
		{
			name:     "Empty string after decode",
			input:    base64.StdEncoding.EncodeToString([]byte("")),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := DecodeBase64Content(tt.input)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if result != tt.expected {
				t.Errorf("DecodeBase64Content() = %q, expected %q", result, tt.expected)
			}
		})
	}
}
