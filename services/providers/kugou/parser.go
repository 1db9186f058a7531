package kugou

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var (
	// LRC timestamp pattern: [mm:ss.xx] or [mm:ss:xx]
	lrcTimeRegex = regexp.MustCompile(`\[(\d{2}):(\d{2})[\.:]+(\d{2,3})\]`)

	// Metadata tags pattern: [tag:value]
	metadataRegex = regexp.MustCompile(`^\[([a-zA-Z]+):([^\]]*)\]$`)

	// Banned pattern for credit lines (e.g., "[00:05.00]Composed by：xxx")
	// Reference: https://github.com/mostafaalagamy/Metrolist/blob/1152eb28a9c6c0e9f7fa63c87ef50e2e4fa1eae1/kugou/src/main/kotlin/com/metrolist/kugou/KuGou.kt#L149
	bannedRegex = regexp.MustCompile(`^\[\d{2}:\d{2}[\.:]\d{2,3}\].+：.+`)
)

const (
	// PureMusicText is the Chinese placeholder Kugou uses for instrumental tracks
	PureMusicText = "纯音乐，请欣赏"

	// InstrumentalText is the replacement text for pure music
	InstrumentalText = "[Instrumental Only]"

	// MaxHeadTailLines is the number of lines to scan from head/tail for banned patterns
	MaxHeadTailLines = 30
)

// DecodeBase64Content decodes base64-encoded LRC content
func DecodeBase64Content(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	// Remove BOM if present
	content := string(decoded)
	content = strings.TrimPrefix(content, "\ufeff")

	return content, nil
}

// ExtractMetadata collects LRC metadata tags like [ar:], [ti:], [al:]
func ExtractMetadata(lrcContent string) map[string]string {
	metadata := make(map[string]string)

	for _, rawLine := range strings.Split(lrcContent, "\n") {
		rawLine = strings.TrimSpace(rawLine)
		matches := metadataRegex.FindStringSubmatch(rawLine)
		if len(matches) != 3 {
			continue
		}

		tag := strings.ToLower(matches[1])
		value := strings.TrimSpace(matches[2])

		switch tag {
		case "ar":
			metadata["artist"] = value
		case "ti":
			metadata["title"] = value
		case "al":
			metadata["album"] = value
		case "by":
			metadata["creator"] = value
		case "language":
			metadata["language"] = value
		}
	}

	return metadata
}

// StripLRCMetadata removes metadata tags from LRC content, keeping only timed lyrics
func StripLRCMetadata(lrcContent string) string {
	var cleanLines []string
	rawLines := strings.Split(lrcContent, "\n")

	for _, rawLine := range rawLines {
		rawLine = strings.TrimSpace(rawLine)
		if rawLine == "" {
			continue
		}

		// Skip metadata tags like [ar:Artist], [ti:Title], [id:xxx], etc.
		if matches := metadataRegex.FindStringSubmatch(rawLine); len(matches) == 3 {
			continue
		}

		// Keep only lines with timestamps
		if lrcTimeRegex.MatchString(rawLine) {
			cleanLines = append(cleanLines, rawLine)
		}
	}

	return strings.Join(cleanLines, "\n")
}

// NormalizeLyrics applies Metrolist-style normalization to LRC content.
// This filters credit lines from head/tail and handles pure music placeholder.
// Reference: https://github.com/mostafaalagamy/Metrolist/blob/1152eb28a9c6c0e9f7fa63c87ef50e2e4fa1eae1/kugou/src/main/kotlin/com/metrolist/kugou/KuGou.kt#L149
func NormalizeLyrics(lrcContent string) string {
	// Replace HTML entities
	lrcContent = strings.ReplaceAll(lrcContent, "&apos;", "'")

	// Check for pure music placeholder
	if strings.Contains(lrcContent, PureMusicText) {
		return "[00:00.00]" + InstrumentalText
	}

	// Split into lines and filter
	rawLines := strings.Split(lrcContent, "\n")
	var acceptedLines []string

	for _, rawLine := range rawLines {
		rawLine = strings.TrimSpace(rawLine)
		if rawLine == "" {
			continue
		}

		// Only accept lines with valid LRC timestamps
		if lrcTimeRegex.MatchString(rawLine) {
			acceptedLines = append(acceptedLines, rawLine)
		}
	}

	if len(acceptedLines) == 0 {
		return lrcContent
	}

	// Head trimming: find the LAST banned line in the first MaxHeadTailLines lines
	// and drop everything up to and including it (this also removes title lines before credits)
	headCutLine := 0
	headLimit := MaxHeadTailLines
	if headLimit > len(acceptedLines) {
		headLimit = len(acceptedLines)
	}
	for i := headLimit - 1; i >= 0; i-- {
		if bannedRegex.MatchString(acceptedLines[i]) {
			headCutLine = i + 1
			break
		}
	}

	// Tail trimming: find the LAST banned line in the last MaxHeadTailLines lines
	// and drop everything from that point to the end
	tailCutLine := 0
	for i := 0; i < MaxHeadTailLines && i < len(acceptedLines); i++ {
		idx := len(acceptedLines) - 1 - i
		if idx < headCutLine {
			break
		}
		if bannedRegex.MatchString(acceptedLines[idx]) {
			tailCutLine = i + 1
			break
		}
	}

	// Apply cuts
	endIdx := len(acceptedLines) - tailCutLine
	if endIdx < headCutLine {
		endIdx = headCutLine
	}

	result := acceptedLines[headCutLine:endIdx]

	return strings.Join(result, "\n")
}

// DetectLanguage tries to detect language from LRC metadata or content
func DetectLanguage(metadata map[string]string, content string) string {
	// Check metadata first
	if lang, ok := metadata["language"]; ok && lang != "" {
		return normalizeLanguageCode(lang)
	}

	// Simple heuristic: check for Chinese characters
	for _, r := range content {
		if r >= '\u4e00' && r <= '\u9fff' {
			return "zh"
		}
		if r >= '\u3040' && r <= '\u309f' { // Hiragana
			return "ja"
		}
		if r >= '\u30a0' && r <= '\u30ff' { // Katakana
			return "ja"
		}
		if r >= '\uac00' && r <= '\ud7af' { // Korean
			return "ko"
		}
	}

	return "en" // Default to English
}

// normalizeLanguageCode normalizes language names to ISO codes
func normalizeLanguageCode(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch lang {
	case "英语", "english", "eng":
		return "en"
	case "中文", "chinese", "chi", "普通话", "国语", "粤语":
		return "zh"
	case "日语", "japanese", "jpn":
		return "ja"
	case "韩语", "korean", "kor":
		return "ko"
	case "西班牙语", "spanish", "spa":
		return "es"
	case "法语", "french", "fra":
		return "fr"
	case "德语", "german", "ger":
		return "de"
	default:
		if len(lang) <= 3 {
			return lang
		}
		return "en"
	}
}
