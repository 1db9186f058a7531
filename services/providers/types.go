package providers

// LyricsResult is the standardized result from any lyrics provider
type LyricsResult struct {
	// RawLRC contains the raw LRC text as returned by the provider
	RawLRC string `json:"rawLrc,omitempty"`

	// PlainLyrics contains unsynced lyric text when no timed lyrics exist
	PlainLyrics string `json:"plainLyrics,omitempty"`

	// TrackDurationMs is the duration of the matched track in milliseconds
	TrackDurationMs int `json:"trackDurationMs,omitempty"`

	// Provider is the name of the provider that returned these lyrics
	Provider string `json:"provider"`

	// Language is the detected or reported language code (e.g., "en", "zh")
	Language string `json:"language,omitempty"`

	// Instrumental marks tracks the provider reports as having no lyrics
	Instrumental bool `json:"instrumental,omitempty"`
}

// ProviderError represents an error from a provider with additional context
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}
