package kugou

// Wire types for the Kugou endpoints. Only the fields the client reads
// are mapped; the APIs return far more than this.

// SearchResponse is the krcs search envelope.
type SearchResponse struct {
	Status  int    `json:"status"`
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`

	Candidates []LyricsCandidate `json:"candidates"`
}

// LyricsCandidate is one lyric match from the krcs search endpoint.
type LyricsCandidate struct {
	ID          string `json:"id"`
	AccessKey   string `json:"accesskey"`
	ProductFrom string `json:"product_from"`
	Singer      string `json:"singer"`
	Song        string `json:"song"`
	Duration    int    `json:"duration"` // milliseconds
	Language    string `json:"language"`
	KRCType     int    `json:"krctype"` // 1 = synced
	Score       int    `json:"score"`
}

// DownloadResponse is the krcs download envelope. Content is
// base64-encoded LRC text.
type DownloadResponse struct {
	Status    int    `json:"status"`
	Info      string `json:"info"`
	ErrorCode int    `json:"error_code"`
	Content   string `json:"content"`
}

// SongSearchResponse is the catalog search envelope.
type SongSearchResponse struct {
	Status  int `json:"status"`
	ErrCode int `json:"errcode"`
	Data    struct {
		Info []SongInfo `json:"info"`
	} `json:"data"`
}

// SongInfo is one catalog entry. Hash is what the lyric search needs;
// SQHash and Hash320 flag lossless and 320kbps audio variants.
type SongInfo struct {
	Hash       string `json:"hash"`
	SQHash     string `json:"sqhash"`
	Hash320    string `json:"320hash"`
	SongName   string `json:"songname"`
	SingerName string `json:"singername"`
	AlbumName  string `json:"album_name"`
	Duration   int    `json:"duration"` // seconds
}
