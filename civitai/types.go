package civitai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MediaKind selects images, videos or both
type MediaKind string

const (
	// KindAll requests both images and videos
	KindAll MediaKind = "all"
	// KindImage requests still images only
	KindImage MediaKind = "image"
	// KindVideo requests videos only
	KindVideo MediaKind = "video"
)

// SortMode is the server-side ordering of results
type SortMode string

const (
	// SortMostReactions orders by reaction count
	SortMostReactions SortMode = "Most Reactions"
	// SortMostComments orders by comment count
	SortMostComments SortMode = "Most Comments"
	// SortNewest orders by upload time, newest first
	SortNewest SortMode = "Newest"
)

// Period limits results to a time window
type Period string

const (
	// PeriodAllTime applies no time window; the period parameter is omitted
	PeriodAllTime Period = "AllTime"
	// PeriodYear covers the last year
	PeriodYear Period = "Year"
	// PeriodMonth covers the last month
	PeriodMonth Period = "Month"
	// PeriodWeek covers the last week
	PeriodWeek Period = "Week"
	// PeriodDay covers the last day
	PeriodDay Period = "Day"
)

// ParseMediaKind parses a media kind, accepting "" as KindAll
func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindAll:
		return KindAll, nil
	case KindImage:
		return KindImage, nil
	case KindVideo:
		return KindVideo, nil
	}
	return "", fmt.Errorf("invalid media kind: %s (must be all, image or video)", s)
}

// ParseSortMode parses a sort mode. Matching ignores case, spaces and dashes
// so "most-reactions" and "Most Reactions" are equivalent.
func ParseSortMode(s string) (SortMode, error) {
	for _, mode := range []SortMode{SortMostReactions, SortMostComments, SortNewest} {
		if squash(string(mode)) == squash(s) {
			return mode, nil
		}
	}
	return "", fmt.Errorf("invalid sort mode: %s", s)
}

// ParsePeriod parses a period, accepting "all-time" style spellings
func ParsePeriod(s string) (Period, error) {
	for _, p := range []Period{PeriodAllTime, PeriodYear, PeriodMonth, PeriodWeek, PeriodDay} {
		if squash(string(p)) == squash(s) {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid period: %s", s)
}

func squash(s string) string {
	r := strings.NewReplacer(" ", "", "-", "", "_", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

// MediaItem is a single normalized image or video
type MediaItem struct {
	ID     string         `json:"id"`
	URL    string         `json:"url"`
	Kind   MediaKind      `json:"kind"`
	NSFW   bool           `json:"nsfw"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Hash   string         `json:"hash,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// IsVideo reports whether the item should be played as a video
func (m MediaItem) IsVideo() bool {
	return m.Kind == KindVideo
}

// AspectRatio returns width/height, or 0 when dimensions are unknown
func (m MediaItem) AspectRatio() float64 {
	if m.Width <= 0 || m.Height <= 0 {
		return 0
	}
	return float64(m.Width) / float64(m.Height)
}

// Request describes one page to fetch
type Request struct {
	Limit  int
	NSFW   bool
	Kind   MediaKind
	Search string
	Cursor string
	// Page selects page mode when > 0
	Page   int
	Sort   SortMode
	Period Period
}

// Result is the normalized outcome of one fetch
type Result struct {
	Items       []MediaItem `json:"items"`
	HasMore     bool        `json:"hasMore"`
	NextCursor  string      `json:"nextCursor,omitempty"`
	CurrentPage int         `json:"currentPage,omitempty"`
	TotalPages  int         `json:"totalPages,omitempty"`
}

// imagesResponse mirrors the /images payload
type imagesResponse struct {
	Items    []imageRecord `json:"items"`
	Metadata *metadata     `json:"metadata"`
}

type imageRecord struct {
	ID     flexString     `json:"id"`
	URL    string         `json:"url"`
	Type   string         `json:"type"`
	NSFW   flexBool       `json:"nsfw"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Hash   string         `json:"hash"`
	Meta   map[string]any `json:"meta"`
}

type metadata struct {
	NextCursor  flexString `json:"nextCursor"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
	TotalItems  int        `json:"totalItems"`
	PageSize    int        `json:"pageSize"`
}

// toMediaItem converts the wire record to our MediaItem
func (r imageRecord) toMediaItem() MediaItem {
	kind := KindImage
	if r.Type == string(KindVideo) {
		kind = KindVideo
	}
	return MediaItem{
		ID:     string(r.ID),
		URL:    r.URL,
		Kind:   kind,
		NSFW:   bool(r.NSFW),
		Width:  r.Width,
		Height: r.Height,
		Hash:   r.Hash,
		Meta:   r.Meta,
	}
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// flexBool accepts a JSON bool or a level string. Older payloads send nsfw
// as "None", "Soft", "Mature" or "X".
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*f = false
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if b, err := strconv.ParseBool(s); err == nil {
			*f = flexBool(b)
			return nil
		}
		*f = flexBool(s != "" && !strings.EqualFold(s, "none"))
	default:
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*f = flexBool(b)
	}
	return nil
}
