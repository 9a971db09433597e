package slideshow

import (
	"fmt"
	"strings"

	"github.com/s0up4200/civshow/civitai"
)

const (
	// DefaultPageSize is the number of items requested per fetch
	DefaultPageSize = 100
	// DefaultPrefetchThreshold is how close to the end of the loaded set the
	// viewer may get before the next page is appended
	DefaultPrefetchThreshold = 30
	// DefaultDelaySeconds is the slide duration
	DefaultDelaySeconds = 5
	// MinDelaySeconds is the shortest slide duration
	MinDelaySeconds = 1
	// MaxDelaySeconds is the longest slide duration
	MaxDelaySeconds = 60

	// FetchFailedNotice is shown when a fetch fails for any reason
	FetchFailedNotice = "Failed to load media from Civitai"
)

// Phase is the loading state of the slideshow
type Phase int

const (
	// PhaseIdle is the state before the first load
	PhaseIdle Phase = iota
	// PhaseLoading means a fetch that replaces the sequence is running
	PhaseLoading
	// PhaseLoadingMore means a fetch that appends to the sequence is running
	PhaseLoadingMore
	// PhaseReady means no fetch is running
	PhaseReady
)

// String returns the string representation of a Phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoadingMore:
		return "loading_more"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// MarshalText lets Phase render as its name in JSON
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a Phase name
func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseIdle, PhaseLoading, PhaseLoadingMore, PhaseReady} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// InFlight reports whether a fetch is running
func (p Phase) InFlight() bool {
	return p == PhaseLoading || p == PhaseLoadingMore
}

// FilterSnapshot is the set of query filters. The state holds a draft copy
// that is edited freely and an active copy that fetches use.
type FilterSnapshot struct {
	NSFW   bool              `json:"nsfw" mapstructure:"nsfw"`
	Kind   civitai.MediaKind `json:"kind" mapstructure:"media_type"`
	Search string            `json:"search" mapstructure:"search"`
	Sort   civitai.SortMode  `json:"sort" mapstructure:"sort"`
	Period civitai.Period    `json:"period" mapstructure:"period"`
}

// DefaultFilters returns the filters used before the user changes anything
func DefaultFilters() FilterSnapshot {
	return FilterSnapshot{
		Kind:   civitai.KindAll,
		Sort:   civitai.SortMostReactions,
		Period: civitai.PeriodWeek,
	}
}

// Normalize validates the enum fields and fills blanks with defaults
func (f FilterSnapshot) Normalize() (FilterSnapshot, error) {
	defaults := DefaultFilters()
	out := FilterSnapshot{
		NSFW:   f.NSFW,
		Search: strings.TrimSpace(f.Search),
	}

	kind, err := civitai.ParseMediaKind(string(f.Kind))
	if err != nil {
		return FilterSnapshot{}, err
	}
	out.Kind = kind

	out.Sort = defaults.Sort
	if f.Sort != "" {
		if out.Sort, err = civitai.ParseSortMode(string(f.Sort)); err != nil {
			return FilterSnapshot{}, err
		}
	}

	out.Period = defaults.Period
	if f.Period != "" {
		if out.Period, err = civitai.ParsePeriod(string(f.Period)); err != nil {
			return FilterSnapshot{}, err
		}
	}

	return out, nil
}

// Request builds the API request for these filters
func (f FilterSnapshot) Request(limit int) civitai.Request {
	return civitai.Request{
		Limit:  limit,
		NSFW:   f.NSFW,
		Kind:   f.Kind,
		Search: f.Search,
		Sort:   f.Sort,
		Period: f.Period,
	}
}

// String returns a compact description for logs and status lines
func (f FilterSnapshot) String() string {
	s := fmt.Sprintf("%s/%s/%s nsfw=%t", f.Kind, f.Sort, f.Period, f.NSFW)
	if f.Search != "" {
		s += fmt.Sprintf(" query=%q", f.Search)
	}
	return s
}

// PageState is the loaded media sequence. HasMore is false whenever Cursor
// is empty.
type PageState struct {
	Items   []civitai.MediaItem `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"hasMore"`
}

// State is everything the slideshow shows. It is only changed by Reduce.
type State struct {
	Phase    Phase          `json:"phase"`
	Draft    FilterSnapshot `json:"draft"`
	Active   FilterSnapshot `json:"active"`
	Page     PageState      `json:"page"`
	Position int            `json:"position"`

	// PageNumber counts pages loaded since the last requery
	PageNumber int `json:"pageNumber"`
	// TotalPages is reported by page-mode responses, 0 when unknown
	TotalPages int `json:"totalPages,omitempty"`

	DelaySeconds int  `json:"delaySeconds"`
	PanelVisible bool `json:"panelVisible"`

	Toast    string `json:"toast,omitempty"`
	ToastSeq uint64 `json:"-"`
	Notice   string `json:"notice,omitempty"`

	// Generation tags the most recent fetch; older completions are dropped
	Generation uint64 `json:"generation"`
}

// NewState returns an idle state with the given filters as both draft and
// active copies
func NewState(filters FilterSnapshot) State {
	return State{
		Phase:        PhaseIdle,
		Draft:        filters,
		Active:       filters,
		DelaySeconds: DefaultDelaySeconds,
		PanelVisible: true,
	}
}

// Current returns the visible item
func (s State) Current() (civitai.MediaItem, bool) {
	if s.Position < 0 || s.Position >= len(s.Page.Items) {
		return civitai.MediaItem{}, false
	}
	return s.Page.Items[s.Position], true
}

// Clone returns a copy that shares no slice storage with s
func (s State) Clone() State {
	out := s
	if s.Page.Items != nil {
		out.Page.Items = make([]civitai.MediaItem, len(s.Page.Items))
		copy(out.Page.Items, s.Page.Items)
	}
	return out
}

// Status renders the one-line status indicator
func (s State) Status() string {
	pos := 0
	if len(s.Page.Items) > 0 {
		pos = s.Position + 1
	}
	pages := "?"
	if s.TotalPages > 0 {
		pages = fmt.Sprint(s.TotalPages)
	}
	return fmt.Sprintf("%d / %d | Page: %d of %s | Delay: %ds", pos, len(s.Page.Items), s.PageNumber, pages, s.DelaySeconds)
}
