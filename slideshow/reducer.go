package slideshow

import (
	"fmt"

	"github.com/s0up4200/civshow/civitai"
)

// Reducer holds the tunables that shape transitions
type Reducer struct {
	PageSize          int
	PrefetchThreshold int
}

// NewReducer returns a reducer with default tunables
func NewReducer() Reducer {
	return Reducer{
		PageSize:          DefaultPageSize,
		PrefetchThreshold: DefaultPrefetchThreshold,
	}
}

// Reduce applies an action and returns the next state and the fetch to
// run, if any. It never mutates s.
func (r Reducer) Reduce(s State, a Action) (State, *FetchCommand) {
	s = s.Clone()

	switch a := a.(type) {
	case Init:
		if s.Phase != PhaseIdle {
			return s, nil
		}
		return r.requery(s, s.Active.Request(r.PageSize), 1)

	case ApplyFilters:
		s.Active = s.Draft
		return r.requery(s, s.Active.Request(r.PageSize), 1)

	case ManualReset:
		return r.requery(s, s.Active.Request(r.PageSize), 1)

	case PrefetchMore:
		return r.prefetch(s)

	case ManualNext:
		if !canContinue(s) {
			return s, nil
		}
		req := s.Active.Request(r.PageSize)
		req.Cursor = s.Page.Cursor
		return r.requery(s, req, s.PageNumber+1)

	case JumpToPage:
		if a.Page < 1 || (a.Page == s.PageNumber && s.Phase == PhaseReady) {
			return s, nil
		}
		req := s.Active.Request(r.PageSize)
		req.Page = a.Page
		next, cmd := r.requery(s, req, a.Page)
		return withToast(next, fmt.Sprintf("Jumped to page %d", a.Page)), cmd

	case Seek:
		if len(s.Page.Items) == 0 {
			return s, nil
		}
		s.Position = clamp(a.Index, 0, len(s.Page.Items)-1)
		return r.maybePrefetch(s)

	case Advance:
		n := len(s.Page.Items)
		if n == 0 {
			return s, nil
		}
		s.Position = ((s.Position+a.Step)%n + n) % n
		return r.maybePrefetch(s)

	case EditDraft:
		draft, err := a.Filters.Normalize()
		if err != nil {
			return withToast(s, err.Error()), nil
		}
		s.Draft = draft
		return s, nil

	case SetDelay:
		s.DelaySeconds = clamp(a.Seconds, MinDelaySeconds, MaxDelaySeconds)
		return s, nil

	case TogglePanel:
		s.PanelVisible = !s.PanelVisible
		if s.PanelVisible {
			return withToast(s, "Panel shown"), nil
		}
		return withToast(s, "Panel hidden"), nil

	case DismissToast:
		if a.Seq == s.ToastSeq {
			s.Toast = ""
		}
		return s, nil

	case FetchCompleted:
		return r.complete(s, a)
	}

	return s, nil
}

// requery starts a fetch whose page replaces the sequence. It supersedes
// any fetch already in flight.
func (r Reducer) requery(s State, req civitai.Request, pageNumber int) (State, *FetchCommand) {
	s.Generation++
	s.Phase = PhaseLoading
	s.Page = PageState{}
	s.Position = 0
	s.TotalPages = 0

	return s, &FetchCommand{
		Generation: s.Generation,
		Mode:       FetchReplace,
		Request:    req,
		PageNumber: pageNumber,
	}
}

// prefetch starts an append fetch when the guards allow it
func (r Reducer) prefetch(s State) (State, *FetchCommand) {
	if !canContinue(s) {
		return s, nil
	}

	req := s.Active.Request(r.PageSize)
	req.Cursor = s.Page.Cursor

	s.Generation++
	s.Phase = PhaseLoadingMore

	return s, &FetchCommand{
		Generation: s.Generation,
		Mode:       FetchAppend,
		Request:    req,
		PageNumber: s.PageNumber + 1,
	}
}

// maybePrefetch appends when the viewer is within the threshold of the end
func (r Reducer) maybePrefetch(s State) (State, *FetchCommand) {
	if s.Position > 0 && len(s.Page.Items)-s.Position < r.PrefetchThreshold {
		return r.prefetch(s)
	}
	return s, nil
}

// complete merges a finished fetch into the state
func (r Reducer) complete(s State, a FetchCompleted) (State, *FetchCommand) {
	if a.Command.Generation != s.Generation {
		return s, nil
	}

	s.Phase = PhaseReady

	if a.Err != nil {
		if a.Command.Mode == FetchReplace {
			s.Page.Items = nil
			s.Position = 0
		}
		s.Page.Cursor = ""
		s.Page.HasMore = false
		s.Notice = FetchFailedNotice
		return s, nil
	}

	switch a.Command.Mode {
	case FetchAppend:
		s.Page.Items = append(s.Page.Items, a.Result.Items...)
	default:
		s.Page.Items = append([]civitai.MediaItem(nil), a.Result.Items...)
		s.Position = 0
	}
	s.Page.Cursor = a.Result.NextCursor
	s.Page.HasMore = a.Result.HasMore && a.Result.NextCursor != ""
	s.PageNumber = a.Command.PageNumber
	if a.Result.TotalPages > 0 {
		s.TotalPages = a.Result.TotalPages
	}
	s.Notice = ""

	if a.Command.Mode == FetchAppend {
		return r.maybePrefetch(s)
	}
	return s, nil
}

func canContinue(s State) bool {
	return s.Phase == PhaseReady && s.Page.HasMore && s.Page.Cursor != ""
}

func withToast(s State, msg string) State {
	s.ToastSeq++
	s.Toast = msg
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
