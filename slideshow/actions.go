package slideshow

import (
	"github.com/s0up4200/civshow/civitai"
)

// Action is a named state transition
type Action interface {
	actionName() string
}

// Init performs the first load. It only acts on an idle state.
type Init struct{}

// ApplyFilters commits the draft filters and reloads from the first page.
type ApplyFilters struct{}

// PrefetchMore appends the next page when one is available and nothing is
// loading.
type PrefetchMore struct{}

// ManualNext loads the next page and replaces the sequence with it.
type ManualNext struct{}

// ManualReset drops the cursor and reloads the first page.
type ManualReset struct{}

// JumpToPage loads a page by number and replaces the sequence with it.
type JumpToPage struct {
	Page int
}

// Seek moves to an absolute index, clamped to the loaded set.
type Seek struct {
	Index int
}

// Advance moves by Step slides, wrapping around the loaded set.
type Advance struct {
	Step int
}

// EditDraft replaces the draft filters without fetching. Invalid filters
// leave the draft unchanged and raise a toast.
type EditDraft struct {
	Filters FilterSnapshot
}

// SetDelay changes the slide duration, clamped to 1..60 seconds.
type SetDelay struct {
	Seconds int
}

// TogglePanel shows or hides the control panel.
type TogglePanel struct{}

// DismissToast clears the toast if it is still the one identified by Seq.
type DismissToast struct {
	Seq uint64
}

// FetchCompleted reports the outcome of a FetchCommand.
type FetchCompleted struct {
	Command FetchCommand
	Result  civitai.Result
	Err     error
}

func (Init) actionName() string           { return "init" }
func (ApplyFilters) actionName() string   { return "apply_filters" }
func (PrefetchMore) actionName() string   { return "prefetch_more" }
func (ManualNext) actionName() string     { return "manual_next" }
func (ManualReset) actionName() string    { return "manual_reset" }
func (JumpToPage) actionName() string     { return "jump_to_page" }
func (Seek) actionName() string           { return "seek" }
func (Advance) actionName() string        { return "advance" }
func (EditDraft) actionName() string      { return "edit_draft" }
func (SetDelay) actionName() string       { return "set_delay" }
func (TogglePanel) actionName() string    { return "toggle_panel" }
func (DismissToast) actionName() string   { return "dismiss_toast" }
func (FetchCompleted) actionName() string { return "fetch_completed" }

// ActionName returns the name used in logs
func ActionName(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}

// FetchMode says how a completed page is merged into the sequence
type FetchMode int

const (
	// FetchReplace swaps the sequence for the new page
	FetchReplace FetchMode = iota
	// FetchAppend adds the new page to the end of the sequence
	FetchAppend
)

// String returns the string representation of a FetchMode
func (m FetchMode) String() string {
	if m == FetchAppend {
		return "append"
	}
	return "replace"
}

// FetchCommand is the side effect requested by Reduce
type FetchCommand struct {
	Generation uint64
	Mode       FetchMode
	Request    civitai.Request
	// PageNumber is recorded in the state when the fetch succeeds
	PageNumber int
}
