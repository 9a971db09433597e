package slideshow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/civshow/civitai"
)

func items(ids ...string) []civitai.MediaItem {
	out := make([]civitai.MediaItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, civitai.MediaItem{ID: id, URL: "https://img/" + id, Kind: civitai.KindImage})
	}
	return out
}

func numbered(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	return ids
}

// complete feeds a successful result for cmd back into the reducer
func complete(t *testing.T, r Reducer, s State, cmd *FetchCommand, res civitai.Result) (State, *FetchCommand) {
	t.Helper()
	require.NotNil(t, cmd, "expected a fetch command")
	return r.Reduce(s, FetchCompleted{Command: *cmd, Result: res})
}

// ready returns a state that has loaded one page
func ready(t *testing.T, r Reducer, res civitai.Result) State {
	t.Helper()
	s, cmd := r.Reduce(NewState(DefaultFilters()), Init{})
	s, next := complete(t, r, s, cmd, res)
	require.Nil(t, next)
	require.Equal(t, PhaseReady, s.Phase)
	return s
}

func TestInit(t *testing.T) {
	r := NewReducer()
	s, cmd := r.Reduce(NewState(DefaultFilters()), Init{})

	require.NotNil(t, cmd)
	assert.Equal(t, PhaseLoading, s.Phase)
	assert.Equal(t, FetchReplace, cmd.Mode)
	assert.Empty(t, cmd.Request.Cursor)
	assert.Equal(t, DefaultPageSize, cmd.Request.Limit)
	assert.Equal(t, civitai.SortMostReactions, cmd.Request.Sort)
	assert.Equal(t, civitai.PeriodWeek, cmd.Request.Period)

	s, next := complete(t, r, s, cmd, civitai.Result{Items: items("a", "b"), HasMore: true, NextCursor: "t1"})
	assert.Nil(t, next)
	assert.Equal(t, PhaseReady, s.Phase)
	assert.Len(t, s.Page.Items, 2)
	assert.Equal(t, "t1", s.Page.Cursor)
	assert.True(t, s.Page.HasMore)
	assert.Equal(t, 1, s.PageNumber)

	t.Run("init is ignored once loaded", func(t *testing.T) {
		again, cmd := r.Reduce(s, Init{})
		assert.Nil(t, cmd)
		assert.Equal(t, s, again)
	})
}

func TestApplyFiltersResetsToFirstPage(t *testing.T) {
	r := Reducer{PageSize: 2, PrefetchThreshold: 30}
	s := ready(t, r, civitai.Result{Items: items("a", "b"), HasMore: true, NextCursor: "t1"})

	draft := DefaultFilters()
	draft.Kind = civitai.KindVideo
	draft.Search = "dragon"
	s, cmd := r.Reduce(s, EditDraft{Filters: draft})
	assert.Nil(t, cmd)
	assert.Equal(t, DefaultFilters(), s.Active, "draft edits do not touch the active filters")

	s, cmd = r.Reduce(s, ApplyFilters{})
	require.NotNil(t, cmd)
	assert.Equal(t, draft, s.Active)
	assert.Empty(t, s.Page.Items)
	assert.Empty(t, s.Page.Cursor)
	assert.False(t, s.Page.HasMore)
	assert.Empty(t, cmd.Request.Cursor)
	assert.Equal(t, civitai.KindVideo, cmd.Request.Kind)
	assert.Equal(t, "dragon", cmd.Request.Search)

	s, _ = complete(t, r, s, cmd, civitai.Result{Items: items("x", "y"), HasMore: true, NextCursor: "t9"})
	assert.Equal(t, items("x", "y"), s.Page.Items)
	assert.LessOrEqual(t, len(s.Page.Items), r.PageSize)
	assert.Equal(t, 0, s.Position)
}

func TestPrefetchAppendsUntilExhausted(t *testing.T) {
	r := NewReducer()
	s := ready(t, r, civitai.Result{Items: items("A", "B"), HasMore: true, NextCursor: "t1"})

	s, cmd := r.Reduce(s, PrefetchMore{})
	require.NotNil(t, cmd)
	assert.Equal(t, PhaseLoadingMore, s.Phase)
	assert.Equal(t, FetchAppend, cmd.Mode)
	assert.Equal(t, "t1", cmd.Request.Cursor)

	s, _ = complete(t, r, s, cmd, civitai.Result{Items: items("C")})

	s, cmd = r.Reduce(s, PrefetchMore{})
	assert.Nil(t, cmd, "no prefetch once the cursor is exhausted")
	assert.Equal(t, items("A", "B", "C"), s.Page.Items)
	assert.False(t, s.Page.HasMore)
	assert.Empty(t, s.Page.Cursor)
	assert.Equal(t, 2, s.PageNumber)
}

func TestPrefetchIsNoopWhileLoading(t *testing.T) {
	r := NewReducer()
	s := ready(t, r, civitai.Result{Items: items("A", "B"), HasMore: true, NextCursor: "t1"})

	s, cmd := r.Reduce(s, PrefetchMore{})
	require.NotNil(t, cmd)
	generation := s.Generation

	for _, a := range []Action{PrefetchMore{}, ManualNext{}, Seek{Index: 1}} {
		next, again := r.Reduce(s, a)
		assert.Nil(t, again, "%s must not start a second fetch", ActionName(a))
		assert.Equal(t, generation, next.Generation)
	}
}

func TestPrefetchRequiresCursor(t *testing.T) {
	r := NewReducer()
	s := ready(t, r, civitai.Result{Items: items("A")})

	_, cmd := r.Reduce(s, PrefetchMore{})
	assert.Nil(t, cmd)

	// HasMore without a cursor is treated as exhausted
	s = ready(t, r, civitai.Result{Items: items("A"), HasMore: true})
	assert.False(t, s.Page.HasMore)
	_, cmd = r.Reduce(s, PrefetchMore{})
	assert.Nil(t, cmd)
}

func TestNearEndTrigger(t *testing.T) {
	r := Reducer{PageSize: 100, PrefetchThreshold: 30}
	s := ready(t, r, civitai.Result{Items: items(numbered(100)...), HasMore: true, NextCursor: "t1"})

	s, cmd := r.Reduce(s, Seek{Index: 70})
	assert.Nil(t, cmd, "30 slides left is not below the threshold")
	assert.Equal(t, 70, s.Position)

	s, cmd = r.Reduce(s, Advance{Step: 1})
	require.NotNil(t, cmd)
	assert.Equal(t, FetchAppend, cmd.Mode)
	assert.Equal(t, 71, s.Position)

	s, next := complete(t, r, s, cmd, civitai.Result{Items: items(numbered(100)...), HasMore: true, NextCursor: "t2"})
	assert.Nil(t, next, "no chained fetch once the set is long enough")
	assert.Len(t, s.Page.Items, 200)
	assert.Equal(t, 71, s.Position, "appending keeps the position")
}

func TestNearEndChainsShortPages(t *testing.T) {
	r := Reducer{PageSize: 2, PrefetchThreshold: 30}
	s := ready(t, r, civitai.Result{Items: items("A", "B"), HasMore: true, NextCursor: "t1"})

	s, cmd := r.Reduce(s, Advance{Step: 1})
	require.NotNil(t, cmd)

	s, next := complete(t, r, s, cmd, civitai.Result{Items: items("C", "D"), HasMore: true, NextCursor: "t2"})
	require.NotNil(t, next, "still near the end after a short page")
	assert.Equal(t, "t2", next.Request.Cursor)

	s, next = complete(t, r, s, next, civitai.Result{Items: items("E")})
	assert.Nil(t, next)
	assert.Equal(t, items("A", "B", "C", "D", "E"), s.Page.Items)
}

func TestNearEndIgnoresFirstSlide(t *testing.T) {
	r := NewReducer()
	s := ready(t, r, civitai.Result{Items: items("A", "B"), HasMore: true, NextCursor: "t1"})

	_, cmd := r.Reduce(s, Seek{Index: 0})
	assert.Nil(t, cmd)
}

func TestManualNextReplaces(t *testing.T) {
	r := Reducer{PageSize: 100, PrefetchThreshold: 0}
	s := ready(t, r, civitai.Result{Items: items("A", "B"), HasMore: true, NextCursor: "t1"})
	s, cmd := r.Reduce(s, Seek{Index: 1})
	require.Nil(t, cmd)

	s, cmd = r.Reduce(s, ManualNext{})
	require.NotNil(t, cmd)
	assert.Equal(t, FetchReplace, cmd.Mode)
	assert.Equal(t, "t1", cmd.Request.Cursor)
	assert.Equal(t, 0, s.Position)

	s, _ = complete(t, r, s, cmd, civitai.Result{Items: items("C", "D"), HasMore: true, NextCursor: "t2"})
	assert.Equal(t, items("C", "D"), s.Page.Items)
	assert.Equal(t, "t2", s.Page.Cursor)
	assert.Equal(t, 2, s.PageNumber)
}

func TestManualNextWithoutMore(t *testing.T) {
	r := NewReducer()
	s := ready(t, r, civitai.Result{Items: items("A")})

	next, cmd := r.Reduce(s, ManualNext{})
	assert.Nil(t, cmd)
	assert.Equal(t, s, next)
}

func TestManualResetClearsCursor(t *testing.T) {
	r := NewReducer()
	s := ready(t, r, civitai.Result{Items: items("A", "B"), HasMore: true, NextCursor: "t1"})

	s, cmd := r.Reduce(s, ManualReset{})
	require.NotNil(t, cmd)
	assert.Empty(t, s.Page.Cursor)
	assert.False(t, s.Page.HasMore)
	assert.Empty(t, s.Page.Items)
	assert.Empty(t, cmd.Request.Cursor)
	assert.Equal(t, FetchReplace, cmd.Mode)
}

func TestJumpToPage(t *testing.T) {
	r := NewReducer()
	s := ready(t, r, civitai.Result{Items: items("A"), HasMore: true, NextCursor: "t1"})

	_, cmd := r.Reduce(s, JumpToPage{Page: 0})
	assert.Nil(t, cmd)

	_, cmd = r.Reduce(s, JumpToPage{Page: 1})
	assert.Nil(t, cmd, "already on page 1")

	s, cmd = r.Reduce(s, JumpToPage{Page: 7})
	require.NotNil(t, cmd)
	assert.Equal(t, 7, cmd.Request.Page)
	assert.Empty(t, cmd.Request.Cursor)
	assert.Equal(t, "Jumped to page 7", s.Toast)

	s, _ = complete(t, r, s, cmd, civitai.Result{Items: items("P7"), HasMore: true, NextCursor: "c8", TotalPages: 12})
	assert.Equal(t, 7, s.PageNumber)
	assert.Equal(t, 12, s.TotalPages)
	assert.Equal(t, items("P7"), s.Page.Items)
}

func TestFetchFailure(t *testing.T) {
	r := NewReducer()
	boom := fmt.Errorf("%w: connection refused", civitai.ErrFetchFailed)

	t.Run("initial load", func(t *testing.T) {
		s, cmd := r.Reduce(NewState(DefaultFilters()), Init{})
		s, next := r.Reduce(s, FetchCompleted{Command: *cmd, Err: boom})
		assert.Nil(t, next)
		assert.Equal(t, PhaseReady, s.Phase)
		assert.Empty(t, s.Page.Items)
		assert.Empty(t, s.Page.Cursor)
		assert.False(t, s.Page.HasMore)
		assert.Equal(t, FetchFailedNotice, s.Notice)
	})

	t.Run("prefetch keeps loaded items", func(t *testing.T) {
		s := ready(t, r, civitai.Result{Items: items("A", "B"), HasMore: true, NextCursor: "t1"})
		s, cmd := r.Reduce(s, PrefetchMore{})
		s, _ = r.Reduce(s, FetchCompleted{Command: *cmd, Err: errors.New("decode")})
		assert.Equal(t, items("A", "B"), s.Page.Items)
		assert.False(t, s.Page.HasMore)
		assert.Empty(t, s.Page.Cursor)
	})

	t.Run("success clears the notice", func(t *testing.T) {
		s, cmd := r.Reduce(NewState(DefaultFilters()), Init{})
		s, _ = r.Reduce(s, FetchCompleted{Command: *cmd, Err: boom})
		s, cmd = r.Reduce(s, ManualReset{})
		s, _ = complete(t, r, s, cmd, civitai.Result{Items: items("A")})
		assert.Empty(t, s.Notice)
	})
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	r := NewReducer()
	s, first := r.Reduce(NewState(DefaultFilters()), Init{})

	s, _ = r.Reduce(s, EditDraft{Filters: FilterSnapshot{Kind: civitai.KindVideo, Sort: civitai.SortNewest, Period: civitai.PeriodDay}})
	s, second := r.Reduce(s, ApplyFilters{})
	require.NotNil(t, second)
	assert.Greater(t, second.Generation, first.Generation)

	// The superseded request resolves late
	stale, next := complete(t, r, s, first, civitai.Result{Items: items("old"), HasMore: true, NextCursor: "old"})
	assert.Nil(t, next)
	assert.Equal(t, s, stale)
	assert.Equal(t, PhaseLoading, stale.Phase)

	s, _ = complete(t, r, s, second, civitai.Result{Items: items("new")})
	assert.Equal(t, items("new"), s.Page.Items)
}

func TestAdvanceWraps(t *testing.T) {
	r := NewReducer()
	s := ready(t, r, civitai.Result{Items: items("A", "B", "C")})

	s, _ = r.Reduce(s, Advance{Step: -1})
	assert.Equal(t, 2, s.Position)
	s, _ = r.Reduce(s, Advance{Step: 1})
	assert.Equal(t, 0, s.Position)
	s, _ = r.Reduce(s, Seek{Index: 99})
	assert.Equal(t, 2, s.Position)

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "C", current.ID)

	empty := NewState(DefaultFilters())
	moved, cmd := r.Reduce(empty, Advance{Step: 1})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, moved.Position)
}

func TestSetDelayClamps(t *testing.T) {
	r := NewReducer()
	s := NewState(DefaultFilters())

	s, _ = r.Reduce(s, SetDelay{Seconds: 0})
	assert.Equal(t, MinDelaySeconds, s.DelaySeconds)
	s, _ = r.Reduce(s, SetDelay{Seconds: 600})
	assert.Equal(t, MaxDelaySeconds, s.DelaySeconds)
	s, _ = r.Reduce(s, SetDelay{Seconds: 12})
	assert.Equal(t, 12, s.DelaySeconds)
}

func TestTogglePanelToast(t *testing.T) {
	r := NewReducer()
	s := NewState(DefaultFilters())
	require.True(t, s.PanelVisible)

	s, _ = r.Reduce(s, TogglePanel{})
	assert.False(t, s.PanelVisible)
	assert.Equal(t, "Panel hidden", s.Toast)
	first := s.ToastSeq

	s, _ = r.Reduce(s, TogglePanel{})
	assert.Equal(t, "Panel shown", s.Toast)

	s, _ = r.Reduce(s, DismissToast{Seq: first})
	assert.Equal(t, "Panel shown", s.Toast, "an older dismiss does not clear a newer toast")

	s, _ = r.Reduce(s, DismissToast{Seq: s.ToastSeq})
	assert.Empty(t, s.Toast)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	r := NewReducer()
	s := ready(t, r, civitai.Result{Items: items("A", "B"), HasMore: true, NextCursor: "t1"})
	before := s.Clone()

	_, cmd := r.Reduce(s, PrefetchMore{})
	require.NotNil(t, cmd)
	_, _ = r.Reduce(s, FetchCompleted{Command: FetchCommand{Generation: s.Generation, Mode: FetchAppend}, Result: civitai.Result{Items: items("C")}})

	assert.Equal(t, before, s)
}

func TestFilterSnapshotNormalize(t *testing.T) {
	f, err := FilterSnapshot{Search: "  fox  "}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, FilterSnapshot{Kind: civitai.KindAll, Search: "fox", Sort: civitai.SortMostReactions, Period: civitai.PeriodWeek}, f)

	f, err = FilterSnapshot{Kind: "VIDEO", Sort: "newest", Period: "all-time", NSFW: true}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, civitai.KindVideo, f.Kind)
	assert.Equal(t, civitai.SortNewest, f.Sort)
	assert.Equal(t, civitai.PeriodAllTime, f.Period)
	assert.True(t, f.NSFW)

	_, err = FilterSnapshot{Sort: "random"}.Normalize()
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	s := NewState(DefaultFilters())
	assert.Equal(t, "0 / 0 | Page: 0 of ? | Delay: 5s", s.Status())

	s.Page.Items = items("A", "B")
	s.Position = 1
	s.PageNumber = 3
	s.TotalPages = 9
	assert.Equal(t, "2 / 2 | Page: 3 of 9 | Delay: 5s", s.Status())
}

func TestNewQueryForgetsTotalPages(t *testing.T) {
	r := NewReducer()
	s := ready(t, r, civitai.Result{Items: items("A"), HasMore: true, NextCursor: "t1"})

	s, cmd := r.Reduce(s, JumpToPage{Page: 3})
	s, _ = complete(t, r, s, cmd, civitai.Result{Items: items("P3"), TotalPages: 57})
	require.Equal(t, 57, s.TotalPages)

	s, cmd = r.Reduce(s, ApplyFilters{})
	assert.Zero(t, s.TotalPages)
	s, _ = complete(t, r, s, cmd, civitai.Result{Items: items("X"), HasMore: true, NextCursor: "t2"})

	assert.Equal(t, "1 / 1 | Page: 1 of ? | Delay: 5s", s.Status())
}

func TestEditDraftNormalizes(t *testing.T) {
	r := NewReducer()
	s := NewState(DefaultFilters())

	s, cmd := r.Reduce(s, EditDraft{Filters: FilterSnapshot{Kind: "VIDEO", Search: " fox ", Sort: "newest"}})
	assert.Nil(t, cmd)
	assert.Equal(t, FilterSnapshot{Kind: civitai.KindVideo, Search: "fox", Sort: civitai.SortNewest, Period: civitai.PeriodWeek}, s.Draft)

	valid := s.Draft
	s, _ = r.Reduce(s, EditDraft{Filters: FilterSnapshot{Kind: "gif"}})
	assert.Equal(t, valid, s.Draft, "an invalid draft is rejected")
	assert.Contains(t, s.Toast, "invalid media kind")

	s, cmd = r.Reduce(s, ApplyFilters{})
	require.NotNil(t, cmd)
	assert.Equal(t, civitai.KindVideo, cmd.Request.Kind)
}
