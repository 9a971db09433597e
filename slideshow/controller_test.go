package slideshow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/civshow/civitai"
)

// scriptedFetcher returns canned results in order and records requests
type scriptedFetcher struct {
	mu       sync.Mutex
	results  []civitai.Result
	errs     []error
	requests []civitai.Request
}

func (f *scriptedFetcher) FetchMedia(ctx context.Context, req civitai.Request) (civitai.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.requests)
	f.requests = append(f.requests, req)

	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return civitai.Result{}, err
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return civitai.Result{}, nil
}

func (f *scriptedFetcher) Requests() []civitai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]civitai.Request(nil), f.requests...)
}

func TestControllerPrefetchSequence(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: []civitai.Result{
			{Items: items("A", "B"), HasMore: true, NextCursor: "t1"},
			{Items: items("C")},
		},
	}
	// Start from a ready state with an empty first page so the two
	// near-end triggers drive the scripted responses.
	c := NewController(fetcher, zerolog.Nop(), WithPrefetchThreshold(0))
	defer c.Close()

	c.mu.Lock()
	c.state.Phase = PhaseReady
	c.state.Page = PageState{Cursor: "t0", HasMore: true}
	c.mu.Unlock()

	c.Dispatch(PrefetchMore{})
	c.Wait()
	c.Dispatch(PrefetchMore{})
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, items("A", "B", "C"), s.Page.Items)
	assert.False(t, s.Page.HasMore)
	assert.Empty(t, s.Page.Cursor)
	assert.Equal(t, PhaseReady, s.Phase)

	reqs := fetcher.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "t0", reqs[0].Cursor)
	assert.Equal(t, "t1", reqs[1].Cursor)

	c.Dispatch(PrefetchMore{})
	c.Wait()
	assert.Len(t, fetcher.Requests(), 2, "no fetch once exhausted")
}

func TestControllerInitAndApply(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: []civitai.Result{
			{Items: items("A", "B"), HasMore: true, NextCursor: "t1"},
			{Items: items("V1"), HasMore: true, NextCursor: "v2"},
		},
	}
	filters := DefaultFilters()
	filters.NSFW = true

	c := NewController(fetcher, zerolog.Nop(), WithPageSize(2), WithFilters(filters), WithDelay(9))
	defer c.Close()

	s := c.Dispatch(Init{})
	assert.Equal(t, PhaseLoading, s.Phase)
	assert.Equal(t, 9, s.DelaySeconds)
	c.Wait()

	s = c.Snapshot()
	assert.Equal(t, items("A", "B"), s.Page.Items)

	draft := s.Draft
	draft.Kind = civitai.KindVideo
	c.Dispatch(EditDraft{Filters: draft})
	c.Dispatch(ApplyFilters{})
	c.Wait()

	s = c.Snapshot()
	assert.Equal(t, items("V1"), s.Page.Items)
	assert.Equal(t, "v2", s.Page.Cursor)
	assert.Equal(t, civitai.KindVideo, s.Active.Kind)

	reqs := fetcher.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, 2, reqs[0].Limit)
	assert.True(t, reqs[0].NSFW)
	assert.Equal(t, civitai.KindAll, reqs[0].Kind)
	assert.Equal(t, civitai.KindVideo, reqs[1].Kind)
	assert.Empty(t, reqs[1].Cursor)
}

func TestControllerFailingFetcher(t *testing.T) {
	fetcher := FetcherFunc(func(ctx context.Context, req civitai.Request) (civitai.Result, error) {
		return civitai.Result{}, civitai.ErrFetchFailed
	})

	c := NewController(fetcher, zerolog.Nop())
	defer c.Close()

	c.Dispatch(Init{})
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, PhaseReady, s.Phase)
	assert.Empty(t, s.Page.Items)
	assert.Empty(t, s.Page.Cursor)
	assert.False(t, s.Page.HasMore)
	assert.Equal(t, FetchFailedNotice, s.Notice)
}

func TestControllerDropsStaleResponse(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	fetcher := FetcherFunc(func(ctx context.Context, req civitai.Request) (civitai.Result, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			// The first request is slow and resolves after the requery
			close(entered)
			<-release
			return civitai.Result{Items: items("stale"), HasMore: true, NextCursor: "old"}, nil
		}
		return civitai.Result{Items: items("fresh")}, nil
	})

	c := NewController(fetcher, zerolog.Nop())
	defer c.Close()

	c.Dispatch(Init{})
	<-entered
	c.Dispatch(ManualReset{})

	require.Eventually(t, func() bool {
		return c.Snapshot().Phase == PhaseReady
	}, time.Second, 5*time.Millisecond)

	close(release)
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, items("fresh"), s.Page.Items)
	assert.Empty(t, s.Page.Cursor)
}

func TestControllerToastAutoDismiss(t *testing.T) {
	c := NewController(&scriptedFetcher{}, zerolog.Nop(), WithToastDuration(20*time.Millisecond))
	defer c.Close()

	s := c.Dispatch(TogglePanel{})
	assert.Equal(t, "Panel hidden", s.Toast)

	require.Eventually(t, func() bool {
		return c.Snapshot().Toast == ""
	}, time.Second, 5*time.Millisecond)
}

func TestControllerSubscribe(t *testing.T) {
	c := NewController(&scriptedFetcher{results: []civitai.Result{{Items: items("A")}}}, zerolog.Nop())
	defer c.Close()

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	c.Dispatch(Init{})

	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatal("expected a state change signal")
	}

	c.Wait()
	unsubscribe()
	unsubscribe()
}

func TestControllerCloseCancelsFetch(t *testing.T) {
	fetcher := FetcherFunc(func(ctx context.Context, req civitai.Request) (civitai.Result, error) {
		<-ctx.Done()
		return civitai.Result{}, errors.Join(civitai.ErrFetchFailed, ctx.Err())
	})

	c := NewController(fetcher, zerolog.Nop())
	c.Dispatch(Init{})

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.Equal(t, PhaseReady, c.Snapshot().Phase)
}

func TestControllerCloseEndsSubscriptions(t *testing.T) {
	fetcher := &scriptedFetcher{results: []civitai.Result{{Items: items("A")}}}
	c := NewController(fetcher, zerolog.Nop())

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()

	c.Close()

	select {
	case _, ok := <-updates:
		assert.False(t, ok, "channel is closed")
	case <-time.After(time.Second):
		t.Fatal("subscription stayed open after Close")
	}

	late, _ := c.Subscribe()
	_, ok := <-late
	assert.False(t, ok, "subscribing after Close returns a closed channel")

	s := c.Dispatch(Init{})
	assert.Equal(t, PhaseLoading, s.Phase)
	c.Wait()
	assert.Empty(t, fetcher.Requests(), "no fetch starts after Close")

	c.Close()
}
