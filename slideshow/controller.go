package slideshow

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/civshow/civitai"
)

// DefaultToastDuration is how long a toast stays up
const DefaultToastDuration = 2 * time.Second

// Fetcher loads one page of media
type Fetcher interface {
	FetchMedia(ctx context.Context, req civitai.Request) (civitai.Result, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, req civitai.Request) (civitai.Result, error)

// FetchMedia calls f
func (f FetcherFunc) FetchMedia(ctx context.Context, req civitai.Request) (civitai.Result, error) {
	return f(ctx, req)
}

// Option configures a Controller
type Option func(*Controller)

// WithPageSize sets the number of items requested per fetch
func WithPageSize(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.reducer.PageSize = size
		}
	}
}

// WithPrefetchThreshold sets how many slides from the end the next page is
// requested
func WithPrefetchThreshold(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.reducer.PrefetchThreshold = n
		}
	}
}

// WithFilters sets the initial draft and active filters
func WithFilters(filters FilterSnapshot) Option {
	return func(c *Controller) {
		c.state.Draft = filters
		c.state.Active = filters
	}
}

// WithDelay sets the initial slide duration in seconds
func WithDelay(seconds int) Option {
	return func(c *Controller) {
		c.state.DelaySeconds = clamp(seconds, MinDelaySeconds, MaxDelaySeconds)
	}
}

// WithToastDuration sets how long toasts stay up before being dismissed
func WithToastDuration(d time.Duration) Option {
	return func(c *Controller) {
		c.toastDuration = d
	}
}

// Controller owns a slideshow State. All changes go through Dispatch, which
// serializes reducer calls and runs the fetches they request.
type Controller struct {
	mu      sync.Mutex
	state   State
	reducer Reducer
	fetcher Fetcher
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool

	subscribers   map[chan struct{}]struct{}
	toastTimer    *time.Timer
	toastDuration time.Duration
}

// NewController creates a Controller in the idle phase
func NewController(fetcher Fetcher, logger zerolog.Logger, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		state:         NewState(DefaultFilters()),
		reducer:       NewReducer(),
		fetcher:       fetcher,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		subscribers:   make(map[chan struct{}]struct{}),
		toastDuration: DefaultToastDuration,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Dispatch applies an action and returns the resulting state
func (c *Controller) Dispatch(a Action) State {
	c.mu.Lock()
	prev := c.state
	next, cmd := c.reducer.Reduce(c.state, a)
	c.state = next

	if next.ToastSeq != prev.ToastSeq && !c.closed {
		c.scheduleToastDismiss(next.ToastSeq)
	}
	if cmd != nil && !c.closed {
		c.run(*cmd)
	}
	c.notify()
	out := c.state.Clone()
	c.mu.Unlock()

	if done, ok := a.(FetchCompleted); ok && done.Command.Generation != prev.Generation {
		c.logger.Debug().
			Uint64("generation", done.Command.Generation).
			Uint64("current", prev.Generation).
			Msg("Discarded stale fetch result")
	} else {
		c.logger.Debug().
			Str("action", ActionName(a)).
			Str("phase", next.Phase.String()).
			Bool("in_flight", next.Phase.InFlight()).
			Int("items", len(next.Page.Items)).
			Int("position", next.Position).
			Msg("Slideshow action applied")
	}

	return out
}

// run starts a fetch in the background. Callers hold c.mu.
func (c *Controller) run(cmd FetchCommand) {
	c.logger.Debug().
		Uint64("generation", cmd.Generation).
		Str("mode", cmd.Mode.String()).
		Str("cursor", cmd.Request.Cursor).
		Int("page", cmd.Request.Page).
		Msg("Fetching media")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		result, err := c.fetcher.FetchMedia(c.ctx, cmd.Request)
		if err != nil {
			c.logger.Warn().Err(err).Uint64("generation", cmd.Generation).Msg("Media fetch failed")
		}
		c.Dispatch(FetchCompleted{Command: cmd, Result: result, Err: err})
	}()
}

// scheduleToastDismiss replaces any pending dismiss timer. Callers hold c.mu.
func (c *Controller) scheduleToastDismiss(seq uint64) {
	if c.toastTimer != nil {
		c.toastTimer.Stop()
	}
	if c.toastDuration <= 0 {
		return
	}
	c.toastTimer = time.AfterFunc(c.toastDuration, func() {
		c.Dispatch(DismissToast{Seq: seq})
	})
}

// notify signals subscribers without blocking. Callers hold c.mu.
func (c *Controller) notify() {
	for ch := range c.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Subscribe returns a channel that receives a signal after every state
// change. Signals coalesce, so readers should call Snapshot. The channel is
// closed when the Controller is. The returned function unsubscribes.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	c.mu.Lock()
	if c.closed {
		close(ch)
	} else {
		c.subscribers[ch] = struct{}{}
	}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, ch)
			c.mu.Unlock()
		})
	}
}

// Wait blocks until no fetch is running, including fetches started by the
// completion of earlier ones. It must not run concurrently with Dispatch
// calls from other goroutines.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels running fetches, ends every subscription and waits for the
// fetches to finish. Dispatch keeps working afterwards but starts no fetch.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.wg.Wait()
		return
	}
	c.closed = true
	if c.toastTimer != nil {
		c.toastTimer.Stop()
	}
	for ch := range c.subscribers {
		close(ch)
	}
	clear(c.subscribers)
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}
