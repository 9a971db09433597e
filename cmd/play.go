package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/civshow/filter"
	"github.com/s0up4200/civshow/slideshow"
)

var (
	playCount int
	playDelay int
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a slideshow in the terminal",
	Long: `Play a slideshow in the terminal, printing one media URL per slide.
The next page is loaded automatically as the end of the loaded set approaches.
Slides that do not match the view filter are skipped.`,
	RunE: runPlay,
}

func init() {
	addQueryFlags(playCmd)
	playCmd.Flags().IntVarP(&playCount, "count", "n", 0, "stop after this many slides (0 plays forever)")
	playCmd.Flags().IntVar(&playDelay, "delay", 0, "seconds per slide (default from config)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	snapshot, err := filterSnapshot(cmd)
	if err != nil {
		return err
	}
	view, err := viewFilter()
	if err != nil {
		return err
	}

	delay := cfg.Slideshow.Delay
	if cmd.Flags().Changed("delay") {
		delay = playDelay
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller := slideshow.NewController(civitaiClient, logger,
		slideshow.WithFilters(snapshot),
		slideshow.WithDelay(delay),
		slideshow.WithPageSize(cfg.Civitai.PageSize),
		slideshow.WithPrefetchThreshold(cfg.Slideshow.PrefetchThreshold),
	)
	defer controller.Close()

	logger.Info().Str("filters", snapshot.String()).Msg("Starting slideshow")

	p := &player{
		controller: controller,
		view:       view,
		out:        os.Stdout,
		color:      isTerminal(os.Stdout),
		limit:      playCount,
		unit:       time.Second,
	}
	return p.run(ctx)
}

// player drives a Controller at the configured delay
type player struct {
	controller *slideshow.Controller
	view       filter.Filter
	out        io.Writer
	color      bool
	limit      int
	// unit is the length of one delay step, a second outside tests
	unit time.Duration

	shown int
}

func (p *player) run(ctx context.Context) error {
	updates, unsubscribe := p.controller.Subscribe()
	defer unsubscribe()

	p.controller.Dispatch(slideshow.Init{})

	state, ok := p.waitReady(ctx, updates)
	if !ok {
		return nil
	}
	if len(state.Page.Items) == 0 {
		if state.Notice != "" {
			return errors.New(state.Notice)
		}
		fmt.Fprintln(p.out, "No media found matching the filter criteria.")
		return nil
	}

	for {
		state, ok = p.showNext(state)
		if !ok {
			fmt.Fprintln(p.out, "No loaded media matches the view filter.")
			return nil
		}
		if p.limit > 0 && p.shown >= p.limit {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(state.DelaySeconds) * p.unit):
		}

		state = p.controller.Dispatch(slideshow.Advance{Step: 1})
	}
}

// waitReady blocks until the first page has loaded. It reports false when
// ctx ends or the controller closes first.
func (p *player) waitReady(ctx context.Context, updates <-chan struct{}) (slideshow.State, bool) {
	for {
		state := p.controller.Snapshot()
		if state.Phase == slideshow.PhaseReady {
			return state, true
		}
		select {
		case <-ctx.Done():
			return state, false
		case _, open := <-updates:
			if !open {
				return state, false
			}
		}
	}
}

// showNext prints the current slide, first skipping slides the view filter
// rejects. It gives up after one full pass over the loaded items.
func (p *player) showNext(state slideshow.State) (slideshow.State, bool) {
	for skipped := 0; skipped <= len(state.Page.Items); skipped++ {
		item, ok := state.Current()
		if !ok {
			return state, false
		}
		if p.view == nil || p.view.Evaluate(item) {
			p.shown++
			status := state.Status()
			if p.color {
				status = "\033[1m" + status + "\033[0m"
			}
			fmt.Fprintf(p.out, "%s  [%s] %s\n", status, item.Kind, item.URL)
			return state, true
		}
		state = p.controller.Dispatch(slideshow.Advance{Step: 1})
	}
	return state, false
}
