package filter

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/civshow/civitai"
)

// SelectorOption configures a Selector
type SelectorOption func(*Selector)

// WithWorkers sets the number of goroutines used for large batches
func WithWorkers(workers int) SelectorOption {
	return func(s *Selector) {
		if workers > 0 {
			s.workerCount = workers
		}
	}
}

// WithBatchSize sets the chunk size below which evaluation is sequential
func WithBatchSize(size int) SelectorOption {
	return func(s *Selector) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// Selector keeps the items a filter matches, preserving their order
type Selector struct {
	workerCount int
	batchSize   int
}

// NewSelector creates a Selector
func NewSelector(opts ...SelectorOption) *Selector {
	s := &Selector{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Select returns the matching items. A nil filter matches everything.
func (s *Selector) Select(ctx context.Context, filter Filter, items []civitai.MediaItem) ([]civitai.MediaItem, error) {
	if filter == nil {
		return items, nil
	}
	if len(items) == 0 {
		return []civitai.MediaItem{}, nil
	}
	if len(items) < s.batchSize || s.workerCount == 1 {
		return selectSequential(filter, items), nil
	}

	chunkSize := max(len(items)/s.workerCount, s.batchSize)
	chunks := make([][]civitai.MediaItem, (len(items)+chunkSize-1)/chunkSize)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)

	for i := range chunks {
		start := i * chunkSize
		end := min(start+chunkSize, len(items))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunks[i] = selectSequential(filter, items[start:end])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	matches := make([]civitai.MediaItem, 0, total)
	for _, c := range chunks {
		matches = append(matches, c...)
	}
	return matches, nil
}

func selectSequential(filter Filter, items []civitai.MediaItem) []civitai.MediaItem {
	matches := make([]civitai.MediaItem, 0, len(items))
	for _, item := range items {
		if filter.Evaluate(item) {
			matches = append(matches, item)
		}
	}
	return matches
}
