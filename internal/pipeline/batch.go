package pipeline

import (
	"context"
	"sync"
	"time"

	"finanzamt/pkg/models"
)

// BatchItem pairs one input path with its outcome. Exactly one of Result
// and Err is set.
type BatchItem struct {
	Path   string
	Result *Result
	Err    error
}

// BatchSummary is the outcome of a batch run.
type BatchSummary struct {
	Items      []BatchItem
	Processed  int
	Duplicates int
	Failed     int
	Elapsed    time.Duration
}

// ProcessBatch processes many documents with a bounded worker pool. Workers
// share the database handle, which serializes commits; extraction, the slow
// part, runs concurrently. One document's failure never stops the batch,
// but cancelling the context drains it. Items come back in input order.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string, direction models.Direction, workers int) *BatchSummary {
	start := time.Now()
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	items := make([]BatchItem, len(paths))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				result, err := p.ProcessFile(ctx, paths[i], direction)
				items[i] = BatchItem{Path: paths[i], Result: result, Err: err}
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case indexes <- i:
		case <-ctx.Done():
			for j := i; j < len(paths); j++ {
				items[j] = BatchItem{Path: paths[j], Err: ctx.Err()}
			}
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	summary := &BatchSummary{Items: items, Elapsed: time.Since(start)}
	for i := range items {
		switch {
		case items[i].Err != nil:
			summary.Failed++
		case items[i].Result.Duplicate:
			summary.Duplicates++
		default:
			summary.Processed++
		}
	}

	p.log.Info().
		Int("total", len(paths)).
		Int("processed", summary.Processed).
		Int("duplicates", summary.Duplicates).
		Int("failed", summary.Failed).
		Int("workers", workers).
		Dur("elapsed", summary.Elapsed).
		Msg("Batch completed")
	return summary
}
