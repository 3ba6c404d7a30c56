// Worker pool для параллельной переиндексации polls.
// Source → channel(pollRecord) → N workers → SDK IndexPoll → Valkey.
package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	pollindex "github.com/kailas-cloud/pollindex/pkg/sdk"
)

// pollIndexer is the part of the SDK client the workers use.
type pollIndexer interface {
	IndexPoll(ctx context.Context, pollID, description string) error
	IndexPollSummarized(ctx context.Context, pollID, description string) (string, error)
}

// ingester runs the worker pool.
type ingester struct {
	idx       pollIndexer
	workers   int
	summarize bool
	metrics   *loaderMetrics
	logger    *zap.Logger
}

// ingestResult aggregates the run.
type ingestResult struct {
	Read      int
	Processed int64
	Failed    int64
	Duration  time.Duration
}

// Run reads path and indexes every poll. Per-poll failures are counted, not fatal.
// A failure that would hit every poll (index down, wrong model dimension) aborts the run.
func (ing *ingester) Run(ctx context.Context, path string, limit int) (ingestResult, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	items := make(chan pollRecord, ing.workers*2)
	var wg sync.WaitGroup
	var processed, failed atomic.Int64

	start := time.Now()

	for i := 0; i < ing.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for rec := range items {
				if err := ing.index(ctx, rec); err != nil {
					failed.Add(1)
					ing.logger.Warn("poll failed",
						zap.Int("worker", workerID),
						zap.String("poll_id", rec.ID),
						zap.Error(err),
					)
					if fatal(err) {
						cancel(err)
					}
					continue
				}
				if n := processed.Add(1); n%1000 == 0 {
					ing.logger.Info("progress", zap.Int64("processed", n), zap.Int64("failed", failed.Load()))
				}
			}
		}(i)
	}

	read, readErr := readSource(ctx, path, limit, func(rec pollRecord, _ int) bool {
		select {
		case items <- rec:
			return true
		case <-ctx.Done():
			return false
		}
	})
	close(items)
	wg.Wait()

	result := ingestResult{
		Read:      read,
		Processed: processed.Load(),
		Failed:    failed.Load(),
		Duration:  time.Since(start),
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return result, cause
	}
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		return result, readErr
	}
	return result, ctx.Err()
}

func (ing *ingester) index(ctx context.Context, rec pollRecord) error {
	start := time.Now()
	var err error
	if ing.summarize {
		_, err = ing.idx.IndexPollSummarized(ctx, rec.ID, rec.Description)
	} else {
		err = ing.idx.IndexPoll(ctx, rec.ID, rec.Description)
	}
	ing.metrics.observe(time.Since(start), err)
	return err
}

// fatal reports errors that would repeat for every remaining poll.
func fatal(err error) bool {
	return errors.Is(err, pollindex.ErrIndexUnavailable) ||
		errors.Is(err, pollindex.ErrInvalidEmbedding) ||
		errors.Is(err, pollindex.ErrDimensionMismatch) ||
		errors.Is(err, pollindex.ErrConfiguration)
}
