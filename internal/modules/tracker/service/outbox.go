package service

import (
	"context"
	"errors"
	"time"

	trackerout "notegenius/internal/modules/tracker/port/out"
	"notegenius/internal/platform/clock"
	apperrors "notegenius/internal/platform/errors"
	"notegenius/internal/platform/logger"
)

const (
	outboxBatch       = 50
	outboxBackoffBase = 2 * time.Second
	outboxBackoffCap  = 5 * time.Minute
)

type DrainResult struct {
	Sent    int
	Retried int
	Dropped int
	Depth   int
}

// OutboxWorker replays parked remote writes with exponential backoff.
type OutboxWorker struct {
	outbox      trackerout.Outbox
	remote      trackerout.RemoteSessionStore
	clock       clock.Clock
	metrics     trackerout.Metrics
	log         logger.Logger
	maxAttempts int
}

func NewOutboxWorker(outbox trackerout.Outbox, remote trackerout.RemoteSessionStore, clk clock.Clock, metrics trackerout.Metrics, log logger.Logger, maxAttempts int) *OutboxWorker {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Discard()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OutboxWorker{outbox: outbox, remote: remote, clock: clk, metrics: metrics, log: log, maxAttempts: maxAttempts}
}

// Drain sends every entry that is due now.
func (w *OutboxWorker) Drain(ctx context.Context) (DrainResult, error) {
	result := DrainResult{}
	entries, err := w.outbox.Due(ctx, w.clock.Now(), outboxBatch)
	if err != nil {
		return result, err
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		sendErr := w.remote.Update(ctx, entry.SessionID, entry.Patch)
		attempts := entry.Attempts + 1
		switch {
		case sendErr == nil:
			err = w.outbox.Ack(ctx, entry.ID)
			result.Sent++
		case errors.Is(sendErr, apperrors.ErrNotFound) || attempts >= w.maxAttempts:
			w.log.Warn("dropping outbox entry", entry.SessionID, string(entry.Op), sendErr)
			err = w.outbox.Drop(ctx, entry.ID, sendErr.Error())
			result.Dropped++
		default:
			next := w.clock.Now().Add(Backoff(attempts))
			err = w.outbox.Retry(ctx, entry.ID, next, sendErr.Error())
			result.Retried++
		}
		if err != nil {
			return result, err
		}
	}
	depth, err := w.outbox.Depth(ctx)
	if err != nil {
		return result, err
	}
	result.Depth = depth
	w.metrics.OutboxDepth(depth)
	return result, nil
}

// Run drains on every interval until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if res, err := w.Drain(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("outbox drain", err)
		} else if res.Sent+res.Dropped > 0 {
			w.log.Info("outbox drained", res.Sent, res.Dropped, res.Depth)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Backoff returns the delay before attempt number attempts+1.
func Backoff(attempts int) time.Duration {
	delay := outboxBackoffBase
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= outboxBackoffCap {
			return outboxBackoffCap
		}
	}
	return delay
}
