// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// Sweep worker defaults.
const (
	DefaultSweepInterval = time.Hour
	sweepRetryAttempts   = 3
	sweepRetryBase       = 500 * time.Millisecond
)

// SweepWorker periodically invalidates expired sessions.
type SweepWorker struct {
	system   *SystemService
	interval time.Duration
	logger   *slog.Logger
	clock    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweepWorker creates a sweep worker. A non-positive interval selects
// DefaultSweepInterval.
func NewSweepWorker(system *SystemService, interval time.Duration) *SweepWorker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &SweepWorker{
		system:   system,
		interval: interval,
		logger:   slog.Default(),
		clock:    time.Now,
	}
}

// SetLogger replaces the worker logger. Intended for wiring at startup.
func (w *SweepWorker) SetLogger(logger *slog.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// RunOnce executes a single sweep cycle, retrying transient storage
// failures with fibonacci backoff before giving up.
func (w *SweepWorker) RunOnce(ctx context.Context) error {
	started := w.clock()

	var count int64
	backoff := retry.WithMaxRetries(sweepRetryAttempts, retry.NewFibonacci(sweepRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		count, err = w.system.SweepExpiredSessions(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if count > 0 {
		w.logger.Info("swept expired sessions",
			"count", count,
			"duration", w.clock().Sub(started))
	}
	return nil
}

// Start begins periodic sweeping until Stop is called or the context is
// canceled.
func (w *SweepWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker and waits for the in-flight cycle to finish.
func (w *SweepWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *SweepWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("session sweep failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
