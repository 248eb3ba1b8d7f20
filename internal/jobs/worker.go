package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrFinished is returned by a processor that has nothing left to do. The
// worker exits its loop when it sees it.
var ErrFinished = errors.New("job finished")

// JobProcessor defines the interface for processing jobs
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker represents a background job worker
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	logger       *slog.Logger
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(processor JobProcessor, pollInterval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		logger:       logger,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the processor once immediately, then on every tick, until the
// context ends, Stop is called, or the processor returns ErrFinished.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	w.logger.Debug("worker started", "poll_interval", w.pollInterval)

	if w.process(ctx) {
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("worker stopped: context cancelled")
			return
		case <-w.stopChan:
			w.logger.Debug("worker stopped: stop signal received")
			return
		case <-ticker.C:
			if w.process(ctx) {
				return
			}
		}
	}
}

// process reports whether the loop should exit.
func (w *Worker) process(ctx context.Context) bool {
	err := w.processor.ProcessJobs(ctx)
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrFinished):
		w.logger.Debug("worker finished")
		return true
	default:
		w.logger.Warn("error processing jobs", "error", err, "retry_in", w.pollInterval)
		return false
	}
}

// Stop gracefully stops the worker. It is safe to call after the loop has
// already exited.
func (w *Worker) Stop() {
	select {
	case <-w.stopChan:
	default:
		close(w.stopChan)
	}
	<-w.doneChan
}

// Done is closed once the loop has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.doneChan
}
