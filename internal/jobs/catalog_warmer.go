package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Warmer embeds the schema catalog.
type Warmer interface {
	Warm(ctx context.Context) error
}

// CatalogWarmer retries the catalog warm-up until it succeeds. Questions
// asked before then still work: retrieval warms lazily.
type CatalogWarmer struct {
	warmer  Warmer
	timeout time.Duration
	logger  *slog.Logger
}

func NewCatalogWarmer(warmer Warmer, timeout time.Duration, logger *slog.Logger) *CatalogWarmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogWarmer{
		warmer:  warmer,
		timeout: timeout,
		logger:  logger,
	}
}

// ProcessJobs implements the JobProcessor interface
func (c *CatalogWarmer) ProcessJobs(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := c.warmer.Warm(ctx); err != nil {
		return fmt.Errorf("schema catalog warm-up failed: %w", err)
	}

	c.logger.Info("schema catalog embedded", "duration_ms", time.Since(start).Milliseconds())
	return ErrFinished
}
