package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/mwrenn/research-pipeline/internal/domain"
)

// RetryExecutor wraps a StageExecutor with a bounded re-invocation policy.
// The orchestrator never retries on its own; retries exist only through this
// opt-in wrapper. Each attempt gets the stage's full timeout budget, and the
// returned StepResult is always the last attempt's.
type RetryExecutor struct {
	inner    StageExecutor
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// NewRetryExecutor wraps inner so each stage is invoked up to attempts times.
// Attempts below 1 are treated as 1.
func NewRetryExecutor(inner StageExecutor, attempts int, backoff time.Duration, logger *slog.Logger) *RetryExecutor {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryExecutor{inner: inner, attempts: attempts, backoff: backoff, logger: logger}
}

// Execute re-invokes the stage after a failed attempt until an attempt
// completes, attempts are exhausted, or the caller's context ends.
func (r *RetryExecutor) Execute(ctx context.Context, desc Descriptor, pc *Context) domain.StepResult {
	res := r.inner.Execute(ctx, desc, pc)
	for attempt := 2; attempt <= r.attempts && res.Status == domain.StepError; attempt++ {
		if ctx.Err() != nil {
			break
		}
		if r.backoff > 0 {
			timer := time.NewTimer(r.backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return res
			}
		}
		r.logger.Warn("retrying stage",
			slog.String("stage", desc.Name),
			slog.Int("attempt", attempt),
			slog.String("previous_error", res.Error))
		res = r.inner.Execute(ctx, desc, pc)
	}
	return res
}

var _ StageExecutor = (*RetryExecutor)(nil)
