package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retrying wraps a Generator and retries failed calls with exponential
// backoff.
type Retrying struct {
	next        Generator
	maxAttempts int
	initial     time.Duration
	logger      *slog.Logger
}

func NewRetrying(next Generator, maxAttempts int, logger *slog.Logger) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, maxAttempts: maxAttempts, initial: time.Second, logger: logger}
}

func (r *Retrying) Model() string {
	return r.next.Model()
}

func (r *Retrying) Generate(ctx context.Context, system, user string) (string, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.initial
	exp.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.maxAttempts-1)), ctx)

	var out string
	op := func() error {
		s, err := r.next.Generate(ctx, system, user)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = s
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("llm call failed, retrying", "model", r.next.Model(), "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return "", err
	}
	return out, nil
}
