package service

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/plantpal/internal/config"
	"github.com/weiawesome/plantpal/internal/repository"
	pkglog "github.com/weiawesome/plantpal/pkg/log"
)

// RetryPolicy bounds how often a store call is repeated after the store
// reported itself unavailable. The delay doubles after every attempt.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// NewRetryPolicy reads the policy from the store config.
func NewRetryPolicy(cfg config.StoreConfig) RetryPolicy {
	return RetryPolicy{Attempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff}
}

// NoRetry runs each call once.
var NoRetry = RetryPolicy{Attempts: 1}

// retry runs op until it succeeds, fails with an error other than
// repository.ErrStoreUnavailable, or the attempts are used up.
func retry[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Backoff

	var (
		result T
		err    error
	)
	for attempt := 1; ; attempt++ {
		result, err = op(ctx)
		if err == nil || !errors.Is(err, repository.ErrStoreUnavailable) || attempt >= attempts {
			return result, err
		}

		l := pkglog.Ctx(ctx)

		l.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("store unavailable, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, err
		case <-timer.C:
		}
		delay *= 2
	}
}

// retryErr is retry for calls that only return an error.
func retryErr(ctx context.Context, p RetryPolicy, op func(ctx context.Context) error) error {
	_, err := retry(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
