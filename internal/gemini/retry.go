package gemini

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Retry defaults. Worst-case backoff is InitialDelay * (2^MaxRetries - 1)
// on top of call time.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 1000 * time.Millisecond
)

// Invoker executes a single external call with bounded retries and
// exponential backoff. Transport-level retries here are independent of the
// fix loop's attempt budget; each layer has its own bound.
type Invoker struct {
	// MaxRetries is the total number of underlying call attempts.
	MaxRetries int
	// InitialDelay is the wait before the first retry; it doubles per retry.
	InitialDelay time.Duration
	// Wait pauses between retries. Nil means a context-aware sleep; tests
	// inject a recorder here.
	Wait func(ctx context.Context, d time.Duration) error
}

// NewInvoker returns an Invoker with the default retry budget.
func NewInvoker() *Invoker {
	return &Invoker{MaxRetries: DefaultMaxRetries, InitialDelay: DefaultInitialDelay}
}

// Do runs call until it succeeds, fails non-retryably, or the budget is
// exhausted. Classified provider errors decide retryability; errors with no
// classification (network-level, no response at all) are treated as
// retryable until the final attempt, after which they propagate unchanged.
func (inv *Invoker) Do(ctx context.Context, op string, call func(ctx context.Context) error) error {
	maxRetries := inv.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	delay := inv.InitialDelay
	if delay <= 0 {
		delay = DefaultInitialDelay
	}
	wait := inv.Wait
	if wait == nil {
		wait = sleepContext
	}

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = call(ctx)
		if err == nil {
			return nil
		}

		retryable := true
		var pe *ProviderError
		if errors.As(err, &pe) {
			retryable = pe.Retryable
		}

		if !retryable || attempt == maxRetries || ctx.Err() != nil {
			return err
		}

		log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Int("max_retries", maxRetries).
			Dur("backoff", delay).
			Msg("Transient provider failure, backing off")

		if werr := wait(ctx, delay); werr != nil {
			return err
		}
		delay *= 2
	}
	return err
}

// Invoke wraps a value-returning call with the invoker's retry policy.
func Invoke[T any](ctx context.Context, inv *Invoker, op string, call func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := inv.Do(ctx, op, func(ctx context.Context) error {
		var cerr error
		result, cerr = call(ctx)
		return cerr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// sleepContext waits for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
