package ingestion

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultRetryBackoff = 2 * time.Second
	defaultMaxBackoff   = time.Minute
)

// retryForever runs op until it succeeds or ctx is done, waiting an
// exponentially growing interval between attempts.
func retryForever(ctx context.Context, initial, max time.Duration, op func() error, notify func(err error, wait time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.MaxElapsedTime = 0
	b.Reset()

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
