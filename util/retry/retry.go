package retry

import (
	"context"
	"time"

	"github.com/floresta-chain/nodeharness/ulogger"
)

// Retry calls f until it succeeds, the retry count is exhausted, or the
// context is cancelled, backing off between attempts. It returns the last
// result and error from f.
func Retry[T any](ctx context.Context, logger ulogger.Logger, f func() (T, error), retryCount int, backoffMultiplier int, backoffDurationType time.Duration, retryMessage string) (T, error) {
	var result T
	var err error

	for i := 0; i < retryCount; i++ {
		select {
		case <-ctx.Done():
			logger.Errorf("context cancelled, stopping retries")
			return result, ctx.Err()
		default:
			result, err = f()
			if err == nil {
				return result, nil
			}

			if i < retryCount-1 {
				logger.Debugf("%s (attempt %d): %v", retryMessage, i+1, err)

				if serr := BackoffAndSleep(ctx, i, backoffMultiplier, backoffDurationType); serr != nil {
					return result, serr
				}
			}
		}
	}

	return result, err
}
