package viewreader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/smartcontractkit/vault-admin/pkg/logger"
)

var rateLimitMarkers = []string{"429", "quota", "rate limit", "too many requests"}

// IsRateLimited reports whether err looks like the remote endpoint throttling us.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

var revertMarkers = []string{"execution reverted", "revert"}

// IsReverted reports whether err is the remote call reverting, as opposed to the endpoint
// failing to answer.
func IsReverted(err error) bool {
	if err == nil || IsRateLimited(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range revertMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// withRateLimitRetry calls op until it succeeds, fails with an error that is not a rate limit,
// or maxRetries retries have been spent.
func withRateLimitRetry[T any](
	ctx context.Context, lggr logger.Logger, opName string, maxRetries uint, delay time.Duration,
	op func(context.Context) (T, error),
) (T, error) {
	var (
		value T
		id    = traceID()
	)

	err := retry.Do(func() error {
		var err error
		value, err = op(ctx)

		return err
	},
		retry.Context(ctx),
		retry.Attempts(maxRetries+1),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsRateLimited),
		retry.OnRetry(func(n uint, err error) {
			lggr.Warnf("traceID %q: op %q: rate limited, retry %d/%d in %s: %v", id, opName, n+1, maxRetries, delay, err)
		}),
	)
	if err != nil {
		var zero T
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if IsRateLimited(err) {
			return zero, fmt.Errorf("op %s: %w after %d attempts: %w", opName, ErrRetriesExhausted, maxRetries+1, err)
		}

		return zero, err
	}

	return value, nil
}
