package provider

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/resilience"
)

// ExecuteWithResilience runs fn through Bulkhead → CircuitBreaker → Retry → fn.
// Configuration errors never count against the breaker. Failures raised by
// the policies themselves come back as taxonomy errors for the provider.
func ExecuteWithResilience[T any](ctx context.Context, s *ResilienceState, fn func() (T, error)) (T, error) {
	if s == nil {
		return fn()
	}

	call := fn
	if s.retryCfg != nil {
		retryCfg := *s.retryCfg
		call = func() (T, error) {
			return resilience.Retry(ctx, retryCfg, fn)
		}
	}

	if s.cb != nil {
		inner := call
		call = func() (T, error) {
			var result T
			var resultErr error
			cbErr := s.cb.Execute(func() error {
				result, resultErr = inner()
				if resultErr != nil && apperrors.IsConfigError(apperrors.CodeOf(resultErr)) {
					return nil
				}
				return resultErr
			})
			if resultErr != nil {
				return result, resultErr
			}
			return result, wrapResilienceError(s.id, cbErr)
		}
	}

	if s.bh != nil {
		var result T
		var resultErr error
		bhErr := s.bh.Execute(ctx, func() error {
			result, resultErr = call()
			return resultErr
		})
		if resultErr != nil {
			return result, resultErr
		}
		return result, wrapResilienceError(s.id, bhErr)
	}

	return call()
}

func wrapResilienceError(id string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ProviderUnavailable(id, "Too many recent failures. The provider is paused for a short while.").
			WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
		return apperrors.ProviderUnavailable(id, "The provider is busy with another request.").
			WithCause(err).WithMeta("reason", "concurrency limit reached")
	default:
		return apperrors.From(err, id)
	}
}
