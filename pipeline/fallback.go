package pipeline

import (
	"context"

	apperrors "github.com/kbukum/voxkit/errors"
)

// FallbackEvent tells the caller which provider is actually used.
type FallbackEvent struct {
	// Stage is "transcription" or "summarization".
	Stage string
	From  string
	To    string
	// Reason is the failure, or the unhealthy probe, that caused the switch.
	Reason error
}

// canFallback reports whether err from providerID may be retried against
// defaultID. Configuration and input errors are final, as is cancellation
// by the caller.
func canFallback(ctx context.Context, err error, providerID, defaultID string) bool {
	if err == nil || defaultID == "" || defaultID == providerID || ctx.Err() != nil {
		return false
	}
	code := apperrors.CodeOf(err)
	if apperrors.IsConfigError(code) {
		return false
	}
	switch code {
	case apperrors.ErrCodeFileInvalid, apperrors.ErrCodeFileNotFound:
		return false
	}
	return true
}

// attempt runs one provider call by id.
type attempt[T any] func(ctx context.Context, providerID string) (T, error)

// withFallback runs fn against primary and, if allowed, once more against
// defaultID. It returns the id that produced the result. When both fail the
// error chains the two failures. onSwitch runs before the second call.
func withFallback[T any](ctx context.Context, stage, primary, defaultID string, fn attempt[T], onSwitch func(FallbackEvent)) (T, string, error) {
	res, err := fn(ctx, primary)
	if !canFallback(ctx, err, primary, defaultID) {
		return res, primary, err
	}
	onSwitch(FallbackEvent{Stage: stage, From: primary, To: defaultID, Reason: err})
	res, ferr := fn(ctx, defaultID)
	if ferr != nil {
		return res, defaultID, apperrors.Chain(stage, err, ferr)
	}
	return res, defaultID, nil
}
