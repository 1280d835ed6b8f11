package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/provider"
)

// Runner executes subprocesses on behalf of one provider. Its circuit
// breaker and bulkhead state persist across calls, so repeated crashes of a
// local engine trip the breaker and parallel runs are capped.
type Runner struct {
	id      string
	state   *provider.ResilienceState
	timeout time.Duration
	log     *logger.Logger
}

// NewRunner creates a Runner for provider id. A zero timeout leaves the
// deadline to the caller's context.
func NewRunner(id string, cfg provider.ResilienceConfig, timeout time.Duration) *Runner {
	return &Runner{
		id:      id,
		state:   provider.BuildResilience(id, cfg),
		timeout: timeout,
		log:     logger.Get("process").WithProvider(id),
	}
}

// Run executes cmd through the resilience chain and reports failures with
// the error taxonomy: a missing binary is PROVIDER_UNAVAILABLE, a deadline is
// CONNECTION_TIMEOUT and a non-zero exit is PROCESSING_FAILED.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return provider.ExecuteWithResilience(ctx, r.state, func() (*Result, error) {
		res, err := Run(ctx, cmd)
		if err != nil {
			return res, r.classify(ctx, cmd, res, err)
		}
		r.log.Debug("process finished", logger.Fields(
			"binary", cmd.Binary,
			logger.FieldDuration, res.Duration.Milliseconds(),
		))
		return res, nil
	})
}

func (r *Runner) classify(ctx context.Context, cmd Command, res *Result, err error) error {
	switch {
	case errors.Is(err, ErrBinaryNotFound):
		return apperrors.ProviderUnavailable(r.id,
			fmt.Sprintf("Executable %q was not found. Install it or fix the path in the provider settings.", cmd.Binary)).
			WithCause(err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.Timeout(r.id, r.timeout).WithCause(err)
	case ctx.Err() != nil:
		return apperrors.From(ctx.Err(), r.id)
	}
	tail := strings.TrimSpace(res.StderrTail(400))
	r.log.Warn("process failed", logger.Fields("binary", cmd.Binary, "exit_code", res.ExitCode, "stderr", tail))
	return apperrors.ProcessingFailed(r.id, err).
		WithMetadata(map[string]any{"exit_code": res.ExitCode, "stderr": tail})
}
