package process_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/process"
	"github.com/kbukum/voxkit/provider"
)

func TestRun_Output(t *testing.T) {
	tests := []struct {
		name       string
		cmd        process.Command
		wantStdout string
		wantStderr string
	}{
		{"args", process.Command{Binary: "echo", Args: []string{"hello", "world"}}, "hello world", ""},
		{"stdin", process.Command{Binary: "cat", Stdin: strings.NewReader("from stdin")}, "from stdin", ""},
		{"input", process.Command{Binary: "cat", Input: []byte("from input")}, "from input", ""},
		{"stderr", process.Command{Binary: "sh", Args: []string{"-c", "echo oops >&2"}}, "", "oops"},
		{"env", process.Command{Binary: "sh", Args: []string{"-c", "echo $VOX_TEST_VAR"}, Env: []string{"VOX_TEST_VAR=hello123"}}, "hello123", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := process.Run(context.Background(), tt.cmd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strings.TrimSpace(string(res.Stdout)); got != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", got, tt.wantStdout)
			}
			if got := strings.TrimSpace(string(res.Stderr)); got != tt.wantStderr {
				t.Errorf("stderr = %q, want %q", got, tt.wantStderr)
			}
		})
	}
}

func TestRun_ExitCode(t *testing.T) {
	res, err := process.Run(context.Background(), process.Command{Binary: "sh", Args: []string{"-c", "exit 42"}})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if res.ExitCode != 42 {
		t.Fatalf("expected exit code 42, got %d", res.ExitCode)
	}
}

func TestRun_ContextCancelKillsProcess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res, err := process.Run(ctx, process.Command{Binary: "sleep", Args: []string{"10"}, GracePeriod: 500 * time.Millisecond})
	if err == nil {
		t.Fatal("expected error from context cancellation")
	}
	if res.Duration > 5*time.Second {
		t.Fatalf("process took too long to kill: %v", res.Duration)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	if _, err := process.Run(context.Background(), process.Command{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
	_, err := process.Run(context.Background(), process.Command{Binary: "voxkit-no-such-binary"})
	if !errors.Is(err, process.ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound, got %v", err)
	}
}

func TestResult_StderrTail(t *testing.T) {
	r := &process.Result{Stderr: []byte("0123456789")}
	if got := r.StderrTail(4); got != "6789" {
		t.Errorf("expected tail 6789, got %q", got)
	}
	var nilResult *process.Result
	if nilResult.StderrTail(4) != "" {
		t.Error("nil result should give empty tail")
	}
}

func TestRunner_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		cmd     process.Command
		code    apperrors.ErrorCode
	}{
		{"missing binary", 0, process.Command{Binary: "voxkit-no-such-binary"}, apperrors.ErrCodeProviderUnavailable},
		{"non-zero exit", 0, process.Command{Binary: "sh", Args: []string{"-c", "echo model missing >&2; exit 3"}}, apperrors.ErrCodeProcessingFailed},
		{"deadline", 50 * time.Millisecond, process.Command{Binary: "sleep", Args: []string{"5"}, GracePeriod: 100 * time.Millisecond}, apperrors.ErrCodeConnectionTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := process.NewRunner("whisper-cpp", provider.ResilienceConfig{}, tt.timeout)
			_, err := r.Run(context.Background(), tt.cmd)
			appErr, ok := apperrors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, appErr.Code)
			}
			if appErr.ProviderID != "whisper-cpp" {
				t.Errorf("expected provider id, got %q", appErr.ProviderID)
			}
		})
	}
}

func TestRunner_ProcessingFailedCarriesStderr(t *testing.T) {
	r := process.NewRunner("script", provider.ResilienceConfig{}, 0)
	_, err := r.Run(context.Background(), process.Command{Binary: "sh", Args: []string{"-c", "echo bad input >&2; exit 1"}})
	appErr, _ := apperrors.AsAppError(err)
	if appErr == nil || appErr.Metadata["stderr"] != "bad input" {
		t.Fatalf("expected stderr in metadata, got %v", err)
	}
}

func TestRunner_Success(t *testing.T) {
	r := process.NewRunner("script", provider.ResilienceFromOptions("script", provider.Options{"max_concurrent": 1}), time.Second)
	res, err := r.Run(context.Background(), process.Command{Binary: "echo", Args: []string{"ok"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "ok" {
		t.Errorf("unexpected stdout %q", res.Stdout)
	}
}
