package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// AppError is the unified application error type. Every failure that crosses
// a public boundary is an *AppError.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Hint is display-ready remediation text.
	Hint string `json:"hint,omitempty"`
	// ProviderID names the provider that failed, when known.
	ProviderID string `json:"provider_id,omitempty"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Metadata contains additional context for the error.
	Metadata map[string]any `json:"metadata,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.ProviderID != "" {
		b.WriteString(" [")
		b.WriteString(e.ProviderID)
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// IsRetryable lets retry policies consult the taxonomy.
func (e *AppError) IsRetryable() bool { return e.Retryable }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithHint replaces the remediation hint.
func (e *AppError) WithHint(hint string) *AppError {
	if hint != "" {
		e.Hint = hint
	}
	return e
}

// WithProvider sets the failing provider id.
func (e *AppError) WithProvider(id string) *AppError {
	e.ProviderID = id
	return e
}

// WithMetadata merges the provided metadata into the error and returns the receiver.
func (e *AppError) WithMetadata(md map[string]any) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any, len(md))
	}
	for k, v := range md {
		e.Metadata[k] = v
	}
	return e
}

// WithMeta sets a single metadata key-value pair and returns the receiver.
func (e *AppError) WithMeta(key string, value any) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// New creates a new AppError with retryable, status and hint taken from the code table.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Hint:       DefaultHint(code),
		HTTPStatus: HTTPStatusFor(code),
		Retryable:  IsRetryableCode(code),
	}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// --- Common Error Constructors ---

// ConfigInvalid creates an error for a setting with an invalid value.
func ConfigInvalid(field, reason string) *AppError {
	e := Newf(ErrCodeConfigInvalid, "invalid configuration: %s", reason)
	if field != "" {
		e.WithMeta("field", field)
	}
	return e
}

// ConfigMissing creates an error for a required setting that is absent.
func ConfigMissing(field string) *AppError {
	return Newf(ErrCodeConfigMissing, "missing required setting: %s", field).WithMeta("field", field)
}

// ConnectionFailed creates an error for a provider that cannot be reached.
func ConnectionFailed(provider string, cause error) *AppError {
	return Newf(ErrCodeConnectionFailed, "unable to connect to %s", provider).
		WithProvider(provider).WithCause(cause)
}

// Timeout creates an error for a provider call that exceeded its deadline.
func Timeout(provider string, after time.Duration) *AppError {
	e := Newf(ErrCodeConnectionTimeout, "%s did not answer in time", provider).WithProvider(provider)
	if after > 0 {
		e.WithMeta("timeout_ms", after.Milliseconds())
	}
	return e
}

// AuthInvalid creates an error for rejected credentials.
func AuthInvalid(provider string) *AppError {
	return Newf(ErrCodeAuthInvalid, "%s rejected the credentials", provider).WithProvider(provider)
}

// AuthExpired creates an error for expired credentials.
func AuthExpired(provider string) *AppError {
	return Newf(ErrCodeAuthExpired, "credentials for %s have expired", provider).WithProvider(provider)
}

// AuthMissing creates an error for a provider that needs credentials but has none.
func AuthMissing(provider string) *AppError {
	return Newf(ErrCodeAuthMissing, "%s requires an API key", provider).WithProvider(provider)
}

// QuotaExceeded creates an error for an exhausted account quota.
func QuotaExceeded(provider string) *AppError {
	return Newf(ErrCodeQuotaExceeded, "quota exceeded for %s", provider).WithProvider(provider)
}

// RateLimited creates an error for too many requests.
func RateLimited(provider string) *AppError {
	return Newf(ErrCodeRateLimited, "%s is rate limiting requests", provider).WithProvider(provider)
}

// FileNotFound creates an error for a missing audio file.
func FileNotFound(path string) *AppError {
	return Newf(ErrCodeFileNotFound, "audio file not found: %s", path).WithMeta("path", path)
}

// FileInvalid creates an error for empty or corrupt audio.
func FileInvalid(reason string) *AppError {
	return Newf(ErrCodeFileInvalid, "invalid audio: %s", reason)
}

// FileTooLarge creates an error for audio exceeding the configured limit.
func FileTooLarge(size, limit int64) *AppError {
	return Newf(ErrCodeFileTooLarge, "audio is %d bytes, limit is %d", size, limit).
		WithMetadata(map[string]any{"size": size, "limit": limit})
}

// ProcessingFailed creates an error for a failed conversion or inference run.
func ProcessingFailed(provider string, cause error) *AppError {
	msg := "processing failed"
	if provider != "" {
		msg = fmt.Sprintf("processing failed in %s", provider)
	}
	return New(ErrCodeProcessingFailed, msg).WithProvider(provider).WithCause(cause)
}

// UnsupportedFormat creates an error listing the formats a provider accepts
// and whether automatic conversion could have produced one of them.
func UnsupportedFormat(provider, format string, accepted []string, convertible bool) *AppError {
	e := Newf(ErrCodeUnsupportedFormat, "%s does not accept %q", provider, format).
		WithProvider(provider).
		WithMetadata(map[string]any{
			"format":      format,
			"accepted":    accepted,
			"convertible": convertible,
		})
	hint := fmt.Sprintf("Accepted formats: %s.", strings.Join(accepted, ", "))
	if convertible {
		hint += " Automatic conversion is available for this input."
	}
	return e.WithHint(hint)
}

// UnsupportedLanguage creates an error for a language the provider cannot handle.
func UnsupportedLanguage(provider, lang string) *AppError {
	return Newf(ErrCodeUnsupportedLanguage, "%s does not support language %q", provider, lang).
		WithProvider(provider).WithMeta("language", lang)
}

// Internal creates an error for a programming or unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "an unexpected error occurred").WithCause(cause)
}

// ProviderUnavailable creates an error for an unhealthy provider. The health
// details become the hint when present.
func ProviderUnavailable(provider, details string) *AppError {
	return Newf(ErrCodeProviderUnavailable, "%s is unavailable", provider).
		WithProvider(provider).WithHint(details)
}

// ProviderNotFound creates an error naming the unknown id and the partition searched.
func ProviderNotFound(id, kind string) *AppError {
	return Newf(ErrCodeProviderNotFound, "no %s registered with id %q", kind, id).
		WithProvider(id).WithMeta("kind", kind)
}

// ProviderAlreadyRegistered creates an error for a duplicate provider id.
func ProviderAlreadyRegistered(id string) *AppError {
	return Newf(ErrCodeProviderAlreadyRegistered, "provider %q is already registered", id).WithProvider(id)
}

// InvalidProviderType creates an error for a provider that lacks the capability of its kind.
func InvalidProviderType(id, kind string) *AppError {
	return Newf(ErrCodeInvalidProviderType, "provider %q is not a %s", id, kind).
		WithProvider(id).WithMeta("kind", kind)
}

// Chain builds the aggregated error reported after a failed fallback. It carries
// the fallback's code and hint, names both providers and wraps both causes.
func Chain(stage string, primary, fallback error) *AppError {
	p := From(primary, "")
	f := From(fallback, "")
	e := &AppError{
		Code: f.Code,
		Message: fmt.Sprintf("%s failed with %s and fallback %s",
			stage, orUnknown(p.ProviderID), orUnknown(f.ProviderID)),
		Hint:       f.Hint,
		ProviderID: f.ProviderID,
		Retryable:  f.Retryable,
		HTTPStatus: f.HTTPStatus,
		Cause:      stderrors.Join(primary, fallback),
	}
	return e.WithMetadata(map[string]any{
		"stage":             stage,
		"primary_provider":  p.ProviderID,
		"primary_code":      string(p.Code),
		"primary_error":     p.Message,
		"fallback_provider": f.ProviderID,
		"fallback_code":     string(f.Code),
		"fallback_error":    f.Message,
	})
}

func orUnknown(id string) string {
	if id == "" {
		return "unknown provider"
	}
	return id
}

// From converts any error into an *AppError. Existing AppErrors are returned
// as-is, with the provider id filled in when it is missing.
func From(err error, provider string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		if appErr.ProviderID == "" && provider != "" {
			appErr.ProviderID = provider
		}
		return appErr
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return Timeout(orUnknown(provider), 0).WithProvider(provider).WithCause(err)
	case stderrors.Is(err, context.Canceled):
		return Newf(ErrCodeConnectionFailed, "request cancelled").WithProvider(provider).WithCause(err)
	}
	return Internal(err).WithProvider(provider)
}

// CodeOf returns the code of err, or INTERNAL_ERROR for non-AppErrors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
