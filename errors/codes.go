package errors

import "net/http"

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors. Never retried and never eligible for fallback.
const (
	// ErrCodeConfigInvalid indicates a provider or service setting has an invalid value.
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	// ErrCodeConfigMissing indicates a required setting is absent.
	ErrCodeConfigMissing ErrorCode = "CONFIG_MISSING"
)

// Connection errors
const (
	ErrCodeConnectionFailed  ErrorCode = "CONNECTION_FAILED"
	ErrCodeConnectionTimeout ErrorCode = "CONNECTION_TIMEOUT"
)

// Authentication errors
const (
	ErrCodeAuthInvalid ErrorCode = "AUTH_INVALID"
	ErrCodeAuthExpired ErrorCode = "AUTH_EXPIRED"
	ErrCodeAuthMissing ErrorCode = "AUTH_MISSING"
)

// Quota errors
const (
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeRateLimited   ErrorCode = "RATE_LIMITED"
)

// File errors
const (
	ErrCodeFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrCodeFileInvalid  ErrorCode = "FILE_INVALID"
	ErrCodeFileTooLarge ErrorCode = "FILE_TOO_LARGE"
)

// Processing errors
const (
	ErrCodeProcessingFailed    ErrorCode = "PROCESSING_FAILED"
	ErrCodeUnsupportedFormat   ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeUnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// Provider errors
const (
	ErrCodeProviderUnavailable       ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeProviderNotFound          ErrorCode = "PROVIDER_NOT_FOUND"
	ErrCodeProviderAlreadyRegistered ErrorCode = "PROVIDER_ALREADY_REGISTERED"
	ErrCodeInvalidProviderType       ErrorCode = "INVALID_PROVIDER_TYPE"
)

// codeInfo is the per-code table: retry semantics, HTTP mapping and the
// remediation hint shown when the caller supplies none.
type codeInfo struct {
	retryable bool
	status    int
	hint      string
}

var codeTable = map[ErrorCode]codeInfo{
	ErrCodeConfigInvalid: {false, http.StatusBadRequest,
		"Check the provider settings and correct the highlighted value."},
	ErrCodeConfigMissing: {false, http.StatusBadRequest,
		"Fill in the missing setting in the provider configuration."},
	ErrCodeConnectionFailed: {true, http.StatusBadGateway,
		"Make sure the service is running and reachable, then try again."},
	ErrCodeConnectionTimeout: {true, http.StatusGatewayTimeout,
		"The service took too long to answer. Try again or pick a faster provider."},
	ErrCodeAuthInvalid: {false, http.StatusUnauthorized,
		"The API key was rejected. Verify it in the provider settings."},
	ErrCodeAuthExpired: {false, http.StatusUnauthorized,
		"The credentials have expired. Renew them and try again."},
	ErrCodeAuthMissing: {false, http.StatusUnauthorized,
		"Add an API key for this provider in the settings."},
	ErrCodeQuotaExceeded: {false, http.StatusPaymentRequired,
		"The account quota is used up. Check your plan or switch provider."},
	ErrCodeRateLimited: {true, http.StatusTooManyRequests,
		"Too many requests. Wait a moment and try again."},
	ErrCodeFileNotFound: {false, http.StatusNotFound,
		"The audio file could not be found. Record again."},
	ErrCodeFileInvalid: {false, http.StatusBadRequest,
		"The audio data is empty or corrupted. Record again."},
	ErrCodeFileTooLarge: {false, http.StatusRequestEntityTooLarge,
		"The recording is too large. Record a shorter session."},
	ErrCodeProcessingFailed: {true, http.StatusUnprocessableEntity,
		"Processing failed. Try again or choose another provider."},
	ErrCodeUnsupportedFormat: {false, http.StatusUnsupportedMediaType,
		"This audio format is not accepted by the provider."},
	ErrCodeUnsupportedLanguage: {false, http.StatusBadRequest,
		"The provider does not support this language. Pick another language or provider."},
	ErrCodeInternal: {false, http.StatusInternalServerError,
		"An unexpected error occurred. Try again."},
	ErrCodeProviderUnavailable: {true, http.StatusServiceUnavailable,
		"The provider is currently unavailable. Check that it is installed and running."},
	ErrCodeProviderNotFound: {false, http.StatusNotFound,
		"The selected provider is not registered. Choose another one in the settings."},
	ErrCodeProviderAlreadyRegistered: {false, http.StatusConflict,
		"Each provider id must be unique across transcribers and summarizers."},
	ErrCodeInvalidProviderType: {false, http.StatusBadRequest,
		"The provider does not implement the requested capability."},
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return codeTable[code].retryable
}

// HTTPStatusFor returns the recommended HTTP status for a code.
func HTTPStatusFor(code ErrorCode) int {
	if info, ok := codeTable[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// DefaultHint returns the built-in remediation text for a code.
func DefaultHint(code ErrorCode) string {
	return codeTable[code].hint
}

// IsConfigError reports whether the code describes a setup problem that a
// different provider cannot fix.
func IsConfigError(code ErrorCode) bool {
	switch code {
	case ErrCodeConfigInvalid, ErrCodeConfigMissing,
		ErrCodeProviderNotFound, ErrCodeProviderAlreadyRegistered, ErrCodeInvalidProviderType:
		return true
	}
	return false
}

// Codes returns every known error code.
func Codes() []ErrorCode {
	out := make([]ErrorCode, 0, len(codeTable))
	for c := range codeTable {
		out = append(out, c)
	}
	return out
}
