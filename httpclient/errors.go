package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	apperrors "github.com/kbukum/voxkit/errors"
)

// ClassifyStatus converts a non-2xx response into a taxonomy error for
// provider id. It returns nil for 2xx status codes.
func ClassifyStatus(id string, status int, body []byte) *apperrors.AppError {
	if status >= 200 && status < 300 {
		return nil
	}
	var e *apperrors.AppError
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = apperrors.AuthInvalid(id)
	case status == http.StatusPaymentRequired:
		e = apperrors.QuotaExceeded(id)
	case status == http.StatusNotFound:
		e = apperrors.ConfigInvalid("", fmt.Sprintf("%s endpoint or model not found", id)).WithProvider(id)
	case status == http.StatusRequestEntityTooLarge:
		e = apperrors.New(apperrors.ErrCodeFileTooLarge, fmt.Sprintf("%s rejected the upload as too large", id)).WithProvider(id)
	case status == http.StatusUnsupportedMediaType:
		e = apperrors.New(apperrors.ErrCodeUnsupportedFormat, fmt.Sprintf("%s rejected the media type", id)).WithProvider(id)
	case status == http.StatusTooManyRequests:
		e = apperrors.RateLimited(id)
		if isQuotaMessage(body) {
			e = apperrors.QuotaExceeded(id)
		}
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e = apperrors.Timeout(id, 0)
	case status >= 500:
		e = apperrors.ProviderUnavailable(id, "")
	default:
		e = apperrors.ProcessingFailed(id, nil)
	}
	e.WithMeta("status", status)
	if msg := bodyMessage(body); msg != "" {
		e.WithMeta("provider_message", msg)
	}
	return e
}

// ClassifyTransport converts a transport-level failure into a taxonomy error.
func ClassifyTransport(ctx context.Context, id string, err error) *apperrors.AppError {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return apperrors.Timeout(id, 0).WithCause(err)
	case errors.Is(ctx.Err(), context.Canceled):
		return apperrors.From(ctx.Err(), id)
	}
	return apperrors.ConnectionFailed(id, err)
}

// bodyMessage extracts the human readable message of common error bodies:
// {"error":{"message":"..."}}, {"error":"..."}, {"detail":"..."}, {"message":"..."}.
func bodyMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Detail  any             `json:"detail"`
		Message string          `json:"message"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return truncate(strings.TrimSpace(string(body)), 300)
	}
	if len(payload.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var s string
		if json.Unmarshal(payload.Error, &s) == nil {
			return s
		}
	}
	if payload.Detail != nil {
		return truncate(fmt.Sprint(payload.Detail), 300)
	}
	return payload.Message
}

func isQuotaMessage(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "insufficient_quota")
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
