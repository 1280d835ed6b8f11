package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent    = "component"
	FieldTraceID      = "trace_id"
	FieldSpanID       = "span_id"
	FieldRequestID    = "request_id"
	FieldSessionID    = "session_id"
	FieldProvider     = "provider"
	FieldProviderKind = "provider_kind"
	FieldStage        = "stage"
	FieldOperation    = "operation"
	FieldStatus       = "status"
	FieldCode         = "code"
	FieldError        = "error"
	FieldDuration     = "duration_ms"
	FieldPath         = "path"
	FieldFormat       = "format"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("converted", logger.Fields("provider", id, "bytes", n))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// ProviderFields creates fields for a provider call.
func ProviderFields(providerID, op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldProvider:  providerID,
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}

// MergeWithError adds an error field to an existing map.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldError] = err.Error()
	return fields
}
