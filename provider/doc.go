// Package provider defines the identity, health and resilience plumbing
// shared by every capability backend (transcribers and summarizers).
//
// A backend embeds Base, implements Check, and implements the method of its
// capability. Backends are built from configuration through a Factory:
//
//	var f provider.Factory[transcription.Transcriber] = func(s provider.Spec) (transcription.Transcriber, error) {
//	    return whisper.New(s.ID, s.Name, whisper.ConfigFromOptions(s.Options))
//	}
//
// Network and process backends run their calls through ExecuteWithResilience,
// which applies the configured bulkhead, circuit breaker and retry policy and
// reports their failures with the voxkit error taxonomy.
package provider
