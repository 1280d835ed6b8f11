// Package validation checks configuration and call options.
//
// Both forms report failures as CONFIG_INVALID errors, so the pipeline
// never falls back over a caller's mistake.
//
// # Struct Tag Validation
//
//	type Options struct {
//	    Style string `json:"style" validate:"omitempty,oneof=brief detailed bullet narrative"`
//	}
//	err := validation.Validate(opts)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("selection.transcription", id).Unique("providers", ids)
//	err := v.Validate()
package validation
