package provider

import (
	"context"
	"slices"
	"strings"

	apperrors "github.com/kbukum/voxkit/errors"
)

// Class says where a provider runs.
type Class string

const (
	ClassCloud Class = "cloud"
	ClassLocal Class = "local"
)

// Kind names a capability partition of the registry.
type Kind string

const (
	KindTranscriber Kind = "transcriber"
	KindSummarizer  Kind = "summarizer"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindTranscriber || k == KindSummarizer
}

// Provider is the identity and health surface every capability backend
// exposes, whatever it does.
type Provider interface {
	// ID is the stable identifier, unique across all capabilities.
	ID() string
	// Name is the display name.
	Name() string
	// Class reports whether the backend is a cloud service or runs locally.
	Class() Class
	// Check computes health on demand. It never caches.
	Check(ctx context.Context) Health
}

// Info is the serializable description of a registered provider.
type Info struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Class Class  `json:"class"`
	Kind  Kind   `json:"kind"`
}

// Describe builds the Info for p.
func Describe(p Provider, kind Kind) Info {
	return Info{ID: p.ID(), Name: p.Name(), Class: p.Class(), Kind: kind}
}

// Base carries the identity fields shared by concrete providers.
// Embed it and implement Check plus the capability method.
type Base struct {
	id    string
	name  string
	class Class
}

// NewBase returns identity fields for a provider. An empty name falls back to the id.
func NewBase(id, name string, class Class) Base {
	if name == "" {
		name = id
	}
	return Base{id: id, name: name, class: class}
}

func (b Base) ID() string   { return b.id }
func (b Base) Name() string { return b.name }
func (b Base) Class() Class { return b.class }

// Health is the result of a provider health probe.
type Health struct {
	OK           bool     `json:"ok"`
	Details      string   `json:"details,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Healthy returns an OK health result.
func Healthy(capabilities ...string) Health {
	return Health{OK: true, Capabilities: capabilities}
}

// Unhealthy returns a failed health result with a human readable reason.
func Unhealthy(details string) Health {
	return Health{OK: false, Details: details}
}

// UnhealthyFrom reports a failed probe call. The details carry the error
// message and its remediation hint.
func UnhealthyFrom(err error) Health {
	appErr := apperrors.From(err, "")
	if appErr.Hint != "" {
		return Unhealthy(appErr.Message + ". " + appErr.Hint)
	}
	return Unhealthy(appErr.Message)
}

// Supports reports whether the health result lists capability c.
func (h Health) Supports(c string) bool {
	return slices.ContainsFunc(h.Capabilities, func(s string) bool { return strings.EqualFold(s, c) })
}
