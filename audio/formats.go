package audio

import (
	"maps"
	"slices"
	"sync"
)

// FormatSpec describes what one provider accepts.
type FormatSpec struct {
	// Preferred is the conversion target when no override is given.
	Preferred string `yaml:"preferred" mapstructure:"preferred"`
	// Accepted lists every format the provider reads without conversion.
	Accepted []string `yaml:"accepted" mapstructure:"accepted"`
}

// Accepts reports whether format is in the accepted set.
func (s FormatSpec) Accepts(format string) bool {
	return slices.Contains(s.Accepted, format)
}

// defaultSpec applies to providers without a row.
var defaultSpec = FormatSpec{Preferred: FormatWAV, Accepted: []string{FormatWAV}}

func builtinFormats() map[string]FormatSpec {
	return map[string]FormatSpec{
		"openai-whisper": {
			Preferred: FormatWAV,
			Accepted:  []string{FormatWebM, FormatWAV, FormatMP3, FormatM4A, FormatOgg, FormatFLAC, FormatMP4},
		},
		"whisper-local": {Preferred: FormatWAV, Accepted: []string{FormatWAV}},
		"whisper-cpp":   {Preferred: FormatWAV, Accepted: []string{FormatWAV}},
	}
}

// FormatTable maps provider ids to their format requirements.
type FormatTable struct {
	mu    sync.RWMutex
	specs map[string]FormatSpec
}

// NewFormatTable returns a table seeded with the built-in provider rows.
func NewFormatTable() *FormatTable {
	return &FormatTable{specs: builtinFormats()}
}

// SetProvider adds or replaces the row of a provider id. A spec without a
// preferred format takes its first accepted format.
func (t *FormatTable) SetProvider(id string, spec FormatSpec) {
	if spec.Preferred == "" && len(spec.Accepted) > 0 {
		spec.Preferred = spec.Accepted[0]
	}
	if spec.Preferred != "" && !spec.Accepts(spec.Preferred) {
		spec.Accepted = append(slices.Clone(spec.Accepted), spec.Preferred)
	}
	if spec.Preferred == "" {
		spec = defaultSpec
	}
	t.mu.Lock()
	t.specs[id] = spec
	t.mu.Unlock()
}

// Lookup returns the format row of a provider, falling back to wav-only.
func (t *FormatTable) Lookup(id string) FormatSpec {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.specs[id]; ok {
		return FormatSpec{Preferred: s.Preferred, Accepted: slices.Clone(s.Accepted)}
	}
	return FormatSpec{Preferred: defaultSpec.Preferred, Accepted: slices.Clone(defaultSpec.Accepted)}
}

// Providers returns the ids with an explicit row, sorted.
func (t *FormatTable) Providers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.specs))
}
