package registry

import (
	"sort"
	"sync"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/summarization"
	"github.com/kbukum/voxkit/transcription"
)

// partition is one capability catalog keyed by provider id.
type partition[T provider.Provider] struct {
	items map[string]T
}

func newPartition[T provider.Provider]() partition[T] {
	return partition[T]{items: make(map[string]T)}
}

func (p partition[T]) get(id string) (T, bool) {
	v, ok := p.items[id]
	return v, ok
}

func (p partition[T]) sorted() []T {
	ids := make([]string, 0, len(p.items))
	for id := range p.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.items[id])
	}
	return out
}

// Registry is the two-partition catalog of capability providers. Ids are
// unique across both partitions. It holds no selection or fallback logic.
type Registry struct {
	mu           sync.RWMutex
	transcribers partition[transcription.Transcriber]
	summarizers  partition[summarization.Summarizer]
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		transcribers: newPartition[transcription.Transcriber](),
		summarizers:  newPartition[summarization.Summarizer](),
	}
}

// Register adds p to the partition named by kind. p must implement the
// capability of that kind.
func (r *Registry) Register(kind provider.Kind, p provider.Provider) error {
	if p == nil {
		return apperrors.InvalidProviderType("", string(kind))
	}
	id := p.ID()
	if id == "" {
		return apperrors.ConfigMissing("id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exists(id) {
		return apperrors.ProviderAlreadyRegistered(id)
	}
	switch kind {
	case provider.KindTranscriber:
		t, ok := p.(transcription.Transcriber)
		if !ok {
			return apperrors.InvalidProviderType(id, string(kind))
		}
		r.transcribers.items[id] = t
	case provider.KindSummarizer:
		s, ok := p.(summarization.Summarizer)
		if !ok {
			return apperrors.InvalidProviderType(id, string(kind))
		}
		r.summarizers.items[id] = s
	default:
		return apperrors.InvalidProviderType(id, string(kind))
	}
	return nil
}

// RegisterTranscriber adds a transcriber.
func (r *Registry) RegisterTranscriber(t transcription.Transcriber) error {
	return r.Register(provider.KindTranscriber, t)
}

// RegisterSummarizer adds a summarizer.
func (r *Registry) RegisterSummarizer(s summarization.Summarizer) error {
	return r.Register(provider.KindSummarizer, s)
}

func (r *Registry) exists(id string) bool {
	_, t := r.transcribers.items[id]
	_, s := r.summarizers.items[id]
	return t || s
}

// GetTranscriber returns the transcriber registered under id.
func (r *Registry) GetTranscriber(id string) (transcription.Transcriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transcribers.get(id)
	if !ok {
		return nil, apperrors.ProviderNotFound(id, string(provider.KindTranscriber))
	}
	return t, nil
}

// GetSummarizer returns the summarizer registered under id.
func (r *Registry) GetSummarizer(id string) (summarization.Summarizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.summarizers.get(id)
	if !ok {
		return nil, apperrors.ProviderNotFound(id, string(provider.KindSummarizer))
	}
	return s, nil
}

// Lookup finds a provider of any kind.
func (r *Registry) Lookup(id string) (provider.Provider, provider.Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.transcribers.get(id); ok {
		return t, provider.KindTranscriber, true
	}
	if s, ok := r.summarizers.get(id); ok {
		return s, provider.KindSummarizer, true
	}
	return nil, "", false
}

// ListAll returns the providers of kind sorted by id.
func (r *Registry) ListAll(kind provider.Kind) []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []provider.Provider
	switch kind {
	case provider.KindTranscriber:
		for _, t := range r.transcribers.sorted() {
			out = append(out, t)
		}
	case provider.KindSummarizer:
		for _, s := range r.summarizers.sorted() {
			out = append(out, s)
		}
	}
	return out
}

// Describe lists every provider, transcribers first, each sorted by id.
func (r *Registry) Describe() []provider.Info {
	var out []provider.Info
	for _, kind := range []provider.Kind{provider.KindTranscriber, provider.KindSummarizer} {
		for _, p := range r.ListAll(kind) {
			out = append(out, provider.Describe(p, kind))
		}
	}
	return out
}

// Unregister removes id from whichever partition holds it and reports
// whether anything was removed.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transcribers.items[id]; ok {
		delete(r.transcribers.items, id)
		return true
	}
	if _, ok := r.summarizers.items[id]; ok {
		delete(r.summarizers.items, id)
		return true
	}
	return false
}

// Clear removes every provider.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcribers = newPartition[transcription.Transcriber]()
	r.summarizers = newPartition[summarization.Summarizer]()
}

// Count returns the number of registered providers across both partitions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.transcribers.items) + len(r.summarizers.items)
}
