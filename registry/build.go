package registry

import (
	"fmt"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/summarization"
	"github.com/kbukum/voxkit/transcription"
	"github.com/kbukum/voxkit/validation"
)

// Specs lists the configured providers of both kinds.
type Specs struct {
	Transcribers []provider.Spec `yaml:"transcribers" mapstructure:"transcribers" validate:"dive"`
	Summarizers  []provider.Spec `yaml:"summarizers" mapstructure:"summarizers" validate:"dive"`
}

// Factories maps spec types to backend constructors.
type Factories struct {
	Transcribers map[string]provider.Factory[transcription.Transcriber]
	Summarizers  map[string]provider.Factory[summarization.Summarizer]
}

// Build instantiates every spec through its factory and registers it. The
// first configuration error aborts startup.
func Build(specs Specs, f Factories) (*Registry, error) {
	if err := validation.Validate(specs); err != nil {
		return nil, err
	}
	r := New()
	log := logger.Get("registry")

	for i, spec := range specs.Transcribers {
		field := fmt.Sprintf("providers.transcribers[%d].type", i)
		t, err := build(spec, f.Transcribers, field)
		if err != nil {
			return nil, err
		}
		if err := r.RegisterTranscriber(t); err != nil {
			return nil, err
		}
		log.Info("provider registered", logger.Fields(logger.FieldProvider, spec.ID, logger.FieldProviderKind, provider.KindTranscriber, "type", spec.Type))
	}
	for i, spec := range specs.Summarizers {
		field := fmt.Sprintf("providers.summarizers[%d].type", i)
		s, err := build(spec, f.Summarizers, field)
		if err != nil {
			return nil, err
		}
		if err := r.RegisterSummarizer(s); err != nil {
			return nil, err
		}
		log.Info("provider registered", logger.Fields(logger.FieldProvider, spec.ID, logger.FieldProviderKind, provider.KindSummarizer, "type", spec.Type))
	}
	return r, nil
}

func build[T provider.Provider](spec provider.Spec, factories map[string]provider.Factory[T], field string) (T, error) {
	var zero T
	factory, ok := factories[spec.Type]
	if !ok {
		return zero, apperrors.ConfigInvalid(field, fmt.Sprintf("unknown provider type %q for %s", spec.Type, spec.ID)).
			WithProvider(spec.ID)
	}
	p, err := factory(spec)
	if err != nil {
		return zero, apperrors.From(err, spec.ID)
	}
	if any(p) == nil {
		return zero, apperrors.Internal(fmt.Errorf("factory for %q returned no provider", spec.ID)).WithProvider(spec.ID)
	}
	if p.ID() != spec.ID {
		return zero, apperrors.Internal(fmt.Errorf("factory for %q built provider %q", spec.ID, p.ID())).
			WithProvider(spec.ID)
	}
	return p, nil
}
