package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Selection is the user's chosen provider per capability. It is stored
// outside the main config file so it can change at runtime.
type Selection struct {
	Recording     string `yaml:"recording" mapstructure:"recording" json:"recording"`
	Transcription string `yaml:"transcription" mapstructure:"transcription" json:"transcription"`
	Summarization string `yaml:"summarization" mapstructure:"summarization" json:"summarization"`
}

// Merge returns s with empty fields taken from fallback.
func (s Selection) Merge(fallback Selection) Selection {
	if s.Recording == "" {
		s.Recording = fallback.Recording
	}
	if s.Transcription == "" {
		s.Transcription = fallback.Transcription
	}
	if s.Summarization == "" {
		s.Summarization = fallback.Summarization
	}
	return s
}

// LoadSelection reads a selection file (yaml or json, by extension).
// A missing file yields an empty selection.
func LoadSelection(path string) (Selection, error) {
	var sel Selection
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return sel, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return sel, fmt.Errorf("read selection %s: %w", path, err)
	}
	if err := v.Unmarshal(&sel); err != nil {
		return sel, fmt.Errorf("decode selection %s: %w", path, err)
	}
	return sel, nil
}

// SaveSelection writes the selection atomically.
func SaveSelection(path string, sel Selection) error {
	v := viper.New()
	v.Set("recording", sel.Recording)
	v.Set("transcription", sel.Transcription)
	v.Set("summarization", sel.Summarization)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp" + filepath.Ext(path)
	if err := v.WriteConfigAs(tmp); err != nil {
		return fmt.Errorf("write selection: %w", err)
	}
	return os.Rename(tmp, path)
}

// SelectionStore holds the live selection. Reads merge the stored choice
// over the configured defaults.
type SelectionStore struct {
	mu       sync.RWMutex
	path     string
	defaults Selection
	current  Selection
}

// NewSelectionStore loads path, if set, and returns the store.
func NewSelectionStore(path string, defaults Selection) (*SelectionStore, error) {
	s := &SelectionStore{path: path, defaults: defaults}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file, which may be empty.
func (s *SelectionStore) Path() string { return s.path }

// Get returns the effective selection.
func (s *SelectionStore) Get() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Merge(s.defaults)
}

// Set stores sel and persists it when the store has a file.
func (s *SelectionStore) Set(sel Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path != "" {
		if err := SaveSelection(s.path, sel); err != nil {
			return err
		}
	}
	s.current = sel
	return nil
}

// Reload rereads the backing file. A store without a file keeps its value.
func (s *SelectionStore) Reload() error {
	if s.path == "" {
		return nil
	}
	sel, err := LoadSelection(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = sel
	s.mu.Unlock()
	return nil
}
