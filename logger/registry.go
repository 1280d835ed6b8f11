package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// Component loggers resolve by name through Get. Names without an entry
// fall back to the global logger tagged with the name, so packages can call
// Get at construction time whether or not an override exists.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Logger)
)

// Register stores a named component logger.
func Register(name string, l *Logger) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = l
}

// Get returns the logger of a component such as "pipeline" or
// "transcription".
func Get(name string) *Logger {
	registryMu.RLock()
	l, ok := registry[name]
	registryMu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// registerComponents replaces the registry with one logger per level
// override. Unparseable levels were rejected by Config.Validate and are
// skipped here.
func registerComponents(base *Logger, levels map[string]string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]*Logger, len(levels))
	for name, level := range levels {
		lvl, err := zerolog.ParseLevel(level)
		if err != nil {
			continue
		}
		l := base.WithComponent(name)
		l.logger = l.logger.Level(lvl)
		registry[name] = l
	}
}
