package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/voxkit/component"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/util"
)

// ProviderInfo is a registered provider as shown at startup.
type ProviderInfo struct {
	provider.Info
	Default bool
	Detail  string
}

// RouteInfo represents a registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// Setting is one effective configuration value worth showing at startup.
type Setting struct {
	Key   string
	Value string
}

// Summary collects what a process wired up and prints it once startup is
// done.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	providers       []ProviderInfo
	routes          []RouteInfo
	settings        []Setting
	out             io.Writer
}

// NewSummary creates a summary that prints to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: os.Stdout}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackProvider records a registered provider. isDefault marks the
// fallback target of its kind.
func (s *Summary) TrackProvider(info provider.Info, isDefault bool, detail string) {
	s.providers = append(s.providers, ProviderInfo{Info: info, Default: isDefault, Detail: detail})
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// TrackSetting records a configuration value.
func (s *Summary) TrackSetting(key, value string) {
	s.settings = append(s.settings, Setting{Key: key, Value: value})
}

// TrackSecret records a credential, showing only its first characters.
func (s *Summary) TrackSecret(key, value string) {
	if value == "" {
		value = "(unset)"
	} else {
		value = util.MaskSecret(value, 4)
	}
	s.TrackSetting(key, value)
}

// TrackSize records a byte count in human units.
func (s *Summary) TrackSize(key string, n int64) {
	s.TrackSetting(key, util.FormatSize(n))
}

// Display prints the summary including live health from registry.
func (s *Summary) Display(ctx context.Context, registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if registry != nil {
		var described []component.Description
		for _, c := range registry.All() {
			d := component.Description{Name: c.Name()}
			if dc, ok := c.(component.Describable); ok {
				d = dc.Describe()
				if d.Name == "" {
					d.Name = c.Name()
				}
			}
			described = append(described, d)
		}
		if len(described) > 0 {
			fmt.Fprintf(w, "\n📦 Components\n")
			for i, d := range described {
				line := d.Name
				if d.Type != "" {
					line += " [" + d.Type + "]"
				}
				if d.Details != "" {
					line += ": " + d.Details
				}
				fmt.Fprintf(w, "   %s %s\n", branch(i, len(described)), line)
			}
		}
	}

	if len(s.providers) > 0 {
		fmt.Fprintf(w, "\n🎙️  Providers (%d)\n", len(s.providers))
		for i, p := range s.providers {
			line := fmt.Sprintf("%-16s %-11s %-5s", p.ID, p.Kind, p.Class)
			if p.Default {
				line += " (default)"
			}
			if p.Detail != "" {
				line += " " + p.Detail
			}
			fmt.Fprintf(w, "   %s %s\n", branch(i, len(s.providers)), strings.TrimRight(line, " "))
		}
	}

	if len(s.settings) > 0 {
		fmt.Fprintf(w, "\n⚙️  Settings\n")
		for i, st := range s.settings {
			fmt.Fprintf(w, "   %s %s = %s\n", branch(i, len(s.settings)), st.Key, st.Value)
		}
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", branch(i, len(s.routes)), r.Method, r.Path, r.Handler)
		}
	}

	if registry != nil {
		results := registry.HealthAll(ctx)
		if len(results) > 0 {
			fmt.Fprintf(w, "\n🏥 Health Check\n")
			healthy := 0
			for i, h := range results {
				msg := ""
				if h.Message != "" {
					msg = " (" + h.Message + ")"
				}
				if h.Status == component.StatusHealthy {
					healthy++
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n", branch(i, len(results)), healthStatusIcon(h.Status), h.Name, h.Status, msg)
			}
			if healthy == len(results) {
				fmt.Fprintf(w, "\n✅ All components healthy (%d/%d)\n", healthy, len(results))
			} else {
				fmt.Fprintf(w, "\n⚠️  Some components have issues (%d/%d healthy)\n", healthy, len(results))
			}
		}
	}
	fmt.Fprintln(w)
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
