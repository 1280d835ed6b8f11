package observability

import (
	"github.com/kbukum/voxkit/provider"
)

// HealthStatus represents the health state of a component or service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of one provider.
type Health struct {
	Name         string         `json:"name"`
	Kind         provider.Kind  `json:"kind,omitempty"`
	Class        provider.Class `json:"class,omitempty"`
	Status       HealthStatus   `json:"status"`
	Message      string         `json:"message,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"`
}

// ProviderHealth converts a probe result into a component entry.
func ProviderHealth(info provider.Info, h provider.Health) Health {
	status := HealthStatusUp
	if !h.OK {
		status = HealthStatusDown
	}
	return Health{
		Name:         info.ID,
		Kind:         info.Kind,
		Class:        info.Class,
		Status:       status,
		Message:      h.Details,
		Capabilities: h.Capabilities,
	}
}

// ServiceHealth describes the overall health of a service and its providers.
// The service is down only when every component is down; some components
// down means degraded.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`

	down int
}

// NewServiceHealth creates a ServiceHealth with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// AddComponent adds a component health result and recomputes the overall
// status.
func (sh *ServiceHealth) AddComponent(ch Health) {
	sh.Components = append(sh.Components, ch)
	if ch.Status == HealthStatusDown {
		sh.down++
	}

	switch {
	case sh.down > 0 && sh.down == len(sh.Components):
		sh.Status = HealthStatusDown
	case sh.down > 0 || ch.Status == HealthStatusDegraded:
		sh.Status = HealthStatusDegraded
	}
}
