package server

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kbukum/voxkit/component"
)

const componentName = "http-server"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs a Server under the bootstrap lifecycle.
type Component struct {
	server  *Server
	started atomic.Bool
}

// NewComponent wraps s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

func (c *Component) Name() string { return componentName }

func (c *Component) Start(ctx context.Context) error {
	if err := c.server.Start(ctx); err != nil {
		return err
	}
	c.started.Store(true)
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.started.Store(false)
	return c.server.Stop(ctx)
}

func (c *Component) Health(context.Context) component.Health {
	if !c.started.Load() {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	cfg := c.server.config
	proto := "h2c"
	if cfg.TLS.IsEnabled() {
		proto = "tls"
	}
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: fmt.Sprintf("%s %s, max body %s", c.server.Addr(), proto, cfg.MaxBodySize),
		Port:    cfg.Port,
	}
}
