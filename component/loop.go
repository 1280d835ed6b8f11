package component

import (
	"context"
	"sync"
)

// Loop runs a blocking function as a component. Start launches run in a
// goroutine with its own context; Stop cancels that context and waits for
// run to return. A run that returns an error before Stop marks the
// component unhealthy.
type Loop struct {
	name string
	desc Description
	run  func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewLoop wraps run. desc is shown in the startup summary.
func NewLoop(name string, desc Description, run func(ctx context.Context) error) *Loop {
	return &Loop{name: name, desc: desc, run: run}
}

func (l *Loop) Name() string { return l.name }

// Start launches the loop. The loop context is detached from ctx, which
// only covers startup.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.cancel = cancel
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		err := l.run(loopCtx)
		if err != nil && loopCtx.Err() == nil {
			l.mu.Lock()
			l.err = err
			l.mu.Unlock()
		}
	}()
	return nil
}

// Stop cancels the loop and waits for it, or for ctx.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if done == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) Health(context.Context) Health {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.err != nil:
		return Health{Name: l.name, Status: StatusUnhealthy, Message: l.err.Error()}
	case l.done == nil:
		return Health{Name: l.name, Status: StatusUnhealthy, Message: "not started"}
	default:
		return Health{Name: l.name, Status: StatusHealthy}
	}
}

func (l *Loop) Describe() Description {
	d := l.desc
	if d.Name == "" {
		d.Name = l.name
	}
	return d
}
