package component

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	events   *[]string
}

func (s *stubComponent) Name() string { return s.name }

func (s *stubComponent) Start(context.Context) error {
	if s.events != nil {
		*s.events = append(*s.events, "start:"+s.name)
	}
	return s.startErr
}

func (s *stubComponent) Stop(context.Context) error {
	if s.events != nil {
		*s.events = append(*s.events, "stop:"+s.name)
	}
	return s.stopErr
}

func (s *stubComponent) Health(context.Context) Health { return s.health }

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubComponent{name: "http-server"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubComponent{name: "http-server"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if r.Get("http-server") == nil || r.Get("missing") != nil {
		t.Error("Get should find only registered components")
	}
}

func TestLifecycleOrder(t *testing.T) {
	r := NewRegistry()
	var events []string
	for _, name := range []string{"temp-sweeper", "selection-watcher", "http-server"} {
		_ = r.Register(&stubComponent{name: name, events: &events})
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	want := []string{
		"start:temp-sweeper", "start:selection-watcher", "start:http-server",
		"stop:http-server", "stop:selection-watcher", "stop:temp-sweeper",
	}
	if !equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	if len(r.All()) != 3 {
		t.Errorf("All = %d components", len(r.All()))
	}
}

func TestStartFailureStopsOnlyStarted(t *testing.T) {
	r := NewRegistry()
	var events []string
	_ = r.Register(&stubComponent{name: "a", events: &events})
	_ = r.Register(&stubComponent{name: "b", events: &events, startErr: errors.New("port in use")})
	_ = r.Register(&stubComponent{name: "c", events: &events})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected StartAll to fail")
	}
	events = nil
	_ = r.StopAll(context.Background())
	if !equal(events, []string{"stop:a"}) {
		t.Errorf("only started components should stop, got %v", events)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubComponent{name: "a", stopErr: errors.New("a failed")})
	_ = r.Register(&stubComponent{name: "b", stopErr: errors.New("b failed")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "a failed") || !strings.Contains(err.Error(), "b failed") {
		t.Errorf("expected both stop errors, got %v", err)
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubComponent{name: "a", health: Health{Name: "a", Status: StatusHealthy}})
	_ = r.Register(&stubComponent{name: "b", health: Health{Name: "b", Status: StatusDegraded, Message: "slow"}})

	got := r.HealthAll(context.Background())
	if len(got) != 2 || got[0].Status != StatusHealthy || got[1].Status != StatusDegraded {
		t.Errorf("unexpected health %+v", got)
	}
}

func TestLoop(t *testing.T) {
	ticks := make(chan struct{}, 10)
	l := NewLoop("temp-sweeper", Description{Type: "worker", Details: "every 1h"}, func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ticks <- struct{}{}:
				time.Sleep(time.Millisecond)
			}
		}
	})

	if h := l.Health(context.Background()); h.Status != StatusUnhealthy {
		t.Errorf("loop should be unhealthy before Start, got %+v", h)
	}
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("loop did not run")
	}
	if h := l.Health(context.Background()); h.Status != StatusHealthy {
		t.Errorf("running loop should be healthy, got %+v", h)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if d := l.Describe(); d.Name != "temp-sweeper" || d.Type != "worker" {
		t.Errorf("unexpected description %+v", d)
	}
}

func TestLoop_FailureIsUnhealthy(t *testing.T) {
	l := NewLoop("selection-watcher", Description{}, func(context.Context) error {
		return errors.New("too many open files")
	})
	_ = l.Start(context.Background())
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h := l.Health(context.Background()); h.Status == StatusUnhealthy {
			if h.Message != "too many open files" {
				t.Errorf("message = %q", h.Message)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("failed loop should report unhealthy")
}
