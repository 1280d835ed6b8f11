package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/telemetry"
)

const (
	// EventConnected is the first event on every stream.
	EventConnected = "connected"

	defaultKeepAlive = 30 * time.Second
	clientBuffer     = 64
)

// ConnectedEvent is the payload of the connected event.
type ConnectedEvent struct {
	ClientID string `json:"client_id"`
}

type message struct {
	event string
	data  []byte
}

type client struct {
	id     string
	events chan message
}

// Broker fans telemetry events out to SSE clients.
type Broker struct {
	mu        sync.Mutex
	clients   map[*client]struct{}
	closed    bool
	snapshot  func() *telemetry.Session
	keepAlive time.Duration
	log       *logger.Logger
}

var (
	_ telemetry.Sink = (*Broker)(nil)
	_ http.Handler   = (*Broker)(nil)
)

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets the interval of keep-alive comments.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.keepAlive = d
		}
	}
}

// NewBroker creates a Broker. snapshot, if set, supplies the open session
// replayed to each new client.
func NewBroker(snapshot func() *telemetry.Session, opts ...Option) *Broker {
	b := &Broker{
		clients:   make(map[*client]struct{}),
		snapshot:  snapshot,
		keepAlive: defaultKeepAlive,
		log:       logger.WithComponent("session-events"),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Clients returns the number of connected clients.
func (b *Broker) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Emit queues ev for every client. A client whose queue is full is dropped
// rather than stalling the pipeline.
func (b *Broker) Emit(_ context.Context, ev telemetry.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := message{event: string(ev.Type), data: data}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.events <- msg:
		default:
			b.log.Warn("dropping slow client", logger.Fields("client_id", c.id))
			b.removeLocked(c)
		}
	}
	return nil
}

// Close ends every stream and refuses new clients.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for c := range b.clients {
		b.removeLocked(c)
	}
}

func (b *Broker) register() (*client, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false
	}
	c := &client{id: uuid.NewString(), events: make(chan message, clientBuffer)}
	b.clients[c] = struct{}{}
	return c, true
}

func (b *Broker) remove(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(c)
}

func (b *Broker) removeLocked(c *client) {
	if _, ok := b.clients[c]; !ok {
		return
	}
	delete(b.clients, c)
	close(c.events)
}

// ServeHTTP streams events until the client leaves or the broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	// The server's WriteTimeout must not cut a long-lived stream.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		b.log.Debug("could not clear write deadline", logger.Fields(logger.FieldError, err.Error()))
	}

	c, ok := b.register()
	if !ok {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer b.remove(c)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	connected, _ := json.Marshal(ConnectedEvent{ClientID: c.id})
	write(w, message{event: EventConnected, data: connected})
	if b.snapshot != nil {
		if s := b.snapshot(); s != nil {
			data, _ := json.Marshal(telemetry.Event{
				Type:      telemetry.EventSessionStarted,
				SessionID: s.ID,
				Time:      time.Now(),
				Session:   s,
			})
			write(w, message{event: string(telemetry.EventSessionStarted), data: data})
		}
	}
	flusher.Flush()
	b.log.Debug("client connected", logger.Fields("client_id", c.id, "remote", r.RemoteAddr))

	keepAlive := time.NewTicker(b.keepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			b.log.Debug("client disconnected", logger.Fields("client_id", c.id))
			return
		case msg, ok := <-c.events:
			if !ok {
				return
			}
			write(w, msg)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func write(w http.ResponseWriter, m message) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", m.event, m.data)
}
