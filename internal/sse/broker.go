// Package sse implements a Server-Sent Events broker for audit and corpus
// change notifications.
//
// Every frame carries a sequence id. The broker keeps the most recent frames
// so a client reconnecting with Last-Event-ID receives what it missed.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types.
const (
	TypeAuditCompleted = "audit.completed"
	TypeAuditStale     = "audit.stale"
	TypeDocumentPrefix = "document."
)

// AuditEvent is the payload of an audit.completed event.
type AuditEvent struct {
	RunID       string  `json:"run_id,omitempty"`
	Fingerprint string  `json:"fingerprint"`
	Passed      bool    `json:"passed"`
	Documents   int     `json:"documents"`
	Edges       int     `json:"edges"`
	Errors      int     `json:"errors"`
	Density     float64 `json:"density"`
	Stored      bool    `json:"stored"`
}

// DocumentEvent is the payload of a document.* event.
type DocumentEvent struct {
	Path string `json:"path"`
}

// Defaults.
const (
	DefaultStaleThrottle = 2 * time.Second
	DefaultReplay        = 128
	DefaultHeartbeat     = 25 * time.Second
	clientBuffer         = 64
)

// frame is one encoded event.
type frame struct {
	id  uint64
	raw []byte
}

type subscription struct {
	ch     chan []byte
	lastID uint64
}

// Option configures a Broker.
type Option func(*Broker)

// WithStaleThrottle sets the minimum interval between audit.stale events.
func WithStaleThrottle(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.staleMin = d
		}
	}
}

// WithReplay sets how many recent frames are kept for reconnecting clients.
// Zero disables replay.
func WithReplay(n int) Option {
	return func(b *Broker) {
		if n >= 0 {
			b.replay = n
		}
	}
}

// WithHeartbeat sets the interval of keep-alive comments on idle streams.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.heartbeat = d
		}
	}
}

// Broker fans events out to SSE clients.
//
// A single loop goroutine owns the client set, the replay buffer, the id
// counter and the stale throttle; public methods talk to it over channels.
type Broker struct {
	staleMin  time.Duration
	replay    int
	heartbeat time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker and starts its loop. Close stops it.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		staleMin:      DefaultStaleThrottle,
		replay:        DefaultReplay,
		heartbeat:     DefaultHeartbeat,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func encodeFrame(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "id: %d\nevent: %s\ndata: %s\n\n", id, event.Type, payload)
	return buf.Bytes(), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		backlog   []frame
		nextID    uint64
		lastStale time.Time
	)

	deliver := func(ch chan []byte, raw []byte) {
		select {
		case ch <- raw:
		default:
			// Slow client: drop rather than stall the loop.
		}
	}

	broadcast := func(event Event) {
		nextID++
		raw, err := encodeFrame(nextID, event)
		if err != nil {
			return
		}
		if b.replay > 0 {
			backlog = append(backlog, frame{id: nextID, raw: raw})
			if len(backlog) > b.replay {
				backlog = backlog[len(backlog)-b.replay:]
			}
		}
		for ch := range clients {
			deliver(ch, raw)
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			if sub.lastID > 0 {
				for _, f := range backlog {
					if f.id > sub.lastID {
						deliver(sub.ch, f.raw)
					}
				}
			}
			clients[sub.ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)
			if strings.HasPrefix(event.Type, TypeDocumentPrefix) {
				if now := time.Now(); now.Sub(lastStale) >= b.staleMin {
					lastStale = now
					broadcast(Event{Type: TypeAuditStale, Data: struct{}{}})
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is idempotent.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client. Frames newer than lastID still in the replay
// buffer are queued first; lastID zero means live events only.
func (b *Broker) Subscribe(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- subscription{ch: ch, lastID: lastID}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients. Publishing a document.*
// event also emits a throttled audit.stale event.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishAudit announces a completed audit.
func (b *Broker) PublishAudit(e AuditEvent) {
	b.Publish(Event{Type: TypeAuditCompleted, Data: e})
}

// PublishDocumentEvent publishes a document change (created, updated,
// deleted, renamed).
func (b *Broker) PublishDocumentEvent(kind, path string) {
	b.Publish(Event{Type: TypeDocumentPrefix + kind, Data: DocumentEvent{Path: path}})
}

// lastEventID reads the resume point from the Last-Event-ID header, or the
// lastEventId query parameter for clients that cannot set headers.
func lastEventID(r *http.Request) uint64 {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("lastEventId")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(lastEventID(r))
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.heartbeat)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
