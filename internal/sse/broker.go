// Package sse streams the calendar change feed (GET /api/events) to
// browser clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	EventDocumentCreated = "document.created"
	EventDocumentUpdated = "document.updated"
	EventDocumentDeleted = "document.deleted"
	EventCalendarUpdated = "calendar.updated"
)

var documentEventTypes = map[string]string{
	"created": EventDocumentCreated,
	"updated": EventDocumentUpdated,
	"deleted": EventDocumentDeleted,
}

// Event is one message on the feed. Data is sent as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame renders an event in text/event-stream wire form.
func (e Event) frame() ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", e.Type, payload), nil
}

type documentChange struct {
	kind string
	id   string
}

const (
	clientRetry        = 3 * time.Second
	clientBuffer       = 64
	defaultCalendarGap = 2 * time.Second
)

// Option configures a Broker.
type Option func(*Broker)

// WithHeartbeat makes ServeHTTP write a comment line every d so idle
// connections survive proxies. Zero disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) {
		b.heartbeat = d
	}
}

// Broker fans document changes out to every connected client and tells
// calendar views when to refetch.
//
// All client bookkeeping lives in the run goroutine; the exported methods
// hand work to it over channels.
type Broker struct {
	calendarGap time.Duration
	heartbeat   time.Duration

	join    chan chan []byte
	leave   chan chan []byte
	events  chan Event
	changes chan documentChange
	counts  chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. calendarGap is the minimum spacing between two
// calendar.updated events; a non-positive value means two seconds.
func NewBroker(calendarGap time.Duration, opts ...Option) *Broker {
	if calendarGap <= 0 {
		calendarGap = defaultCalendarGap
	}

	b := &Broker{
		calendarGap: calendarGap,
		join:        make(chan chan []byte),
		leave:       make(chan chan []byte),
		events:      make(chan Event, 256),
		changes:     make(chan documentChange, 256),
		counts:      make(chan chan int),
		stopCh:      make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// calendarGate spaces calendar.updated events at least gap apart. A change
// landing inside the gap is announced once, when the gap ends, so the last
// edit of a burst always reaches calendar views.
type calendarGate struct {
	gap     time.Duration
	last    time.Time
	pending *time.Timer
}

// changed reports whether calendar.updated is due now. Otherwise it arms
// the trailing timer unless one is already armed.
func (g *calendarGate) changed(now time.Time) bool {
	if g.pending != nil {
		return false
	}
	if wait := g.gap - now.Sub(g.last); wait > 0 {
		g.pending = time.NewTimer(wait)
		return false
	}
	g.last = now
	return true
}

func (g *calendarGate) due() <-chan time.Time {
	if g.pending == nil {
		return nil
	}
	return g.pending.C
}

func (g *calendarGate) fired(now time.Time) {
	g.pending = nil
	g.last = now
}

func (g *calendarGate) stop() {
	if g.pending != nil {
		g.pending.Stop()
	}
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	gate := calendarGate{gap: b.calendarGap}
	defer gate.stop()

	send := func(e Event) {
		msg, err := e.frame()
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Slow client; it misses this event.
			}
		}
	}
	calendarUpdated := Event{Type: EventCalendarUpdated, Data: map[string]string{}}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.join:
			clients[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case e := <-b.events:
			send(e)

		case c := <-b.changes:
			typ, ok := documentEventTypes[c.kind]
			if !ok {
				continue
			}
			send(Event{Type: typ, Data: map[string]string{"id": c.id}})
			if gate.changed(time.Now()) {
				send(calendarUpdated)
			}

		case <-gate.due():
			gate.fired(time.Now())
			send(calendarUpdated)

		case resp := <-b.counts:
			resp <- len(clients)
		}
	}
}

// Close stops the broker and ends every open stream. It is safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed when the client
// unsubscribes or the broker closes.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.join <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe drops a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of open streams.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.counts <- resp:
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

// Publish sends an arbitrary event to every client.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- event:
	case <-b.stopped:
	}
}

// PublishDocumentEvent reports a catalog change. kind is "created",
// "updated" or "deleted"; anything else is ignored. Each change also
// schedules a calendar.updated, spaced by the broker's calendar gap.
func (b *Broker) PublishDocumentEvent(kind, id string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changes <- documentChange{kind: kind, id: id}:
	case <-b.stopped:
	}
}

// ServeHTTP streams the feed until the client goes away or the broker
// closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", clientRetry.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var beat <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		beat = t.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-beat:
			_, _ = w.Write([]byte(": ping\n\n"))
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
		}
		flusher.Flush()
	}
}
