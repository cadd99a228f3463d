// Package sse streams archive additions to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/evmaki/pothos/internal/models"
)

// EventArchiveUpdated summarises the additions since the previous one. It
// is sent at most once per throttle interval.
const EventArchiveUpdated = "archive.updated"

// DefaultThrottle is used when NewBroker is given a non-positive interval.
const DefaultThrottle = 2 * time.Second

const (
	clientBuffer = 64
	retryMillis  = 3000
	heartbeat    = 15 * time.Second
)

// Event is an arbitrary event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Added is the payload of a "<category>.added" event.
type Added struct {
	Category models.Category `json:"category"`
	Name     string          `json:"name"`
}

// Updated is the payload of archive.updated: files added per category
// since the previous archive.updated.
type Updated struct {
	Added map[models.Category]int `json:"added"`
}

// AddedType is the event type announcing a new file of category, e.g.
// "video.added".
func AddedType(category models.Category) string {
	return string(category) + ".added"
}

// Broker fans events out to subscribed clients. All state lives in a hub
// owned by one loop goroutine; public methods hand it closures.
type Broker struct {
	throttle time.Duration

	ops     chan func(*hub)
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type hub struct {
	throttle time.Duration
	clients  map[chan []byte]struct{}
	seq      uint64

	lastUpdate time.Time
	pending    map[models.Category]int
	trailing   *time.Timer
}

// NewBroker starts a broker that sends at most one archive.updated per
// throttle interval. Additions inside the interval are folded into a
// trailing update sent when it ends.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	b := &Broker{
		throttle: throttle,
		ops:      make(chan func(*hub)),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	h := &hub{
		throttle: b.throttle,
		clients:  make(map[chan []byte]struct{}),
		pending:  make(map[models.Category]int),
	}
	for {
		select {
		case <-b.done:
			if h.trailing != nil {
				h.trailing.Stop()
			}
			for ch := range h.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		case now := <-h.due():
			h.trailing = nil
			h.flush(now)
		}
	}
}

// do runs op on the loop goroutine. It reports false once the broker is
// closed.
func (b *Broker) do(op func(*hub)) bool {
	select {
	case b.ops <- op:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the loop and closes every subscriber channel. It is safe to
// call more than once.
func (b *Broker) Close() {
	b.once.Do(func() { close(b.done) })
	<-b.stopped
}

// Subscribe registers a client. The channel is closed by Unsubscribe or
// Close; it is returned closed if the broker already is.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.do(func(h *hub) { h.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.do(func(h *hub) { resp <- len(h.clients) }) {
		return 0
	}
	return <-resp
}

// Publish broadcasts event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.do(func(h *hub) { h.broadcast(event.Type, event.Data) })
}

// PublishFileAdded announces a stored file. Its signature matches the
// archive service's onAdded hook.
func (b *Broker) PublishFileAdded(category models.Category, name string) {
	b.do(func(h *hub) { h.added(category, name, time.Now()) })
}

func (h *hub) added(category models.Category, name string, now time.Time) {
	h.broadcast(AddedType(category), Added{Category: category, Name: name})
	h.pending[category]++

	if h.trailing != nil {
		return
	}
	if wait := h.throttle - now.Sub(h.lastUpdate); wait > 0 {
		h.trailing = time.NewTimer(wait)
		return
	}
	h.flush(now)
}

// due is the trailing update timer channel, nil when none is scheduled.
func (h *hub) due() <-chan time.Time {
	if h.trailing == nil {
		return nil
	}
	return h.trailing.C
}

func (h *hub) flush(now time.Time) {
	if len(h.pending) == 0 {
		return
	}
	h.broadcast(EventArchiveUpdated, Updated{Added: h.pending})
	h.pending = make(map[models.Category]int)
	h.lastUpdate = now
}

// broadcast frames one event and offers it to every client. Slow clients
// whose buffer is full miss the event.
func (h *hub) broadcast(eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Warn("sse: marshal event", slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}
	h.seq++
	msg := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, eventType, payload))
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// ServeHTTP streams events to one client (GET /events) until it
// disconnects or the broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
