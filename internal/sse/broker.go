// Package sse implements a Server-Sent Events broker that pushes route,
// session and schedule changes to connected dashboards.
package sse

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeRouteChanged     = "route.changed"
	TypeSessionChanged   = "session.changed"
	TypeAccountsChanged  = "accounts.changed"
	TypeNoticesChanged   = "notices.changed"
	TypeCalendarChanged  = "calendar.changed"
	TypeRoleChanged      = "role.changed"
	TypeCatalogReloaded  = "search.reloaded"
	TypeScheduleCreated  = "schedule.created"
	TypeScheduleAssigned = "schedule.assigned"
	TypeScheduleUpdated  = "schedule.updated"
)

// Schedule change kinds.
const (
	ScheduleCreated  = "created"
	ScheduleAssigned = "assigned"
)

// historySize is how many framed events are kept for reconnecting clients.
const historySize = 128

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ScheduleChange describes one service job that was created or assigned.
// Day is the calendar day (YYYY-MM-DD) the job now sits on, if any.
type ScheduleChange struct {
	Kind      string `json:"kind"`
	ServiceID int64  `json:"service_id"`
	Day       string `json:"day,omitempty"`
}

// ScheduleRefresh is the payload of schedule.updated. It names every job and
// day touched since the previous refresh.
type ScheduleRefresh struct {
	ServiceIDs []int64  `json:"service_ids"`
	Days       []string `json:"days"`
}

// refreshBatch collects schedule changes between two refreshes.
type refreshBatch struct {
	services map[int64]struct{}
	days     map[string]struct{}
}

func (rb *refreshBatch) add(c ScheduleChange) {
	if rb.services == nil {
		rb.services = make(map[int64]struct{})
		rb.days = make(map[string]struct{})
	}
	rb.services[c.ServiceID] = struct{}{}
	if c.Day != "" {
		rb.days[c.Day] = struct{}{}
	}
}

func (rb *refreshBatch) empty() bool { return len(rb.services) == 0 }

// take returns the batch as a payload and resets it.
func (rb *refreshBatch) take() ScheduleRefresh {
	out := ScheduleRefresh{
		ServiceIDs: slices.Sorted(maps.Keys(rb.services)),
		Days:       slices.Sorted(maps.Keys(rb.days)),
	}
	if out.Days == nil {
		out.Days = []string{}
	}
	*rb = refreshBatch{}
	return out
}

type subscribeReq struct {
	ch chan []byte
	// after replays retained events with a larger id; 0 replays nothing.
	after uint64
}

type framed struct {
	id  uint64
	raw []byte
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients, event history and the pending schedule refresh). Public methods
// communicate with this loop through channels, so no mutexes are required.
type Broker struct {
	refreshMin time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	scheduleCh    chan ScheduleChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. refreshThrottle is the minimum spacing
// between schedule.updated events; changes inside the window are merged into
// the next one.
func NewBroker(refreshThrottle time.Duration) *Broker {
	if refreshThrottle <= 0 {
		refreshThrottle = 2 * time.Second
	}

	b := &Broker{
		refreshMin:    refreshThrottle,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		scheduleCh:    make(chan ScheduleChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	history := make([]framed, 0, historySize)
	var seq uint64

	var (
		pending     refreshBatch
		lastRefresh time.Time
		timer       *time.Timer
		timerC      <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload)

		if len(history) == historySize {
			history = append(history[:0], history[1:]...)
		}
		history = append(history, framed{id: seq, raw: raw})

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	flush := func() {
		lastRefresh = time.Now()
		broadcast(Event{Type: TypeScheduleUpdated, Data: pending.take()})
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			if req.after > 0 {
				for _, f := range history {
					if f.id <= req.after {
						continue
					}
					select {
					case req.ch <- f.raw:
					default:
					}
				}
			}
			clients[req.ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case c := <-b.scheduleCh:
			switch c.Kind {
			case ScheduleCreated:
				broadcast(Event{Type: TypeScheduleCreated, Data: c})
			case ScheduleAssigned:
				broadcast(Event{Type: TypeScheduleAssigned, Data: c})
			}
			pending.add(c)

			if wait := b.refreshMin - time.Since(lastRefresh); wait <= 0 {
				flush()
			} else if timerC == nil {
				timer = time.NewTimer(wait)
				timerC = timer.C
			}

		case <-timerC:
			timerC = nil
			if !pending.empty() {
				flush()
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeAfter(0)
}

// SubscribeAfter adds a new client and first queues the retained events whose
// id is greater than lastID, so a reconnecting client misses nothing still in
// history.
func (b *Broker) SubscribeAfter(lastID uint64) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscribeReq{ch: ch, after: lastID}:
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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishScheduleEvent announces a created or assigned job right away and
// folds it into the next schedule.updated refresh.
func (b *Broker) PublishScheduleEvent(c ScheduleChange) {
	if b.closed.Load() {
		return
	}
	select {
	case b.scheduleCh <- c:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). A Last-Event-ID
// header resumes after that event.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeAfter(lastID)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
