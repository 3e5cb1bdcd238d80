package api

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/talgya/hamlet/internal/engine"
)

// subscriberBuffer is how many frames a slow stream client may fall behind
// before frames are dropped for it.
const subscriberBuffer = 16

// TickFrame is what stream clients receive after every tick.
type TickFrame struct {
	Type     string                   `json:"type"` // "tick"
	Tick     uint64                   `json:"tick"`
	Digest   string                   `json:"digest"`
	Living   int                      `json:"living"`
	Animals  int                      `json:"animals"`
	Stock    map[string]int           `json:"stock"`
	Records  []engine.ExecutionRecord `json:"records,omitempty"`
	Events   []engine.Event           `json:"events,omitempty"`
	Duration string                   `json:"duration"`
}

// Hub fans tick frames out to stream subscribers. Publishing never blocks
// the tick loop.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan []byte
	closed bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan []byte)}
}

// Attach publishes every tick e runs.
func (h *Hub) Attach(e *engine.Engine) {
	e.OnTick(h.Publish)
}

// Publish encodes rep once and offers it to every subscriber.
func (h *Hub) Publish(rep engine.TickReport) {
	h.mu.Lock()
	n := len(h.subs)
	h.mu.Unlock()
	if n == 0 {
		return
	}

	frame := TickFrame{
		Type:     "tick",
		Tick:     rep.Tick,
		Digest:   rep.Digest,
		Records:  rep.Records,
		Events:   rep.Events,
		Duration: rep.Duration.String(),
	}
	if s := rep.Snapshot; s != nil {
		frame.Living = s.Village.Living
		frame.Stock = s.Village.Stocks
		for _, a := range s.Wildlife {
			if a.Alive {
				frame.Animals++
			}
		}
	}
	b, err := json.Marshal(frame)
	if err != nil {
		slog.Error("encode tick frame", "tick", rep.Tick, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- b:
		default:
			slog.Debug("stream subscriber lagging, frame dropped", "sub_id", id, "tick", rep.Tick)
		}
	}
}

// Subscribe registers a subscriber. The channel is closed by Unsubscribe or
// Close.
func (h *Hub) Subscribe() (uint64, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan []byte, subscriberBuffer)
	if h.closed {
		close(ch)
		return h.nextID, ch
	}
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

// Unsubscribe removes a subscriber.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.closed = true
}
