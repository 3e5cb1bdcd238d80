package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Level classifies an event for the UI and log layers.
type Level uint8

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

var levelNames = [...]string{"info", "success", "warning", "error"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("level(%d)", l)
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(b []byte) error {
	for i, n := range levelNames {
		if n == string(b) {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event level %q", b)
}

// Event is a notable state transition, emitted at the point it happens.
type Event struct {
	Tick     uint64         `json:"tick"`
	Level    Level          `json:"level"`
	Category string         `json:"category"` // "construction", "worker", "death", ...
	Message  string         `json:"message"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// Event categories.
const (
	CatCommand      = "command"
	CatConstruction = "construction"
	CatWorker       = "worker"
	CatArrival      = "arrival"
	CatDeath        = "death"
	CatFamily       = "family"
	CatWildlife     = "wildlife"
	CatResources    = "resources"
	CatPathing      = "pathing"
	CatInvariant    = "invariant"
)

// Sink receives events from the tick pipeline. Emit is called while the
// tick is in progress and must not call back into the engine.
type Sink interface {
	Emit(Event)
}

// NopSink discards every event.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Event) {}

// SlogSink writes events to a structured logger.
type SlogSink struct {
	log *slog.Logger
}

// NewSlogSink creates a sink that logs through l. A nil l uses slog.Default.
func NewSlogSink(l *slog.Logger) *SlogSink {
	if l == nil {
		l = slog.Default()
	}
	return &SlogSink{log: l}
}

// Emit implements Sink.
func (s *SlogSink) Emit(ev Event) {
	lvl := slog.LevelInfo
	switch ev.Level {
	case LevelWarning:
		lvl = slog.LevelWarn
	case LevelError:
		lvl = slog.LevelError
	}
	attrs := []slog.Attr{
		slog.Uint64("tick", ev.Tick),
		slog.String("category", ev.Category),
		slog.String("level", ev.Level.String()),
	}
	for _, k := range sortedKeys(ev.Meta) {
		attrs = append(attrs, slog.Any(k, ev.Meta[k]))
	}
	s.log.LogAttrs(context.Background(), lvl, ev.Message, attrs...)
}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// MemorySink keeps the most recent events in a ring buffer. A zero limit
// keeps everything. It is safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

// NewMemorySink creates a sink retaining at most limit events.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: limit}
}

// Emit implements Sink.
func (m *MemorySink) Emit(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	if m.limit > 0 && len(m.events) > m.limit {
		m.events = m.events[len(m.events)-m.limit:]
	}
}

// Events returns a copy of the retained events, oldest first.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Since returns retained events with Tick >= tick.
func (m *MemorySink) Since(tick uint64) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, ev := range m.events {
		if ev.Tick >= tick {
			out = append(out, ev)
		}
	}
	return out
}

// Count returns how many retained events are in category.
func (m *MemorySink) Count(category string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.Category == category {
			n++
		}
	}
	return n
}

// Reset drops every retained event.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
