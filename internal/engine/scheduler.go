package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// ErrDuplicateCommand is returned by Enqueue for an ID already seen.
var ErrDuplicateCommand = errors.New("duplicate command id")

// ErrNilCommand is returned by Enqueue for a nil command.
var ErrNilCommand = errors.New("nil command")

type pending struct {
	cmd  Command
	late bool
}

// Scheduler buckets commands by target tick and runs each exactly once, in
// ascending ID order within its tick. Enqueue is safe from any goroutine;
// ProcessTick is called by the tick pipeline only.
type Scheduler struct {
	mu      sync.Mutex
	next    uint64 // next tick ProcessTick will run
	buckets map[uint64][]pending
	seen    map[CommandID]struct{}

	history []ExecutionRecord
	records map[CommandID]ExecutionRecord
	limit   int

	now func() time.Time
}

// NewScheduler creates a scheduler whose first processed tick is start.
// historyLimit bounds the retained execution records (0 keeps all).
func NewScheduler(start uint64, historyLimit int) *Scheduler {
	return &Scheduler{
		next:    start,
		buckets: make(map[uint64][]pending),
		seen:    make(map[CommandID]struct{}),
		records: make(map[CommandID]ExecutionRecord),
		limit:   historyLimit,
		now:     time.Now,
	}
}

// SetClock replaces the wall clock used for ExecutedAt stamps.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Enqueue adds cmd to the bucket of its target tick. A command whose tick
// has already been processed is clamped to the next tick and reported as
// late. Reusing an ID is an error.
func (s *Scheduler) Enqueue(cmd Command) (late bool, err error) {
	if cmd == nil {
		return false, ErrNilCommand
	}
	id := cmd.ID()
	if id == "" {
		return false, fmt.Errorf("enqueue %s: empty command id", cmd.Kind())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[id]; dup {
		return false, fmt.Errorf("enqueue %s: %w", id, ErrDuplicateCommand)
	}
	s.seen[id] = struct{}{}

	tick := cmd.TargetTick()
	if tick < s.next {
		tick, late = s.next, true
	}
	s.buckets[tick] = append(s.buckets[tick], pending{cmd: cmd, late: late})
	return late, nil
}

// CurrentTick returns the next tick ProcessTick will run.
func (s *Scheduler) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Pending returns the number of queued commands across all ticks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.buckets {
		n += len(b)
	}
	return n
}

// PendingAt returns the number of commands queued for tick.
func (s *Scheduler) PendingAt(tick uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets[tick])
}

// ProcessTick runs every command due at the current tick against w and
// returns their records in execution order. The bucket is removed and the
// tick advanced before any command runs, so a command enqueued concurrently
// for this tick is clamped to the next one instead of being lost.
func (s *Scheduler) ProcessTick(w *World) []ExecutionRecord {
	s.mu.Lock()
	tick := s.next
	due := s.buckets[tick]
	delete(s.buckets, tick)
	s.next++
	now := s.now
	s.mu.Unlock()

	w.invariant(w.Tick == tick, "scheduler tick %d does not match world tick %d", tick, w.Tick)

	slices.SortFunc(due, func(a, b pending) int {
		return strings.Compare(string(a.cmd.ID()), string(b.cmd.ID()))
	})

	records := make([]ExecutionRecord, 0, len(due))
	for _, p := range due {
		rec := s.run(w, p, tick)
		rec.ExecutedAt = now()
		records = append(records, rec)
	}

	s.mu.Lock()
	for _, rec := range records {
		s.history = append(s.history, rec)
		s.records[rec.ID] = rec
	}
	s.trim()
	s.mu.Unlock()
	return records
}

func (s *Scheduler) run(w *World, p pending, tick uint64) (rec ExecutionRecord) {
	cmd := p.cmd
	rec = ExecutionRecord{
		Command:    cmd,
		ID:         cmd.ID(),
		Kind:       cmd.Kind(),
		Player:     cmd.Player(),
		TargetTick: cmd.TargetTick(),
		Tick:       tick,
		Late:       p.late,
	}
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*InvariantError); ok && w.Config.Engine.Debug {
				panic(ie)
			}
			rec.Result = Fail(StatusFailed, "command panicked: %v", r)
			w.Emit(LevelError, CatCommand, fmt.Sprintf("%s %s panicked: %v", cmd.Kind(), cmd.ID(), r),
				map[string]any{"command_id": string(cmd.ID())})
		}
	}()

	if p.late {
		w.Emit(LevelWarning, CatCommand,
			fmt.Sprintf("%s %s targeted tick %d, running late at %d", cmd.Kind(), cmd.ID(), cmd.TargetTick(), tick),
			map[string]any{"command_id": string(cmd.ID()), "target_tick": cmd.TargetTick()})
	}

	res := cmd.Validate(w)
	if res.OK() {
		res = cmd.Execute(w)
	}
	rec.Result = res
	return rec
}

func (s *Scheduler) trim() {
	if s.limit <= 0 || len(s.history) <= s.limit {
		return
	}
	drop := len(s.history) - s.limit
	for _, rec := range s.history[:drop] {
		delete(s.records, rec.ID)
	}
	s.history = slices.Clone(s.history[drop:])
}

// Record returns the execution record of a command, if it has run and is
// still retained.
func (s *Scheduler) Record(id CommandID) (ExecutionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec, ok
}

// History returns the retained records, oldest first.
func (s *Scheduler) History() []ExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// RecordsAt returns the retained records that ran at tick.
func (s *Scheduler) RecordsAt(tick uint64) []ExecutionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ExecutionRecord
	for _, rec := range s.history {
		if rec.Tick == tick {
			out = append(out, rec)
		}
	}
	return out
}
