package engine

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// pausePoll is how often a paused loop checks for a speed change.
const pausePoll = 50 * time.Millisecond

// TickReport describes one processed tick. Records and Events belong to the
// tick that ran; Snapshot and Digest describe the state after it.
type TickReport struct {
	Tick     uint64
	Records  []ExecutionRecord
	Events   []Event
	Duration time.Duration
	Digest   string
	Snapshot *Snapshot
}

// Engine drives a World forward. Step runs one whole tick under a single
// lock; everything outside the tick reads published snapshots.
type Engine struct {
	Interval time.Duration // wall time per tick at speed 1

	mu    sync.Mutex
	world *World
	sched *Scheduler

	snap  atomic.Pointer[Snapshot]
	speed atomic.Uint64 // float64 bits

	hooksMu sync.Mutex
	hooks   []func(TickReport)

	stop     chan struct{}
	stopOnce sync.Once
}

// NewEngine wraps w. The scheduler starts at the world's current tick and
// an initial snapshot is published immediately.
func NewEngine(w *World) *Engine {
	e := &Engine{
		Interval: w.Config.Engine.Interval,
		world:    w,
		sched:    NewScheduler(w.Tick, w.Config.Engine.HistoryLimit),
		stop:     make(chan struct{}),
	}
	if e.Interval <= 0 {
		e.Interval = time.Second
	}
	e.SetSpeed(w.Config.Engine.Speed)
	e.snap.Store(w.Snapshot())
	return e
}

// Scheduler returns the command scheduler.
func (e *Engine) Scheduler() *Scheduler { return e.sched }

// Submit queues a command. It is safe to call from any goroutine.
func (e *Engine) Submit(cmd Command) (late bool, err error) {
	return e.sched.Enqueue(cmd)
}

// Snapshot returns the state published after the most recent tick.
func (e *Engine) Snapshot() *Snapshot { return e.snap.Load() }

// SetSpeed changes the tick rate multiplier. 0 or less pauses the loop.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 || math.IsNaN(speed) {
		speed = 0
	}
	e.speed.Store(math.Float64bits(speed))
}

// Speed returns the tick rate multiplier.
func (e *Engine) Speed() float64 {
	return math.Float64frombits(e.speed.Load())
}

// OnTick registers fn to run after every tick, on the tick goroutine and
// outside the world lock. Hooks run in registration order.
func (e *Engine) OnTick(fn func(TickReport)) {
	e.hooksMu.Lock()
	e.hooks = append(e.hooks, fn)
	e.hooksMu.Unlock()
}

// Inspect runs fn with exclusive access to the world between ticks.
func (e *Engine) Inspect(fn func(*World)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.world)
}

// Step advances the simulation by exactly one tick: due commands, then
// people, wildlife, construction and production, in that order.
func (e *Engine) Step() TickReport {
	e.mu.Lock()
	start := time.Now()
	w := e.world
	tick := w.Tick

	records := e.sched.ProcessTick(w)
	w.updatePeople()
	w.updateWildlife()
	w.constructionPass()
	w.productionPass()
	w.Tick++

	if w.Config.Engine.Debug {
		w.checkOccupancy()
	}
	events := w.drainEvents()
	snap := w.Snapshot()
	e.snap.Store(snap)
	e.mu.Unlock()

	rep := TickReport{
		Tick:     tick,
		Records:  records,
		Events:   events,
		Duration: time.Since(start),
		Digest:   snap.Digest,
		Snapshot: snap,
	}

	e.hooksMu.Lock()
	hooks := e.hooks
	e.hooksMu.Unlock()
	for _, fn := range hooks {
		fn(rep)
	}
	return rep
}

// Run ticks until ctx is cancelled or Stop is called. Both are honoured
// between ticks only. The delay between ticks is Interval / Speed; a speed
// of zero runs no ticks at all.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("simulation engine started", "tick", e.sched.CurrentTick(), "speed", e.Speed())
	defer func() {
		slog.Info("simulation engine stopped", "tick", e.sched.CurrentTick())
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.stop:
			return nil
		default:
		}

		speed := e.Speed()
		if speed <= 0 {
			if !e.wait(ctx, pausePoll) {
				return nil
			}
			continue
		}

		rep := e.Step()

		target := time.Duration(float64(e.Interval) / speed)
		if rep.Duration > target {
			slog.Warn("tick over budget", "tick", rep.Tick, "took", rep.Duration, "budget", target)
			continue
		}
		if !e.wait(ctx, target-rep.Duration) {
			return nil
		}
	}
}

func (e *Engine) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-e.stop:
		return false
	case <-t.C:
		return true
	}
}

// Stop ends Run after the current tick. It is safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}
