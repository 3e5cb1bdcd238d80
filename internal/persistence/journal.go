package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/hamlet/internal/engine"
)

// flushEvery bounds how long trace entries sit in the write buffer.
const flushEvery = 2 * time.Second

// Journal writes tick reports to the database and the trace off the tick
// goroutine. Either sink may be nil.
type Journal struct {
	db    *DB
	trace *TraceWriter

	reports chan engine.TickReport
	done    chan struct{}
}

// NewJournal buffers up to buffer reports. A full buffer blocks the tick
// loop rather than losing a tick.
func NewJournal(db *DB, trace *TraceWriter, buffer int) *Journal {
	if buffer < 1 {
		buffer = 1
	}
	return &Journal{
		db:      db,
		trace:   trace,
		reports: make(chan engine.TickReport, buffer),
		done:    make(chan struct{}),
	}
}

// Attach subscribes j to every tick e runs.
func (j *Journal) Attach(e *engine.Engine) {
	e.OnTick(j.Enqueue)
}

// Enqueue hands rep to the writer. After Run has returned it is a no-op.
func (j *Journal) Enqueue(rep engine.TickReport) {
	select {
	case j.reports <- rep:
	case <-j.done:
	}
}

// Run writes reports until ctx is cancelled, then drains what is buffered
// and flushes.
func (j *Journal) Run(ctx context.Context) error {
	defer close(j.done)
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	for {
		select {
		case rep := <-j.reports:
			if err := j.write(rep); err != nil {
				return err
			}
		case <-ticker.C:
			if err := j.flush(); err != nil {
				return err
			}
		case <-ctx.Done():
			return j.drain()
		}
	}
}

func (j *Journal) drain() error {
	for {
		select {
		case rep := <-j.reports:
			if err := j.write(rep); err != nil {
				return err
			}
		default:
			return j.flush()
		}
	}
}

func (j *Journal) write(rep engine.TickReport) error {
	if j.db != nil {
		if err := j.db.SaveTick(rep); err != nil {
			return fmt.Errorf("journal tick %d: %w", rep.Tick, err)
		}
	}
	if j.trace != nil {
		if err := j.trace.Write(NewTraceEntry(rep)); err != nil {
			return fmt.Errorf("trace tick %d: %w", rep.Tick, err)
		}
	}
	if len(rep.Records) > 0 {
		slog.Debug("journaled tick", "tick", rep.Tick, "records", len(rep.Records), "events", len(rep.Events))
	}
	return nil
}

func (j *Journal) flush() error {
	if j.trace == nil {
		return nil
	}
	return j.trace.Flush()
}

// Close closes both sinks.
func (j *Journal) Close() error {
	var errs []error
	if j.trace != nil {
		errs = append(errs, j.trace.Close())
	}
	if j.db != nil {
		errs = append(errs, j.db.Close())
	}
	return errors.Join(errs...)
}
