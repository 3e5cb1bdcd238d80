package persistence

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/hamlet/internal/command"
	"github.com/talgya/hamlet/internal/engine"
)

const (
	tracePrefix = "trace-"
	traceSuffix = ".jsonl.zst"
)

// TraceEntry is one line of the trace: the commands a tick ran and the
// digest of the state after it.
type TraceEntry struct {
	Tick     uint64             `json:"tick"`
	Digest   string             `json:"digest"`
	Commands []command.Envelope `json:"commands,omitempty"`
	Results  []TraceResult      `json:"results,omitempty"`
	Events   int                `json:"events"`
}

// TraceResult is the outcome of one command in a trace entry.
type TraceResult struct {
	ID     engine.CommandID `json:"id"`
	Status engine.Status    `json:"status"`
}

// NewTraceEntry builds the trace line for rep. Commands the codec cannot
// encode are recorded in Results only.
func NewTraceEntry(rep engine.TickReport) TraceEntry {
	e := TraceEntry{Tick: rep.Tick, Digest: rep.Digest, Events: len(rep.Events)}
	for _, rec := range rep.Records {
		e.Results = append(e.Results, TraceResult{ID: rec.ID, Status: rec.Result.Status})
		if rec.Command == nil {
			continue
		}
		if env, err := command.Encode(rec.Command); err == nil {
			env.Tick = rec.Tick
			e.Commands = append(e.Commands, env)
		}
	}
	return e
}

// TraceWriter appends trace entries to zstd-compressed JSONL segments in a
// directory, starting a new segment every SegmentTicks ticks.
type TraceWriter struct {
	dir          string
	segmentTicks uint64

	mu      sync.Mutex
	segment uint64
	open    bool
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewTraceWriter writes segments under dir. segmentTicks of 0 keeps a single
// segment.
func NewTraceWriter(dir string, segmentTicks uint64) *TraceWriter {
	return &TraceWriter{dir: dir, segmentTicks: segmentTicks}
}

// Write appends one entry.
func (t *TraceWriter) Write(e TraceEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	seg := uint64(0)
	if t.segmentTicks > 0 {
		seg = e.Tick / t.segmentTicks * t.segmentTicks
	}
	if !t.open || seg != t.segment {
		if err := t.rotateLocked(seg); err != nil {
			return err
		}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := t.w.Write(b); err != nil {
		return err
	}
	return t.w.WriteByte('\n')
}

// Flush pushes buffered entries into the current zstd frame.
func (t *TraceWriter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return nil
	}
	if err := t.w.Flush(); err != nil {
		return err
	}
	return t.enc.Flush()
}

// Close flushes and closes the current segment.
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *TraceWriter) rotateLocked(seg uint64) error {
	if err := t.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(segmentPath(t.dir, seg), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	t.f, t.enc = f, enc
	t.w = bufio.NewWriterSize(enc, 64*1024)
	t.segment, t.open = seg, true
	return nil
}

func (t *TraceWriter) closeLocked() error {
	if !t.open {
		return nil
	}
	var errs []error
	if err := t.w.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := t.enc.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.f.Close(); err != nil {
		errs = append(errs, err)
	}
	t.f, t.enc, t.w, t.open = nil, nil, nil, false
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close trace segment: %w", err)
	}
	return nil
}

func segmentPath(dir string, seg uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s%012d%s", tracePrefix, seg, traceSuffix))
}

// TraceSegments lists the segment files in dir in tick order.
func TraceSegments(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, tracePrefix) && strings.HasSuffix(name, traceSuffix) {
			out = append(out, filepath.Join(dir, name))
		}
	}
	slices.Sort(out)
	return out, nil
}

// ReadTrace calls fn for every entry in dir, in order. It stops at the first
// error fn returns.
func ReadTrace(dir string, fn func(TraceEntry) error) error {
	files, err := TraceSegments(dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := readSegment(path, fn); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func readSegment(path string, fn func(TraceEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e TraceEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ErrDigestMismatch reports a replayed tick whose state differs from the
// trace.
var ErrDigestMismatch = errors.New("digest mismatch")

// Replay re-runs the trace in dir on e, which must start from the same
// configuration and seed as the traced run. It returns the number of ticks
// whose digest was checked.
func Replay(e *engine.Engine, dir string) (uint64, error) {
	var checked uint64
	err := ReadTrace(dir, func(entry TraceEntry) error {
		if now := e.Scheduler().CurrentTick(); entry.Tick != now {
			return fmt.Errorf("trace is at tick %d, engine at %d", entry.Tick, now)
		}
		for _, env := range entry.Commands {
			cmd, err := command.Decode(env)
			if err != nil {
				return fmt.Errorf("tick %d: %w", entry.Tick, err)
			}
			if _, err := e.Submit(cmd); err != nil {
				return fmt.Errorf("tick %d: %w", entry.Tick, err)
			}
		}
		rep := e.Step()
		if rep.Digest != entry.Digest {
			return fmt.Errorf("tick %d: got %s, want %s: %w", entry.Tick, rep.Digest, entry.Digest, ErrDigestMismatch)
		}
		checked++
		return nil
	})
	return checked, err
}
