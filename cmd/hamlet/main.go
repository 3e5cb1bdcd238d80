// Command hamlet runs the village simulation.
//
//	hamlet run      [-config hamlet.yaml] [-addr :8080] [-speed 1]
//	hamlet replay   [-config hamlet.yaml] [-trace dir] [-db path]
//	hamlet defaults
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/talgya/hamlet/internal/api"
	"github.com/talgya/hamlet/internal/command"
	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/observe"
	"github.com/talgya/hamlet/internal/persistence"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "replay":
		err = replayCmd(os.Args[2:])
	case "defaults":
		err = yaml.NewEncoder(os.Stdout).Encode(config.Default())
	case "-h", "-help", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "hamlet: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("hamlet failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hamlet run|replay|defaults [flags]")
}

// loadConfig reads path if given and installs the default logger at the
// configured level.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel.Slog(),
	}))
	slog.SetDefault(logger)
	return &cfg, nil
}

func runCmd(args []string) error {
	fset := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fset.String("config", "", "YAML config file")
	addr := fset.String("addr", "", "HTTP listen address (overrides config)")
	speed := fset.Float64("speed", -1, "initial speed multiplier (overrides config)")
	_ = fset.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.API.Addr = *addr
	}
	if *speed >= 0 {
		cfg.Engine.Speed = *speed
	}
	if cfg.API.AdminKey == "" {
		cfg.API.AdminKey = os.Getenv("HAMLET_ADMIN_KEY")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── World ────────────────────────────────────────────────────────
	events := engine.NewMemorySink(1000)
	w, err := engine.Bootstrap(*cfg, engine.MultiSink{engine.NewSlogSink(nil), events})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	eng := engine.NewEngine(w)
	snap := eng.Snapshot()
	slog.Info("village founded",
		"name", snap.Village.Name,
		"families", len(snap.Families),
		"people", snap.Village.Living,
		"wildlife", len(snap.Wildlife),
		"map", fmt.Sprintf("%dx%d", snap.Width, snap.Height),
		"seed", cfg.Engine.Seed,
	)

	// ── Journal ──────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.Storage.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
			return err
		}
		if db, err = persistence.Open(cfg.Storage.DBPath); err != nil {
			return err
		}
		slog.Info("journal opened", "path", cfg.Storage.DBPath)
	}
	var trace *persistence.TraceWriter
	if cfg.Storage.TraceDir != "" {
		trace = persistence.NewTraceWriter(cfg.Storage.TraceDir, cfg.Storage.TraceSegmentTicks)
		slog.Info("tick trace enabled", "dir", cfg.Storage.TraceDir, "segment_ticks", cfg.Storage.TraceSegmentTicks)
	}
	var journal *persistence.Journal
	if db != nil || trace != nil {
		journal = persistence.NewJournal(db, trace, 64)
		journal.Attach(eng)
		defer func() {
			if err := journal.Close(); err != nil {
				slog.Error("close journal", "error", err)
			}
		}()
	}

	// ── Metrics ──────────────────────────────────────────────────────
	mp, err := observe.InitProvider("hamlet", version)
	if err != nil {
		return err
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = mp.Shutdown(shutCtx)
	}()
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		return err
	}
	metrics.Attach(eng)

	// ── HTTP API ─────────────────────────────────────────────────────
	if cfg.API.AdminKey == "" {
		slog.Warn("no admin key set; admin POST endpoints are disabled")
	}
	srv := api.NewServer(eng, cfg.API.Addr, cfg.API.AdminKey)
	srv.Events = events
	srv.DB = db
	srv.Metrics = metrics
	srv.CommandLimiter = api.NewRateLimiter(cfg.API.CommandRate, cfg.API.CommandBurst)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	if journal != nil {
		g.Go(func() error { return journal.Run(gctx) })
	}
	g.Go(func() error {
		statusLoop(gctx, eng)
		return nil
	})

	err = g.Wait()
	final := eng.Snapshot()
	slog.Info("simulation stopped",
		"tick", humanize.Comma(int64(final.Tick)),
		"people", final.Village.Living,
		"digest", final.Digest,
		"commands", humanize.Comma(int64(len(eng.Scheduler().History()))),
	)
	if trace != nil {
		slog.Info("trace written", "dir", cfg.Storage.TraceDir, "size", humanize.Bytes(dirSize(cfg.Storage.TraceDir)))
	}
	return err
}

// statusLoop logs a one-line summary every minute.
func statusLoop(ctx context.Context, eng *engine.Engine) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := eng.Snapshot()
			slog.Info("status",
				"tick", humanize.Comma(int64(s.Tick)),
				"people", s.Village.Living,
				"buildings", len(s.Buildings),
				"stock", s.Village.Stocks,
				"pending", eng.Scheduler().Pending(),
			)
		}
	}
}

func replayCmd(args []string) error {
	fset := flag.NewFlagSet("replay", flag.ExitOnError)
	cfgPath := fset.String("config", "", "YAML config file the run used")
	traceDir := fset.String("trace", "", "trace directory (defaults to storage.trace_dir)")
	dbPath := fset.String("db", "", "journal database to cross-check (defaults to storage.db_path)")
	_ = fset.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if *traceDir == "" {
		*traceDir = cfg.Storage.TraceDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Storage.DBPath
	}
	if *traceDir == "" && *dbPath == "" {
		return errors.New("replay needs a trace directory or a journal database")
	}

	if *traceDir != "" {
		eng, err := freshEngine(*cfg)
		if err != nil {
			return err
		}
		start := time.Now()
		checked, err := persistence.Replay(eng, *traceDir)
		if err != nil {
			return fmt.Errorf("trace replay after %d ticks: %w", checked, err)
		}
		slog.Info("trace replay matched",
			"ticks", humanize.Comma(int64(checked)),
			"digest", eng.Snapshot().Digest,
			"took", time.Since(start).Round(time.Millisecond),
		)
	}

	if *dbPath != "" {
		if _, err := os.Stat(*dbPath); err != nil {
			return err
		}
		db, err := persistence.Open(*dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := replayJournal(*cfg, db); err != nil {
			return err
		}
	}
	return nil
}

// replayJournal resubmits every journaled command to a fresh world and
// compares the digest at the journal's last tick.
func replayJournal(cfg config.Config, db *persistence.DB) error {
	lastTick, err := db.GetMeta("last_tick")
	if err != nil {
		return err
	}
	want, err := db.GetMeta("last_digest")
	if err != nil {
		return err
	}
	if lastTick == "" {
		return errors.New("journal is empty")
	}
	until, err := strconv.ParseUint(lastTick, 10, 64)
	if err != nil {
		return fmt.Errorf("journal last_tick %q: %w", lastTick, err)
	}

	envs, err := db.LoadCommands()
	if err != nil {
		return err
	}
	eng, err := freshEngine(cfg)
	if err != nil {
		return err
	}
	for _, env := range envs {
		cmd, err := command.Decode(env)
		if err != nil {
			return fmt.Errorf("journaled command %s: %w", env.ID, err)
		}
		if _, err := eng.Submit(cmd); err != nil {
			return fmt.Errorf("journaled command %s: %w", env.ID, err)
		}
	}
	var got string
	for eng.Scheduler().CurrentTick() < until {
		got = eng.Step().Digest
	}
	if got != want {
		return fmt.Errorf("journal replay at tick %d: digest %s, journal has %s: %w",
			until, got, want, persistence.ErrDigestMismatch)
	}
	slog.Info("journal replay matched", "ticks", humanize.Comma(int64(until)), "commands", len(envs), "digest", got)
	return nil
}

func freshEngine(cfg config.Config) (*engine.Engine, error) {
	w, err := engine.Bootstrap(cfg, engine.NopSink{})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return engine.NewEngine(w), nil
}

func dirSize(dir string) uint64 {
	var n uint64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			n += uint64(info.Size())
		}
		return nil
	})
	return n
}
