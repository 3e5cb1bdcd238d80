// Package persistence journals executed commands and events to SQLite and
// writes a compressed per-tick trace for replay.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hamlet/internal/command"
	"github.com/talgya/hamlet/internal/engine"
)

// DB wraps a SQLite connection holding the command journal.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// ":memory:" databases exist per connection.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		player INTEGER NOT NULL,
		target_tick INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		late INTEGER NOT NULL,
		status TEXT NOT NULL,
		message TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		envelope_json TEXT,
		executed_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		level TEXT NOT NULL,
		category TEXT NOT NULL,
		message TEXT NOT NULL,
		meta_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_tick ON records(tick);
	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// recordRow is the stored form of an engine.ExecutionRecord.
type recordRow struct {
	ID         string         `db:"id"`
	Kind       string         `db:"kind"`
	Player     uint64         `db:"player"`
	TargetTick uint64         `db:"target_tick"`
	Tick       uint64         `db:"tick"`
	Late       bool           `db:"late"`
	Status     string         `db:"status"`
	Message    string         `db:"message"`
	Payload    string         `db:"payload_json"`
	Envelope   sql.NullString `db:"envelope_json"`
	ExecutedAt string         `db:"executed_at"`
}

type eventRow struct {
	Tick     uint64 `db:"tick"`
	Level    string `db:"level"`
	Category string `db:"category"`
	Message  string `db:"message"`
	Meta     string `db:"meta_json"`
}

// SaveTick journals one tick's records and events and updates last_tick and
// last_digest, all in one transaction.
func (db *DB) SaveTick(rep engine.TickReport) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range rep.Records {
		row, err := toRecordRow(rec)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExec(`INSERT INTO records
			(id, kind, player, target_tick, tick, late, status, message, payload_json, envelope_json, executed_at)
			VALUES (:id, :kind, :player, :target_tick, :tick, :late, :status, :message, :payload_json, :envelope_json, :executed_at)`,
			row); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}
	for _, ev := range rep.Events {
		meta, err := json.Marshal(ev.Meta)
		if err != nil {
			return fmt.Errorf("encode event meta: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO events (tick, level, category, message, meta_json) VALUES (?, ?, ?, ?, ?)",
			ev.Tick, ev.Level.String(), ev.Category, ev.Message, string(meta),
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	last := rep.Tick + 1
	if rep.Snapshot != nil {
		last = rep.Snapshot.Tick
	}
	if err := saveMeta(tx, "last_tick", strconv.FormatUint(last, 10)); err != nil {
		return err
	}
	if err := saveMeta(tx, "last_digest", rep.Digest); err != nil {
		return err
	}
	return tx.Commit()
}

func toRecordRow(rec engine.ExecutionRecord) (recordRow, error) {
	payload, err := json.Marshal(rec.Result.Payload)
	if err != nil {
		return recordRow{}, fmt.Errorf("encode payload of %s: %w", rec.ID, err)
	}
	row := recordRow{
		ID:         string(rec.ID),
		Kind:       string(rec.Kind),
		Player:     uint64(rec.Player),
		TargetTick: rec.TargetTick,
		Tick:       rec.Tick,
		Late:       rec.Late,
		Status:     rec.Result.Status.String(),
		Message:    rec.Result.Message,
		Payload:    string(payload),
		ExecutedAt: rec.ExecutedAt.UTC().Format(time.RFC3339Nano),
	}
	// Commands outside the codec (test doubles) are journaled without an
	// envelope and cannot be replayed.
	if rec.Command != nil {
		if env, err := command.Encode(rec.Command); err == nil {
			env.Tick = rec.Tick
			b, err := json.Marshal(env)
			if err != nil {
				return recordRow{}, fmt.Errorf("encode envelope of %s: %w", rec.ID, err)
			}
			row.Envelope = sql.NullString{String: string(b), Valid: true}
		}
	}
	return row, nil
}

func saveMeta(ex sqlx.Execer, key, value string) error {
	_, err := ex.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("save meta %s: %w", key, err)
	}
	return nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	return saveMeta(db.conn, key, value)
}

// GetMeta retrieves a metadata value. A missing key yields "" and no error.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// LoadCommands returns every journaled envelope in execution order. Each
// envelope's Tick is the tick the command actually ran at, so resubmitting
// them to a fresh world reproduces the run.
func (db *DB) LoadCommands() ([]command.Envelope, error) {
	var raw []string
	if err := db.conn.Select(&raw,
		"SELECT envelope_json FROM records WHERE envelope_json IS NOT NULL ORDER BY tick, id",
	); err != nil {
		return nil, fmt.Errorf("load commands: %w", err)
	}
	out := make([]command.Envelope, 0, len(raw))
	for _, s := range raw {
		var env command.Envelope
		if err := json.Unmarshal([]byte(s), &env); err != nil {
			return nil, fmt.Errorf("load commands: %w", err)
		}
		out = append(out, env)
	}
	slog.Debug("loaded journal", "commands", len(out))
	return out, nil
}

// Records returns the journaled records of one tick in execution order.
func (db *DB) Records(tick uint64) ([]engine.ExecutionRecord, error) {
	var rows []recordRow
	if err := db.conn.Select(&rows, `SELECT id, kind, player, target_tick, tick, late, status, message,
		payload_json, envelope_json, executed_at FROM records WHERE tick = ? ORDER BY id`, tick); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	out := make([]engine.ExecutionRecord, 0, len(rows))
	for _, row := range rows {
		rec := engine.ExecutionRecord{
			ID:         engine.CommandID(row.ID),
			Kind:       engine.Kind(row.Kind),
			Player:     engine.PlayerID(row.Player),
			TargetTick: row.TargetTick,
			Tick:       row.Tick,
			Late:       row.Late,
			Result:     engine.Result{Message: row.Message},
		}
		if err := rec.Result.Status.UnmarshalText([]byte(row.Status)); err != nil {
			return nil, fmt.Errorf("record %s: %w", row.ID, err)
		}
		if err := json.Unmarshal([]byte(row.Payload), &rec.Result.Payload); err != nil {
			return nil, fmt.Errorf("record %s: %w", row.ID, err)
		}
		if t, err := time.Parse(time.RFC3339Nano, row.ExecutedAt); err == nil {
			rec.ExecutedAt = t
		}
		out = append(out, rec)
	}
	return out, nil
}

// RecentEvents returns the most recent events, newest first. An empty
// category matches all.
func (db *DB) RecentEvents(category string, limit int) ([]engine.Event, error) {
	var rows []eventRow
	var err error
	if category == "" {
		err = db.conn.Select(&rows,
			"SELECT tick, level, category, message, meta_json FROM events ORDER BY id DESC LIMIT ?", limit)
	} else {
		err = db.conn.Select(&rows,
			"SELECT tick, level, category, message, meta_json FROM events WHERE category = ? ORDER BY id DESC LIMIT ?",
			category, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	out := make([]engine.Event, 0, len(rows))
	for _, row := range rows {
		ev := engine.Event{Tick: row.Tick, Category: row.Category, Message: row.Message}
		if err := ev.Level.UnmarshalText([]byte(row.Level)); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(row.Meta), &ev.Meta); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
