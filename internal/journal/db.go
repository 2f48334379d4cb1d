// Package journal persists every decision cycle and memory event to a local
// SQLite file so a session can be reviewed after the fact.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Decision is one executed (or skipped) cycle.
type Decision struct {
	CycleID     string
	Time        time.Time
	Mode        string
	Action      string
	Target      string
	Cmd         string
	Thought     string
	Note        string
	Chat        string
	ChatVerdict string
	Result      string
	Detail      string
}

// Event mirrors a short-term memory entry.
type Event struct {
	Time    time.Time
	Type    string
	Content string
}

// DB wraps the journal tables. Reads and writes are synchronous; Writer
// puts a queue in front for callers that must not block.
type DB struct {
	db *sql.DB
}

// NewCycleID returns a fresh identifier for one decision cycle.
func NewCycleID() string { return uuid.NewString() }

// Open creates the file (and its directory) if needed and migrates the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal dir: %w", err)
		}
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{db: db}
	if err := d.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return d, nil
}

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		cycle_id     TEXT PRIMARY KEY,
		at_ms        INTEGER NOT NULL,
		mode         TEXT NOT NULL,
		action       TEXT NOT NULL,
		target       TEXT,
		cmd          TEXT,
		thought      TEXT,
		note         TEXT,
		chat         TEXT,
		chat_verdict TEXT,
		result       TEXT NOT NULL,
		detail       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_at ON decisions(at_ms);

	CREATE TABLE IF NOT EXISTS events (
		event_id INTEGER PRIMARY KEY AUTOINCREMENT,
		at_ms    INTEGER NOT NULL,
		type     TEXT NOT NULL,
		content  TEXT NOT NULL
	);
	`
	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// InsertDecision stores d, assigning a cycle id if it has none.
func (d *DB) InsertDecision(ctx context.Context, rec Decision) error {
	if rec.CycleID == "" {
		rec.CycleID = NewCycleID()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO decisions (cycle_id, at_ms, mode, action, target, cmd, thought, note, chat, chat_verdict, result, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CycleID, rec.Time.UnixMilli(), rec.Mode, rec.Action, rec.Target, rec.Cmd,
		rec.Thought, rec.Note, rec.Chat, rec.ChatVerdict, rec.Result, rec.Detail)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func (d *DB) InsertEvent(ctx context.Context, ev Event) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO events (at_ms, type, content) VALUES (?, ?, ?)`,
		ev.Time.UnixMilli(), ev.Type, ev.Content)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentDecisions returns up to limit decisions, newest first.
func (d *DB) RecentDecisions(ctx context.Context, limit int) ([]Decision, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT cycle_id, at_ms, mode, action, target, cmd, thought, note, chat, chat_verdict, result, detail
		FROM decisions ORDER BY at_ms DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var (
			rec                                               Decision
			atMS                                              int64
			target, cmd, thought, note, chat, verdict, detail sql.NullString
		)
		if err := rows.Scan(&rec.CycleID, &atMS, &rec.Mode, &rec.Action, &target, &cmd,
			&thought, &note, &chat, &verdict, &rec.Result, &detail); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		rec.Time = time.UnixMilli(atMS)
		rec.Target, rec.Cmd, rec.Thought = target.String, cmd.String, thought.String
		rec.Note, rec.Chat, rec.ChatVerdict, rec.Detail = note.String, chat.String, verdict.String, detail.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecentEvents returns up to limit events, newest first.
func (d *DB) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT at_ms, type, content FROM events ORDER BY event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev   Event
			atMS int64
		)
		if err := rows.Scan(&atMS, &ev.Type, &ev.Content); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Time = time.UnixMilli(atMS)
		out = append(out, ev)
	}
	return out, rows.Err()
}
