// Package journal keeps a local SQLite history of parameter changes made by
// postconfctl, so an operator can see what a value was before a run.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danmuck/postconfctl/internal/postconf"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS changes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	at         INTEGER NOT NULL,
	target     TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	state      TEXT    NOT NULL,
	requested  TEXT    NOT NULL,
	previous   TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	check_mode INTEGER NOT NULL,
	message    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS changes_name_at ON changes (name, at);
`

// Entry is one recorded change.
type Entry struct {
	ID        int64           `json:"id"`
	At        time.Time       `json:"at"`
	Target    string          `json:"target"`
	Name      string          `json:"name"`
	State     postconf.Intent `json:"state"`
	Requested string          `json:"requested"`
	Previous  string          `json:"previous"`
	Value     string          `json:"value"`
	CheckMode bool            `json:"check_mode"`
	Message   string          `json:"msg"`
}

// Journal records changed reconciliations. Target names the host whose
// main.cf was reconciled ("local" for this host).
type Journal struct {
	db     *sql.DB
	Target string
}

var _ postconf.Observer = (*Journal)(nil)

func Open(path, target string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	if target == "" {
		target = "local"
	}
	return &Journal{db: db, Target: target}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.Target == "" {
		e.Target = j.Target
	}
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO changes (at, target, name, state, requested, previous, value, check_mode, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.At.UnixNano(), e.Target, e.Name, string(e.State), e.Requested, e.Previous, e.Value, boolInt(e.CheckMode), e.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("record change: %w", err)
	}
	return res.LastInsertId()
}

// List returns the newest entries first. An empty name lists every parameter.
func (j *Journal) List(ctx context.Context, name string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, at, target, name, state, requested, previous, value, check_mode, message FROM changes`
	args := []any{}
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			at        int64
			state     string
			checkMode int
		)
		if err := rows.Scan(&e.ID, &at, &e.Target, &e.Name, &state, &e.Requested, &e.Previous, &e.Value, &checkMode, &e.Message); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		e.At = time.Unix(0, at)
		e.State = postconf.Intent(state)
		e.CheckMode = checkMode != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// Observe records changed results. Failures are logged, not returned; the
// reconciliation already happened and must not be reported as failed.
func (j *Journal) Observe(ctx context.Context, req postconf.Request, res postconf.Result, err error, _ time.Duration) {
	if err != nil || !res.Changed {
		return
	}
	_, recErr := j.Record(ctx, Entry{
		Name:      res.Name,
		State:     req.Intent,
		Requested: req.Value,
		Previous:  res.Previous,
		Value:     res.Value,
		CheckMode: res.DryRun,
		Message:   res.Message,
	})
	if recErr != nil {
		log.Error().Str("param", res.Name).Err(recErr).Msg("journal.Observe record failed")
	}
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
