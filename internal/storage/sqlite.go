package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "orchd/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const processColumns = `id, name, tool, path, year, months_of_year, weeks_of_month, days_of_week, day, hour, minute, enabled`

func (s *sqliteStore) ListProcesses(ctx context.Context, enabledOnly bool) ([]Process, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	q := `SELECT ` + processColumns + ` FROM processes`
	if enabledOnly {
		q += ` WHERE enabled = 1`
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Process
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetProcess(ctx context.Context, id int64) (Process, error) {
	if s == nil || s.db == nil {
		return Process{}, ErrDisabled
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+processColumns+` FROM processes WHERE id = ?`, id)
	p, err := scanProcess(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Process{}, ErrNotFound
	}
	return p, err
}

func (s *sqliteStore) AddProcess(ctx context.Context, p Process) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO processes(name, tool, path, year, months_of_year, weeks_of_month, days_of_week, day, hour, minute, enabled)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Tool, p.Path,
		p.Year, p.MonthsOfYear, p.WeeksOfMonth, p.DaysOfWeek, p.Day, p.Hour, p.Minute,
		boolInt(p.Enabled),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) UpdateProcess(ctx context.Context, p Process) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE processes SET name=?, tool=?, path=?, year=?, months_of_year=?, weeks_of_month=?,
		 days_of_week=?, day=?, hour=?, minute=?, enabled=? WHERE id=?`,
		p.Name, p.Tool, p.Path,
		p.Year, p.MonthsOfYear, p.WeeksOfMonth, p.DaysOfWeek, p.Day, p.Hour, p.Minute,
		boolInt(p.Enabled), p.ID,
	)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (s *sqliteStore) DeleteProcess(ctx context.Context, id int64) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM processes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (s *sqliteStore) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	res, err := s.db.ExecContext(ctx, `UPDATE processes SET enabled = ? WHERE id = ?`, boolInt(enabled), id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (s *sqliteStore) AppendEvent(ctx context.Context, e Event) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(at, run_id, name, stream, message) VALUES(?,?,?,?,?)`,
		e.At.UTC().Format(time.RFC3339Nano), nullStr(e.RunID), nullStr(e.Name), e.Stream, e.Message,
	)
	return err
}

func (s *sqliteStore) ListEvents(ctx context.Context, limit int) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, run_id, name, stream, message FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *sqliteStore) ListEventsBetween(ctx context.Context, from, to time.Time, limit int) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	q := `SELECT id, at, run_id, name, stream, message FROM events
	      WHERE at >= ? AND at <= ? ORDER BY at ASC, id ASC`
	args := []any{from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProcess(r rowScanner) (Process, error) {
	var p Process
	var enabled int
	err := r.Scan(&p.ID, &p.Name, &p.Tool, &p.Path,
		&p.Year, &p.MonthsOfYear, &p.WeeksOfMonth, &p.DaysOfWeek, &p.Day, &p.Hour, &p.Minute,
		&enabled)
	p.Enabled = enabled != 0
	return p, err
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var e Event
		var at string
		var runID, name sql.NullString
		if err := rows.Scan(&e.ID, &at, &runID, &name, &e.Stream, &e.Message); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.At = t
		}
		e.RunID = runID.String
		e.Name = name.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
