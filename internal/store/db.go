package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("conversion not found")

// Conversion is the persisted history of one conversion job.
type Conversion struct {
	ID        string    `json:"id"`
	InputKey  string    `json:"input_key"`
	OutputKey string    `json:"output_key,omitempty"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Sheets    int       `json:"sheets"`
	Pages     int       `json:"pages"`
	Rows      int       `json:"rows"`
	Submitted time.Time `json:"submitted"`
	Started   time.Time `json:"started,omitzero"`
	Finished  time.Time `json:"finished,omitzero"`
}

type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to driver ("mysql", "postgres" or "sqlite3") and creates the
// schema if needed.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "mysql", "postgres", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if driver == "sqlite3" {
		// every connection to ":memory:" is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) InitSchema() error {
	create := `CREATE TABLE IF NOT EXISTS conversions (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		input_key VARCHAR(512) NOT NULL,
		output_key VARCHAR(512) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL,
		error TEXT,
		sheets INTEGER NOT NULL DEFAULT 0,
		pages INTEGER NOT NULL DEFAULT 0,
		row_count INTEGER NOT NULL DEFAULT 0,
		submitted_at BIGINT NOT NULL,
		started_at BIGINT NOT NULL DEFAULT 0,
		finished_at BIGINT NOT NULL DEFAULT 0
	)`
	if _, err := s.db.Exec(create); err != nil {
		return fmt.Errorf("create conversions table: %w", err)
	}

	index := `CREATE INDEX idx_conversions_submitted ON conversions (submitted_at)`
	if _, err := s.db.Exec(index); err != nil {
		// Already exists after the first start
		slog.Debug("Index creation skipped", "error", err)
	}
	return nil
}

// Record inserts a newly submitted conversion.
func (s *Store) Record(ctx context.Context, c Conversion) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO conversions (id, input_key, output_key, email, status, error, sheets, pages, row_count, submitted_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.InputKey, c.OutputKey, c.Email, c.Status, c.Error,
		c.Sheets, c.Pages, c.Rows,
		toMillis(c.Submitted), toMillis(c.Started), toMillis(c.Finished),
	)
	if err != nil {
		return fmt.Errorf("record conversion %s: %w", c.ID, err)
	}
	return nil
}

// UpdateStatus stores the mutable fields of c.
func (s *Store) UpdateStatus(ctx context.Context, c Conversion) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE conversions SET output_key = ?, status = ?, error = ?, sheets = ?, pages = ?, row_count = ?, started_at = ?, finished_at = ?
		WHERE id = ?`),
		c.OutputKey, c.Status, c.Error, c.Sheets, c.Pages, c.Rows,
		toMillis(c.Started), toMillis(c.Finished), c.ID,
	)
	if err != nil {
		return fmt.Errorf("update conversion %s: %w", c.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update conversion %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

const selectColumns = `SELECT id, input_key, output_key, email, status, error, sheets, pages, row_count, submitted_at, started_at, finished_at FROM conversions`

func (s *Store) Get(ctx context.Context, id string) (*Conversion, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectColumns+` WHERE id = ?`), id)
	c, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get conversion %s: %w", id, err)
	}
	return c, nil
}

// List returns the most recently submitted conversions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Conversion, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(selectColumns+` ORDER BY submitted_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var out []Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("list conversions: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(r scanner) (*Conversion, error) {
	var c Conversion
	var errText sql.NullString
	var submitted, started, finished int64
	if err := r.Scan(&c.ID, &c.InputKey, &c.OutputKey, &c.Email, &c.Status, &errText,
		&c.Sheets, &c.Pages, &c.Rows, &submitted, &started, &finished); err != nil {
		return nil, err
	}
	c.Error = errText.String
	c.Submitted = fromMillis(submitted)
	c.Started = fromMillis(started)
	c.Finished = fromMillis(finished)
	return &c, nil
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
