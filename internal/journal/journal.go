// Package journal keeps a local sqlite history of print attempts.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"struk-print/internal/printer"
	"struk-print/internal/printjob"
	"struk-print/internal/receipt"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed width so that text order matches time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one journaled print attempt
type Entry struct {
	ID        int64
	JobID     string
	Kind      receipt.Kind
	ReceiptNo string
	Device    string
	Transport printer.Transport
	Bytes     int
	OK        bool
	ErrorKind printer.ErrorKind
	Error     string
	Record    receipt.Record
	Started   time.Time
	Finished  time.Time
}

// Journal is the print history store
type Journal struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open creates or opens the journal database at path. ":memory:" keeps it
// in memory.
func Open(path string, log zerolog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// one writer, and a single connection keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Journal{db: db, log: log.With().Str("component", "journal").Logger()}, nil
}

// Close closes the database
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record stores one outcome
func (j *Journal) Record(ctx context.Context, o printjob.Outcome) error {
	rec, err := json.Marshal(o.Record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	errText := ""
	if o.Err != nil {
		errText = o.Err.Error()
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO prints (job_id, kind, receipt_no, device, transport, bytes, ok, error_kind, error, record, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.JobID, string(o.Kind), o.ReceiptNo, o.Device.Address, string(o.Device.Transport), o.Bytes,
		o.OK(), string(o.ErrKind()), errText, string(rec),
		o.Started.UTC().Format(timeLayout), o.Finished.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert print %s: %w", o.JobID, err)
	}
	return nil
}

// Attach journals every outcome of o until the returned function is called
func (j *Journal) Attach(o *printjob.Orchestrator) (detach func()) {
	return o.Subscribe(func(out printjob.Outcome) {
		if err := j.Record(context.Background(), out); err != nil {
			j.log.Error().Err(err).Str("job", out.JobID).Msg("journal write failed")
		}
	})
}

// Recent returns up to limit entries, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, job_id, kind, receipt_no, device, transport, bytes, ok, error_kind, error, record, started_at, finished_at
		FROM prints ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query prints: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			kind, transport   string
			errKind, rec      string
			started, finished string
		)
		if err := rows.Scan(&e.ID, &e.JobID, &kind, &e.ReceiptNo, &e.Device, &transport, &e.Bytes,
			&e.OK, &errKind, &e.Error, &rec, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan print: %w", err)
		}
		e.Kind = receipt.Kind(kind)
		e.Transport = printer.Transport(transport)
		e.ErrorKind = printer.ErrorKind(errKind)
		if err := json.Unmarshal([]byte(rec), &e.Record); err != nil {
			return nil, fmt.Errorf("decode record of %s: %w", e.JobID, err)
		}
		e.Started, _ = time.Parse(timeLayout, started)
		e.Finished, _ = time.Parse(timeLayout, finished)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
