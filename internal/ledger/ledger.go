// Package ledger remembers which service lines have been saved into HMIS so a retried batch
// does not enter them twice.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"hmis-autoentry/internal/components/assert"
	"hmis-autoentry/internal/outreach"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Store is a sqlite backed hmis.Ledger.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the ledger database at path, ":memory:" opens a private
// in-memory ledger.
func Open(ctx context.Context, path string) (*Store, error) {
	assert.NotEmptyStr(path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	// an in-memory database only lives as long as its connection
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, Schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Saved(ctx context.Context, client string, code outreach.ServiceCode, date string) (bool, error) {
	var units int
	err := s.db.QueryRowContext(
		ctx,
		`select units from saved_service where client = ? and service = ? and service_date = ?`,
		client, code.String(), date,
	).Scan(&units)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Record(ctx context.Context, client string, line outreach.ServiceLine, date string) error {
	_, err := s.db.ExecContext(
		ctx,
		`insert into saved_service (client, service, service_date, units, saved_at)
		values (?, ?, ?, ?, ?)
		on conflict (client, service, service_date) do update set
			units = excluded.units,
			saved_at = excluded.saved_at`,
		client, line.Code.String(), date, line.Count, s.now().Unix(),
	)
	return err
}

// SavedLine is a row of the ledger.
type SavedLine struct {
	Client  string
	Line    outreach.ServiceLine
	SavedAt time.Time
}

// ForDate lists every line saved for a service date, ordered by client and entry order.
func (s *Store) ForDate(ctx context.Context, date string) ([]SavedLine, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select client, service, units, saved_at from saved_service
		where service_date = ?
		order by client, saved_at, service`,
		date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SavedLine
	for rows.Next() {
		var (
			line    SavedLine
			service string
			savedAt int64
		)
		err = rows.Scan(&line.Client, &service, &line.Line.Count, &savedAt)
		if err != nil {
			return nil, err
		}
		line.Line.Code, err = outreach.ParseServiceCode(service)
		if err != nil {
			return nil, err
		}
		line.SavedAt = time.Unix(savedAt, 0)
		out = append(out, line)
	}
	return out, rows.Err()
}
