// Package store keeps named safelist snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/activecm/genhash/db"
	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/logger"
	"github.com/activecm/genhash/safelist"
)

// Snapshot describes one stored safelist.
type Snapshot struct {
	Name       string    `json:"name"`
	EntryCount int       `json:"entry_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store reads and writes snapshots.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// New creates a store over a migrated database.
func New(conn *sql.DB, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{db: conn, logger: log}
}

// Save stores entries under name, replacing any snapshot with that name.
// The replacement is atomic.
func (s *Store) Save(ctx context.Context, name string, entries []safelist.Entry) (err error) {
	if name == "" {
		return errors.NewInvalidRequestError("snapshot name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(db.Classify(err), "begin save")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM safelists WHERE name = ?`, name); err != nil {
		return errors.Wrapf(db.Classify(err), "replace snapshot %q", name)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO safelists (name, entry_count, created_at) VALUES (?, ?, ?)`,
		name, len(entries), time.Now().UTC())
	if err != nil {
		return errors.Wrapf(db.Classify(err), "insert snapshot %q", name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "snapshot id")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO safelist_entries (safelist_id, position, type, name, hash_key, body) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(db.Classify(err), "prepare entry insert")
	}
	defer stmt.Close()

	for i, e := range entries {
		body, err := json.Marshal(e)
		if err != nil {
			return errors.Wrapf(err, "encode entry %d", i)
		}
		var hash sql.NullString
		if e.HashKey != nil {
			hash = sql.NullString{String: e.HashKey.String(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, i, e.Type, e.Name, hash, string(body)); err != nil {
			return errors.Wrapf(db.Classify(err), "insert entry %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(db.Classify(err), "commit snapshot")
	}

	s.logger.Infow("Saved snapshot",
		logger.FieldSnapshot, name,
		logger.FieldCount, len(entries))
	return nil
}

// Load returns the entries of a snapshot in their original order.
func (s *Store) Load(ctx context.Context, name string) ([]safelist.Entry, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM safelists WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("snapshot %q", name)
	}
	if err != nil {
		return nil, errors.Wrapf(db.Classify(err), "find snapshot %q", name)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM safelist_entries WHERE safelist_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, errors.Wrapf(db.Classify(err), "load snapshot %q", name)
	}
	defer rows.Close()

	entries := []safelist.Entry{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errors.Wrap(err, "scan entry")
		}
		var e safelist.Entry
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return nil, errors.Wrapf(errors.ErrMalformedEntry, "snapshot %q entry %d: %v", name, len(entries), err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(db.Classify(err), "load snapshot %q", name)
	}

	s.logger.Debugw("Loaded snapshot",
		logger.FieldSnapshot, name,
		logger.FieldCount, len(entries))
	return entries, nil
}

// List returns all snapshots ordered by name.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, entry_count, created_at FROM safelists ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(db.Classify(err), "list snapshots")
	}
	defer rows.Close()

	snapshots := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.Name, &snap.EntryCount, &snap.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan snapshot")
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, errors.Wrap(rows.Err(), "list snapshots")
}

// Delete removes a snapshot and its entries.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM safelists WHERE name = ?`, name)
	if err != nil {
		return errors.Wrapf(db.Classify(err), "delete snapshot %q", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.NewNotFoundError("snapshot %q", name)
	}

	s.logger.Infow("Deleted snapshot", logger.FieldSnapshot, name)
	return nil
}
