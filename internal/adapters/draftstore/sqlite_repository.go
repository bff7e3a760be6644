package draftstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/lingoflow/internal/domain/wizard"
)

// SQLiteRepository implements wizard.Repository on a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database file and prepares the
// drafts table.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLiteRepository initializes the schema in db.
func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	r := &SQLiteRepository{db: db}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize draft schema: %w", err)
	}
	return r, nil
}

func (r *SQLiteRepository) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS drafts (
			wizard TEXT NOT NULL,
			session_id TEXT NOT NULL,
			current_step INTEGER NOT NULL,
			steps BLOB NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (wizard, session_id)
		);`,
	)
	return err
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Save inserts or replaces a snapshot.
func (r *SQLiteRepository) Save(ctx context.Context, snap wizard.Snapshot) error {
	steps, err := json.Marshal(snap.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO drafts (wizard, session_id, current_step, steps, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (wizard, session_id) DO UPDATE SET
			current_step = excluded.current_step,
			steps = excluded.steps,
			updated_at = excluded.updated_at`,
		snap.Wizard,
		snap.SessionID,
		snap.Current,
		steps,
		snap.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Load reads a snapshot.
func (r *SQLiteRepository) Load(ctx context.Context, wizardName, sessionID string) (*wizard.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT wizard, session_id, current_step, steps, updated_at
		FROM drafts
		WHERE wizard = ? AND session_id = ?`,
		wizardName, sessionID,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wizard.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Delete removes a snapshot.
func (r *SQLiteRepository) Delete(ctx context.Context, wizardName, sessionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE wizard = ? AND session_id = ?`, wizardName, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return wizard.ErrSnapshotNotFound
	}
	return nil
}

// List returns snapshots, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, wizardName string) ([]wizard.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT wizard, session_id, current_step, steps, updated_at
		FROM drafts
		WHERE ? = '' OR wizard = ?
		ORDER BY updated_at DESC`,
		wizardName, wizardName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var snaps []wizard.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(s scanner) (wizard.Snapshot, error) {
	var (
		snap    wizard.Snapshot
		steps   []byte
		updated int64
	)
	if err := s.Scan(&snap.Wizard, &snap.SessionID, &snap.Current, &steps, &updated); err != nil {
		return wizard.Snapshot{}, err
	}
	if err := json.Unmarshal(steps, &snap.Steps); err != nil {
		return wizard.Snapshot{}, fmt.Errorf("failed to decode draft %s/%s: %w", snap.Wizard, snap.SessionID, err)
	}
	snap.UpdatedAt = time.Unix(0, updated).UTC()
	return snap, nil
}

// Ensure SQLiteRepository implements wizard.Repository.
var _ wizard.Repository = (*SQLiteRepository)(nil)
