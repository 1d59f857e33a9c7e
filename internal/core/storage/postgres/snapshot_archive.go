package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/itad-lab/itad-metrics/internal/core/storage"
)

// SnapshotArchiveAdapter implements storage.SnapshotArchive using PostgreSQL.
// Payloads are stored as JSONB keyed by snapshot version.
type SnapshotArchiveAdapter struct {
	db  *sql.DB
	now func() time.Time
}

// NewSnapshotArchiveAdapter creates an archive sharing the given connection.
func NewSnapshotArchiveAdapter(db *sql.DB) *SnapshotArchiveAdapter {
	return &SnapshotArchiveAdapter{db: db, now: time.Now}
}

// SaveSnapshot stores one published snapshot. Re-saving a version is a no-op.
func (a *SnapshotArchiveAdapter) SaveSnapshot(ctx context.Context, snap storage.ArchivedSnapshot) error {
	result, err := a.db.ExecContext(ctx, querySaveSnapshot,
		snap.Version,
		snap.SnapshotID,
		snap.GeneratedAt,
		snap.Payload,
		a.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("snapshot archive: save version %d: %w", snap.Version, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("snapshot archive: check save: %w", err)
	}
	if rowsAffected == 0 {
		slog.Debug("[SnapshotArchive] Version already archived", "version", snap.Version)
		return nil
	}

	slog.Debug("[SnapshotArchive] Archived snapshot",
		"version", snap.Version,
		"snapshot_id", snap.SnapshotID,
		"bytes", len(snap.Payload))
	return nil
}

// LoadLatestSnapshot returns the highest archived version.
// Returns storage.ErrNotFound when the archive is empty.
func (a *SnapshotArchiveAdapter) LoadLatestSnapshot(ctx context.Context) (*storage.ArchivedSnapshot, error) {
	var snap storage.ArchivedSnapshot
	err := a.db.QueryRowContext(ctx, queryLoadLatestSnapshot).Scan(
		&snap.Version,
		&snap.SnapshotID,
		&snap.GeneratedAt,
		&snap.Payload,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot archive: load latest: %w", err)
	}
	snap.GeneratedAt = snap.GeneratedAt.UTC()
	return &snap, nil
}

// ListSnapshots returns up to limit archived snapshots, newest first, without payloads.
func (a *SnapshotArchiveAdapter) ListSnapshots(ctx context.Context, limit int) ([]storage.ArchivedSnapshot, error) {
	rows, err := a.db.QueryContext(ctx, queryListSnapshots, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshot archive: list: %w", err)
	}
	defer rows.Close()

	var out []storage.ArchivedSnapshot
	for rows.Next() {
		var snap storage.ArchivedSnapshot
		if err := rows.Scan(&snap.Version, &snap.SnapshotID, &snap.GeneratedAt); err != nil {
			return nil, fmt.Errorf("snapshot archive: scan row: %w", err)
		}
		snap.GeneratedAt = snap.GeneratedAt.UTC()
		out = append(out, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot archive: iterate rows: %w", err)
	}
	return out, nil
}
