package matrix

// syncstore.go implements mautrix.SyncStore backed by the copilot's SQLite
// database.  Persisting the next_batch token across restarts prevents the
// host from replaying old room history and re-running actions that were
// already handled in a previous run.

import (
	"context"
	"database/sql"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

var _ mautrix.SyncStore = (*dbSyncStore)(nil)

// dbSyncStore stores each value as a row in the matrix_sync_state table
// keyed by (user_id, key).
type dbSyncStore struct {
	db *sql.DB
}

func newDBSyncStore(db *sql.DB) *dbSyncStore {
	return &dbSyncStore{db: db}
}

func (s *dbSyncStore) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	return s.saveKey(ctx, userID.String(), "filter_id", filterID)
}

// LoadFilterID returns ("", nil) when no filter has been saved yet.
func (s *dbSyncStore) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return s.loadKey(ctx, userID.String(), "filter_id")
}

func (s *dbSyncStore) SaveNextBatch(ctx context.Context, userID id.UserID, nextBatchToken string) error {
	return s.saveKey(ctx, userID.String(), "next_batch", nextBatchToken)
}

// LoadNextBatch returns ("", nil) on the first run, before any token has
// been saved.
func (s *dbSyncStore) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	return s.loadKey(ctx, userID.String(), "next_batch")
}

func (s *dbSyncStore) saveKey(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matrix_sync_state (user_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value
	`, userID, key, value)
	return err
}

func (s *dbSyncStore) loadKey(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM matrix_sync_state WHERE user_id = ? AND key = ?
	`, userID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
