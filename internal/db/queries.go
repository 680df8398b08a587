package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/snapshot"
)

// Document is one stored snapshot row.
type Document struct {
	Key       string
	Revision  string
	State     *snapshot.SavedState
	UpdatedAt int64
}

// GetDocument retrieves the document stored under key.
// Returns (nil, nil) when no document exists.
func GetDocument(ctx context.Context, db *sql.DB, key string) (*Document, error) {
	query := `
		SELECT key, revision, document_json, updated_at
		FROM snapshots
		WHERE key = ?
	`

	var (
		doc     Document
		rawJSON string
	)
	err := db.QueryRowContext(ctx, query, key).Scan(&doc.Key, &doc.Revision, &rawJSON, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot %q: %w", key, err)
	}

	state := &snapshot.SavedState{}
	if err := json.Unmarshal([]byte(rawJSON), state); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("decode snapshot %q: %w", key, err))
	}
	doc.State = state.Normalize()

	return &doc, nil
}

// PutDocument replaces the whole document stored under key.
// There is no revision check: the last writer wins.
func PutDocument(ctx context.Context, db *sql.DB, key, revision string, state *snapshot.SavedState) error {
	if state == nil {
		return errors.NewInvalidRequest("snapshot document is required")
	}
	data, err := json.Marshal(state.Clone().Normalize())
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO snapshots (key, revision, document_json, saved_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			revision = excluded.revision,
			document_json = excluded.document_json,
			saved_at = excluded.saved_at,
			updated_at = excluded.updated_at
	`

	_, err = db.ExecContext(ctx, query, key, revision, string(data), state.SavedAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write snapshot %q: %w", key, err)
	}
	return nil
}

// DeleteDocument removes the document stored under key.
// Returns whether a row existed.
func DeleteDocument(ctx context.Context, db *sql.DB, key string) (bool, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM snapshots WHERE key = ?", key)
	if err != nil {
		return false, fmt.Errorf("delete snapshot %q: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete snapshot %q: %w", key, err)
	}
	return n > 0, nil
}
