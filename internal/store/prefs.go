package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/wunjo/internal/prefs"
)

// PreferenceDoc returns the user's preference document. A user with no
// stored document gets an empty one, not an error.
func (db *DB) PreferenceDoc(ctx context.Context, userID string) (prefs.Doc, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx, `
		SELECT doc FROM preferences WHERE user_id = ?
	`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return prefs.Doc{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: preference doc: %w", err)
	}
	var doc prefs.Doc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("store: decode preference doc: %w", err)
	}
	if doc == nil {
		doc = prefs.Doc{}
	}
	return doc, nil
}

// SavePreferenceDoc upserts the user's whole preference document.
func (db *DB) SavePreferenceDoc(ctx context.Context, userID string, doc prefs.Doc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: encode preference doc: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO preferences (user_id, doc, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			doc        = excluded.doc,
			updated_at = excluded.updated_at
	`, userID, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: save preference doc: %w", err)
	}
	return nil
}
