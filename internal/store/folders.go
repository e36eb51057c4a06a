package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/models"
)

const folderColumns = `id, created_at, name, description, owner_id, shared_with, can_edit`

func scanFolder(s rowScanner) (models.Folder, error) {
	var f models.Folder
	var sharedWith, canEdit string
	err := s.Scan(&f.ID, &f.CreatedAt, &f.Name, &f.Description, &f.OwnerID, &sharedWith, &canEdit)
	if err != nil {
		return models.Folder{}, err
	}
	f.SharedWith = decodeSet(sharedWith)
	f.CanEdit = decodeSet(canEdit)
	return f, nil
}

func queryFolders(ctx context.Context, q dbtx, query string, args ...any) ([]models.Folder, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query folders: %w", err)
	}
	defer rows.Close()

	var out []models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func getFolder(ctx context.Context, q dbtx, id string) (models.Folder, error) {
	row := q.QueryRowContext(ctx, `SELECT `+folderColumns+` FROM folders WHERE id = ?`, id)
	f, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Folder{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Folder{}, fmt.Errorf("store: get folder: %w", err)
	}
	return f, nil
}

// InsertFolder stores a new folder row.
func (db *DB) InsertFolder(ctx context.Context, f models.Folder) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO folders (`+folderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.CreatedAt, f.Name, f.Description, f.OwnerID,
		encodeSet(f.SharedWith), encodeSet(f.CanEdit))
	if err != nil {
		return fmt.Errorf("store: insert folder: %w", err)
	}
	return nil
}

// GetFolder returns one folder by id.
func (db *DB) GetFolder(ctx context.Context, id string) (models.Folder, error) {
	return getFolder(ctx, db.conn, id)
}

// FoldersOwnedBy returns all folders owned by the user.
func (db *DB) FoldersOwnedBy(ctx context.Context, userID string) ([]models.Folder, error) {
	return queryFolders(ctx, db.conn, `
		SELECT `+folderColumns+` FROM folders
		WHERE owner_id = ?
		ORDER BY created_at, id
	`, userID)
}

// FoldersSharedWith returns all folders whose shared_with set contains the user.
func (db *DB) FoldersSharedWith(ctx context.Context, userID string) ([]models.Folder, error) {
	return queryFolders(ctx, db.conn, `
		SELECT `+folderColumns+` FROM folders
		WHERE EXISTS (SELECT 1 FROM json_each(folders.shared_with) WHERE json_each.value = ?)
		ORDER BY created_at, id
	`, userID)
}

// UpdateFolderFields sets name and description on one folder.
func (db *DB) UpdateFolderFields(ctx context.Context, id, name, description string) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE folders SET name = ?, description = ? WHERE id = ?
	`, name, description, id)
	if err != nil {
		return fmt.Errorf("store: update folder: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ShareFolder adds the grantee to the folder's sharing sets and stamps the
// updated sets onto every member todo, all in one transaction. Member todos
// take the folder's sets verbatim, replacing whatever they had. Returns the
// updated folder and members.
func (db *DB) ShareFolder(ctx context.Context, folderID, granteeID string, grantEdit bool) (models.Folder, []models.Todo, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Folder{}, nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	f, err := getFolder(ctx, tx, folderID)
	if err != nil {
		return models.Folder{}, nil, err
	}
	f.SharedWith = models.AddToSet(f.SharedWith, granteeID)
	if grantEdit {
		f.CanEdit = models.AddToSet(f.CanEdit, granteeID)
	}
	sharedJSON, editJSON := encodeSet(f.SharedWith), encodeSet(f.CanEdit)

	if _, err := tx.ExecContext(ctx, `
		UPDATE folders SET shared_with = ?, can_edit = ? WHERE id = ?
	`, sharedJSON, editJSON, folderID); err != nil {
		return models.Folder{}, nil, fmt.Errorf("store: share folder: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE todos SET shared_with = ?, can_edit = ? WHERE folder_id = ?
	`, sharedJSON, editJSON, folderID); err != nil {
		return models.Folder{}, nil, fmt.Errorf("store: share folder todos: %w", err)
	}

	members, err := queryTodos(ctx, tx, `
		SELECT `+todoColumns+` FROM todos
		WHERE folder_id = ?
		ORDER BY created_at, id
	`, folderID)
	if err != nil {
		return models.Folder{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return models.Folder{}, nil, fmt.Errorf("store: commit: %w", err)
	}
	return f, members, nil
}

// DeleteFolder detaches every member todo and then removes the folder, all
// in one transaction. Detached todos keep their stamped sharing sets.
// Returns the folder as it was before deletion and the detached members.
func (db *DB) DeleteFolder(ctx context.Context, folderID string) (models.Folder, []models.Todo, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Folder{}, nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	f, err := getFolder(ctx, tx, folderID)
	if err != nil {
		return models.Folder{}, nil, err
	}
	members, err := queryTodos(ctx, tx, `
		SELECT `+todoColumns+` FROM todos
		WHERE folder_id = ?
		ORDER BY created_at, id
	`, folderID)
	if err != nil {
		return models.Folder{}, nil, err
	}

	// Children first: the todos.folder_id foreign key rejects deleting a
	// folder that still has members.
	if _, err := tx.ExecContext(ctx, `UPDATE todos SET folder_id = NULL WHERE folder_id = ?`, folderID); err != nil {
		return models.Folder{}, nil, fmt.Errorf("store: detach todos: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, folderID); err != nil {
		return models.Folder{}, nil, fmt.Errorf("store: delete folder: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Folder{}, nil, fmt.Errorf("store: commit: %w", err)
	}
	for i := range members {
		members[i].FolderID = nil
	}
	return f, members, nil
}
