package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/models"
)

const todoColumns = `id, created_at, title, description, is_complete, owner_id, folder_id, shared_with, can_edit`

// editableFilter matches rows the actor owns or appears in can_edit of.
// Updates run through this filter so rows the actor may not touch are
// silently skipped rather than failing the whole batch.
const editableFilter = `(owner_id = ? OR EXISTS (SELECT 1 FROM json_each(todos.can_edit) WHERE json_each.value = ?))`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(s rowScanner) (models.Todo, error) {
	var t models.Todo
	var folder sql.NullString
	var sharedWith, canEdit string
	err := s.Scan(&t.ID, &t.CreatedAt, &t.Title, &t.Description, &t.IsComplete,
		&t.OwnerID, &folder, &sharedWith, &canEdit)
	if err != nil {
		return models.Todo{}, err
	}
	if folder.Valid {
		t.FolderID = &folder.String
	}
	t.SharedWith = decodeSet(sharedWith)
	t.CanEdit = decodeSet(canEdit)
	return t, nil
}

func queryTodos(ctx context.Context, q dbtx, query string, args ...any) ([]models.Todo, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query todos: %w", err)
	}
	defer rows.Close()

	var out []models.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertTodo stores a new todo row.
func (db *DB) InsertTodo(ctx context.Context, t models.Todo) error {
	var folder any
	if t.FolderID != nil {
		folder = *t.FolderID
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO todos (`+todoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.CreatedAt, t.Title, t.Description, t.IsComplete, t.OwnerID,
		folder, encodeSet(t.SharedWith), encodeSet(t.CanEdit))
	if err != nil {
		return fmt.Errorf("store: insert todo: %w", err)
	}
	return nil
}

// GetTodo returns one todo by id.
func (db *DB) GetTodo(ctx context.Context, id string) (models.Todo, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = ?`, id)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Todo{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Todo{}, fmt.Errorf("store: get todo: %w", err)
	}
	return t, nil
}

// TodosOwnedBy returns all todos owned by the user.
func (db *DB) TodosOwnedBy(ctx context.Context, userID string) ([]models.Todo, error) {
	return queryTodos(ctx, db.conn, `
		SELECT `+todoColumns+` FROM todos
		WHERE owner_id = ?
		ORDER BY created_at, id
	`, userID)
}

// TodosSharedWith returns all todos whose shared_with set contains the user.
func (db *DB) TodosSharedWith(ctx context.Context, userID string) ([]models.Todo, error) {
	return queryTodos(ctx, db.conn, `
		SELECT `+todoColumns+` FROM todos
		WHERE EXISTS (SELECT 1 FROM json_each(todos.shared_with) WHERE json_each.value = ?)
		ORDER BY created_at, id
	`, userID)
}

// UpdateTodoFields sets title and description on one todo.
func (db *DB) UpdateTodoFields(ctx context.Context, id, title, description string) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE todos SET title = ?, description = ? WHERE id = ?
	`, title, description, id)
	if err != nil {
		return fmt.Errorf("store: update todo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// SetTodosComplete sets the completion flag on every listed todo the actor
// may edit and returns the rows it changed. Rows the actor may not edit are
// skipped without error.
func (db *DB) SetTodosComplete(ctx context.Context, actorID string, ids []string, complete bool) ([]models.Todo, error) {
	return db.updateTodoBatch(ctx, actorID, ids, func(rows []models.Todo) (string, []any) {
		args := make([]any, 0, len(rows)+1)
		args = append(args, complete)
		for _, t := range rows {
			args = append(args, t.ID)
		}
		return `UPDATE todos SET is_complete = ? WHERE id IN (` + placeholders(len(rows)) + `)`, args
	}, func(t *models.Todo) {
		t.IsComplete = complete
	})
}

// SetTodosFolder moves every listed todo the actor may edit into the folder
// (nil detaches to the root list) and returns the rows it changed.
func (db *DB) SetTodosFolder(ctx context.Context, actorID string, ids []string, folderID *string) ([]models.Todo, error) {
	var folder any
	if folderID != nil {
		folder = *folderID
	}
	return db.updateTodoBatch(ctx, actorID, ids, func(rows []models.Todo) (string, []any) {
		args := make([]any, 0, len(rows)+1)
		args = append(args, folder)
		for _, t := range rows {
			args = append(args, t.ID)
		}
		return `UPDATE todos SET folder_id = ? WHERE id IN (` + placeholders(len(rows)) + `)`, args
	}, func(t *models.Todo) {
		if folderID == nil {
			t.FolderID = nil
			return
		}
		id := *folderID
		t.FolderID = &id
	})
}

// updateTodoBatch selects the editable subset of ids inside a transaction,
// applies the update built by buildStmt to exactly those rows, and returns
// them with patch applied.
func (db *DB) updateTodoBatch(ctx context.Context, actorID string, ids []string,
	buildStmt func(rows []models.Todo) (string, []any), patch func(*models.Todo)) ([]models.Todo, error) {

	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	args := make([]any, 0, len(ids)+2)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, actorID, actorID)
	rows, err := queryTodos(ctx, tx, `
		SELECT `+todoColumns+` FROM todos
		WHERE id IN (`+placeholders(len(ids))+`) AND `+editableFilter+`
		ORDER BY created_at, id
	`, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, tx.Commit()
	}

	stmt, stmtArgs := buildStmt(rows)
	if _, err := tx.ExecContext(ctx, stmt, stmtArgs...); err != nil {
		return nil, fmt.Errorf("store: update todos: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	for i := range rows {
		patch(&rows[i])
	}
	return rows, nil
}

// DeleteTodos removes every listed todo the actor owns and returns the rows
// it deleted. Rows the actor does not own are skipped without error.
func (db *DB) DeleteTodos(ctx context.Context, actorID string, ids []string) ([]models.Todo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, actorID)
	rows, err := queryTodos(ctx, tx, `
		SELECT `+todoColumns+` FROM todos
		WHERE id IN (`+placeholders(len(ids))+`) AND owner_id = ?
		ORDER BY created_at, id
	`, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, tx.Commit()
	}

	delArgs := make([]any, len(rows))
	for i, t := range rows {
		delArgs[i] = t.ID
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE id IN (`+placeholders(len(rows))+`)`, delArgs...); err != nil {
		return nil, fmt.Errorf("store: delete todos: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return rows, nil
}
