// Package todoservice coordinates the row store, access policy, and the
// realtime feed. Every permission decision funnels through perm.Resolve and
// every successful write is published to the hub, so subscribers converge on
// what the store holds.
package todoservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/feed"
	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/perm"
	"github.com/starford/wunjo/internal/store"
)

var (
	errEmptyTitle = errors.New("title is required")
	errEmptyName  = errors.New("name is required")
)

// Service coordinates store and feed operations.
type Service struct {
	db  *store.DB
	hub *feed.Hub
}

// New creates a new todo service.
func New(db *store.DB, hub *feed.Hub) *Service {
	return &Service{db: db, hub: hub}
}

// TodosOwnedBy returns the todos the user owns.
func (s *Service) TodosOwnedBy(ctx context.Context, userID string) ([]models.Todo, error) {
	return s.db.TodosOwnedBy(ctx, userID)
}

// TodosSharedWith returns the todos shared with the user.
func (s *Service) TodosSharedWith(ctx context.Context, userID string) ([]models.Todo, error) {
	return s.db.TodosSharedWith(ctx, userID)
}

// VisibleTodos returns owned and shared todos merged, deduplicated by id
// with the owned copy winning.
func (s *Service) VisibleTodos(ctx context.Context, userID string) ([]models.Todo, error) {
	owned, err := s.db.TodosOwnedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	shared, err := s.db.TodosSharedWith(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.MergeTodos(owned, shared), nil
}

// GetTodo returns one todo if the user may see it. Todos the user may not
// see are reported as not found, not as forbidden.
func (s *Service) GetTodo(ctx context.Context, userID, id string) (models.Todo, error) {
	t, err := s.db.GetTodo(ctx, id)
	if err != nil {
		return models.Todo{}, err
	}
	if !perm.Resolve(t.OwnerID, t.SharedWith, t.CanEdit, userID).CanView() {
		return models.Todo{}, apperr.ErrNotFound
	}
	return t, nil
}

// CreateTodo creates a todo owned by the user. Filing it into a folder
// stamps the folder's sharing sets onto the new row so folder members see it
// immediately.
func (s *Service) CreateTodo(ctx context.Context, userID, title, description string, folderID *string) (models.Todo, error) {
	if strings.TrimSpace(title) == "" {
		return models.Todo{}, errEmptyTitle
	}
	var sharedWith, canEdit []string
	if folderID != nil {
		f, err := s.db.GetFolder(ctx, *folderID)
		if err != nil {
			return models.Todo{}, err
		}
		if !perm.Resolve(f.OwnerID, f.SharedWith, f.CanEdit, userID).CanView() {
			return models.Todo{}, apperr.ErrNotFound
		}
		sharedWith, canEdit = f.SharedWith, f.CanEdit
		id := *folderID
		folderID = &id
	}

	t := models.Todo{
		ID:          models.NewID(),
		CreatedAt:   time.Now().UTC(),
		Title:       title,
		Description: description,
		OwnerID:     userID,
		FolderID:    folderID,
		SharedWith:  models.CloneSet(sharedWith),
		CanEdit:     models.CloneSet(canEdit),
	}
	if err := s.db.InsertTodo(ctx, t); err != nil {
		return models.Todo{}, err
	}
	s.hub.Publish(feed.TodoInserted(t))
	return t, nil
}

// UpdateTodo sets title and description on a todo the user may edit.
func (s *Service) UpdateTodo(ctx context.Context, userID, id, title, description string) (models.Todo, error) {
	if strings.TrimSpace(title) == "" {
		return models.Todo{}, errEmptyTitle
	}
	t, err := s.editableTodo(ctx, userID, id)
	if err != nil {
		return models.Todo{}, err
	}
	if err := s.db.UpdateTodoFields(ctx, id, title, description); err != nil {
		return models.Todo{}, err
	}
	t.Title, t.Description = title, description
	s.hub.Publish(feed.TodoUpdated(t))
	return t, nil
}

// ToggleTodo flips the completion flag on a todo the user may edit.
func (s *Service) ToggleTodo(ctx context.Context, userID, id string) (models.Todo, error) {
	t, err := s.editableTodo(ctx, userID, id)
	if err != nil {
		return models.Todo{}, err
	}
	rows, err := s.db.SetTodosComplete(ctx, userID, []string{id}, !t.IsComplete)
	if err != nil {
		return models.Todo{}, err
	}
	if len(rows) == 0 {
		return models.Todo{}, apperr.ErrForbidden
	}
	s.hub.Publish(feed.TodoUpdated(rows[0]))
	return rows[0], nil
}

// SetTodosComplete sets the completion flag on every listed todo the user
// may edit. Todos the user may not edit are skipped, not an error; the
// returned rows are the ones that changed.
func (s *Service) SetTodosComplete(ctx context.Context, userID string, ids []string, complete bool) ([]models.Todo, error) {
	rows, err := s.db.SetTodosComplete(ctx, userID, ids, complete)
	if err != nil {
		return nil, err
	}
	for _, t := range rows {
		s.hub.Publish(feed.TodoUpdated(t))
	}
	return rows, nil
}

// MoveTodos files every listed todo the user may edit into the folder, or
// back into the root list when folderID is nil. Todos the user may not edit
// are skipped.
func (s *Service) MoveTodos(ctx context.Context, userID string, ids []string, folderID *string) ([]models.Todo, error) {
	if folderID != nil {
		f, err := s.db.GetFolder(ctx, *folderID)
		if err != nil {
			return nil, err
		}
		if !perm.Resolve(f.OwnerID, f.SharedWith, f.CanEdit, userID).CanView() {
			return nil, apperr.ErrNotFound
		}
	}
	rows, err := s.db.SetTodosFolder(ctx, userID, ids, folderID)
	if err != nil {
		return nil, err
	}
	for _, t := range rows {
		s.hub.Publish(feed.TodoUpdated(t))
	}
	return rows, nil
}

// DeleteTodo removes one todo the user owns. Editors may not delete: the
// call reports forbidden for a visible todo the user does not own.
func (s *Service) DeleteTodo(ctx context.Context, userID, id string) error {
	t, err := s.db.GetTodo(ctx, id)
	if err != nil {
		return err
	}
	switch lvl := perm.Resolve(t.OwnerID, t.SharedWith, t.CanEdit, userID); {
	case lvl == perm.None:
		return apperr.ErrNotFound
	case lvl != perm.Owner:
		return apperr.ErrForbidden
	}
	rows, err := s.db.DeleteTodos(ctx, userID, []string{id})
	if err != nil {
		return err
	}
	for _, row := range rows {
		s.hub.Publish(feed.TodoDeleted(row))
	}
	return nil
}

// DeleteTodos removes every listed todo the user owns and returns the ids it
// removed. Todos the user does not own are skipped, not an error.
func (s *Service) DeleteTodos(ctx context.Context, userID string, ids []string) ([]string, error) {
	rows, err := s.db.DeleteTodos(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	deleted := make([]string, len(rows))
	for i, t := range rows {
		deleted[i] = t.ID
		s.hub.Publish(feed.TodoDeleted(t))
	}
	return deleted, nil
}

// editableTodo loads a todo and enforces edit rights: invisible rows read as
// not found, visible but read-only rows as forbidden.
func (s *Service) editableTodo(ctx context.Context, userID, id string) (models.Todo, error) {
	t, err := s.db.GetTodo(ctx, id)
	if err != nil {
		return models.Todo{}, err
	}
	lvl := perm.Resolve(t.OwnerID, t.SharedWith, t.CanEdit, userID)
	if !lvl.CanView() {
		return models.Todo{}, apperr.ErrNotFound
	}
	if !lvl.CanEdit() {
		return models.Todo{}, apperr.ErrForbidden
	}
	return t, nil
}
