package replica

import (
	"context"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/models"
)

// Optimistic rollbacks are guarded per entity and field: every optimistic
// write bumps a sequence, and a failed write only restores the captured
// value while its own sequence is still the latest. A newer write to the
// same field wins over an older failure's rollback.
const (
	fieldComplete = "is_complete"
	fieldText     = "fields"
	fieldFolder   = "folder_id"
)

func pendingKey(id, field string) string {
	return id + ":" + field
}

func (r *Replica) bumpLocked(key string) uint64 {
	r.pending[key]++
	return r.pending[key]
}

func (r *Replica) staleLocked(key string, seq uint64) bool {
	return r.pending[key] != seq
}

// Toggle optimistically flips a todo's completion flag and confirms with the
// backend, rolling the flag back on failure.
func (r *Replica) Toggle(ctx context.Context, id string) error {
	r.mu.Lock()
	i := r.indexOfTodoLocked(id)
	if i < 0 {
		r.mu.Unlock()
		r.notify.Error("Todo not found")
		return apperr.ErrNotFound
	}
	prev := r.todos[i].IsComplete
	next := !prev
	key := pendingKey(id, fieldComplete)
	seq := r.bumpLocked(key)
	r.todos[i].IsComplete = next
	r.mu.Unlock()

	if _, err := r.backend.SetTodosComplete(ctx, r.user.ID, []string{id}, next); err != nil {
		r.mu.Lock()
		if !r.staleLocked(key, seq) {
			if j := r.indexOfTodoLocked(id); j >= 0 {
				r.todos[j].IsComplete = prev
			}
		}
		r.mu.Unlock()
		r.notify.Error("Failed to update todo")
		return err
	}
	r.notify.Success("Todo updated")
	return nil
}

// UpdateTodo optimistically sets a todo's title and description and confirms
// with the backend, rolling both fields back on failure.
func (r *Replica) UpdateTodo(ctx context.Context, id, title, description string) error {
	r.mu.Lock()
	i := r.indexOfTodoLocked(id)
	if i < 0 {
		r.mu.Unlock()
		r.notify.Error("Todo not found")
		return apperr.ErrNotFound
	}
	prevTitle, prevDesc := r.todos[i].Title, r.todos[i].Description
	key := pendingKey(id, fieldText)
	seq := r.bumpLocked(key)
	r.todos[i].Title, r.todos[i].Description = title, description
	r.mu.Unlock()

	if _, err := r.backend.UpdateTodo(ctx, r.user.ID, id, title, description); err != nil {
		r.mu.Lock()
		if !r.staleLocked(key, seq) {
			if j := r.indexOfTodoLocked(id); j >= 0 {
				r.todos[j].Title, r.todos[j].Description = prevTitle, prevDesc
			}
		}
		r.mu.Unlock()
		r.notify.Error("Failed to update todo")
		return err
	}
	r.notify.Success("Todo updated")
	return nil
}

// SetComplete optimistically sets the completion flag on several todos and
// confirms with the backend. On failure each todo rolls back independently,
// skipping any the user has since written again.
func (r *Replica) SetComplete(ctx context.Context, ids []string, complete bool) error {
	type capture struct {
		seq  uint64
		prev bool
	}
	r.mu.Lock()
	captured := make(map[string]capture, len(ids))
	for _, id := range ids {
		if i := r.indexOfTodoLocked(id); i >= 0 {
			captured[id] = capture{seq: r.bumpLocked(pendingKey(id, fieldComplete)), prev: r.todos[i].IsComplete}
			r.todos[i].IsComplete = complete
		}
	}
	r.mu.Unlock()

	if _, err := r.backend.SetTodosComplete(ctx, r.user.ID, ids, complete); err != nil {
		r.mu.Lock()
		for id, c := range captured {
			if r.staleLocked(pendingKey(id, fieldComplete), c.seq) {
				continue
			}
			if j := r.indexOfTodoLocked(id); j >= 0 {
				r.todos[j].IsComplete = c.prev
			}
		}
		r.mu.Unlock()
		r.notify.Error("Failed to update todos")
		return err
	}
	r.notify.Success("Todos updated")
	return nil
}

// Move optimistically files several todos into a folder (nil moves them to
// the root list) and confirms with the backend, rolling each back on
// failure.
func (r *Replica) Move(ctx context.Context, ids []string, folderID *string) error {
	type capture struct {
		seq  uint64
		prev *string
	}
	r.mu.Lock()
	captured := make(map[string]capture, len(ids))
	for _, id := range ids {
		if i := r.indexOfTodoLocked(id); i >= 0 {
			captured[id] = capture{seq: r.bumpLocked(pendingKey(id, fieldFolder)), prev: cloneFolderID(r.todos[i].FolderID)}
			r.todos[i].FolderID = cloneFolderID(folderID)
		}
	}
	r.mu.Unlock()

	if _, err := r.backend.MoveTodos(ctx, r.user.ID, ids, folderID); err != nil {
		r.mu.Lock()
		for id, c := range captured {
			if r.staleLocked(pendingKey(id, fieldFolder), c.seq) {
				continue
			}
			if j := r.indexOfTodoLocked(id); j >= 0 {
				r.todos[j].FolderID = c.prev
			}
		}
		r.mu.Unlock()
		r.notify.Error("Failed to move todos")
		return err
	}
	r.notify.Success("Todos moved")
	return nil
}

// CreateTodo asks the backend for a new todo and mirrors it once confirmed.
// Creation is not optimistic: the row id is server-assigned.
func (r *Replica) CreateTodo(ctx context.Context, title, description string, folderID *string) (models.Todo, error) {
	t, err := r.backend.CreateTodo(ctx, r.user.ID, title, description, folderID)
	if err != nil {
		r.notify.Error("Failed to create todo")
		return models.Todo{}, err
	}
	r.mu.Lock()
	r.upsertTodoLocked(t)
	r.mu.Unlock()
	r.notify.Success("Todo created")
	return t, nil
}

// Delete removes todos after the backend confirms. Only rows the backend
// actually deleted leave the mirror, so rows owned by someone else stay.
func (r *Replica) Delete(ctx context.Context, ids ...string) error {
	deleted, err := r.backend.DeleteTodos(ctx, r.user.ID, ids)
	if err != nil {
		r.notify.Error("Failed to delete todos")
		return err
	}
	r.mu.Lock()
	for _, id := range deleted {
		r.removeTodoLocked(id)
	}
	r.mu.Unlock()
	if len(ids) == 1 {
		r.notify.Success("Todo deleted")
	} else {
		r.notify.Success("Todos deleted")
	}
	return nil
}

// CreateFolder asks the backend for a new folder and mirrors it once
// confirmed.
func (r *Replica) CreateFolder(ctx context.Context, name, description string) (models.Folder, error) {
	f, err := r.backend.CreateFolder(ctx, r.user.ID, name, description)
	if err != nil {
		r.notify.Error("Failed to create folder")
		return models.Folder{}, err
	}
	r.mu.Lock()
	r.upsertFolderLocked(f)
	r.mu.Unlock()
	r.notify.Success("Folder created")
	return f, nil
}

// UpdateFolder renames a folder after the backend confirms.
func (r *Replica) UpdateFolder(ctx context.Context, id, name, description string) error {
	f, err := r.backend.UpdateFolder(ctx, r.user.ID, id, name, description)
	if err != nil {
		r.notify.Error("Failed to update folder")
		return err
	}
	r.mu.Lock()
	r.upsertFolderLocked(f)
	r.mu.Unlock()
	r.notify.Success("Folder updated")
	return nil
}

// ShareFolder grants another user access to a folder by email. Once the
// backend confirms, the folder's new sets are stamped onto every mirrored
// member todo, matching the server-side cascade; the feed's re-delivery of
// the same rows is then idempotent.
func (r *Replica) ShareFolder(ctx context.Context, folderID, email, grant string) error {
	f, err := r.backend.ShareFolder(ctx, r.user.ID, folderID, email, grant)
	if err != nil {
		r.notify.Error("Failed to share folder")
		return err
	}
	r.mu.Lock()
	r.upsertFolderLocked(f)
	for i := range r.todos {
		if r.todos[i].FolderID != nil && *r.todos[i].FolderID == f.ID {
			r.todos[i].SharedWith = models.CloneSet(f.SharedWith)
			r.todos[i].CanEdit = models.CloneSet(f.CanEdit)
		}
	}
	r.mu.Unlock()
	r.notify.Success("Folder shared")
	return nil
}

// DeleteFolder removes a folder after the backend confirms. Mirrored member
// todos detach to the root list and keep their sharing sets.
func (r *Replica) DeleteFolder(ctx context.Context, id string) error {
	if err := r.backend.DeleteFolder(ctx, r.user.ID, id); err != nil {
		r.notify.Error("Failed to delete folder")
		return err
	}
	r.mu.Lock()
	for i := range r.todos {
		if r.todos[i].FolderID != nil && *r.todos[i].FolderID == id {
			r.todos[i].FolderID = nil
		}
	}
	r.removeFolderLocked(id)
	r.mu.Unlock()
	r.notify.Success("Folder deleted")
	return nil
}

func cloneFolderID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
