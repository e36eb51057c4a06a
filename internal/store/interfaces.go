package store

import (
	"context"
	"time"

	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/prefs"
)

// TodoStore defines the todo-table surface of the row store. Consumers
// should depend on these interfaces rather than the concrete *DB type to
// facilitate testing with mocks.
type TodoStore interface {
	InsertTodo(ctx context.Context, t models.Todo) error
	GetTodo(ctx context.Context, id string) (models.Todo, error)
	TodosOwnedBy(ctx context.Context, userID string) ([]models.Todo, error)
	TodosSharedWith(ctx context.Context, userID string) ([]models.Todo, error)
	UpdateTodoFields(ctx context.Context, id, title, description string) error
	SetTodosComplete(ctx context.Context, actorID string, ids []string, complete bool) ([]models.Todo, error)
	SetTodosFolder(ctx context.Context, actorID string, ids []string, folderID *string) ([]models.Todo, error)
	DeleteTodos(ctx context.Context, actorID string, ids []string) ([]models.Todo, error)
}

// FolderStore defines the folder-table surface of the row store.
type FolderStore interface {
	InsertFolder(ctx context.Context, f models.Folder) error
	GetFolder(ctx context.Context, id string) (models.Folder, error)
	FoldersOwnedBy(ctx context.Context, userID string) ([]models.Folder, error)
	FoldersSharedWith(ctx context.Context, userID string) ([]models.Folder, error)
	UpdateFolderFields(ctx context.Context, id, name, description string) error
	ShareFolder(ctx context.Context, folderID, granteeID string, grantEdit bool) (models.Folder, []models.Todo, error)
	DeleteFolder(ctx context.Context, folderID string) (models.Folder, []models.Todo, error)
}

// UserStore defines the account and session surface of the row store.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User, passwordHash string) error
	UserByEmail(ctx context.Context, email string) (models.User, string, error)
	UserByID(ctx context.Context, id string) (models.User, error)
	CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error
	SessionUser(ctx context.Context, token string, now time.Time) (models.User, error)
	DeleteSession(ctx context.Context, token string) error
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// PrefStore defines the preference-document surface of the row store.
type PrefStore interface {
	PreferenceDoc(ctx context.Context, userID string) (prefs.Doc, error)
	SavePreferenceDoc(ctx context.Context, userID string, doc prefs.Doc) error
}

// Verify *DB satisfies the store interfaces at compile time.
var (
	_ TodoStore   = (*DB)(nil)
	_ FolderStore = (*DB)(nil)
	_ UserStore   = (*DB)(nil)
	_ PrefStore   = (*DB)(nil)
)
