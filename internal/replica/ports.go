package replica

import (
	"context"

	"github.com/starford/wunjo/internal/feed"
	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/prefs"
)

// Backend is the slice of the platform a replica drives: row reads and
// writes scoped to one user, plus the preference document. It is satisfied
// by *todoservice.Service and by test fakes.
type Backend interface {
	TodosOwnedBy(ctx context.Context, userID string) ([]models.Todo, error)
	TodosSharedWith(ctx context.Context, userID string) ([]models.Todo, error)
	FoldersOwnedBy(ctx context.Context, userID string) ([]models.Folder, error)
	FoldersSharedWith(ctx context.Context, userID string) ([]models.Folder, error)

	CreateTodo(ctx context.Context, userID, title, description string, folderID *string) (models.Todo, error)
	UpdateTodo(ctx context.Context, userID, id, title, description string) (models.Todo, error)
	SetTodosComplete(ctx context.Context, userID string, ids []string, complete bool) ([]models.Todo, error)
	MoveTodos(ctx context.Context, userID string, ids []string, folderID *string) ([]models.Todo, error)
	DeleteTodos(ctx context.Context, userID string, ids []string) ([]string, error)

	CreateFolder(ctx context.Context, userID, name, description string) (models.Folder, error)
	UpdateFolder(ctx context.Context, userID, id, name, description string) (models.Folder, error)
	ShareFolder(ctx context.Context, userID, folderID, email, grant string) (models.Folder, error)
	DeleteFolder(ctx context.Context, userID, id string) error

	Preferences(ctx context.Context, userID string) (prefs.Doc, error)
	SavePreferences(ctx context.Context, userID string, incoming prefs.Doc) (prefs.Doc, error)
}

// FeedSource hands out per-user event subscriptions. It is satisfied by
// *feed.Hub.
type FeedSource interface {
	Subscribe(userID string) chan feed.Event
	Unsubscribe(ch chan feed.Event)
}

// Notifier receives the user-facing notices a replica emits about mutation
// outcomes. Messages are plain language, not error chains.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}
