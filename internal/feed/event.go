// Package feed implements the realtime change feed: a hub that fans row
// change events out to per-user subscribers over SSE or WebSocket.
package feed

import (
	"github.com/starford/wunjo/internal/models"
)

// Tables and change types carried on the wire. The SSE event name is
// "<table>.<type>", e.g. "todos.update".
const (
	TableTodos   = "todos"
	TableFolders = "folders"

	TypeInsert = "insert"
	TypeUpdate = "update"
	TypeDelete = "delete"
)

// Event is one row change. Insert and update events carry the full new row;
// delete events carry only the id. Each event knows its audience: the users
// allowed to observe the row at the time the event was built. For deletes
// that is the audience of the row as it was before deletion.
type Event struct {
	Table  string         `json:"table"`
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Todo   *models.Todo   `json:"todo,omitempty"`
	Folder *models.Folder `json:"folder,omitempty"`

	audience []string
}

// Name returns the wire name of the event, "<table>.<type>".
func (e Event) Name() string {
	return e.Table + "." + e.Type
}

func (e Event) visibleTo(userID string) bool {
	return models.InSet(e.audience, userID)
}

func audienceOf(ownerID string, sharedWith, canEdit []string) []string {
	out := models.AddToSet(nil, ownerID)
	for _, id := range sharedWith {
		out = models.AddToSet(out, id)
	}
	for _, id := range canEdit {
		out = models.AddToSet(out, id)
	}
	return out
}

func todoEvent(typ string, t models.Todo) Event {
	e := Event{
		Table:    TableTodos,
		Type:     typ,
		ID:       t.ID,
		audience: audienceOf(t.OwnerID, t.SharedWith, t.CanEdit),
	}
	if typ != TypeDelete {
		row := t.Clone()
		e.Todo = &row
	}
	return e
}

func folderEvent(typ string, f models.Folder) Event {
	e := Event{
		Table:    TableFolders,
		Type:     typ,
		ID:       f.ID,
		audience: audienceOf(f.OwnerID, f.SharedWith, f.CanEdit),
	}
	if typ != TypeDelete {
		row := f.Clone()
		e.Folder = &row
	}
	return e
}

// TodoInserted builds an insert event for a new todo row.
func TodoInserted(t models.Todo) Event { return todoEvent(TypeInsert, t) }

// TodoUpdated builds an update event carrying the full new row.
func TodoUpdated(t models.Todo) Event { return todoEvent(TypeUpdate, t) }

// TodoDeleted builds a delete event from the row as it was before deletion.
func TodoDeleted(t models.Todo) Event { return todoEvent(TypeDelete, t) }

// FolderInserted builds an insert event for a new folder row.
func FolderInserted(f models.Folder) Event { return folderEvent(TypeInsert, f) }

// FolderUpdated builds an update event carrying the full new row.
func FolderUpdated(f models.Folder) Event { return folderEvent(TypeUpdate, f) }

// FolderDeleted builds a delete event from the row as it was before deletion.
func FolderDeleted(f models.Folder) Event { return folderEvent(TypeDelete, f) }
