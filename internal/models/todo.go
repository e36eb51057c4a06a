// Package models defines the domain types for Wunjo.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Todo represents a single task, optionally filed under a folder.
//
// SharedWith and CanEdit are sets of user ids. A user in SharedWith may see
// the todo; a user in CanEdit may also modify it. The owner is never listed
// in either set. Todos filed in a folder do not consult the folder at access
// time: sharing a folder stamps the folder's sets onto every member todo, so
// a todo row is always self-describing.
type Todo struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsComplete  bool      `json:"is_complete"`
	OwnerID     string    `json:"owner_id"`
	FolderID    *string   `json:"folder_id"`
	SharedWith  []string  `json:"shared_with"`
	CanEdit     []string  `json:"can_edit"`
}

// Clone returns a deep copy of the todo.
func (t Todo) Clone() Todo {
	c := t
	if t.FolderID != nil {
		id := *t.FolderID
		c.FolderID = &id
	}
	c.SharedWith = CloneSet(t.SharedWith)
	c.CanEdit = CloneSet(t.CanEdit)
	return c
}

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.New().String()
}

// MergeTodos concatenates owned and shared todos, dropping duplicates by id.
// The first occurrence of an id wins.
func MergeTodos(owned, shared []Todo) []Todo {
	merged := make([]Todo, 0, len(owned)+len(shared))
	seen := make(map[string]struct{}, len(owned)+len(shared))
	for _, t := range owned {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		merged = append(merged, t)
	}
	for _, t := range shared {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}
