package models

import "time"

// Folder groups todos and carries the sharing state its members inherit.
// SharedWith and CanEdit have the same meaning as on Todo.
type Folder struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	SharedWith  []string  `json:"shared_with"`
	CanEdit     []string  `json:"can_edit"`
}

// Clone returns a deep copy of the folder.
func (f Folder) Clone() Folder {
	c := f
	c.SharedWith = CloneSet(f.SharedWith)
	c.CanEdit = CloneSet(f.CanEdit)
	return c
}

// MergeFolders concatenates owned and shared folders, dropping duplicates by
// id. The first occurrence of an id wins.
func MergeFolders(owned, shared []Folder) []Folder {
	merged := make([]Folder, 0, len(owned)+len(shared))
	seen := make(map[string]struct{}, len(owned)+len(shared))
	for _, f := range owned {
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		merged = append(merged, f)
	}
	for _, f := range shared {
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		merged = append(merged, f)
	}
	return merged
}
