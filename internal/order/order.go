// Package order maintains per-scope manual orderings of todos.
//
// A scope is either the root list or a single folder. Each scope maps to the
// list of todo ids in the order the user arranged them. The map is persisted
// as a whole inside the user's preference document; entries naming deleted
// todos or folders are harmless and simply never match at sort time.
package order

import (
	"sort"

	"github.com/starford/wunjo/internal/models"
)

// RootScope keys the ordering of todos not filed in any folder.
const RootScope = "root"

// ScopeOf returns the scope key for a todo's folder assignment.
func ScopeOf(folderID *string) string {
	if folderID == nil {
		return RootScope
	}
	return *folderID
}

// Map associates scope keys with ordered todo id lists.
type Map map[string][]string

// Clone deep-copies the map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for scope, ids := range m {
		out[scope] = append([]string(nil), ids...)
	}
	return out
}

// Set replaces the ordering for one scope, copying ids.
func (m Map) Set(scope string, ids []string) {
	m[scope] = append([]string(nil), ids...)
}

// IDs returns the ordering stored for scope, or nil if none.
func (m Map) IDs(scope string) []string {
	return m[scope]
}

// SortTodos sorts todos in place by their position in ids. Todos absent from
// ids sort after all present ones. The sort is stable, so two absent todos
// keep their relative input order, as do duplicates of a present id.
func SortTodos(todos []models.Todo, ids []string) {
	if len(ids) == 0 {
		return
	}
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := pos[id]; !ok {
			pos[id] = i
		}
	}
	sort.SliceStable(todos, func(i, j int) bool {
		pi, oki := pos[todos[i].ID]
		pj, okj := pos[todos[j].ID]
		switch {
		case oki && okj:
			return pi < pj
		case oki:
			return true
		default:
			return false
		}
	})
}
