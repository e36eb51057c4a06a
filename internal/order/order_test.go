package order

import (
	"reflect"
	"testing"

	"github.com/starford/wunjo/internal/models"
)

func todosWithIDs(ids ...string) []models.Todo {
	out := make([]models.Todo, len(ids))
	for i, id := range ids {
		out[i] = models.Todo{ID: id}
	}
	return out
}

func idsOf(todos []models.Todo) []string {
	out := make([]string, len(todos))
	for i, t := range todos {
		out[i] = t.ID
	}
	return out
}

func TestScopeOf(t *testing.T) {
	if got := ScopeOf(nil); got != RootScope {
		t.Errorf("ScopeOf(nil) = %q, want %q", got, RootScope)
	}
	f := "f1"
	if got := ScopeOf(&f); got != "f1" {
		t.Errorf("ScopeOf(&f1) = %q, want f1", got)
	}
}

func TestSortTodos(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		order []string
		want  []string
	}{
		{"full order", []string{"c", "a", "b"}, []string{"a", "b", "c"}, []string{"a", "b", "c"}},
		{"absent ids sort last in input order", []string{"x", "b", "y", "a"}, []string{"a", "b"}, []string{"a", "b", "x", "y"}},
		{"empty order is a no-op", []string{"c", "a", "b"}, nil, []string{"c", "a", "b"}},
		{"order naming deleted todos", []string{"b", "a"}, []string{"gone", "a", "b"}, []string{"a", "b"}},
		{"all absent keeps input order", []string{"c", "a", "b"}, []string{"x", "y"}, []string{"c", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			todos := todosWithIDs(tt.input...)
			SortTodos(todos, tt.order)
			if got := idsOf(todos); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SortTodos() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapSetCopies(t *testing.T) {
	m := Map{}
	ids := []string{"a", "b"}
	m.Set("root", ids)
	ids[0] = "mutated"
	if got := m.IDs("root"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Set should copy ids, got %v", got)
	}
}

func TestMapClone(t *testing.T) {
	m := Map{"root": {"a"}, "f1": {"b", "c"}}
	c := m.Clone()
	c["root"][0] = "mutated"
	c["f2"] = []string{"d"}
	if m["root"][0] != "a" {
		t.Error("Clone should deep-copy id lists")
	}
	if _, ok := m["f2"]; ok {
		t.Error("Clone should not share the top-level map")
	}
}
