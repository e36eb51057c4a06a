package todoservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/feed"
	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/store"
	"github.com/starford/wunjo/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *store.DB, *feed.Hub) {
	t.Helper()
	db := testutil.TestDB(t)
	hub := feed.NewHub(0)
	t.Cleanup(hub.Close)
	return New(db, hub), db, hub
}

func waitEvent(t *testing.T, ch chan feed.Event) feed.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return feed.Event{}
	}
}

func TestCreateTodo_StampsFolderSets(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")
	carol := testutil.SeedUser(t, db, "carol@example.com")

	folder, err := svc.CreateFolder(ctx, alice.ID, "Work", "")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if _, err := svc.ShareFolder(ctx, alice.ID, folder.ID, carol.Email, "edit"); err != nil {
		t.Fatalf("ShareFolder: %v", err)
	}

	todo, err := svc.CreateTodo(ctx, alice.ID, "New task", "", &folder.ID)
	if err != nil {
		t.Fatalf("CreateTodo: %v", err)
	}
	if !models.InSet(todo.SharedWith, carol.ID) || !models.InSet(todo.CanEdit, carol.ID) {
		t.Errorf("new member should carry folder sets, got %v / %v", todo.SharedWith, todo.CanEdit)
	}
}

func TestCreateTodo_RequiresTitle(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")

	if _, err := svc.CreateTodo(ctx, alice.ID, "   ", "", nil); err == nil {
		t.Error("blank title should fail")
	}
	if _, err := svc.CreateFolder(ctx, alice.ID, "", ""); err == nil {
		t.Error("blank folder name should fail")
	}
}

func TestCreateTodo_InvisibleFolder(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")
	bob := testutil.SeedUser(t, db, "bob@example.com")

	folder, _ := svc.CreateFolder(ctx, alice.ID, "Private", "")
	if _, err := svc.CreateTodo(ctx, bob.ID, "sneaky", "", &folder.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateTodo_Permissions(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")
	bob := testutil.SeedUser(t, db, "bob@example.com")
	carol := testutil.SeedUser(t, db, "carol@example.com")
	dave := testutil.SeedUser(t, db, "dave@example.com")

	todo := models.Todo{
		ID: models.NewID(), CreatedAt: time.Now().UTC(),
		Title: "original", OwnerID: alice.ID,
		SharedWith: []string{bob.ID, carol.ID},
		CanEdit:    []string{carol.ID},
	}
	if err := db.InsertTodo(ctx, todo); err != nil {
		t.Fatal(err)
	}

	// Editor succeeds.
	got, err := svc.UpdateTodo(ctx, carol.ID, todo.ID, "edited", "by carol")
	if err != nil {
		t.Fatalf("editor update: %v", err)
	}
	if got.Title != "edited" {
		t.Errorf("title = %q", got.Title)
	}

	// Viewer is forbidden.
	if _, err := svc.UpdateTodo(ctx, bob.ID, todo.ID, "nope", ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("viewer err = %v, want ErrForbidden", err)
	}

	// Stranger sees nothing.
	if _, err := svc.UpdateTodo(ctx, dave.ID, todo.ID, "nope", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stranger err = %v, want ErrNotFound", err)
	}
}

func TestToggleTodo(t *testing.T) {
	svc, db, hub := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")

	todo, _ := svc.CreateTodo(ctx, alice.ID, "toggle me", "", nil)
	ch := hub.Subscribe(alice.ID)
	defer hub.Unsubscribe(ch)

	got, err := svc.ToggleTodo(ctx, alice.ID, todo.ID)
	if err != nil {
		t.Fatalf("ToggleTodo: %v", err)
	}
	if !got.IsComplete {
		t.Error("first toggle should complete the todo")
	}

	e := waitEvent(t, ch)
	if e.Name() != "todos.update" || e.Todo == nil || !e.Todo.IsComplete {
		t.Errorf("event = %q payload %+v", e.Name(), e.Todo)
	}

	got, err = svc.ToggleTodo(ctx, alice.ID, todo.ID)
	if err != nil {
		t.Fatalf("ToggleTodo: %v", err)
	}
	if got.IsComplete {
		t.Error("second toggle should uncomplete the todo")
	}
}

func TestVisibleTodos_Dedupes(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")

	// An owned row whose shared_with also names the owner matches both the
	// owned and the shared query; the merge must keep one copy.
	todo := models.Todo{
		ID: models.NewID(), CreatedAt: time.Now().UTC(),
		Title: "both lists", OwnerID: alice.ID,
		SharedWith: []string{alice.ID},
	}
	if err := db.InsertTodo(ctx, todo); err != nil {
		t.Fatal(err)
	}

	visible, err := svc.VisibleTodos(ctx, alice.ID)
	if err != nil {
		t.Fatalf("VisibleTodos: %v", err)
	}
	if len(visible) != 1 {
		t.Errorf("visible = %d todos, want 1", len(visible))
	}
}

func TestShareFolder(t *testing.T) {
	svc, db, hub := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")
	carol := testutil.SeedUser(t, db, "carol@example.com")

	folder, _ := svc.CreateFolder(ctx, alice.ID, "Work", "")
	member, _ := svc.CreateTodo(ctx, alice.ID, "member", "", &folder.ID)

	// The grantee hears about rows they could not see before the share.
	ch := hub.Subscribe(carol.ID)
	defer hub.Unsubscribe(ch)

	shared, err := svc.ShareFolder(ctx, alice.ID, folder.ID, "Carol@Example.com", "edit")
	if err != nil {
		t.Fatalf("ShareFolder: %v", err)
	}
	if !models.InSet(shared.SharedWith, carol.ID) || !models.InSet(shared.CanEdit, carol.ID) {
		t.Errorf("folder sets = %v / %v", shared.SharedWith, shared.CanEdit)
	}

	names := map[string]bool{}
	for i := 0; i < 2; i++ {
		e := waitEvent(t, ch)
		names[e.Name()] = true
		if e.Name() == "todos.update" && e.Todo.ID != member.ID {
			t.Errorf("unexpected todo event for %s", e.Todo.ID)
		}
	}
	if !names["folders.update"] || !names["todos.update"] {
		t.Errorf("grantee events = %v, want folder and member updates", names)
	}

	got, _ := svc.GetTodo(ctx, carol.ID, member.ID)
	if !models.InSet(got.CanEdit, carol.ID) {
		t.Error("member todo should carry the grantee after cascade")
	}
}

func TestShareFolder_Authorization(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")
	carol := testutil.SeedUser(t, db, "carol@example.com")
	dave := testutil.SeedUser(t, db, "dave@example.com")

	folder, _ := svc.CreateFolder(ctx, alice.ID, "Work", "")
	if _, err := svc.ShareFolder(ctx, alice.ID, folder.ID, carol.Email, "edit"); err != nil {
		t.Fatalf("ShareFolder: %v", err)
	}

	// Sharing is owner-only, even for editors.
	if _, err := svc.ShareFolder(ctx, carol.ID, folder.ID, dave.Email, "view"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("editor share err = %v, want ErrForbidden", err)
	}
	// Strangers see nothing.
	if _, err := svc.ShareFolder(ctx, dave.ID, folder.ID, carol.Email, "view"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stranger share err = %v, want ErrNotFound", err)
	}
	// Unknown grantee email.
	if _, err := svc.ShareFolder(ctx, alice.ID, folder.ID, "nobody@example.com", "view"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown email err = %v, want ErrNotFound", err)
	}
	// Unknown grant name.
	if _, err := svc.ShareFolder(ctx, alice.ID, folder.ID, carol.Email, "admin"); err == nil {
		t.Error("unknown grant should fail")
	}
}

func TestDeleteFolder(t *testing.T) {
	svc, db, hub := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")
	carol := testutil.SeedUser(t, db, "carol@example.com")

	folder, _ := svc.CreateFolder(ctx, alice.ID, "Doomed", "")
	if _, err := svc.ShareFolder(ctx, alice.ID, folder.ID, carol.Email, "edit"); err != nil {
		t.Fatal(err)
	}
	member, _ := svc.CreateTodo(ctx, alice.ID, "survivor", "", &folder.ID)

	ch := hub.Subscribe(carol.ID)
	defer hub.Unsubscribe(ch)

	if err := svc.DeleteFolder(ctx, alice.ID, folder.ID); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}

	// Detach updates go out before the folder delete.
	first := waitEvent(t, ch)
	if first.Name() != "todos.update" || first.Todo.FolderID != nil {
		t.Errorf("first event = %q %+v, want detached todo update", first.Name(), first.Todo)
	}
	second := waitEvent(t, ch)
	if second.Name() != "folders.delete" || second.ID != folder.ID {
		t.Errorf("second event = %q id %s", second.Name(), second.ID)
	}

	// The detached todo keeps its stamped sets.
	got, err := svc.GetTodo(ctx, carol.ID, member.ID)
	if err != nil {
		t.Fatalf("member should stay visible to prior audience: %v", err)
	}
	if got.FolderID != nil {
		t.Error("member should be detached")
	}
	if _, err := svc.GetFolder(ctx, alice.ID, folder.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("folder should be gone")
	}
}

func TestDeleteTodo_Authorization(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")
	carol := testutil.SeedUser(t, db, "carol@example.com")
	dave := testutil.SeedUser(t, db, "dave@example.com")

	todo := models.Todo{
		ID: models.NewID(), CreatedAt: time.Now().UTC(),
		Title: "mine", OwnerID: alice.ID,
		SharedWith: []string{carol.ID}, CanEdit: []string{carol.ID},
	}
	if err := db.InsertTodo(ctx, todo); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteTodo(ctx, carol.ID, todo.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("editor delete err = %v, want ErrForbidden", err)
	}
	if err := svc.DeleteTodo(ctx, dave.ID, todo.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stranger delete err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteTodo(ctx, alice.ID, todo.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}

func TestDeleteTodos_SkipsNonOwned(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")
	bob := testutil.SeedUser(t, db, "bob@example.com")

	mine, _ := svc.CreateTodo(ctx, alice.ID, "mine", "", nil)
	theirs, _ := svc.CreateTodo(ctx, bob.ID, "theirs", "", nil)

	deleted, err := svc.DeleteTodos(ctx, alice.ID, []string{mine.ID, theirs.ID})
	if err != nil {
		t.Fatalf("DeleteTodos: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != mine.ID {
		t.Errorf("deleted = %v", deleted)
	}
	if _, err := svc.GetTodo(ctx, bob.ID, theirs.ID); err != nil {
		t.Error("bob's todo should survive")
	}
}

func TestSavePreferences(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	alice := testutil.SeedUser(t, db, "alice@example.com")

	if _, err := svc.SavePreferences(ctx, alice.ID, map[string]any{"theme": "dark"}); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	merged, err := svc.SavePreferences(ctx, alice.ID, map[string]any{
		"todoOrder": map[string]any{"root": []any{"b", "a"}},
	})
	if err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	if merged["theme"] != "dark" {
		t.Error("merge should preserve keys the caller did not send")
	}

	got, _ := svc.Preferences(ctx, alice.ID)
	if got["theme"] != "dark" {
		t.Error("stored document lost unrelated key")
	}
	if ids := got.OrderMap().IDs("root"); len(ids) != 2 || ids[0] != "b" {
		t.Errorf("stored order = %v", ids)
	}

	// Malformed documents are rejected before touching the store.
	if _, err := svc.SavePreferences(ctx, alice.ID, map[string]any{"todoOrder": "nope"}); err == nil {
		t.Error("invalid document should fail validation")
	}
	got, _ = svc.Preferences(ctx, alice.ID)
	if got["theme"] != "dark" {
		t.Error("failed save must not clobber the stored document")
	}
}
