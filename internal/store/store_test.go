package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/prefs"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "wunjo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, email string) models.User {
	t.Helper()
	u := models.User{ID: models.NewID(), Email: email, CreatedAt: time.Now().UTC()}
	if err := db.CreateUser(context.Background(), u, "x"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func seedTodo(t *testing.T, db *DB, todo models.Todo) models.Todo {
	t.Helper()
	if todo.ID == "" {
		todo.ID = models.NewID()
	}
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = time.Now().UTC()
	}
	if err := db.InsertTodo(context.Background(), todo); err != nil {
		t.Fatalf("InsertTodo: %v", err)
	}
	return todo
}

func seedFolder(t *testing.T, db *DB, folder models.Folder) models.Folder {
	t.Helper()
	if folder.ID == "" {
		folder.ID = models.NewID()
	}
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = time.Now().UTC()
	}
	if err := db.InsertFolder(context.Background(), folder); err != nil {
		t.Fatalf("InsertFolder: %v", err)
	}
	return folder
}

func todoIDs(todos []models.Todo) []string {
	out := make([]string, len(todos))
	for i, t := range todos {
		out[i] = t.ID
	}
	return out
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"users", "sessions", "folders", "todos", "preferences"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestInsertAndGetTodo(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner@example.com")
	folder := seedFolder(t, db, models.Folder{Name: "Work", OwnerID: owner.ID})

	todo := seedTodo(t, db, models.Todo{
		Title:       "Write report",
		Description: "quarterly numbers",
		OwnerID:     owner.ID,
		FolderID:    &folder.ID,
		SharedWith:  []string{"u2"},
		CanEdit:     []string{"u2"},
	})

	got, err := db.GetTodo(ctx, todo.ID)
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	if got.Title != "Write report" || got.Description != "quarterly numbers" {
		t.Errorf("fields = %q/%q", got.Title, got.Description)
	}
	if got.FolderID == nil || *got.FolderID != folder.ID {
		t.Errorf("folder = %v, want %s", got.FolderID, folder.ID)
	}
	if len(got.SharedWith) != 1 || got.SharedWith[0] != "u2" {
		t.Errorf("shared_with = %v", got.SharedWith)
	}
	if len(got.CanEdit) != 1 || got.CanEdit[0] != "u2" {
		t.Errorf("can_edit = %v", got.CanEdit)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at should round-trip")
	}
}

func TestGetTodo_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetTodo(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTodoVisibilityQueries(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	mine := seedTodo(t, db, models.Todo{Title: "mine", OwnerID: alice.ID})
	shared := seedTodo(t, db, models.Todo{Title: "shared", OwnerID: bob.ID, SharedWith: []string{alice.ID}})
	seedTodo(t, db, models.Todo{Title: "private", OwnerID: bob.ID})

	owned, err := db.TodosOwnedBy(ctx, alice.ID)
	if err != nil {
		t.Fatalf("TodosOwnedBy: %v", err)
	}
	if len(owned) != 1 || owned[0].ID != mine.ID {
		t.Errorf("owned = %v", todoIDs(owned))
	}

	sw, err := db.TodosSharedWith(ctx, alice.ID)
	if err != nil {
		t.Fatalf("TodosSharedWith: %v", err)
	}
	if len(sw) != 1 || sw[0].ID != shared.ID {
		t.Errorf("shared = %v", todoIDs(sw))
	}
}

func TestSetTodosComplete_SkipsNonEditable(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	owned := seedTodo(t, db, models.Todo{Title: "owned", OwnerID: alice.ID})
	editable := seedTodo(t, db, models.Todo{Title: "editable", OwnerID: bob.ID, SharedWith: []string{alice.ID}, CanEdit: []string{alice.ID}})
	viewOnly := seedTodo(t, db, models.Todo{Title: "view only", OwnerID: bob.ID, SharedWith: []string{alice.ID}})

	rows, err := db.SetTodosComplete(ctx, alice.ID, []string{owned.ID, editable.ID, viewOnly.ID}, true)
	if err != nil {
		t.Fatalf("SetTodosComplete: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("updated %d rows, want 2: %v", len(rows), todoIDs(rows))
	}
	for _, r := range rows {
		if !r.IsComplete {
			t.Errorf("row %s not marked complete", r.ID)
		}
		if r.ID == viewOnly.ID {
			t.Error("view-only row should be skipped")
		}
	}

	got, _ := db.GetTodo(ctx, viewOnly.ID)
	if got.IsComplete {
		t.Error("view-only row changed in the database")
	}
	got, _ = db.GetTodo(ctx, editable.ID)
	if !got.IsComplete {
		t.Error("editable row not changed in the database")
	}
}

func TestSetTodosComplete_EmptyIDs(t *testing.T) {
	db := testDB(t)
	rows, err := db.SetTodosComplete(context.Background(), "u1", nil, true)
	if err != nil {
		t.Fatalf("SetTodosComplete: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %v, want none", todoIDs(rows))
	}
}

func TestSetTodosFolder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com")
	folder := seedFolder(t, db, models.Folder{Name: "Work", OwnerID: alice.ID})
	todo := seedTodo(t, db, models.Todo{Title: "move me", OwnerID: alice.ID})

	rows, err := db.SetTodosFolder(ctx, alice.ID, []string{todo.ID}, &folder.ID)
	if err != nil {
		t.Fatalf("SetTodosFolder: %v", err)
	}
	if len(rows) != 1 || rows[0].FolderID == nil || *rows[0].FolderID != folder.ID {
		t.Fatalf("rows = %+v", rows)
	}

	rows, err = db.SetTodosFolder(ctx, alice.ID, []string{todo.ID}, nil)
	if err != nil {
		t.Fatalf("SetTodosFolder(nil): %v", err)
	}
	if len(rows) != 1 || rows[0].FolderID != nil {
		t.Fatalf("detached rows = %+v", rows)
	}
	got, _ := db.GetTodo(ctx, todo.ID)
	if got.FolderID != nil {
		t.Error("todo still filed after detach")
	}
}

func TestDeleteTodos_OwnerOnly(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	mine := seedTodo(t, db, models.Todo{Title: "mine", OwnerID: alice.ID})
	theirs := seedTodo(t, db, models.Todo{Title: "theirs", OwnerID: bob.ID, SharedWith: []string{alice.ID}, CanEdit: []string{alice.ID}})

	rows, err := db.DeleteTodos(ctx, alice.ID, []string{mine.ID, theirs.ID})
	if err != nil {
		t.Fatalf("DeleteTodos: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != mine.ID {
		t.Fatalf("deleted = %v, want only %s", todoIDs(rows), mine.ID)
	}
	if _, err := db.GetTodo(ctx, mine.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("owned todo should be gone")
	}
	if _, err := db.GetTodo(ctx, theirs.ID); err != nil {
		t.Error("non-owned todo should survive even for an editor")
	}
}

func TestShareFolder_CascadesToMembers(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com")
	carol := seedUser(t, db, "carol@example.com")
	folder := seedFolder(t, db, models.Folder{Name: "Work", OwnerID: alice.ID})

	// One member with stale, wider sets than the folder: the cascade must
	// replace them, not merge.
	member := seedTodo(t, db, models.Todo{
		Title:      "member",
		OwnerID:    alice.ID,
		FolderID:   &folder.ID,
		SharedWith: []string{"stale-user"},
		CanEdit:    []string{"stale-user"},
	})
	outside := seedTodo(t, db, models.Todo{Title: "outside", OwnerID: alice.ID})

	f, members, err := db.ShareFolder(ctx, folder.ID, carol.ID, true)
	if err != nil {
		t.Fatalf("ShareFolder: %v", err)
	}
	if !models.InSet(f.SharedWith, carol.ID) || !models.InSet(f.CanEdit, carol.ID) {
		t.Errorf("folder sets = %v / %v", f.SharedWith, f.CanEdit)
	}
	if len(members) != 1 || members[0].ID != member.ID {
		t.Fatalf("members = %v", todoIDs(members))
	}
	if models.InSet(members[0].SharedWith, "stale-user") {
		t.Error("cascade should replace member sets, not merge")
	}
	if !models.InSet(members[0].SharedWith, carol.ID) || !models.InSet(members[0].CanEdit, carol.ID) {
		t.Errorf("member sets = %v / %v", members[0].SharedWith, members[0].CanEdit)
	}

	got, _ := db.GetTodo(ctx, outside.ID)
	if models.InSet(got.SharedWith, carol.ID) {
		t.Error("todos outside the folder must not change")
	}
}

func TestShareFolder_ViewGrant(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com")
	carol := seedUser(t, db, "carol@example.com")
	folder := seedFolder(t, db, models.Folder{Name: "Read only", OwnerID: alice.ID})

	f, _, err := db.ShareFolder(ctx, folder.ID, carol.ID, false)
	if err != nil {
		t.Fatalf("ShareFolder: %v", err)
	}
	if !models.InSet(f.SharedWith, carol.ID) {
		t.Error("grantee missing from shared_with")
	}
	if models.InSet(f.CanEdit, carol.ID) {
		t.Error("view grant must not add to can_edit")
	}
}

func TestShareFolder_Idempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com")
	carol := seedUser(t, db, "carol@example.com")
	folder := seedFolder(t, db, models.Folder{Name: "Work", OwnerID: alice.ID})

	if _, _, err := db.ShareFolder(ctx, folder.ID, carol.ID, true); err != nil {
		t.Fatalf("ShareFolder: %v", err)
	}
	f, _, err := db.ShareFolder(ctx, folder.ID, carol.ID, true)
	if err != nil {
		t.Fatalf("ShareFolder twice: %v", err)
	}
	if len(f.SharedWith) != 1 || len(f.CanEdit) != 1 {
		t.Errorf("sets grew on repeat share: %v / %v", f.SharedWith, f.CanEdit)
	}
}

func TestShareFolder_NotFound(t *testing.T) {
	db := testDB(t)
	if _, _, err := db.ShareFolder(context.Background(), "missing", "u2", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteFolder_DetachesMembers(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com")
	folder := seedFolder(t, db, models.Folder{Name: "Doomed", OwnerID: alice.ID, SharedWith: []string{"u2"}})
	member := seedTodo(t, db, models.Todo{
		Title:      "survivor",
		OwnerID:    alice.ID,
		FolderID:   &folder.ID,
		SharedWith: []string{"u2"},
		CanEdit:    []string{"u2"},
	})

	f, members, err := db.DeleteFolder(ctx, folder.ID)
	if err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if f.ID != folder.ID {
		t.Errorf("returned folder = %s", f.ID)
	}
	if len(members) != 1 || members[0].FolderID != nil {
		t.Fatalf("members = %+v", members)
	}

	got, err := db.GetTodo(ctx, member.ID)
	if err != nil {
		t.Fatalf("member should survive folder deletion: %v", err)
	}
	if got.FolderID != nil {
		t.Error("member still filed under deleted folder")
	}
	if !models.InSet(got.SharedWith, "u2") || !models.InSet(got.CanEdit, "u2") {
		t.Error("member sharing sets must survive folder deletion")
	}
	if _, err := db.GetFolder(ctx, folder.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("folder should be gone")
	}
}

func TestFolderVisibilityQueries(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	mine := seedFolder(t, db, models.Folder{Name: "mine", OwnerID: alice.ID})
	shared := seedFolder(t, db, models.Folder{Name: "shared", OwnerID: bob.ID, SharedWith: []string{alice.ID}})
	seedFolder(t, db, models.Folder{Name: "private", OwnerID: bob.ID})

	owned, err := db.FoldersOwnedBy(ctx, alice.ID)
	if err != nil {
		t.Fatalf("FoldersOwnedBy: %v", err)
	}
	if len(owned) != 1 || owned[0].ID != mine.ID {
		t.Errorf("owned folders = %d", len(owned))
	}
	sw, err := db.FoldersSharedWith(ctx, alice.ID)
	if err != nil {
		t.Fatalf("FoldersSharedWith: %v", err)
	}
	if len(sw) != 1 || sw[0].ID != shared.ID {
		t.Errorf("shared folders = %d", len(sw))
	}
}

func TestUsersAndSessions(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := models.User{ID: models.NewID(), Email: "dana@example.com", CreatedAt: time.Now().UTC()}
	if err := db.CreateUser(ctx, u, "hash123"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, hash, err := db.UserByEmail(ctx, "dana@example.com")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if got.ID != u.ID || hash != "hash123" {
		t.Errorf("user = %+v hash = %q", got, hash)
	}
	if _, _, err := db.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown email err = %v", err)
	}

	now := time.Now().UTC()
	if err := db.CreateSession(ctx, "tok1", u.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	su, err := db.SessionUser(ctx, "tok1", now)
	if err != nil {
		t.Fatalf("SessionUser: %v", err)
	}
	if su.ID != u.ID {
		t.Errorf("session user = %s, want %s", su.ID, u.ID)
	}

	// Expired token.
	if err := db.CreateSession(ctx, "tok2", u.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := db.SessionUser(ctx, "tok2", now); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expired session err = %v", err)
	}

	if err := db.DeleteSession(ctx, "tok1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := db.SessionUser(ctx, "tok1", now); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("deleted session should not resolve")
	}

	n, err := db.PurgeExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("PurgeExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d sessions, want 1", n)
	}
}

func TestPreferences(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "erin@example.com")

	doc, err := db.PreferenceDoc(ctx, u.ID)
	if err != nil {
		t.Fatalf("PreferenceDoc: %v", err)
	}
	if len(doc) != 0 {
		t.Errorf("fresh user doc = %v, want empty", doc)
	}

	saved := prefs.Doc{"theme": "dark", "todoOrder": map[string]any{"root": []any{"a", "b"}}}
	if err := db.SavePreferenceDoc(ctx, u.ID, saved); err != nil {
		t.Fatalf("SavePreferenceDoc: %v", err)
	}
	got, err := db.PreferenceDoc(ctx, u.ID)
	if err != nil {
		t.Fatalf("PreferenceDoc: %v", err)
	}
	if got["theme"] != "dark" {
		t.Errorf("theme = %v", got["theme"])
	}
	ids := got.OrderMap().IDs("root")
	if len(ids) != 2 || ids[0] != "a" {
		t.Errorf("order = %v", ids)
	}

	// Upsert replaces the whole document.
	if err := db.SavePreferenceDoc(ctx, u.ID, prefs.Doc{"theme": "light"}); err != nil {
		t.Fatalf("SavePreferenceDoc: %v", err)
	}
	got, _ = db.PreferenceDoc(ctx, u.ID)
	if got["theme"] != "light" {
		t.Errorf("theme after upsert = %v", got["theme"])
	}
	if _, ok := got["todoOrder"]; ok {
		t.Error("store-level save is whole-document, todoOrder should be gone")
	}
}
