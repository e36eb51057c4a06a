package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/starford/wunjo/internal/models"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	h := NewHub(0)
	defer h.Close()
	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := h.Subscribe("u1")
	if h.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	h.Unsubscribe(ch)
	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDeliversToAudienceOnly(t *testing.T) {
	h := NewHub(0)
	defer h.Close()
	owner := h.Subscribe("owner")
	viewer := h.Subscribe("viewer")
	stranger := h.Subscribe("stranger")
	defer h.Unsubscribe(owner)
	defer h.Unsubscribe(viewer)
	defer h.Unsubscribe(stranger)

	h.Publish(TodoUpdated(models.Todo{
		ID:         "t1",
		Title:      "shared work",
		OwnerID:    "owner",
		SharedWith: []string{"viewer"},
	}))

	for name, ch := range map[string]chan Event{"owner": owner, "viewer": viewer} {
		select {
		case e := <-ch:
			if e.Name() != "todos.update" {
				t.Errorf("%s got event %q", name, e.Name())
			}
			if e.Todo == nil || e.Todo.ID != "t1" {
				t.Errorf("%s got payload %+v", name, e.Todo)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s event", name)
		}
	}

	select {
	case e := <-stranger:
		t.Fatalf("stranger received %q", e.Name())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeleteEventCarriesOnlyID(t *testing.T) {
	h := NewHub(0)
	defer h.Close()
	ch := h.Subscribe("owner")
	defer h.Unsubscribe(ch)

	h.Publish(TodoDeleted(models.Todo{ID: "t1", OwnerID: "owner", SharedWith: []string{"viewer"}}))

	select {
	case e := <-ch:
		if e.Name() != "todos.delete" || e.ID != "t1" {
			t.Errorf("event = %q id %q", e.Name(), e.ID)
		}
		if e.Todo != nil {
			t.Error("delete event should not carry a row")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for delete event")
	}
}

func TestDeleteEventReachesPriorAudience(t *testing.T) {
	h := NewHub(0)
	defer h.Close()
	viewer := h.Subscribe("viewer")
	defer h.Unsubscribe(viewer)

	// The row passed in is the pre-delete state, so the old audience still
	// hears about the removal.
	h.Publish(FolderDeleted(models.Folder{ID: "f1", OwnerID: "owner", SharedWith: []string{"viewer"}}))

	select {
	case e := <-viewer:
		if e.Name() != "folders.delete" || e.ID != "f1" {
			t.Errorf("event = %q id %q", e.Name(), e.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("viewer should receive the delete of a folder shared with them")
	}
}

func TestStreamSSE(t *testing.T) {
	h := NewHub(0)
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.StreamSSE(w, req, "u1")
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if h.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	h.Publish(TodoInserted(models.Todo{ID: "t1", Title: "hi", OwnerID: "u1"}))
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: todos.insert") {
		t.Errorf("handler output missing event name: %q", body)
	}
	if !strings.Contains(body, `"title":"hi"`) {
		t.Errorf("handler output missing payload: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if h.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestStreamWS(t *testing.T) {
	h := NewHub(0)
	defer h.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.StreamWS(w, r, "u1")
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if h.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	h.Publish(TodoInserted(models.Todo{ID: "t1", Title: "hi", OwnerID: "u1"}))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var e Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read: %v", err)
	}
	if e.Name() != "todos.insert" || e.Todo == nil || e.Todo.Title != "hi" {
		t.Errorf("event = %+v", e)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	h := NewHub(4)
	defer h.Close()
	ch := h.Subscribe("u1")
	defer h.Unsubscribe(ch)

	// Fill the subscriber buffer and then some; publishing must not block.
	for i := 0; i < 20; i++ {
		h.Publish(TodoUpdated(models.Todo{ID: "t1", OwnerID: "u1"}))
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	h := NewHub(0)
	ch := h.Subscribe("u1")
	if h.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	h.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-ops after close.
	h.Publish(TodoUpdated(models.Todo{ID: "t1", OwnerID: "u1"}))
	h.Unsubscribe(ch)
}
