// Package replica maintains a live client-side mirror of one user's todos,
// folders, and preferences.
//
// A replica populates itself from the backend, then keeps converging by
// merging feed events into the mirror. Row mutations are optimistic where
// the original value is cheap to restore: the mirror updates first, the
// backend write confirms it, and a failure rolls the field back unless a
// newer local write to the same field has superseded it. Creates, deletes,
// and folder operations apply only after the backend confirms.
//
// Manual todo orderings live beside the rows: reorders update the in-memory
// order map immediately and persist it as one debounced preference write.
package replica

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/wunjo/internal/feed"
	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/order"
	"github.com/starford/wunjo/internal/prefs"
)

const (
	defaultDebounce = time.Second
	saveTimeout     = 5 * time.Second
)

// Options tune a replica. Zero values get sensible defaults.
type Options struct {
	Debounce time.Duration // order-save debounce window, default 1s
	Notifier Notifier      // outcome notices, default logs through slog
}

// Replica is a live mirror of one user's visible rows.
type Replica struct {
	user    models.User
	backend Backend
	src     FeedSource
	notify  Notifier

	debounce time.Duration

	mu        sync.Mutex
	todos     []models.Todo
	folders   []models.Folder
	doc       prefs.Doc
	orders    order.Map
	pending   map[string]uint64
	dirty     bool
	saveTimer *time.Timer
	closed    bool

	events    chan feed.Event
	done      chan struct{}
	closeOnce sync.Once
}

// Open populates a replica from the backend and starts its merge loop. A
// failed initial query is reported through the notifier and leaves that part
// of the mirror empty; the feed subscription is established regardless, so
// later events still converge the mirror.
func Open(ctx context.Context, user models.User, backend Backend, src FeedSource, opts Options) *Replica {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Notifier == nil {
		opts.Notifier = logNotifier{log: slog.Default()}
	}

	r := &Replica{
		user:     user,
		backend:  backend,
		src:      src,
		notify:   opts.Notifier,
		debounce: opts.Debounce,
		doc:      prefs.Doc{},
		orders:   order.Map{},
		pending:  make(map[string]uint64),
		done:     make(chan struct{}),
	}
	r.load(ctx)

	// Subscribing after the fetch mirrors the session startup sequence;
	// changes landing in the gap are missed until their next event.
	r.events = src.Subscribe(user.ID)
	go r.loop(ctx)
	return r
}

func (r *Replica) load(ctx context.Context) {
	owned, err := r.backend.TodosOwnedBy(ctx, r.user.ID)
	if err == nil {
		var shared []models.Todo
		if shared, err = r.backend.TodosSharedWith(ctx, r.user.ID); err == nil {
			r.todos = models.MergeTodos(owned, shared)
		}
	}
	if err != nil {
		r.notify.Error("Failed to load todos")
	}

	ownedF, err := r.backend.FoldersOwnedBy(ctx, r.user.ID)
	if err == nil {
		var sharedF []models.Folder
		if sharedF, err = r.backend.FoldersSharedWith(ctx, r.user.ID); err == nil {
			r.folders = models.MergeFolders(ownedF, sharedF)
		}
	}
	if err != nil {
		r.notify.Error("Failed to load folders")
	}

	doc, err := r.backend.Preferences(ctx, r.user.ID)
	if err != nil {
		r.notify.Error("Failed to load preferences")
		return
	}
	r.doc = doc
	r.orders = doc.OrderMap()
}

func (r *Replica) loop(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-r.events:
			if !ok {
				return
			}
			r.Apply(e)
		}
	}
}

// Close flushes a pending order save, detaches from the feed, and waits for
// the merge loop to exit.
func (r *Replica) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		timer := r.saveTimer
		r.saveTimer = nil
		dirty := r.dirty
		r.mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		if dirty {
			r.saveOrders()
		}
		r.src.Unsubscribe(r.events)
		<-r.done
	})
}

// User returns the user this replica mirrors.
func (r *Replica) User() models.User {
	return r.user
}

// Apply merges one feed event into the mirror. Inserts and updates both
// replace-or-append by id, so replayed or already-applied events are
// idempotent; deletes of unknown ids are no-ops.
func (r *Replica) Apply(e feed.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Table {
	case feed.TableTodos:
		switch e.Type {
		case feed.TypeInsert, feed.TypeUpdate:
			if e.Todo != nil {
				r.upsertTodoLocked(*e.Todo)
			}
		case feed.TypeDelete:
			r.removeTodoLocked(e.ID)
		}
	case feed.TableFolders:
		switch e.Type {
		case feed.TypeInsert, feed.TypeUpdate:
			if e.Folder != nil {
				r.upsertFolderLocked(*e.Folder)
			}
		case feed.TypeDelete:
			r.removeFolderLocked(e.ID)
		}
	}
}

// Todos returns a copy of the mirrored todos in collection order.
func (r *Replica) Todos() []models.Todo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Todo, len(r.todos))
	for i, t := range r.todos {
		out[i] = t.Clone()
	}
	return out
}

// Folders returns a copy of the mirrored folders in collection order.
func (r *Replica) Folders() []models.Folder {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Folder, len(r.folders))
	for i, f := range r.folders {
		out[i] = f.Clone()
	}
	return out
}

// Todo returns one mirrored todo by id.
func (r *Replica) Todo(id string) (models.Todo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOfTodoLocked(id); i >= 0 {
		return r.todos[i].Clone(), true
	}
	return models.Todo{}, false
}

// Folder returns one mirrored folder by id.
func (r *Replica) Folder(id string) (models.Folder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOfFolderLocked(id); i >= 0 {
		return r.folders[i].Clone(), true
	}
	return models.Folder{}, false
}

// SortedTodos returns the todos of one scope arranged by the user's manual
// order. Todos not named by the order sort after the ones that are, keeping
// their collection order.
func (r *Replica) SortedTodos(scope string) []models.Todo {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Todo
	for _, t := range r.todos {
		if order.ScopeOf(t.FolderID) == scope {
			out = append(out, t.Clone())
		}
	}
	order.SortTodos(out, r.orders.IDs(scope))
	return out
}

// Orders returns a copy of the current order map.
func (r *Replica) Orders() order.Map {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders.Clone()
}

func (r *Replica) indexOfTodoLocked(id string) int {
	for i := range r.todos {
		if r.todos[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Replica) indexOfFolderLocked(id string) int {
	for i := range r.folders {
		if r.folders[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Replica) upsertTodoLocked(t models.Todo) {
	if i := r.indexOfTodoLocked(t.ID); i >= 0 {
		r.todos[i] = t
		return
	}
	r.todos = append(r.todos, t)
}

func (r *Replica) removeTodoLocked(id string) {
	if i := r.indexOfTodoLocked(id); i >= 0 {
		r.todos = append(r.todos[:i], r.todos[i+1:]...)
	}
}

func (r *Replica) upsertFolderLocked(f models.Folder) {
	if i := r.indexOfFolderLocked(f.ID); i >= 0 {
		r.folders[i] = f
		return
	}
	r.folders = append(r.folders, f)
}

func (r *Replica) removeFolderLocked(id string) {
	if i := r.indexOfFolderLocked(id); i >= 0 {
		r.folders = append(r.folders[:i], r.folders[i+1:]...)
	}
}

type logNotifier struct {
	log *slog.Logger
}

func (n logNotifier) Success(msg string) { n.log.Info(msg) }
func (n logNotifier) Error(msg string)   { n.log.Warn(msg) }
