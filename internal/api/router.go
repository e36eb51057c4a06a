package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wunjo/internal/auth"
	"github.com/starford/wunjo/internal/feed"
	"github.com/starford/wunjo/internal/todoservice"
)

// NewRouter creates a chi router with all API routes mounted. Signup and
// signin are public; everything else requires a session, including the
// realtime feeds.
func NewRouter(svc *todoservice.Service, authSvc *auth.Service, hub *feed.Hub) chi.Router {
	h := NewHandler(svc, authSvc)

	r := chi.NewRouter()

	// Account creation and login work without a session.
	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/signin", h.SignIn)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(authSvc))

		r.Post("/auth/signout", h.SignOut)
		r.Get("/auth/me", h.Me)

		// Todos CRUD and batch actions.
		r.Get("/todos", h.ListTodos)
		r.Post("/todos", h.CreateTodo)
		r.Patch("/todos/{id}", h.UpdateTodo)
		r.Delete("/todos/{id}", h.DeleteTodo)
		r.Post("/todos/{id}/toggle", h.ToggleTodo)
		r.Post("/todos/complete", h.CompleteTodos)
		r.Post("/todos/move", h.MoveTodos)
		r.Post("/todos/delete", h.DeleteTodos)

		// Folders and sharing.
		r.Get("/folders", h.ListFolders)
		r.Post("/folders", h.CreateFolder)
		r.Patch("/folders/{id}", h.UpdateFolder)
		r.Delete("/folders/{id}", h.DeleteFolder)
		r.Post("/folders/{id}/share", h.ShareFolder)

		// Preferences.
		r.Get("/prefs", h.Preferences)
		r.Put("/prefs", h.SavePreferences)

		// Realtime change feeds, scoped to the session's account.
		r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
			u, _ := auth.UserFrom(r.Context())
			hub.StreamSSE(w, r, u.ID)
		})
		r.Get("/events/ws", func(w http.ResponseWriter, r *http.Request) {
			u, _ := auth.UserFrom(r.Context())
			hub.StreamWS(w, r, u.ID)
		})
	})

	return r
}
