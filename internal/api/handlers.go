// Package api implements the Wunjo REST API using chi.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wunjo/internal/auth"
	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/prefs"
	"github.com/starford/wunjo/internal/todoservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc  *todoservice.Service
	auth *auth.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *todoservice.Service, authSvc *auth.Service) *Handler {
	return &Handler{svc: svc, auth: authSvc}
}

// decode reads and validates a JSON request body. On failure it writes
// the 400 response and reports false.
func decode(w http.ResponseWriter, r *http.Request, req interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// currentUser returns the account the middleware put on the context.
func currentUser(r *http.Request) models.User {
	u, _ := auth.UserFrom(r.Context())
	return u
}

// SignUp handles POST /auth/signup.
//
//	@Summary		Register an account and open a session
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SignUpRequest	true	"Account to create"
//	@Success		201		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/auth/signup [post]
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decode(w, r, &req) {
		return
	}
	token, u, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, "signup", err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{Token: token, User: u})
}

// SignIn handles POST /auth/signin.
//
//	@Summary		Open a session with email and password
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SignInRequest	true	"Credentials"
//	@Success		200		{object}	SessionResponse
//	@Failure		401		{object}	errResponse
//	@Router			/auth/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decode(w, r, &req) {
		return
	}
	token, u, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, "signin", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Token: token, User: u})
}

// SignOut handles POST /auth/signout.
//
//	@Summary	Invalidate the current session
//	@Tags		auth
//	@Success	204	"Session closed"
//	@Security	BearerAuth
//	@Router		/auth/signout [post]
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), auth.Token(r)); err != nil {
		writeErr(w, "signout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
//
//	@Summary	Describe the signed-in account
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	models.User
//	@Security	BearerAuth
//	@Router		/auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

// ListTodos handles GET /todos. Owned and shared todos come back in one
// list.
//
//	@Summary		List every todo visible to the account
//	@Tags			todos
//	@Produce		json
//	@Success		200	{object}	TodoListResponse
//	@Security		BearerAuth
//	@Router			/todos [get]
func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.svc.VisibleTodos(r.Context(), currentUser(r).ID)
	if err != nil {
		writeErr(w, "list todos", err)
		return
	}
	writeJSON(w, http.StatusOK, TodoListResponse{Todos: nonNilTodos(todos)})
}

// CreateTodo handles POST /todos.
//
//	@Summary		Create a todo, optionally inside a folder
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTodoRequest	true	"Todo to create"
//	@Success		201		{object}	models.Todo
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/todos [post]
func (h *Handler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if !decode(w, r, &req) {
		return
	}
	todo, err := h.svc.CreateTodo(r.Context(), currentUser(r).ID, req.Title, req.Description, req.FolderID)
	if err != nil {
		writeErr(w, "create todo", err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

// UpdateTodo handles PATCH /todos/{id}.
//
//	@Summary		Replace a todo's title and description
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Todo id"
//	@Param			body	body		UpdateTodoRequest	true	"New text fields"
//	@Success		200		{object}	models.Todo
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/todos/{id} [patch]
func (h *Handler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	var req UpdateTodoRequest
	if !decode(w, r, &req) {
		return
	}
	todo, err := h.svc.UpdateTodo(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), req.Title, req.Description)
	if err != nil {
		writeErr(w, "update todo", err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// ToggleTodo handles POST /todos/{id}/toggle.
//
//	@Summary		Flip a todo's completion flag
//	@Tags			todos
//	@Produce		json
//	@Param			id	path		string	true	"Todo id"
//	@Success		200	{object}	models.Todo
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/todos/{id}/toggle [post]
func (h *Handler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.svc.ToggleTodo(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, "toggle todo", err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// DeleteTodo handles DELETE /todos/{id}.
//
//	@Summary	Delete a single todo
//	@Tags		todos
//	@Param		id	path	string	true	"Todo id"
//	@Success	204	"Todo deleted"
//	@Failure	403	{object}	errResponse
//	@Failure	404	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/todos/{id} [delete]
func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTodo(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		writeErr(w, "delete todo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTodos handles POST /todos/complete. Ids the account cannot
// edit are skipped, not rejected.
//
//	@Summary		Set the completion flag on a batch of todos
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CompleteTodosRequest	true	"Ids and target state"
//	@Success		200		{object}	TodoListResponse
//	@Security		BearerAuth
//	@Router			/todos/complete [post]
func (h *Handler) CompleteTodos(w http.ResponseWriter, r *http.Request) {
	var req CompleteTodosRequest
	if !decode(w, r, &req) {
		return
	}
	todos, err := h.svc.SetTodosComplete(r.Context(), currentUser(r).ID, req.IDs, req.Complete)
	if err != nil {
		writeErr(w, "complete todos", err)
		return
	}
	writeJSON(w, http.StatusOK, TodoListResponse{Todos: nonNilTodos(todos)})
}

// MoveTodos handles POST /todos/move.
//
//	@Summary		Move a batch of todos into a folder or back to the root list
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveTodosRequest	true	"Ids and destination"
//	@Success		200		{object}	TodoListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/todos/move [post]
func (h *Handler) MoveTodos(w http.ResponseWriter, r *http.Request) {
	var req MoveTodosRequest
	if !decode(w, r, &req) {
		return
	}
	todos, err := h.svc.MoveTodos(r.Context(), currentUser(r).ID, req.IDs, req.FolderID)
	if err != nil {
		writeErr(w, "move todos", err)
		return
	}
	writeJSON(w, http.StatusOK, TodoListResponse{Todos: nonNilTodos(todos)})
}

// DeleteTodos handles POST /todos/delete. Only rows the account owns are
// deleted; the response lists which ids actually went away.
//
//	@Summary		Delete a batch of todos
//	@Tags			todos
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DeleteTodosRequest	true	"Ids to delete"
//	@Success		200		{object}	DeletedResponse
//	@Security		BearerAuth
//	@Router			/todos/delete [post]
func (h *Handler) DeleteTodos(w http.ResponseWriter, r *http.Request) {
	var req DeleteTodosRequest
	if !decode(w, r, &req) {
		return
	}
	deleted, err := h.svc.DeleteTodos(r.Context(), currentUser(r).ID, req.IDs)
	if err != nil {
		writeErr(w, "delete todos", err)
		return
	}
	if deleted == nil {
		deleted = []string{}
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Deleted: deleted})
}

// Preferences handles GET /prefs.
//
//	@Summary	Read the account's preference document
//	@Tags		prefs
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Security	BearerAuth
//	@Router		/prefs [get]
func (h *Handler) Preferences(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Preferences(r.Context(), currentUser(r).ID)
	if err != nil {
		writeErr(w, "read preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// SavePreferences handles PUT /prefs. Top-level keys in the body replace
// their stored counterparts; keys absent from the body survive.
//
//	@Summary		Merge keys into the preference document
//	@Tags			prefs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		map[string]any	true	"Keys to merge"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prefs [put]
func (h *Handler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var doc prefs.Doc
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	merged, err := h.svc.SavePreferences(r.Context(), currentUser(r).ID, doc)
	if err != nil {
		if prefs.IsValidationError(err) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		writeErr(w, "save preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}
