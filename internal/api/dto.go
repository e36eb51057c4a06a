package api

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/perm"
)

// Loose shape check only; the address is never mail-routed, it is the
// account key and the handle granters type into the share box.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

// SignUpRequest is the request body for creating an account.
type SignUpRequest struct {
	Email    string `json:"email" example:"ada@example.com" validate:"required"`
	Password string `json:"password" example:"correct-horse-battery" validate:"required"`
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Match(emailPattern)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
	)
}

// SignInRequest is the request body for opening a session.
type SignInRequest struct {
	Email    string `json:"email" example:"ada@example.com" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// SessionResponse is returned by signup and signin.
type SessionResponse struct {
	Token string      `json:"token" validate:"required"`
	User  models.User `json:"user" validate:"required"`
}

// CreateTodoRequest is the request body for creating a todo.
type CreateTodoRequest struct {
	Title       string  `json:"title" example:"Draft the plan" validate:"required"`
	Description string  `json:"description,omitempty" example:"Before Friday"`
	FolderID    *string `json:"folder_id"`
}

func (r CreateTodoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Description, validation.Length(0, 4000)),
	)
}

// UpdateTodoRequest replaces a todo's text fields.
type UpdateTodoRequest struct {
	Title       string `json:"title" example:"Draft the plan v2" validate:"required"`
	Description string `json:"description,omitempty"`
}

func (r UpdateTodoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Description, validation.Length(0, 4000)),
	)
}

// CompleteTodosRequest flips the completion flag on a batch of todos.
type CompleteTodosRequest struct {
	IDs      []string `json:"ids" validate:"required"`
	Complete bool     `json:"complete" example:"true"`
}

func (r CompleteTodosRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required, validation.Length(1, 100)),
	)
}

// MoveTodosRequest moves a batch of todos into a folder (null for the
// root list).
type MoveTodosRequest struct {
	IDs      []string `json:"ids" validate:"required"`
	FolderID *string  `json:"folder_id"`
}

func (r MoveTodosRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required, validation.Length(1, 100)),
	)
}

// DeleteTodosRequest deletes a batch of todos.
type DeleteTodosRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

func (r DeleteTodosRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required, validation.Length(1, 100)),
	)
}

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest struct {
	Name        string `json:"name" example:"Projects" validate:"required"`
	Description string `json:"description,omitempty"`
}

func (r CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 4000)),
	)
}

// UpdateFolderRequest replaces a folder's text fields.
type UpdateFolderRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

func (r UpdateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 4000)),
	)
}

// ShareFolderRequest grants another account access to a folder and its
// todos.
type ShareFolderRequest struct {
	Email      string `json:"email" example:"bob@example.com" validate:"required"`
	Permission string `json:"permission" example:"edit" validate:"required"`
}

func (r ShareFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Match(emailPattern)),
		validation.Field(&r.Permission, validation.Required,
			validation.In(perm.GrantView, perm.GrantEdit, perm.GrantManage)),
	)
}

// TodoListResponse wraps todo listings.
type TodoListResponse struct {
	Todos []models.Todo `json:"todos" validate:"required"`
}

// FolderListResponse wraps folder listings.
type FolderListResponse struct {
	Folders []models.Folder `json:"folders" validate:"required"`
}

// DeletedResponse reports which of the requested ids were deleted.
type DeletedResponse struct {
	Deleted []string `json:"deleted" validate:"required"`
}

func nonNilTodos(todos []models.Todo) []models.Todo {
	if todos == nil {
		return []models.Todo{}
	}
	return todos
}

func nonNilFolders(folders []models.Folder) []models.Folder {
	if folders == nil {
		return []models.Folder{}
	}
	return folders
}
