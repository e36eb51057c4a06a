// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Wunjo task tools for LLM integration via stdio transport.
//
// Tools run against a live replica session, so reads come from the local
// mirror and writes go through the same optimistic pipeline the other
// clients use.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/wunjo/internal/order"
	"github.com/starford/wunjo/internal/replica"
)

// Server wraps the MCP server with Wunjo tools.
type Server struct {
	mcp *server.MCPServer
	rep *replica.Replica
}

// New creates a new MCP server with all Wunjo tools registered.
func New(rep *replica.Replica) *Server {
	s := &Server{rep: rep}

	s.mcp = server.NewMCPServer(
		"Wunjo",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("list_todos",
		mcp.WithDescription("List todos in their manual order. Without folder_id the root list is shown; pass a folder id for that folder's todos."),
		mcp.WithString("folder_id", mcp.Description("Optional folder id (empty for the root list)")),
	), s.listTodos)

	s.mcp.AddTool(mcp.NewTool("create_todo",
		mcp.WithDescription("Create a todo, optionally inside a folder. Todos created in a shared folder inherit its sharing."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Todo title")),
		mcp.WithString("description", mcp.Description("Optional longer description")),
		mcp.WithString("folder_id", mcp.Description("Optional folder id to create the todo in")),
	), s.createTodo)

	s.mcp.AddTool(mcp.NewTool("update_todo",
		mcp.WithDescription("Replace a todo's title and description."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Todo id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description (empty clears it)")),
	), s.updateTodo)

	s.mcp.AddTool(mcp.NewTool("toggle_todo",
		mcp.WithDescription("Flip a todo's completion flag."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Todo id")),
	), s.toggleTodo)

	s.mcp.AddTool(mcp.NewTool("complete_todos",
		mcp.WithDescription("Set the completion flag on several todos at once."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated todo ids")),
		mcp.WithBoolean("complete", mcp.Required(), mcp.Description("true to complete, false to reopen")),
	), s.completeTodos)

	s.mcp.AddTool(mcp.NewTool("move_todos",
		mcp.WithDescription("Move several todos into a folder, or back to the root list."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated todo ids")),
		mcp.WithString("folder_id", mcp.Description("Destination folder id (empty for the root list)")),
	), s.moveTodos)

	s.mcp.AddTool(mcp.NewTool("delete_todos",
		mcp.WithDescription("Delete several todos. Only todos you own are deleted; the rest are skipped."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated todo ids")),
	), s.deleteTodos)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List every folder visible to the account, owned and shared."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("create_folder",
		mcp.WithDescription("Create a folder."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Folder name")),
		mcp.WithString("description", mcp.Description("Optional description")),
	), s.createFolder)

	s.mcp.AddTool(mcp.NewTool("update_folder",
		mcp.WithDescription("Replace a folder's name and description. Owner only."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Folder id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("New name")),
		mcp.WithString("description", mcp.Description("New description")),
	), s.updateFolder)

	s.mcp.AddTool(mcp.NewTool("share_folder",
		mcp.WithDescription("Grant another account access to a folder. The grant cascades to every todo in the folder, replacing their previous sharing."),
		mcp.WithString("folder_id", mcp.Required(), mcp.Description("Folder id")),
		mcp.WithString("email", mcp.Required(), mcp.Description("Grantee's account email")),
		mcp.WithString("permission", mcp.Required(), mcp.Description("One of: view, edit, manage")),
	), s.shareFolder)

	s.mcp.AddTool(mcp.NewTool("delete_folder",
		mcp.WithDescription("Delete a folder. Its todos survive and move back to the root list."),
		mcp.WithString("folder_id", mcp.Required(), mcp.Description("Folder id")),
	), s.deleteFolder)

	s.mcp.AddTool(mcp.NewTool("reorder_todos",
		mcp.WithDescription("Arrange a list's todos in the given order. The order is saved to the account's preferences."),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated todo ids in the desired order")),
		mcp.WithString("folder_id", mcp.Description("Folder id the order applies to (empty for the root list)")),
	), s.reorderTodos)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// csvIDs splits a comma-separated id list, dropping blanks.
func csvIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// optionalScope resolves an optional folder_id argument to an order scope.
func optionalScope(req mcp.CallToolRequest) string {
	if f, err := req.RequireString("folder_id"); err == nil && f != "" {
		return f
	}
	return order.RootScope
}

// optionalFolderID resolves an optional folder_id argument to the pointer
// shape the service uses (nil for the root list).
func optionalFolderID(req mcp.CallToolRequest) *string {
	if f, err := req.RequireString("folder_id"); err == nil && f != "" {
		return &f
	}
	return nil
}

func (s *Server) listTodos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	todos := s.rep.SortedTodos(optionalScope(req))
	out, _ := json.MarshalIndent(todos, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description := ""
	if d, err := req.RequireString("description"); err == nil {
		description = d
	}
	todo, err := s.rep.CreateTodo(ctx, title, description, optionalFolderID(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(todo, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description := ""
	if d, err := req.RequireString("description"); err == nil {
		description = d
	}
	if err := s.rep.UpdateTodo(ctx, id, title, description); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update %s: %v", id, err)), nil
	}
	todo, _ := s.rep.Todo(id)
	out, _ := json.MarshalIndent(todo, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) toggleTodo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.rep.Toggle(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("toggle %s: %v", id, err)), nil
	}
	todo, _ := s.rep.Todo(id)
	out, _ := json.MarshalIndent(todo, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) completeTodos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	complete, err := req.RequireBool("complete")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids := csvIDs(raw)
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids is empty"), nil
	}
	if err := s.rep.SetComplete(ctx, ids, complete); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	state := "complete"
	if !complete {
		state = "incomplete"
	}
	return mcp.NewToolResultText(fmt.Sprintf("marked %d todos %s", len(ids), state)), nil
}

func (s *Server) moveTodos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids := csvIDs(raw)
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids is empty"), nil
	}
	if err := s.rep.Move(ctx, ids, optionalFolderID(req)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved %d todos", len(ids))), nil
}

func (s *Server) deleteTodos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids := csvIDs(raw)
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids is empty"), nil
	}
	if err := s.rep.Delete(ctx, ids...); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("deleted (todos you do not own are skipped)"), nil
}

func (s *Server) listFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.rep.Folders(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description := ""
	if d, err := req.RequireString("description"); err == nil {
		description = d
	}
	folder, err := s.rep.CreateFolder(ctx, name, description)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(folder, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description := ""
	if d, err := req.RequireString("description"); err == nil {
		description = d
	}
	if err := s.rep.UpdateFolder(ctx, id, name, description); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update folder %s: %v", id, err)), nil
	}
	folder, _ := s.rep.Folder(id)
	out, _ := json.MarshalIndent(folder, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) shareFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folderID, err := req.RequireString("folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	email, err := req.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	permission, err := req.RequireString("permission")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.rep.ShareFolder(ctx, folderID, email, permission); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("share %s with %s: %v", folderID, email, err)), nil
	}
	folder, _ := s.rep.Folder(folderID)
	out, _ := json.MarshalIndent(folder, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folderID, err := req.RequireString("folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.rep.DeleteFolder(ctx, folderID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete folder %s: %v", folderID, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted folder %s; its todos moved to the root list", folderID)), nil
}

func (s *Server) reorderTodos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids := csvIDs(raw)
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids is empty"), nil
	}
	scope := optionalScope(req)
	s.rep.Reorder(scope, ids)
	return mcp.NewToolResultText(fmt.Sprintf("order updated for %s", scope)), nil
}
