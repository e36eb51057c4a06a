package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/wunjo/internal/feed"
	"github.com/starford/wunjo/internal/mcpserver"
	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/replica"
	"github.com/starford/wunjo/internal/store"
	"github.com/starford/wunjo/internal/todoservice"
)

// RunMCP serves the task tools over MCP stdio as the configured account.
// It opens a replica session against the same store the HTTP server uses,
// so tool calls see and make the same changes browser sessions do.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Stdout belongs to the MCP transport; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if cfg.MCP.User == "" {
		return fmt.Errorf("mcp: no account configured; set mcp.user to the email of the account to act as")
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	u, _, err := db.UserByEmail(ctx, models.NormalizeEmail(cfg.MCP.User))
	if err != nil {
		return fmt.Errorf("mcp: resolve account %q: %w", cfg.MCP.User, err)
	}

	hub := feed.NewHub(cfg.Sync.EventBuffer)
	defer hub.Close()

	svc := todoservice.New(db, hub)
	rep := replica.Open(ctx, u, svc, hub, replica.Options{
		Debounce: cfg.Sync.OrderDebounce(),
	})
	defer rep.Close()

	logger.Info("MCP server starting",
		slog.String("account", u.Email),
		slog.String("sqlite_path", cfg.SQLite.Path))

	return mcpserver.New(rep).ServeStdio()
}
