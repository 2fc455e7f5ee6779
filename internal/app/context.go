package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"siteline/internal/config"
	"siteline/internal/db"
	"siteline/internal/events"
	"siteline/internal/gateway"
	"siteline/internal/report"
	"siteline/internal/store"
)

// Context bundles the open database with the gateway, event log, store
// and optional YAML config for one workspace. CLI commands and the
// server build everything through here so wiring stays in one place.
type Context struct {
	Workspace string
	DB        *sql.DB
	Gateway   gateway.Gateway
	Events    *events.Writer
	Store     *store.Store
	Config    *config.Config
}

// Open opens the workspace database and loads the project collection
// into memory. Config is optional; a missing siteline.yml leaves
// Config nil and callers fall back to built-in defaults.
func Open(ctx context.Context, workspace string) (*Context, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	gw := gateway.Gateway{KV: db.SQLKV{DB: conn}}
	ev := &events.Writer{DB: conn}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Context{
		Workspace: workspace,
		DB:        conn,
		Gateway:   gw,
		Events:    ev,
		Store:     store.New(ctx, gw, ev),
		Config:    cfg,
	}, nil
}

func (a *Context) Close() error {
	return a.DB.Close()
}

// ResolveProject picks the target project: an explicit override wins,
// otherwise a workspace holding exactly one project selects it.
func (a *Context) ResolveProject(override string) (string, error) {
	if id := strings.TrimSpace(override); id != "" {
		return id, nil
	}
	projects := a.Store.List()
	if len(projects) == 1 {
		return projects[0].ID, nil
	}
	return "", fmt.Errorf("project not specified; use --project")
}

// ReportSettings returns the configured report settings, or the
// built-in defaults when no config file exists.
func (a *Context) ReportSettings() report.Settings {
	if a.Config != nil {
		return a.Config.ReportSettings()
	}
	return config.Default().ReportSettings()
}
