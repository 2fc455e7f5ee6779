package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"siteline/internal/db"
	"siteline/internal/domain"
)

// Fixed blob keys. The whole project collection lives under one key and
// is overwritten on every save; report settings live under the other.
const (
	ProjectsKey = "siteline_projects"
	SettingsKey = "siteline_settings"
)

// Backfill defaults applied to legacy records on load.
const (
	defaultConsultantName = "أكاد للاستشارات الهندسية - شركة التفحص الواحد م.م"
	defaultProjectType    = "residential"
	projectNumberPrefix   = "SL"
)

// Gateway persists the project collection and the settings blob over a
// key-value substrate.
type Gateway struct {
	KV  db.KV
	Now func() time.Time
}

func (g Gateway) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// LoadAll reads the full project collection. An absent key yields an
// empty collection; a corrupt blob is logged and treated as empty so
// the application stays usable. Every record passes through Migrate.
func (g Gateway) LoadAll(ctx context.Context) []domain.Project {
	raw, err := g.KV.Get(ctx, ProjectsKey)
	if errors.Is(err, db.ErrNotFound) {
		return []domain.Project{}
	}
	if err != nil {
		slog.Error("load projects", "error", err)
		return []domain.Project{}
	}
	var projects []domain.Project
	if err := json.Unmarshal([]byte(raw), &projects); err != nil {
		slog.Error("decode projects blob", "error", err)
		return []domain.Project{}
	}
	out := make([]domain.Project, len(projects))
	for i, p := range projects {
		out[i] = g.Migrate(p)
	}
	return out
}

// SaveAll overwrites the whole collection under the projects key.
func (g Gateway) SaveAll(ctx context.Context, projects []domain.Project) error {
	if projects == nil {
		projects = []domain.Project{}
	}
	data, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("encode projects: %w", err)
	}
	if err := g.KV.Set(ctx, ProjectsKey, string(data)); err != nil {
		return fmt.Errorf("save projects: %w", err)
	}
	return nil
}

// Migrate backfills fields that older records may lack so that every
// project handed to callers satisfies the current shape.
func (g Gateway) Migrate(p domain.Project) domain.Project {
	if p.Tasks == nil {
		p.Tasks = []domain.Task{}
	}
	if p.SiteVisits == nil {
		p.SiteVisits = []domain.SiteVisit{}
	}
	if len(p.Phases) == 0 {
		p.Phases = domain.DefaultPhases()
	}
	for i := range p.Phases {
		if p.Phases[i].TaskIDs == nil {
			p.Phases[i].TaskIDs = []string{}
		}
	}
	if p.ProjectNumber == "" {
		p.ProjectNumber = fmt.Sprintf("%s-%d", projectNumberPrefix, g.createdMillis(p))
	}
	if p.ConsultantName == "" {
		p.ConsultantName = defaultConsultantName
	}
	if p.ProjectType == "" {
		p.ProjectType = defaultProjectType
	}
	if p.NumberOfFloors == 0 {
		p.NumberOfFloors = 1
	}
	return p
}

func (g Gateway) createdMillis(p domain.Project) int64 {
	if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		return t.UnixMilli()
	}
	return g.now().UnixMilli()
}

// LoadSettings reads the settings blob; absent or corrupt yields empty.
func (g Gateway) LoadSettings(ctx context.Context) map[string]any {
	raw, err := g.KV.Get(ctx, SettingsKey)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			slog.Error("load settings", "error", err)
		}
		return map[string]any{}
	}
	var settings map[string]any
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		slog.Error("decode settings blob", "error", err)
		return map[string]any{}
	}
	return settings
}

// SaveSettings overwrites the settings blob.
func (g Gateway) SaveSettings(ctx context.Context, settings map[string]any) error {
	if settings == nil {
		settings = map[string]any{}
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := g.KV.Set(ctx, SettingsKey, string(data)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// ExportSnapshot serializes projects and settings into the versioned
// envelope as indented JSON.
func (g Gateway) ExportSnapshot(ctx context.Context) (string, error) {
	snap := domain.Snapshot{
		Projects:   g.LoadAll(ctx),
		Settings:   g.LoadSettings(ctx),
		ExportDate: g.now().UTC().Format(time.RFC3339),
		Version:    domain.SnapshotVersion,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(data), nil
}

// ImportSnapshot validates the envelope and overwrites both blobs.
// Imported projects are re-migrated on the next load.
func (g Gateway) ImportSnapshot(ctx context.Context, data string) error {
	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != domain.SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %q", snap.Version)
	}
	if snap.Projects == nil {
		return errors.New("snapshot missing projects")
	}
	if err := g.SaveAll(ctx, snap.Projects); err != nil {
		return err
	}
	if snap.Settings != nil {
		if err := g.SaveSettings(ctx, snap.Settings); err != nil {
			return err
		}
	}
	return nil
}

// Wipe removes both blobs.
func (g Gateway) Wipe(ctx context.Context) error {
	if err := g.KV.Delete(ctx, ProjectsKey); err != nil {
		return fmt.Errorf("wipe projects: %w", err)
	}
	if err := g.KV.Delete(ctx, SettingsKey); err != nil {
		return fmt.Errorf("wipe settings: %w", err)
	}
	return nil
}
