package gateway_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"siteline/internal/db"
	"siteline/internal/domain"
	"siteline/internal/gateway"
)

func newTestGateway(t *testing.T) (gateway.Gateway, db.KV) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	kv := db.SQLKV{DB: conn}
	gw := gateway.Gateway{
		KV:  kv,
		Now: func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) },
	}
	return gw, kv
}

func TestLoadAllAbsentKey(t *testing.T) {
	gw, _ := newTestGateway(t)
	got := gw.LoadAll(context.Background())
	if got == nil || len(got) != 0 {
		t.Fatalf("absent key must load as empty collection, got %v", got)
	}
}

func TestLoadAllCorruptBlob(t *testing.T) {
	gw, kv := newTestGateway(t)
	ctx := context.Background()
	if err := kv.Set(ctx, gateway.ProjectsKey, "{not json"); err != nil {
		t.Fatalf("seed corrupt blob: %v", err)
	}
	got := gw.LoadAll(ctx)
	if len(got) != 0 {
		t.Fatalf("corrupt blob must load as empty, got %d projects", len(got))
	}
}

func TestMigrateBackfill(t *testing.T) {
	gw, _ := newTestGateway(t)
	created := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	legacy := domain.Project{
		ID:        "p1",
		Name:      "Old Villa",
		CreatedAt: created.Format(time.RFC3339),
	}
	got := gw.Migrate(legacy)

	if got.Tasks == nil || got.SiteVisits == nil {
		t.Error("nil sequences not backfilled")
	}
	if len(got.Phases) != 5 {
		t.Errorf("phases = %d, want 5", len(got.Phases))
	}
	wantNumber := fmt.Sprintf("SL-%d", created.UnixMilli())
	if got.ProjectNumber != wantNumber {
		t.Errorf("project number = %q, want %q", got.ProjectNumber, wantNumber)
	}
	if !strings.Contains(got.ConsultantName, "أكاد") {
		t.Errorf("consultant not backfilled: %q", got.ConsultantName)
	}
	if got.ProjectType != "residential" {
		t.Errorf("project type = %q, want residential", got.ProjectType)
	}
	if got.NumberOfFloors != 1 {
		t.Errorf("floors = %d, want 1", got.NumberOfFloors)
	}
}

func TestMigratePreservesExisting(t *testing.T) {
	gw, _ := newTestGateway(t)
	p := domain.Project{
		ID:             "p1",
		ProjectNumber:  "CUSTOM-7",
		ConsultantName: "other",
		ProjectType:    "commercial",
		NumberOfFloors: 4,
	}
	got := gw.Migrate(p)
	if got.ProjectNumber != "CUSTOM-7" || got.ConsultantName != "other" ||
		got.ProjectType != "commercial" || got.NumberOfFloors != 4 {
		t.Fatalf("populated fields must survive migration: %+v", got)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()
	projects := []domain.Project{
		gw.Migrate(domain.Project{ID: "p1", Name: "Villa A", CreatedAt: "2024-01-01T00:00:00Z"}),
		gw.Migrate(domain.Project{ID: "p2", Name: "Tower B", CreatedAt: "2024-02-01T00:00:00Z"}),
	}
	if err := gw.SaveAll(ctx, projects); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := gw.SaveSettings(ctx, map[string]any{"reportLanguage": "ar"}); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	snap, err := gw.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var envelope domain.Snapshot
	if err := json.Unmarshal([]byte(snap), &envelope); err != nil {
		t.Fatalf("snapshot not valid json: %v", err)
	}
	if envelope.Version != "1.0" || envelope.ExportDate == "" {
		t.Errorf("envelope = version %q date %q", envelope.Version, envelope.ExportDate)
	}

	if err := gw.Wipe(ctx); err != nil {
		t.Fatalf("wipe: %v", err)
	}
	if got := gw.LoadAll(ctx); len(got) != 0 {
		t.Fatalf("wipe left %d projects", len(got))
	}

	if err := gw.ImportSnapshot(ctx, snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	got := gw.LoadAll(ctx)
	if len(got) != 2 || got[0].Name != "Villa A" || got[1].Name != "Tower B" {
		t.Fatalf("round trip lost data: %+v", got)
	}
	settings := gw.LoadSettings(ctx)
	if settings["reportLanguage"] != "ar" {
		t.Errorf("settings lost: %v", settings)
	}
}

func TestImportRejectsBadSnapshots(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	if err := gw.ImportSnapshot(ctx, "{truncated"); err == nil {
		t.Error("malformed json accepted")
	}
	if err := gw.ImportSnapshot(ctx, `{"projects":[],"version":"2.0"}`); err == nil {
		t.Error("unknown version accepted")
	}
	if err := gw.ImportSnapshot(ctx, `{"version":"1.0"}`); err == nil {
		t.Error("snapshot without projects accepted")
	}
}
