package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"siteline/internal/db"
	"siteline/internal/domain"
	"siteline/internal/events"
	"siteline/internal/gateway"
	"siteline/internal/store"
)

type testEnv struct {
	Store   *store.Store
	Gateway gateway.Gateway
	Ctx     context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	gw := gateway.Gateway{KV: db.SQLKV{DB: conn}}
	ev := &events.Writer{DB: conn}
	ctx := context.Background()
	st := store.New(ctx, gw, ev)
	st.Now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	return testEnv{Store: st, Gateway: gw, Ctx: ctx}
}

func TestCreateProjectDefaults(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Villa A"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if p.Status != "planning" {
		t.Errorf("status = %q, want planning", p.Status)
	}
	if len(p.Phases) != 5 {
		t.Fatalf("phases = %d, want 5", len(p.Phases))
	}
	if p.Phases[0].Key != domain.PhaseSitePreparation || p.Phases[4].Key != domain.PhaseLandscaping {
		t.Errorf("phase keys out of order: %s..%s", p.Phases[0].Key, p.Phases[4].Key)
	}
	if p.ProjectNumber == "" {
		t.Error("project number not backfilled")
	}
	if p.ConsultantName == "" {
		t.Error("consultant name not backfilled")
	}
	if p.NumberOfFloors != 1 {
		t.Errorf("floors = %d, want 1", p.NumberOfFloors)
	}
	if p.Tasks == nil || p.SiteVisits == nil {
		t.Error("tasks/siteVisits must be non-nil")
	}
	if p.CreatedAt == "" || p.UpdatedAt == "" {
		t.Error("timestamps not stamped")
	}
}

func TestWriteThroughPersistence(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Tower B"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := env.Store.AddTask(env.Ctx, p.ID, domain.TaskDraft{Title: "Check rebar"}); err != nil {
		t.Fatalf("add task: %v", err)
	}

	// A fresh store over the same gateway must see identical state.
	reopened := store.New(env.Ctx, env.Gateway, nil)
	got, err := reopened.Get(p.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].Title != "Check rebar" {
		t.Fatalf("persisted tasks = %+v", got.Tasks)
	}
}

func TestUpdateProjectPatch(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Villa A", Contractor: "Alpha"})

	status := "active"
	budget := 1500000.0
	updated, err := env.Store.UpdateProject(env.Ctx, p.ID, domain.ProjectPatch{Status: &status, Budget: &budget})
	if err != nil {
		t.Fatalf("update project: %v", err)
	}
	if updated.Status != "active" || updated.Budget != 1500000 {
		t.Errorf("patch not applied: %s %v", updated.Status, updated.Budget)
	}
	if updated.Contractor != "Alpha" {
		t.Errorf("untouched field changed: %q", updated.Contractor)
	}

	// An empty patch still stamps updatedAt and nothing else.
	env.Store.Now = func() time.Time { return time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC) }
	again, err := env.Store.UpdateProject(env.Ctx, p.ID, domain.ProjectPatch{})
	if err != nil {
		t.Fatalf("empty patch: %v", err)
	}
	if again.UpdatedAt == updated.UpdatedAt {
		t.Error("empty patch must advance updatedAt")
	}
	if again.Status != "active" || again.Budget != 1500000 || again.Contractor != "Alpha" {
		t.Errorf("empty patch changed fields: %+v", again)
	}
}

func TestUpdateTaskCompletionStamps(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Villa A"})
	task, err := env.Store.AddTask(env.Ctx, p.ID, domain.TaskDraft{Title: "Pour foundation"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if task.Phase != domain.PhaseSitePreparation || task.Priority != "medium" {
		t.Errorf("defaults: phase=%s priority=%s", task.Phase, task.Priority)
	}

	done := true
	task, err = env.Store.UpdateTask(env.Ctx, p.ID, task.ID, domain.TaskPatch{Completed: &done})
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if !task.Completed || task.CompletedAt == nil {
		t.Fatalf("completion not stamped: %+v", task)
	}

	undone := false
	task, err = env.Store.UpdateTask(env.Ctx, p.ID, task.ID, domain.TaskPatch{Completed: &undone})
	if err != nil {
		t.Fatalf("uncomplete task: %v", err)
	}
	if task.Completed || task.CompletedAt != nil {
		t.Fatalf("completion not cleared: %+v", task)
	}
}

func TestConcurrentAddTask(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Villa A"})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, title := range []string{"first", "second"} {
		wg.Add(1)
		go func(title string) {
			defer wg.Done()
			_, err := env.Store.AddTask(env.Ctx, p.ID, domain.TaskDraft{Title: title})
			errs <- err
		}(title)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent add: %v", err)
		}
	}

	got, _ := env.Store.Get(p.ID)
	if len(got.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2 (neither write may be lost)", len(got.Tasks))
	}
}

func TestAddSiteVisitDefaults(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Villa A"})

	v, err := env.Store.AddSiteVisit(env.Ctx, p.ID, domain.SiteVisitDraft{Inspector: "م. أحمد"})
	if err != nil {
		t.Fatalf("add visit: %v", err)
	}
	if v.VisitDate == "" {
		t.Error("visit date not defaulted")
	}
	if v.Images == nil {
		t.Error("images must be non-nil")
	}
}

func TestDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Villa A"})
	task, _ := env.Store.AddTask(env.Ctx, p.ID, domain.TaskDraft{Title: "t"})
	visit, _ := env.Store.AddSiteVisit(env.Ctx, p.ID, domain.SiteVisitDraft{Inspector: "i"})

	if err := env.Store.DeleteTask(env.Ctx, p.ID, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	got, _ := env.Store.Get(p.ID)
	if got.Tasks == nil || len(got.Tasks) != 0 {
		t.Fatalf("tasks after deleting the only task = %#v, want empty non-nil", got.Tasks)
	}
	if err := env.Store.DeleteSiteVisit(env.Ctx, p.ID, visit.ID); err != nil {
		t.Fatalf("delete visit: %v", err)
	}
	if err := env.Store.DeleteProject(env.Ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := env.Store.Get(p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotFoundErrors(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Villa A"})

	if _, err := env.Store.Get("nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get: %v", err)
	}
	if _, err := env.Store.UpdateTask(env.Ctx, p.ID, "nope", domain.TaskPatch{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update task: %v", err)
	}
	if err := env.Store.DeleteSiteVisit(env.Ctx, p.ID, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("delete visit: %v", err)
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Villa Alpha", Location: "Abu Dhabi"})
	env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Tower Beta", Contractor: "Villa Builders"})
	env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Warehouse"})

	got := env.Store.Search("VILLA")
	if len(got) != 2 {
		t.Fatalf("search villa = %d results, want 2", len(got))
	}
	if got := env.Store.Search("  "); len(got) != 3 {
		t.Fatalf("blank search = %d results, want all 3", len(got))
	}
	if got := env.Store.Search("zzz"); got == nil {
		t.Fatal("no-match search must return empty slice, not nil")
	}
}

func TestFilterCriteria(t *testing.T) {
	env := newTestEnv(t)
	a, _ := env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "A", Status: "active", Contractor: "Alpha"})
	env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "B", Status: "planning", Contractor: "Beta"})

	task, _ := env.Store.AddTask(env.Ctx, a.ID, domain.TaskDraft{Title: "t1"})
	env.Store.AddTask(env.Ctx, a.ID, domain.TaskDraft{Title: "t2"})
	done := true
	env.Store.UpdateTask(env.Ctx, a.ID, task.ID, domain.TaskPatch{Completed: &done})

	got := env.Store.Filter(domain.ProjectFilter{Status: "active"})
	if len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("status filter = %+v", got)
	}
	got = env.Store.Filter(domain.ProjectFilter{Contractor: "alpha"})
	if len(got) != 1 {
		t.Fatalf("contractor filter should match case-insensitively, got %d", len(got))
	}
	got = env.Store.Filter(domain.ProjectFilter{CompletionRange: &domain.FloatRange{Min: 40, Max: 60}})
	if len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("completion filter = %d results", len(got))
	}
	got = env.Store.Filter(domain.ProjectFilter{Status: "active", Contractor: "Beta"})
	if len(got) != 0 {
		t.Fatalf("ANDed criteria must both hold, got %d", len(got))
	}
}

func TestSnapshotIsolation(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.Store.CreateProject(env.Ctx, domain.ProjectDraft{Name: "Villa A"})
	env.Store.AddTask(env.Ctx, p.ID, domain.TaskDraft{Title: "original"})

	got, _ := env.Store.Get(p.ID)
	got.Tasks[0].Title = "mutated"

	again, _ := env.Store.Get(p.ID)
	if again.Tasks[0].Title != "original" {
		t.Fatal("caller mutation leaked into the store")
	}
}
