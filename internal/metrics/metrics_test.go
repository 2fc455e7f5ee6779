package metrics_test

import (
	"math"
	"testing"

	"siteline/internal/domain"
	"siteline/internal/metrics"
)

func projectWithTasks(done, pending int) domain.Project {
	p := domain.Project{Phases: domain.DefaultPhases()}
	for i := 0; i < done; i++ {
		p.Tasks = append(p.Tasks, domain.Task{ID: "d", Phase: domain.PhaseFoundationWork, Priority: "high", Completed: true})
	}
	for i := 0; i < pending; i++ {
		p.Tasks = append(p.Tasks, domain.Task{ID: "p", Phase: domain.PhaseSitePreparation, Priority: "medium"})
	}
	return p
}

func TestCompletionRate(t *testing.T) {
	cases := []struct {
		done, pending int
		want          float64
	}{
		{0, 0, 0},
		{2, 2, 50},
		{1, 2, 100.0 / 3},
		{3, 0, 100},
	}
	for _, c := range cases {
		got := metrics.CompletionRate(projectWithTasks(c.done, c.pending))
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("CompletionRate(%d done, %d pending) = %v, want %v", c.done, c.pending, got, c.want)
		}
	}
}

func TestCountByPhaseSeedsAllKeys(t *testing.T) {
	got := metrics.CountByPhase(domain.Project{})
	if len(got) != 5 {
		t.Fatalf("empty project buckets = %d, want 5", len(got))
	}
	for _, k := range domain.PhaseKeys() {
		if _, ok := got[k]; !ok {
			t.Errorf("missing bucket %s", k)
		}
	}

	p := domain.Project{Tasks: []domain.Task{{Phase: "legacyPhase"}}}
	got = metrics.CountByPhase(p)
	if got["legacyPhase"] != 1 {
		t.Errorf("unknown phase must keep its own bucket: %v", got)
	}
}

func TestCountByPriority(t *testing.T) {
	got := metrics.CountByPriority(projectWithTasks(1, 2))
	if got["high"] != 1 || got["medium"] != 2 || got["low"] != 0 {
		t.Errorf("priority buckets = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	p := projectWithTasks(1, 3)
	p.SiteVisits = []domain.SiteVisit{{ID: "v1"}, {ID: "v2"}}
	sum := metrics.Summarize(p)
	if sum.TotalTasks != 4 || sum.CompletedTasks != 1 || sum.PendingTasks != 3 {
		t.Errorf("task counts = %+v", sum)
	}
	if sum.CompletionRate != 25 {
		t.Errorf("completion = %v, want 25", sum.CompletionRate)
	}
	if sum.SiteVisits != 2 {
		t.Errorf("site visits = %d, want 2", sum.SiteVisits)
	}
}

func TestCategoryProgressConstants(t *testing.T) {
	rows := metrics.CategoryProgress()
	if len(rows) != 11 {
		t.Fatalf("rows = %d, want 11", len(rows))
	}
	want := map[string]float64{
		"sitePreparation": 3.00,
		"foundationWork":  9.93,
		"concreteWork":    2.25,
		"wallWork":        0.24,
	}
	for _, r := range rows {
		if w, ok := want[r.Key]; ok && r.Current != w {
			t.Errorf("%s = %v, want %v", r.Key, r.Current, w)
		}
	}
}

func TestRecomputePhaseProgress(t *testing.T) {
	p := domain.Project{
		Phases: domain.DefaultPhases(),
		Tasks: []domain.Task{
			{ID: "t1", Phase: domain.PhaseFoundationWork, Completed: true},
			{ID: "t2", Phase: domain.PhaseFoundationWork},
			{ID: "t3", Phase: domain.PhaseStructuralWork, Completed: true},
		},
	}
	got := metrics.RecomputePhaseProgress(p)

	byKey := map[string]domain.ProjectPhase{}
	for _, ph := range got.Phases {
		byKey[ph.Key] = ph
	}
	if ph := byKey[domain.PhaseFoundationWork]; ph.Progress != 50 || ph.Status != "inProgress" || len(ph.TaskIDs) != 2 {
		t.Errorf("foundation = %+v", ph)
	}
	if ph := byKey[domain.PhaseStructuralWork]; ph.Progress != 100 || ph.Status != "completed" {
		t.Errorf("structural = %+v", ph)
	}
	if ph := byKey[domain.PhaseLandscaping]; ph.Progress != 0 || ph.Status != "notStarted" {
		t.Errorf("landscaping = %+v", ph)
	}

	// The input must not be touched.
	if p.Phases[1].Progress != 0 || p.Phases[1].Status != "notStarted" {
		t.Error("input project mutated")
	}
}
