// Package metrics derives figures from project state. Every function is
// pure: no clock, no storage, no mutation of its input.
package metrics

import (
	"siteline/internal/domain"
)

// CompletionRate returns the share of completed tasks as a percentage
// in [0,100]. A project with no tasks rates 0.
func CompletionRate(p domain.Project) float64 {
	total := len(p.Tasks)
	if total == 0 {
		return 0
	}
	done := 0
	for _, t := range p.Tasks {
		if t.Completed {
			done++
		}
	}
	return float64(done) / float64(total) * 100
}

// CountByPriority buckets tasks by priority level.
func CountByPriority(p domain.Project) map[string]int {
	out := map[string]int{"low": 0, "medium": 0, "high": 0}
	for _, t := range p.Tasks {
		out[t.Priority]++
	}
	return out
}

// CountByPhase buckets tasks by construction phase, keyed by the five
// canonical phase keys. Tasks with an unknown phase key get their own
// bucket rather than being dropped.
func CountByPhase(p domain.Project) map[string]int {
	out := map[string]int{}
	for _, k := range domain.PhaseKeys() {
		out[k] = 0
	}
	for _, t := range p.Tasks {
		out[t.Phase]++
	}
	return out
}

// CountByCompletion splits tasks into completed and pending.
func CountByCompletion(p domain.Project) (completed, pending int) {
	for _, t := range p.Tasks {
		if t.Completed {
			completed++
		} else {
			pending++
		}
	}
	return completed, pending
}

// Summary is the at-a-glance project dashboard figure set.
type Summary struct {
	TotalTasks     int            `json:"total_tasks"`
	CompletedTasks int            `json:"completed_tasks"`
	PendingTasks   int            `json:"pending_tasks"`
	CompletionRate float64        `json:"completion_rate"`
	SiteVisits     int            `json:"site_visits"`
	ByPriority     map[string]int `json:"by_priority"`
	ByPhase        map[string]int `json:"by_phase"`
}

// Summarize assembles the summary figures for one project.
func Summarize(p domain.Project) Summary {
	completed, pending := CountByCompletion(p)
	return Summary{
		TotalTasks:     len(p.Tasks),
		CompletedTasks: completed,
		PendingTasks:   pending,
		CompletionRate: CompletionRate(p),
		SiteVisits:     len(p.SiteVisits),
		ByPriority:     CountByPriority(p),
		ByPhase:        CountByPhase(p),
	}
}

// CategoryRow is one line of the illustrative work-category progress
// table reports print: the current reading against the previous visit.
type CategoryRow struct {
	Key      string  `json:"key"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
}

// CategoryProgress returns the fixed illustrative category figures.
// The values are presentation constants carried from the report
// template, not derived from task state.
func CategoryProgress() []CategoryRow {
	return []CategoryRow{
		{Key: "sitePreparation", Current: 3.00},
		{Key: "foundationWork", Current: 9.93},
		{Key: "concreteWork", Current: 2.25},
		{Key: "structuralWork", Current: 0.00},
		{Key: "wallWork", Current: 0.24},
		{Key: "finishingWork", Current: 0.00},
		{Key: "electricalWork", Current: 0.00},
		{Key: "plumbingWork", Current: 0.00},
		{Key: "tilingWork", Current: 0.00},
		{Key: "paintingWork", Current: 0.00},
		{Key: "landscaping", Current: 0.00},
	}
}

// RecomputePhaseProgress returns a copy of the project whose phase
// progress and status are derived from the completion state of the
// tasks assigned to each phase. Phases are never synchronized
// automatically; callers opt in to this derivation explicitly.
func RecomputePhaseProgress(p domain.Project) domain.Project {
	phases := make([]domain.ProjectPhase, len(p.Phases))
	copy(phases, p.Phases)
	for i, ph := range phases {
		total, done := 0, 0
		ids := make([]string, 0, len(p.Tasks))
		for _, t := range p.Tasks {
			if t.Phase != ph.Key {
				continue
			}
			total++
			ids = append(ids, t.ID)
			if t.Completed {
				done++
			}
		}
		phases[i].TaskIDs = ids
		if total == 0 {
			phases[i].Progress = 0
			phases[i].Status = "notStarted"
			continue
		}
		progress := done * 100 / total
		phases[i].Progress = progress
		switch {
		case progress == 100:
			phases[i].Status = "completed"
		case progress > 0:
			phases[i].Status = "inProgress"
		default:
			phases[i].Status = "notStarted"
		}
	}
	p.Phases = phases
	return p
}
