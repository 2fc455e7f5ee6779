// Package store holds the in-memory project collection and keeps it in
// lockstep with the persisted blob: every mutator rewrites the whole
// collection through the gateway before the new state becomes visible.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"siteline/internal/domain"
	"siteline/internal/events"
	"siteline/internal/gateway"
	"siteline/internal/metrics"
)

// ErrNotFound reports an unknown project, task or site-visit id.
var ErrNotFound = errors.New("not found")

// Store serializes all mutations behind one mutex. Two concurrent
// writers queue rather than race; after any successful mutator the
// in-memory collection and the persisted blob are identical. When the
// write-through fails the previous state is kept and the error is
// returned.
type Store struct {
	mu       sync.Mutex
	projects []domain.Project

	Gateway gateway.Gateway
	Events  *events.Writer
	Now     func() time.Time
}

// New loads the persisted collection and returns a ready store.
func New(ctx context.Context, gw gateway.Gateway, ev *events.Writer) *Store {
	return &Store{
		projects: gw.LoadAll(ctx),
		Gateway:  gw,
		Events:   ev,
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// persist writes the full collection through the gateway. Called with
// the mutex held; next is adopted only when the write succeeds.
func (s *Store) persist(ctx context.Context, next []domain.Project) error {
	if err := s.Gateway.SaveAll(ctx, next); err != nil {
		return err
	}
	s.projects = next
	return nil
}

func (s *Store) audit(ctx context.Context, evtType, projectID, entityKind, entityID string, payload events.EventPayload) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Append(ctx, evtType, projectID, entityKind, entityID, payload); err != nil {
		slog.Error("append audit event", "type", evtType, "error", err)
	}
}

// snapshot returns a deep copy of the collection so callers can never
// alias the store's internal slices.
func (s *Store) snapshot() []domain.Project {
	out := make([]domain.Project, len(s.projects))
	for i, p := range s.projects {
		out[i] = cloneProject(p)
	}
	return out
}

func cloneProject(p domain.Project) domain.Project {
	tasks := make([]domain.Task, len(p.Tasks))
	copy(tasks, p.Tasks)
	for i, t := range tasks {
		if t.CompletedAt != nil {
			v := *t.CompletedAt
			tasks[i].CompletedAt = &v
		}
	}
	visits := make([]domain.SiteVisit, len(p.SiteVisits))
	copy(visits, p.SiteVisits)
	for i, v := range visits {
		visits[i].Images = append([]string{}, v.Images...)
	}
	phases := make([]domain.ProjectPhase, len(p.Phases))
	copy(phases, p.Phases)
	for i, ph := range phases {
		phases[i].TaskIDs = append([]string{}, ph.TaskIDs...)
	}
	p.Tasks = tasks
	p.SiteVisits = visits
	p.Phases = phases
	return p
}

// Reload replaces the in-memory collection with the persisted one.
// Used after snapshot import and wipe.
func (s *Store) Reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = s.Gateway.LoadAll(ctx)
}

// List returns all projects in insertion order.
func (s *Store) List() []domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Get returns one project by id.
func (s *Store) Get(id string) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.ID == id {
			return cloneProject(p), nil
		}
	}
	return domain.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
}

// CreateProject synthesizes identity and timestamps, seeds the phase
// template and appends the project to the collection.
func (s *Store) CreateProject(ctx context.Context, draft domain.ProjectDraft) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ts := now.UTC().Format(time.RFC3339)
	status := draft.Status
	if status == "" {
		status = "planning"
	}
	p := domain.Project{
		ID:                     domain.NewID("project", now),
		Name:                   draft.Name,
		Description:            draft.Description,
		Status:                 status,
		Location:               draft.Location,
		Contractor:             draft.Contractor,
		ClientName:             draft.ClientName,
		ProjectManager:         draft.ProjectManager,
		ProjectNumber:          draft.ProjectNumber,
		MunicipalProjectNumber: draft.MunicipalProjectNumber,
		ConsultantName:         draft.ConsultantName,
		ProjectType:            draft.ProjectType,
		Budget:                 draft.Budget,
		ProjectValue:           draft.ProjectValue,
		TotalArea:              draft.TotalArea,
		BuildingHeight:         draft.BuildingHeight,
		NumberOfFloors:         draft.NumberOfFloors,
		StartDate:              draft.StartDate,
		ContractDate:           draft.ContractDate,
		ExpectedEndDate:        draft.ExpectedEndDate,
		CoverImage:             draft.CoverImage,
		Tasks:                  []domain.Task{},
		SiteVisits:             []domain.SiteVisit{},
		Phases:                 domain.DefaultPhases(),
		CreatedAt:              ts,
		UpdatedAt:              ts,
	}
	p = s.Gateway.Migrate(p)

	next := append(s.snapshot(), p)
	if err := s.persist(ctx, next); err != nil {
		return domain.Project{}, err
	}
	s.audit(ctx, "project.created", p.ID, "project", p.ID, events.EventPayload{"name": p.Name})
	return cloneProject(p), nil
}

// UpdateProject merges a patch into an existing project. An empty patch
// still stamps updatedAt.
func (s *Store) UpdateProject(ctx context.Context, id string, patch domain.ProjectPatch) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	idx := indexOf(next, id)
	if idx < 0 {
		return domain.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	p := &next[idx]
	applyString(&p.Name, patch.Name)
	applyString(&p.Description, patch.Description)
	applyString(&p.Status, patch.Status)
	applyString(&p.Location, patch.Location)
	applyString(&p.Contractor, patch.Contractor)
	applyString(&p.ClientName, patch.ClientName)
	applyString(&p.ProjectManager, patch.ProjectManager)
	applyString(&p.ProjectNumber, patch.ProjectNumber)
	applyString(&p.MunicipalProjectNumber, patch.MunicipalProjectNumber)
	applyString(&p.ConsultantName, patch.ConsultantName)
	applyString(&p.ProjectType, patch.ProjectType)
	applyFloat(&p.Budget, patch.Budget)
	applyFloat(&p.ProjectValue, patch.ProjectValue)
	applyFloat(&p.TotalArea, patch.TotalArea)
	applyFloat(&p.BuildingHeight, patch.BuildingHeight)
	applyInt(&p.NumberOfFloors, patch.NumberOfFloors)
	applyString(&p.StartDate, patch.StartDate)
	applyString(&p.ContractDate, patch.ContractDate)
	applyString(&p.ExpectedEndDate, patch.ExpectedEndDate)
	applyString(&p.CoverImage, patch.CoverImage)
	p.UpdatedAt = s.stamp()

	if err := s.persist(ctx, next); err != nil {
		return domain.Project{}, err
	}
	s.audit(ctx, "project.updated", id, "project", id, nil)
	return cloneProject(next[idx]), nil
}

// DeleteProject removes a project and everything it owns.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot()
	idx := indexOf(cur, id)
	if idx < 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	next := append(cur[:idx], cur[idx+1:]...)
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.audit(ctx, "project.deleted", id, "project", id, nil)
	return nil
}

// AddTask appends a task to a project.
func (s *Store) AddTask(ctx context.Context, projectID string, draft domain.TaskDraft) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	idx := indexOf(next, projectID)
	if idx < 0 {
		return domain.Task{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	now := s.now()
	ts := now.UTC().Format(time.RFC3339)
	phase := draft.Phase
	if phase == "" {
		phase = domain.PhaseSitePreparation
	}
	priority := draft.Priority
	if priority == "" {
		priority = "medium"
	}
	t := domain.Task{
		ID:          domain.NewID("task", now),
		Title:       draft.Title,
		Description: draft.Description,
		Phase:       phase,
		Priority:    priority,
		ImageURI:    draft.ImageURI,
		Notes:       draft.Notes,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	next[idx].Tasks = append(next[idx].Tasks, t)
	next[idx].UpdatedAt = ts

	if err := s.persist(ctx, next); err != nil {
		return domain.Task{}, err
	}
	s.audit(ctx, "task.created", projectID, "task", t.ID, events.EventPayload{"title": t.Title})
	return t, nil
}

// UpdateTask merges a patch into a task. The completedAt stamp is owned
// here: it is set when a task transitions to completed and cleared when
// it reopens, so completedAt is present exactly when completed is true.
func (s *Store) UpdateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	idx := indexOf(next, projectID)
	if idx < 0 {
		return domain.Task{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	ti := -1
	for i, t := range next[idx].Tasks {
		if t.ID == taskID {
			ti = i
			break
		}
	}
	if ti < 0 {
		return domain.Task{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	t := &next[idx].Tasks[ti]
	applyString(&t.Title, patch.Title)
	applyString(&t.Description, patch.Description)
	applyString(&t.Phase, patch.Phase)
	applyString(&t.Priority, patch.Priority)
	applyString(&t.ImageURI, patch.ImageURI)
	applyString(&t.Notes, patch.Notes)
	ts := s.stamp()
	if patch.Completed != nil && *patch.Completed != t.Completed {
		t.Completed = *patch.Completed
		if t.Completed {
			stamp := ts
			t.CompletedAt = &stamp
		} else {
			t.CompletedAt = nil
		}
	}
	t.UpdatedAt = ts
	next[idx].UpdatedAt = ts

	if err := s.persist(ctx, next); err != nil {
		return domain.Task{}, err
	}
	s.audit(ctx, "task.updated", projectID, "task", taskID, nil)
	return next[idx].Tasks[ti], nil
}

// DeleteTask removes a task from its project.
func (s *Store) DeleteTask(ctx context.Context, projectID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	idx := indexOf(next, projectID)
	if idx < 0 {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	tasks := next[idx].Tasks
	ti := -1
	for i, t := range tasks {
		if t.ID == taskID {
			ti = i
			break
		}
	}
	if ti < 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	next[idx].Tasks = append(tasks[:ti], tasks[ti+1:]...)
	next[idx].UpdatedAt = s.stamp()

	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.audit(ctx, "task.deleted", projectID, "task", taskID, nil)
	return nil
}

// AddSiteVisit appends a site-visit record to a project.
func (s *Store) AddSiteVisit(ctx context.Context, projectID string, draft domain.SiteVisitDraft) (domain.SiteVisit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	idx := indexOf(next, projectID)
	if idx < 0 {
		return domain.SiteVisit{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	now := s.now()
	ts := now.UTC().Format(time.RFC3339)
	visitDate := draft.VisitDate
	if visitDate == "" {
		visitDate = ts
	}
	images := draft.Images
	if images == nil {
		images = []string{}
	}
	v := domain.SiteVisit{
		ID:                domain.NewID("visit", now),
		VisitDate:         visitDate,
		Inspector:         draft.Inspector,
		ContractorName:    draft.ContractorName,
		ProjectLocation:   draft.ProjectLocation,
		WeatherConditions: draft.WeatherConditions,
		OverallProgress:   draft.OverallProgress,
		QualityRating:     draft.QualityRating,
		SafetyCompliance:  draft.SafetyCompliance,
		Notes:             draft.Notes,
		Images:            images,
		CreatedAt:         ts,
		UpdatedAt:         ts,
	}
	next[idx].SiteVisits = append(next[idx].SiteVisits, v)
	next[idx].UpdatedAt = ts

	if err := s.persist(ctx, next); err != nil {
		return domain.SiteVisit{}, err
	}
	s.audit(ctx, "visit.created", projectID, "visit", v.ID, nil)
	return v, nil
}

// UpdateSiteVisit merges a patch into a site-visit record.
func (s *Store) UpdateSiteVisit(ctx context.Context, projectID, visitID string, patch domain.SiteVisitPatch) (domain.SiteVisit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	idx := indexOf(next, projectID)
	if idx < 0 {
		return domain.SiteVisit{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	vi := -1
	for i, v := range next[idx].SiteVisits {
		if v.ID == visitID {
			vi = i
			break
		}
	}
	if vi < 0 {
		return domain.SiteVisit{}, fmt.Errorf("site visit %s: %w", visitID, ErrNotFound)
	}
	v := &next[idx].SiteVisits[vi]
	applyString(&v.VisitDate, patch.VisitDate)
	applyString(&v.Inspector, patch.Inspector)
	applyString(&v.ContractorName, patch.ContractorName)
	applyString(&v.ProjectLocation, patch.ProjectLocation)
	applyString(&v.WeatherConditions, patch.WeatherConditions)
	applyInt(&v.OverallProgress, patch.OverallProgress)
	applyInt(&v.QualityRating, patch.QualityRating)
	applyString(&v.SafetyCompliance, patch.SafetyCompliance)
	applyString(&v.Notes, patch.Notes)
	if patch.Images != nil {
		v.Images = append([]string{}, (*patch.Images)...)
	}
	ts := s.stamp()
	v.UpdatedAt = ts
	next[idx].UpdatedAt = ts

	if err := s.persist(ctx, next); err != nil {
		return domain.SiteVisit{}, err
	}
	s.audit(ctx, "visit.updated", projectID, "visit", visitID, nil)
	return next[idx].SiteVisits[vi], nil
}

// DeleteSiteVisit removes a site-visit record from its project.
func (s *Store) DeleteSiteVisit(ctx context.Context, projectID, visitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	idx := indexOf(next, projectID)
	if idx < 0 {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	visits := next[idx].SiteVisits
	vi := -1
	for i, v := range visits {
		if v.ID == visitID {
			vi = i
			break
		}
	}
	if vi < 0 {
		return fmt.Errorf("site visit %s: %w", visitID, ErrNotFound)
	}
	next[idx].SiteVisits = append(visits[:vi], visits[vi+1:]...)
	next[idx].UpdatedAt = s.stamp()

	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.audit(ctx, "visit.deleted", projectID, "visit", visitID, nil)
	return nil
}

// Search matches a case-insensitive substring against name,
// description, location and contractor. A blank query returns all
// projects.
func (s *Store) Search(query string) []domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.snapshot()
	}
	var out []domain.Project
	for _, p := range s.projects {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Location), q) ||
			strings.Contains(strings.ToLower(p.Contractor), q) {
			out = append(out, cloneProject(p))
		}
	}
	if out == nil {
		out = []domain.Project{}
	}
	return out
}

// Filter applies all provided criteria conjunctively, preserving
// collection order.
func (s *Store) Filter(f domain.ProjectFilter) []domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Project{}
	for _, p := range s.projects {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Contractor != "" && !strings.EqualFold(p.Contractor, f.Contractor) {
			continue
		}
		if f.ProjectType != "" && p.ProjectType != f.ProjectType {
			continue
		}
		if f.CreatedRange != nil && !inDateRange(p.CreatedAt, *f.CreatedRange) {
			continue
		}
		if f.CompletionRange != nil {
			rate := metrics.CompletionRate(p)
			if rate < f.CompletionRange.Min || rate > f.CompletionRange.Max {
				continue
			}
		}
		if f.BudgetRange != nil && (p.Budget < f.BudgetRange.Min || p.Budget > f.BudgetRange.Max) {
			continue
		}
		out = append(out, cloneProject(p))
	}
	return out
}

func inDateRange(ts string, r domain.DateRange) bool {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return false
	}
	if r.Start != "" {
		if start, err := time.Parse(time.RFC3339, r.Start); err == nil && t.Before(start) {
			return false
		}
	}
	if r.End != "" {
		if end, err := time.Parse(time.RFC3339, r.End); err == nil && t.After(end) {
			return false
		}
	}
	return true
}

func indexOf(projects []domain.Project, id string) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func applyFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func applyInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
