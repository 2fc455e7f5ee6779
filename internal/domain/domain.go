package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is the aggregate root: one inspection engagement owning its
// tasks, site visits and construction phases.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status" enum:"planning,active,completed,onHold,cancelled"`

	Location       string `json:"location,omitempty"`
	Contractor     string `json:"contractor,omitempty"`
	ClientName     string `json:"client_name,omitempty"`
	ProjectManager string `json:"project_manager,omitempty"`

	ProjectNumber          string `json:"project_number,omitempty"`
	MunicipalProjectNumber string `json:"municipal_project_number,omitempty"`
	ConsultantName         string `json:"consultant_name,omitempty"`
	ProjectType            string `json:"project_type,omitempty" enum:"residential,commercial,infrastructure,industrial"`

	Budget         float64 `json:"budget,omitempty"`
	ProjectValue   float64 `json:"project_value,omitempty"`
	TotalArea      float64 `json:"total_area,omitempty"`
	BuildingHeight float64 `json:"building_height,omitempty"`
	NumberOfFloors int     `json:"number_of_floors,omitempty"`

	StartDate       string `json:"start_date,omitempty" format:"date-time"`
	ContractDate    string `json:"contract_date,omitempty" format:"date-time"`
	ExpectedEndDate string `json:"expected_end_date,omitempty" format:"date-time"`

	CoverImage string `json:"cover_image,omitempty"`

	Tasks      []Task         `json:"tasks"`
	SiteVisits []SiteVisit    `json:"site_visits"`
	Phases     []ProjectPhase `json:"phases"`

	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// Task is a discrete unit of inspection work within a project,
// categorized by construction phase.
type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Phase       string  `json:"phase" enum:"sitePreparation,foundationWork,structuralWork,finishingWork,landscaping"`
	Priority    string  `json:"priority" enum:"low,medium,high"`
	Completed   bool    `json:"completed"`
	CompletedAt *string `json:"completed_at,omitempty" format:"date-time"`
	ImageURI    string  `json:"image_uri,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

// SiteVisit is a dated inspection event record.
type SiteVisit struct {
	ID                string   `json:"id"`
	VisitDate         string   `json:"visit_date" format:"date-time"`
	Inspector         string   `json:"inspector"`
	ContractorName    string   `json:"contractor_name,omitempty"`
	ProjectLocation   string   `json:"project_location,omitempty"`
	WeatherConditions string   `json:"weather_conditions,omitempty"`
	OverallProgress   int      `json:"overall_progress" minimum:"0" maximum:"100"`
	QualityRating     int      `json:"quality_rating" minimum:"1" maximum:"5"`
	SafetyCompliance  string   `json:"safety_compliance" enum:"excellent,good,satisfactory,fair,poor"`
	Notes             string   `json:"notes,omitempty"`
	Images            []string `json:"images,omitempty"`
	CreatedAt         string   `json:"created_at" format:"date-time"`
	UpdatedAt         string   `json:"updated_at" format:"date-time"`
}

// ProjectPhase is one of the five fixed construction stages. Phase
// progress is tracked independently of task completion; the two are
// reconciled only through an explicit recompute, never automatically.
type ProjectPhase struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Key      string   `json:"key"`
	Progress int      `json:"progress" minimum:"0" maximum:"100"`
	Status   string   `json:"status" enum:"notStarted,inProgress,completed,delayed"`
	TaskIDs  []string `json:"task_ids"`
}

// Phase keys in display order.
const (
	PhaseSitePreparation = "sitePreparation"
	PhaseFoundationWork  = "foundationWork"
	PhaseStructuralWork  = "structuralWork"
	PhaseFinishingWork   = "finishingWork"
	PhaseLandscaping     = "landscaping"
)

// PhaseKeys returns the five phase keys in canonical order.
func PhaseKeys() []string {
	return []string{
		PhaseSitePreparation,
		PhaseFoundationWork,
		PhaseStructuralWork,
		PhaseFinishingWork,
		PhaseLandscaping,
	}
}

// DefaultPhases returns the fixed five-phase template seeded into every
// new project and backfilled into legacy records on load.
func DefaultPhases() []ProjectPhase {
	return []ProjectPhase{
		{ID: "prep", Name: "تجهيز الموقع", Key: PhaseSitePreparation, Status: "notStarted", TaskIDs: []string{}},
		{ID: "foundation", Name: "أعمال الأساسات", Key: PhaseFoundationWork, Status: "notStarted", TaskIDs: []string{}},
		{ID: "structural", Name: "الأعمال الإنشائية", Key: PhaseStructuralWork, Status: "notStarted", TaskIDs: []string{}},
		{ID: "finishing", Name: "أعمال التشطيب", Key: PhaseFinishingWork, Status: "notStarted", TaskIDs: []string{}},
		{ID: "landscaping", Name: "تنسيق الموقع", Key: PhaseLandscaping, Status: "notStarted", TaskIDs: []string{}},
	}
}

// PhaseName returns the Arabic display name for a phase key, or the key
// itself when unknown.
func PhaseName(key string) string {
	for _, p := range DefaultPhases() {
		if p.Key == key {
			return p.Name
		}
	}
	return key
}

// ValidPhaseKey reports whether key names one of the five phases.
func ValidPhaseKey(key string) bool {
	for _, k := range PhaseKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// NewID synthesizes an entity id from a type prefix, the creation
// instant and a random suffix. No uniqueness check is made against
// existing ids; collision probability is treated as negligible.
func NewID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
}

// Snapshot is the versioned export/import envelope.
type Snapshot struct {
	Projects   []Project      `json:"projects"`
	Settings   map[string]any `json:"settings"`
	ExportDate string         `json:"exportDate" format:"date-time"`
	Version    string         `json:"version"`
}

// SnapshotVersion is the only envelope version written or accepted.
const SnapshotVersion = "1.0"

// ProjectDraft carries caller-supplied fields for project creation.
// Identity, timestamps and the owned sequences are synthesized by the
// store.
type ProjectDraft struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`

	Location       string `json:"location,omitempty"`
	Contractor     string `json:"contractor,omitempty"`
	ClientName     string `json:"client_name,omitempty"`
	ProjectManager string `json:"project_manager,omitempty"`

	ProjectNumber          string `json:"project_number,omitempty"`
	MunicipalProjectNumber string `json:"municipal_project_number,omitempty"`
	ConsultantName         string `json:"consultant_name,omitempty"`
	ProjectType            string `json:"project_type,omitempty"`

	Budget         float64 `json:"budget,omitempty"`
	ProjectValue   float64 `json:"project_value,omitempty"`
	TotalArea      float64 `json:"total_area,omitempty"`
	BuildingHeight float64 `json:"building_height,omitempty"`
	NumberOfFloors int     `json:"number_of_floors,omitempty"`

	StartDate       string `json:"start_date,omitempty"`
	ContractDate    string `json:"contract_date,omitempty"`
	ExpectedEndDate string `json:"expected_end_date,omitempty"`
	CoverImage      string `json:"cover_image,omitempty"`
}

// TaskDraft carries caller-supplied fields for task creation.
type TaskDraft struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Phase       string `json:"phase,omitempty"`
	Priority    string `json:"priority,omitempty"`
	ImageURI    string `json:"image_uri,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// SiteVisitDraft carries caller-supplied fields for site-visit creation.
type SiteVisitDraft struct {
	VisitDate         string   `json:"visit_date,omitempty"`
	Inspector         string   `json:"inspector"`
	ContractorName    string   `json:"contractor_name,omitempty"`
	ProjectLocation   string   `json:"project_location,omitempty"`
	WeatherConditions string   `json:"weather_conditions,omitempty"`
	OverallProgress   int      `json:"overall_progress,omitempty"`
	QualityRating     int      `json:"quality_rating,omitempty"`
	SafetyCompliance  string   `json:"safety_compliance,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	Images            []string `json:"images,omitempty"`
}

// ProjectPatch is a partial update; nil fields are left untouched.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`

	Location       *string `json:"location,omitempty"`
	Contractor     *string `json:"contractor,omitempty"`
	ClientName     *string `json:"client_name,omitempty"`
	ProjectManager *string `json:"project_manager,omitempty"`

	ProjectNumber          *string `json:"project_number,omitempty"`
	MunicipalProjectNumber *string `json:"municipal_project_number,omitempty"`
	ConsultantName         *string `json:"consultant_name,omitempty"`
	ProjectType            *string `json:"project_type,omitempty"`

	Budget         *float64 `json:"budget,omitempty"`
	ProjectValue   *float64 `json:"project_value,omitempty"`
	TotalArea      *float64 `json:"total_area,omitempty"`
	BuildingHeight *float64 `json:"building_height,omitempty"`
	NumberOfFloors *int     `json:"number_of_floors,omitempty"`

	StartDate       *string `json:"start_date,omitempty"`
	ContractDate    *string `json:"contract_date,omitempty"`
	ExpectedEndDate *string `json:"expected_end_date,omitempty"`
	CoverImage      *string `json:"cover_image,omitempty"`
}

// TaskPatch is a partial task update. Completion toggling goes through
// Completed; the store owns the CompletedAt stamp.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Phase       *string `json:"phase,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
	ImageURI    *string `json:"image_uri,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// SiteVisitPatch is a partial site-visit update.
type SiteVisitPatch struct {
	VisitDate         *string   `json:"visit_date,omitempty"`
	Inspector         *string   `json:"inspector,omitempty"`
	ContractorName    *string   `json:"contractor_name,omitempty"`
	ProjectLocation   *string   `json:"project_location,omitempty"`
	WeatherConditions *string   `json:"weather_conditions,omitempty"`
	OverallProgress   *int      `json:"overall_progress,omitempty"`
	QualityRating     *int      `json:"quality_rating,omitempty"`
	SafetyCompliance  *string   `json:"safety_compliance,omitempty"`
	Notes             *string   `json:"notes,omitempty"`
	Images            *[]string `json:"images,omitempty"`
}

// DateRange bounds createdAt in filters; either side may be empty.
type DateRange struct {
	Start string `json:"start,omitempty" format:"date-time"`
	End   string `json:"end,omitempty" format:"date-time"`
}

// FloatRange bounds a numeric field in filters.
type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ProjectFilter is a composable predicate; all provided criteria are
// ANDed, absent criteria are ignored.
type ProjectFilter struct {
	Status          string      `json:"status,omitempty"`
	Contractor      string      `json:"contractor,omitempty"`
	ProjectType     string      `json:"project_type,omitempty"`
	CreatedRange    *DateRange  `json:"created_range,omitempty"`
	CompletionRange *FloatRange `json:"completion_range,omitempty"`
	BudgetRange     *FloatRange `json:"budget_range,omitempty"`
}
