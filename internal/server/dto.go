package server

import (
	"siteline/internal/domain"
)

// Request bodies. Responses reuse the JSON-tagged domain types
// directly; the API shape is the storage shape.

type CreateProjectRequest struct {
	Name        string `json:"name" minLength:"1"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty" enum:"planning,active,completed,onHold,cancelled"`

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

	StartDate       string `json:"start_date,omitempty"`
	ContractDate    string `json:"contract_date,omitempty"`
	ExpectedEndDate string `json:"expected_end_date,omitempty"`
	CoverImage      string `json:"cover_image,omitempty"`
}

func (r CreateProjectRequest) draft() domain.ProjectDraft {
	return domain.ProjectDraft{
		Name:                   r.Name,
		Description:            r.Description,
		Status:                 r.Status,
		Location:               r.Location,
		Contractor:             r.Contractor,
		ClientName:             r.ClientName,
		ProjectManager:         r.ProjectManager,
		ProjectNumber:          r.ProjectNumber,
		MunicipalProjectNumber: r.MunicipalProjectNumber,
		ConsultantName:         r.ConsultantName,
		ProjectType:            r.ProjectType,
		Budget:                 r.Budget,
		ProjectValue:           r.ProjectValue,
		TotalArea:              r.TotalArea,
		BuildingHeight:         r.BuildingHeight,
		NumberOfFloors:         r.NumberOfFloors,
		StartDate:              r.StartDate,
		ContractDate:           r.ContractDate,
		ExpectedEndDate:        r.ExpectedEndDate,
		CoverImage:             r.CoverImage,
	}
}

type CreateTaskRequest struct {
	Title       string `json:"title" minLength:"1"`
	Description string `json:"description,omitempty"`
	Phase       string `json:"phase,omitempty" enum:"sitePreparation,foundationWork,structuralWork,finishingWork,landscaping"`
	Priority    string `json:"priority,omitempty" enum:"low,medium,high"`
	ImageURI    string `json:"image_uri,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func (r CreateTaskRequest) draft() domain.TaskDraft {
	return domain.TaskDraft{
		Title:       r.Title,
		Description: r.Description,
		Phase:       r.Phase,
		Priority:    r.Priority,
		ImageURI:    r.ImageURI,
		Notes:       r.Notes,
	}
}

type CreateSiteVisitRequest struct {
	VisitDate         string   `json:"visit_date,omitempty"`
	Inspector         string   `json:"inspector" minLength:"1"`
	ContractorName    string   `json:"contractor_name,omitempty"`
	ProjectLocation   string   `json:"project_location,omitempty"`
	WeatherConditions string   `json:"weather_conditions,omitempty"`
	OverallProgress   int      `json:"overall_progress,omitempty" minimum:"0" maximum:"100"`
	QualityRating     int      `json:"quality_rating,omitempty" minimum:"1" maximum:"5"`
	SafetyCompliance  string   `json:"safety_compliance,omitempty" enum:"excellent,good,satisfactory,fair,poor"`
	Notes             string   `json:"notes,omitempty"`
	Images            []string `json:"images,omitempty"`
}

func (r CreateSiteVisitRequest) draft() domain.SiteVisitDraft {
	return domain.SiteVisitDraft{
		VisitDate:         r.VisitDate,
		Inspector:         r.Inspector,
		ContractorName:    r.ContractorName,
		ProjectLocation:   r.ProjectLocation,
		WeatherConditions: r.WeatherConditions,
		OverallProgress:   r.OverallProgress,
		QualityRating:     r.QualityRating,
		SafetyCompliance:  r.SafetyCompliance,
		Notes:             r.Notes,
		Images:            r.Images,
	}
}

type GenerateReportRequest struct {
	Format string `json:"format,omitempty" enum:"pdf,html"`
	Save   bool   `json:"save,omitempty"`
}

// ReportResponse carries artifact metadata; the HTML body rides along
// when the caller asked for html or when PDF rendering degraded.
type ReportResponse struct {
	Title         string `json:"title"`
	SuggestedName string `json:"suggested_name"`
	Format        string `json:"format" enum:"pdf,html"`
	Path          string `json:"path,omitempty"`
	HTML          string `json:"html,omitempty"`
	RenderError   string `json:"render_error,omitempty"`
}

type ImportRequest struct {
	Data string `json:"data" minLength:"1"`
}
