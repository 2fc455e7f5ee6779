package report

import (
	"strings"
	"testing"
	"time"

	"siteline/internal/domain"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC) }

func sampleProject() domain.Project {
	return domain.Project{
		ID:             "p1",
		Name:           "فيلا الشيخة موزة",
		Status:         "active",
		Location:       "أبوظبي",
		Contractor:     "شركة البناء",
		ProjectNumber:  "SL-123",
		ConsultantName: "أكاد للاستشارات الهندسية",
		Phases:         domain.DefaultPhases(),
		Tasks: []domain.Task{
			{ID: "t1", Title: "فحص الحديد", Phase: domain.PhaseFoundationWork, Completed: true},
			{ID: "t2", Title: "صب الخرسانة", Phase: domain.PhaseFoundationWork},
		},
		SiteVisits: []domain.SiteVisit{
			{ID: "v1", VisitDate: "2024-03-10T09:00:00Z", Inspector: "م. أحمد", OverallProgress: 40, QualityRating: 4},
		},
		CreatedAt: "2024-01-01T00:00:00Z",
		UpdatedAt: "2024-03-10T00:00:00Z",
	}
}

func TestComposeFullReport(t *testing.T) {
	c := Composer{Now: fixedNow}
	doc := c.Compose(sampleProject(), DefaultSettings())

	if !strings.Contains(doc.Title, "تقرير فني لضمان جودة الأعمال") {
		t.Errorf("title = %q", doc.Title)
	}
	if !strings.Contains(doc.HTML, `<html dir="rtl" lang="ar">`) {
		t.Error("document not RTL Arabic")
	}
	for _, marker := range []string{
		"site-visit-page",
		"main-report-page",
		"observations-page",
		"progress-tables-page",
		"evaluation-page",
	} {
		if !strings.Contains(doc.HTML, marker) {
			t.Errorf("missing section %s", marker)
		}
	}
	if !strings.Contains(doc.HTML, "فيلا الشيخة موزة") {
		t.Error("project name missing")
	}
	if !strings.Contains(doc.HTML, "م. أحمد") {
		t.Error("latest visit inspector missing")
	}
}

func TestComposeSectionToggles(t *testing.T) {
	c := Composer{Now: fixedNow}
	s := DefaultSettings()
	s.IncludeTaskImages = false
	s.IncludeProgressCharts = false
	s.IncludeQualityAssessment = false

	doc := c.Compose(sampleProject(), s)
	for _, marker := range []string{"observations-page", "progress-tables-page", "evaluation-page"} {
		if strings.Contains(doc.HTML, marker) {
			t.Errorf("disabled section %s still rendered", marker)
		}
	}
	// The intake form and summary dashboard always render.
	for _, marker := range []string{"site-visit-page", "main-report-page"} {
		if !strings.Contains(doc.HTML, marker) {
			t.Errorf("mandatory section %s missing", marker)
		}
	}
}

func TestComposePlaceholders(t *testing.T) {
	c := Composer{Now: fixedNow}
	p := sampleProject()
	p.CoverImage = ""
	for i := range p.Tasks {
		p.Tasks[i].ImageURI = ""
	}

	doc := c.Compose(p, DefaultSettings())
	if !strings.Contains(doc.HTML, "📷") {
		t.Error("missing cover placeholder")
	}
	if !strings.Contains(doc.HTML, "📸") {
		t.Error("missing task image placeholder")
	}

	p.CoverImage = "data:image/png;base64,AAAA"
	doc = c.Compose(p, DefaultSettings())
	if !strings.Contains(doc.HTML, "data:image/png;base64,AAAA") {
		t.Error("cover image not embedded")
	}
}

func TestSuggestedName(t *testing.T) {
	now := fixedNow()
	cases := []struct {
		name string
		want string
	}{
		{"فيلا الشيخة", "فيلا_الشيخة_تقرير_2024-03-15"},
		{"Villa A/1", "Villa_A_1_تقرير_2024-03-15"},
		{"!!!", "____تقرير_2024-03-15"},
		{"", "report_تقرير_2024-03-15"},
	}
	for _, c := range cases {
		if got := SuggestedName(c.name, now); got != c.want {
			t.Errorf("SuggestedName(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestFormatArabicDate(t *testing.T) {
	if got := formatArabicDate("2024-03-15T10:00:00Z"); got != "15 مارس 2024" {
		t.Errorf("rfc3339 = %q", got)
	}
	if got := formatArabicDate("2024-01-02"); got != "2 يناير 2024" {
		t.Errorf("date-only = %q", got)
	}
	if got := formatArabicDate("garbage"); got != "" {
		t.Errorf("invalid = %q, want empty", got)
	}
}

func TestFormatArabicTime(t *testing.T) {
	cases := []struct {
		hour, min int
		want      string
	}{
		{0, 5, "12:05 ص"},
		{9, 30, "09:30 ص"},
		{12, 0, "12:00 م"},
		{17, 45, "05:45 م"},
	}
	for _, c := range cases {
		ts := time.Date(2024, 3, 15, c.hour, c.min, 0, 0, time.UTC)
		if got := formatArabicTime(ts); got != c.want {
			t.Errorf("formatArabicTime(%02d:%02d) = %q, want %q", c.hour, c.min, got, c.want)
		}
	}
}

func TestStylesheetPageSize(t *testing.T) {
	if css := stylesheet("landscape"); !strings.Contains(css, "size: A4 landscape;") {
		t.Error("landscape layout not applied")
	}
	if css := stylesheet("portrait"); !strings.Contains(css, "size: A4;") {
		t.Error("portrait layout not applied")
	}
}
