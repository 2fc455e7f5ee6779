// Package report composes the technical site-visit report: five fixed
// sections rendered into one right-to-left Arabic HTML document with
// inlined styles and explicit page breaks. Composition never fails;
// missing images degrade to placeholder blocks.
package report

import (
	"fmt"
	"html"
	"strings"
	"time"

	"siteline/internal/domain"
	"siteline/internal/metrics"
)

// Document is a composed report ready for export.
type Document struct {
	Title         string `json:"title"`
	HTML          string `json:"html"`
	SuggestedName string `json:"suggested_name"`
}

// Composer builds report documents. Now is injectable for stable
// output in tests.
type Composer struct {
	Now func() time.Time
}

func (c Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Compose renders the full report for one project. Sections disabled
// in settings are omitted entirely; everything else degrades to
// placeholders rather than failing.
func (c Composer) Compose(p domain.Project, s Settings) Document {
	now := c.now()
	var sections []string
	sections = append(sections, buildIntakeForm(p, s, now))
	sections = append(sections, buildSummaryDashboard(p, s, now))
	if s.IncludeTaskImages {
		sections = append(sections, buildObservations(p, s))
	}
	if s.IncludeProgressCharts {
		sections = append(sections, buildProgressTables(p))
	}
	if s.IncludeQualityAssessment {
		sections = append(sections, buildEvaluation())
	}

	title := fmt.Sprintf("%s - تقرير فني لضمان جودة الأعمال", p.Name)
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html dir="rtl" lang="ar">
<head>
<meta charset="utf-8">
<title>`)
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n<style>\n")
	b.WriteString(stylesheet(s.PageLayout))
	b.WriteString("\n</style>\n</head>\n<body>\n")
	for _, sec := range sections {
		b.WriteString(sec)
		b.WriteString("\n")
	}
	b.WriteString("</body>\n</html>\n")

	return Document{
		Title:         title,
		HTML:          b.String(),
		SuggestedName: SuggestedName(p.Name, now),
	}
}

// SuggestedName derives the artifact filename: Arabic and alphanumeric
// runes survive, everything else becomes an underscore.
func SuggestedName(projectName string, now time.Time) string {
	return fmt.Sprintf("%s_تقرير_%s", sanitizeFilename(projectName), now.UTC().Format("2006-01-02"))
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 0x0600 && r <= 0x06FF:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "report"
	}
	return b.String()
}

var arabicMonths = []string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

var arabicWeekdays = []string{
	"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت",
}

func formatArabicDate(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		if t2, err2 := time.Parse("2006-01-02", iso); err2 == nil {
			t = t2
		} else {
			return ""
		}
	}
	return fmt.Sprintf("%d %s %d", t.Day(), arabicMonths[t.Month()-1], t.Year())
}

func formatArabicDateLong(t time.Time) string {
	return fmt.Sprintf("%s، %d %s %d", arabicWeekdays[t.Weekday()], t.Day(), arabicMonths[t.Month()-1], t.Year())
}

func formatArabicTime(t time.Time) string {
	suffix := "ص"
	h := t.Hour()
	if h >= 12 {
		suffix = "م"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, t.Minute(), suffix)
}

func esc(s string) string { return html.EscapeString(s) }

func latestVisit(p domain.Project) *domain.SiteVisit {
	if len(p.SiteVisits) == 0 {
		return nil
	}
	return &p.SiteVisits[len(p.SiteVisits)-1]
}

// buildIntakeForm renders the first page: the site-visit intake form
// with the project's registry fields and the attendee signature block.
func buildIntakeForm(p domain.Project, s Settings, now time.Time) string {
	row := func(label, value string) string {
		return fmt.Sprintf(`<tr><td class="label-cell">%s</td><td class="colon-cell">:</td><td class="value-cell">%s</td></tr>`,
			label, esc(value))
	}
	var b strings.Builder
	b.WriteString(`<div class="page site-visit-page"><div class="form-container">`)
	b.WriteString(`<h1 class="form-title">زيارة موقعية</h1>`)
	b.WriteString(`<table class="site-visit-table">`)
	b.WriteString(row("رقم المشروع بالبنك", p.ProjectNumber))
	b.WriteString(row("رقم المشروع البلدية", p.MunicipalProjectNumber))
	b.WriteString(row("اسم المالك", p.ClientName))
	b.WriteString(row("اسم الاستشاري", p.ConsultantName))
	b.WriteString(row("اسم المقاول", p.Contractor))
	b.WriteString(row("موقع المشروع", p.Location))
	b.WriteString(`<tr><td class="label-cell">مدة التنفيذ</td><td class="colon-cell">:</td><td class="duration-cell">` +
		`<table class="duration-table">` +
		`<tr><td class="duration-header">بداية المشروع</td><td class="duration-header">نهاية المشروع</td></tr>` +
		fmt.Sprintf(`<tr><td class="duration-value">%s</td><td class="duration-value">%s</td></tr>`,
			formatArabicDate(p.StartDate), formatArabicDate(p.ExpectedEndDate)) +
		`</table></td></tr>`)
	b.WriteString(row("مكونات المشروع", p.Description))
	b.WriteString(`</table>`)
	if s.IncludeSignatures {
		b.WriteString(fmt.Sprintf(`<div class="signature-section"><p class="signature-intro">تمت زيارة الموقع المذكور بياناته أعلاه بتاريخ %s بحضور كل من</p><div class="signature-lines">`,
			formatArabicDateLong(now)))
		for i := 0; i < 3; i++ {
			b.WriteString(`<div class="signature-line"><span>السيد :</span><span>بصفته</span></div>`)
		}
		b.WriteString(`</div></div>`)
	}
	b.WriteString(`</div></div>`)
	return b.String()
}

// buildSummaryDashboard renders the main report page: cover image,
// visit header, general notes and the category completion table.
func buildSummaryDashboard(p domain.Project, s Settings, now time.Time) string {
	rate := metrics.CompletionRate(p)
	visit := latestVisit(p)
	inspector := "مهندس الموقع"
	if visit != nil && visit.Inspector != "" {
		inspector = visit.Inspector
	}

	var b strings.Builder
	b.WriteString(`<div class="page main-report-page">`)
	b.WriteString(`<div class="report-header"><div class="header-left">`)
	if s.IncludeCoverImage && p.CoverImage != "" {
		b.WriteString(fmt.Sprintf(`<img src="%s" alt="صورة المشروع" class="project-main-image" />`, esc(p.CoverImage)))
	} else {
		b.WriteString(`<div class="no-image-placeholder"><div class="placeholder-icon">📷</div><div class="placeholder-text">صورة المشروع</div></div>`)
	}
	b.WriteString(`</div><div class="header-right"><div class="header-info">`)
	if s.LogoURI != "" {
		b.WriteString(fmt.Sprintf(`<div class="logo-section"><img src="%s" alt="%s" class="company-logo" /></div>`, esc(s.LogoURI), esc(s.Company.Name)))
	} else if s.Company.Name != "" {
		b.WriteString(fmt.Sprintf(`<div class="logo-section company-name">%s</div>`, esc(s.Company.Name)))
	}
	b.WriteString(fmt.Sprintf(`<div class="report-date">توقيت الزيارة: %s<br/>%s</div>`, formatArabicTime(now), formatArabicDateLong(now)))
	b.WriteString(fmt.Sprintf(`<div class="responsible-person">مسؤول زيارة الموقع<br/>%s</div>`, esc(inspector)))
	b.WriteString(fmt.Sprintf(`<div class="project-details"><div class="detail-row">الاستشاري<br/>%s</div><div class="contractor-name">المقاول<br/>%s</div></div>`,
		esc(p.ConsultantName), esc(p.Contractor)))
	b.WriteString(`</div></div></div>`)

	b.WriteString(`<h1 class="report-main-title">تقرير فني لضمان جودة الأعمال في الموقع</h1>`)
	b.WriteString(fmt.Sprintf(`<h2 class="project-identifier">%s - %s</h2>`, esc(p.ProjectNumber), esc(p.ClientName)))

	b.WriteString(`<div class="main-content"><div class="notes-section"><h3 class="section-heading">ملاحظات عامة</h3><div class="general-notes">`)
	b.WriteString(fmt.Sprintf(`<p>لقد قمنا بزيارة الموقع يوم %s من قبل %s وقد</p><p>لوحظ ما يلي</p>`, formatArabicDateLong(now), esc(inspector)))
	if visit != nil && visit.Notes != "" {
		b.WriteString(fmt.Sprintf(`<p>%s</p>`, esc(visit.Notes)))
	}
	b.WriteString(`</div></div>`)

	b.WriteString(`<div class="progress-section"><div class="progress-header">`)
	b.WriteString(fmt.Sprintf(`<div class="completion-percentage">%.2f %%</div><div class="progress-label">نسبة الإنجاز</div></div>`, rate))
	b.WriteString(`<table class="progress-summary-table"><tr><th class="progress-header-cell">نسبة الإنجاز</th><th class="category-header-cell">الفئة</th></tr>`)
	for _, row := range metrics.CategoryProgress() {
		b.WriteString(fmt.Sprintf(`<tr><td class="progress-value">%.2f %%</td><td class="category-name">%s</td></tr>`,
			row.Current, categoryName(row.Key)))
	}
	b.WriteString(`</table></div></div></div>`)
	return b.String()
}

var categoryNames = map[string]string{
	"sitePreparation": "تجهيز الموقع",
	"foundationWork":  "أعمال الأساسات",
	"concreteWork":    "الخرسانة",
	"structuralWork":  "أعمال الطوابق",
	"wallWork":        "أعمال الجدران",
	"finishingWork":   "التشطيبات",
	"electricalWork":  "أعمال الكهرباء",
	"plumbingWork":    "الأعمال الصحية",
	"tilingWork":      "أعمال التبليط",
	"paintingWork":    "أعمال الدهانات",
	"landscaping":     "تنسيق الموقع",
}

func categoryName(key string) string {
	if n, ok := categoryNames[key]; ok {
		return n
	}
	return key
}

// Fixed framing for the three observation slots: the work area, the
// elements under review and the required correction. The narrative
// line comes from settings.
var observationSlots = []struct {
	category   string
	elements   string
	correction string
}{
	{
		category:   "الطابق الأول",
		elements:   "أعمال الحديد والقوالب والصب لأرضية الطابق الأول",
		correction: "يوصى بمراجعة المقاول لمعالجة الشقوق وذلك باستخدام المواد والطريقة المعتمدة",
	},
	{
		category:   "الطابق الأول",
		elements:   "أعمال الحديد والقوالب لأعمدة الطابق الأول",
		correction: "المقاول ولم يتم وجود مخالفات",
	},
	{
		category:   "الأعمال الخارجية",
		elements:   "أعمال الحديد والقوالب والصب لقواعد السور",
		correction: "يوصى بمراجعة المقاول لتنظيف الموقع قبل إنهاء أعمال الخرسانة للسور",
	},
}

// buildObservations renders the observations page: three slots pairing
// narrative copy with the first task photos, placeholders when absent.
func buildObservations(p domain.Project, s Settings) string {
	var withImages []domain.Task
	for _, t := range p.Tasks {
		if t.ImageURI != "" {
			withImages = append(withImages, t)
		}
	}
	narrative := s.Observations
	if len(narrative) == 0 {
		narrative = DefaultObservations()
	}

	var b strings.Builder
	b.WriteString(`<div class="page observations-page"><h1 class="page-title">ملاحظات زيارة الموقع</h1>`)
	for i, slot := range observationSlots {
		text := ""
		if i < len(narrative) {
			text = narrative[i]
		}
		b.WriteString(`<div class="observation-item"><div class="observation-text">`)
		b.WriteString(fmt.Sprintf(`<div class="category-header"><h3 class="category-title">%s</h3></div>`, slot.category))
		b.WriteString(`<div class="observation-content">`)
		b.WriteString(fmt.Sprintf(`<h4 class="sub-category">العناصر الخاضعة للمراجعة</h4><p class="review-elements">%s</p>`, slot.elements))
		b.WriteString(fmt.Sprintf(`<h4 class="sub-category">ملاحظات</h4><p class="observations-text">%s</p>`, esc(text)))
		b.WriteString(fmt.Sprintf(`<h4 class="sub-category">التصحيح المطلوب</h4><p class="required-correction">%s</p>`, slot.correction))
		b.WriteString(`</div></div><div class="observation-image">`)
		if i < len(withImages) {
			b.WriteString(fmt.Sprintf(`<img src="%s" alt="صورة الملاحظة" class="task-observation-image" />`, esc(withImages[i].ImageURI)))
		} else {
			b.WriteString(`<div class="placeholder-image"><div class="placeholder-icon">📸</div><div class="placeholder-text">صورة الملاحظة</div></div>`)
		}
		b.WriteString(`</div></div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// Fixed line items for the two detailed progress tables.
var progressDetails = []struct {
	key   string
	note  string
	items []struct {
		current  float64
		previous float64
		desc     string
	}
}{
	{
		key:  "sitePreparation",
		note: "",
		items: []struct {
			current  float64
			previous float64
			desc     string
		}{
			{100, 0, "سياج مؤقت"},
			{100, 0, "لوحة المشروع"},
			{100, 0, "إمدادات الكهرباء والمياه المؤقتة"},
		},
	},
	{
		key:  "foundationWork",
		note: "تم الانتهاء من أعمال الردم في الجزء المحيط لقاعدة الفيلا",
		items: []struct {
			current  float64
			previous float64
			desc     string
		}{
			{100, 0, "أعمال الحفر"},
			{100, 0, "أعمال الأساسات أو الرباط"},
			{100, 0, "أقطاب الارتباط وقوائم الأعمدة"},
			{100, 0, "الجسور الأرضية"},
			{80, 0, "أعمال الردم"},
			{100, 0, "خرسانة أرضية الطابق الأرضي"},
		},
	},
}

// buildProgressTables renders the per-category detailed progress
// tables comparing the current reading against the previous visit.
func buildProgressTables(p domain.Project) string {
	rate := metrics.CompletionRate(p)
	current := map[string]float64{}
	for _, row := range metrics.CategoryProgress() {
		current[row.Key] = row.Current
	}

	var b strings.Builder
	b.WriteString(`<div class="page progress-tables-page">`)
	b.WriteString(fmt.Sprintf(`<div class="overall-progress-header"><div class="overall-percentage">%.2f %%</div><div class="overall-label">نسبة الإنجاز</div></div>`, rate))
	for _, section := range progressDetails {
		b.WriteString(`<div class="category-progress-section"><div class="category-progress-header">`)
		b.WriteString(fmt.Sprintf(`<div class="category-progress-percentage">%.2f %%</div><div class="category-progress-title">%s</div></div>`,
			current[section.key], categoryName(section.key)))
		b.WriteString(`<table class="detailed-progress-table"><tr><th class="current-visit-header">زيارة الموقع - 3 أشهر</th><th class="previous-visit-header">زيارة الموقع السابقة</th><th class="description-header">الوصف</th></tr>`)
		for _, item := range section.items {
			b.WriteString(fmt.Sprintf(`<tr><td class="current-progress">%.2f %%</td><td class="previous-progress">%.2f %%</td><td class="work-description">%s</td></tr>`,
				item.current, item.previous, item.desc))
		}
		b.WriteString(`</table>`)
		b.WriteString(fmt.Sprintf(`<div class="notes-line">ملاحظات: %s</div></div>`, section.note))
	}
	b.WriteString(`</div>`)
	return b.String()
}

var evaluationRated = []string{
	"جودة أعمال الخرسانة والردم",
	"جودة أعمال الحديد",
	"جودة الأعمال الإنشائية",
	"الصحة والسلامة وجودة المرافق",
	"أعمال الطوابق",
}

var evaluationUnavailable = []string{
	"أعمال الطوابق",
	"أعمال الجدران",
	"الهيكل الداخلي",
	"الهيكل والواجهات الخارجية",
	"أعمال الكهرباء",
	"أعمال التكييف",
	"أعمال التبليط والبلاط والسيراميك",
	"الخدمات المساندة",
	"الأثاث",
	"الألمونيوم والزجاج",
}

// buildEvaluation renders the qualitative evaluation grid with the
// three-level rating legend.
func buildEvaluation() string {
	circles := `<div class="rating-circles"><div class="rating-circle red">1</div><div class="rating-circle orange">2</div><div class="rating-circle green">3</div></div>`

	var b strings.Builder
	b.WriteString(`<div class="page evaluation-page">`)
	b.WriteString(`<div class="evaluation-header"><h1 class="evaluation-title">التقييم</h1><div class="evaluation-status">غير متوفر</div></div>`)
	b.WriteString(`<div class="evaluation-legend">`)
	b.WriteString(`<div class="legend-item"><div class="legend-circle red">1</div><span class="legend-text">مستوى العمل غير مرضي ويحتاج إلى التحسين</span></div>`)
	b.WriteString(`<div class="legend-item"><div class="legend-circle orange">2</div><span class="legend-text">مستوى العمل جيد مع وجود نقاط يمكن تحسينها</span></div>`)
	b.WriteString(`<div class="legend-item"><div class="legend-circle green">3</div><span class="legend-text">مستوى العمل جيد جداً وفقاً لمعايير المخططات والمواصفات المعتمدة والمتفق عليها</span></div>`)
	b.WriteString(`</div>`)
	b.WriteString(`<table class="evaluation-table"><tr><th class="rating-header">تصنيف التقييم</th><th class="description-header">الوصف</th></tr>`)
	for _, desc := range evaluationRated {
		b.WriteString(fmt.Sprintf(`<tr><td class="rating-cell">%s</td><td class="description-cell">%s</td></tr>`, circles, desc))
	}
	for _, desc := range evaluationUnavailable {
		b.WriteString(fmt.Sprintf(`<tr><td class="not-available">غير متوفر</td><td class="description-cell">%s</td></tr>`, desc))
	}
	b.WriteString(fmt.Sprintf(`<tr><td class="rating-cell">%s</td><td class="description-cell">التقييم الكلي</td></tr>`, circles))
	b.WriteString(`</table></div>`)
	return b.String()
}
