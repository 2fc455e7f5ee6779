package report

// CompanyInfo is the issuing-organization block printed on reports.
type CompanyInfo struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address,omitempty" yaml:"address"`
	Phone   string `json:"phone,omitempty" yaml:"phone"`
	Email   string `json:"email,omitempty" yaml:"email"`
	Website string `json:"website,omitempty" yaml:"website"`
}

// Watermark is an optional overlay printed across every page.
type Watermark struct {
	Text    string  `json:"text" yaml:"text"`
	Opacity float64 `json:"opacity" yaml:"opacity"`
}

// Settings controls which sections a composed report carries and how
// the document is laid out. Zero flags mean "omit the section".
type Settings struct {
	IncludeCoverImage        bool `json:"include_cover_image" yaml:"include_cover_image"`
	IncludeTaskImages        bool `json:"include_task_images" yaml:"include_task_images"`
	IncludeProgressCharts    bool `json:"include_progress_charts" yaml:"include_progress_charts"`
	IncludeQualityAssessment bool `json:"include_quality_assessment" yaml:"include_quality_assessment"`
	IncludeSafetyNotes       bool `json:"include_safety_notes" yaml:"include_safety_notes"`
	IncludeRecommendations   bool `json:"include_recommendations" yaml:"include_recommendations"`
	IncludeCustomFields      bool `json:"include_custom_fields" yaml:"include_custom_fields"`
	IncludeTeamInfo          bool `json:"include_team_info" yaml:"include_team_info"`
	IncludeFinancials        bool `json:"include_financials" yaml:"include_financials"`
	IncludeSignatures        bool `json:"include_signatures" yaml:"include_signatures"`
	IncludeQRCode            bool `json:"include_qr_code" yaml:"include_qr_code"`

	ReportLanguage string `json:"report_language" yaml:"report_language"`
	ReportFormat   string `json:"report_format" yaml:"report_format" enum:"comprehensive,summary,executive,site-visit"`
	PageLayout     string `json:"page_layout" yaml:"page_layout" enum:"portrait,landscape"`
	FontFamily     string `json:"font_family,omitempty" yaml:"font_family"`

	LogoURI   string      `json:"logo_uri,omitempty" yaml:"logo_uri"`
	Company   CompanyInfo `json:"company,omitempty" yaml:"company"`
	Watermark *Watermark  `json:"watermark,omitempty" yaml:"watermark"`

	// Observations is the canned narrative copy paired with task
	// photos in the observations section.
	Observations []string `json:"observations,omitempty" yaml:"observations"`
}

// DefaultSettings returns the site-visit report defaults: every
// section enabled, Arabic portrait layout, stock narrative copy.
func DefaultSettings() Settings {
	return Settings{
		IncludeCoverImage:        true,
		IncludeTaskImages:        true,
		IncludeProgressCharts:    true,
		IncludeQualityAssessment: true,
		IncludeSafetyNotes:       true,
		IncludeRecommendations:   true,
		IncludeCustomFields:      true,
		IncludeTeamInfo:          true,
		IncludeFinancials:        true,
		IncludeSignatures:        true,
		IncludeQRCode:            false,
		ReportLanguage:           "ar",
		ReportFormat:             "site-visit",
		PageLayout:               "portrait",
		Observations:             DefaultObservations(),
	}
}

// DefaultObservations returns the stock inspection narrative lines.
func DefaultObservations() []string {
	return []string{
		"تم الانتهاء من صب الخرسانة المسلحة لأرضية الطابق الأول وتبين وجود شقوق طفيفة في بعض المناطق",
		"تم الانتهاء من أعمال الحديد والقوالب لأعمدة الطابق الأول وتم الحصول على موافقة المراجع ولم يتم وجود مخالفات المحاور ولم يتم وجود مخالفات",
		"تم الانتهاء من أعمال الخرسانة المسلحة لقواعد السور وتبين جمع بقايا الحديد بشكل ملائم حتى الآن",
	}
}
