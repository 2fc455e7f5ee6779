package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"siteline/internal/report"
)

// Config models siteline.yml: the issuing organization's identity and
// the report defaults seeded into the settings blob.
type Config struct {
	Organization struct {
		Name           string `yaml:"name"`
		ConsultantName string `yaml:"consultant_name"`
		Address        string `yaml:"address"`
		Phone          string `yaml:"phone"`
		Email          string `yaml:"email"`
		Website        string `yaml:"website"`
		LogoURI        string `yaml:"logo_uri"`
	} `yaml:"organization"`
	Report report.Settings `yaml:"report"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with sl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Report.ReportLanguage != "" && c.Report.ReportLanguage != "ar" {
		return fmt.Errorf("config.report.report_language must be 'ar'")
	}
	switch c.Report.PageLayout {
	case "", "portrait", "landscape":
	default:
		return fmt.Errorf("config.report.page_layout must be 'portrait' or 'landscape'")
	}
	switch c.Report.ReportFormat {
	case "", "comprehensive", "summary", "executive", "site-visit":
	default:
		return fmt.Errorf("config.report.report_format must be one of comprehensive, summary, executive, site-visit")
	}
	return nil
}

// ReportSettings merges the organization identity into the report
// defaults.
func (c *Config) ReportSettings() report.Settings {
	s := c.Report
	if s.Company.Name == "" {
		s.Company = report.CompanyInfo{
			Name:    c.Organization.Name,
			Address: c.Organization.Address,
			Phone:   c.Organization.Phone,
			Email:   c.Organization.Email,
			Website: c.Organization.Website,
		}
	}
	if s.LogoURI == "" {
		s.LogoURI = c.Organization.LogoURI
	}
	if len(s.Observations) == 0 {
		s.Observations = report.DefaultObservations()
	}
	return s
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "siteline.yml")
}

// Default returns the built-in defaults.
func Default() *Config {
	cfg := &Config{Report: report.DefaultSettings()}
	cfg.Organization.ConsultantName = "أكاد للاستشارات الهندسية - شركة التفحص الواحد م.م"
	return cfg
}

// GenerateDefault returns default config YAML for sl config init.
func GenerateDefault(orgName string) string {
	return fmt.Sprintf(defaultTemplate, orgName)
}

const defaultTemplate = `organization:
  name: %s
  consultant_name: "أكاد للاستشارات الهندسية - شركة التفحص الواحد م.م"
  address: ""
  phone: ""
  email: ""
  website: ""
  logo_uri: ""

report:
  include_cover_image: true
  include_task_images: true
  include_progress_charts: true
  include_quality_assessment: true
  include_safety_notes: true
  include_recommendations: true
  include_custom_fields: true
  include_team_info: true
  include_financials: true
  include_signatures: true
  include_qr_code: false
  report_language: ar
  report_format: site-visit
  page_layout: portrait
`
