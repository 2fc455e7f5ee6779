package sitelinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Siteline HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Project represents the API project model (partial).
type Project struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Status     string      `json:"status"`
	Location   string      `json:"location"`
	Contractor string      `json:"contractor"`
	Tasks      []Task      `json:"tasks"`
	SiteVisits []SiteVisit `json:"site_visits"`
	CreatedAt  string      `json:"created_at"`
	UpdatedAt  string      `json:"updated_at"`
}

// Task represents the API task model (partial).
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Phase     string `json:"phase"`
	Priority  string `json:"priority"`
	Completed bool   `json:"completed"`
}

// SiteVisit represents the API site-visit model (partial).
type SiteVisit struct {
	ID              string `json:"id"`
	VisitDate       string `json:"visit_date"`
	Inspector       string `json:"inspector"`
	OverallProgress int    `json:"overall_progress"`
	QualityRating   int    `json:"quality_rating"`
}

// Metrics mirrors the derived metrics summary.
type Metrics struct {
	TotalTasks     int            `json:"total_tasks"`
	CompletedTasks int            `json:"completed_tasks"`
	PendingTasks   int            `json:"pending_tasks"`
	CompletionRate float64        `json:"completion_rate"`
	SiteVisits     int            `json:"site_visits"`
	ByPriority     map[string]int `json:"by_priority"`
	ByPhase        map[string]int `json:"by_phase"`
}

// Report carries a generated report artifact.
type Report struct {
	Title         string `json:"title"`
	SuggestedName string `json:"suggested_name"`
	Format        string `json:"format"`
	Path          string `json:"path,omitempty"`
	HTML          string `json:"html,omitempty"`
	RenderError   string `json:"render_error,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name string, fields map[string]any) (Project, error) {
	body := map[string]any{"name": name}
	for k, v := range fields {
		body[k] = v
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v0/projects", body, &resp)
	return resp, err
}

// ListProjects returns all projects, optionally narrowed by a search query.
func (c *Client) ListProjects(ctx context.Context, query string) ([]Project, error) {
	endpoint := "v0/projects"
	if query != "" {
		endpoint += "?q=" + url.QueryEscape(query)
	}
	var resp []Project
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetProject fetches a project by id.
func (c *Client) GetProject(ctx context.Context, id string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, c.projectPath(id, ""), nil, &resp)
	return resp, err
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.projectPath(id, ""), nil, nil)
}

// AddTask creates a task on a project.
func (c *Client) AddTask(ctx context.Context, projectID, title, phase string) (Task, error) {
	body := map[string]any{"title": title}
	if phase != "" {
		body["phase"] = phase
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, c.projectPath(projectID, "tasks"), body, &resp)
	return resp, err
}

// ToggleTask flips a task's completion state.
func (c *Client) ToggleTask(ctx context.Context, projectID, taskID string) (Task, error) {
	var resp Task
	endpoint := c.projectPath(projectID, fmt.Sprintf("tasks/%s/toggle", url.PathEscape(taskID)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// AddSiteVisit records a site visit on a project.
func (c *Client) AddSiteVisit(ctx context.Context, projectID, inspector string, fields map[string]any) (SiteVisit, error) {
	body := map[string]any{"inspector": inspector}
	for k, v := range fields {
		body[k] = v
	}
	var resp SiteVisit
	err := c.do(ctx, http.MethodPost, c.projectPath(projectID, "visits"), body, &resp)
	return resp, err
}

// ProjectMetrics returns the derived metrics for a project.
func (c *Client) ProjectMetrics(ctx context.Context, projectID string) (Metrics, error) {
	var resp Metrics
	err := c.do(ctx, http.MethodGet, c.projectPath(projectID, "metrics"), nil, &resp)
	return resp, err
}

// GenerateReport composes the Arabic field report. Format is "pdf" or
// "html"; save asks the server to persist the artifact.
func (c *Client) GenerateReport(ctx context.Context, projectID, format string, save bool) (Report, error) {
	body := map[string]any{"format": format, "save": save}
	var resp Report
	err := c.do(ctx, http.MethodPost, c.projectPath(projectID, "report"), body, &resp)
	return resp, err
}

// ExportSnapshot returns the full data snapshot as raw JSON.
func (c *Client) ExportSnapshot(ctx context.Context) (json.RawMessage, error) {
	var resp json.RawMessage
	err := c.do(ctx, http.MethodGet, "v0/data/export", nil, &resp)
	return resp, err
}

// ImportSnapshot replaces all server data with the given snapshot.
func (c *Client) ImportSnapshot(ctx context.Context, snapshot string) error {
	return c.do(ctx, http.MethodPost, "v0/data/import", map[string]any{"data": snapshot}, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(projectID, p string) string {
	base := fmt.Sprintf("v0/projects/%s", url.PathEscape(projectID))
	if p == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
