package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"siteline/internal/domain"
	"siteline/internal/export"
	"siteline/internal/metrics"
	"siteline/internal/report"
	"siteline/internal/store"
)

// Config for the HTTP API handler.
type Config struct {
	Store     *store.Store
	Composer  report.Composer
	Settings  report.Settings
	Exporter  export.Exporter
	ExportDir string
	BasePath  string
	Auth      AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"project project_123: not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Siteline API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("server: store is required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Siteline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerProjects(group, cfg.Store)
	registerTasks(group, cfg.Store)
	registerSiteVisits(group, cfg.Store)
	registerMetrics(group, cfg.Store)
	registerReport(group, cfg)
	registerData(group, cfg.Store)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "snapshot"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Siteline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerProjects(api huma.API, s *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Name) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		p, err := s.CreateProject(ctx, input.Body.draft())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List, search or filter projects",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Q             string  `query:"q"`
		Status        string  `query:"status"`
		Contractor    string  `query:"contractor"`
		ProjectType   string  `query:"project_type"`
		MinCompletion float64 `query:"min_completion" minimum:"0" maximum:"100" default:"0"`
		MaxCompletion float64 `query:"max_completion" minimum:"0" maximum:"100" default:"100"`
		CreatedAfter  string  `query:"created_after"`
		CreatedBefore string  `query:"created_before"`
	}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		var items []domain.Project
		// The full 0-100 range means completion is not being filtered.
		completionFiltered := input.MinCompletion > 0 || input.MaxCompletion < 100
		filtered := input.Status != "" || input.Contractor != "" || input.ProjectType != "" ||
			completionFiltered || input.CreatedAfter != "" || input.CreatedBefore != ""
		switch {
		case input.Q != "":
			items = s.Search(input.Q)
		case filtered:
			f := domain.ProjectFilter{
				Status:      input.Status,
				Contractor:  input.Contractor,
				ProjectType: input.ProjectType,
			}
			if completionFiltered {
				f.CompletionRange = &domain.FloatRange{Min: input.MinCompletion, Max: input.MaxCompletion}
			}
			if input.CreatedAfter != "" || input.CreatedBefore != "" {
				f.CreatedRange = &domain.DateRange{Start: input.CreatedAfter, End: input.CreatedBefore}
			}
			items = s.Filter(f)
		default:
			items = s.List()
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		p, err := s.Get(input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Update project",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string              `path:"project_id"`
		Body      domain.ProjectPatch `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		p, err := s.UpdateProject(ctx, input.ProjectID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}",
		Summary:     "Delete project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct{}, error) {
		if err := s.DeleteProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTasks(api huma.API, s *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/tasks",
		Summary:       "Add task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string            `path:"project_id"`
		Body      CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Title) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		if input.Body.Phase != "" && !domain.ValidPhaseKey(input.Body.Phase) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid phase", map[string]any{"phase": input.Body.Phase})
		}
		t, err := s.AddTask(ctx, input.ProjectID, input.Body.draft())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/tasks",
		Summary:     "List tasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		p, err := s.Get(input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: p.Tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/tasks/{task_id}",
		Summary:     "Update task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string           `path:"project_id"`
		TaskID    string           `path:"task_id"`
		Body      domain.TaskPatch `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if input.Body.Phase != nil && !domain.ValidPhaseKey(*input.Body.Phase) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid phase", map[string]any{"phase": *input.Body.Phase})
		}
		t, err := s.UpdateTask(ctx, input.ProjectID, input.TaskID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-task",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/tasks/{task_id}/toggle",
		Summary:     "Toggle task completion",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		TaskID    string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		p, err := s.Get(input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		var current *domain.Task
		for i := range p.Tasks {
			if p.Tasks[i].ID == input.TaskID {
				current = &p.Tasks[i]
				break
			}
		}
		if current == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", fmt.Sprintf("task %s: not found", input.TaskID), nil)
		}
		flipped := !current.Completed
		t, err := s.UpdateTask(ctx, input.ProjectID, input.TaskID, domain.TaskPatch{Completed: &flipped})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}/tasks/{task_id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		TaskID    string `path:"task_id"`
	}) (*struct{}, error) {
		if err := s.DeleteTask(ctx, input.ProjectID, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerSiteVisits(api huma.API, s *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-site-visit",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/visits",
		Summary:       "Add site visit",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string                 `path:"project_id"`
		Body      CreateSiteVisitRequest `json:"body"`
	}) (*struct {
		Body domain.SiteVisit `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Inspector) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "inspector is required", nil)
		}
		v, err := s.AddSiteVisit(ctx, input.ProjectID, input.Body.draft())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SiteVisit `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-site-visits",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/visits",
		Summary:     "List site visits",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []domain.SiteVisit `json:"body"`
	}, error) {
		p, err := s.Get(input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.SiteVisit `json:"body"`
		}{Body: p.SiteVisits}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-site-visit",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/visits/{visit_id}",
		Summary:     "Update site visit",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string                `path:"project_id"`
		VisitID   string                `path:"visit_id"`
		Body      domain.SiteVisitPatch `json:"body"`
	}) (*struct {
		Body domain.SiteVisit `json:"body"`
	}, error) {
		if input.Body.QualityRating != nil && (*input.Body.QualityRating < 1 || *input.Body.QualityRating > 5) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "quality_rating must be between 1 and 5", nil)
		}
		if input.Body.OverallProgress != nil && (*input.Body.OverallProgress < 0 || *input.Body.OverallProgress > 100) {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "overall_progress must be between 0 and 100", nil)
		}
		v, err := s.UpdateSiteVisit(ctx, input.ProjectID, input.VisitID, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SiteVisit `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-site-visit",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}/visits/{visit_id}",
		Summary:     "Delete site visit",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		VisitID   string `path:"visit_id"`
	}) (*struct{}, error) {
		if err := s.DeleteSiteVisit(ctx, input.ProjectID, input.VisitID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerMetrics(api huma.API, s *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "project-metrics",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/metrics",
		Summary:     "Project metrics",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body metrics.Summary `json:"body"`
	}, error) {
		p, err := s.Get(input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body metrics.Summary `json:"body"`
		}{Body: metrics.Summarize(p)}, nil
	})
}

func registerReport(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "generate-report",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/report",
		Summary:     "Generate site-visit report",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ProjectID string                `path:"project_id"`
		Body      GenerateReportRequest `json:"body"`
	}) (*struct {
		Body ReportResponse `json:"body"`
	}, error) {
		p, err := cfg.Store.Get(input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		doc := cfg.Composer.Compose(p, cfg.Settings)
		resp := ReportResponse{
			Title:         doc.Title,
			SuggestedName: doc.SuggestedName,
			Format:        input.Body.Format,
		}
		if resp.Format == "" {
			resp.Format = "pdf"
		}
		if resp.Format == "pdf" && cfg.Exporter != nil {
			pdf, renderErr := cfg.Exporter.Render(ctx, doc.HTML, export.DefaultPageConfig())
			if renderErr == nil {
				if input.Body.Save {
					artifact, saveErr := export.Save(cfg.ExportDir, doc.SuggestedName, "pdf", pdf)
					if saveErr != nil {
						return nil, handleError(saveErr)
					}
					resp.Path = artifact
				}
				return &struct {
					Body ReportResponse `json:"body"`
				}{Body: resp}, nil
			}
			// Degrade to raw HTML but surface the render failure.
			resp.Format = "html"
			resp.RenderError = renderErr.Error()
		}
		resp.HTML = doc.HTML
		if input.Body.Save {
			artifact, saveErr := export.Save(cfg.ExportDir, doc.SuggestedName, "html", []byte(doc.HTML))
			if saveErr != nil {
				return nil, handleError(saveErr)
			}
			resp.Path = artifact
		}
		return &struct {
			Body ReportResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func registerData(api huma.API, s *store.Store) {
	huma.Register(api, huma.Operation{
		OperationID: "export-data",
		Method:      http.MethodGet,
		Path:        "/data/export",
		Summary:     "Export snapshot",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Snapshot `json:"body"`
	}, error) {
		data, err := s.Gateway.ExportSnapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		var snap domain.Snapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Snapshot `json:"body"`
		}{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "import-data",
		Method:      http.MethodPost,
		Path:        "/data/import",
		Summary:     "Import snapshot",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body ImportRequest `json:"body"`
	}) (*struct {
		Body map[string]int `json:"body"`
	}, error) {
		if strings.TrimSpace(input.Body.Data) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "data is required", nil)
		}
		if err := s.Gateway.ImportSnapshot(ctx, input.Body.Data); err != nil {
			return nil, handleError(err)
		}
		s.Reload(ctx)
		return &struct {
			Body map[string]int `json:"body"`
		}{Body: map[string]int{"projects": len(s.List())}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "wipe-data",
		Method:      http.MethodPost,
		Path:        "/data/wipe",
		Summary:     "Wipe all data",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		if err := s.Gateway.Wipe(ctx); err != nil {
			return nil, handleError(err)
		}
		s.Reload(ctx)
		return &struct{}{}, nil
	})
}
