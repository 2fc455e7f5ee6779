package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"siteline/internal/config"
	"siteline/internal/db"
	"siteline/internal/domain"
	"siteline/internal/events"
	"siteline/internal/gateway"
	"siteline/internal/report"
	"siteline/internal/store"
)

type testServer struct {
	URL    string
	Store  *store.Store
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	gw := gateway.Gateway{KV: db.SQLKV{DB: conn}}
	st := store.New(context.Background(), gw, &events.Writer{DB: conn})
	handler, err := New(Config{
		Store:    st,
		Composer: report.Composer{},
		Settings: config.Default().ReportSettings(),
		BasePath: "/v0",
		Auth:     auth,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Store:  st,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestProjectLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects", map[string]any{
		"name":       "Villa A",
		"contractor": "Alpha Build",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, data)
	}
	var created domain.Project
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}
	if created.Status != "planning" || len(created.Phases) != 5 {
		t.Errorf("defaults not applied: %+v", created)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", res.StatusCode)
	}
	var items []domain.Project
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("list = %d items", len(items))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/projects/"+created.ID, map[string]any{
		"status": "active",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", res.StatusCode, data)
	}
	var patched domain.Project
	json.Unmarshal(data, &patched)
	if patched.Status != "active" {
		t.Errorf("status = %q", patched.Status)
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/projects/"+created.ID, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", res.StatusCode)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects/"+created.ID, nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted status %d", res.StatusCode)
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Errorf("error code = %q", envelope.Error.Code)
	}
}

func TestListFilterQuery(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects", map[string]any{
		"name":       "Villa A",
		"contractor": "Alpha Build",
	}, nil)
	var done domain.Project
	json.Unmarshal(data, &done)
	_, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+done.ID+"/tasks", map[string]any{"title": "t1"}, nil)
	var task domain.Task
	json.Unmarshal(data, &task)
	doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+done.ID+"/tasks/"+task.ID+"/toggle", nil, nil)

	doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects", map[string]any{
		"name":       "Tower B",
		"contractor": "Beta",
		"status":     "active",
	}, nil)

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects?min_completion=50", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("min_completion status %d: %s", res.StatusCode, data)
	}
	var items []domain.Project
	json.Unmarshal(data, &items)
	if len(items) != 1 || items[0].ID != done.ID {
		t.Fatalf("min_completion=50 = %+v", items)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects?max_completion=50", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("max_completion status %d: %s", res.StatusCode, data)
	}
	items = nil
	json.Unmarshal(data, &items)
	if len(items) != 1 || items[0].Name != "Tower B" {
		t.Fatalf("max_completion=50 = %+v", items)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects?status=active&contractor=beta", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("combined filter status %d: %s", res.StatusCode, data)
	}
	items = nil
	json.Unmarshal(data, &items)
	if len(items) != 1 || items[0].Name != "Tower B" {
		t.Fatalf("status+contractor = %+v", items)
	}

	// Without filters the full range must not narrow the list.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("plain list status %d", res.StatusCode)
	}
	items = nil
	json.Unmarshal(data, &items)
	if len(items) != 2 {
		t.Fatalf("plain list = %d items", len(items))
	}
}

func TestTaskToggle(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects", map[string]any{"name": "Villa A"}, nil)
	var p domain.Project
	json.Unmarshal(data, &p)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+p.ID+"/tasks", map[string]any{
		"title": "Inspect rebar",
		"phase": "foundationWork",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add task status %d: %s", res.StatusCode, data)
	}
	var task domain.Task
	json.Unmarshal(data, &task)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+p.ID+"/tasks/"+task.ID+"/toggle", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("toggle status %d: %s", res.StatusCode, data)
	}
	json.Unmarshal(data, &task)
	if !task.Completed || task.CompletedAt == nil {
		t.Fatalf("toggle did not complete: %+v", task)
	}

	_, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+p.ID+"/tasks/"+task.ID+"/toggle", nil, nil)
	json.Unmarshal(data, &task)
	if task.Completed || task.CompletedAt != nil {
		t.Fatalf("second toggle did not clear: %+v", task)
	}
}

func TestTaskValidation(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects", map[string]any{"name": "Villa A"}, nil)
	var p domain.Project
	json.Unmarshal(data, &p)

	res, _ := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+p.ID+"/tasks", map[string]any{
		"title": "",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty title status %d, want 400", res.StatusCode)
	}
}

func TestVisitValidationBounds(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects", map[string]any{"name": "Villa A"}, nil)
	var p domain.Project
	json.Unmarshal(data, &p)

	res, _ := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+p.ID+"/visits", map[string]any{
		"inspector":      "Eng. Ali",
		"quality_rating": 9,
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("rating 9 status %d, want 400", res.StatusCode)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+p.ID+"/visits", map[string]any{
		"inspector":        "Eng. Ali",
		"quality_rating":   4,
		"overall_progress": 40,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("valid visit status %d: %s", res.StatusCode, data)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects", map[string]any{"name": "Villa A"}, nil)
	var p domain.Project
	json.Unmarshal(data, &p)

	_, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+p.ID+"/tasks", map[string]any{"title": "t1"}, nil)
	var task domain.Task
	json.Unmarshal(data, &task)
	doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+p.ID+"/tasks", map[string]any{"title": "t2"}, nil)
	doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+p.ID+"/tasks/"+task.ID+"/toggle", nil, nil)

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects/"+p.ID+"/metrics", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", res.StatusCode)
	}
	var sum struct {
		TotalTasks     int     `json:"total_tasks"`
		CompletedTasks int     `json:"completed_tasks"`
		CompletionRate float64 `json:"completion_rate"`
	}
	json.Unmarshal(data, &sum)
	if sum.TotalTasks != 2 || sum.CompletedTasks != 1 || sum.CompletionRate != 50 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestReportEndpointHTML(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects", map[string]any{"name": "فيلا النخيل"}, nil)
	var p domain.Project
	json.Unmarshal(data, &p)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/"+p.ID+"/report", map[string]any{
		"format": "html",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("report status %d: %s", res.StatusCode, data)
	}
	var rep ReportResponse
	json.Unmarshal(data, &rep)
	if rep.Format != "html" || rep.HTML == "" {
		t.Fatalf("report = format %q, html %d bytes", rep.Format, len(rep.HTML))
	}
	if !strings.Contains(rep.HTML, `dir="rtl"`) {
		t.Error("report not RTL")
	}
	if !strings.Contains(rep.SuggestedName, "_تقرير_") {
		t.Errorf("suggested name = %q", rep.SuggestedName)
	}
}

func TestDataRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects", map[string]any{"name": "Villa A"}, nil)

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/data/export", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("export status %d", res.StatusCode)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.Version != "1.0" || len(snap.Projects) != 1 {
		t.Fatalf("snapshot = version %q, %d projects", snap.Version, len(snap.Projects))
	}

	res, _ = doJSON(t, client, http.MethodPost, srv.URL+"/v0/data/wipe", nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("wipe status %d", res.StatusCode)
	}
	if got := srv.Store.List(); len(got) != 0 {
		t.Fatalf("wipe left %d projects", len(got))
	}

	raw, _ := json.Marshal(snap)
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/data/import", map[string]any{
		"data": string(raw),
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("import status %d: %s", res.StatusCode, data)
	}
	if got := srv.Store.List(); len(got) != 1 || got[0].Name != "Villa A" {
		t.Fatalf("import result = %+v", got)
	}
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: secret})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status %d", res.StatusCode)
	}
	var envelope errorEnvelope
	json.Unmarshal(data, &envelope)
	if envelope.Error.Code != "unauthorized" {
		t.Errorf("error code = %q", envelope.Error.Code)
	}

	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status %d", res.StatusCode)
	}

	// Health stays open for probes.
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "inspector-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects", nil, map[string]string{
		"Authorization": "Bearer " + signed,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("valid token status %d", res.StatusCode)
	}
}
