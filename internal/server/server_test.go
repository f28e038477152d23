package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Artem7898/ai-decision-simulator/internal/marketdata"
	"github.com/Artem7898/ai-decision-simulator/internal/observability"
	"github.com/Artem7898/ai-decision-simulator/internal/projection"
	"github.com/Artem7898/ai-decision-simulator/internal/runner"
	"github.com/Artem7898/ai-decision-simulator/internal/store"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"go.uber.org/zap"
)

const uploadConfig = `simulation:
  timeHorizonYears: 3
  sampleCount: 100
  seed: 99
decisions:
  - name: cars
    active: true
    type: purchase
    factors:
      options: [Hatchback, Hybrid SUV]
  - name: portfolio
    active: true
    type: investment
    query: "stocks or bonds with $15,000"
  - name: parked
    active: false
    type: job
`

type testServer struct {
	handler http.Handler
	store   *store.Store
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, maxUploadSize int64) testServer {
	t.Helper()

	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"), nil)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	metrics := observability.NewRegistryMetrics("test")
	svc := runner.NewService(zap.NewNop(), runner.Options{
		Store:    s,
		Provider: marketdata.NewReferenceProvider(),
		Metrics:  metrics,
		Defaults: projection.RunConfig{TimeHorizonYears: 5, SampleCount: 200},
	})

	handler := NewHandler(zap.NewNop(), svc, Options{
		Runs:          s,
		Metrics:       metrics,
		MaxUploadSize: maxUploadSize,
		Version:       "1.2.3",
	})
	return testServer{handler: handler, store: s, metrics: metrics}
}

func performJSON(t *testing.T, handler http.Handler, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func performUpload(t *testing.T, handler http.Handler, content, filename string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/simulate/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response: %v\n%s", err, rr.Body.String())
	}
}

func TestHandleSimulateSuccess(t *testing.T) {
	srv := newTestServer(t, constants.DefaultMaxUploadSizeBytes)

	rr := performJSON(t, srv.handler, http.MethodPost, "/api/simulate", map[string]interface{}{
		"name":          "retirement",
		"decision_type": "investment",
		"factors":       map[string]interface{}{"options": []string{"stocks", "bonds"}, "amount": 20000},
		"seed":          2024,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}

	var result runner.Result
	decodeBody(t, rr, &result)
	if result.Status != store.StatusCompleted {
		t.Fatalf("expected completed run, got %s", result.Status)
	}
	if result.RunID == "" {
		t.Fatal("expected a run id for a persisted run")
	}
	if result.Seed != 2024 {
		t.Fatalf("expected seed 2024, got %d", result.Seed)
	}
	if result.Output == nil || len(result.Output.MonteCarlo) != 2 {
		t.Fatalf("expected Monte Carlo summaries for both options, got %+v", result.Output)
	}
	if *result.Output.Metadata.InitialAmount != 20000 {
		t.Fatalf("expected initial amount 20000, got %v", *result.Output.Metadata.InitialAmount)
	}
}

func TestHandleSimulateErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantRunID  bool
	}{
		{
			name:       "unsupported decision type",
			body:       `{"decision_type":"lottery"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed factors",
			body:       `{"decision_type":"job","factors":{"options":"A"}}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantRunID:  true,
		},
		{
			name:       "invalid run config",
			body:       `{"decision_type":"job","factors":{"options":["A"]},"sample_count":-5}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantRunID:  true,
		},
		{
			name:       "invalid JSON",
			body:       `{"decision_type":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, constants.DefaultMaxUploadSizeBytes)

			req := httptest.NewRequest(http.MethodPost, "/api/simulate", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			srv.handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}

			var resp map[string]interface{}
			decodeBody(t, rr, &resp)
			if _, ok := resp["error"]; !ok {
				t.Fatalf("expected an error field, got %v", resp)
			}
			id, hasID := resp["run_id"].(string)
			if hasID != tt.wantRunID {
				t.Fatalf("run id present = %v, expected %v", hasID, tt.wantRunID)
			}
			if tt.wantRunID {
				run, err := srv.store.GetRun(context.Background(), id)
				if err != nil {
					t.Fatalf("GetRun() error = %v", err)
				}
				if run.Status != store.StatusFailed {
					t.Fatalf("expected failed run to be recorded, got %s", run.Status)
				}
			}
		})
	}
}

func TestHandleBatch(t *testing.T) {
	srv := newTestServer(t, constants.DefaultMaxUploadSizeBytes)

	rr := performJSON(t, srv.handler, http.MethodPost, "/api/simulate/batch", map[string]interface{}{
		"requests": []map[string]interface{}{
			{"name": "jobs", "decision_type": "job", "factors": map[string]interface{}{"options": []string{"A", "B"}}, "seed": 1},
			{"name": "broken", "decision_type": "lottery"},
			{"name": "move", "decision_type": "relocation", "query": "Berlin or London on a salary of $80,000", "seed": 2},
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp batchResponse
	decodeBody(t, rr, &resp)
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	wantStatus := []store.Status{store.StatusCompleted, store.StatusFailed, store.StatusCompleted}
	for i, want := range wantStatus {
		if resp.Results[i].Status != want {
			t.Fatalf("result %d status = %s, expected %s (%s)", i, resp.Results[i].Status, want, resp.Results[i].Error)
		}
	}
	if resp.CSV == "" || !strings.Contains(resp.CSV, `"move","relocation","Berlin"`) {
		t.Fatalf("expected CSV rows for the relocation decision, got:\n%s", resp.CSV)
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
}

func TestHandleBatchEmpty(t *testing.T) {
	srv := newTestServer(t, constants.DefaultMaxUploadSizeBytes)

	rr := performJSON(t, srv.handler, http.MethodPost, "/api/simulate/batch", map[string]interface{}{"requests": []interface{}{}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleUploadSuccess(t *testing.T) {
	srv := newTestServer(t, constants.DefaultMaxUploadSizeBytes)

	rr := performUpload(t, srv.handler, uploadConfig, "config.yaml")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp batchResponse
	decodeBody(t, rr, &resp)
	if len(resp.Results) != 2 {
		t.Fatalf("expected the two active decisions to run, got %d", len(resp.Results))
	}
	if resp.Results[0].Name != "cars" || resp.Results[1].Name != "portfolio" {
		t.Fatalf("unexpected result order: %s, %s", resp.Results[0].Name, resp.Results[1].Name)
	}
	for _, result := range resp.Results {
		if result.Status != store.StatusCompleted {
			t.Fatalf("decision %s status = %s: %s", result.Name, result.Status, result.Error)
		}
		if result.Seed != 99 {
			t.Fatalf("decision %s should inherit seed 99, got %d", result.Name, result.Seed)
		}
		if result.Output.Metadata.TimeHorizonYears != 3 {
			t.Fatalf("decision %s should inherit a 3 year horizon, got %d", result.Name, result.Output.Metadata.TimeHorizonYears)
		}
	}
	if *resp.Results[1].Output.Metadata.InitialAmount != 15000 {
		t.Fatalf("expected the query amount to be used, got %v", *resp.Results[1].Output.Metadata.InitialAmount)
	}
}

func TestHandleUploadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid YAML", content: "decisions: [\n"},
		{name: "unknown decision type", content: "decisions:\n  - name: lottery\n    active: true\n    type: lottery\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, constants.DefaultMaxUploadSizeBytes)
			rr := performUpload(t, srv.handler, tt.content, "config.yaml")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandleUploadMissingFile(t *testing.T) {
	srv := newTestServer(t, constants.DefaultMaxUploadSizeBytes)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("other", "value"); err != nil {
		t.Fatalf("failed to write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/simulate/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "missing configuration file") {
		t.Fatalf("unexpected error body: %s", rr.Body.String())
	}
}

func TestHandleUploadTooLarge(t *testing.T) {
	srv := newTestServer(t, 1024)

	large := uploadConfig + "# " + strings.Repeat("x", 4096) + "\n"
	rr := performUpload(t, srv.handler, large, "config.yaml")
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleSimulateTooLarge(t *testing.T) {
	srv := newTestServer(t, 64)

	rr := performJSON(t, srv.handler, http.MethodPost, "/api/simulate", map[string]interface{}{
		"decision_type": "job",
		"query":         strings.Repeat("offer ", 50),
	})
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleRuns(t *testing.T) {
	srv := newTestServer(t, constants.DefaultMaxUploadSizeBytes)

	for _, payload := range []map[string]interface{}{
		{"name": "a", "decision_type": "job", "factors": map[string]interface{}{"options": []string{"A"}}},
		{"name": "b", "decision_type": "purchase", "factors": map[string]interface{}{"options": []string{"A"}}},
		{"name": "c", "decision_type": "job", "factors": map[string]interface{}{"options": "A"}},
	} {
		performJSON(t, srv.handler, http.MethodPost, "/api/simulate", payload)
	}

	rr := performJSON(t, srv.handler, http.MethodGet, "/api/runs?decision_type=job", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var list struct {
		Runs []store.Run `json:"runs"`
	}
	decodeBody(t, rr, &list)
	if len(list.Runs) != 2 {
		t.Fatalf("expected 2 job runs, got %d", len(list.Runs))
	}

	rr = performJSON(t, srv.handler, http.MethodGet, "/api/runs?status=completed&limit=1", nil)
	decodeBody(t, rr, &list)
	if len(list.Runs) != 1 || list.Runs[0].Status != store.StatusCompleted {
		t.Fatalf("expected one completed run, got %+v", list.Runs)
	}

	id := list.Runs[0].ID
	rr = performJSON(t, srv.handler, http.MethodGet, "/api/runs/"+id, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var run store.Run
	decodeBody(t, rr, &run)
	if run.ID != id || len(run.Result) == 0 {
		t.Fatalf("expected run %s with a result, got %+v", id, run)
	}

	rr = performJSON(t, srv.handler, http.MethodGet, "/api/runs/does-not-exist", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	for _, query := range []string{"decision_type=lottery", "limit=0", "limit=abc"} {
		rr = performJSON(t, srv.handler, http.MethodGet, "/api/runs?"+query, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected status 400, got %d", query, rr.Code)
		}
	}
}

func TestHandleRunsWithoutStore(t *testing.T) {
	svc := runner.NewService(zap.NewNop(), runner.Options{})
	handler := NewHandler(zap.NewNop(), svc, Options{})

	for _, path := range []string{"/api/runs", "/api/runs/abc"} {
		rr := performJSON(t, handler, http.MethodGet, path, nil)
		if rr.Code != http.StatusNotImplemented {
			t.Fatalf("%s: expected status 501, got %d", path, rr.Code)
		}
	}
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(t, constants.DefaultMaxUploadSizeBytes)

	rr := performJSON(t, srv.handler, http.MethodGet, "/api/version", nil)
	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["version"] != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", resp["version"])
	}

	handler := NewHandler(nil, runner.NewService(nil, runner.Options{}), Options{Version: "  "})
	rr = performJSON(t, handler, http.MethodGet, "/api/version", nil)
	decodeBody(t, rr, &resp)
	if resp["version"] != "dev" {
		t.Fatalf("expected blank version to default to dev, got %q", resp["version"])
	}
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, constants.DefaultMaxUploadSizeBytes)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/simulate"},
		{http.MethodGet, "/api/simulate/batch"},
		{http.MethodGet, "/api/simulate/upload"},
		{http.MethodPost, "/api/runs"},
		{http.MethodDelete, "/api/runs/abc"},
		{http.MethodPost, "/api/version"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rr := httptest.NewRecorder()
		srv.handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected status 405, got %d", tt.method, tt.path, rr.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, constants.DefaultMaxUploadSizeBytes)

	performJSON(t, srv.handler, http.MethodPost, "/api/simulate", map[string]interface{}{
		"decision_type": "job",
		"factors":       map[string]interface{}{"options": []string{"A"}},
	})
	performJSON(t, srv.handler, http.MethodPost, "/api/simulate", map[string]interface{}{"decision_type": "lottery"})

	rr := performJSON(t, srv.handler, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`test_http_requests_total{code="2xx",route="/api/simulate"} 1`,
		`test_http_requests_total{code="4xx",route="/api/simulate"} 1`,
		`test_runs_total{decision_type="job",status="completed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q\n%s", want, body)
		}
	}
}
