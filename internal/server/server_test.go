package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/geoadjacency/pkg/buildinfo"
	"github.com/matzehuels/geoadjacency/pkg/observability"
	"github.com/matzehuels/geoadjacency/pkg/pipeline"
)

const (
	sourceSquare = `{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0],[0,0]]]}`
	targetSquare = `{"type":"Polygon","coordinates":[[[3,0],[3,1],[4,1],[4,0],[3,0]]]}`
	wallSquare   = `{"type":"Polygon","coordinates":[[[1.5,0],[1.5,1],[2.5,1],[2.5,0],[1.5,0]]]}`
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	s := New(pipeline.NewRunner(nil, nil, logger), logger, opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/adjacency", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["status"] != "ok" || got["version"] != buildinfo.Version {
		t.Errorf("health = %v", got)
	}
}

func TestAdjacency(t *testing.T) {
	ts := newTestServer(t)

	body := `{
	  "sources": {"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":` + sourceSquare + `}]},
	  "targets": {"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":` + targetSquare + `}]},
	  "options": {"formats": ["json", "dot"]}
	}`
	resp, data := post(t, ts, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}

	var got struct {
		RunID     string                     `json:"run_id"`
		Mapping   map[string][]int           `json:"mapping"`
		Stats     pipeline.Stats             `json:"stats"`
		Artifacts map[string]json.RawMessage `json:"artifacts"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if diff := cmp.Diff(map[string][]int{"0": {0}}, got.Mapping); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}
	if got.RunID == "" {
		t.Error("response missing run id")
	}
	if got.Stats.Pairs != 1 {
		t.Errorf("stats.pairs = %d, want 1", got.Stats.Pairs)
	}
	if !bytes.Contains(got.Artifacts["dot"], []byte(`\"s0\" -- \"t0\"`)) {
		t.Errorf("dot artifact = %s", got.Artifacts["dot"])
	}
	if !bytes.Contains(got.Artifacts["json"], []byte(`"mapping"`)) {
		t.Errorf("json artifact = %s", got.Artifacts["json"])
	}
}

func TestAdjacency_Obstacle(t *testing.T) {
	ts := newTestServer(t)

	body := `{"sources": ` + sourceSquare + `, "targets": ` + targetSquare + `, "obstacles": ` + wallSquare + `}`
	resp, data := post(t, ts, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, data)
	}
	var got struct {
		Mapping map[string][]int `json:"mapping"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Mapping) != 0 {
		t.Errorf("mapping = %v, want empty", got.Mapping)
	}
}

func TestAdjacency_Errors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed body", `{"sources":`, "INVALID_INPUT"},
		{"unknown field", `{"sourcez": null}`, "INVALID_INPUT"},
		{"bad geojson", `{"sources": {"type":"Point","coordinates":[1]}}`, "INVALID_INPUT"},
		{"bad option", `{"sources": ` + sourceSquare + `, "options": {"max_distance": -1}}`, "INVALID_CONFIG"},
		{"bad format", `{"sources": ` + sourceSquare + `, "options": {"formats": ["pdf"]}}`, "INVALID_FORMAT"},
		{"densify past site limit", `{"sources": ` + sourceSquare + `, "options": {"densify_features": true, "max_segment_length": 1e-7}}`, "INVALID_CONFIG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := post(t, ts, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", resp.StatusCode, data)
			}
			var e errorResponse
			if err := json.Unmarshal(data, &e); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if string(e.Code) != tt.code {
				t.Errorf("code = %q, want %q (message %q)", e.Code, tt.code, e.Error)
			}
			if e.Error == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestAdjacency_BodyLimit(t *testing.T) {
	ts := newTestServer(t, WithMaxBodyBytes(16))

	resp, _ := post(t, ts, `{"sources": `+sourceSquare+`}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	defer observability.Reset()
	m := NewMetrics(prometheus.NewRegistry())
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)

	ts := newTestServer(t, WithMetrics(m))
	post(t, ts, `{"sources": `+sourceSquare+`, "targets": `+targetSquare+`}`)
	post(t, ts, `{"sources": `+sourceSquare+`, "options": {"max_distance": -1}}`)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	text := string(data)

	for _, want := range []string{
		`geoadjacency_analyses_total{status="ok"} 1`,
		`geoadjacency_renders_total{format="json",status="ok"} 1`,
		`geoadjacency_http_requests_total{method="POST",route="/v1/adjacency",status="200"} 1`,
		`geoadjacency_http_requests_total{method="POST",route="/v1/adjacency",status="400"} 1`,
		`geoadjacency_pairs_count 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsNotMountedByDefault(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
