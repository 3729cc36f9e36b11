package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/chorus-cloud/chorussearch/internal/domain"
	"github.com/chorus-cloud/chorussearch/internal/repository/qdrant"
	"github.com/chorus-cloud/chorussearch/internal/usecase/health"
	searchuc "github.com/chorus-cloud/chorussearch/internal/usecase/search"
)

// --- Mocks ---

type mockSearch struct {
	results     []domain.SearchResult
	intelligent domain.IntelligentSearchResult
	events      []domain.StreamEvent
	err         error

	lastQuery    string
	lastK        int
	lastAnalysis bool
	cacheCleared bool
}

func (m *mockSearch) Search(_ context.Context, query string, k int) ([]domain.SearchResult, error) {
	m.lastQuery, m.lastK = query, k
	return m.results, m.err
}

func (m *mockSearch) IntelligentSearch(
	_ context.Context, query string, k int, includeAnalysis bool,
) (domain.IntelligentSearchResult, error) {
	m.lastQuery, m.lastK, m.lastAnalysis = query, k, includeAnalysis
	return m.intelligent, m.err
}

func (m *mockSearch) Stream(_ context.Context, query string, k int, emit searchuc.Emitter) error {
	m.lastQuery, m.lastK = query, k
	for _, e := range m.events {
		if err := emit(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSearch) ClearCache(_ context.Context) error {
	m.cacheCleared = true
	return m.err
}

type mockIngest struct {
	count int
	err   error
	got   []domain.Chorus
}

func (m *mockIngest) AddDocuments(_ context.Context, choruses []domain.Chorus) (int, error) {
	m.got = choruses
	return m.count, m.err
}

type mockHealth struct {
	report health.Report
}

func (m *mockHealth) Check(_ context.Context) health.Report { return m.report }

type mockProber struct {
	info qdrant.ProbeInfo
	err  error
}

func (m *mockProber) Probe(_ context.Context) (qdrant.ProbeInfo, error) { return m.info, m.err }

func newTestRouter(search *mockSearch, ingest *mockIngest, h *mockHealth, p *mockProber) http.Handler {
	if h == nil {
		h = &mockHealth{report: health.Report{Status: health.Healthy}}
	}
	srv := NewServer(search, ingest, h, p, 5, nil)
	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestSearch_OK(t *testing.T) {
	search := &mockSearch{results: []domain.SearchResult{
		{ID: domain.ResolvedID("c1"), Text: "amazing grace", Score: 0.9, Metadata: map[string]any{"id": "c1"}},
	}}
	r := newTestRouter(search, &mockIngest{}, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/search", `{"query":"grace","k":3}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if search.lastQuery != "grace" || search.lastK != 3 {
		t.Errorf("request not forwarded: query=%q k=%d", search.lastQuery, search.lastK)
	}

	var resp struct {
		Results []domain.SearchResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID.Value != "c1" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}

func TestSearch_DefaultK(t *testing.T) {
	search := &mockSearch{}
	r := newTestRouter(search, &mockIngest{}, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/search", `{"query":"grace"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if search.lastK != 5 {
		t.Errorf("expected default k=5, got %d", search.lastK)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	r := newTestRouter(&mockSearch{}, &mockIngest{}, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/search", `{"query":"   "}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "query is required") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestSearch_NegativeK(t *testing.T) {
	r := newTestRouter(&mockSearch{}, &mockIngest{}, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/search", `{"query":"grace","k":-1}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "k must not be negative") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestSearch_InvalidBody(t *testing.T) {
	r := newTestRouter(&mockSearch{}, &mockIngest{}, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/search", `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSearch_EmbeddingFailureMapsToBadGateway(t *testing.T) {
	search := &mockSearch{err: fmt.Errorf("embed query: %w", domain.ErrEmbeddingFailed)}
	r := newTestRouter(search, &mockIngest{}, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/search", `{"query":"grace"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "embedding_failed") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestIntelligentSearch_AnalysisDefaultsOn(t *testing.T) {
	search := &mockSearch{intelligent: domain.IntelligentSearchResult{
		AIAnalysis:         "overall analysis",
		QueryUnderstanding: "grace",
	}}
	r := newTestRouter(search, &mockIngest{}, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/search_intelligent", `{"query":"grace","k":2}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !search.lastAnalysis {
		t.Error("include_analysis must default to true")
	}

	var resp domain.IntelligentSearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.AIAnalysis != "overall analysis" {
		t.Errorf("unexpected analysis: %q", resp.AIAnalysis)
	}
}

func TestIntelligentSearch_AnalysisOptOut(t *testing.T) {
	search := &mockSearch{}
	r := newTestRouter(search, &mockIngest{}, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/search_intelligent",
		`{"query":"grace","include_analysis":false}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if search.lastAnalysis {
		t.Error("include_analysis=false must be forwarded")
	}
}

func TestAddDocuments_OK(t *testing.T) {
	ingest := &mockIngest{count: 2}
	r := newTestRouter(&mockSearch{}, ingest, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/add_documents",
		`[{"id":"c1","name":"N1","text":"t1"},{"id":"c2","name":"N2","text":"t2"}]`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(ingest.got) != 2 || ingest.got[0].ID != "c1" {
		t.Errorf("batch not forwarded: %+v", ingest.got)
	}

	var resp struct {
		Status   string `json:"status"`
		Ingested int    `json:"ingested"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Status != "ok" || resp.Ingested != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAddDocuments_StoreNotReady(t *testing.T) {
	ingest := &mockIngest{err: domain.ErrStoreNotReady}
	r := newTestRouter(&mockSearch{}, ingest, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/add_documents", `[{"id":"c1","text":"t"}]`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "store_not_ready") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestAddDocuments_IngestFailureKeepsMessage(t *testing.T) {
	ingest := &mockIngest{err: fmt.Errorf("%w: embed chorus %q: model missing", domain.ErrIngestFailed, "c1")}
	r := newTestRouter(&mockSearch{}, ingest, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/add_documents", `[{"id":"c1","text":"t"}]`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "embed chorus") {
		t.Errorf("failure detail must reach the client: %s", rec.Body.String())
	}
}

func TestClearCache_OK(t *testing.T) {
	search := &mockSearch{}
	r := newTestRouter(search, &mockIngest{}, nil, nil)

	rec := doJSON(t, r, http.MethodPost, "/clear_cache", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !search.cacheCleared {
		t.Error("cache clear not forwarded")
	}
}

func TestTestQdrant_OK(t *testing.T) {
	prober := &mockProber{info: qdrant.ProbeInfo{
		Collections: []string{"choruses"},
		ProbePoint:  "11111111-2222-3333-4444-555555555555",
	}}
	r := newTestRouter(&mockSearch{}, &mockIngest{}, nil, prober)

	rec := doJSON(t, r, http.MethodPost, "/test_qdrant", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "choruses") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestTestQdrant_ProbeFailure(t *testing.T) {
	prober := &mockProber{err: fmt.Errorf("list collections: connection refused")}
	r := newTestRouter(&mockSearch{}, &mockIngest{}, nil, prober)

	rec := doJSON(t, r, http.MethodPost, "/test_qdrant", "")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHealth_DegradedMapsTo503(t *testing.T) {
	h := &mockHealth{report: health.Report{
		Status: health.Degraded,
		Checks: map[string]health.CheckResult{"qdrant": health.CheckError},
	}}
	r := newTestRouter(&mockSearch{}, &mockIngest{}, h, nil)

	rec := doJSON(t, r, http.MethodGet, "/health", "")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp health.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Checks["qdrant"] != health.CheckError {
		t.Errorf("unexpected checks: %+v", resp.Checks)
	}
}

func TestHealth_OK(t *testing.T) {
	h := &mockHealth{report: health.Report{
		Status: health.Healthy,
		Checks: map[string]health.CheckResult{"qdrant": health.CheckOK, "ollama": health.CheckOK},
	}}
	r := newTestRouter(&mockSearch{}, &mockIngest{}, h, nil)

	rec := doJSON(t, r, http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
