package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chorus-cloud/chorussearch/internal/domain"
	healthuc "github.com/chorus-cloud/chorussearch/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the search pipeline over HTTP.
type Server struct {
	search        SearchService
	ingest        IngestService
	health        HealthService
	prober        StoreProber
	defaultK      int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. prober can be nil, in which
// case the diagnostic probe endpoint reports the store as unwired.
func NewServer(
	search SearchService,
	ingest IngestService,
	health HealthService,
	prober StoreProber,
	defaultK int,
	logger *zap.Logger,
) *Server {
	if defaultK <= 0 {
		defaultK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:   search,
		ingest:   ingest,
		health:   health,
		prober:   prober,
		defaultK: defaultK,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrBadRequest, http.StatusBadRequest, "bad_request"),
		sentinelHandler(domain.ErrStoreNotReady, http.StatusServiceUnavailable, "store_not_ready"),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusBadGateway, "store_unavailable"),
		sentinelHandler(domain.ErrEmbeddingFailed, http.StatusBadGateway, "embedding_failed"),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, "generation_failed"),
		sentinelHandler(domain.ErrIngestFailed, http.StatusInternalServerError, "ingest_failed"),
	}
	return s
}

// Routes registers all API routes on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/search", s.Search)
	r.Post("/search_intelligent", s.IntelligentSearch)
	r.Post("/search_intelligent_stream", s.StreamSearch)
	r.Post("/add_documents", s.AddDocuments)
	r.Post("/clear_cache", s.ClearCache)
	r.Post("/test_qdrant", s.TestQdrant)
}

type searchRequest struct {
	Query           string `json:"query"`
	K               int    `json:"k"`
	IncludeAnalysis *bool  `json:"include_analysis,omitempty"`
}

// normalize validates the request and applies defaults in place.
func (req *searchRequest) normalize(defaultK int) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return errors.New("query is required")
	}
	if req.K < 0 {
		return errors.New("k must not be negative")
	}
	if req.K == 0 {
		req.K = defaultK
	}
	return nil
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if err := req.normalize(s.defaultK); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	results, err := s.search.Search(r.Context(), req.Query, req.K)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// IntelligentSearch handles POST /search_intelligent.
func (s *Server) IntelligentSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if err := req.normalize(s.defaultK); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	includeAnalysis := true
	if req.IncludeAnalysis != nil {
		includeAnalysis = *req.IncludeAnalysis
	}

	result, err := s.search.IntelligentSearch(r.Context(), req.Query, req.K, includeAnalysis)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// AddDocuments handles POST /add_documents.
func (s *Server) AddDocuments(w http.ResponseWriter, r *http.Request) {
	var choruses []domain.Chorus
	if err := json.NewDecoder(r.Body).Decode(&choruses); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	count, err := s.ingest.AddDocuments(r.Context(), choruses)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"ingested": count,
	})
}

// ClearCache handles POST /clear_cache.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.search.ClearCache(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// TestQdrant handles POST /test_qdrant, a diagnostic write probe.
func (s *Server) TestQdrant(w http.ResponseWriter, r *http.Request) {
	if s.prober == nil {
		writeError(w, http.StatusServiceUnavailable, "store_not_ready", "no store wired")
		return
	}
	info, err := s.prober.Probe(r.Context())
	if err != nil {
		s.logger.Warn("store probe failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "store_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// safeDomainMessage returns a sentinel error message for the client
// without exposing internals. Ingest failures keep their full message
// so callers can see which document broke the batch.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrIngestFailed) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrBadRequest,
		domain.ErrStoreNotReady,
		domain.ErrStoreUnavailable,
		domain.ErrEmbeddingFailed,
		domain.ErrGenerationFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
