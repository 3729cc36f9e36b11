package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/chorus-cloud/chorussearch/internal/domain"
)

// StreamSearch handles POST /search_intelligent_stream. Events are
// pushed as server-sent events, one JSON object per data frame,
// flushed immediately so the client sees pipeline progress live.
// Client disconnect cancels the pipeline through the request context.
func (s *Server) StreamSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if err := req.normalize(s.defaultK); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(e domain.StreamEvent) error {
		if err := r.Context().Err(); err != nil {
			return fmt.Errorf("client gone: %w", err)
		}
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
		flusher.Flush()
		return nil
	}

	if err := s.search.Stream(r.Context(), req.Query, req.K, emit); err != nil {
		// Headers are already out; nothing more can be sent.
		if errors.Is(err, r.Context().Err()) || r.Context().Err() != nil {
			s.logger.Info("stream client disconnected", zap.String("query", req.Query))
			return
		}
		s.logger.Warn("stream emission failed", zap.String("query", req.Query), zap.Error(err))
	}
}
