package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/chorus-cloud/chorussearch/internal/domain"
)

// Stream runs the streamed intelligent search, pushing events to emit
// in a strict order: queryUnderstanding, searchResults, zero or more
// chorusReason, aiAnalysis, then complete. A failure of a mandatory
// step (term expansion, similarity search) emits a single error event
// and terminates; per-item rationale failures fall back to a canned
// string instead. The stream always ends with exactly one terminal
// event. A non-nil return means emission itself failed and the client
// is gone.
func (s *Service) Stream(ctx context.Context, query string, k int, emit Emitter) error {
	s.logger.Info("starting streamed search", zap.String("query", query), zap.Int("k", k))

	// Step 1: LLM-driven term expansion. Hard dependency.
	raw, err := s.gen.Generate(ctx, "expand", expandPrompt(query))
	if err != nil {
		s.logger.Warn("term expansion failed", zap.Error(err))
		return emit(errorEvent(err))
	}
	terms := trimGenerated(raw)
	if terms == "" {
		terms = query
	}
	if err := emit(domain.StreamEvent{
		Type:               domain.EventQueryUnderstanding,
		QueryUnderstanding: terms,
	}); err != nil {
		return err
	}

	// Step 2: similarity search over the expanded terms, deduplicated.
	deduped, err := s.retrieveDeduped(ctx, terms)
	if err != nil {
		s.logger.Warn("streamed search failed", zap.Error(err))
		return emit(errorEvent(err))
	}
	results := deduped
	if len(results) > k {
		results = results[:k]
	}
	if err := emit(domain.StreamEvent{
		Type:          domain.EventSearchResults,
		SearchResults: results,
	}); err != nil {
		return err
	}

	// Step 3: best-effort per-item rationales.
	if s.opts.PerItemReasons {
		for _, r := range results {
			reason, genErr := s.gen.Generate(ctx, "reason", reasonPrompt(query, r))
			if genErr != nil {
				s.logger.Warn("reason generation failed",
					zap.String("chorus_id", r.ID.Value),
					zap.Error(genErr),
				)
				reason = reasonFallback
			} else {
				reason = trimGenerated(reason)
			}
			if err := emit(domain.StreamEvent{
				Type:     domain.EventChorusReason,
				ChorusID: r.ID.Value,
				Reason:   reason,
			}); err != nil {
				return err
			}
		}
	}

	// Step 4: overall analysis across the top deduplicated items.
	if s.opts.OverallAnalysis {
		analysis := noResultsAnalysis
		if len(deduped) > 0 {
			raw, genErr := s.gen.Generate(ctx, "analysis", analysisPrompt(query, deduped, s.opts.ContextSize))
			if genErr != nil {
				s.logger.Warn("analysis generation failed", zap.Error(genErr))
				return emit(errorEvent(genErr))
			}
			analysis = trimGenerated(raw)
		}
		if err := emit(domain.StreamEvent{
			Type:     domain.EventAIAnalysis,
			Analysis: analysis,
		}); err != nil {
			return err
		}
	}

	return emit(domain.StreamEvent{
		Type:   domain.EventComplete,
		Status: "completed",
	})
}

// errorEvent shapes a terminal error event. Error text hinting at
// duplicate point conflicts gets a message pointing at the known
// operational fix.
func errorEvent(err error) domain.StreamEvent {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "duplicate") || strings.Contains(lower, "already exists") {
		msg = "The vector store reported duplicate entries. Run the dedupe maintenance command and retry."
	}
	return domain.StreamEvent{Type: domain.EventError, Error: msg}
}
