package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chorus-cloud/chorussearch/internal/cache"
	"github.com/chorus-cloud/chorussearch/internal/domain"
)

func collectEvents(t *testing.T, svc *Service, query string, k int) []domain.StreamEvent {
	t.Helper()
	var events []domain.StreamEvent
	err := svc.Stream(context.Background(), query, k, func(e domain.StreamEvent) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream returned emit error: %v", err)
	}
	return events
}

func TestStream_HappyPathEventSequence(t *testing.T) {
	store := &mockStore{points: []domain.ScoredPoint{
		point("c1", 0.92), point("c2", 0.85), point("c3", 0.71),
	}}
	gen := &mockGenerator{responses: map[string]string{
		"expand":   "grace, mercy, forgiveness",
		"reason":   "Mentions grace directly.",
		"analysis": "All three choruses center on grace.",
	}}
	svc, _ := newService(store, gen)

	events := collectEvents(t, svc, "grace", 3)

	wantTypes := []domain.EventType{
		domain.EventQueryUnderstanding,
		domain.EventSearchResults,
		domain.EventChorusReason,
		domain.EventChorusReason,
		domain.EventChorusReason,
		domain.EventAIAnalysis,
		domain.EventComplete,
	}
	if len(events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d: %+v", len(wantTypes), len(events), events)
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("event %d: got %s, want %s", i, events[i].Type, want)
		}
	}

	if events[0].QueryUnderstanding != "grace, mercy, forgiveness" {
		t.Errorf("query understanding: got %q", events[0].QueryUnderstanding)
	}
	if len(events[1].SearchResults) != 3 {
		t.Errorf("expected 3 search results, got %d", len(events[1].SearchResults))
	}
	if events[5].Analysis != "All three choruses center on grace." {
		t.Errorf("analysis: got %q", events[5].Analysis)
	}
	if events[6].Status != "completed" {
		t.Errorf("complete status: got %q", events[6].Status)
	}
	for _, e := range events {
		if e.Type == domain.EventError {
			t.Fatal("no error event expected on the happy path")
		}
	}
}

func TestStream_SearchUsesExpandedTerms(t *testing.T) {
	store := &mockStore{points: []domain.ScoredPoint{point("c1", 0.9)}}
	gen := &mockGenerator{responses: map[string]string{
		"expand":   "grace, mercy",
		"reason":   "r",
		"analysis": "a",
	}}
	embed := &mockEmbedder{}
	svc := New(store, embed, gen, cache.NewMemory(64, time.Minute), Options{
		RetrieveCount:   12,
		ContextSize:     8,
		PerItemReasons:  true,
		OverallAnalysis: true,
	}, nil)

	collectEvents(t, svc, "grace", 3)

	if store.lastK != 12 {
		t.Errorf("streamed search must retrieve the fixed count, got %d", store.lastK)
	}
	// One embed call for the expanded terms, none for the raw query.
	if embed.calls != 1 {
		t.Errorf("expected 1 embed call, got %d", embed.calls)
	}
}

func TestStream_ExpansionFailureEmitsSingleError(t *testing.T) {
	store := &mockStore{points: []domain.ScoredPoint{point("c1", 0.9)}}
	gen := &mockGenerator{errs: map[string]error{"expand": errors.New("model not loaded")}}
	svc, _ := newService(store, gen)

	events := collectEvents(t, svc, "grace", 3)

	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d: %+v", len(events), events)
	}
	if events[0].Type != domain.EventError {
		t.Fatalf("expected error event, got %s", events[0].Type)
	}
	if store.calls != 0 {
		t.Error("store must not be queried after expansion failure")
	}
}

func TestStream_SearchFailureEmitsError(t *testing.T) {
	store := &mockStore{err: errors.New("connection refused")}
	gen := &mockGenerator{responses: map[string]string{"expand": "grace, mercy"}}
	svc, _ := newService(store, gen)

	events := collectEvents(t, svc, "grace", 3)

	if len(events) != 2 {
		t.Fatalf("expected queryUnderstanding then error, got %+v", events)
	}
	if events[1].Type != domain.EventError {
		t.Fatalf("expected terminal error event, got %s", events[1].Type)
	}
}

func TestStream_DuplicateConflictMessageSpecialCased(t *testing.T) {
	store := &mockStore{err: errors.New("point already exists in collection")}
	gen := &mockGenerator{responses: map[string]string{"expand": "grace"}}
	svc, _ := newService(store, gen)

	events := collectEvents(t, svc, "grace", 3)

	last := events[len(events)-1]
	if last.Type != domain.EventError {
		t.Fatalf("expected error event, got %s", last.Type)
	}
	if last.Error != "The vector store reported duplicate entries. Run the dedupe maintenance command and retry." {
		t.Errorf("unexpected duplicate-conflict message: %q", last.Error)
	}
}

func TestStream_ReasonFailureFallsBack(t *testing.T) {
	store := &mockStore{points: []domain.ScoredPoint{point("c1", 0.9)}}
	gen := &mockGenerator{
		responses: map[string]string{"expand": "grace", "analysis": "a"},
		errs:      map[string]error{"reason": errors.New("timeout")},
	}
	svc, _ := newService(store, gen)

	events := collectEvents(t, svc, "grace", 3)

	var reason *domain.StreamEvent
	for i := range events {
		if events[i].Type == domain.EventChorusReason {
			reason = &events[i]
		}
		if events[i].Type == domain.EventError {
			t.Fatal("reason failure must not terminate the stream")
		}
	}
	if reason == nil {
		t.Fatal("expected a chorusReason event")
	}
	if reason.Reason != reasonFallback {
		t.Errorf("expected fallback reason, got %q", reason.Reason)
	}
	if events[len(events)-1].Type != domain.EventComplete {
		t.Error("stream must end with complete")
	}
}

func TestStream_NoResultsCannedAnalysis(t *testing.T) {
	store := &mockStore{points: nil}
	gen := &mockGenerator{responses: map[string]string{"expand": "grace"}}
	svc, _ := newService(store, gen)

	events := collectEvents(t, svc, "grace", 3)

	var analysis *domain.StreamEvent
	for i := range events {
		if events[i].Type == domain.EventAIAnalysis {
			analysis = &events[i]
		}
	}
	if analysis == nil {
		t.Fatal("expected aiAnalysis event")
	}
	if analysis.Analysis != noResultsAnalysis {
		t.Errorf("expected canned no-results analysis, got %q", analysis.Analysis)
	}
	// Only the expansion call: no analysis generation for zero results.
	for _, c := range gen.calls {
		if c.kind == "analysis" {
			t.Error("analysis must not be generated for zero results")
		}
	}
}

func TestStream_ReasonsAndAnalysisDisabled(t *testing.T) {
	store := &mockStore{points: []domain.ScoredPoint{point("c1", 0.9)}}
	gen := &mockGenerator{responses: map[string]string{"expand": "grace"}}
	embed := &mockEmbedder{}
	svc := New(store, embed, gen, cache.NewMemory(64, time.Minute), Options{
		RetrieveCount: 12,
		ContextSize:   8,
	}, nil)

	events := collectEvents(t, svc, "grace", 3)

	wantTypes := []domain.EventType{
		domain.EventQueryUnderstanding,
		domain.EventSearchResults,
		domain.EventComplete,
	}
	if len(events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %+v", len(wantTypes), events)
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("event %d: got %s, want %s", i, events[i].Type, want)
		}
	}
}

func TestStream_EmitErrorAbortsStream(t *testing.T) {
	store := &mockStore{points: []domain.ScoredPoint{point("c1", 0.9)}}
	gen := &mockGenerator{responses: map[string]string{
		"expand": "grace", "reason": "r", "analysis": "a",
	}}
	svc, _ := newService(store, gen)

	clientGone := errors.New("client disconnected")
	count := 0
	err := svc.Stream(context.Background(), "grace", 3, func(domain.StreamEvent) error {
		count++
		if count == 2 {
			return clientGone
		}
		return nil
	})

	if !errors.Is(err, clientGone) {
		t.Fatalf("expected emit error to propagate, got %v", err)
	}
	if count != 2 {
		t.Errorf("no events may be emitted after an emit failure, count=%d", count)
	}
}
