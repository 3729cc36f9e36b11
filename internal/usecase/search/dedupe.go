package search

import (
	"fmt"

	"github.com/chorus-cloud/chorussearch/internal/domain"
)

// resultsFromPoints shapes scored points into search results. Items
// are never dropped: a point without a business identifier gets a
// placeholder id unique within the batch, so downstream dedup still
// functions and the caller can see the item arrived degraded.
func resultsFromPoints(points []domain.ScoredPoint) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(points))
	for i, p := range points {
		var id domain.DocumentID
		if v, ok := p.ChorusID(); ok {
			id = domain.ResolvedID(v)
		} else {
			id = domain.SynthesizedID(fmt.Sprintf("unknown_%d", i))
		}

		metadata := p.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}

		results = append(results, domain.SearchResult{
			ID:       id,
			Text:     p.Text,
			Score:    p.Score,
			Metadata: metadata,
		})
	}
	return results
}

// dedupeByID keeps at most one result per business identifier,
// preserving first-seen order. Synthesized placeholder ids are unique
// per batch, so degraded items survive deduplication.
func dedupeByID(results []domain.SearchResult) []domain.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		if _, dup := seen[r.ID.Value]; dup {
			continue
		}
		seen[r.ID.Value] = struct{}{}
		out = append(out, r)
	}
	return out
}
