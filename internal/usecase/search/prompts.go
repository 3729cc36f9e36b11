package search

import (
	"fmt"
	"strings"

	"github.com/chorus-cloud/chorussearch/internal/domain"
)

// noResultsAnalysis is returned instead of a generation call when a
// streamed search matched nothing.
const noResultsAnalysis = "No choruses matched your search. Try different or broader terms."

// reasonFallback replaces a failed per-item rationale call.
const reasonFallback = "This chorus closely matches the themes of your search."

func expandPrompt(query string) string {
	return fmt.Sprintf(
		"You are a search assistant for a religious chorus library. "+
			"Generate 3-5 comma-separated search terms that capture the themes of the query below. "+
			"Reply with only the terms, nothing else.\n\nQuery: %s",
		query,
	)
}

func reasonPrompt(query string, r domain.SearchResult) string {
	return fmt.Sprintf(
		"You are a helpful assistant for religious chorus search. "+
			"In one short sentence, explain why the chorus below matches the search %q. "+
			"Use only the chorus text; do not invent details.\n\nTitle: %s\nChorus:\n%s",
		query, r.Name(), r.Text,
	)
}

func analysisPrompt(query string, results []domain.SearchResult, contextSize int) string {
	if len(results) > contextSize {
		results = results[:contextSize]
	}

	var b strings.Builder
	b.WriteString("You are a helpful assistant for religious chorus search. ")
	b.WriteString("Use only the provided context to answer the user's question. ")
	b.WriteString("If the answer is not in the context, say you don't know.\n\nContext:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "Title: %s (score %.3f)\n%s\n\n", r.Name(), r.Score, r.Text)
	}
	fmt.Fprintf(&b, "Question:\n%s\n\nAnswer (in the same language as the context):", query)
	return b.String()
}

// trimGenerated strips surrounding whitespace and quote marks from raw
// generated text. The output is not otherwise parsed or validated.
func trimGenerated(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
