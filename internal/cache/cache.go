// Package cache implements the result cache for the query pipeline:
// a keyed byte store plus a monotonic generation counter used to
// invalidate intelligent-search entries in bulk.
package cache

import (
	"context"
	"fmt"
	"strings"
)

// Store is the result cache contract. Implementations must treat all
// failures as cache misses; the pipeline never depends on the cache
// for correctness.
type Store interface {
	// Get returns the cached value for key, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Put stores value under key, best-effort.
	Put(ctx context.Context, key string, value []byte)
	// Clear empties the cache and bumps the generation counter in one step.
	Clear(ctx context.Context) error
	// Generation returns the current cache generation.
	Generation(ctx context.Context) uint64
}

// PlainKey builds the cache key for a plain search. Queries are
// lowercased so casing variants share an entry.
func PlainKey(query string, k int) string {
	return fmt.Sprintf("search|%s|%d", strings.ToLower(query), k)
}

// IntelligentKey builds the cache key for an intelligent search. The
// analysis flag is part of the key because it changes the response
// content; the generation is part of the key so a cache clear makes
// every prior intelligent entry unreachable without enumerating it.
func IntelligentKey(query string, k int, includeAnalysis bool, generation uint64) string {
	return fmt.Sprintf("rag|%s|%d|%t|%d", strings.ToLower(query), k, includeAnalysis, generation)
}
