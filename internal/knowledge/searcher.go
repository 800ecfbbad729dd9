// Package knowledge finds reference fragments for script generation. It
// talks to a remote semantic search service when one is configured, can
// cache its answers in Redis, and otherwise searches the stored knowledge
// documents locally. It also imports documents from web pages.
package knowledge

import (
	"context"

	"github.com/agristream/livescript/internal/domain"
)

// Query is one reference lookup.
type Query struct {
	Text string
	// Collections restricts the search. Empty means every collection.
	Collections []domain.KnowledgeCollection
	TopK        int
	MinScore    float64
}

// Searcher returns fragments ordered by descending score.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]domain.ReferenceFragment, error)
}
