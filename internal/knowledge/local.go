package knowledge

import (
	"context"

	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/repo"
	"github.com/agristream/livescript/internal/search"
)

// LocalSearcher ranks stored knowledge documents in memory. The index is
// rebuilt per query from the documents in scope, so newly added documents
// are searchable immediately.
type LocalSearcher struct {
	DB *gorm.DB
	// MinScore replaces the caller's floor when positive. Jaccard scores over
	// bigrams run far lower than vector similarities.
	MinScore float64
	Opts     []search.Option
}

// Search implements Searcher.
func (l *LocalSearcher) Search(ctx context.Context, q Query) ([]domain.ReferenceFragment, error) {
	ids := make([]string, 0, len(q.Collections))
	for _, c := range q.Collections {
		ids = append(ids, c.ID)
	}
	docs, err := repo.ListDocuments(ctx, l.DB, ids...)
	if err != nil {
		return nil, err
	}
	in := make([]search.Document, 0, len(docs))
	for _, d := range docs {
		in = append(in, search.Document{ID: d.ID, Text: d.Content})
	}

	floor := q.MinScore
	if l.MinScore > 0 {
		floor = l.MinScore
	}
	k := q.TopK
	if k <= 0 {
		k = 5
	}

	res := search.NewIndex(in, l.Opts...).TopK(q.Text, k)
	out := make([]domain.ReferenceFragment, 0, len(res))
	for _, r := range res {
		if r.Score < floor {
			continue
		}
		out = append(out, domain.ReferenceFragment{Content: r.Snippet, Score: r.Score, DocID: r.DocID})
	}
	return out, nil
}
