package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/knowledge"
	"github.com/agristream/livescript/internal/repo"
)

// PageFetcher extracts readable text from a web page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*knowledge.Page, error)
}

// CollectionInput is the payload for creating a collection.
type CollectionInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DatasetID   string `json:"datasetId"`
}

// DocumentInput is the payload for adding a document by hand.
type DocumentInput struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	SourceURL string `json:"sourceUrl"`
}

// SearchInput is a knowledge search request. Zero TopK and nil MinScore
// fall back to the service defaults.
type SearchInput struct {
	Query         string   `json:"query"`
	CollectionIDs []string `json:"collectionIds"`
	TopK          int      `json:"topK"`
	MinScore      *float64 `json:"minScore"`
}

// KnowledgeService manages collections and documents and answers reference
// queries through the configured Searcher.
type KnowledgeService struct {
	DB       *gorm.DB
	Searcher knowledge.Searcher
	Importer PageFetcher

	TopK     int
	MinScore float64
}

// CreateCollection stores a new collection. Names are unique.
func (s *KnowledgeService) CreateCollection(ctx context.Context, in CollectionInput) (*domain.KnowledgeCollection, error) {
	c := &domain.KnowledgeCollection{
		Name:        clip(normalizeText(in.Name), nameMaxLen),
		Description: strings.TrimSpace(in.Description),
		DatasetID:   strings.TrimSpace(in.DatasetID),
	}
	if c.Name == "" {
		return nil, ErrNameRequired
	}
	if err := repo.CreateCollection(ctx, s.DB, c); err != nil {
		return nil, mapRepoErr(err, ErrCollectionNotFound)
	}
	return c, nil
}

// ListCollections returns every collection.
func (s *KnowledgeService) ListCollections(ctx context.Context) ([]domain.KnowledgeCollection, error) {
	out, err := repo.ListCollections(ctx, s.DB)
	if out == nil {
		out = []domain.KnowledgeCollection{}
	}
	return out, err
}

// GetCollection returns one collection.
func (s *KnowledgeService) GetCollection(ctx context.Context, id string) (*domain.KnowledgeCollection, error) {
	c, err := repo.GetCollection(ctx, s.DB, id)
	return c, mapRepoErr(err, ErrCollectionNotFound)
}

// DeleteCollection removes a collection and its documents.
func (s *KnowledgeService) DeleteCollection(ctx context.Context, id string) error {
	return mapRepoErr(repo.DeleteCollection(ctx, s.DB, id), ErrCollectionNotFound)
}

// AddDocument stores a document in collection collectionID.
func (s *KnowledgeService) AddDocument(ctx context.Context, collectionID string, in DocumentInput) (*domain.KnowledgeDocument, error) {
	if _, err := repo.GetCollection(ctx, s.DB, collectionID); err != nil {
		return nil, mapRepoErr(err, ErrCollectionNotFound)
	}
	d := &domain.KnowledgeDocument{
		CollectionID: collectionID,
		Title:        clip(normalizeText(in.Title), nameMaxLen),
		Content:      strings.TrimSpace(in.Content),
		SourceURL:    strings.TrimSpace(in.SourceURL),
	}
	if d.Content == "" {
		return nil, ErrContentRequired
	}
	if d.Title == "" {
		d.Title = clip(firstLine(d.Content), 60)
	}
	if err := repo.CreateDocument(ctx, s.DB, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ImportURL fetches rawURL, extracts its readable text and stores it as a
// document. An empty title takes the page title.
func (s *KnowledgeService) ImportURL(ctx context.Context, collectionID, rawURL, title string) (*domain.KnowledgeDocument, error) {
	ctx, span := otel.Tracer("services/KnowledgeService").Start(ctx, "ImportURL",
		trace.WithAttributes(
			attribute.String("collection.id", collectionID),
			attribute.String("url", rawURL),
		),
	)
	defer span.End()

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	if _, err := repo.GetCollection(ctx, s.DB, collectionID); err != nil {
		return nil, mapRepoErr(err, ErrCollectionNotFound)
	}
	if s.Importer == nil {
		return nil, fmt.Errorf("%w: importer not configured", ErrUpstream)
	}
	page, err := s.Importer.Fetch(ctx, u.String())
	if err != nil {
		if errors.Is(err, knowledge.ErrNoContent) {
			return nil, ErrContentRequired
		}
		if errors.Is(err, knowledge.ErrForbiddenHost) {
			return nil, ErrInvalidURL
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if strings.TrimSpace(title) == "" {
		title = page.Title
	}
	return s.AddDocument(ctx, collectionID, DocumentInput{Title: title, Content: page.Text, SourceURL: u.String()})
}

// ListDocuments returns the documents of one collection.
func (s *KnowledgeService) ListDocuments(ctx context.Context, collectionID string) ([]domain.KnowledgeDocument, error) {
	if _, err := repo.GetCollection(ctx, s.DB, collectionID); err != nil {
		return nil, mapRepoErr(err, ErrCollectionNotFound)
	}
	out, err := repo.ListDocuments(ctx, s.DB, collectionID)
	if out == nil {
		out = []domain.KnowledgeDocument{}
	}
	return out, err
}

// DeleteDocument removes one document.
func (s *KnowledgeService) DeleteDocument(ctx context.Context, id string) error {
	return mapRepoErr(repo.DeleteDocument(ctx, s.DB, id), ErrDocumentNotFound)
}

// Search runs a reference query. Upstream failures are returned wrapped in
// ErrUpstream.
func (s *KnowledgeService) Search(ctx context.Context, in SearchInput) ([]domain.ReferenceFragment, error) {
	ctx, span := otel.Tracer("services/KnowledgeService").Start(ctx, "Search",
		trace.WithAttributes(attribute.String("query", in.Query)),
	)
	defer span.End()

	if strings.TrimSpace(in.Query) == "" {
		return nil, ErrQueryRequired
	}
	q := knowledge.Query{Text: strings.TrimSpace(in.Query), TopK: s.TopK, MinScore: s.MinScore}
	if in.TopK > 0 {
		q.TopK = in.TopK
	}
	if in.MinScore != nil {
		q.MinScore = *in.MinScore
	}
	out, err := s.search(ctx, q, in.CollectionIDs)
	if err != nil {
		if isStorageErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return out, nil
}

// References is the lookup used by generation: the default topK and floor,
// optional scope, and any error returned as-is for the caller to log.
func (s *KnowledgeService) References(ctx context.Context, query string, collectionIDs []string) ([]domain.ReferenceFragment, error) {
	return s.search(ctx, knowledge.Query{Text: query, TopK: s.TopK, MinScore: s.MinScore}, collectionIDs)
}

func (s *KnowledgeService) search(ctx context.Context, q knowledge.Query, collectionIDs []string) ([]domain.ReferenceFragment, error) {
	if s.Searcher == nil {
		return []domain.ReferenceFragment{}, nil
	}
	ids := cleanList(collectionIDs)
	if len(ids) > 0 {
		cols, err := repo.CollectionsByIDs(ctx, s.DB, ids)
		if err != nil {
			return nil, storageErr{err}
		}
		// A scope that names only unknown collections matches nothing.
		if len(cols) == 0 {
			return []domain.ReferenceFragment{}, nil
		}
		q.Collections = cols
	}
	out, err := s.Searcher.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.ReferenceFragment{}
	}
	return out, nil
}

// storageErr marks errors that came from the local database rather than
// the search backend.
type storageErr struct{ err error }

func (e storageErr) Error() string { return e.err.Error() }
func (e storageErr) Unwrap() error { return e.err }

func isStorageErr(err error) bool {
	var se storageErr
	return errors.As(err, &se)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
