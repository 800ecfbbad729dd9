package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/materials"
	"github.com/agristream/livescript/internal/repo"
)

// CollectInput stores one search hit under the keyword it was found with.
type CollectInput struct {
	Keyword string `json:"keyword"`
	materials.Video
}

// MaterialService searches, collects and transcribes reference videos.
type MaterialService struct {
	DB          *gorm.DB
	Searcher    materials.Searcher
	Transcriber materials.Transcriber
}

// Search delegates to the configured video searcher.
func (s *MaterialService) Search(ctx context.Context, keyword string, page, pageSize int) (materials.Page, error) {
	ctx, span := otel.Tracer("services/MaterialService").Start(ctx, "Search",
		trace.WithAttributes(
			attribute.String("keyword", keyword),
			attribute.Int("page", page),
		),
	)
	defer span.End()

	p, err := s.Searcher.Search(ctx, keyword, page, pageSize)
	if err != nil {
		if errors.Is(err, materials.ErrEmptyKeyword) {
			return materials.Page{}, ErrQueryRequired
		}
		return materials.Page{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if p.Items == nil {
		p.Items = []materials.Video{}
	}
	return p, nil
}

// Collect stores a search hit. The same platform video can be collected
// only once.
func (s *MaterialService) Collect(ctx context.Context, in CollectInput) (*domain.Material, error) {
	v := in.Video
	m := &domain.Material{
		Platform:        strings.TrimSpace(v.Platform),
		VideoID:         strings.TrimSpace(v.VideoID),
		Title:           clip(normalizeText(v.Title), 512),
		Author:          strings.TrimSpace(v.Author),
		URL:             strings.TrimSpace(v.URL),
		CoverURL:        strings.TrimSpace(v.CoverURL),
		DurationSeconds: v.DurationSeconds,
		Likes:           v.Likes,
		Comments:        v.Comments,
		Shares:          v.Shares,
		PublishedAt:     v.PublishedAt,
		Keyword:         normalizeText(in.Keyword),
		Tags:            cleanList(v.Tags),
		Status:          domain.MaterialCollected,
	}
	if m.Platform == "" || m.VideoID == "" {
		return nil, ErrMissingID
	}
	if m.Title == "" {
		return nil, ErrNameRequired
	}
	if err := repo.CreateMaterial(ctx, s.DB, m); err != nil {
		return nil, mapRepoErr(err, ErrMaterialNotFound)
	}
	return m, nil
}

// ListPage returns a page of collected materials and the total matching f.
func (s *MaterialService) ListPage(ctx context.Context, f repo.MaterialFilter, page, pageSize int) ([]domain.Material, int64, error) {
	_, pageSize, offset := pageBounds(page, pageSize)
	total, err := repo.CountMaterials(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Material{}, 0, nil
	}
	items, err := repo.ListMaterialsPage(ctx, s.DB, f, offset, pageSize)
	return items, total, err
}

// Get returns one material.
func (s *MaterialService) Get(ctx context.Context, id string) (*domain.Material, error) {
	m, err := repo.GetMaterial(ctx, s.DB, id)
	return m, mapRepoErr(err, ErrMaterialNotFound)
}

// Delete removes one material.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	return mapRepoErr(repo.DeleteMaterial(ctx, s.DB, id), ErrMaterialNotFound)
}

// Stats backs list ETags.
func (s *MaterialService) Stats(ctx context.Context, f repo.MaterialFilter) (int64, string, error) {
	return statsTag(repo.MaterialsStats(ctx, s.DB, f))
}

// Transcribe sends the material's video URL to the ASR service and stores
// the transcript.
func (s *MaterialService) Transcribe(ctx context.Context, id string) (*domain.Material, error) {
	ctx, span := otel.Tracer("services/MaterialService").Start(ctx, "Transcribe",
		trace.WithAttributes(attribute.String("material.id", id)),
	)
	defer span.End()

	m, err := repo.GetMaterial(ctx, s.DB, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrMaterialNotFound)
	}
	if m.URL == "" {
		return nil, ErrNothingToTranscribe
	}
	if s.Transcriber == nil {
		return nil, ErrTranscriberNotReady
	}
	text, err := s.Transcriber.Transcribe(ctx, m.URL)
	if err != nil {
		if errors.Is(err, materials.ErrTranscriberUnavailable) {
			return nil, ErrTranscriberNotReady
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if err := repo.SetTranscript(ctx, s.DB, id, text); err != nil {
		return nil, mapRepoErr(err, ErrMaterialNotFound)
	}
	m.Transcript = text
	m.Status = domain.MaterialTranscribed
	return m, nil
}
