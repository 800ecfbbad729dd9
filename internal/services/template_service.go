package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/repo"
)

// TemplateInput carries style template fields for create and partial
// update.
type TemplateInput struct {
	Name           *string                 `json:"name"`
	StyleType      *string                 `json:"styleType"`
	Description    *string                 `json:"description"`
	ToneGuidelines *string                 `json:"toneGuidelines"`
	OpeningRules   *domain.RuleSet         `json:"openingRules"`
	SellingRules   *domain.RuleSet         `json:"sellingRules"`
	PromotionRules *domain.RuleSet         `json:"promotionRules"`
	ClosingRules   *domain.RuleSet         `json:"closingRules"`
	ExampleScripts *[]domain.ExampleScript `json:"exampleScripts"`
	IsActive       *bool                   `json:"isActive"`
}

// TemplateService manages style templates.
type TemplateService struct {
	DB *gorm.DB
}

// Create stores a new template. The style type defaults to custom.
func (s *TemplateService) Create(ctx context.Context, in TemplateInput) (*domain.StyleTemplate, error) {
	ctx, span := otel.Tracer("services/TemplateService").Start(ctx, "Create")
	defer span.End()

	t := &domain.StyleTemplate{StyleType: domain.StyleCustom, IsActive: true, ExampleScripts: []domain.ExampleScript{}}
	in.apply(t)
	if err := validateTemplate(t); err != nil {
		return nil, err
	}
	if err := repo.CreateTemplate(ctx, s.DB, t); err != nil {
		return nil, mapRepoErr(err, ErrTemplateNotFound)
	}
	return t, nil
}

// Get returns one template.
func (s *TemplateService) Get(ctx context.Context, id string) (*domain.StyleTemplate, error) {
	t, err := repo.GetTemplate(ctx, s.DB, id)
	return t, mapRepoErr(err, ErrTemplateNotFound)
}

// ListPage returns a page of templates and the total matching f.
func (s *TemplateService) ListPage(ctx context.Context, f repo.TemplateFilter, page, pageSize int) ([]domain.StyleTemplate, int64, error) {
	ctx, span := otel.Tracer("services/TemplateService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("style_type", f.StyleType),
			attribute.Int("page", page),
		),
	)
	defer span.End()

	if f.StyleType != "" && !domain.ValidStyleType(f.StyleType) {
		return nil, 0, ErrInvalidStyleType
	}
	_, pageSize, offset := pageBounds(page, pageSize)
	total, err := repo.CountTemplates(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.StyleTemplate{}, 0, nil
	}
	items, err := repo.ListTemplatesPage(ctx, s.DB, f, offset, pageSize)
	return items, total, err
}

// Update applies the non-nil fields of in to template id.
func (s *TemplateService) Update(ctx context.Context, id string, in TemplateInput) (*domain.StyleTemplate, error) {
	ctx, span := otel.Tracer("services/TemplateService").Start(ctx, "Update",
		trace.WithAttributes(attribute.String("template.id", id)),
	)
	defer span.End()

	t, err := repo.GetTemplate(ctx, s.DB, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrTemplateNotFound)
	}
	in.apply(t)
	if err := validateTemplate(t); err != nil {
		return nil, err
	}
	if err := repo.UpdateTemplate(ctx, s.DB, t); err != nil {
		return nil, mapRepoErr(err, ErrTemplateNotFound)
	}
	return t, nil
}

// Delete removes template id.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	return mapRepoErr(repo.DeleteTemplate(ctx, s.DB, id), ErrTemplateNotFound)
}

// Stats backs list ETags.
func (s *TemplateService) Stats(ctx context.Context, f repo.TemplateFilter) (int64, string, error) {
	return statsTag(repo.TemplatesStats(ctx, s.DB, f))
}

func (in TemplateInput) apply(t *domain.StyleTemplate) {
	if in.Name != nil {
		t.Name = clip(normalizeText(*in.Name), nameMaxLen)
	}
	if in.StyleType != nil {
		t.StyleType = strings.ToLower(strings.TrimSpace(*in.StyleType))
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.ToneGuidelines != nil {
		t.ToneGuidelines = *in.ToneGuidelines
	}
	if in.OpeningRules != nil {
		t.OpeningRules = cleanRules(in.OpeningRules)
	}
	if in.SellingRules != nil {
		t.SellingRules = cleanRules(in.SellingRules)
	}
	if in.PromotionRules != nil {
		t.PromotionRules = cleanRules(in.PromotionRules)
	}
	if in.ClosingRules != nil {
		t.ClosingRules = cleanRules(in.ClosingRules)
	}
	if in.ExampleScripts != nil {
		ex := make([]domain.ExampleScript, 0, len(*in.ExampleScripts))
		for _, e := range *in.ExampleScripts {
			e.Scene = strings.TrimSpace(e.Scene)
			e.Script = strings.TrimSpace(e.Script)
			if e.Script != "" {
				ex = append(ex, e)
			}
		}
		t.ExampleScripts = ex
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
}

func cleanRules(r *domain.RuleSet) *domain.RuleSet {
	return &domain.RuleSet{
		Patterns: cleanList(r.Patterns),
		Tips:     cleanList(r.Tips),
		Examples: cleanList(r.Examples),
	}
}

func validateTemplate(t *domain.StyleTemplate) error {
	if t.Name == "" {
		return ErrNameRequired
	}
	if !domain.ValidStyleType(t.StyleType) {
		return ErrInvalidStyleType
	}
	return nil
}
