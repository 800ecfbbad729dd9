// Package seed loads starter products and style templates from YAML and
// inserts the ones that are not stored yet.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/repo"
)

//go:embed default.yaml
var defaultYAML []byte

// File is the seed file layout.
type File struct {
	Products  []Product  `yaml:"products"`
	Templates []Template `yaml:"templates"`
}

// Product is a seed product.
type Product struct {
	Name            string   `yaml:"name"`
	Category        string   `yaml:"category"`
	Origin          string   `yaml:"origin"`
	Price           float64  `yaml:"price"`
	Specification   string   `yaml:"specification"`
	SellingPoints   []string `yaml:"selling_points"`
	Certificates    []string `yaml:"certificates"`
	ProhibitedWords []string `yaml:"prohibited_words"`
	Description     string   `yaml:"description"`
	Active          bool     `yaml:"active"`
}

// RuleSet mirrors domain.RuleSet.
type RuleSet struct {
	Patterns []string `yaml:"patterns"`
	Tips     []string `yaml:"tips"`
	Examples []string `yaml:"examples"`
}

// Template is a seed style template.
type Template struct {
	Name           string                 `yaml:"name"`
	StyleType      string                 `yaml:"style_type"`
	Description    string                 `yaml:"description"`
	ToneGuidelines string                 `yaml:"tone_guidelines"`
	Opening        *RuleSet               `yaml:"opening"`
	Selling        *RuleSet               `yaml:"selling"`
	Promotion      *RuleSet               `yaml:"promotion"`
	Closing        *RuleSet               `yaml:"closing"`
	Examples       []domain.ExampleScript `yaml:"examples"`
	Active         bool                   `yaml:"active"`
}

// Result counts what Apply inserted and skipped.
type Result struct {
	Products  int
	Templates int
	Skipped   int
}

// Load reads a seed file; an empty path selects the embedded default.
func Load(path string) (*File, error) {
	data := defaultYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading seed file: %w", err)
		}
		data = b
	}
	return parse(data)
}

func parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	for i, t := range f.Templates {
		if !domain.ValidStyleType(t.StyleType) {
			return nil, fmt.Errorf("template %d (%s): unknown style type %q", i, t.Name, t.StyleType)
		}
	}
	return &f, nil
}

// Apply inserts every product and template whose name is not taken yet.
// Running it twice is a no-op the second time.
func Apply(ctx context.Context, db *gorm.DB, f *File) (Result, error) {
	var res Result
	for _, p := range f.Products {
		n, err := repo.CountProducts(ctx, db, repo.ProductFilter{Name: p.Name})
		if err != nil {
			return res, err
		}
		if n > 0 {
			res.Skipped++
			continue
		}
		if err := repo.CreateProduct(ctx, db, p.model()); err != nil {
			return res, fmt.Errorf("product %s: %w", p.Name, err)
		}
		res.Products++
	}
	for _, t := range f.Templates {
		n, err := repo.CountTemplates(ctx, db, repo.TemplateFilter{Name: t.Name})
		if err != nil {
			return res, err
		}
		if n > 0 {
			res.Skipped++
			continue
		}
		if err := repo.CreateTemplate(ctx, db, t.model()); err != nil {
			return res, fmt.Errorf("template %s: %w", t.Name, err)
		}
		res.Templates++
	}
	log.Info().
		Int("products", res.Products).
		Int("templates", res.Templates).
		Int("skipped", res.Skipped).
		Msg("seed applied")
	return res, nil
}

func (p Product) model() *domain.Product {
	return &domain.Product{
		Name:            p.Name,
		Category:        p.Category,
		Origin:          p.Origin,
		Price:           p.Price,
		Specification:   p.Specification,
		SellingPoints:   nonNil(p.SellingPoints),
		Certificates:    nonNil(p.Certificates),
		ProhibitedWords: nonNil(p.ProhibitedWords),
		Description:     p.Description,
		IsActive:        p.Active,
	}
}

func (t Template) model() *domain.StyleTemplate {
	return &domain.StyleTemplate{
		Name:           t.Name,
		StyleType:      t.StyleType,
		Description:    t.Description,
		ToneGuidelines: t.ToneGuidelines,
		OpeningRules:   t.Opening.model(),
		SellingRules:   t.Selling.model(),
		PromotionRules: t.Promotion.model(),
		ClosingRules:   t.Closing.model(),
		ExampleScripts: t.Examples,
		IsActive:       t.Active,
	}
}

func (r *RuleSet) model() *domain.RuleSet {
	if r == nil {
		return nil
	}
	return &domain.RuleSet{Patterns: r.Patterns, Tips: r.Tips, Examples: r.Examples}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
