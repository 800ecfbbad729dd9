// Script generation.
//
// GenerationService turns a product, a style template and optional
// reference material into a five-section livestream script. Work is split
// in two so the HTTP layer can answer with a plain JSON error until the
// stream opens:
//
//   - Prepare validates the request, loads product and template, looks up
//     references and composes the prompt. Any failure here is synchronous.
//   - Run streams the completion, relays each fragment through emit, then
//     parses, persists and emits the terminal done event. Once Run starts,
//     failures surface as a single error event.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/llm"
	"github.com/agristream/livescript/internal/platform"
	"github.com/agristream/livescript/internal/prompt"
	"github.com/agristream/livescript/internal/repo"
)

// Event types relayed to generation clients.
const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

// Event is one frame of the generation stream.
type Event struct {
	Type     string             `json:"type"`
	Content  string             `json:"content,omitempty"`
	ScriptID string             `json:"scriptId,omitempty"`
	Script   *domain.ScriptView `json:"script,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// ReferenceFinder looks up reference fragments for a generation.
type ReferenceFinder interface {
	References(ctx context.Context, query string, collectionIDs []string) ([]domain.ReferenceFragment, error)
}

// EventPublisher announces stored scripts to other processes.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// GenerateRequest is the input of a generation.
type GenerateRequest struct {
	ProductID       string          `json:"productId"`
	StyleTemplateID string          `json:"styleTemplateId"`
	TargetAudience  string          `json:"targetAudience"`
	Duration        int             `json:"duration"`
	PromotionRules  json.RawMessage `json:"promotionRules" swaggertype:"object"`
	Title           string          `json:"title"`
	CollectionIDs   []string        `json:"collectionIds"`
}

// GenerationService orchestrates script generation.
type GenerationService struct {
	DB         *gorm.DB
	LLM        llm.Client
	References ReferenceFinder
	Publisher  EventPublisher

	Model       string
	Temperature float64
}

// Generation is a prepared request, ready to stream.
type Generation struct {
	svc *GenerationService

	Product   *domain.Product
	Template  *domain.StyleTemplate
	Fragments []domain.ReferenceFragment
	Prompt    string

	title          string
	targetAudience string
	duration       int
	promotionRules json.RawMessage
}

// Prepare validates req and builds the prompt. It touches neither storage
// nor upstreams when an id is missing.
func (s *GenerationService) Prepare(ctx context.Context, req GenerateRequest) (*Generation, error) {
	req.ProductID = strings.TrimSpace(req.ProductID)
	req.StyleTemplateID = strings.TrimSpace(req.StyleTemplateID)
	if req.ProductID == "" || req.StyleTemplateID == "" {
		return nil, ErrMissingIDs
	}
	rules, err := normalizePromotionRules(req.PromotionRules)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("services/GenerationService").Start(ctx, "Prepare",
		trace.WithAttributes(
			attribute.String("product.id", req.ProductID),
			attribute.String("template.id", req.StyleTemplateID),
		),
	)
	defer span.End()

	product, err := repo.GetProduct(ctx, s.DB, req.ProductID)
	if err != nil {
		return nil, mapRepoErr(err, ErrProductNotFound)
	}
	tmpl, err := repo.GetTemplate(ctx, s.DB, req.StyleTemplateID)
	if err != nil {
		return nil, mapRepoErr(err, ErrTemplateNotFound)
	}
	if s.LLM == nil {
		return nil, ErrGeneratorUnavailable
	}
	if lazy, ok := s.LLM.(*llm.Lazy); ok {
		if _, err := lazy.Get(); err != nil {
			return nil, ErrGeneratorUnavailable
		}
	}

	duration := req.Duration
	if duration <= 0 {
		duration = prompt.DefaultDuration
	}
	title := clip(normalizeText(req.Title), titleMaxLen)
	if title == "" {
		title = clip(product.Name+" - "+tmpl.Name+" 直播话术", titleMaxLen)
	}
	audience := normalizeText(req.TargetAudience)

	frags := s.references(ctx, product, req.CollectionIDs)

	g := &Generation{
		svc:            s,
		Product:        product,
		Template:       tmpl,
		Fragments:      frags,
		title:          title,
		targetAudience: audience,
		duration:       duration,
		promotionRules: rules,
	}
	g.Prompt = prompt.ComposeScript(prompt.Input{
		Product:   product,
		Template:  tmpl,
		Fragments: frags,
		Scenario: prompt.Scenario{
			TargetAudience:  audience,
			DurationMinutes: duration,
			PromotionRules:  rules,
		},
	})
	return g, nil
}

// references never fails: search problems are logged and yield no
// fragments.
func (s *GenerationService) references(ctx context.Context, p *domain.Product, collectionIDs []string) []domain.ReferenceFragment {
	if s.References == nil {
		return nil
	}
	query := strings.TrimSpace(p.Name + " " + p.Category + " 直播话术")
	frags, err := s.References.References(ctx, query, collectionIDs)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("query", query).Msg("reference search failed; generating without references")
		return nil
	}
	return frags
}

// Run streams the completion. Each fragment is handed to emit before the
// next one is pulled. The stream ends with exactly one done or error event
// unless emit fails or ctx ends first, in which case nothing is stored and
// nothing more is emitted. The returned error is for logging only.
func (g *Generation) Run(ctx context.Context, emit func(Event) error) error {
	s := g.svc
	ctx, span := otel.Tracer("services/GenerationService").Start(ctx, "Run",
		trace.WithAttributes(attribute.String("product.id", g.Product.ID)),
	)
	defer span.End()

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.SystemPrompt},
		{Role: llm.RoleUser, Content: g.Prompt},
	}
	stream, err := s.LLM.Stream(ctx, msgs, llm.Options{Model: s.Model, Temperature: llm.Temperature(s.Temperature)})
	if err != nil {
		return g.fail(ctx, emit, err)
	}
	defer stream.Close()

	var text strings.Builder
	for stream.Next() {
		if ctx.Err() != nil {
			generationsTotal.WithLabelValues(outcomeCanceled).Inc()
			return ctx.Err()
		}
		frag := stream.Current()
		text.WriteString(frag)
		if err := emit(Event{Type: EventChunk, Content: frag}); err != nil {
			generationsTotal.WithLabelValues(outcomeCanceled).Inc()
			return err
		}
		generationChunks.Inc()
	}
	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			generationsTotal.WithLabelValues(outcomeCanceled).Inc()
			return ctx.Err()
		}
		return g.fail(ctx, emit, err)
	}
	if ctx.Err() != nil {
		generationsTotal.WithLabelValues(outcomeCanceled).Inc()
		return ctx.Err()
	}

	full := text.String()
	parsed, perr := llm.ExtractJSONObject(full)
	if perr != nil {
		generationParseFallbacks.Inc()
		log.Ctx(ctx).Warn().Err(perr).Int("bytes", len(full)).Msg("generation output has no JSON object; storing raw content")
	}
	script := g.record(parsed, full)

	if err := repo.CreateScript(ctx, s.DB, script); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("persist generated script")
		script.ID = ""
	} else if s.Publisher != nil {
		ev := platform.ScriptGenerated{ScriptID: script.ID, ProductID: script.ProductID, StyleTemplateID: script.StyleTemplateID}
		if err := s.Publisher.Publish(ctx, platform.EventScriptGenerated, ev); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("script_id", script.ID).Msg("publish script.generated")
		}
	}

	view := script.View()
	if err := emit(Event{Type: EventDone, ScriptID: script.ID, Script: &view}); err != nil {
		generationsTotal.WithLabelValues(outcomeCanceled).Inc()
		return err
	}
	generationsTotal.WithLabelValues(outcomeDone).Inc()
	span.SetAttributes(attribute.String("script.id", script.ID))
	return nil
}

// record maps model output onto a new draft script for this generation.
func (g *Generation) record(parsed map[string]any, raw string) *domain.Script {
	s := domain.ScriptFromOutput(parsed, raw)
	s.ProductID = g.Product.ID
	s.StyleTemplateID = g.Template.ID
	s.Title = g.title
	s.TargetAudience = g.targetAudience
	s.Duration = g.duration
	s.Status = domain.ScriptDraft
	if len(g.promotionRules) > 0 {
		s.PromotionRules = datatypes.JSON(g.promotionRules)
	}
	return s
}

// fail emits the terminal error event.
func (g *Generation) fail(ctx context.Context, emit func(Event) error, err error) error {
	generationsTotal.WithLabelValues(outcomeError).Inc()
	log.Ctx(ctx).Error().Err(err).Msg("generation stream failed")
	msg := err.Error()
	if errors.Is(err, llm.ErrNotConfigured) {
		msg = ErrGeneratorUnavailable.Error()
	}
	if eerr := emit(Event{Type: EventError, Error: msg}); eerr != nil {
		return errors.Join(err, eerr)
	}
	return err
}

// normalizePromotionRules accepts a JSON object, array or null. Empty
// input and null are both stored as no rules.
func normalizePromotionRules(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if (trimmed[0] != '{' && trimmed[0] != '[') || !json.Valid(trimmed) {
		return nil, ErrInvalidPromotion
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, ErrInvalidPromotion
	}
	return buf.Bytes(), nil
}
