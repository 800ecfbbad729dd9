package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/llm"
	"github.com/agristream/livescript/internal/prompt"
	"github.com/agristream/livescript/internal/repo"
)

// DefaultComplianceTemperature keeps audits close to deterministic.
const DefaultComplianceTemperature = 0.1

// ComplianceService audits stored scripts with the text generation service.
type ComplianceService struct {
	DB          *gorm.DB
	LLM         llm.Client
	Model       string
	Temperature float64

	// IdempotencyTTL bounds how long a completed check can be replayed.
	IdempotencyTTL time.Duration
}

// Check audits the script and stores the outcome on it. Nothing is stored
// when the upstream call fails.
func (s *ComplianceService) Check(ctx context.Context, scriptID string) (*domain.ComplianceReport, error) {
	scriptID = strings.TrimSpace(scriptID)
	if scriptID == "" {
		return nil, ErrMissingID
	}
	ctx, span := otel.Tracer("services/ComplianceService").Start(ctx, "Check",
		trace.WithAttributes(attribute.String("script.id", scriptID)),
	)
	defer span.End()

	sc, err := repo.GetScript(ctx, s.DB, scriptID)
	if err != nil {
		return nil, mapRepoErr(err, ErrScriptNotFound)
	}

	var words []string
	if p, err := repo.GetProduct(ctx, s.DB, sc.ProductID); err == nil {
		words = p.ProhibitedWords
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	text := prompt.AssembleScriptText(sc.Legacy())
	if text == "" {
		text = sc.RawContent
	}

	if s.LLM == nil {
		complianceChecks.WithLabelValues(outcomeError).Inc()
		return nil, ErrGeneratorUnavailable
	}
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.ComplianceSystemPrompt},
		{Role: llm.RoleUser, Content: prompt.ComposeCompliance(text, words)},
	}
	out, err := s.LLM.Invoke(ctx, msgs, llm.Options{Model: s.Model, Temperature: llm.Temperature(s.temperature())})
	if err != nil {
		complianceChecks.WithLabelValues(outcomeError).Inc()
		if errors.Is(err, llm.ErrNotConfigured) {
			return nil, ErrGeneratorUnavailable
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	parsed, perr := llm.ExtractJSONObject(out)
	if perr != nil {
		log.Ctx(ctx).Warn().Err(perr).Str("script_id", scriptID).Msg("compliance output has no JSON object")
	}
	report := domain.ComplianceReportFromOutput(parsed, out)

	if err := repo.SaveCompliance(ctx, s.DB, scriptID, report, time.Now().UTC()); err != nil {
		return nil, mapRepoErr(err, ErrScriptNotFound)
	}
	complianceChecks.WithLabelValues(report.Status).Inc()
	span.SetAttributes(
		attribute.String("compliance.status", report.Status),
		attribute.Int("compliance.score", report.Score),
	)
	return report, nil
}

// Replay returns the report recorded when (userID, scriptID, key) completed
// a check that has not expired. Later checks or edits do not change it.
func (s *ComplianceService) Replay(ctx context.Context, userID, scriptID, key string) (*domain.ComplianceReport, bool) {
	if key == "" {
		return nil, false
	}
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scriptID, key, time.Now().UTC())
	if err != nil || len(rec.Response) == 0 {
		return nil, false
	}
	var r domain.ComplianceReport
	if err := json.Unmarshal(rec.Response, &r); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("script_id", scriptID).Msg("decode idempotency response")
		return nil, false
	}
	return &r, true
}

// Remember records the completed check and its report for key. Failures
// are logged only.
func (s *ComplianceService) Remember(ctx context.Context, userID, scriptID, key string, status int, report *domain.ComplianceReport) {
	if key == "" || report == nil {
		return
	}
	body, err := json.Marshal(report)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("script_id", scriptID).Msg("encode idempotency response")
		return
	}
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if _, err := repo.CreateIdempotency(ctx, s.DB, userID, scriptID, key, status, body, ttl); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		log.Ctx(ctx).Warn().Err(err).Str("script_id", scriptID).Msg("store idempotency record")
	}
}

func (s *ComplianceService) temperature() float64 {
	if s.Temperature > 0 {
		return s.Temperature
	}
	return DefaultComplianceTemperature
}
