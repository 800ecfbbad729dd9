package services

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/repo"
)

// Export formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// ScriptPatch carries the editable fields of a script. Sections maps a
// section key (warmUp…atmosphere) or a legacy field name (opening…closing)
// to the new script text.
type ScriptPatch struct {
	Title          *string           `json:"title"`
	Status         *string           `json:"status"`
	QualityScore   *float64          `json:"qualityScore"`
	TargetAudience *string           `json:"targetAudience"`
	Sections       map[string]string `json:"sections"`
}

// ScriptService reads and edits generated scripts.
type ScriptService struct {
	DB *gorm.DB
	md goldmark.Markdown
}

// NewScriptService returns a ScriptService with a CommonMark renderer.
func NewScriptService(db *gorm.DB) *ScriptService {
	return &ScriptService{DB: db, md: goldmark.New()}
}

// Get returns the view of script id, legacy fields included.
func (s *ScriptService) Get(ctx context.Context, id string) (*domain.ScriptView, error) {
	sc, err := repo.GetScript(ctx, s.DB, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrScriptNotFound)
	}
	v := sc.View()
	return &v, nil
}

// ListPage returns a page of script views and the total matching f.
func (s *ScriptService) ListPage(ctx context.Context, f repo.ScriptFilter, page, pageSize int) ([]domain.ScriptView, int64, error) {
	ctx, span := otel.Tracer("services/ScriptService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("product.id", f.ProductID),
			attribute.String("status", f.Status),
			attribute.Int("page", page),
		),
	)
	defer span.End()

	if f.Status != "" && !domain.ValidScriptStatus(f.Status) {
		return nil, 0, ErrInvalidStatus
	}
	_, pageSize, offset := pageBounds(page, pageSize)
	total, err := repo.CountScripts(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ScriptView{}, 0, nil
	}
	items, err := repo.ListScriptsPage(ctx, s.DB, f, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.ScriptView, 0, len(items))
	for i := range items {
		out = append(out, items[i].View())
	}
	return out, total, nil
}

// Update applies p to script id. Section edits replace the section's script
// text and keep its title, target and tips.
func (s *ScriptService) Update(ctx context.Context, id string, p ScriptPatch) (*domain.ScriptView, error) {
	ctx, span := otel.Tracer("services/ScriptService").Start(ctx, "Update",
		trace.WithAttributes(attribute.String("script.id", id)),
	)
	defer span.End()

	sc, err := repo.GetScript(ctx, s.DB, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrScriptNotFound)
	}

	if p.Title != nil {
		t := clip(normalizeText(*p.Title), titleMaxLen)
		if t == "" {
			return nil, ErrNameRequired
		}
		sc.Title = t
	}
	if p.Status != nil {
		st := strings.ToLower(strings.TrimSpace(*p.Status))
		if !domain.ValidScriptStatus(st) {
			return nil, ErrInvalidStatus
		}
		sc.Status = st
	}
	if p.QualityScore != nil {
		q := *p.QualityScore
		if q < 0 || q > 10 {
			return nil, ErrInvalidQualityScore
		}
		sc.QualityScore = &q
	}
	if p.TargetAudience != nil {
		sc.TargetAudience = normalizeText(*p.TargetAudience)
	}
	for key, text := range p.Sections {
		sec := key
		if !domain.ValidSectionKey(sec) {
			mapped, ok := domain.SectionForLegacy(key)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrInvalidSection, key)
			}
			sec = mapped
		}
		sc.SetSectionText(sec, text)
	}

	if err := repo.UpdateScript(ctx, s.DB, sc); err != nil {
		return nil, mapRepoErr(err, ErrScriptNotFound)
	}
	v := sc.View()
	return &v, nil
}

// Delete removes script id.
func (s *ScriptService) Delete(ctx context.Context, id string) error {
	return mapRepoErr(repo.DeleteScript(ctx, s.DB, id), ErrScriptNotFound)
}

// Stats backs list ETags.
func (s *ScriptService) Stats(ctx context.Context, f repo.ScriptFilter) (int64, string, error) {
	return statsTag(repo.ScriptsStats(ctx, s.DB, f))
}

// Export renders script id as Markdown or as a standalone HTML page and
// returns the body with its content type.
func (s *ScriptService) Export(ctx context.Context, id, format string) ([]byte, string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == "md" {
		format = FormatMarkdown
	}
	if format != FormatMarkdown && format != FormatHTML {
		return nil, "", ErrInvalidExportFormat
	}

	sc, err := repo.GetScript(ctx, s.DB, id)
	if err != nil {
		return nil, "", mapRepoErr(err, ErrScriptNotFound)
	}
	md := ScriptMarkdown(sc)
	if format == FormatMarkdown {
		return []byte(md), "text/markdown; charset=utf-8", nil
	}

	renderer := s.md
	if renderer == nil {
		renderer = goldmark.New()
	}
	var body bytes.Buffer
	if err := renderer.Convert([]byte(md), &body); err != nil {
		return nil, "", err
	}
	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html lang=\"zh-CN\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(sc.Title))
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), "text/html; charset=utf-8", nil
}

// ScriptMarkdown lays a script out as Markdown: metadata, the five sections
// with their tips, then notes. Scripts without sections fall back to the
// legacy fields or the raw model output.
func ScriptMarkdown(sc *domain.Script) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", sc.Title)
	if sc.TargetAudience != "" {
		fmt.Fprintf(&b, "- 目标人群：%s\n", sc.TargetAudience)
	}
	fmt.Fprintf(&b, "- 直播时长：%d 分钟\n", sc.Duration)
	if sc.EstimatedDuration != "" {
		fmt.Fprintf(&b, "- 预计时长：%s\n", sc.EstimatedDuration)
	}
	if sc.ComplianceStatus != "" {
		fmt.Fprintf(&b, "- 合规状态：%s\n", sc.ComplianceStatus)
	}
	b.WriteString("\n")

	switch {
	case sc.HasSections():
		for _, key := range domain.SectionKeys {
			sec := sc.Section(key)
			if sec == nil {
				continue
			}
			fmt.Fprintf(&b, "## %s\n\n", sec.Title)
			if sec.Target != "" {
				fmt.Fprintf(&b, "**目标：** %s\n\n", sec.Target)
			}
			fmt.Fprintf(&b, "%s\n\n", sec.Script)
			for _, tip := range sectionTips(sec) {
				fmt.Fprintf(&b, "- %s\n", tip)
			}
			if len(sectionTips(sec)) > 0 {
				b.WriteString("\n")
			}
		}
	case len(sc.LegacyContent) > 0:
		v := sc.Legacy()
		for _, f := range []struct {
			label string
			text  *string
		}{
			{"开场", v.Opening}, {"产品介绍", v.ProductIntro}, {"卖点", v.SellingPoints},
			{"促销", v.Promotions}, {"收尾", v.Closing}, {"常见问题", v.FAQ},
		} {
			if f.text != nil {
				fmt.Fprintf(&b, "## %s\n\n%s\n\n", f.label, *f.text)
			}
		}
	case sc.RawContent != "":
		fence := codeFence(sc.RawContent)
		fmt.Fprintf(&b, "## 原始输出\n\n%s\n%s\n%s\n\n", fence, sc.RawContent, fence)
	}

	writeList(&b, "合规提示", sc.ComplianceNotes)
	writeList(&b, "算法建议", sc.AlgorithmTips)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// codeFence returns a backtick fence longer than any backtick run in text.
func codeFence(text string) string {
	longest, run := 0, 0
	for i := 0; i < len(text); i++ {
		if text[i] != '`' {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

func sectionTips(s *domain.Section) []string {
	var out []string
	for _, l := range [][]string{s.KeyPoints, s.InteractionTips, s.ValuePoints, s.UrgencyTechniques, s.Phrases} {
		out = append(out, l...)
	}
	return out
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}
