package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/repo"
)

func newScriptFixture(t *testing.T) (*ScriptService, *domain.Script) {
	t.Helper()
	db := newTestDB(t)
	sc := &domain.Script{ProductID: "p1", StyleTemplateID: "t1", Title: "脐橙 <专场>", Duration: 30, TargetAudience: "宝妈"}
	sc.SetSection(domain.SectionWarmUp, &domain.Section{Script: "欢迎来到直播间", KeyPoints: []string{"点赞关注"}})
	sc.SetSection(domain.SectionLockCustomer, &domain.Section{Target: "建立信任", Script: "赣南原产地直发"})
	sc.ComplianceNotes = []string{"不说最"}
	mustScript(t, db, sc)
	return NewScriptService(db), sc
}

func TestScriptService_GetIncludesLegacy(t *testing.T) {
	svc, sc := newScriptFixture(t)
	v, err := svc.Get(context.Background(), sc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Opening == nil || *v.Opening != "欢迎来到直播间" {
		t.Fatalf("legacy opening = %v", v.Opening)
	}
	if v.ProductIntro == nil || *v.ProductIntro != "赣南原产地直发" {
		t.Fatalf("legacy productIntro = %v", v.ProductIntro)
	}
	if v.Closing != nil || v.FAQ != nil {
		t.Fatal("absent sections must project to null")
	}
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("want ErrScriptNotFound, got %v", err)
	}
}

func TestScriptService_Update(t *testing.T) {
	svc, sc := newScriptFixture(t)
	ctx := context.Background()

	v, err := svc.Update(ctx, sc.ID, ScriptPatch{
		Status:       strp("Reviewed"),
		QualityScore: f64p(8.5),
		Sections: map[string]string{
			domain.SectionLockCustomer: "改写后的介绍",
			domain.LegacyClosing:       "感谢陪伴",
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v.Status != domain.ScriptReviewed || *v.QualityScore != 8.5 {
		t.Fatalf("status/score = %q %v", v.Status, v.QualityScore)
	}
	if v.LockCustomer.Script != "改写后的介绍" || v.LockCustomer.Target != "建立信任" {
		t.Fatalf("lockCustomer = %+v", v.LockCustomer)
	}
	if v.Atmosphere == nil || v.Atmosphere.Script != "感谢陪伴" || v.Atmosphere.Title != domain.SectionTitles[domain.SectionAtmosphere] {
		t.Fatalf("legacy closing should create atmosphere: %+v", v.Atmosphere)
	}

	stored, _ := repo.GetScript(ctx, svc.DB, sc.ID)
	if stored.Atmosphere == nil || stored.Atmosphere.Script != "感谢陪伴" {
		t.Fatal("section edit not persisted")
	}

	bad := []struct {
		patch ScriptPatch
		want  error
	}{
		{ScriptPatch{Status: strp("live")}, ErrInvalidStatus},
		{ScriptPatch{QualityScore: f64p(11)}, ErrInvalidQualityScore},
		{ScriptPatch{Title: strp("  ")}, ErrNameRequired},
		{ScriptPatch{Sections: map[string]string{"faq": "x"}}, ErrInvalidSection},
	}
	for _, tc := range bad {
		if _, err := svc.Update(ctx, sc.ID, tc.patch); !errors.Is(err, tc.want) {
			t.Fatalf("patch %+v: want %v, got %v", tc.patch, tc.want, err)
		}
	}
}

func TestScriptService_Export(t *testing.T) {
	svc, sc := newScriptFixture(t)
	ctx := context.Background()

	md, ct, err := svc.Export(ctx, sc.ID, "")
	if err != nil {
		t.Fatalf("Export md: %v", err)
	}
	if !strings.HasPrefix(ct, "text/markdown") {
		t.Fatalf("content type = %q", ct)
	}
	for _, want := range []string{"# 脐橙 <专场>", "## 暖场开场", "- 点赞关注", "**目标：** 建立信任", "## 合规提示"} {
		if !strings.Contains(string(md), want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	page, ct, err := svc.Export(ctx, sc.ID, "HTML")
	if err != nil {
		t.Fatalf("Export html: %v", err)
	}
	if !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	s := string(page)
	if !strings.Contains(s, "<title>脐橙 &lt;专场&gt;</title>") || !strings.Contains(s, "<h2>暖场开场</h2>") {
		t.Fatalf("html = %s", s)
	}

	if _, _, err := svc.Export(ctx, sc.ID, "pdf"); !errors.Is(err, ErrInvalidExportFormat) {
		t.Fatalf("want ErrInvalidExportFormat, got %v", err)
	}
}

func TestScriptService_UpdateBlankSectionClearsIt(t *testing.T) {
	svc, sc := newScriptFixture(t)
	ctx := context.Background()

	v, err := svc.Update(ctx, sc.ID, ScriptPatch{Sections: map[string]string{domain.SectionLockCustomer: ""}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v.LockCustomer != nil {
		t.Fatalf("lockCustomer = %+v", v.LockCustomer)
	}
	stored, _ := repo.GetScript(ctx, svc.DB, sc.ID)
	if stored.LockCustomer != nil {
		t.Fatal("cleared section still persisted")
	}
}

func TestScriptMarkdown_RawFallback(t *testing.T) {
	md := ScriptMarkdown(&domain.Script{Title: "t", Duration: 30, RawContent: "模型原文"})
	if !strings.Contains(md, "## 原始输出") || !strings.Contains(md, "模型原文") {
		t.Fatalf("markdown = %s", md)
	}
}

func TestScriptMarkdown_RawFallbackOutrunsInnerFences(t *testing.T) {
	raw := "说明\n```json\n{\"a\":1}\n```\n结尾"
	md := ScriptMarkdown(&domain.Script{Title: "t", Duration: 30, RawContent: raw})
	if !strings.Contains(md, "````\n"+raw+"\n````") {
		t.Fatalf("markdown = %s", md)
	}
	if got := codeFence("plain"); got != "```" {
		t.Fatalf("codeFence(plain) = %q", got)
	}
}

func TestScriptService_ListAndDelete(t *testing.T) {
	svc, sc := newScriptFixture(t)
	ctx := context.Background()
	mustScript(t, svc.DB, &domain.Script{ProductID: "p2", StyleTemplateID: "t1", Status: domain.ScriptPublished})

	items, total, err := svc.ListPage(ctx, repo.ScriptFilter{ProductID: "p1"}, 1, 10)
	if err != nil || total != 1 || items[0].ID != sc.ID {
		t.Fatalf("list = %v %d %v", items, total, err)
	}
	_, total, _ = svc.ListPage(ctx, repo.ScriptFilter{Status: domain.ScriptPublished}, 1, 10)
	if total != 1 {
		t.Fatalf("status filter total = %d", total)
	}

	if err := svc.Delete(ctx, sc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, sc.ID); !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("want ErrScriptNotFound, got %v", err)
	}
}
