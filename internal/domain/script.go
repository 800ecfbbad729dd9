package domain

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Script statuses. Compliance outcomes are tracked separately in
// Script.ComplianceStatus.
const (
	ScriptDraft     = "draft"
	ScriptReviewed  = "reviewed"
	ScriptPublished = "published"
	ScriptArchived  = "archived"
)

// ValidScriptStatus reports whether s is a known script status.
func ValidScriptStatus(s string) bool {
	switch s {
	case ScriptDraft, ScriptReviewed, ScriptPublished, ScriptArchived:
		return true
	}
	return false
}

// Keys of the five canonical sections, in broadcast order.
const (
	SectionWarmUp       = "warmUp"
	SectionRetention    = "retention"
	SectionLockCustomer = "lockCustomer"
	SectionPushOrder    = "pushOrder"
	SectionAtmosphere   = "atmosphere"
)

// SectionKeys lists the canonical sections in broadcast order.
var SectionKeys = []string{SectionWarmUp, SectionRetention, SectionLockCustomer, SectionPushOrder, SectionAtmosphere}

// SectionTitles are the display titles used when a section has none.
var SectionTitles = map[string]string{
	SectionWarmUp:       "暖场开场",
	SectionRetention:    "留人互动",
	SectionLockCustomer: "锁客介绍",
	SectionPushOrder:    "逼单促成",
	SectionAtmosphere:   "气氛收尾",
}

// Section is one part of the five-section script. Only the list that
// belongs to the section kind is normally filled:
// warmUp→KeyPoints, retention→InteractionTips, lockCustomer→ValuePoints,
// pushOrder→UrgencyTechniques, atmosphere→Phrases.
type Section struct {
	Title             string   `json:"title"`
	Target            string   `json:"target"`
	Script            string   `json:"script"`
	KeyPoints         []string `json:"keyPoints,omitempty"`
	InteractionTips   []string `json:"interactionTips,omitempty"`
	ValuePoints       []string `json:"valuePoints,omitempty"`
	UrgencyTechniques []string `json:"urgencyTechniques,omitempty"`
	Phrases           []string `json:"phrases,omitempty"`
}

// tips returns every tip list entry of the section in a fixed order.
func (s *Section) tips() []string {
	var out []string
	for _, l := range [][]string{s.KeyPoints, s.InteractionTips, s.ValuePoints, s.UrgencyTechniques, s.Phrases} {
		out = append(out, l...)
	}
	return out
}

// normalize trims fields and guarantees a non-empty Script. It returns nil
// when the section carries no text at all.
func (s *Section) normalize(key string) *Section {
	if s == nil {
		return nil
	}
	s.Title = strings.TrimSpace(s.Title)
	s.Target = strings.TrimSpace(s.Target)
	s.Script = strings.TrimSpace(s.Script)
	if s.Script == "" {
		var parts []string
		if s.Target != "" {
			parts = append(parts, s.Target)
		}
		parts = append(parts, s.tips()...)
		s.Script = strings.TrimSpace(strings.Join(parts, "；"))
	}
	if s.Script == "" {
		s.Script = s.Title
	}
	if s.Script == "" {
		return nil
	}
	if s.Title == "" {
		s.Title = SectionTitles[key]
	}
	return s
}

// Legacy keys produced by older prompt versions.
const (
	LegacyOpening       = "opening"
	LegacyProductIntro  = "productIntro"
	LegacySellingPoints = "sellingPoints"
	LegacyPromotions    = "promotions"
	LegacyClosing       = "closing"
	LegacyFAQ           = "faq"
)

// legacySource maps each legacy field to the canonical section it mirrors.
var legacySource = map[string]string{
	LegacyOpening:       SectionWarmUp,
	LegacyProductIntro:  SectionLockCustomer,
	LegacySellingPoints: SectionRetention,
	LegacyPromotions:    SectionPushOrder,
	LegacyClosing:       SectionAtmosphere,
}

// LegacyContent keeps legacy-named values found in raw model output, used
// only as a fallback by the legacy projection.
type LegacyContent map[string]string

// Script is a generated livestream script. The five sections are the only
// stored content shape; the legacy flat shape is derived by Legacy.
type Script struct {
	ID              string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ProductID       string         `json:"productId"       gorm:"type:char(36);not null;index"`
	StyleTemplateID string         `json:"styleTemplateId" gorm:"type:char(36);not null;index"`
	Title           string         `json:"title"           gorm:"type:varchar(255);not null"`
	TargetAudience  string         `json:"targetAudience"  gorm:"type:varchar(255)"`
	Duration        int            `json:"duration"        gorm:"not null"`
	PromotionRules  datatypes.JSON `json:"promotionRules"`
	Status          string         `json:"status"          gorm:"type:varchar(16);not null;index"`
	QualityScore    *float64       `json:"qualityScore"`

	ComplianceStatus    string            `json:"complianceStatus"    gorm:"type:varchar(16);index"`
	ComplianceIssues    []ComplianceIssue `json:"complianceIssues"    gorm:"type:text;serializer:json"`
	ComplianceSummary   string            `json:"complianceSummary"   gorm:"type:text"`
	ComplianceCheckedAt *time.Time        `json:"complianceCheckedAt"`

	WarmUp       *Section `json:"warmUp"       gorm:"type:text;serializer:json"`
	Retention    *Section `json:"retention"    gorm:"type:text;serializer:json"`
	LockCustomer *Section `json:"lockCustomer" gorm:"type:text;serializer:json"`
	PushOrder    *Section `json:"pushOrder"    gorm:"type:text;serializer:json"`
	Atmosphere   *Section `json:"atmosphere"   gorm:"type:text;serializer:json"`

	ComplianceNotes   []string      `json:"complianceNotes"   gorm:"type:text;serializer:json"`
	EstimatedDuration string        `json:"estimatedDuration" gorm:"type:varchar(64)"`
	AlgorithmTips     []string      `json:"algorithmTips"     gorm:"type:text;serializer:json"`
	LegacyContent     LegacyContent `json:"legacyContent"     gorm:"type:text;serializer:json"`
	RawContent        string        `json:"rawContent"        gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for Script.
func (Script) TableName() string { return "scripts" }

// Section returns the section stored under key, or nil.
func (s *Script) Section(key string) *Section {
	switch key {
	case SectionWarmUp:
		return s.WarmUp
	case SectionRetention:
		return s.Retention
	case SectionLockCustomer:
		return s.LockCustomer
	case SectionPushOrder:
		return s.PushOrder
	case SectionAtmosphere:
		return s.Atmosphere
	}
	return nil
}

// SetSection stores sec under key after normalizing it. Unknown keys are
// ignored.
func (s *Script) SetSection(key string, sec *Section) {
	sec = sec.normalize(key)
	switch key {
	case SectionWarmUp:
		s.WarmUp = sec
	case SectionRetention:
		s.Retention = sec
	case SectionLockCustomer:
		s.LockCustomer = sec
	case SectionPushOrder:
		s.PushOrder = sec
	case SectionAtmosphere:
		s.Atmosphere = sec
	}
}

// SetSectionText replaces the script text of one section, creating the
// section when it does not exist yet. Blank text removes the section.
func (s *Script) SetSectionText(key, text string) {
	if strings.TrimSpace(text) == "" {
		s.SetSection(key, nil)
		return
	}
	cur := s.Section(key)
	next := &Section{}
	if cur != nil {
		c := *cur
		next = &c
	}
	next.Script = text
	s.SetSection(key, next)
}

// HasSections reports whether at least one canonical section is present.
func (s *Script) HasSections() bool {
	for _, k := range SectionKeys {
		if s.Section(k) != nil {
			return true
		}
	}
	return false
}

// LegacyView is the flat shape older clients read.
type LegacyView struct {
	Opening       *string `json:"opening"`
	ProductIntro  *string `json:"productIntro"`
	SellingPoints *string `json:"sellingPoints"`
	Promotions    *string `json:"promotions"`
	Closing       *string `json:"closing"`
	FAQ           *string `json:"faq"`
}

// Legacy projects the canonical sections onto the legacy flat shape. Each
// field copies the mirrored section's script, falls back to the raw legacy
// value, and is nil otherwise. FAQ has no canonical source.
func (s *Script) Legacy() LegacyView {
	pick := func(legacyKey string) *string {
		if src, ok := legacySource[legacyKey]; ok {
			if sec := s.Section(src); sec != nil && sec.Script != "" {
				v := sec.Script
				return &v
			}
		}
		if v, ok := s.LegacyContent[legacyKey]; ok && strings.TrimSpace(v) != "" {
			return &v
		}
		return nil
	}
	return LegacyView{
		Opening:       pick(LegacyOpening),
		ProductIntro:  pick(LegacyProductIntro),
		SellingPoints: pick(LegacySellingPoints),
		Promotions:    pick(LegacyPromotions),
		Closing:       pick(LegacyClosing),
		FAQ:           pick(LegacyFAQ),
	}
}

// ScriptView is the API representation of a Script: the stored fields plus
// the legacy flat fields at top level.
type ScriptView struct {
	ID                  string            `json:"id"`
	ProductID           string            `json:"productId"`
	StyleTemplateID     string            `json:"styleTemplateId"`
	Title               string            `json:"title"`
	TargetAudience      string            `json:"targetAudience"`
	Duration            int               `json:"duration"`
	PromotionRules      json.RawMessage   `json:"promotionRules"`
	Status              string            `json:"status"`
	QualityScore        *float64          `json:"qualityScore"`
	ComplianceStatus    string            `json:"complianceStatus,omitempty"`
	ComplianceIssues    []ComplianceIssue `json:"complianceIssues"`
	ComplianceSummary   string            `json:"complianceSummary,omitempty"`
	ComplianceCheckedAt *time.Time        `json:"complianceCheckedAt,omitempty"`

	WarmUp       *Section `json:"warmUp"`
	Retention    *Section `json:"retention"`
	LockCustomer *Section `json:"lockCustomer"`
	PushOrder    *Section `json:"pushOrder"`
	Atmosphere   *Section `json:"atmosphere"`

	ComplianceNotes   []string `json:"complianceNotes"`
	EstimatedDuration string   `json:"estimatedDuration,omitempty"`
	AlgorithmTips     []string `json:"algorithmTips"`

	LegacyView

	RawContent string    `json:"rawContent,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// View builds the API representation. It never mutates s.
func (s *Script) View() ScriptView {
	issues := s.ComplianceIssues
	if issues == nil {
		issues = []ComplianceIssue{}
	}
	return ScriptView{
		ID:                  s.ID,
		ProductID:           s.ProductID,
		StyleTemplateID:     s.StyleTemplateID,
		Title:               s.Title,
		TargetAudience:      s.TargetAudience,
		Duration:            s.Duration,
		PromotionRules:      RawJSON(s.PromotionRules),
		Status:              s.Status,
		QualityScore:        s.QualityScore,
		ComplianceStatus:    s.ComplianceStatus,
		ComplianceIssues:    issues,
		ComplianceSummary:   s.ComplianceSummary,
		ComplianceCheckedAt: s.ComplianceCheckedAt,
		WarmUp:              s.WarmUp,
		Retention:           s.Retention,
		LockCustomer:        s.LockCustomer,
		PushOrder:           s.PushOrder,
		Atmosphere:          s.Atmosphere,
		ComplianceNotes:     nonNil(s.ComplianceNotes),
		EstimatedDuration:   s.EstimatedDuration,
		AlgorithmTips:       nonNil(s.AlgorithmTips),
		LegacyView:          s.Legacy(),
		RawContent:          s.RawContent,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

// RawJSON returns b as a raw message, mapping empty input to JSON null.
func RawJSON(b []byte) json.RawMessage {
	if len(strings.TrimSpace(string(b))) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// sectionAliases lists accepted spellings for each canonical key.
var sectionAliases = map[string][]string{
	SectionWarmUp:       {"warmUp", "warm_up", "warmup"},
	SectionRetention:    {"retention"},
	SectionLockCustomer: {"lockCustomer", "lock_customer"},
	SectionPushOrder:    {"pushOrder", "push_order"},
	SectionAtmosphere:   {"atmosphere"},
}

var legacyAliases = map[string][]string{
	LegacyOpening:       {"opening"},
	LegacyProductIntro:  {"productIntro", "product_intro"},
	LegacySellingPoints: {"sellingPoints", "selling_points"},
	LegacyPromotions:    {"promotions"},
	LegacyClosing:       {"closing"},
	LegacyFAQ:           {"faq", "FAQ"},
}

// ScriptFromOutput maps parsed model output onto a new draft Script. When
// parsed is nil the whole model text is kept in RawContent. Identity fields
// (ids, title, scenario) are left for the caller.
func ScriptFromOutput(parsed map[string]any, raw string) *Script {
	s := &Script{Status: ScriptDraft}
	if parsed == nil {
		s.RawContent = raw
		return s
	}

	for _, key := range SectionKeys {
		if v, ok := lookup(parsed, sectionAliases[key]); ok {
			s.SetSection(key, decodeSection(v))
		}
	}

	if v, ok := parsed["complianceNotes"]; ok {
		s.ComplianceNotes = toStrings(v)
	}
	if v, ok := parsed["algorithmTips"]; ok {
		s.AlgorithmTips = toStrings(v)
	}
	if v, ok := parsed["estimatedDuration"]; ok {
		s.EstimatedDuration = textOf(v)
	}

	for key, aliases := range legacyAliases {
		if v, ok := lookup(parsed, aliases); ok {
			if t := strings.TrimSpace(textOf(v)); t != "" {
				if s.LegacyContent == nil {
					s.LegacyContent = LegacyContent{}
				}
				s.LegacyContent[key] = t
			}
		}
	}

	// An object with none of the known keys is kept verbatim.
	if !s.HasSections() && len(s.LegacyContent) == 0 {
		if v, ok := parsed["rawContent"]; ok {
			s.RawContent = textOf(v)
		} else {
			s.RawContent = raw
		}
	}
	return s
}

func lookup(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// decodeSection accepts either a section object or a bare string.
func decodeSection(v any) *Section {
	switch t := v.(type) {
	case string:
		return &Section{Script: t}
	case map[string]any:
		return &Section{
			Title:             textOf(t["title"]),
			Target:            textOf(t["target"]),
			Script:            firstText(t, "script", "content", "text"),
			KeyPoints:         toStrings(t["keyPoints"]),
			InteractionTips:   toStrings(t["interactionTips"]),
			ValuePoints:       toStrings(t["valuePoints"]),
			UrgencyTechniques: toStrings(t["urgencyTechniques"]),
			Phrases:           toStrings(t["phrases"]),
		}
	}
	return nil
}

// SectionForLegacy maps a legacy field name to the section that backs it.
// faq has no section.
func SectionForLegacy(key string) (string, bool) {
	s, ok := legacySource[key]
	return s, ok
}

// ValidSectionKey reports whether key names one of the five sections.
func ValidSectionKey(key string) bool {
	_, ok := SectionTitles[key]
	return ok
}
