package domain

import (
	"math"
	"strings"
)

// Compliance statuses.
const (
	CompliancePass    = "pass"
	ComplianceWarning = "warning"
	ComplianceFail    = "fail"
)

// ManualReviewSummary is the summary used when the audit output could not
// be read.
const ManualReviewSummary = "需要人工审核"

// FallbackScore is the score reported when the audit output could not be read.
const FallbackScore = 70

// ComplianceIssue is one finding of a compliance audit.
type ComplianceIssue struct {
	Type       string `json:"type"`
	Content    string `json:"content"`
	Position   string `json:"position"`
	Suggestion string `json:"suggestion"`
	Severity   string `json:"severity"`
}

// ComplianceReport is the result of auditing one script.
type ComplianceReport struct {
	Status     string            `json:"status"`
	Score      int               `json:"score"`
	Issues     []ComplianceIssue `json:"issues"`
	Summary    string            `json:"summary"`
	RawContent string            `json:"rawContent,omitempty"`
}

// FallbackComplianceReport is returned when the model text held no JSON
// object. raw is kept so a reviewer can read what the model said.
func FallbackComplianceReport(raw string) *ComplianceReport {
	return &ComplianceReport{
		Status:     ComplianceWarning,
		Score:      FallbackScore,
		Issues:     []ComplianceIssue{},
		Summary:    ManualReviewSummary,
		RawContent: raw,
	}
}

// Normalize forces the status into the known vocabulary and the score into
// [0,100].
func (r *ComplianceReport) Normalize() {
	switch r.Status {
	case CompliancePass, ComplianceWarning, ComplianceFail:
	default:
		r.Status = ComplianceWarning
	}
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > 100 {
		r.Score = 100
	}
	if r.Issues == nil {
		r.Issues = []ComplianceIssue{}
	}
}

// QualityScore maps the 0–100 audit score onto the 0–10 script scale.
func (r *ComplianceReport) QualityScore() float64 {
	return float64(r.Score) / 10
}

// ComplianceReportFromOutput builds a normalized report from parsed model
// output. A nil map yields the manual-review fallback.
func ComplianceReportFromOutput(parsed map[string]any, raw string) *ComplianceReport {
	if parsed == nil {
		return FallbackComplianceReport(raw)
	}
	r := &ComplianceReport{
		Status:  strings.ToLower(strings.TrimSpace(textOf(parsed["status"]))),
		Summary: strings.TrimSpace(textOf(parsed["summary"])),
	}
	if n, ok := toNumber(parsed["score"]); ok && !math.IsNaN(n) {
		r.Score = int(math.Round(math.Max(0, math.Min(100, n))))
	}
	if list, ok := parsed["issues"].([]any); ok {
		for _, it := range list {
			m, ok := it.(map[string]any)
			if !ok {
				if s := strings.TrimSpace(textOf(it)); s != "" {
					r.Issues = append(r.Issues, ComplianceIssue{Content: s})
				}
				continue
			}
			r.Issues = append(r.Issues, ComplianceIssue{
				Type:       textOf(m["type"]),
				Content:    textOf(m["content"]),
				Position:   textOf(m["position"]),
				Suggestion: textOf(m["suggestion"]),
				Severity:   textOf(m["severity"]),
			})
		}
	}
	r.Normalize()
	return r
}
