package prompt

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// The types below describe the object the model is asked to return. They
// exist only to reflect a JSON schema into the prompt; parsing is lenient
// and lives in domain.ScriptFromOutput.

type warmUpOutput struct {
	Title     string   `json:"title" jsonschema_description:"段落标题"`
	Target    string   `json:"target" jsonschema_description:"本段目标"`
	Script    string   `json:"script" jsonschema_description:"主播可直接朗读的完整话术"`
	KeyPoints []string `json:"keyPoints" jsonschema_description:"暖场要点"`
}

type retentionOutput struct {
	Title           string   `json:"title"`
	Target          string   `json:"target"`
	Script          string   `json:"script"`
	InteractionTips []string `json:"interactionTips" jsonschema_description:"互动技巧"`
}

type lockCustomerOutput struct {
	Title       string   `json:"title"`
	Target      string   `json:"target"`
	Script      string   `json:"script"`
	ValuePoints []string `json:"valuePoints" jsonschema_description:"价值点"`
}

type pushOrderOutput struct {
	Title             string   `json:"title"`
	Target            string   `json:"target"`
	Script            string   `json:"script"`
	UrgencyTechniques []string `json:"urgencyTechniques" jsonschema_description:"促单技巧"`
}

type atmosphereOutput struct {
	Title   string   `json:"title"`
	Target  string   `json:"target"`
	Script  string   `json:"script"`
	Phrases []string `json:"phrases" jsonschema_description:"气氛金句"`
}

type scriptOutput struct {
	WarmUp            warmUpOutput       `json:"warmUp"`
	Retention         retentionOutput    `json:"retention"`
	LockCustomer      lockCustomerOutput `json:"lockCustomer"`
	PushOrder         pushOrderOutput    `json:"pushOrder"`
	Atmosphere        atmosphereOutput   `json:"atmosphere"`
	ComplianceNotes   []string           `json:"complianceNotes" jsonschema_description:"合规提醒"`
	EstimatedDuration string             `json:"estimatedDuration" jsonschema_description:"预计时长，例如 30分钟"`
	AlgorithmTips     []string           `json:"algorithmTips" jsonschema_description:"平台流量算法建议"`
}

type complianceOutput struct {
	Status string `json:"status" jsonschema:"enum=pass,enum=warning,enum=fail"`
	Score  int    `json:"score" jsonschema:"minimum=0,maximum=100"`
	Issues []struct {
		Type       string `json:"type"`
		Content    string `json:"content"`
		Position   string `json:"position"`
		Suggestion string `json:"suggestion"`
		Severity   string `json:"severity" jsonschema:"enum=low,enum=medium,enum=high"`
	} `json:"issues"`
	Summary string `json:"summary"`
}

func generateSchema[T any]() string {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	b, err := json.MarshalIndent(reflector.Reflect(v), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

var (
	scriptSchema     = generateSchema[scriptOutput]()
	complianceSchema = generateSchema[complianceOutput]()
)
