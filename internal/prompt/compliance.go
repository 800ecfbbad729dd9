package prompt

import (
	"strings"

	"github.com/agristream/livescript/internal/domain"
)

// ComplianceSystemPrompt frames the audit call.
const ComplianceSystemPrompt = "你是一名熟悉《广告法》和直播电商平台规则的合规审核员。你只输出合法的 JSON。"

const complianceTask = `请审核下面的直播带货话术，逐条检查以下规则：
1. 不得使用绝对化用语（如"最""第一""国家级""100%"等）；
2. 不得宣称未经证实的功效，不得涉及疾病治疗或医疗效果；
3. 不得贬低其他品牌或商品；
4. 不得编造销量、好评率等数据；
5. 不得出现本商品的禁用词。

status 取值：pass（无问题）、warning（存在轻微风险）、fail（存在明确违规）。
score 为 0 到 100 的整数，分数越高越合规。
issues 中每一项说明问题类型、原文片段、所在位置、修改建议和严重程度（low/medium/high）。
只输出一个 JSON 对象，不要输出任何解释或 Markdown。`

// ComposeCompliance renders the audit prompt for scriptText.
func ComposeCompliance(scriptText string, prohibitedWords []string) string {
	var b strings.Builder
	b.WriteString(complianceTask)
	b.WriteString("\n\n## 输出 JSON Schema\n")
	b.WriteString(complianceSchema)
	b.WriteString("\n\n## 本商品禁用词\n")
	fence(&b, "prohibited", ProhibitedText(prohibitedWords))
	b.WriteString("\n\n## 待审核话术\n")
	text := strings.TrimSpace(scriptText)
	if text == "" {
		text = None
	}
	fence(&b, "script", text)
	b.WriteString("\n")
	return b.String()
}

// AssembleScriptText joins the legacy view's five texts into one labelled
// block, skipping empty ones.
func AssembleScriptText(v domain.LegacyView) string {
	parts := []struct {
		label string
		text  *string
	}{
		{"【开场】", v.Opening},
		{"【产品介绍】", v.ProductIntro},
		{"【卖点】", v.SellingPoints},
		{"【促销】", v.Promotions},
		{"【收尾】", v.Closing},
	}
	var out []string
	for _, p := range parts {
		if p.text == nil || strings.TrimSpace(*p.text) == "" {
			continue
		}
		out = append(out, p.label+"\n"+strings.TrimSpace(*p.text))
	}
	return strings.Join(out, "\n\n")
}
