package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oscap-tools/hardenplan/internal/differ"
	"github.com/oscap-tools/hardenplan/internal/models"
	"github.com/oscap-tools/hardenplan/internal/policy"
	"github.com/wI2L/jsondiff"
)

const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorReset  = "\033[0m"
)

// Outcome values
const (
	OutcomePass = "PASS"
	OutcomeWarn = "WARN"
	OutcomeFail = "FAIL"
)

// EvalResult output structure
type EvalResult struct {
	Rules      string              `json:"rules"`
	Plan       string              `json:"plan"`
	ReportOnly bool                `json:"reportOnly"`
	Summary    EvalSummary         `json:"summary"`
	Messages   []MessageOutputItem `json:"messages"`
	Changes    []ChangeOutputItem  `json:"changes"`
	Patch      jsondiff.Patch      `json:"patch,omitempty"`
	Reverted   *bool               `json:"reverted,omitempty"`
	Digests    *PlanDigests        `json:"digests,omitempty"`
	Gate       *GateDecision       `json:"gate,omitempty"`
	Outcome    string              `json:"outcome"`
}

// EvalSummary by message kind
type EvalSummary struct {
	Info    int `json:"info"`
	Warning int `json:"warning"`
	Fatal   int `json:"fatal"`
	Changes int `json:"changes"`
}

// MessageOutputItem detail
type MessageOutputItem struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// ChangeOutputItem is one translated plan change
type ChangeOutputItem struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// PlanDigests are plan fingerprints around the pass
type PlanDigests struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// GateDecision result
type GateDecision struct {
	Name    string   `json:"name"`
	Preset  string   `json:"preset"`
	Verdict string   `json:"verdict"`
	Passed  []string `json:"passed,omitempty"`
	Reasons []string `json:"reasons,omitempty"`
}

// EvalInput collects everything one run produced
type EvalInput struct {
	RulesPath   string
	PlanPath    string
	Report      *models.EnforcementReport
	Diff        *differ.Result
	IncludeDiff bool
	Reverted    *bool
	Gate        *models.GateConfig
	GatePreset  string
	GateResults []models.GateResult
	Verdict     policy.Verdict
	PlanBefore  string
	PlanAfter   string
}

// BuildEvalResult from components
func BuildEvalResult(in EvalInput) *EvalResult {
	result := &EvalResult{
		Rules:    in.RulesPath,
		Plan:     in.PlanPath,
		Messages: []MessageOutputItem{},
		Changes:  []ChangeOutputItem{},
		Reverted: in.Reverted,
		Outcome:  OutcomePass,
	}
	if in.PlanBefore != "" || in.PlanAfter != "" {
		result.Digests = &PlanDigests{Before: in.PlanBefore, After: in.PlanAfter}
	}

	if in.Report != nil {
		result.ReportOnly = in.Report.ReportOnly
		result.Summary = EvalSummary{
			Info:    in.Report.Counts.Info,
			Warning: in.Report.Counts.Warning,
			Fatal:   in.Report.Counts.Fatal,
			Changes: in.Report.Changes,
		}
		for _, m := range in.Report.Messages {
			result.Messages = append(result.Messages, MessageOutputItem{Kind: m.Kind.String(), Text: m.Text})
		}
	}

	if in.Diff != nil {
		for _, c := range in.Diff.Changes {
			result.Changes = append(result.Changes, ChangeOutputItem{
				Type:     c.Type,
				Path:     c.Path,
				Severity: differ.SeverityString(c.Severity),
				Message:  c.Translation,
			})
		}
		if in.IncludeDiff {
			result.Patch = in.Diff.Patch
		}
	}

	if in.Gate != nil {
		decision := &GateDecision{
			Name:    in.Gate.Name,
			Preset:  in.GatePreset,
			Verdict: string(in.Verdict),
		}
		for _, gr := range in.GateResults {
			if gr.Passed {
				decision.Passed = append(decision.Passed, gr.RuleName)
				continue
			}
			decision.Reasons = append(decision.Reasons, fmt.Sprintf("%s [%s]: %s", gr.RuleName, gr.Severity, gr.FailureMsg))
		}
		result.Gate = decision

		switch in.Verdict {
		case policy.VerdictFail:
			result.Outcome = OutcomeFail
		case policy.VerdictWarn:
			result.Outcome = OutcomeWarn
		}
	}

	if in.Reverted != nil && !*in.Reverted {
		result.Outcome = OutcomeFail
	}

	return result
}

// FormatTextOutput human readable
func FormatTextOutput(result *EvalResult) string {
	var sb strings.Builder

	gateName := "none"
	if result.Gate != nil {
		gateName = result.Gate.Preset
	}
	mode := "enforce"
	if result.ReportOnly {
		mode = "report-only"
	}

	switch result.Outcome {
	case OutcomePass:
		sb.WriteString(fmt.Sprintf("%shardenplan: PASS%s (gate=%s, mode=%s)\n", colorGreen, colorReset, gateName, mode))
	case OutcomeWarn:
		sb.WriteString(fmt.Sprintf("%shardenplan: WARN%s (gate=%s, mode=%s)\n", colorYellow, colorReset, gateName, mode))
	default:
		sb.WriteString(fmt.Sprintf("%shardenplan: FAIL%s (gate=%s, mode=%s)\n", colorRed, colorReset, gateName, mode))
	}
	sb.WriteString(fmt.Sprintf("Rules: %s\n", result.Rules))
	sb.WriteString(fmt.Sprintf("Plan: %s\n", result.Plan))
	if d := result.Digests; d != nil {
		if d.Before == d.After {
			sb.WriteString(fmt.Sprintf("Digest: %s\n", d.Before))
		} else {
			sb.WriteString(fmt.Sprintf("Digest: %s -> %s\n", d.Before, d.After))
		}
	}
	sb.WriteString("\n")

	if len(result.Messages) == 0 {
		sb.WriteString(fmt.Sprintf("%s✓ Plan complies with all rules%s\n\n", colorGreen, colorReset))
	} else {
		groups := groupMessagesByKind(result.Messages)
		writeMessageGroup(&sb, "FATAL", groups["fatal"], colorRed)
		writeMessageGroup(&sb, "WARNING", groups["warning"], colorYellow)
		writeMessageGroup(&sb, "INFO", groups["info"], "")
	}

	if len(result.Changes) > 0 {
		sb.WriteString(fmt.Sprintf("%sPlan changes (%d)%s\n", colorBold, len(result.Changes), colorReset))
		for _, c := range result.Changes {
			color := ""
			switch c.Severity {
			case "critical":
				color = colorRed
			case "moderate":
				color = colorYellow
			}
			sb.WriteString(fmt.Sprintf("%s- %s%s\n", color, c.Message, colorResetIf(color)))
		}
		sb.WriteString("\n")
	}

	if len(result.Patch) > 0 {
		sb.WriteString(fmt.Sprintf("%sJSON patch%s\n", colorBold, colorReset))
		sb.WriteString(differ.FormatPatch(result.Patch))
		sb.WriteString("\n")
	}

	if result.Reverted != nil {
		if *result.Reverted {
			sb.WriteString(fmt.Sprintf("Revert: %sOK%s (plan restored)\n", colorGreen, colorReset))
		} else {
			sb.WriteString(fmt.Sprintf("Revert: %sFAILED%s (plan differs from the original)\n", colorRed, colorReset))
		}
	}

	if result.Gate != nil {
		switch policy.Verdict(result.Gate.Verdict) {
		case policy.VerdictPass:
			sb.WriteString(fmt.Sprintf("Gate %q: %sPASS%s\n", result.Gate.Name, colorGreen, colorReset))
		case policy.VerdictWarn:
			sb.WriteString(fmt.Sprintf("Gate %q: %sWARN%s\n", result.Gate.Name, colorYellow, colorReset))
		default:
			sb.WriteString(fmt.Sprintf("Gate %q: %sDENY%s\n", result.Gate.Name, colorRed, colorReset))
		}
		for _, reason := range result.Gate.Reasons {
			sb.WriteString(fmt.Sprintf("- %s\n", reason))
		}
	}

	return sb.String()
}

// groupMessagesByKind keeps evaluation order within each group
func groupMessagesByKind(msgs []MessageOutputItem) map[string][]MessageOutputItem {
	groups := map[string][]MessageOutputItem{
		"fatal":   {},
		"warning": {},
		"info":    {},
	}
	for _, m := range msgs {
		groups[m.Kind] = append(groups[m.Kind], m)
	}
	return groups
}

func writeMessageGroup(sb *strings.Builder, title string, msgs []MessageOutputItem, color string) {
	if len(msgs) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("%s%s (%d)%s\n", color, title, len(msgs), colorResetIf(color)))
	for _, m := range msgs {
		sb.WriteString(fmt.Sprintf("- %s\n", m.Text))
	}
	sb.WriteString("\n")
}

func colorResetIf(color string) string {
	if color == "" {
		return ""
	}
	return colorReset
}

// FormatJSONOutput raw json
func FormatJSONOutput(result *EvalResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}
