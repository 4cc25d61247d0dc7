package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oscap-tools/hardenplan/internal/models"
	"github.com/spf13/cobra"
)

// maxExprCell bounds a CEL expression in a Markdown table cell
const maxExprCell = 120

var policyExplainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Describe what a gate checks and what each failure does",
	Long: `List the rules of a gate with their control references, CEL expression and
the effect a failure has on the run (fail or warn) under the gate's mode.
The gate is compiled first, so a broken gate is reported instead of explained.

Example:
  hardenplan policy explain --preset strict
  hardenplan policy explain --preset baseline --json
  hardenplan policy explain --policy ./gate.yaml --output gate.md`,
	Args: cobra.NoArgs,
	RunE: runPolicyExplain,
}

var (
	explainPreset string
	explainPolicy string
	explainJSON   bool
	explainOutput string
)

func init() {
	policyExplainCmd.Flags().StringVar(&explainPreset, "preset", "", "Built-in gate: baseline (default) or strict")
	policyExplainCmd.Flags().StringVarP(&explainPolicy, "policy", "P", "", "Gate policy YAML file")
	policyExplainCmd.Flags().BoolVar(&explainJSON, "json", false, "Output JSON instead of Markdown")
	policyExplainCmd.Flags().StringVarP(&explainOutput, "output", "o", "", "Write to file instead of stdout")
	policyExplainCmd.MarkFlagsMutuallyExclusive("preset", "policy")
	policyCmd.AddCommand(policyExplainCmd)
}

// ExplainOutput is the JSON form of policy explain.
type ExplainOutput struct {
	SchemaVersion string        `json:"schema_version"`
	Gate          string        `json:"gate"`
	Source        ExplainSource `json:"source"`
	GeneratedAt   string        `json:"generated_at"`
	Mode          string        `json:"mode"`
	Rules         []ExplainRule `json:"rules"`
}

type ExplainSource struct {
	Type string `json:"type"` // preset or file
	Name string `json:"name"`
}

type ExplainRule struct {
	Name     string `json:"name"`
	Severity string `json:"severity"`
	// Effect of a failure on the verdict: fail or warn
	Effect      string   `json:"effect"`
	Expr        string   `json:"expr"`
	FailureMsg  string   `json:"failure_msg"`
	ControlRefs []string `json:"control_refs"`
}

func runPolicyExplain(cmd *cobra.Command, _ []string) error {
	source := ExplainSource{Type: "file", Name: explainPolicy}
	preset := explainPreset
	if explainPolicy == "" {
		if preset == "" {
			preset = "baseline"
		}
		source = ExplainSource{Type: "preset", Name: preset}
	}

	gate, err := prepareGate(explainPolicy, preset)
	if err != nil {
		return err
	}

	var out string
	if explainJSON {
		if out, err = generateExplainJSON(gate.config, source); err != nil {
			return err
		}
	} else {
		out = generateExplainMarkdown(gate.config, source)
	}

	if explainOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}
	if err := os.WriteFile(explainOutput, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", explainOutput, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Gate explanation written to %s\n", explainOutput)
	return nil
}

// failureEffect mirrors policy.Decide: error rules always fail the run,
// warn rules only under strict mode.
func failureEffect(mode models.GateMode, rule models.GateRule) string {
	if rule.EffectiveSeverity() == models.GateSeverityWarn && mode != models.GateModeStrict {
		return "warn"
	}
	return "fail"
}

func explainRules(config *models.GateConfig) []ExplainRule {
	rules := make([]ExplainRule, 0, len(config.Rules))
	for _, rule := range config.Rules {
		refs := rule.ControlRefs
		if refs == nil {
			refs = []string{}
		}
		rules = append(rules, ExplainRule{
			Name:        rule.Name,
			Severity:    string(rule.EffectiveSeverity()),
			Effect:      failureEffect(config.Mode, rule),
			Expr:        rule.Expr,
			FailureMsg:  rule.FailureMsg,
			ControlRefs: refs,
		})
	}
	return rules
}

func generateExplainJSON(config *models.GateConfig, source ExplainSource) (string, error) {
	data, err := json.MarshalIndent(ExplainOutput{
		SchemaVersion: "1.0",
		Gate:          config.Name,
		Source:        source,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		Mode:          string(config.Mode),
		Rules:         explainRules(config),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal gate explanation: %w", err)
	}
	return string(data) + "\n", nil
}

func generateExplainMarkdown(config *models.GateConfig, source ExplainSource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Gate: %s\n\n", config.Name)
	fmt.Fprintf(&b, "**Source**: %s (`%s`)\n\n", source.Type, source.Name)
	fmt.Fprintf(&b, "**Mode**: %s\n\n", config.Mode)

	b.WriteString("| Rule | Severity | On failure | Control Refs | Failure | Expr |\n")
	b.WriteString("|------|----------|------------|--------------|---------|------|\n")
	for _, r := range explainRules(config) {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | `%s` |\n",
			mdCell(r.Name),
			r.Severity,
			r.Effect,
			mdCell(formatSliceForMD(r.ControlRefs)),
			mdCell(r.FailureMsg),
			mdCell(truncateExpr(r.Expr, maxExprCell)))
	}
	b.WriteString("\n")
	return b.String()
}

// mdCell escapes pipes, which CEL uses for ||, so table columns stay intact.
func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func formatSliceForMD(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// truncateExpr collapses whitespace and cuts on a rune boundary.
func truncateExpr(expr string, maxLen int) string {
	expr = strings.Join(strings.Fields(expr), " ")

	runes := []rune(expr)
	if len(runes) <= maxLen {
		return expr
	}
	return string(runes[:maxLen-1]) + "…"
}
