package policy

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/oscap-tools/hardenplan/internal/models"
)

// costLimit bounds the work a single gate expression may do
const costLimit = 1_000_000

// Engine is the gate evaluation engine using CEL
type Engine struct {
	env *cel.Env
}

func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{env: env}, nil
}

// Evaluate checks every gate rule against an enforcement report
func (e *Engine) Evaluate(config *models.GateConfig, report *models.EnforcementReport) ([]models.GateResult, error) {
	if report == nil {
		return nil, fmt.Errorf("no enforcement report")
	}

	results := make([]models.GateResult, 0, len(config.Rules))
	input := reportToMap(report)

	for _, rule := range config.Rules {
		results = append(results, e.evaluateRule(rule, input))
	}

	return results, nil
}

// evaluateRule never returns an error; broken rules fail closed
func (e *Engine) evaluateRule(rule models.GateRule, input map[string]interface{}) models.GateResult {
	failed := func(format string, args ...any) models.GateResult {
		return models.GateResult{
			RuleName:    rule.Name,
			Passed:      false,
			FailureMsg:  fmt.Sprintf(format, args...),
			Severity:    rule.EffectiveSeverity(),
			ControlRefs: rule.ControlRefs,
		}
	}

	// compile
	ast, issues := e.env.Compile(rule.Expr)
	if issues != nil && issues.Err() != nil {
		return failed("CEL compile error: %v", issues.Err())
	}

	// program
	prg, err := e.env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return failed("CEL program error: %v", err)
	}

	// eval
	out, _, err := prg.Eval(map[string]interface{}{
		"input": input,
	})
	if err != nil {
		return failed("CEL evaluation error: %v", err)
	}

	// check bool
	passed, ok := out.Value().(bool)
	if !ok {
		return failed("Rule expression must return boolean, got %T", out.Value())
	}

	result := models.GateResult{
		RuleName:    rule.Name,
		Passed:      passed,
		Severity:    rule.EffectiveSeverity(),
		ControlRefs: rule.ControlRefs,
	}
	if !passed {
		result.FailureMsg = rule.FailureMsg
	}

	return result
}

// reportToMap converts for CEL
func reportToMap(report *models.EnforcementReport) map[string]interface{} {
	messages := make([]interface{}, len(report.Messages))
	for i, m := range report.Messages {
		messages[i] = map[string]interface{}{
			"kind": m.Kind.String(),
			"text": m.Text,
		}
	}

	return map[string]interface{}{
		"messages": messages,
		"counts": map[string]interface{}{
			"info":    int64(report.Counts.Info),
			"warning": int64(report.Counts.Warning),
			"fatal":   int64(report.Counts.Fatal),
		},
		"report_only": report.ReportOnly,
		"changes":     int64(report.Changes),
	}
}

// CompileAndValidate
func (e *Engine) CompileAndValidate(config *models.GateConfig) error {
	var errors []string

	for _, rule := range config.Rules {
		ast, issues := e.env.Compile(rule.Expr)
		if issues != nil && issues.Err() != nil {
			errors = append(errors, fmt.Sprintf("rule %q: %v", rule.Name, issues.Err()))
			continue
		}
		if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
			errors = append(errors, fmt.Sprintf("rule %q: expression must return bool, got %s", rule.Name, ast.OutputType()))
		}
		switch rule.Severity {
		case "", models.GateSeverityError, models.GateSeverityWarn:
		default:
			errors = append(errors, fmt.Sprintf("rule %q: unknown severity %q", rule.Name, rule.Severity))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("gate validation failed:\n  %s", strings.Join(errors, "\n  "))
	}

	return nil
}

// Verdict of a gate run
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictWarn Verdict = "warn"
	VerdictFail Verdict = "fail"
)

// Decide folds rule results into a verdict. Failed error rules always fail;
// failed warn rules fail only in strict mode.
func Decide(config *models.GateConfig, results []models.GateResult) Verdict {
	hasErrors, hasWarnings := false, false
	for _, r := range results {
		if r.Passed {
			continue
		}
		if r.Severity == models.GateSeverityWarn {
			hasWarnings = true
		} else {
			hasErrors = true
		}
	}

	switch {
	case hasErrors:
		return VerdictFail
	case hasWarnings && config.Mode == models.GateModeWarn:
		return VerdictWarn
	case hasWarnings:
		return VerdictFail
	default:
		return VerdictPass
	}
}
