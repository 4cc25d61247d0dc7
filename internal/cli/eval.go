package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oscap-tools/hardenplan/internal/differ"
	"github.com/oscap-tools/hardenplan/internal/models"
	"github.com/oscap-tools/hardenplan/internal/observability"
	"github.com/oscap-tools/hardenplan/internal/observability/logging"
	otelobs "github.com/oscap-tools/hardenplan/internal/observability/otel"
	"github.com/oscap-tools/hardenplan/internal/observability/receipt"
	"github.com/oscap-tools/hardenplan/internal/plan"
	"github.com/oscap-tools/hardenplan/internal/policy"
	"github.com/oscap-tools/hardenplan/internal/rules"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Enforce rules on an installation plan",
	Long: `Runs one enforcement pass of the rules over a YAML installation plan, prints
the resulting messages and plan changes, and evaluates a gate policy.

Example:
  hardenplan eval --rules profile.rules --plan plan.yaml --output plan.hardened.yaml
  hardenplan eval --rules profile.rules --plan plan.yaml --report-only --preset strict --json`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

var (
	evalRules       string
	evalPlan        string
	evalReportOnly  bool
	evalOutput      string
	evalDiff        bool
	evalCheckRevert bool
	evalPolicy      string
	evalPreset      string
	evalJSON        bool
	evalBundle      string
	evalSignKey     string
)

func init() {
	evalCmd.Flags().StringVarP(&evalRules, "rules", "r", "", "Path to the rules file (- for stdin)")
	evalCmd.Flags().StringVarP(&evalPlan, "plan", "p", "", "Path to the installation plan YAML")
	evalCmd.Flags().BoolVar(&evalReportOnly, "report-only", false, "Report what would change without modifying the plan")
	evalCmd.Flags().StringVarP(&evalOutput, "output", "o", "", "Write the resulting plan to this path")
	evalCmd.Flags().BoolVar(&evalDiff, "diff", false, "Include the JSON patch of the plan changes")
	evalCmd.Flags().BoolVar(&evalCheckRevert, "check-revert", false, "Verify that reverting restores the original plan")
	evalCmd.Flags().StringVarP(&evalPolicy, "policy", "P", "", "Path to gate policy YAML (default gate: no fatal messages)")
	evalCmd.Flags().StringVar(&evalPreset, "preset", "", "Use built-in gate preset: baseline (warn-only) or strict (fail-closed)")
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "Output JSON instead of text")
	evalCmd.Flags().StringVar(&evalBundle, "bundle", "", "Write an evidence bundle (zip) of the run to this path")
	evalCmd.Flags().StringVar(&evalSignKey, "sign-key", "", "Sign the evidence bundle with this ed25519 private key")
	_ = evalCmd.MarkFlagRequired("rules")
	_ = evalCmd.MarkFlagRequired("plan")
	evalCmd.MarkFlagsMutuallyExclusive("policy", "preset")
}

// GetEvalCmd export
func GetEvalCmd() *cobra.Command {
	return evalCmd
}

// enforcement is the outcome of one pass over a plan
type enforcement struct {
	data     *rules.RuleData
	original *plan.Plan
	plan     *plan.Plan
	diff     *differ.Result
	report   *models.EnforcementReport

	// plan fingerprints around the pass
	before, after string
}

// enforce runs one pass of data over p and diffs the result against the
// untouched plan.
func enforce(data *rules.RuleData, p *plan.Plan, reportOnly bool) (*enforcement, error) {
	e := &enforcement{
		data:     data,
		original: p.Clone(),
		plan:     p,
	}

	msgs := data.EvalRules(p, reportOnly)

	diff, err := differ.Compare(e.original, p)
	if err != nil {
		return nil, err
	}
	e.diff = diff
	e.report = models.NewEnforcementReport(msgs, reportOnly, len(diff.Patch))

	if e.before, err = e.original.Fingerprint(); err != nil {
		return nil, err
	}
	if e.after, err = p.Fingerprint(); err != nil {
		return nil, err
	}
	return e, nil
}

// checkRevert reverts a copy of the enforced plan and reports whether it
// matches the original again.
func (e *enforcement) checkRevert() (bool, error) {
	reverted := e.plan.Clone()
	e.data.RevertChanges(reverted)

	diff, err := differ.Compare(e.original, reverted)
	if err != nil {
		return false, err
	}
	return !diff.HasChanges, nil
}

// gateRun is a compiled gate ready to evaluate
type gateRun struct {
	config *models.GateConfig
	preset string
	engine *policy.Engine
}

func prepareGate(path, preset string) (*gateRun, error) {
	config, err := policy.LoadWithPreset(path, preset)
	if err != nil {
		return nil, fmt.Errorf("failed to load gate: %w", err)
	}

	engine, err := policy.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to create gate engine: %w", err)
	}
	if err := engine.CompileAndValidate(config); err != nil {
		return nil, err
	}

	name := preset
	switch {
	case name != "":
	case path != "":
		name = "custom"
	default:
		name = "default"
	}
	return &gateRun{config: config, preset: name, engine: engine}, nil
}

func (g *gateRun) evaluate(report *models.EnforcementReport) ([]models.GateResult, policy.Verdict, []receipt.RuleHit, error) {
	results, err := g.engine.Evaluate(g.config, report)
	if err != nil {
		return nil, "", nil, fmt.Errorf("gate evaluation failed: %w", err)
	}

	var hits []receipt.RuleHit
	for _, r := range results {
		if !r.Passed {
			hits = append(hits, receipt.RuleHit{Name: r.RuleName, Severity: string(r.Severity), ControlRefs: r.ControlRefs})
		}
	}
	return results, policy.Decide(g.config, results), hits, nil
}

func spanCounts(span trace.Span, report *models.EnforcementReport) {
	span.SetAttributes(
		attribute.Int(otelobs.AttrInfo, report.Counts.Info),
		attribute.Int(otelobs.AttrWarning, report.Counts.Warning),
		attribute.Int(otelobs.AttrFatal, report.Counts.Fatal),
		attribute.Int(otelobs.AttrChanges, report.Changes),
	)
}

func writeResult(out io.Writer, result *EvalResult, asJSON bool) error {
	if asJSON {
		data, err := FormatJSONOutput(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err := fmt.Fprint(out, FormatTextOutput(result))
	return err
}

func runEval(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "hardenplan eval", os.Args[1:])

	var report *models.EnforcementReport
	var rulesLoaded int
	var reverted *bool
	var before, after string
	var gateStatus, presetName string
	var hits []receipt.RuleHit
	defer func() {
		opts := []receipt.Option{
			receipt.WithRules(evalRules),
			receipt.WithPlan(evalPlan),
			receipt.WithEnforcement(report, rulesLoaded),
		}
		if reverted != nil {
			opts = append(opts, receipt.WithRevertCheck(*reverted))
		}
		opts = append(opts, receipt.WithPlanDigests(before, after))
		opts = append(opts, receipt.WithPolicy(presetName, gateStatus, hits))
		_ = sess.Finish(err, opts...)
	}()

	log := logging.From(ctx)
	start := time.Now()

	// span before log.Event so trace_id is available
	ctx, span := otelobs.StartSpan(ctx, "hardenplan.eval",
		attribute.String(otelobs.AttrOpID, observability.OpID(ctx)),
		attribute.String(otelobs.AttrCommand, "eval"),
		attribute.Bool(otelobs.AttrReportOnly, evalReportOnly),
	)
	defer func() { otelobs.EndSpan(span, err) }()

	log.Event(ctx, "eval.start", map[string]any{"report_only": evalReportOnly})

	var resultStatus string
	defer func() {
		log.Event(ctx, "eval.complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
		})
	}()

	if evalSignKey != "" && evalBundle == "" {
		resultStatus = "fail"
		return fmt.Errorf("--sign-key requires --bundle")
	}

	gate, err := prepareGate(evalPolicy, evalPreset)
	if err != nil {
		resultStatus = "fail"
		return err
	}
	presetName = gate.preset

	data, _, err := loadRuleData(ctx, evalRules, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		resultStatus = "fail"
		return err
	}
	rulesLoaded = ruleCount(data)
	span.SetAttributes(attribute.Int(otelobs.AttrRules, rulesLoaded))

	p, err := plan.Load(evalPlan)
	if err != nil {
		resultStatus = "fail"
		return err
	}

	run, err := enforce(data, p, evalReportOnly)
	if err != nil {
		resultStatus = "fail"
		return err
	}
	report = run.report
	before, after = run.before, run.after
	spanCounts(span, report)

	if evalOutput != "" {
		if err := p.Save(evalOutput); err != nil {
			resultStatus = "fail"
			return err
		}
		log.Info("eval", "plan written", "path", evalOutput)
	}

	if evalCheckRevert {
		ok, err := run.checkRevert()
		if err != nil {
			resultStatus = "fail"
			return err
		}
		reverted = &ok
	}

	results, verdict, gateHits, err := gate.evaluate(report)
	if err != nil {
		resultStatus = "fail"
		return err
	}
	gateStatus = string(verdict)
	hits = gateHits

	result := BuildEvalResult(EvalInput{
		RulesPath:   evalRules,
		PlanPath:    evalPlan,
		Report:      report,
		Diff:        run.diff,
		IncludeDiff: evalDiff,
		Reverted:    reverted,
		Gate:        gate.config,
		GatePreset:  gate.preset,
		GateResults: results,
		Verdict:     verdict,
		PlanBefore:  run.before,
		PlanAfter:   run.after,
	})
	if err := writeResult(cmd.OutOrStdout(), result, evalJSON); err != nil {
		resultStatus = "fail"
		return err
	}

	if evalBundle != "" {
		if err := writeBundle(evalBundle, evalSignKey, run, gate.config, result); err != nil {
			resultStatus = "fail"
			return err
		}
		log.Info("eval", "bundle written", "path", evalBundle)
	}

	if result.Outcome == OutcomeFail {
		resultStatus = "fail"
		if reverted != nil && !*reverted {
			return fmt.Errorf("revert did not restore the original plan")
		}
		return errGateFailed
	}
	resultStatus = "success"
	return nil
}
