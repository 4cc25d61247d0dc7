package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/oscap-tools/hardenplan/internal/models"
	"github.com/oscap-tools/hardenplan/internal/observability"
	"github.com/oscap-tools/hardenplan/internal/observability/logging"
	otelobs "github.com/oscap-tools/hardenplan/internal/observability/otel"
	"github.com/oscap-tools/hardenplan/internal/observability/receipt"
	"github.com/oscap-tools/hardenplan/internal/plan"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check the running system's mounts against rules",
	Long: `Builds a plan from the host mount table and runs a report-only pass of the
rules over it. Nothing on the host is changed.

Users and packages are not read from the host, so password rules report that
the root password cannot be checked.

Example:
  hardenplan audit --rules profile.rules
  hardenplan audit --rules profile.rules --bootloader-password-set --preset baseline --json`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

var (
	auditRules          string
	auditBootloaderPass bool
	auditOutput         string
	auditPolicy         string
	auditPreset         string
	auditJSON           bool
)

func init() {
	auditCmd.Flags().StringVarP(&auditRules, "rules", "r", "", "Path to the rules file (- for stdin)")
	auditCmd.Flags().BoolVar(&auditBootloaderPass, "bootloader-password-set", false, "Treat the boot loader as password protected")
	auditCmd.Flags().StringVarP(&auditOutput, "output", "o", "", "Write the plan built from the host to this path")
	auditCmd.Flags().StringVarP(&auditPolicy, "policy", "P", "", "Path to gate policy YAML (default gate: no fatal messages)")
	auditCmd.Flags().StringVar(&auditPreset, "preset", "", "Use built-in gate preset: baseline (warn-only) or strict (fail-closed)")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Output JSON instead of text")
	_ = auditCmd.MarkFlagRequired("rules")
	auditCmd.MarkFlagsMutuallyExclusive("policy", "preset")
}

// GetAuditCmd export
func GetAuditCmd() *cobra.Command {
	return auditCmd
}

// hostPlan is replaced in tests
var hostPlan = plan.FromHost

func runAudit(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "hardenplan audit", os.Args[1:])

	var report *models.EnforcementReport
	var rulesLoaded int
	var digest string
	var gateStatus, presetName string
	var hits []receipt.RuleHit
	defer func() {
		_ = sess.Finish(err,
			receipt.WithRules(auditRules),
			receipt.WithEnforcement(report, rulesLoaded),
			receipt.WithPlanDigests(digest, digest),
			receipt.WithPolicy(presetName, gateStatus, hits),
		)
	}()

	log := logging.From(ctx)
	start := time.Now()

	ctx, span := otelobs.StartSpan(ctx, "hardenplan.audit",
		attribute.String(otelobs.AttrOpID, observability.OpID(ctx)),
		attribute.String(otelobs.AttrCommand, "audit"),
		attribute.Bool(otelobs.AttrReportOnly, true),
	)
	defer func() { otelobs.EndSpan(span, err) }()

	log.Event(ctx, "audit.start", nil)

	var resultStatus string
	defer func() {
		log.Event(ctx, "audit.complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
		})
	}()

	gate, err := prepareGate(auditPolicy, auditPreset)
	if err != nil {
		resultStatus = "fail"
		return err
	}
	presetName = gate.preset

	data, _, err := loadRuleData(ctx, auditRules, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		resultStatus = "fail"
		return err
	}
	rulesLoaded = ruleCount(data)
	span.SetAttributes(attribute.Int(otelobs.AttrRules, rulesLoaded))

	p, err := hostPlan()
	if err != nil {
		resultStatus = "fail"
		return err
	}
	p.Bootloader.PasswordSet = auditBootloaderPass
	log.Debug("audit", "host plan built", "mount_points", len(p.Storage.MountPoints))

	if auditOutput != "" {
		if err := p.Save(auditOutput); err != nil {
			resultStatus = "fail"
			return err
		}
	}

	run, err := enforce(data, p, true)
	if err != nil {
		resultStatus = "fail"
		return err
	}
	report = run.report
	digest = run.before
	spanCounts(span, report)

	results, verdict, gateHits, err := gate.evaluate(report)
	if err != nil {
		resultStatus = "fail"
		return err
	}
	gateStatus = string(verdict)
	hits = gateHits

	result := BuildEvalResult(EvalInput{
		RulesPath:   auditRules,
		PlanPath:    "host",
		Report:      report,
		Diff:        run.diff,
		Gate:        gate.config,
		GatePreset:  gate.preset,
		GateResults: results,
		Verdict:     verdict,
		PlanBefore:  run.before,
		PlanAfter:   run.after,
	})
	if err := writeResult(cmd.OutOrStdout(), result, auditJSON); err != nil {
		resultStatus = "fail"
		return err
	}

	if result.Outcome == OutcomeFail {
		resultStatus = "fail"
		return fmt.Errorf("audit: %w", errGateFailed)
	}
	resultStatus = "success"
	return nil
}
