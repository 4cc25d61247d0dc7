package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/oscap-tools/hardenplan/internal/models"
	"github.com/oscap-tools/hardenplan/internal/observability"
)

// MaxErrorLength is the maximum length for error strings in receipts.
const MaxErrorLength = 2048

type writerKey struct{}

// WithWriter stores a receipt writer in the context.
func WithWriter(ctx context.Context, w Writer) context.Context {
	return context.WithValue(ctx, writerKey{}, w)
}

// From retrieves the receipt writer from context, nil if receipts are off.
func From(ctx context.Context) Writer {
	if w, ok := ctx.Value(writerKey{}).(Writer); ok {
		return w
	}
	return nil
}

// Session tracks command execution
type Session struct {
	ctx     context.Context
	start   time.Time
	command string
	args    []string
}

// Start session
func Start(ctx context.Context, cmd string, args []string) *Session {
	return &Session{
		ctx:     ctx,
		start:   time.Now(),
		command: cmd,
		args:    args,
	}
}

// Option configures receipt
type Option func(*Receipt)

// WithRules records the rules file and its digest.
func WithRules(path string) Option {
	return func(r *Receipt) {
		r.Rules = fileRef(path)
	}
}

// WithPlan records the plan file and its digest.
func WithPlan(path string) Option {
	return func(r *Receipt) {
		r.Plan = fileRef(path)
	}
}

// WithEnforcement records the outcome of an enforcement pass.
func WithEnforcement(report *models.EnforcementReport, rules int) Option {
	return func(r *Receipt) {
		if report == nil {
			return
		}
		r.Enforcement = &EnforcementSummary{
			ReportOnly: report.ReportOnly,
			Rules:      rules,
			Info:       report.Counts.Info,
			Warning:    report.Counts.Warning,
			Fatal:      report.Counts.Fatal,
			Changes:    report.Changes,
		}
	}
}

// WithRevertCheck records whether revert restored the original plan.
// Must follow WithEnforcement.
func WithRevertCheck(ok bool) Option {
	return func(r *Receipt) {
		if r.Enforcement != nil {
			r.Enforcement.Reverted = &ok
		}
	}
}

// WithPlanDigests records plan fingerprints before and after the pass.
// Must follow WithEnforcement.
func WithPlanDigests(before, after string) Option {
	return func(r *Receipt) {
		if r.Enforcement != nil {
			r.Enforcement.PlanBefore = before
			r.Enforcement.PlanAfter = after
		}
	}
}

// WithPolicy option
func WithPolicy(preset, status string, hits []RuleHit) Option {
	return func(r *Receipt) {
		if status == "" {
			return
		}
		r.Policy = &PolicySummary{
			Preset:   preset,
			Status:   status,
			RulesHit: hits,
		}
	}
}

// Finish and write receipt
func (s *Session) Finish(err error, opts ...Option) error {
	w := From(s.ctx)
	if w == nil {
		return nil
	}

	redactedArgs, wasRedacted := RedactArgs(s.args)

	r := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		OpID:          observability.OpID(s.ctx),
		TsStart:       s.start.Format(time.RFC3339Nano),
		TsEnd:         time.Now().Format(time.RFC3339Nano),
		Command:       s.command,
		Args:          redactedArgs,
		ArgsRedacted:  wasRedacted,
		Result:        Result{Status: "success"},
	}
	if err != nil {
		r.Result = Result{
			Status: "fail",
			Error:  truncateError(err.Error()),
		}
	}

	for _, opt := range opts {
		opt(&r)
	}

	return w.Write(r)
}

func fileRef(path string) *FileRef {
	if path == "" {
		return nil
	}
	ref := &FileRef{Path: path}
	if hash, err := computeSHA256(path); err == nil {
		ref.SHA256 = hash
	}
	return ref
}

// computeSHA256 helper
func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	return s[:MaxErrorLength-3] + "..."
}
