// Package receipt provides stable evidence artifacts for audit/compliance.
package receipt

// ReceiptSchemaVersion current
const ReceiptSchemaVersion = "1.0"

// Receipt structure
type Receipt struct {
	SchemaVersion string              `json:"schema_version"`
	OpID          string              `json:"op_id"`
	TsStart       string              `json:"ts_start"`
	TsEnd         string              `json:"ts_end"`
	Command       string              `json:"command"`
	Args          []string            `json:"args"`
	ArgsRedacted  bool                `json:"args_redacted,omitempty"`
	Result        Result              `json:"result"`
	Rules         *FileRef            `json:"rules,omitempty"`
	Plan          *FileRef            `json:"plan,omitempty"`
	Enforcement   *EnforcementSummary `json:"enforcement,omitempty"`
	Policy        *PolicySummary      `json:"policy,omitempty"`
}

// Result status
type Result struct {
	Status string `json:"status"` // "success" or "fail"
	Error  string `json:"error,omitempty"`
}

// FileRef input file with digest
type FileRef struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256,omitempty"`
}

// EnforcementSummary of one pass
type EnforcementSummary struct {
	ReportOnly bool   `json:"report_only"`
	Rules      int    `json:"rules"`
	Info       int    `json:"info"`
	Warning    int    `json:"warning"`
	Fatal      int    `json:"fatal"`
	Changes    int    `json:"changes"`
	PlanBefore string `json:"plan_before,omitempty"`
	PlanAfter  string `json:"plan_after,omitempty"`

	// Reverted is set when the run verified that revert restores the plan.
	Reverted *bool `json:"reverted,omitempty"`
}

// PolicySummary detail
type PolicySummary struct {
	Preset   string    `json:"preset,omitempty"` // baseline|strict|custom|default
	Status   string    `json:"status"`           // pass|warn|fail
	RulesHit []RuleHit `json:"rules_hit,omitempty"`
}

// RuleHit detail
type RuleHit struct {
	Name        string   `json:"name"`
	Severity    string   `json:"severity"` // warn|error
	ControlRefs []string `json:"control_refs,omitempty"`
}
