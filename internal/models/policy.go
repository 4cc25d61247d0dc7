package models

// GateSeverity of a failed gate rule
type GateSeverity string

const (
	GateSeverityError GateSeverity = "error"
	GateSeverityWarn  GateSeverity = "warn"
)

// GateMode decides whether warnings fail the run
type GateMode string

const (
	GateModeStrict GateMode = "strict"
	GateModeWarn   GateMode = "warn"
)

// GateConfig from yaml
type GateConfig struct {
	Name  string     `yaml:"name"`
	Mode  GateMode   `yaml:"mode,omitempty"`
	Rules []GateRule `yaml:"rules"`
}

// GateRule cel rule
type GateRule struct {
	Name        string       `yaml:"name"`
	Expr        string       `yaml:"expr"`
	FailureMsg  string       `yaml:"failure_msg"`
	Severity    GateSeverity `yaml:"severity,omitempty"`
	ControlRefs []string     `yaml:"control_refs,omitempty"`
}

// GateResult eval result
type GateResult struct {
	RuleName    string
	Passed      bool
	FailureMsg  string
	Severity    GateSeverity
	ControlRefs []string
}

// EffectiveSeverity defaults to error
func (r GateRule) EffectiveSeverity() GateSeverity {
	if r.Severity == "" {
		return GateSeverityError
	}
	return r.Severity
}
