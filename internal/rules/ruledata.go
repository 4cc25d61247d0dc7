// Package rules parses remediation rule lines and enforces them against an
// installation plan.
package rules

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/oscap-tools/hardenplan/internal/models"
	"github.com/oscap-tools/hardenplan/internal/observability/logging"
)

const component = "rules"

// Enforcer is implemented by every rule container.
type Enforcer interface {
	// Eval returns the messages of one pass over plan. With reportOnly the
	// plan is left untouched.
	Eval(plan Plan, reportOnly bool) []models.Message
	// Revert undoes exactly what Eval changed.
	Revert(plan Plan)
	// String is the canonical rule text, empty when nothing is declared.
	String() string
}

var (
	_ Enforcer = (*PartRules)(nil)
	_ Enforcer = (*PasswdRules)(nil)
	_ Enforcer = (*PackageRules)(nil)
	_ Enforcer = (*BootloaderRules)(nil)
)

// keywordHandler stores one parsed line into its container
type keywordHandler struct {
	options  map[string]bool
	nargs    int
	store    func(d *RuleData, line Line) error
	argsName string
}

var handlers = map[string]keywordHandler{
	"part": {
		options:  map[string]bool{"mountoptions": true},
		nargs:    1,
		argsName: "mount point",
		store: func(d *RuleData, line Line) error {
			rule := d.partRules.EnsureMountPoint(line.Args[0])
			rule.AddMountOptions(line.Options["mountoptions"]...)
			return nil
		},
	},
	"passwd": {
		options: map[string]bool{"minlen": true},
		store: func(d *RuleData, line Line) error {
			value, ok := line.OptionValue("minlen")
			if !ok {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return &ParseError{Line: line.Raw, Reason: fmt.Sprintf("invalid minimal length %q", value)}
			}
			d.passwdRules.SetMinLen(n)
			return nil
		},
	},
	"package": {
		options: map[string]bool{"add": true, "remove": true},
		store: func(d *RuleData, line Line) error {
			d.packageRules.AddPackages(line.Options["add"]...)
			d.packageRules.RemovePackages(line.Options["remove"]...)
			return nil
		},
	},
	"bootloader": {
		options: map[string]bool{"passwd": true},
		store: func(d *RuleData, line Line) error {
			if line.HasOption("passwd") {
				d.bootloaderRules.RequirePassword()
			}
			return nil
		},
	},
}

// RuleData owns one container per rule category.
type RuleData struct {
	partRules       *PartRules
	passwdRules     *PasswdRules
	packageRules    *PackageRules
	bootloaderRules *BootloaderRules

	log logging.Logger
}

// Option configures RuleData
type Option func(*RuleData)

// WithLogger sets the diagnostic logger.
func WithLogger(l logging.Logger) Option {
	return func(d *RuleData) {
		if l != nil {
			d.log = l
		}
	}
}

// NewRuleData creates empty rule containers.
func NewRuleData(opts ...Option) *RuleData {
	d := &RuleData{
		partRules:       NewPartRules(),
		passwdRules:     NewPasswdRules(),
		packageRules:    NewPackageRules(),
		bootloaderRules: NewBootloaderRules(),
		log:             logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *RuleData) PartRules() *PartRules             { return d.partRules }
func (d *RuleData) PasswdRules() *PasswdRules         { return d.passwdRules }
func (d *RuleData) PackageRules() *PackageRules       { return d.packageRules }
func (d *RuleData) BootloaderRules() *BootloaderRules { return d.bootloaderRules }

// enforcers in evaluation order
func (d *RuleData) enforcers() []Enforcer {
	return []Enforcer{d.partRules, d.passwdRules, d.packageRules, d.bootloaderRules}
}

// NewRule parses one line and stores it. Blank lines are ignored. A line
// that cannot be parsed or has an unknown keyword is skipped and the error
// returned; already stored rules are never affected.
func (d *RuleData) NewRule(raw string) error {
	line, ok, err := ParseLine(raw)
	if err != nil {
		d.log.Warn(component, "skipping malformed rule", "error", err.Error())
		return err
	}
	if !ok {
		return nil
	}

	h, known := handlers[line.Keyword]
	if !known {
		d.log.Warn(component, "skipping rule with unknown keyword", "keyword", line.Keyword, "rule", line.Raw)
		return fmt.Errorf("%w %q", ErrUnknownKeyword, line.Keyword)
	}

	if err := h.validate(line); err != nil {
		d.log.Warn(component, "skipping malformed rule", "error", err.Error())
		return err
	}
	if err := h.store(d, line); err != nil {
		d.log.Warn(component, "skipping malformed rule", "error", err.Error())
		return err
	}

	d.log.Debug(component, "rule loaded", "keyword", line.Keyword, "rule", line.Raw)
	return nil
}

func (h keywordHandler) validate(line Line) error {
	if len(line.Args) != h.nargs {
		if h.nargs == 0 {
			return &ParseError{Line: line.Raw, Reason: fmt.Sprintf("unexpected argument %q", line.Args[0])}
		}
		return &ParseError{Line: line.Raw, Reason: fmt.Sprintf("expected exactly one %s", h.argsName)}
	}
	for name := range line.Options {
		if !h.options[name] {
			return &ParseError{Line: line.Raw, Reason: fmt.Sprintf("unknown option --%s", name)}
		}
	}
	return nil
}

// maxRuleLength bounds a single rule line; longer lines are rejected
// without affecting the lines after them.
const maxRuleLength = 1 << 20

// LoadRules feeds every line of r through NewRule. Bad lines do not stop
// loading; their errors are joined into the result.
func (d *RuleData) LoadRules(r io.Reader) error {
	var errs []error
	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		text, readErr := reader.ReadString('\n')
		if text != "" {
			lineNo++
			if err := d.loadLine(strings.TrimRight(text, "\r\n")); err != nil {
				errs = append(errs, fmt.Errorf("line %d: %w", lineNo, err))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			errs = append(errs, fmt.Errorf("failed to read rules: %w", readErr))
			break
		}
	}
	return errors.Join(errs...)
}

func (d *RuleData) loadLine(text string) error {
	if len(text) > maxRuleLength {
		err := &ParseError{
			Line:   text[:64] + "...",
			Reason: fmt.Sprintf("line longer than %d bytes", maxRuleLength),
		}
		d.log.Warn(component, "skipping malformed rule", "error", err.Error())
		return err
	}
	return d.NewRule(text)
}

// EvalRules runs one enforcement pass. Messages follow category order
// (part, passwd, package, bootloader) and declaration order within each.
func (d *RuleData) EvalRules(plan Plan, reportOnly bool) []models.Message {
	var msgs []models.Message
	for _, e := range d.enforcers() {
		msgs = append(msgs, e.Eval(plan, reportOnly)...)
	}

	for _, m := range msgs {
		d.log.Debug(component, m.Text, "kind", m.Kind.String(), "report_only", reportOnly)
	}
	return msgs
}

// RevertChanges undoes every mutation of previous passes.
func (d *RuleData) RevertChanges(plan Plan) {
	for _, e := range d.enforcers() {
		e.Revert(plan)
	}
	d.log.Debug(component, "changes reverted")
}

func (d *RuleData) String() string {
	var lines []string
	for _, e := range d.enforcers() {
		if s := e.String(); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}
