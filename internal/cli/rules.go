package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oscap-tools/hardenplan/internal/observability/logging"
	"github.com/oscap-tools/hardenplan/internal/rules"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [file|-]",
	Short: "Parse remediation rules and print their canonical form",
	Long: `Reads remediation rule lines (one per line, "-" or no argument for stdin),
merges them and prints the canonical rule set. Rejected lines are reported on
stderr and make the command fail.

Example:
  hardenplan rules ./profile.rules
  oscap xccdf generate fix --fix-type anaconda ... | hardenplan rules -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRules,
}

// GetRulesCmd export
func GetRulesCmd() *cobra.Command {
	return rulesCmd
}

func runRules(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}

	data, rejected, err := loadRuleData(cmd.Context(), path, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if s := data.String(); s != "" {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	if rejected > 0 {
		return fmt.Errorf("%d rule line(s) rejected", rejected)
	}
	return nil
}

// loadRuleData reads rules from path ("-" is stdin). Rejected lines are
// printed to errOut and counted; they never abort loading.
func loadRuleData(ctx context.Context, path string, stdin io.Reader, errOut io.Writer) (*rules.RuleData, int, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to open rules: %w", err)
		}
		defer f.Close()
		r = f
	}

	data := rules.NewRuleData(rules.WithLogger(logging.From(ctx)))
	loadErr := data.LoadRules(r)
	if loadErr == nil {
		return data, 0, nil
	}

	errs := []error{loadErr}
	if joined, ok := loadErr.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		var parseErr *rules.ParseError
		if !errors.Is(e, rules.ErrUnknownKeyword) && !errors.As(e, &parseErr) {
			return nil, 0, e
		}
		fmt.Fprintf(errOut, "%s⚠ skipped%s %v\n", colorYellow, colorReset, e)
	}
	return data, len(errs), nil
}

// ruleCount is the number of canonical rule lines
func ruleCount(data *rules.RuleData) int {
	s := data.String()
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
