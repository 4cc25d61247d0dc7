package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and validate gate policies",
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Compile a gate policy and report errors",
	Long: `Parses a gate policy file (or a built-in preset) and compiles every CEL rule.

Example:
  hardenplan policy validate ./gate.yaml
  hardenplan policy validate --preset strict`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPolicyValidate,
}

var validatePreset string

func init() {
	policyValidateCmd.Flags().StringVar(&validatePreset, "preset", "", "Validate a built-in preset instead of a file")
	policyCmd.AddCommand(policyValidateCmd)
}

// GetPolicyCmd export
func GetPolicyCmd() *cobra.Command {
	return policyCmd
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" && validatePreset == "" {
		return fmt.Errorf("give a policy file or --preset")
	}
	if path != "" && validatePreset != "" {
		return fmt.Errorf("cannot use both a policy file and --preset; choose one")
	}

	gate, err := prepareGate(path, validatePreset)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s✓%s %s: %d rule(s), mode %s\n",
		colorGreen, colorReset, gate.config.Name, len(gate.config.Rules), gate.config.Mode)
	return nil
}
