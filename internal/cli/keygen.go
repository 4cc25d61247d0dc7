package cli

import (
	"fmt"

	"github.com/oscap-tools/hardenplan/internal/crypto"
	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an ed25519 key pair for signing evidence bundles",
	Long: `Generates an ed25519 key pair. Existing key files are never overwritten.

Example:
  hardenplan keygen --private hardenplan.key --public hardenplan.pub
  hardenplan eval -r profile.rules -p plan.yaml --bundle evidence.zip --sign-key hardenplan.key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := crypto.GenerateKeys(keygenPrivate, keygenPublic); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s✓%s private key: %s\n%s✓%s public key:  %s\n",
			colorGreen, colorReset, keygenPrivate, colorGreen, colorReset, keygenPublic)
		return nil
	},
}

var (
	keygenPrivate string
	keygenPublic  string
)

func init() {
	keygenCmd.Flags().StringVar(&keygenPrivate, "private", "hardenplan.key", "Path for the private key")
	keygenCmd.Flags().StringVar(&keygenPublic, "public", "hardenplan.pub", "Path for the public key")
}

// GetKeygenCmd export
func GetKeygenCmd() *cobra.Command {
	return keygenCmd
}
