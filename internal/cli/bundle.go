package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/oscap-tools/hardenplan/internal/bundler"
	"github.com/oscap-tools/hardenplan/internal/canonical"
	"github.com/oscap-tools/hardenplan/internal/crypto"
	"github.com/oscap-tools/hardenplan/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const bundleReadme = `hardenplan evidence bundle

manifest.json       file digests, plan fingerprints and outcome
manifest.json.sig   ed25519 signature of the canonical manifest (signed bundles)
public.key          public half of the signing key (signed bundles)
rules.txt           canonical rules the plan was checked against
gate.yaml           gate policy applied to the result
plan.yaml           plan before enforcement (passwords redacted)
plan.enforced.yaml  plan after enforcement (passwords redacted)
result.json         messages, plan changes and gate decision

Verify with: hardenplan bundle verify --key <public.key> <bundle.zip>
`

var errUnsigned = errors.New("bundle is not signed")

// writeBundle packs one eval run into a zip at path, signed when signKey
// is set.
func writeBundle(path, signKey string, run *enforcement, gate *models.GateConfig, result *EvalResult) error {
	before, err := run.original.Redacted().Marshal()
	if err != nil {
		return err
	}
	after, err := run.plan.Redacted().Marshal()
	if err != nil {
		return err
	}
	gateYAML, err := yaml.Marshal(gate)
	if err != nil {
		return fmt.Errorf("failed to encode gate: %w", err)
	}
	resultJSON, err := FormatJSONOutput(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	rulesText := run.data.String()
	if rulesText != "" {
		rulesText += "\n"
	}

	entries := []bundler.Entry{
		{Name: "README.txt", Data: []byte(bundleReadme)},
		{Name: "rules.txt", Data: []byte(rulesText)},
		{Name: "gate.yaml", Data: gateYAML},
		{Name: "plan.yaml", Data: before},
		{Name: "plan.enforced.yaml", Data: after},
		{Name: "result.json", Data: resultJSON},
	}

	manifest := bundler.NewManifest(entries)
	manifest.PlanBefore = run.before
	manifest.PlanAfter = run.after
	manifest.Outcome = result.Outcome

	if signKey != "" {
		payload, err := canonical.Marshal(manifest)
		if err != nil {
			return fmt.Errorf("failed to canonicalize manifest: %w", err)
		}
		sig, err := crypto.Sign(payload, signKey)
		if err != nil {
			return err
		}
		pub, err := crypto.PublicKeyPEM(signKey)
		if err != nil {
			return err
		}
		entries = append(entries,
			bundler.Entry{Name: bundler.SignatureName, Data: crypto.WriteSignature(sig)},
			bundler.Entry{Name: bundler.PublicKeyName, Data: pub},
		)
	}

	if err := bundler.CreateBundle(path, entries, manifest); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Inspect evidence bundles written by eval --bundle",
}

var bundleVerifyCmd = &cobra.Command{
	Use:   "verify <bundle.zip>",
	Short: "Check bundle file digests and signature",
	Long: `Checks every file of an evidence bundle against its manifest and, when the
bundle is signed, the manifest signature.

With --key the bundle must be signed by that key. Without it the embedded
public key is used, which proves integrity but not origin.

Example:
  hardenplan bundle verify --key hardenplan.pub evidence.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runBundleVerify,
}

var bundleVerifyKey string

func init() {
	bundleVerifyCmd.Flags().StringVar(&bundleVerifyKey, "key", "", "Trusted public key (PEM)")
	bundleCmd.AddCommand(bundleVerifyCmd)
}

// GetBundleCmd export
func GetBundleCmd() *cobra.Command {
	return bundleCmd
}

func runBundleVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	contents, err := bundler.Open(args[0])
	if err != nil {
		return err
	}
	if err := contents.Verify(); err != nil {
		fmt.Fprintf(out, "%s✗ %v%s\n", colorRed, err, colorReset)
		return err
	}

	signer, err := verifyBundleSignature(contents, bundleVerifyKey)
	switch {
	case errors.Is(err, errUnsigned) && bundleVerifyKey == "":
		signer = "unsigned"
	case err != nil:
		fmt.Fprintf(out, "%s✗ %v%s\n", colorRed, err, colorReset)
		return err
	}

	m := contents.Manifest
	fmt.Fprintf(out, "%s✓ bundle verified%s: %d file(s), outcome %s, %s\n",
		colorGreen, colorReset, len(m.Files), m.Outcome, signer)
	if m.PlanBefore != "" {
		fmt.Fprintf(out, "  plan before: %s\n  plan after:  %s\n", m.PlanBefore, m.PlanAfter)
	}
	return nil
}

// verifyBundleSignature checks the manifest signature against keyPath, or
// the embedded key when keyPath is empty. It describes the signer.
func verifyBundleSignature(c *bundler.Contents, keyPath string) (string, error) {
	sigData, ok := c.Files[bundler.SignatureName]
	if !ok {
		return "", errUnsigned
	}
	env, err := crypto.ReadSignature(sigData)
	if err != nil {
		return "", err
	}

	payload, err := canonical.Marshal(json.RawMessage(c.ManifestJSON))
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize manifest: %w", err)
	}

	var valid bool
	signer := "signed by trusted key"
	if keyPath != "" {
		valid, err = crypto.Verify(payload, env.Signature, keyPath)
	} else {
		pub, ok := c.Files[bundler.PublicKeyName]
		if !ok {
			return "", fmt.Errorf("bundle is signed but carries no public key; use --key")
		}
		signer = "signed by embedded key (origin not established)"
		valid, err = crypto.VerifyPEM(payload, env.Signature, pub)
	}
	if err != nil {
		return "", err
	}
	if !valid {
		return "", fmt.Errorf("%w: signature does not match", bundler.ErrTampered)
	}
	return signer, nil
}
