// Package differ compares installation plans and explains the difference.
package differ

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oscap-tools/hardenplan/internal/observability/receipt"
	"github.com/oscap-tools/hardenplan/internal/plan"
	"github.com/wI2L/jsondiff"
)

// Change is one translated patch operation
type Change struct {
	Type        string
	Path        string
	Translation string
	Severity    SeverityLevel
}

// Result contains the complete diff result
type Result struct {
	HasChanges bool
	Patch      jsondiff.Patch // RFC 6902, secrets redacted
	Changes    []Change       // one per distinct translation
}

// secretPaths are JSON pointers whose values never leave the process.
var secretPaths = []string{
	"/users/root_password",
	"/bootloader/password",
}

// Compare returns the patch turning before into after.
func Compare(before, after *plan.Plan) (*Result, error) {
	sourceJSON, err := json.Marshal(before)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal source plan: %w", err)
	}

	targetJSON, err := json.Marshal(after)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal target plan: %w", err)
	}

	patch, err := jsondiff.CompareJSON(sourceJSON, targetJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}
	patch = redact(patch)

	result := &Result{
		HasChanges: len(patch) > 0,
		Patch:      patch,
		Changes:    []Change{},
	}

	seen := make(map[string]bool)
	for _, op := range patch {
		translation, severity := translateOperation(op)
		if translation == "" || seen[translation] {
			continue
		}
		seen[translation] = true
		result.Changes = append(result.Changes, Change{
			Type:        op.Type,
			Path:        op.Path,
			Translation: translation,
			Severity:    severity,
		})
	}

	return result, nil
}

func redact(patch jsondiff.Patch) jsondiff.Patch {
	for i := range patch {
		if !isSecretPath(patch[i].Path) {
			continue
		}
		if patch[i].Value != nil {
			patch[i].Value = receipt.RedactedValue
		}
		if patch[i].OldValue != nil {
			patch[i].OldValue = receipt.RedactedValue
		}
	}
	return patch
}

func isSecretPath(p string) bool {
	for _, secret := range secretPaths {
		if p == secret || strings.HasPrefix(p, secret+"/") {
			return true
		}
	}
	return false
}

// FormatPatch renders one operation per line
func FormatPatch(patch jsondiff.Patch) string {
	var b strings.Builder
	for _, op := range patch {
		if op.Type == jsondiff.OperationRemove {
			fmt.Fprintf(&b, "%-7s %s\n", op.Type, op.Path)
			continue
		}
		value, err := json.Marshal(op.Value)
		if err != nil {
			value = []byte(fmt.Sprint(op.Value))
		}
		fmt.Fprintf(&b, "%-7s %s %s\n", op.Type, op.Path, value)
	}
	return b.String()
}
