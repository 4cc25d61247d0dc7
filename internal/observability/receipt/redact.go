package receipt

import (
	"regexp"
	"strings"
)

// RedactedValue replaces secrets in receipts and plan diffs.
const RedactedValue = "[REDACTED]"

// sensitiveFlags are flag names whose values should always be redacted.
var sensitiveFlags = map[string]bool{
	"password":            true,
	"root-password":       true,
	"bootloader-password": true,
	"passphrase":          true,
	"token":               true,
	"secret":              true,
	"otel-headers":        true,
}

// cryptHashRegex matches crypt(3) style hashes ($id$salt$hash).
var cryptHashRegex = regexp.MustCompile(`^\$[0-9a-z]{1,2}\$(?:[^$]*\$){1,2}[./A-Za-z0-9]{16,}$`)

// RedactArgs sanitizes CLI arguments by redacting sensitive values.
// Returns the redacted args and whether any redaction was applied.
func RedactArgs(args []string) ([]string, bool) {
	if len(args) == 0 {
		return args, false
	}

	redacted := make([]string, len(args))
	wasRedacted := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if eqIdx := strings.Index(arg, "="); eqIdx > 0 && strings.HasPrefix(arg, "-") {
			if sensitiveFlags[flagName(arg[:eqIdx])] || IsSensitiveValue(arg[eqIdx+1:]) {
				redacted[i] = arg[:eqIdx+1] + RedactedValue
				wasRedacted = true
				continue
			}
			redacted[i] = arg
			continue
		}

		if strings.HasPrefix(arg, "-") && sensitiveFlags[flagName(arg)] && i+1 < len(args) {
			redacted[i] = arg
			i++
			redacted[i] = RedactedValue
			wasRedacted = true
			continue
		}

		if IsSensitiveValue(arg) {
			redacted[i] = RedactedValue
			wasRedacted = true
			continue
		}

		redacted[i] = arg
	}

	return redacted, wasRedacted
}

func flagName(s string) string {
	return strings.ToLower(strings.TrimLeft(s, "-"))
}

// IsSensitiveValue reports values that look like password hashes.
func IsSensitiveValue(value string) bool {
	return cryptHashRegex.MatchString(value)
}
