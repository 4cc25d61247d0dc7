package differ

import (
	"fmt"
	"strings"

	"github.com/wI2L/jsondiff"
)

// SeverityLevel 0=safe, 1=mod, 2=crit
type SeverityLevel int

const (
	SeveritySafe SeverityLevel = iota
	SeverityModerate
	SeverityCritical
)

// Translate patches to english
func Translate(patch jsondiff.Patch) []string {
	if len(patch) == 0 {
		return nil
	}

	var translations []string
	seen := make(map[string]bool)

	for _, op := range patch {
		translation, _ := translateOperation(op)
		if translation != "" && !seen[translation] {
			seen[translation] = true
			translations = append(translations, translation)
		}
	}

	return translations
}

func translateOperation(op jsondiff.Operation) (string, SeverityLevel) {
	segments := pointerSegments(op.Path)
	if len(segments) == 0 {
		return "Plan replaced.", SeverityCritical
	}

	switch segments[0] {
	case "storage":
		return translateStorage(op, segments[1:])
	case "users":
		return translateUsers(op, segments[1:])
	case "packages":
		return translatePackages(op, segments[1:])
	case "bootloader":
		return "Boot loader password changed.", SeverityCritical
	default:
		return "Plan modified.", SeverityModerate
	}
}

// translateStorage handles /storage/mount_points/<path>[/field]
func translateStorage(op jsondiff.Operation, segments []string) (string, SeverityLevel) {
	if len(segments) < 2 || segments[0] != "mount_points" {
		return "Storage layout modified.", SeverityModerate
	}
	mountPoint := segments[1]

	if len(segments) == 2 {
		switch op.Type {
		case jsondiff.OperationAdd:
			return fmt.Sprintf("Mount point %s added.", mountPoint), SeverityModerate
		case jsondiff.OperationRemove:
			return fmt.Sprintf("Mount point %s removed.", mountPoint), SeverityCritical
		default:
			return fmt.Sprintf("Mount point %s redefined.", mountPoint), SeverityModerate
		}
	}

	if segments[2] == "options" && op.Type != jsondiff.OperationRemove {
		return fmt.Sprintf("Mount options of %s set to %q.", mountPoint, fmt.Sprint(op.Value)), SeverityModerate
	}
	return fmt.Sprintf("Mount point %s modified.", mountPoint), SeverityModerate
}

// translateUsers handles /users/...
func translateUsers(op jsondiff.Operation, segments []string) (string, SeverityLevel) {
	if len(segments) == 0 {
		return "Users modified.", SeverityModerate
	}

	switch segments[0] {
	case "root_password", "root_password_crypted":
		return "Root password changed.", SeverityCritical
	case "password_policy":
		if len(segments) < 2 || op.Type == jsondiff.OperationRemove {
			return "Root password policy modified.", SeverityModerate
		}
		switch segments[1] {
		case "minlen":
			return fmt.Sprintf("Minimal root password length set to %v.", op.Value), SeveritySafe
		case "strict":
			if strict, ok := op.Value.(bool); ok && !strict {
				return "Root password policy relaxed.", SeverityCritical
			}
			return "Root password policy made strict.", SeveritySafe
		}
		return "Root password policy modified.", SeverityModerate
	default:
		return "Users modified.", SeverityModerate
	}
}

// translatePackages handles /packages/install and /packages/exclude
func translatePackages(op jsondiff.Operation, segments []string) (string, SeverityLevel) {
	if len(segments) == 0 {
		return "Package selection replaced.", SeverityModerate
	}

	list := "installed"
	if segments[0] == "exclude" {
		list = "excluded"
	}

	switch v := op.Value.(type) {
	case string:
		if op.Type == jsondiff.OperationRemove {
			break
		}
		return fmt.Sprintf("Package '%s' added to the %s packages.", v, list), SeverityModerate
	case []interface{}:
		names := make([]string, 0, len(v))
		for _, item := range v {
			names = append(names, fmt.Sprint(item))
		}
		return fmt.Sprintf("List of %s packages set to [%s].", list, strings.Join(names, ", ")), SeverityModerate
	}

	return fmt.Sprintf("Package removed from the %s packages.", list), SeverityCritical
}

// pointerSegments splits and unescapes a JSON pointer (RFC 6901).
func pointerSegments(pointer string) []string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return nil
	}
	segments := strings.Split(pointer, "/")
	for i, s := range segments {
		s = strings.ReplaceAll(s, "~1", "/")
		segments[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return segments
}
