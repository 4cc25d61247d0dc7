package rules

import "github.com/oscap-tools/hardenplan/internal/models"

const bootloaderPasswordMsg = "boot loader password not set up"

// BootloaderRules can only observe; a password cannot be generated.
type BootloaderRules struct {
	requirePassword bool
}

// NewBootloaderRules creates an empty container.
func NewBootloaderRules() *BootloaderRules {
	return &BootloaderRules{}
}

// RequirePassword marks the bootloader password as mandatory.
func (r *BootloaderRules) RequirePassword() {
	r.requirePassword = true
}

// PasswordRequired reports whether a bootloader password is mandatory.
func (r *BootloaderRules) PasswordRequired() bool {
	return r.requirePassword
}

func (r *BootloaderRules) Eval(plan Plan, _ bool) []models.Message {
	if r.requirePassword && !plan.BootloaderPasswordSet() {
		return []models.Message{{Kind: models.MessageWarning, Text: bootloaderPasswordMsg}}
	}
	return nil
}

// Revert is a no-op, nothing is ever changed.
func (r *BootloaderRules) Revert(Plan) {}

func (r *BootloaderRules) String() string {
	if !r.requirePassword {
		return ""
	}
	return "bootloader --passwd"
}
