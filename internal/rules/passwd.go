package rules

import (
	"fmt"
	"unicode/utf8"

	"github.com/oscap-tools/hardenplan/internal/models"
)

const (
	noPasswordMsg      = "make sure to create password with minimal length of %d characters"
	cryptedPasswordMsg = "cannot check root password length (password is crypted)"
	shortPasswordMsg   = "root password is too short, a longer one with at least %d characters is required"
)

// PasswdRules holds the minimal root password length.
type PasswdRules struct {
	minlen int

	// password policy before the first mutation
	origMinLen *int
	origStrict *bool
}

// NewPasswdRules creates an empty container.
func NewPasswdRules() *PasswdRules {
	return &PasswdRules{}
}

// MinLen required; zero means no rule
func (r *PasswdRules) MinLen() int {
	return r.minlen
}

// SetMinLen last declaration wins
func (r *PasswdRules) SetMinLen(n int) {
	r.minlen = n
}

// OriginalPolicy returns the captured policy, if any.
func (r *PasswdRules) OriginalPolicy() (models.PasswordPolicy, bool) {
	if r.origMinLen == nil {
		return models.PasswordPolicy{}, false
	}
	return models.PasswordPolicy{MinLen: *r.origMinLen, Strict: *r.origStrict}, true
}

// Eval checks the root password and, unless reportOnly, hardens the policy.
func (r *PasswdRules) Eval(plan Plan, reportOnly bool) []models.Message {
	if r.minlen == 0 {
		return nil
	}

	pw := plan.RootPassword()
	if !pw.Set {
		return []models.Message{{
			Kind: models.MessageWarning,
			Text: fmt.Sprintf(noPasswordMsg, r.minlen),
		}}
	}
	if pw.Crypted {
		return []models.Message{{
			Kind: models.MessageWarning,
			Text: cryptedPasswordMsg,
		}}
	}

	var msgs []models.Message
	if utf8.RuneCountInString(pw.Value) < r.minlen {
		// the password itself is never touched
		msgs = append(msgs, models.Message{
			Kind: models.MessageFatal,
			Text: fmt.Sprintf(shortPasswordMsg, r.minlen),
		})
	}

	if reportOnly {
		return msgs
	}

	// harden the policy in any case so a weaker password cannot be entered
	policy := plan.PasswordPolicy()
	if r.origMinLen == nil {
		minlen, strict := policy.MinLen, policy.Strict
		r.origMinLen = &minlen
		r.origStrict = &strict
	}
	if policy.MinLen < r.minlen {
		policy.MinLen = r.minlen
	}
	policy.Strict = true
	plan.SetPasswordPolicy(policy)

	return msgs
}

// Revert restores the captured policy.
func (r *PasswdRules) Revert(plan Plan) {
	if r.origMinLen == nil {
		return
	}
	plan.SetPasswordPolicy(models.PasswordPolicy{MinLen: *r.origMinLen, Strict: *r.origStrict})
	r.origMinLen = nil
	r.origStrict = nil
}

func (r *PasswdRules) String() string {
	if r.minlen == 0 {
		return ""
	}
	return fmt.Sprintf("passwd --minlen=%d", r.minlen)
}
