package rules

import (
	"slices"

	"github.com/oscap-tools/hardenplan/internal/models"
)

// fakePlan is an in-memory Plan
type fakePlan struct {
	mounts       map[string]string
	root         models.RootPassword
	policy       models.PasswordPolicy
	packages     []string
	excluded     []string
	bootPassword bool
}

func newFakePlan() *fakePlan {
	return &fakePlan{mounts: map[string]string{}}
}

func (p *fakePlan) MountOptions(path string) (string, bool) {
	opts, ok := p.mounts[path]
	return opts, ok
}

func (p *fakePlan) SetMountOptions(path, options string) {
	if _, ok := p.mounts[path]; ok {
		p.mounts[path] = options
	}
}

func (p *fakePlan) RootPassword() models.RootPassword           { return p.root }
func (p *fakePlan) PasswordPolicy() models.PasswordPolicy       { return p.policy }
func (p *fakePlan) SetPasswordPolicy(pol models.PasswordPolicy) { p.policy = pol }
func (p *fakePlan) Packages() []string                          { return slices.Clone(p.packages) }
func (p *fakePlan) SetPackages(pkgs []string)                   { p.packages = slices.Clone(pkgs) }
func (p *fakePlan) ExcludedPackages() []string                  { return slices.Clone(p.excluded) }
func (p *fakePlan) SetExcludedPackages(pkgs []string)           { p.excluded = slices.Clone(pkgs) }
func (p *fakePlan) BootloaderPasswordSet() bool                 { return p.bootPassword }

func countKind(msgs []models.Message, kind models.MessageKind) int {
	n := 0
	for _, m := range msgs {
		if m.Kind == kind {
			n++
		}
	}
	return n
}
