package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/oscap-tools/hardenplan/internal/models"
)

const (
	packageAddedMsg    = "package '%s' has been added to the list of to be installed packages"
	packageExcludedMsg = "package '%s' has been added to the list of excluded packages"
	packageConflictMsg = "package '%s' is required to be both installed and excluded, it will not be added to the list of to be installed packages"
)

// PackageRules lists packages to install and to exclude.
type PackageRules struct {
	addPkgs    *stringSet
	removePkgs *stringSet

	// only packages inserted by this engine
	addedToInstall *stringSet
	addedToExclude *stringSet
}

// NewPackageRules creates an empty container.
func NewPackageRules() *PackageRules {
	return &PackageRules{
		addPkgs:        newStringSet(),
		removePkgs:     newStringSet(),
		addedToInstall: newStringSet(),
		addedToExclude: newStringSet(),
	}
}

// AddPackages requires pkgs to be installed.
func (r *PackageRules) AddPackages(pkgs ...string) {
	r.addPkgs.Add(pkgs...)
}

// RemovePackages requires pkgs to be excluded.
func (r *PackageRules) RemovePackages(pkgs ...string) {
	r.removePkgs.Add(pkgs...)
}

// AddPkgs returns the packages required to be installed.
func (r *PackageRules) AddPkgs() []string {
	return r.addPkgs.Values()
}

// RemovePkgs returns the packages required to be excluded.
func (r *PackageRules) RemovePkgs() []string {
	return r.removePkgs.Values()
}

// AddedToInstall returns the packages this engine put on the install list.
func (r *PackageRules) AddedToInstall() []string {
	return r.addedToInstall.Values()
}

// AddedToExclude returns the packages this engine put on the exclude list.
func (r *PackageRules) AddedToExclude() []string {
	return r.addedToExclude.Values()
}

// Conflicts returns packages that are both required and forbidden.
func (r *PackageRules) Conflicts() []string {
	var out []string
	for _, pkg := range r.addPkgs.Values() {
		if r.removePkgs.Contains(pkg) {
			out = append(out, pkg)
		}
	}
	return out
}

// Eval reports (and unless reportOnly applies) install and exclude changes.
func (r *PackageRules) Eval(plan Plan, reportOnly bool) []models.Message {
	var msgs []models.Message

	installed := slices.Clone(plan.Packages())
	changed := false
	for _, pkg := range r.addPkgs.Values() {
		// Conflicting packages are only excluded. An install entry the plan
		// already had is left alone; revert could not restore it otherwise.
		if r.removePkgs.Contains(pkg) {
			msgs = append(msgs, models.Message{
				Kind: models.MessageWarning,
				Text: fmt.Sprintf(packageConflictMsg, pkg),
			})
			continue
		}

		present := slices.Contains(installed, pkg)
		if present && !r.addedToInstall.Contains(pkg) {
			continue
		}
		if !reportOnly && !present {
			installed = append(installed, pkg)
			r.addedToInstall.Add(pkg)
			changed = true
		}
		msgs = append(msgs, models.Message{
			Kind: models.MessageInfo,
			Text: fmt.Sprintf(packageAddedMsg, pkg),
		})
	}
	if changed {
		plan.SetPackages(installed)
	}

	excluded := slices.Clone(plan.ExcludedPackages())
	changed = false
	for _, pkg := range r.removePkgs.Values() {
		present := slices.Contains(excluded, pkg)
		if present && !r.addedToExclude.Contains(pkg) {
			continue
		}
		if !reportOnly && !present {
			excluded = append(excluded, pkg)
			r.addedToExclude.Add(pkg)
			changed = true
		}
		msgs = append(msgs, models.Message{
			Kind: models.MessageInfo,
			Text: fmt.Sprintf(packageExcludedMsg, pkg),
		})
	}
	if changed {
		plan.SetExcludedPackages(excluded)
	}

	return msgs
}

// Revert removes exactly the recorded packages from the plan.
func (r *PackageRules) Revert(plan Plan) {
	if r.addedToInstall.Len() > 0 {
		plan.SetPackages(without(plan.Packages(), r.addedToInstall))
		r.addedToInstall.Clear()
	}
	if r.addedToExclude.Len() > 0 {
		plan.SetExcludedPackages(without(plan.ExcludedPackages(), r.addedToExclude))
		r.addedToExclude.Clear()
	}
}

func (r *PackageRules) String() string {
	if r.addPkgs.Len() == 0 && r.removePkgs.Len() == 0 {
		return ""
	}

	parts := []string{"package"}
	for _, pkg := range r.addPkgs.Values() {
		parts = append(parts, "--add="+quoteArg(pkg))
	}
	for _, pkg := range r.removePkgs.Values() {
		parts = append(parts, "--remove="+quoteArg(pkg))
	}
	return strings.Join(parts, " ")
}

func without(pkgs []string, drop *stringSet) []string {
	out := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		if !drop.Contains(pkg) {
			out = append(out, pkg)
		}
	}
	return out
}
