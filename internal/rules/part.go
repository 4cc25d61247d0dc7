package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/oscap-tools/hardenplan/internal/models"
)

const (
	missingMountPointMsg = "%s must be on a separate partition or logical volume and has to be " +
		"created in the partitioning layout before installation can occur with a security profile"
	mountOptionAddedMsg = "mount option '%s' added for the mount point %s"
)

// PartRule is the policy for one mount point.
type PartRule struct {
	path         string
	mountOptions *stringSet

	// options string of the mount point before the first mutation
	originalOptions *string
}

// NewPartRule creates a rule requiring path to exist.
func NewPartRule(path string) *PartRule {
	return &PartRule{
		path:         path,
		mountOptions: newStringSet(),
	}
}

// Path of the mount point
func (r *PartRule) Path() string {
	return r.path
}

// MountOptions required, in declaration order
func (r *PartRule) MountOptions() []string {
	return r.mountOptions.Values()
}

// HasMountOption reports whether opt is required
func (r *PartRule) HasMountOption(opt string) bool {
	return r.mountOptions.Contains(opt)
}

// AddMountOptions merges opts into the required set.
func (r *PartRule) AddMountOptions(opts ...string) {
	r.mountOptions.Add(opts...)
}

// OriginalOptions returns the captured pre-enforcement options, if any.
func (r *PartRule) OriginalOptions() (string, bool) {
	if r.originalOptions == nil {
		return "", false
	}
	return *r.originalOptions, true
}

func (r *PartRule) String() string {
	ret := "part " + quoteArg(r.path)
	if r.mountOptions.Len() > 0 {
		ret += " --mountoptions=" + quoteArg(strings.Join(r.mountOptions.Values(), ","))
	}
	return ret
}

func (r *PartRule) eval(storage Storage, reportOnly bool) []models.Message {
	current, ok := storage.MountOptions(r.path)
	if !ok {
		return []models.Message{{
			Kind: models.MessageFatal,
			Text: fmt.Sprintf(missingMountPointMsg, r.path),
		}}
	}

	// Compare against the state before enforcement so every pass reports
	// the same options, not only the ones still missing.
	before := current
	if r.originalOptions != nil {
		before = *r.originalOptions
	}
	beforeTokens := splitOptions(before)

	var msgs []models.Message
	for _, opt := range r.mountOptions.Values() {
		if slices.Contains(beforeTokens, opt) {
			continue
		}

		if !reportOnly {
			if r.originalOptions == nil {
				orig := current
				r.originalOptions = &orig
			}
			if !slices.Contains(splitOptions(current), opt) {
				current = appendOption(current, opt)
				storage.SetMountOptions(r.path, current)
			}
		}

		msgs = append(msgs, models.Message{
			Kind: models.MessageInfo,
			Text: fmt.Sprintf(mountOptionAddedMsg, opt, r.path),
		})
	}

	return msgs
}

func (r *PartRule) revert(storage Storage) {
	if r.originalOptions == nil {
		return
	}
	if _, ok := storage.MountOptions(r.path); ok {
		storage.SetMountOptions(r.path, *r.originalOptions)
	}
	r.originalOptions = nil
}

// splitOptions returns the exact option tokens of an option string.
func splitOptions(options string) []string {
	var out []string
	for _, opt := range strings.Split(options, ",") {
		if opt = strings.TrimSpace(opt); opt != "" {
			out = append(out, opt)
		}
	}
	return out
}

func appendOption(options, opt string) string {
	if strings.TrimSpace(options) == "" {
		return opt
	}
	return options + "," + opt
}

// PartRules maps mount point paths to their rules, in declaration order.
type PartRules struct {
	rules *linkedhashmap.Map
}

// NewPartRules creates an empty container.
func NewPartRules() *PartRules {
	return &PartRules{rules: linkedhashmap.New()}
}

// Get returns the rule for path.
func (p *PartRules) Get(path string) (*PartRule, bool) {
	v, ok := p.rules.Get(path)
	if !ok {
		return nil, false
	}
	return v.(*PartRule), true
}

// Set replaces the rule for path, keeping its original position.
func (p *PartRules) Set(path string, rule *PartRule) {
	p.rules.Put(path, rule)
}

// Contains reports whether a rule for path exists.
func (p *PartRules) Contains(path string) bool {
	_, ok := p.rules.Get(path)
	return ok
}

// Delete removes the rule for path.
func (p *PartRules) Delete(path string) {
	p.rules.Remove(path)
}

// Len number of mount points
func (p *PartRules) Len() int {
	return p.rules.Size()
}

// EnsureMountPoint returns the rule for path, creating it if needed.
func (p *PartRules) EnsureMountPoint(path string) *PartRule {
	if rule, ok := p.Get(path); ok {
		return rule
	}
	rule := NewPartRule(path)
	p.Set(path, rule)
	return rule
}

// Rules in declaration order
func (p *PartRules) Rules() []*PartRule {
	out := make([]*PartRule, 0, p.rules.Size())
	p.rules.Each(func(_ interface{}, v interface{}) {
		out = append(out, v.(*PartRule))
	})
	return out
}

// Eval checks every mount point; see Enforcer.
func (p *PartRules) Eval(plan Plan, reportOnly bool) []models.Message {
	var msgs []models.Message
	for _, rule := range p.Rules() {
		msgs = append(msgs, rule.eval(plan, reportOnly)...)
	}
	return msgs
}

// Revert restores captured option strings.
func (p *PartRules) Revert(plan Plan) {
	for _, rule := range p.Rules() {
		rule.revert(plan)
	}
}

func (p *PartRules) String() string {
	lines := make([]string, 0, p.rules.Size())
	for _, rule := range p.Rules() {
		lines = append(lines, rule.String())
	}
	return strings.Join(lines, "\n")
}
