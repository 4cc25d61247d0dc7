// Package plan is the installation plan document the rules are enforced
// against: a YAML file describing mount points, the root account, the
// package selection and the bootloader.
package plan

import (
	"slices"

	"github.com/oscap-tools/hardenplan/internal/models"
	"github.com/oscap-tools/hardenplan/internal/rules"
)

// Plan is an installation draft.
type Plan struct {
	Storage    Storage    `yaml:"storage" json:"storage"`
	Users      Users      `yaml:"users" json:"users"`
	Software   Software   `yaml:"packages" json:"packages"`
	Bootloader Bootloader `yaml:"bootloader" json:"bootloader"`
}

// Storage layout
type Storage struct {
	MountPoints map[string]*MountPoint `yaml:"mount_points" json:"mount_points"`
}

// MountPoint of one device
type MountPoint struct {
	Device  string `yaml:"device,omitempty" json:"device,omitempty"`
	FSType  string `yaml:"fstype,omitempty" json:"fstype,omitempty"`
	Options string `yaml:"options" json:"options"`
}

// Users holds the root account
type Users struct {
	RootPassword        string                `yaml:"root_password,omitempty" json:"root_password,omitempty"`
	RootPasswordCrypted bool                  `yaml:"root_password_crypted,omitempty" json:"root_password_crypted,omitempty"`
	PasswordPolicy      models.PasswordPolicy `yaml:"password_policy" json:"password_policy"`
}

// Software selection. Empty and missing lists are the same selection.
type Software struct {
	Install []string `yaml:"install,omitempty" json:"install,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Bootloader configuration. PasswordSet declares a password without
// carrying its hash.
type Bootloader struct {
	Password        string `yaml:"password,omitempty" json:"password,omitempty"`
	PasswordCrypted bool   `yaml:"password_crypted,omitempty" json:"password_crypted,omitempty"`
	PasswordSet     bool   `yaml:"password_set,omitempty" json:"password_set,omitempty"`
}

var _ rules.Plan = (*Plan)(nil)

// New returns an empty plan.
func New() *Plan {
	return &Plan{Storage: Storage{MountPoints: map[string]*MountPoint{}}}
}

// AddMountPoint adds or replaces a mount point.
func (p *Plan) AddMountPoint(path, options string) *MountPoint {
	if p.Storage.MountPoints == nil {
		p.Storage.MountPoints = map[string]*MountPoint{}
	}
	mp := &MountPoint{Options: options}
	p.Storage.MountPoints[path] = mp
	return mp
}

func (p *Plan) MountOptions(path string) (string, bool) {
	mp, ok := p.Storage.MountPoints[path]
	if !ok || mp == nil {
		return "", false
	}
	return mp.Options, true
}

func (p *Plan) SetMountOptions(path, options string) {
	if mp, ok := p.Storage.MountPoints[path]; ok && mp != nil {
		mp.Options = options
	}
}

func (p *Plan) RootPassword() models.RootPassword {
	return models.RootPassword{
		Set:     p.Users.RootPassword != "",
		Crypted: p.Users.RootPasswordCrypted,
		Value:   p.Users.RootPassword,
	}
}

func (p *Plan) PasswordPolicy() models.PasswordPolicy {
	return p.Users.PasswordPolicy
}

func (p *Plan) SetPasswordPolicy(policy models.PasswordPolicy) {
	p.Users.PasswordPolicy = policy
}

func (p *Plan) Packages() []string {
	return slices.Clone(p.Software.Install)
}

func (p *Plan) SetPackages(pkgs []string) {
	p.Software.Install = slices.Clone(pkgs)
}

func (p *Plan) ExcludedPackages() []string {
	return slices.Clone(p.Software.Exclude)
}

func (p *Plan) SetExcludedPackages(pkgs []string) {
	p.Software.Exclude = slices.Clone(pkgs)
}

func (p *Plan) BootloaderPasswordSet() bool {
	return p.Bootloader.PasswordSet || p.Bootloader.Password != ""
}

// Clone returns a deep copy.
func (p *Plan) Clone() *Plan {
	c := *p
	c.Storage.MountPoints = make(map[string]*MountPoint, len(p.Storage.MountPoints))
	for path, mp := range p.Storage.MountPoints {
		if mp == nil {
			continue
		}
		cp := *mp
		c.Storage.MountPoints[path] = &cp
	}
	c.Software.Install = slices.Clone(p.Software.Install)
	c.Software.Exclude = slices.Clone(p.Software.Exclude)
	return &c
}
