package rules

import "github.com/oscap-tools/hardenplan/internal/models"

// Storage is the mount point table of the installation plan.
type Storage interface {
	// MountOptions returns the comma separated option string of path and
	// whether the mount point exists.
	MountOptions(path string) (string, bool)
	SetMountOptions(path, options string)
}

// Users exposes the root password state and its policy.
// Only the policy is written by the engine.
type Users interface {
	RootPassword() models.RootPassword
	PasswordPolicy() models.PasswordPolicy
	SetPasswordPolicy(policy models.PasswordPolicy)
}

// PackageSelection holds the ordered install and exclude lists.
type PackageSelection interface {
	Packages() []string
	SetPackages(pkgs []string)
	ExcludedPackages() []string
	SetExcludedPackages(pkgs []string)
}

// Bootloader is read-only for the engine.
type Bootloader interface {
	BootloaderPasswordSet() bool
}

// Plan is the host-owned installation draft every pass reads and mutates.
type Plan interface {
	Storage
	Users
	PackageSelection
	Bootloader
}
