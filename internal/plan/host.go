package plan

import (
	"fmt"
	"path"

	"github.com/moby/sys/mountinfo"
)

// pseudoFilesystems never back a partition or logical volume.
var pseudoFilesystems = map[string]bool{
	"autofs":      true,
	"binfmt_misc": true,
	"bpf":         true,
	"cgroup":      true,
	"cgroup2":     true,
	"configfs":    true,
	"debugfs":     true,
	"devpts":      true,
	"fusectl":     true,
	"hugetlbfs":   true,
	"mqueue":      true,
	"nsfs":        true,
	"proc":        true,
	"pstore":      true,
	"securityfs":  true,
	"sysfs":       true,
	"tracefs":     true,
}

// HostFilter skips pseudo filesystems.
func HostFilter(info *mountinfo.Info) (skip, stop bool) {
	return pseudoFilesystems[info.FSType], false
}

// FromHost builds a plan describing the mount table of the running system.
// Users, packages and the bootloader are left empty.
func FromHost() (*Plan, error) {
	mounts, err := mountinfo.GetMounts(HostFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to read mount table: %w", err)
	}
	return FromMounts(mounts), nil
}

// FromMounts builds a plan from parsed mountinfo entries. When a path is
// mounted more than once the last entry, the one on top, wins.
func FromMounts(mounts []*mountinfo.Info) *Plan {
	p := New()
	for _, m := range mounts {
		if m == nil || !path.IsAbs(m.Mountpoint) {
			continue
		}
		mp := p.AddMountPoint(path.Clean(m.Mountpoint), m.Options)
		mp.Device = m.Source
		mp.FSType = m.FSType
	}
	return p
}
