// Package policy gates enforcement reports with CEL rules and ships the
// built-in presets.
package policy

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/oscap-tools/hardenplan/internal/models"
)

// Every presets/<name>.yaml is the preset <name>.
//
//go:embed presets/*.yaml
var presetFS embed.FS

var (
	presetsOnce sync.Once
	presets     map[string]*models.GateConfig
	presetsErr  error
)

// loadPresets parses every embedded preset once.
func loadPresets() (map[string]*models.GateConfig, error) {
	presetsOnce.Do(func() {
		files, err := fs.Glob(presetFS, "presets/*.yaml")
		if err != nil {
			presetsErr = err
			return
		}
		loaded := make(map[string]*models.GateConfig, len(files))
		for _, file := range files {
			data, err := presetFS.ReadFile(file)
			if err != nil {
				presetsErr = err
				return
			}
			config, err := Parse(data)
			if err != nil {
				presetsErr = fmt.Errorf("preset %s: %w", file, err)
				return
			}
			loaded[strings.TrimSuffix(path.Base(file), ".yaml")] = config
		}
		presets = loaded
	})
	return presets, presetsErr
}

// GetPreset returns the named preset, nil if there is none.
func GetPreset(name string) *models.GateConfig {
	loaded, err := loadPresets()
	if err != nil {
		return nil
	}
	return loaded[name]
}

// ListPresetNames in sorted order
func ListPresetNames() []string {
	loaded, _ := loadPresets()
	names := make([]string, 0, len(loaded))
	for name := range loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MustGetPreset panics when name is not a preset.
func MustGetPreset(name string) *models.GateConfig {
	p := GetPreset(name)
	if p == nil {
		panic(fmt.Sprintf("preset %q not found", name))
	}
	return p
}
