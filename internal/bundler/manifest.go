package bundler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/oscap-tools/hardenplan/internal/version"
)

// Manifest describes the files of an evidence bundle
type Manifest struct {
	ToolVersion string         `json:"tool_version"`
	Files       []ManifestFile `json:"files"`
	PlanBefore  string         `json:"plan_before,omitempty"`
	PlanAfter   string         `json:"plan_after,omitempty"`
	Outcome     string         `json:"outcome,omitempty"`
}

// ManifestFile desc
type ManifestFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// NewManifest hashes entries; files are listed by name.
func NewManifest(entries []Entry) *Manifest {
	m := &Manifest{
		ToolVersion: version.BuildVersion(),
		Files:       make([]ManifestFile, 0, len(entries)),
	}
	for _, e := range entries {
		sum := sha256.Sum256(e.Data)
		m.Files = append(m.Files, ManifestFile{
			Name:   e.Name,
			SHA256: hex.EncodeToString(sum[:]),
			Size:   int64(len(e.Data)),
		})
	}
	sort.Slice(m.Files, func(i, j int) bool {
		return m.Files[i].Name < m.Files[j].Name
	})
	return m
}

// ToJSON deterministic
func (m *Manifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
