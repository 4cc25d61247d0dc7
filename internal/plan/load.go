package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPlan wraps every validation failure.
var ErrInvalidPlan = errors.New("invalid plan")

// Load reads a YAML plan file.
func Load(filename string) (*Plan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML plan. Unknown fields are rejected.
func Parse(data []byte) (*Plan, error) {
	p := New()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
	}
	if p.Storage.MountPoints == nil {
		p.Storage.MountPoints = map[string]*MountPoint{}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks mount point paths and the password policy.
func (p *Plan) Validate() error {
	for mountPoint, mp := range p.Storage.MountPoints {
		if mp == nil {
			return fmt.Errorf("%w: mount point %q has no definition", ErrInvalidPlan, mountPoint)
		}
		if !path.IsAbs(mountPoint) || path.Clean(mountPoint) != mountPoint {
			return fmt.Errorf("%w: mount point %q must be a clean absolute path", ErrInvalidPlan, mountPoint)
		}
	}
	if p.Users.PasswordPolicy.MinLen < 0 {
		return fmt.Errorf("%w: password policy minlen must not be negative", ErrInvalidPlan)
	}
	return nil
}

// Marshal encodes the plan as YAML.
func (p *Plan) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the plan as YAML. The file may hold a root password, so it
// is created owner-readable only.
func (p *Plan) Save(filename string) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write plan file: %w", err)
	}
	return nil
}
