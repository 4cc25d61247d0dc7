package bundler

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Files outside the manifest: the signature covers the manifest itself.
const (
	SignatureName = "manifest.json.sig"
	PublicKeyName = "public.key"
)

// ErrTampered is returned when bundle contents do not match the manifest.
var ErrTampered = errors.New("bundle does not match its manifest")

// maxEntrySize bounds decompression of a single bundle file
const maxEntrySize = 64 << 20

// Contents of an opened bundle
type Contents struct {
	Manifest *Manifest
	// ManifestJSON is the manifest as stored
	ManifestJSON []byte
	Files        map[string][]byte
}

// Open reads every file of the bundle at path.
func Open(path string) (*Contents, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer zr.Close()

	c := &Contents{Files: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		if _, dup := c.Files[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %s", ErrTampered, f.Name)
		}
		c.Files[f.Name] = data
	}

	raw, ok := c.Files[ManifestName]
	if !ok {
		return nil, fmt.Errorf("bundle has no %s", ManifestName)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	c.Manifest = &m
	c.ManifestJSON = raw
	delete(c.Files, ManifestName)
	return c, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("entry exceeds %d bytes", maxEntrySize)
	}
	return data, nil
}

// Verify checks that every listed file is present with its digest and that
// nothing else besides the signature and public key was added.
func (c *Contents) Verify() error {
	listed := make(map[string]bool, len(c.Manifest.Files))
	for _, mf := range c.Manifest.Files {
		listed[mf.Name] = true

		data, ok := c.Files[mf.Name]
		if !ok {
			return fmt.Errorf("%w: %s is missing", ErrTampered, mf.Name)
		}
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != mf.SHA256 || int64(len(data)) != mf.Size {
			return fmt.Errorf("%w: %s was modified", ErrTampered, mf.Name)
		}
	}

	for name := range c.Files {
		if !listed[name] && name != SignatureName && name != PublicKeyName {
			return fmt.Errorf("%w: unexpected file %s", ErrTampered, name)
		}
	}
	return nil
}
