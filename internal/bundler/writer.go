// Package bundler packs the inputs and results of an enforcement run into a
// reproducible zip archive.
package bundler

import (
	"archive/zip"
	"fmt"
	"os"
	"sort"
	"time"
)

// ManifestName is always the first file of a bundle
const ManifestName = "manifest.json"

// zipEpoch keeps archives byte-identical across runs
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Entry is one file of the bundle
type Entry struct {
	Name string
	Data []byte
}

// CreateBundle writes the manifest followed by entries sorted by name.
func CreateBundle(outputPath string, entries []Entry, manifest *Manifest) (err error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Name == sorted[i-1].Name {
			return fmt.Errorf("duplicate bundle entry %q", sorted[i].Name)
		}
	}

	outputFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := outputFile.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(outputFile)

	if manifest != nil {
		manifestJSON, err := manifest.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to serialize manifest: %w", err)
		}
		if err := addToZip(zw, ManifestName, manifestJSON); err != nil {
			return fmt.Errorf("failed to add manifest: %w", err)
		}
	}

	for _, e := range sorted {
		if err := addToZip(zw, e.Name, e.Data); err != nil {
			return fmt.Errorf("failed to add %s: %w", e.Name, err)
		}
	}

	return zw.Close()
}

func addToZip(zw *zip.Writer, name string, data []byte) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	}
	header.SetMode(0644)

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
