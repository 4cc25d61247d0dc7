package bundler

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func testEntries() []Entry {
	return []Entry{
		{Name: "rules.txt", Data: []byte("part /tmp --mountoptions=nodev\n")},
		{Name: "plan.yaml", Data: []byte("storage:\n  mount_points: {}\n")},
		{Name: "result.json", Data: []byte(`{"outcome":"PASS"}`)},
	}
}

func TestBundleDeterminism(t *testing.T) {
	tmpDir := t.TempDir()
	bundle1 := filepath.Join(tmpDir, "bundle1.zip")
	bundle2 := filepath.Join(tmpDir, "bundle2.zip")

	entries := testEntries()
	manifest := NewManifest(entries)

	if err := CreateBundle(bundle1, entries, manifest); err != nil {
		t.Fatalf("first CreateBundle failed: %v", err)
	}

	// input order must not matter
	reversed := []Entry{entries[2], entries[1], entries[0]}
	if err := CreateBundle(bundle2, reversed, NewManifest(reversed)); err != nil {
		t.Fatalf("second CreateBundle failed: %v", err)
	}

	hash1, err := hashFileContent(bundle1)
	if err != nil {
		t.Fatalf("failed to hash bundle1: %v", err)
	}
	hash2, err := hashFileContent(bundle2)
	if err != nil {
		t.Fatalf("failed to hash bundle2: %v", err)
	}

	if hash1 != hash2 {
		t.Errorf("bundles are not deterministic:\nbundle1: %s\nbundle2: %s", hash1, hash2)
	}
}

func TestBundleContents(t *testing.T) {
	out := filepath.Join(t.TempDir(), "evidence.zip")
	entries := testEntries()
	manifest := NewManifest(entries)
	manifest.PlanBefore = "sha256:aaaa"
	manifest.Outcome = "PASS"

	if err := CreateBundle(out, entries, manifest); err != nil {
		t.Fatalf("CreateBundle failed: %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("failed to open bundle: %v", err)
	}
	defer zr.Close()

	want := []string{ManifestName, "plan.yaml", "result.json", "rules.txt"}
	if len(zr.File) != len(want) {
		t.Fatalf("bundle has %d files, want %d", len(zr.File), len(want))
	}
	for i, f := range zr.File {
		if f.Name != want[i] {
			t.Errorf("file %d = %s, want %s", i, f.Name, want[i])
		}
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Manifest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if decoded.PlanBefore != "sha256:aaaa" || decoded.Outcome != "PASS" || len(decoded.Files) != 3 {
		t.Errorf("manifest = %+v", decoded)
	}
}

func TestBundleDuplicateEntry(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dup.zip")
	entries := []Entry{{Name: "a.txt"}, {Name: "a.txt"}}
	if err := CreateBundle(out, entries, nil); err == nil {
		t.Error("expected error for duplicate entries")
	}
}

func TestManifestGeneration(t *testing.T) {
	manifest := NewManifest(testEntries())

	if manifest.ToolVersion == "" {
		t.Error("expected tool_version to be set")
	}
	if len(manifest.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(manifest.Files))
	}

	for i := 1; i < len(manifest.Files); i++ {
		if manifest.Files[i-1].Name >= manifest.Files[i].Name {
			t.Errorf("files not sorted: %s >= %s", manifest.Files[i-1].Name, manifest.Files[i].Name)
		}
	}

	sum := sha256.Sum256([]byte("part /tmp --mountoptions=nodev\n"))
	rules := manifest.Files[2]
	if rules.Name != "rules.txt" || rules.SHA256 != fmt.Sprintf("%x", sum) || rules.Size != 31 {
		t.Errorf("rules entry = %+v", rules)
	}
}

func TestManifestToJSON(t *testing.T) {
	manifest := &Manifest{
		ToolVersion: "1.0.0",
		Files: []ManifestFile{
			{Name: "file1.txt", SHA256: "hash1", Size: 100},
			{Name: "file2.txt", SHA256: "hash2", Size: 200},
		},
	}

	jsonBytes, err := manifest.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	jsonBytes2, _ := manifest.ToJSON()
	if string(jsonBytes) != string(jsonBytes2) {
		t.Error("ToJSON not deterministic")
	}
}

func hashFileContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

func TestOpenVerify(t *testing.T) {
	out := filepath.Join(t.TempDir(), "evidence.zip")
	entries := testEntries()
	manifest := NewManifest(entries)
	extra := append(entries, Entry{Name: SignatureName, Data: []byte("sig")})

	if err := CreateBundle(out, extra, manifest); err != nil {
		t.Fatalf("CreateBundle failed: %v", err)
	}

	c, err := Open(out)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := c.Verify(); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
	if len(c.Manifest.Files) != 3 || string(c.Files["rules.txt"]) != "part /tmp --mountoptions=nodev\n" {
		t.Errorf("contents = %+v", c)
	}
}

func TestVerify_Tampered(t *testing.T) {
	entries := testEntries()
	manifest := NewManifest(entries)

	tests := []struct {
		name   string
		mutate func(files map[string][]byte)
	}{
		{"modified", func(f map[string][]byte) { f["rules.txt"] = []byte("part /tmp\n") }},
		{"missing", func(f map[string][]byte) { delete(f, "plan.yaml") }},
		{"added", func(f map[string][]byte) { f["extra.sh"] = []byte("#!/bin/sh\n") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := map[string][]byte{}
			for _, e := range entries {
				files[e.Name] = e.Data
			}
			tt.mutate(files)

			c := &Contents{Manifest: manifest, Files: files}
			if err := c.Verify(); !errors.Is(err, ErrTampered) {
				t.Errorf("Verify() error = %v, want ErrTampered", err)
			}
		})
	}
}

func TestOpen_NoManifest(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bare.zip")
	if err := CreateBundle(out, testEntries(), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(out); err == nil {
		t.Error("expected error for bundle without manifest")
	}
}
