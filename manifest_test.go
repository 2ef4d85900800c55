package confprobe

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "features.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadManifest(t *testing.T) {
	path := writeManifest(t, `[package]
name = "demo"

[features]
simd = []
gpu = ["simd"]
legacy = []

[profile]
opt = 3
`)

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}

	want := []string{"gpu", "legacy", "simd"}
	if got := m.Features(); !reflect.DeepEqual(got, want) {
		t.Errorf("Features() = %v, want %v", got, want)
	}
	if m.Path() != path {
		t.Errorf("Path() = %q, want %q", m.Path(), path)
	}
}

func TestReadManifest_NoFeaturesSection(t *testing.T) {
	path := writeManifest(t, `[package]
name = "demo"
`)

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if got := m.Features(); len(got) != 0 {
		t.Errorf("Features() = %v, want empty", got)
	}
}

func TestReadManifest_Missing(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "nope.toml"))

	var merr *ManifestError
	if !errors.As(err, &merr) {
		t.Fatalf("ReadManifest() error = %v, want *ManifestError", err)
	}
	if !os.IsNotExist(merr.Err) {
		t.Errorf("wrapped error = %v, want not-exist", merr.Err)
	}
}

func TestReadManifest_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"broken toml", "[features\nsimd = []"},
		{"wrong value type", "[features]\nsimd = 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadManifest(writeManifest(t, tt.content))
			var merr *ManifestError
			if !errors.As(err, &merr) {
				t.Fatalf("ReadManifest() error = %v, want *ManifestError", err)
			}
		})
	}
}

func TestManifestDeclares(t *testing.T) {
	path := writeManifest(t, "[features]\nsimd = []\ngpu = []\n")

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}

	if !m.Declares("simd") {
		t.Error("Declares(simd) = false, want true")
	}
	if m.Declares("SIMD") {
		t.Error("Declares(SIMD) = true, feature names are case-sensitive")
	}
	if m.Declares("nope") {
		t.Error("Declares(nope) = true, want false")
	}
}

func TestManifestFeatures_Copy(t *testing.T) {
	path := writeManifest(t, "[features]\nsimd = []\n")

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}

	m.Features()[0] = "mutated"
	if !m.Declares("simd") {
		t.Error("mutating the returned slice must not affect the manifest")
	}
}
