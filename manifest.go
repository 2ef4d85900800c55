package confprobe

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// DefaultManifestPath is where [ReadManifest] looks when no path is given.
const DefaultManifestPath = "features.toml"

// Manifest holds the feature declarations read from a project manifest.
// It is immutable after [ReadManifest] returns.
type Manifest struct {
	path     string
	features []string
}

// manifestFile is the subset of the manifest we care about. A manifest may
// carry arbitrary other sections; they are ignored. Each feature maps to a
// (possibly empty) list of implied features, which confprobe records but
// does not resolve.
type manifestFile struct {
	Features map[string][]string `toml:"features"`
}

// ReadManifest parses the manifest at path and returns the declared
// feature set. Any failure to read or decode yields a *[ManifestError].
func ReadManifest(path string) (*Manifest, error) {
	if path == "" {
		path = DefaultManifestPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestError{Path: path, Err: err}
	}

	var mf manifestFile
	if err := toml.Unmarshal(data, &mf); err != nil {
		return nil, &ManifestError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}

	features := make([]string, 0, len(mf.Features))
	for name := range mf.Features {
		features = append(features, name)
	}
	sort.Strings(features)

	return &Manifest{path: path, features: features}, nil
}

// Path returns the manifest path this Manifest was read from.
func (m *Manifest) Path() string {
	return m.path
}

// Features returns the declared feature names in sorted order.
// The returned slice is a copy.
func (m *Manifest) Features() []string {
	out := make([]string, len(m.features))
	copy(out, m.features)
	return out
}

// Declares reports whether name is a declared feature.
func (m *Manifest) Declares(name string) bool {
	i := sort.SearchStrings(m.features, name)
	return i < len(m.features) && m.features[i] == name
}
