package confprobe

import (
	"os"
	"path/filepath"
)

// DefaultProbeDir is the conventional directory holding probe programs.
const DefaultProbeDir = "probes"

// ProbeSource is the source text of one feature's probe program.
type ProbeSource struct {
	Feature string
	// Path is where the source was found; empty for in-memory sources.
	Path    string
	Content []byte
}

// Locator maps a feature name to its probe source, if one exists.
//
// Locate returns (nil, nil) when no probe source exists for the feature;
// that is policy, not an error: the feature is simply never auto-enabled.
// An existing-but-unreadable source yields a *[ProbeSourceError].
type Locator interface {
	Locate(feature string) (*ProbeSource, error)
}

// DirLocator locates probe sources on the filesystem by convention:
// one file per feature at <Dir>/<feature><Ext>.
type DirLocator struct {
	Dir string
	Ext string
}

// Locate implements [Locator].
func (l DirLocator) Locate(feature string) (*ProbeSource, error) {
	dir := l.Dir
	if dir == "" {
		dir = DefaultProbeDir
	}
	path := filepath.Join(dir, feature+l.Ext)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &ProbeSourceError{Feature: feature, Path: path, Err: err}
	}
	return &ProbeSource{Feature: feature, Path: path, Content: content}, nil
}

// MapLocator serves probe sources from memory, keyed by feature name.
// Useful for tests and for callers embedding their probes.
type MapLocator map[string]string

// Locate implements [Locator].
func (l MapLocator) Locate(feature string) (*ProbeSource, error) {
	content, ok := l[feature]
	if !ok {
		return nil, nil
	}
	return &ProbeSource{Feature: feature, Content: []byte(content)}, nil
}
