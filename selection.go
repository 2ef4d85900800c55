package confprobe

import (
	"sort"
	"strings"
)

// DefaultEnvPrefix is the prefix used for environment-driven selection
// and control variables (CONFPROBE_FEATURE_<NAME>, CONFPROBE_INHIBIT).
const DefaultEnvPrefix = "CONFPROBE"

// Selection records the features whose state the caller fixed explicitly:
// true forces a feature on, false forces it off. Features absent from the
// Selection are undetermined and subject to probing.
type Selection map[string]bool

// Enable forces the given features on.
func (s Selection) Enable(names ...string) {
	for _, n := range names {
		s[n] = true
	}
}

// Disable forces the given features off.
func (s Selection) Disable(names ...string) {
	for _, n := range names {
		s[n] = false
	}
}

// Forced returns the forced state for a feature and whether the feature
// is part of the selection at all.
func (s Selection) Forced(name string) (enabled, ok bool) {
	enabled, ok = s[name]
	return enabled, ok
}

// EnvKey returns the environment variable name carrying the explicit
// state for a feature: <prefix>_FEATURE_<NAME> with the feature name
// uppercased and every non-alphanumeric byte mapped to '_'.
func EnvKey(prefix, feature string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString("_FEATURE_")
	for _, r := range strings.ToUpper(feature) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// EnvSelection derives a Selection from environment variables. For each
// declared feature it looks up [EnvKey](prefix, feature) in environ; a set
// variable forces the feature on unless its value is "0", "false", or
// "no" (case-insensitive), which forces it off. Unset variables leave the
// feature undetermined.
//
// environ uses the os.Environ "KEY=value" form so callers can inject a
// snapshot instead of reading ambient process state.
func EnvSelection(prefix string, declared []string, environ []string) Selection {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	sel := Selection{}
	for _, feature := range declared {
		v, ok := vars[EnvKey(prefix, feature)]
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "false", "no":
			sel.Disable(feature)
		default:
			sel.Enable(feature)
		}
	}
	return sel
}

// Merge overlays other onto s and returns s. Entries in other win.
func (s Selection) Merge(other Selection) Selection {
	for name, state := range other {
		s[name] = state
	}
	return s
}

// Undetermined returns the declared features that are not part of the
// selection, in sorted order. These are the features that get probed.
func Undetermined(declared []string, sel Selection) []string {
	out := make([]string, 0, len(declared))
	for _, name := range declared {
		if _, forced := sel[name]; !forced {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
