package confprobe

import (
	"encoding/json"
	"fmt"
)

// Outcome is the result of probing a single feature.
type Outcome int

const (
	// OutcomeSkipped means no probe source exists for the feature.
	OutcomeSkipped Outcome = iota
	// OutcomeFailed means the probe program did not compile (or, when
	// execution is enabled, exited non-zero or timed out).
	OutcomeFailed
	// OutcomeCompiled means the probe program compiled successfully and,
	// when execution is enabled, exited zero.
	OutcomeCompiled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeCompiled:
		return "compiled"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Reason explains why a feature ended up enabled or disabled.
type Reason int

const (
	// ReasonExplicit means the caller forced the feature on or off;
	// its state is passed through unchanged, no probe runs.
	ReasonExplicit Reason = iota
	// ReasonProbeSucceeded means the probe program built, so the
	// capability is supported.
	ReasonProbeSucceeded
	// ReasonProbeFailed means the probe program did not build; the
	// capability is unsupported.
	ReasonProbeFailed
	// ReasonNoProbeSource means no probe program exists for the feature;
	// such a feature is never auto-enabled.
	ReasonNoProbeSource
	// ReasonInhibited means probing was inhibited for the whole run;
	// undetermined features stay disabled.
	ReasonInhibited
)

func (r Reason) String() string {
	switch r {
	case ReasonExplicit:
		return "explicit"
	case ReasonProbeSucceeded:
		return "probed-success"
	case ReasonProbeFailed:
		return "probed-failure"
	case ReasonNoProbeSource:
		return "no-probe-source"
	case ReasonInhibited:
		return "inhibited"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Decision is the final enable/disable verdict for one declared feature.
type Decision struct {
	Feature string `json:"feature"`
	Enabled bool   `json:"enabled"`
	Reason  Reason `json:"-"`
}

// MarshalJSON renders Reason as its string form.
func (d Decision) MarshalJSON() ([]byte, error) {
	type alias Decision
	return json.Marshal(struct {
		alias
		Reason string `json:"reason"`
	}{alias(d), d.Reason.String()})
}

// ProbeResult captures what happened when one feature was probed.
type ProbeResult struct {
	Feature string  `json:"feature"`
	Outcome Outcome `json:"-"`
	// Diagnostics holds the toolchain's combined output when the probe
	// failed. Informational only, never surfaced as an error.
	Diagnostics string `json:"diagnostics,omitempty"`
	// Output holds stdout of the executed probe binary when execution is
	// enabled and the probe passed. It is replayed into the directive
	// stream, mirroring build-script instruction pass-through.
	Output string `json:"output,omitempty"`
}

// MarshalJSON renders Outcome as its string form.
func (r ProbeResult) MarshalJSON() ([]byte, error) {
	type alias ProbeResult
	return json.Marshal(struct {
		alias
		Outcome string `json:"outcome"`
	}{alias(r), r.Outcome.String()})
}

// ManifestError reports an absent, unreadable, or malformed manifest.
// It is fatal: no feature detection is attempted without a valid
// declaration list.
type ManifestError struct {
	Path string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// ProbeSourceError reports a probe source that exists but cannot be read.
// Distinct from "no probe exists" (which is policy, not an error) and
// fatal for the run.
type ProbeSourceError struct {
	Feature string
	Path    string
	Err     error
}

func (e *ProbeSourceError) Error() string {
	return fmt.Sprintf("probe source for feature %s (%s): %v", e.Feature, e.Path, e.Err)
}

func (e *ProbeSourceError) Unwrap() error {
	return e.Err
}

// ToolchainError reports an infrastructure failure: the toolchain
// invocation itself could not be attempted (compiler missing, temp area
// not creatable). Fatal for the run. A probe that merely fails to compile
// is an [Outcome], never a ToolchainError.
type ToolchainError struct {
	Feature string
	Op      string
	Err     error
}

func (e *ToolchainError) Error() string {
	if e.Feature != "" {
		return fmt.Sprintf("toolchain: %s (feature %s): %v", e.Op, e.Feature, e.Err)
	}
	return fmt.Sprintf("toolchain: %s: %v", e.Op, e.Err)
}

func (e *ToolchainError) Unwrap() error {
	return e.Err
}
