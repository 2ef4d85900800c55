package confprobe

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultDirectiveFormat is the directive emitted per enabled feature,
// one line each; absence of a directive means the feature is disabled.
const DefaultDirectiveFormat = "enable-feature=%s"

// Report is the outcome of one detection run: a Decision for every
// declared feature plus the raw probe results for the undetermined ones.
type Report struct {
	ManifestPath string                 `json:"manifest"`
	Toolchain    string                 `json:"toolchain"`
	Decisions    []Decision             `json:"decisions"`
	Results      map[string]ProbeResult `json:"results,omitempty"`
	// DirectiveFormat is the printf-style format (one %s verb, the
	// feature name) used by [Report.WriteDirectives].
	DirectiveFormat string        `json:"-"`
	Elapsed         time.Duration `json:"elapsed_ns"`
}

// Enabled returns the names of all enabled features, in decision order.
func (r *Report) Enabled() []string {
	var out []string
	for _, d := range r.Decisions {
		if d.Enabled {
			out = append(out, d.Feature)
		}
	}
	return out
}

// WriteDirectives emits one enablement directive per enabled feature,
// followed by any stdout captured from executed probes. This is the
// channel the build orchestrator reads; everything human-readable
// belongs in [Report.String] instead.
func (r *Report) WriteDirectives(w io.Writer) error {
	format := r.DirectiveFormat
	if format == "" {
		format = DefaultDirectiveFormat
	}
	for _, d := range r.Decisions {
		if !d.Enabled {
			continue
		}
		if _, err := fmt.Fprintf(w, format+"\n", d.Feature); err != nil {
			return err
		}
		if result, ok := r.Results[d.Feature]; ok && result.Output != "" {
			if _, err := io.WriteString(w, result.Output); err != nil {
				return err
			}
		}
	}
	return nil
}

// String returns a human-readable summary of the run.
func (r *Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Manifest: %s\n", r.ManifestPath)
	fmt.Fprintf(&b, "Toolchain: %s\n", r.Toolchain)
	b.WriteString("\n")

	b.WriteString("Features:\n")
	for _, d := range r.Decisions {
		writeDecision(&b, d)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Enabled: %d/%d\n", len(r.Enabled()), len(r.Decisions))
	return b.String()
}

func writeDecision(b *strings.Builder, d Decision) {
	status := "disabled"
	if d.Enabled {
		status = "enabled"
	}
	detail := d.Reason.String()
	if d.Reason == ReasonProbeFailed {
		detail = "unsupported"
	}
	fmt.Fprintf(b, "  %s: %s (%s)\n", d.Feature, status, detail)
}
