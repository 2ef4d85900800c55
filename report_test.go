package confprobe

import (
	"strings"
	"testing"
)

func sampleReport() *Report {
	return &Report{
		ManifestPath: "features.toml",
		Toolchain:    "go",
		Decisions: []Decision{
			{Feature: "gpu", Enabled: false, Reason: ReasonProbeFailed},
			{Feature: "legacy", Enabled: false, Reason: ReasonExplicit},
			{Feature: "simd", Enabled: true, Reason: ReasonProbeSucceeded},
		},
		Results: map[string]ProbeResult{
			"gpu":  {Feature: "gpu", Outcome: OutcomeFailed, Diagnostics: "no gpu"},
			"simd": {Feature: "simd", Outcome: OutcomeCompiled},
		},
	}
}

func TestReportString(t *testing.T) {
	out := sampleReport().String()

	for _, want := range []string{
		"Manifest: features.toml",
		"Toolchain: go",
		"simd: enabled (probed-success)",
		"gpu: disabled (unsupported)",
		"legacy: disabled (explicit)",
		"Enabled: 1/3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestReportEnabled(t *testing.T) {
	got := sampleReport().Enabled()
	if len(got) != 1 || got[0] != "simd" {
		t.Errorf("Enabled() = %v, want [simd]", got)
	}
}

func TestReportWriteDirectives(t *testing.T) {
	var b strings.Builder
	if err := sampleReport().WriteDirectives(&b); err != nil {
		t.Fatalf("WriteDirectives() error = %v", err)
	}

	if got, want := b.String(), "enable-feature=simd\n"; got != want {
		t.Errorf("directives = %q, want %q", got, want)
	}
}

func TestReportWriteDirectives_CustomFormat(t *testing.T) {
	r := sampleReport()
	r.DirectiveFormat = "-tags %s"

	var b strings.Builder
	if err := r.WriteDirectives(&b); err != nil {
		t.Fatalf("WriteDirectives() error = %v", err)
	}
	if got, want := b.String(), "-tags simd\n"; got != want {
		t.Errorf("directives = %q, want %q", got, want)
	}
}

func TestReportWriteDirectives_OutputPassThrough(t *testing.T) {
	r := sampleReport()
	r.Results["simd"] = ProbeResult{
		Feature: "simd",
		Outcome: OutcomeCompiled,
		Output:  "extra-directive=1\n",
	}

	var b strings.Builder
	if err := r.WriteDirectives(&b); err != nil {
		t.Fatalf("WriteDirectives() error = %v", err)
	}
	if got, want := b.String(), "enable-feature=simd\nextra-directive=1\n"; got != want {
		t.Errorf("directives = %q, want %q", got, want)
	}
}

func TestReportWriteDirectives_NothingEnabled(t *testing.T) {
	r := &Report{
		Decisions: []Decision{
			{Feature: "gpu", Enabled: false, Reason: ReasonProbeFailed},
		},
	}

	var b strings.Builder
	if err := r.WriteDirectives(&b); err != nil {
		t.Fatalf("WriteDirectives() error = %v", err)
	}
	if b.Len() != 0 {
		t.Errorf("directives = %q, want empty (absence means disabled)", b.String())
	}
}
