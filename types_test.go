package confprobe

import (
	"encoding/json"
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeSkipped, "skipped"},
		{OutcomeFailed, "failed"},
		{OutcomeCompiled, "compiled"},
		{Outcome(42), "Outcome(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.outcome.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReasonString(t *testing.T) {
	tests := []struct {
		reason Reason
		want   string
	}{
		{ReasonExplicit, "explicit"},
		{ReasonProbeSucceeded, "probed-success"},
		{ReasonProbeFailed, "probed-failure"},
		{ReasonNoProbeSource, "no-probe-source"},
		{ReasonInhibited, "inhibited"},
		{Reason(42), "Reason(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.reason.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestManifestError(t *testing.T) {
	err := &ManifestError{Path: "features.toml", Err: fs.ErrNotExist}

	if !strings.Contains(err.Error(), "features.toml") {
		t.Errorf("Error() = %q, missing path", err.Error())
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("errors.Is(err, fs.ErrNotExist) = false, want true")
	}
}

func TestProbeSourceError(t *testing.T) {
	err := &ProbeSourceError{Feature: "simd", Path: "probes/simd.go", Err: fs.ErrPermission}

	msg := err.Error()
	if !strings.Contains(msg, "simd") || !strings.Contains(msg, "probes/simd.go") {
		t.Errorf("Error() = %q, missing feature or path", msg)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("errors.Is(err, fs.ErrPermission) = false, want true")
	}
}

func TestToolchainError(t *testing.T) {
	t.Run("with feature", func(t *testing.T) {
		err := &ToolchainError{Feature: "gpu", Op: "compile", Err: errors.New("boom")}
		msg := err.Error()
		if !strings.Contains(msg, "gpu") || !strings.Contains(msg, "compile") {
			t.Errorf("Error() = %q, missing feature or op", msg)
		}
	})

	t.Run("without feature", func(t *testing.T) {
		err := &ToolchainError{Op: "locate cc", Err: errors.New("not found")}
		if strings.Contains(err.Error(), "feature") {
			t.Errorf("Error() = %q, unexpected feature clause", err.Error())
		}
	})
}

func TestDecisionMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Decision{Feature: "simd", Enabled: true, Reason: ReasonProbeSucceeded})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["feature"] != "simd" {
		t.Errorf("feature = %v, want simd", got["feature"])
	}
	if got["enabled"] != true {
		t.Errorf("enabled = %v, want true", got["enabled"])
	}
	if got["reason"] != "probed-success" {
		t.Errorf("reason = %v, want probed-success", got["reason"])
	}
}

func TestProbeResultMarshalJSON(t *testing.T) {
	data, err := json.Marshal(ProbeResult{Feature: "gpu", Outcome: OutcomeFailed, Diagnostics: "no such intrinsic"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["outcome"] != "failed" {
		t.Errorf("outcome = %v, want failed", got["outcome"])
	}
	if got["diagnostics"] != "no such intrinsic" {
		t.Errorf("diagnostics = %v, want captured output", got["diagnostics"])
	}
}
