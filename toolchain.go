package confprobe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultProbeTimeout bounds a single toolchain invocation. A probe that
// exceeds it is treated as failed, never as a run-level error.
const DefaultProbeTimeout = 30 * time.Second

// Toolchain describes how to turn a probe source into a build attempt.
// The zero value is not usable; start from [GoToolchain] or [CToolchain],
// or fill in the fields for a custom compiler.
type Toolchain struct {
	// Name labels the toolchain in reports.
	Name string
	// Command is the compiler binary, resolved via $PATH.
	Command string
	// BuildArgs come right after Command (e.g. the "build" verb).
	BuildArgs []string
	// Ext is the probe source file extension, dot included.
	Ext string
	// Env holds extra KEY=value entries appended to the inherited
	// environment for every invocation.
	Env []string
	// Defines injects the already-enabled feature set into a probe build
	// (ordered mode). Nil means the toolchain has no such mechanism.
	Defines func(features []string) []string
}

// GoToolchain probes with `go build`. Enabled features are injected as
// build tags.
func GoToolchain() Toolchain {
	return Toolchain{
		Name:      "go",
		Command:   "go",
		BuildArgs: []string{"build"},
		Ext:       ".go",
		Defines: func(features []string) []string {
			return []string{"-tags", strings.Join(features, ",")}
		},
	}
}

// CToolchain probes with the C compiler named by $CC, falling back to
// "cc". Enabled features are injected as -DFEATURE_<NAME> macros.
func CToolchain() Toolchain {
	command := os.Getenv("CC")
	if command == "" {
		command = "cc"
	}
	return Toolchain{
		Name:    "cc",
		Command: command,
		Ext:     ".c",
		Defines: func(features []string) []string {
			args := make([]string, 0, len(features))
			for _, f := range features {
				args = append(args, "-DFEATURE_"+mangle(f))
			}
			return args
		},
	}
}

// mangle turns a feature name into an identifier-safe token:
// uppercased, non-alphanumerics mapped to '_'.
func mangle(feature string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(feature) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Prober compiles probe programs in isolation and interprets the result.
type Prober struct {
	Toolchain Toolchain
	// Timeout bounds each toolchain invocation; zero means
	// [DefaultProbeTimeout].
	Timeout time.Duration
	// Execute runs the built artifact; exit status zero is then part of
	// the success criterion.
	Execute bool
	// WorkDir is the base for per-probe temporary areas; empty means the
	// system default.
	WorkDir string
	Logger  *zap.Logger
}

// Preflight verifies the toolchain can be invoked at all. A missing
// compiler binary is an infrastructure failure for the whole run, not a
// per-feature probe failure.
func (p *Prober) Preflight() error {
	if p.Toolchain.Command == "" {
		return &ToolchainError{Op: "preflight", Err: errors.New("no compiler command configured")}
	}
	if _, err := exec.LookPath(p.Toolchain.Command); err != nil {
		return &ToolchainError{Op: "locate " + p.Toolchain.Command, Err: err}
	}
	return nil
}

// Probe materializes src into a fresh temporary build area, attempts
// compilation (and execution, when enabled), and reports the outcome.
// defines carries already-enabled features for ordered mode; pass nil
// otherwise.
//
// Compile failures, non-zero probe exits, and timeouts are routine
// outcomes. The returned error is non-nil only for infrastructure
// failures (temp area not creatable, toolchain not invocable) or when
// ctx is cancelled. The build area is removed regardless of outcome.
func (p *Prober) Probe(ctx context.Context, src *ProbeSource, defines []string) (ProbeResult, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dir, err := os.MkdirTemp(p.WorkDir, "confprobe-"+mangleLower(src.Feature)+"-")
	if err != nil {
		return ProbeResult{}, &ToolchainError{Feature: src.Feature, Op: "create build area", Err: err}
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "probe"+p.Toolchain.Ext)
	if err := os.WriteFile(srcPath, src.Content, 0o644); err != nil {
		return ProbeResult{}, &ToolchainError{Feature: src.Feature, Op: "materialize probe source", Err: err}
	}
	binPath := filepath.Join(dir, "probe.bin")

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string(nil), p.Toolchain.BuildArgs...)
	if p.Toolchain.Defines != nil && len(defines) > 0 {
		args = append(args, p.Toolchain.Defines(defines)...)
	}
	args = append(args, "-o", binPath, srcPath)

	logger.Debug("compiling probe",
		zap.String("feature", src.Feature),
		zap.String("command", p.Toolchain.Command),
		zap.Strings("args", args),
	)

	out, err := p.runCommand(cctx, dir, p.Toolchain.Command, args...)
	if err != nil {
		return p.interpret(ctx, cctx, src.Feature, "compile", out, err)
	}

	if !p.Execute {
		return ProbeResult{Feature: src.Feature, Outcome: OutcomeCompiled}, nil
	}

	logger.Debug("executing probe", zap.String("feature", src.Feature), zap.String("binary", binPath))

	stdout, err := p.runCommand(cctx, dir, binPath)
	if err != nil {
		return p.interpret(ctx, cctx, src.Feature, "execute", stdout, err)
	}
	return ProbeResult{Feature: src.Feature, Outcome: OutcomeCompiled, Output: stdout}, nil
}

// runCommand runs one subprocess in the build area and returns its
// combined output. On unix the child gets its own process group so a
// timeout kills the whole toolchain tree.
func (p *Prober) runCommand(ctx context.Context, dir, command string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), p.Toolchain.Env...)
	cmd.WaitDelay = 5 * time.Second
	isolateProcess(cmd)

	out, err := cmd.CombinedOutput()
	return string(out), err
}

// interpret classifies a subprocess error: cancellation propagates,
// timeouts and non-zero exits are routine failures, anything else is
// toolchain infrastructure.
func (p *Prober) interpret(ctx, cctx context.Context, feature, stage, out string, err error) (ProbeResult, error) {
	if ctx.Err() != nil {
		return ProbeResult{}, ctx.Err()
	}
	if cctx.Err() == context.DeadlineExceeded {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = DefaultProbeTimeout
		}
		return ProbeResult{
			Feature:     feature,
			Outcome:     OutcomeFailed,
			Diagnostics: fmt.Sprintf("%s timed out after %s", stage, timeout),
		}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return ProbeResult{Feature: feature, Outcome: OutcomeFailed, Diagnostics: out}, nil
	}
	return ProbeResult{}, &ToolchainError{Feature: feature, Op: stage, Err: err}
}

// mangleLower is mangle for temp dir names: lowercased so the build area
// is readable, with the same non-alphanumeric folding.
func mangleLower(feature string) string {
	return strings.ToLower(mangle(feature))
}
