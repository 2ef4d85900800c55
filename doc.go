// Package confprobe decides, per declared optional feature of a project,
// whether the feature should be enabled automatically, based on whether
// a small probe program exercising the required capability builds against
// the current toolchain. Unsupported capabilities are silently left
// disabled instead of failing the build, in the spirit of autotools
// configure scripts.
//
// # Model
//
// A manifest declares features under a [features] table. Features the
// caller forced on or off (via [Selection] or CONFPROBE_FEATURE_<NAME>
// environment variables) pass through unchanged. Every remaining feature
// with a probe program at probes/<name><ext> is compiled in an isolated
// temporary build area: success enables the feature, while failure
// (timeouts included) disables it and is never an error. A feature with
// no probe source is never auto-enabled.
//
// Only infrastructure problems are fatal: an unreadable or malformed
// manifest ([ManifestError]), an existing probe source that cannot be
// read ([ProbeSourceError]), or a toolchain that cannot be invoked at all
// ([ToolchainError]). A fatal error aborts the whole run with no partial
// decisions, so a build can never depend on an incomplete probe pass.
//
// # Quick Start
//
//	report, err := confprobe.Detect(ctx,
//	    confprobe.WithManifestPath("features.toml"),
//	    confprobe.WithProbeDir("probes"),
//	    confprobe.WithEnvSelection(confprobe.DefaultEnvPrefix),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(report)                    // human-readable summary
//	report.WriteDirectives(os.Stdout)    // enable-feature=<name> lines
//
// # Toolchains
//
// [GoToolchain] builds probes with `go build`; [CToolchain] uses $CC.
// Any compiler that accepts `command [args...] -o out src` fits the
// [Toolchain] struct. Probes for distinct features share no state and run
// through a bounded worker pool; [WithOrdered] switches to the sequential
// cascade where each probe is compiled with the features discovered so
// far injected as toolchain defines.
//
// # Determinism
//
// Re-running with an identical manifest, selection, probe sources, and
// toolchain yields identical decisions. The environment is injected
// ([WithEnviron]) rather than read from ambient state, and probe results
// are not cached across runs.
package confprobe
