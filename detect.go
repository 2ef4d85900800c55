package confprobe

import (
	"context"
	"os"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// detectConfig holds the configuration for one detection run.
type detectConfig struct {
	manifestPath    string
	manifest        *Manifest
	locator         Locator
	probeDir        string
	toolchain       Toolchain
	selection       Selection
	envPrefix       string
	environ         []string
	parallelism     int
	timeout         time.Duration
	execute         bool
	ordered         bool
	inhibited       bool
	workDir         string
	directiveFormat string
	logger          *zap.Logger
}

// Option configures [Detect].
type Option func(*detectConfig)

// WithManifestPath sets the manifest to read feature declarations from.
func WithManifestPath(path string) Option {
	return func(c *detectConfig) {
		c.manifestPath = path
	}
}

// WithManifest supplies an already-read manifest, skipping the read stage.
func WithManifest(m *Manifest) Option {
	return func(c *detectConfig) {
		c.manifest = m
	}
}

// WithLocator supplies a custom probe source locator. The default is a
// [DirLocator] over the conventional probe directory using the
// toolchain's source extension.
func WithLocator(l Locator) Option {
	return func(c *detectConfig) {
		c.locator = l
	}
}

// WithProbeDir sets the directory the default [DirLocator] searches.
func WithProbeDir(dir string) Option {
	return func(c *detectConfig) {
		c.probeDir = dir
	}
}

// WithToolchain selects the toolchain used for probe builds.
// The default is [GoToolchain].
func WithToolchain(tc Toolchain) Option {
	return func(c *detectConfig) {
		c.toolchain = tc
	}
}

// WithSelection supplies the caller's explicit feature selection.
// Entries override anything derived from the environment.
func WithSelection(sel Selection) Option {
	return func(c *detectConfig) {
		c.selection = sel
	}
}

// WithEnvSelection derives explicit selection from environment variables
// named <prefix>_FEATURE_<NAME> (see [EnvSelection]).
func WithEnvSelection(prefix string) Option {
	return func(c *detectConfig) {
		c.envPrefix = prefix
	}
}

// WithEnviron injects an environment snapshot in os.Environ form, keeping
// detection deterministic and testable. Defaults to the process
// environment when env selection is enabled.
func WithEnviron(environ []string) Option {
	return func(c *detectConfig) {
		c.environ = environ
	}
}

// WithParallelism caps the number of concurrent probe builds.
// Defaults to runtime.GOMAXPROCS(0). Values below one mean the default.
func WithParallelism(n int) Option {
	return func(c *detectConfig) {
		c.parallelism = n
	}
}

// WithTimeout bounds each individual toolchain invocation.
func WithTimeout(d time.Duration) Option {
	return func(c *detectConfig) {
		c.timeout = d
	}
}

// WithExecution additionally runs each successfully built probe; exit
// status zero then becomes part of the success criterion, and probe
// stdout is replayed into the directive stream.
func WithExecution() Option {
	return func(c *detectConfig) {
		c.execute = true
	}
}

// WithOrdered runs probes sequentially in sorted feature order, feeding
// each probe the features already enabled so far (explicit plus
// discovered) through the toolchain's define mechanism. Lets a probe
// depend on features that sort before it.
func WithOrdered() Option {
	return func(c *detectConfig) {
		c.ordered = true
	}
}

// WithoutProbing skips all probe builds: every undetermined feature is
// reported skipped and stays disabled. Explicit selection still passes
// through unchanged.
func WithoutProbing() Option {
	return func(c *detectConfig) {
		c.inhibited = true
	}
}

// WithWorkDir sets the base directory for the per-probe temporary build
// areas. Defaults to the system temp directory.
func WithWorkDir(dir string) Option {
	return func(c *detectConfig) {
		c.workDir = dir
	}
}

// WithDirectiveFormat sets the printf-style format, with one %s verb for
// the feature name, used by [Report.WriteDirectives].
func WithDirectiveFormat(format string) Option {
	return func(c *detectConfig) {
		c.directiveFormat = format
	}
}

// WithLogger attaches a logger for probe-level debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(c *detectConfig) {
		c.logger = logger
	}
}

// Detect runs the full pipeline: read the manifest, resolve the
// undetermined feature set, probe each undetermined feature with a probe
// source, and assemble the decision set.
//
// A nil error means the run completed, however many features ended up
// disabled. A non-nil error is always fatal (*[ManifestError],
// *[ProbeSourceError], *[ToolchainError], or context cancellation) and no
// partial Report is returned: enablement is all-or-nothing per run.
func Detect(ctx context.Context, opts ...Option) (*Report, error) {
	cfg := &detectConfig{
		toolchain:       GoToolchain(),
		directiveFormat: DefaultDirectiveFormat,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.parallelism < 1 {
		cfg.parallelism = runtime.GOMAXPROCS(0)
	}

	started := time.Now()

	manifest := cfg.manifest
	if manifest == nil {
		var err error
		if manifest, err = ReadManifest(cfg.manifestPath); err != nil {
			return nil, err
		}
	}
	declared := manifest.Features()

	sel := Selection{}
	if cfg.envPrefix != "" {
		environ := cfg.environ
		if environ == nil {
			environ = os.Environ()
		}
		sel = EnvSelection(cfg.envPrefix, declared, environ)
	}
	sel.Merge(cfg.selection)

	undetermined := Undetermined(declared, sel)
	cfg.logger.Debug("resolved feature sets",
		zap.Int("declared", len(declared)),
		zap.Int("explicit", len(sel)),
		zap.Int("undetermined", len(undetermined)),
	)

	results, err := probeAll(ctx, cfg, sel, undetermined)
	if err != nil {
		return nil, err
	}

	decisions := make([]Decision, 0, len(declared))
	for _, feature := range declared {
		if enabled, forced := sel.Forced(feature); forced {
			decisions = append(decisions, Decision{Feature: feature, Enabled: enabled, Reason: ReasonExplicit})
			continue
		}
		result := results[feature]
		switch result.Outcome {
		case OutcomeCompiled:
			decisions = append(decisions, Decision{Feature: feature, Enabled: true, Reason: ReasonProbeSucceeded})
		case OutcomeFailed:
			decisions = append(decisions, Decision{Feature: feature, Enabled: false, Reason: ReasonProbeFailed})
		default:
			reason := ReasonNoProbeSource
			if cfg.inhibited {
				reason = ReasonInhibited
			}
			decisions = append(decisions, Decision{Feature: feature, Enabled: false, Reason: reason})
		}
	}

	return &Report{
		ManifestPath:    manifest.Path(),
		Toolchain:       cfg.toolchain.Name,
		Decisions:       decisions,
		Results:         results,
		DirectiveFormat: cfg.directiveFormat,
		Elapsed:         time.Since(started),
	}, nil
}

// probeAll locates and probes every undetermined feature, sequentially in
// ordered mode and through a bounded worker pool otherwise. Features
// without a probe source come back as skipped.
func probeAll(ctx context.Context, cfg *detectConfig, sel Selection, undetermined []string) (map[string]ProbeResult, error) {
	results := make(map[string]ProbeResult, len(undetermined))
	if cfg.inhibited {
		for _, feature := range undetermined {
			results[feature] = ProbeResult{Feature: feature, Outcome: OutcomeSkipped}
		}
		return results, nil
	}
	if len(undetermined) == 0 {
		return results, nil
	}

	locator := cfg.locator
	if locator == nil {
		locator = DirLocator{Dir: cfg.probeDir, Ext: cfg.toolchain.Ext}
	}

	prober := &Prober{
		Toolchain: cfg.toolchain,
		Timeout:   cfg.timeout,
		Execute:   cfg.execute,
		WorkDir:   cfg.workDir,
		Logger:    cfg.logger,
	}
	if err := prober.Preflight(); err != nil {
		return nil, err
	}

	// Locate everything up front: an unreadable existing probe source is
	// fatal and must abort before any toolchain work starts.
	sources := make([]*ProbeSource, 0, len(undetermined))
	for _, feature := range undetermined {
		src, err := locator.Locate(feature)
		if err != nil {
			return nil, err
		}
		if src == nil {
			results[feature] = ProbeResult{Feature: feature, Outcome: OutcomeSkipped}
			continue
		}
		sources = append(sources, src)
	}

	if cfg.ordered {
		// Sequential cascade: every probe sees the features enabled so
		// far. sources is already in sorted feature order.
		enabled := enabledFeatures(sel)
		for _, src := range sources {
			result, err := prober.Probe(ctx, src, enabled)
			if err != nil {
				return nil, err
			}
			results[src.Feature] = result
			if result.Outcome == OutcomeCompiled {
				enabled = append(enabled, src.Feature)
			}
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.parallelism)
	probed := make([]ProbeResult, len(sources))
	for i, src := range sources {
		g.Go(func() error {
			result, err := prober.Probe(gctx, src, nil)
			if err != nil {
				return err
			}
			probed[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, result := range probed {
		results[result.Feature] = result
	}
	return results, nil
}

func enabledFeatures(sel Selection) []string {
	var out []string
	for name, state := range sel {
		if state {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
