package main

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/leodido/confprobe"
	"github.com/leodido/structcli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"
	"go.uber.org/zap"
)

// Build metadata injected via ldflags (see .goreleaser.yaml).
// When built without ldflags (e.g., plain `go build`), these remain
// at their zero values and the version command omits them gracefully.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	root := &cobra.Command{
		Use:   "confprobe",
		Short: "Build-time feature detection via toolchain probes",
		Long: `confprobe decides which declared optional features of a project should be
enabled automatically, by compiling a small probe program per feature against
the current toolchain. Features the caller forced on or off (via flags or
` + confprobe.DefaultEnvPrefix + `_FEATURE_<NAME> environment variables) pass through unchanged;
everything else is enabled only when its probe builds.

Run it from the build orchestration step before the main compilation and feed
its directive output (one enable-feature=<name> line per enabled feature) to
the conditional-compilation mechanism of the host build.`,
		SilenceUsage: true,
	}

	root.AddCommand(detectCmd())
	root.AddCommand(featuresCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// toolchainKind selects one of the stock toolchains.
type toolchainKind enumflag.Flag

const (
	toolchainGo toolchainKind = iota
	toolchainCC
)

var toolchainIDs = map[toolchainKind][]string{
	toolchainGo: {"go"},
	toolchainCC: {"cc"},
}

func (k toolchainKind) toolchain() confprobe.Toolchain {
	if k == toolchainCC {
		return confprobe.CToolchain()
	}
	return confprobe.GoToolchain()
}

// DetectOptions defines flags for the detect subcommand.
type DetectOptions struct {
	Manifest        string        `flag:"manifest" flagshort:"m" flagdescr:"Path to the project manifest"`
	ProbeDir        string        `flag:"probe-dir" flagshort:"p" flagdescr:"Directory holding one probe program per feature"`
	Toolchain       toolchainKind `flag:"toolchain" flagshort:"t" flagdescr:"Toolchain for probe builds (go, cc)" flagcustom:"true"`
	Enable          featureList   `flag:"enable" flagdescr:"Features to force on (no probe runs)" flagcustom:"true"`
	Disable         featureList   `flag:"disable" flagdescr:"Features to force off (no probe runs)" flagcustom:"true"`
	Parallelism     int           `flag:"parallelism" flagshort:"P" flagdescr:"Max concurrent probe builds (0 = number of CPUs)"`
	Timeout         string        `flag:"timeout" flagdescr:"Per-probe toolchain timeout (e.g. 30s, 2m)"`
	Execute         bool          `flag:"execute" flagshort:"x" flagdescr:"Also run each built probe; exit 0 required for success"`
	Ordered         bool          `flag:"ordered" flagdescr:"Probe sequentially in sorted order, cascading discovered features"`
	DirectiveFormat string        `flag:"directive-format" flagdescr:"printf format (one %s, the feature name) for enablement directives"`
	Report          string        `flag:"report" flagdescr:"Also write the summary report to this file"`
	JSON            bool          `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
	Verbose         bool          `flag:"verbose" flagshort:"v" flagdescr:"Log probe-level details to stderr"`
}

func (o *DetectOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *DetectOptions) DefineToolchain(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*toolchainKind)
	*fieldPtr = toolchainGo
	return enumflag.New(fieldPtr, "toolchain", toolchainIDs, enumflag.EnumCaseInsensitive), descr
}

func (o *DetectOptions) DecodeToolchain(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	return parseToolchainKind(s)
}

func (o *DetectOptions) DefineEnable(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*featureList)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *DetectOptions) DecodeEnable(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	return parseFeatureList(s), nil
}

func (o *DetectOptions) DefineDisable(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*featureList)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *DetectOptions) DecodeDisable(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	return parseFeatureList(s), nil
}

func detectCmd() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Probe undetermined features and emit enablement directives",
		Long: `Read the manifest, probe every feature not explicitly selected, and print
one enablement directive per enabled feature on stdout. The human-readable
summary goes to stderr. Exits zero whenever the run completes, no matter how
many features ended up disabled; non-zero only on a fatal manifest, probe
source, or toolchain infrastructure error.

Set ` + confprobe.DefaultEnvPrefix + `_INHIBIT to control the run without touching the build scripts:
  skip  probe nothing, leave all undetermined features disabled, exit 0
  stop  do nothing at all, exit 0
  fail  abort the build, exit 1`,
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			return runDetect(c, opts)
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func runDetect(c *cobra.Command, opts *DetectOptions) error {
	inhibit := os.Getenv(confprobe.DefaultEnvPrefix + "_INHIBIT")
	switch inhibit {
	case "", "skip":
	case "stop":
		return nil
	case "fail":
		return fmt.Errorf("failure requested via %s_INHIBIT", confprobe.DefaultEnvPrefix)
	default:
		return fmt.Errorf("unknown %s_INHIBIT value: %q", confprobe.DefaultEnvPrefix, inhibit)
	}

	if opts.DirectiveFormat != "" && strings.Count(opts.DirectiveFormat, "%s") != 1 {
		return fmt.Errorf("directive format %q must contain exactly one %%s", opts.DirectiveFormat)
	}

	detectOpts := []confprobe.Option{
		confprobe.WithManifestPath(opts.Manifest),
		confprobe.WithProbeDir(opts.ProbeDir),
		confprobe.WithToolchain(opts.Toolchain.toolchain()),
		confprobe.WithEnvSelection(confprobe.DefaultEnvPrefix),
		confprobe.WithParallelism(opts.Parallelism),
	}

	sel := confprobe.Selection{}
	sel.Enable(opts.Enable...)
	sel.Disable(opts.Disable...)
	if len(sel) > 0 {
		detectOpts = append(detectOpts, confprobe.WithSelection(sel))
	}
	if opts.Timeout != "" {
		timeout, err := time.ParseDuration(opts.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		detectOpts = append(detectOpts, confprobe.WithTimeout(timeout))
	}
	if opts.Execute {
		detectOpts = append(detectOpts, confprobe.WithExecution())
	}
	if opts.Ordered {
		detectOpts = append(detectOpts, confprobe.WithOrdered())
	}
	if opts.DirectiveFormat != "" {
		detectOpts = append(detectOpts, confprobe.WithDirectiveFormat(opts.DirectiveFormat))
	}
	if inhibit == "skip" {
		detectOpts = append(detectOpts, confprobe.WithoutProbing())
	}
	if opts.Verbose {
		logger := zap.Must(zap.NewDevelopment())
		defer logger.Sync()
		detectOpts = append(detectOpts, confprobe.WithLogger(logger))
	}

	report, err := confprobe.Detect(c.Context(), detectOpts...)
	if err != nil {
		return err
	}

	if opts.Report != "" {
		if err := os.WriteFile(opts.Report, []byte(report.String()), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if opts.JSON {
		return printJSON(report)
	}

	fmt.Fprint(os.Stderr, report)
	return report.WriteDirectives(os.Stdout)
}

// FeaturesOptions defines flags for the features subcommand.
type FeaturesOptions struct {
	Manifest string `flag:"manifest" flagshort:"m" flagdescr:"Path to the project manifest"`
	JSON     bool   `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
}

func (o *FeaturesOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func featuresCmd() *cobra.Command {
	opts := &FeaturesOptions{}

	cmd := &cobra.Command{
		Use:   "features",
		Short: "List the features declared in the manifest",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			manifest, err := confprobe.ReadManifest(opts.Manifest)
			if err != nil {
				return err
			}

			features := manifest.Features()
			if opts.JSON {
				return printJSON(map[string]any{
					"manifest": manifest.Path(),
					"features": features,
				})
			}

			for _, f := range features {
				fmt.Println(f)
			}
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tool version",
		RunE: func(c *cobra.Command, args []string) error {
			if version != "" {
				fmt.Printf("confprobe %s", version)
				if commit != "" {
					fmt.Printf(" (%s)", commit)
				}
				if date != "" {
					fmt.Printf(" built %s", date)
				}
				fmt.Println()
			} else {
				fmt.Println("confprobe (dev)")
			}
			return nil
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// featureList is a comma-separable, repeatable feature name flag.
type featureList []string

func (l *featureList) String() string {
	return strings.Join(*l, ",")
}

func (l *featureList) Set(input string) error {
	*l = append(*l, parseFeatureList(input)...)
	return nil
}

func (l *featureList) Type() string {
	return "feature"
}

func parseFeatureList(input string) featureList {
	parts := strings.Split(input, ",")
	features := make(featureList, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			features = append(features, name)
		}
	}
	return features
}

func parseToolchainKind(input string) (toolchainKind, error) {
	var kind toolchainKind
	enumValue := enumflag.New(&kind, "toolchain", toolchainIDs, enumflag.EnumCaseInsensitive)
	if err := enumValue.Set(strings.TrimSpace(input)); err != nil {
		return toolchainGo, fmt.Errorf("unknown toolchain: %q (available: go, cc)", input)
	}
	return kind, nil
}
