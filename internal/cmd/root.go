package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/unhide/internal/config"
	errwrap "github.com/3leaps/unhide/internal/errors"
	"github.com/3leaps/unhide/internal/observability"
	"github.com/3leaps/unhide/pkg/match"
	"github.com/3leaps/unhide/pkg/output"
	"github.com/3leaps/unhide/pkg/provider"
	"github.com/3leaps/unhide/pkg/provider/b2"
	"github.com/3leaps/unhide/pkg/provider/minio"
	"github.com/3leaps/unhide/pkg/provider/s3"
	"github.com/3leaps/unhide/pkg/unhide"
)

// versionInfo is set from main via SetVersionInfo.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// AppIdentity names the binary and where it looks for configuration.
type AppIdentity struct {
	BinaryName string
	EnvPrefix  string
	ConfigName string
}

var appIdentity = &AppIdentity{
	BinaryName: config.AppName,
	EnvPrefix:  config.EnvPrefix,
	ConfigName: config.AppName,
}

// GetAppIdentity returns the application identity.
func GetAppIdentity() *AppIdentity {
	return appIdentity
}

// appConfig is the effective configuration, loaded before any command runs.
var appConfig *config.Config

var (
	cfgFile   string
	envFile   string
	dryRun    bool
	includes  []string
	excludes  []string
	overrides = []flagOverride{
		{flag: "backend", key: "backend"},
		{flag: "b2-binary", key: "b2.binary"},
		{flag: "region", key: "s3.region"},
		{flag: "profile", key: "s3.profile"},
		{flag: "endpoint", key: "s3.endpoint"},
		{flag: "format", key: "output.format"},
		{flag: "log-level", key: "logging.level"},
		{flag: "log-profile", key: "logging.profile"},
	}
)

// flagOverride maps a command-line flag onto a config key.
type flagOverride struct {
	flag string
	key  string
}

var rootCmd = &cobra.Command{
	Use:   "unhide <bucket> [prefix] [dry-run]",
	Short: "Remove hide markers from a versioned bucket",
	Long: `Find every hidden file in a versioned bucket and make it visible again.

A file is hidden when its latest version is a hide marker: a B2 "hide"
action or an S3/MinIO delete marker. unhide lists all versions under the
prefix, collects the distinct hidden names and removes one marker per name.

Dry run prints the command that would remove each marker. For s3 and minio
the preview shows ` + provider.LatestDeleteMarker + ` in place of the marker's version id;
the real id is looked up only when unhiding.

Examples:
  unhide my-bucket                        # Unhide everything (B2)
  unhide my-bucket photos/2024 --dry-run  # Preview the commands
  unhide my-bucket photos/2024 dry-run    # Same, positional form
  unhide my-bucket --backend s3 --region eu-west-1
  unhide my-bucket --include 'logs/**' --exclude '**/*.tmp'
  unhide my-bucket --format jsonl

Exit codes:
  0  success, including nothing to do
  1  setup failed (missing tool or credentials, bad arguments, listing error)
  2  finished, but some files could not be unhidden`,
	Args:              cobra.RangeArgs(1, 3),
	PersistentPreRunE: loadAppConfig,
	RunE:              runUnhide,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/unhide/config.yaml)")
	pf.StringVar(&envFile, "env-file", "", "Load environment variables from a .env file")
	pf.String("backend", "", "Storage backend: b2, s3 or minio (default b2)")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-profile", "", "Log format on stderr: console or structured")

	f := rootCmd.Flags()
	f.BoolVar(&dryRun, "dry-run", false, "Print the unhide commands without running them")
	f.String("b2-binary", "", "b2 CLI executable (default b2)")
	f.StringP("region", "r", "", "AWS region (s3)")
	f.StringP("profile", "p", "", "AWS profile (s3)")
	f.String("endpoint", "", "Custom S3 endpoint (s3)")
	f.StringArrayVar(&includes, "include", nil, "Only unhide names matching this glob (repeatable)")
	f.StringArrayVar(&excludes, "exclude", nil, "Skip names matching this glob (repeatable)")
	f.String("format", "", "Output format: text or jsonl")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		var classified *errwrap.Error
		if !errors.As(err, &classified) {
			// Not reported by a command, e.g. an argument count error.
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	}
	return errwrap.ExitCode(err)
}

// loadAppConfig loads configuration and initializes the CLI logger.
func loadAppConfig(cmd *cobra.Command, args []string) error {
	observability.InitCLILogger(config.AppName, false)

	opts := config.Options{
		ConfigFile: cfgFile,
		EnvFile:    envFile,
		Overrides:  collectOverrides(cmd),
	}
	cfg, err := config.Load(cmd.Context(), opts)
	if err != nil {
		kind := errwrap.KindConfig
		if errors.Is(err, config.ErrEnvFile) {
			kind = errwrap.KindEnvironment
		}
		return exitError(kind, "Failed to load configuration", err)
	}
	appConfig = cfg

	observability.InitCLILogger(config.AppName, cfg.Logging.Profile == config.ProfileStructured)
	if err := observability.SetLevel(cfg.Logging.Level); err != nil {
		return exitError(errwrap.KindConfig, "Invalid log level", err)
	}
	return nil
}

// collectOverrides returns the config keys set explicitly on the command
// line. Flags left at their zero value do not mask env or file settings.
func collectOverrides(cmd *cobra.Command) map[string]any {
	out := make(map[string]any)
	flags := cmd.Flags()
	for _, o := range overrides {
		if flags.Lookup(o.flag) == nil || !flags.Changed(o.flag) {
			continue
		}
		v, err := flags.GetString(o.flag)
		if err != nil {
			continue
		}
		out[o.key] = v
	}
	if flags.Changed("include") {
		out["match.include"] = includes
	}
	if flags.Changed("exclude") {
		out["match.exclude"] = excludes
	}
	return out
}

// target is the parsed positional arguments.
type target struct {
	Bucket string
	Prefix string
	DryRun bool
}

// parseTarget reads <bucket> [prefix] [dry-run]. A third positional must be
// the dry-run switch.
func parseTarget(args []string, dryRunFlag bool) (*target, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, errwrap.NewUsageError("bucket name is required")
	}
	t := &target{Bucket: args[0], DryRun: dryRunFlag}
	if len(args) > 1 {
		t.Prefix = args[1]
	}
	if len(args) > 2 {
		switch args[2] {
		case "dry-run", "--dry-run":
			t.DryRun = true
		default:
			return nil, errwrap.NewUsageError("unexpected argument %q (only dry-run may follow the prefix)", args[2])
		}
	}
	return t, nil
}

// newProvider builds the backend selected by cfg.
var newProvider = func(ctx context.Context, cfg *config.Config, bucket string) (provider.Provider, error) {
	pt, err := cfg.ProviderType()
	if err != nil {
		return nil, err
	}

	switch pt {
	case provider.ProviderB2:
		return b2.New(b2.Config{Bucket: bucket, Binary: cfg.B2.Binary})
	case provider.ProviderS3:
		return s3.New(ctx, s3.Config{
			Bucket:   bucket,
			Region:   cfg.S3.Region,
			Profile:  cfg.S3.Profile,
			Endpoint: cfg.S3.Endpoint,
			// S3-compatible endpoints generally need path-style URLs.
			ForcePathStyle:  cfg.S3.ForcePathStyle || cfg.S3.Endpoint != "",
			MaxKeys:         cfg.S3.MaxKeys,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	case provider.ProviderMinIO:
		return minio.New(minio.Config{
			Bucket:          bucket,
			Endpoint:        cfg.MinIO.Endpoint,
			Region:          cfg.MinIO.Region,
			AccessKeyID:     cfg.MinIO.AccessKeyID,
			SecretAccessKey: cfg.MinIO.SecretAccessKey,
			Alias:           cfg.MinIO.Alias,
		})
	}
	return nil, &provider.UnsupportedProviderError{Name: string(pt)}
}

func runUnhide(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := observability.CLILogger

	t, err := parseTarget(args, dryRun)
	if err != nil {
		return exitError(errwrap.KindUsage, "Invalid arguments", err)
	}

	matcher, err := match.New(match.Config{
		Includes: appConfig.Match.Include,
		Excludes: appConfig.Match.Exclude,
	})
	if err != nil {
		return exitError(errwrap.KindUsage, "Invalid include/exclude patterns", err)
	}

	prov, err := newProvider(ctx, appConfig, t.Bucket)
	if err != nil {
		return exitError(errwrap.KindConfig, "Failed to set up storage provider", err)
	}
	defer func() { _ = prov.Close() }()

	// Preconditions run before any listing.
	if checker, ok := prov.(provider.Checker); ok {
		if err := checker.Check(ctx); err != nil {
			return report(errwrap.NewEnvironmentError("Missing requirement for the "+prov.Type().String()+" backend", err))
		}
	}

	prefix := unhide.NormalizePrefix(t.Prefix)
	listPrefix := matcher.ListPrefix(prefix)

	runID := uuid.New().String()
	w := newWriter(cmd.OutOrStdout(), appConfig.Output.Format, runID, prov.Type())
	defer func() { _ = w.Close() }()

	logger.Debug("Listing versions",
		zap.String("run_id", runID),
		zap.String("backend", prov.Type().String()),
		zap.String("bucket", t.Bucket),
		zap.String("prefix", listPrefix))

	records, err := provider.ListAllVersions(ctx, prov, listPrefix)
	if err != nil {
		_ = w.WriteError(ctx, &output.ErrorRecord{
			Code:    output.ErrorCode(err),
			Message: err.Error(),
			Prefix:  listPrefix,
		})
		if ctx.Err() != nil {
			return report(errwrap.WrapInternal(ctx, err, "Listing stopped"))
		}
		return report(errwrap.NewListingError("Failed to list versions in "+t.Bucket, err))
	}

	names := unhide.HiddenNames(records, matcher)
	logger.Debug("Found hidden files",
		zap.Int("versions", len(records)),
		zap.Int("hidden", len(names)))

	r := &unhide.Reconciler{
		Provider: prov,
		Bucket:   t.Bucket,
		Prefix:   prefix,
		DryRun:   t.DryRun,
		Writer:   w,
		Logger:   logger,
	}
	res, err := r.Run(ctx, names)
	if err != nil {
		return exitError(errwrap.KindInternal, "Failed to write output", err)
	}

	if err := res.Err(); err != nil {
		if errors.Is(err, unhide.ErrPartialFailure) {
			return exitError(errwrap.KindPartial, "Some files could not be unhidden", err)
		}
		return report(errwrap.WrapInternal(ctx, err, fmt.Sprintf("Stopped after %d of %d files", res.Attempted, res.Hidden)))
	}
	return nil
}

// newWriter returns the stdout writer for format.
func newWriter(w io.Writer, format, runID string, pt provider.ProviderType) output.Writer {
	if format == config.FormatJSONL {
		return output.NewJSONLWriter(w, runID, pt.String())
	}
	return output.NewTextWriter(w)
}

// exitError logs a failure on stderr and returns it classified for the exit
// code.
func exitError(kind errwrap.Kind, message string, err error) error {
	return report(errwrap.New(kind, message, err))
}

// report logs a classified failure on stderr and returns it.
func report(e *errwrap.Error) error {
	observability.CLILogger.Error(e.Message,
		zap.String("kind", errwrap.KindOf(e).String()),
		zap.Error(e.Err))
	return e
}
