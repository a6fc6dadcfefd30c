package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/unhide/internal/config"
	errwrap "github.com/3leaps/unhide/internal/errors"
	"github.com/3leaps/unhide/internal/observability"
	"github.com/3leaps/unhide/pkg/provider"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the system and suggest fixes for common issues.

The backend checks follow --backend (or the configured backend).

Examples:
  unhide doctor                  # b2 CLI check
  unhide doctor --backend s3     # AWS credential checks
  unhide doctor --backend minio  # MinIO endpoint and key checks`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// imdsTimeout bounds the instance metadata probe off EC2.
const imdsTimeout = 2 * time.Second

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// doctorCheck is one backend diagnostic.
type doctorCheck struct {
	name string
	run  func(ctx context.Context, cfg *config.Config) (detail string, err error)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	logger := observability.CLILogger
	identity := GetAppIdentity()
	bannerName := "doctor"
	if identity != nil && identity.BinaryName != "" {
		bannerName = identity.BinaryName + " doctor"
	}
	logger.Info("=== " + bannerName + " ===")
	logger.Info("Running diagnostic checks...")

	backendChecks := checksFor(appConfig)
	totalChecks := 4 + len(backendChecks)
	checkNum := 1
	allChecks := true

	// Check 1: Go version
	goVersion := runtime.Version()
	logger.Info(fmt.Sprintf("[%d/%d] Checking Go runtime... ✅ %s %s/%s", checkNum, totalChecks, goVersion, runtime.GOOS, runtime.GOARCH),
		zap.String("go_version", goVersion))
	checkNum++

	// Check 2: Crucible and Gofulmen
	version := crucible.GetVersion()
	if version.Crucible != "" && version.Gofulmen != "" {
		logger.Info(fmt.Sprintf("[%d/%d] Checking Crucible/Gofulmen... ✅ v%s / v%s", checkNum, totalChecks, version.Crucible, version.Gofulmen),
			zap.String("crucible_version", version.Crucible),
			zap.String("gofulmen_version", version.Gofulmen))
	} else {
		logger.Warn(fmt.Sprintf("[%d/%d] Checking Crucible/Gofulmen... ⚠️  version metadata unavailable", checkNum, totalChecks))
	}
	checkNum++

	// Check 3: Config file
	path := cfgFile
	if path == "" {
		path, _ = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		logger.Info(fmt.Sprintf("[%d/%d] Checking config file... ✅ %s", checkNum, totalChecks, path),
			zap.String("config_file", path))
	} else {
		logger.Info(fmt.Sprintf("[%d/%d] Checking config file... ✅ none (defaults and %s_* environment)", checkNum, totalChecks, config.EnvPrefix),
			zap.String("config_file", path))
	}
	checkNum++

	// Check 4: Backend
	pt, err := appConfig.ProviderType()
	if err != nil {
		logger.Error(fmt.Sprintf("[%d/%d] Checking backend... ❌ %v", checkNum, totalChecks, err))
		return exitError(errwrap.KindConfig, "Unknown backend", err)
	}
	logger.Info(fmt.Sprintf("[%d/%d] Checking backend... ✅ %s", checkNum, totalChecks, pt),
		zap.String("backend", pt.String()))
	checkNum++

	for _, check := range backendChecks {
		detail, err := check.run(cmd.Context(), appConfig)
		if err != nil {
			logger.Error(fmt.Sprintf("[%d/%d] Checking %s... ❌ %s", checkNum, totalChecks, check.name, detail),
				zap.Error(err))
			allChecks = false
		} else {
			logger.Info(fmt.Sprintf("[%d/%d] Checking %s... ✅ %s", checkNum, totalChecks, check.name, detail))
		}
		checkNum++
	}

	if !allChecks {
		switch pt {
		case provider.ProviderB2:
			printB2Help()
		case provider.ProviderS3:
			printAWSCredentialsHelp()
		case provider.ProviderMinIO:
			printMinIOHelp()
		}
		logger.Warn("⚠️  Some checks failed. Review the output above for details.")
		return errwrap.NewEnvironmentError("doctor found problems", nil)
	}

	logger.Info(fmt.Sprintf("✅ All checks passed! %s is ready to use the %s backend.", config.AppName, pt))
	return nil
}

// checksFor returns the backend-specific checks for cfg.
func checksFor(cfg *config.Config) []doctorCheck {
	pt, err := cfg.ProviderType()
	if err != nil {
		return nil
	}
	switch pt {
	case provider.ProviderB2:
		return []doctorCheck{{name: "b2 CLI", run: checkB2Binary}}
	case provider.ProviderS3:
		return []doctorCheck{
			{name: "AWS credentials", run: checkAWSCredentials},
			{name: "instance metadata", run: checkIMDS},
		}
	case provider.ProviderMinIO:
		return []doctorCheck{
			{name: "MinIO endpoint", run: checkMinIOEndpoint},
			{name: "MinIO credentials", run: checkMinIOCredentials},
		}
	}
	return nil
}

func checkB2Binary(ctx context.Context, cfg *config.Config) (string, error) {
	binary := cfg.B2.Binary
	path, err := lookPath(binary)
	if err != nil {
		return binary + " not found on PATH", err
	}
	return path, nil
}

func checkAWSCredentials(ctx context.Context, cfg *config.Config) (string, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3.Region))
	}
	if cfg.S3.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.S3.Profile))
	}
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return "cannot load AWS config", err
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return "cannot retrieve credentials", err
	}

	source := creds.Source
	if source == "" {
		source = "unknown"
	}
	return fmt.Sprintf("%s from %s", maskAccessKey(creds.AccessKeyID), source), nil
}

// checkIMDS is informational: off EC2 the metadata service is expected to
// be unreachable.
func checkIMDS(ctx context.Context, cfg *config.Config) (string, error) {
	if strings.EqualFold(os.Getenv("AWS_EC2_METADATA_DISABLED"), "true") {
		return "disabled by AWS_EC2_METADATA_DISABLED", nil
	}

	ctx, cancel := context.WithTimeout(ctx, imdsTimeout)
	defer cancel()

	client := imds.New(imds.Options{})
	out, err := client.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "not reachable (not running on EC2)", nil
	}
	return "reachable, region " + out.Region, nil
}

func checkMinIOEndpoint(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.MinIO.Endpoint == "" {
		return "no endpoint configured", fmt.Errorf("minio.endpoint is empty")
	}
	return cfg.MinIO.Endpoint, nil
}

func checkMinIOCredentials(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.MinIO.AccessKeyID != "" {
		return maskAccessKey(cfg.MinIO.AccessKeyID) + " from config", nil
	}
	for _, name := range []string{"MINIO_ROOT_USER", "MINIO_ACCESS_KEY", "AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY"} {
		if v := os.Getenv(name); v != "" {
			return maskAccessKey(v) + " from " + name, nil
		}
	}
	return "no access key found", fmt.Errorf("no MinIO credentials in config or environment")
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// printAWSCredentialsHelp prints help for configuring AWS credentials.
func printAWSCredentialsHelp() {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("To configure AWS credentials:")
	observability.CLILogger.Info("  1. Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables, or")
	observability.CLILogger.Info("  2. Run 'aws configure' to set up a profile and pass --profile, or")
	observability.CLILogger.Info("  3. Use IAM role when running on AWS infrastructure")
	observability.CLILogger.Info("")
	observability.CLILogger.Info("For S3-compatible storage (Wasabi, DigitalOcean Spaces, etc.), also set:")
	observability.CLILogger.Info("  - UNHIDE_S3_ENDPOINT or use --endpoint flag")
	observability.CLILogger.Info("")
}

// printB2Help prints help for installing and authorizing the b2 CLI.
func printB2Help() {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("To set up the b2 CLI:")
	observability.CLILogger.Info("  1. Install it: pip install b2 (or use --b2-binary to point at it)")
	observability.CLILogger.Info("  2. Authorize it: b2 account authorize, or set")
	observability.CLILogger.Info("     B2_APPLICATION_KEY_ID and B2_APPLICATION_KEY")
	observability.CLILogger.Info("")
}

// printMinIOHelp prints help for configuring the MinIO backend.
func printMinIOHelp() {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("To configure MinIO:")
	observability.CLILogger.Info("  1. Set minio.endpoint in the config file or UNHIDE_MINIO_ENDPOINT")
	observability.CLILogger.Info("  2. Set MINIO_ROOT_USER/MINIO_ROOT_PASSWORD, or")
	observability.CLILogger.Info("     minio.access_key_id/minio.secret_access_key in the config file")
	observability.CLILogger.Info("  3. Keep secrets in a .env file and pass --env-file")
	observability.CLILogger.Info("")
}
