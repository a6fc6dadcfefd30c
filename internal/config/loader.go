package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	schemasassets "github.com/3leaps/unhide/internal/assets/schemas"
)

// EnvPrefix is the prefix for environment overrides, e.g. UNHIDE_BACKEND or
// UNHIDE_S3_REGION.
const EnvPrefix = "UNHIDE"

// AppName names the config directory.
const AppName = "unhide"

// Errors returned by Load.
var (
	ErrConfigFile       = errors.New("cannot read config file")
	ErrEnvFile          = errors.New("cannot load env file")
	ErrValidationFailed = errors.New("config validation failed")
)

// Options controls where configuration is read from.
type Options struct {
	// ConfigFile is an explicit YAML file. It must exist when set. When
	// empty, DefaultConfigPath is read if present.
	ConfigFile string

	// EnvFile is a dotenv file loaded before environment lookup. Variables
	// already set in the environment win.
	EnvFile string

	// Overrides are dotted keys (e.g. "s3.region") applied last.
	Overrides map[string]any
}

// ValidationError is a single schema violation.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationErrors collects every schema violation of one document.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return "config validation failed: " + strings.Join(parts, "; ")
}

func (e ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// setDefaults registers every key so environment variables can reach it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "b2")

	v.SetDefault("b2.binary", "b2")

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.profile", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.force_path_style", false)
	v.SetDefault("s3.max_keys", 0)
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.alias", "myminio")

	v.SetDefault("match.include", []string{})
	v.SetDefault("match.exclude", []string{})

	v.SetDefault("output.format", FormatText)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", ProfileConsole)
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/unhide/config.yaml (or the
// platform equivalent).
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName, "config.yaml"), nil
}

// Load builds the effective configuration.
//
// Precedence, highest first: overrides, environment (including EnvFile),
// config file, defaults. The config file and the merged result are both
// validated against the embedded schema.
func Load(ctx context.Context, opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrEnvFile, opts.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path, explicit := opts.ConfigFile, opts.ConfigFile != ""
	if !explicit {
		if p, err := DefaultConfigPath(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			}
		}
	}
	if path != "" {
		if err := readConfigFile(v, path); err != nil {
			return nil, err
		}
	}

	for key, val := range opts.Overrides {
		v.Set(key, val)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrConfigFile, path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w %s: %v", ErrConfigFile, path, err)
	}
	if raw != nil {
		doc, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("%w %s: %v", ErrConfigFile, path, err)
		}
		if err := ValidateRaw(doc); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w %s: %v", ErrConfigFile, path, err)
	}
	return nil
}

// decodeHook accepts comma-separated strings for lists (as environment
// variables provide them) and trims string values.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		trimStringHook,
	)
}

func trimStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.String {
		return data, nil
	}
	return strings.TrimSpace(data.(string)), nil
}

// Validate checks cfg against the embedded schema.
func Validate(cfg *Config) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("serialize config for validation: %w", err)
	}
	return ValidateRaw(doc)
}

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

// ValidateRaw checks a JSON document against the embedded schema,
// including unknown keys.
func ValidateRaw(doc []byte) error {
	validatorOnce.Do(func() {
		validator, validatorErr = schema.NewValidator(schemasassets.ConfigSchema)
		if validatorErr != nil {
			validatorErr = fmt.Errorf("compile config schema: %w", validatorErr)
		}
	})
	if validatorErr != nil {
		return validatorErr
	}

	diags, err := validator.ValidateJSON(doc)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	var errs ValidationErrors
	for _, d := range diags {
		if d.Severity == schema.SeverityError {
			errs = append(errs, ValidationError{Path: d.Pointer, Message: d.Message})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
