package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a clean-redirects run
type Config struct {
	Policy         PolicyConfig  `yaml:"policy"`
	DedupeStrategy string        `yaml:"dedupe_strategy" validate:"oneof=first last"`
	Probe          ProbeConfig   `yaml:"probe"`
	Storage        StorageConfig `yaml:"storage"`
	Logging        LoggingConfig `yaml:"logging"`
	Report         ReportConfig  `yaml:"report"`
}

// PolicyConfig holds the URL normalization policy.
type PolicyConfig struct {
	ParamAllowlist       []string `yaml:"param_allowlist" validate:"dive,required"`
	TrailingSlash        string   `yaml:"trailing_slash" validate:"oneof=add remove keep"`
	LowercaseHost        bool     `yaml:"lowercase_host"`
	LowercasePath        bool     `yaml:"lowercase_path"`
	AllowedRedirectTypes []string `yaml:"allowed_redirect_types" validate:"dive,required"`
}

// ProbeConfig holds the optional HEAD status check settings.
type ProbeConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Sample         int    `yaml:"sample" validate:"min=0"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=1"`
	UserAgent      string `yaml:"user_agent"`
}

// StorageConfig holds settings for s3:// input and output paths
type StorageConfig struct {
	S3Region   string `yaml:"s3_region"`
	AWSProfile string `yaml:"aws_profile"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
}

// ReportConfig holds summary report settings
type ReportConfig struct {
	TemplatePath string `yaml:"template_path"`
}

// DefaultParamAllowlist is the standard analytics tag set kept on URLs.
var DefaultParamAllowlist = []string{"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term"}

// DefaultRedirectTypes are the redirect codes accepted without coercion.
var DefaultRedirectTypes = []string{"301", "302", "307"}

// Default returns the configuration used when no file or flag says otherwise.
func Default() *Config {
	return &Config{
		Policy: PolicyConfig{
			ParamAllowlist:       append([]string(nil), DefaultParamAllowlist...),
			TrailingSlash:        "keep",
			LowercaseHost:        true,
			LowercasePath:        false,
			AllowedRedirectTypes: append([]string(nil), DefaultRedirectTypes...),
		},
		DedupeStrategy: "last",
		Probe: ProbeConfig{
			TimeoutSeconds: 6,
			UserAgent:      "clean-redirects/1.0",
		},
		Storage: StorageConfig{
			S3Region: "us-east-1",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file on top of the defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Set defaults for values a file may have blanked
	if cfg.Policy.TrailingSlash == "" {
		cfg.Policy.TrailingSlash = "keep"
	}
	if cfg.DedupeStrategy == "" {
		cfg.DedupeStrategy = "last"
	}
	if cfg.Probe.TimeoutSeconds == 0 {
		cfg.Probe.TimeoutSeconds = 6
	}
	if cfg.Storage.S3Region == "" {
		cfg.Storage.S3Region = "us-east-1"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("REDIRECTS_S3_REGION"); v != "" {
		cfg.Storage.S3Region = v
	}
	if v := os.Getenv("AWS_PROFILE"); v != "" {
		cfg.Storage.AWSProfile = v
	}
	if v := os.Getenv("REDIRECTS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REDIRECTS_PROBE_USER_AGENT"); v != "" {
		cfg.Probe.UserAgent = v
	}
	if v := os.Getenv("REDIRECTS_PROBE_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIRECTS_PROBE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Probe.TimeoutSeconds = n
	}

	return cfg, nil
}

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationErrors collects every invalid field found by Validate.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(messages, "; "))
}

var validate = validator.New()

// Validate checks enumerations and ranges. It returns ValidationErrors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors
	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "oneof":
			message = fmt.Sprintf("%q is not one of [%s]", fmt.Sprint(err.Value()), err.Param())
		case "min":
			message = fmt.Sprintf("must be at least %s", err.Param())
		case "required":
			message = "must not be empty"
		}

		out = append(out, ValidationError{
			Field:   err.Namespace(),
			Message: message,
		})
	}
	return out
}
