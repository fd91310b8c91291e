// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file when
// present), loads them into structured Go types, and validates that the
// required values are present.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Report missing required values as *errs.ConfigError.
//   - Provide sane defaults for optional blocks (model, server, observability).
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/deppfellow/predict-lambda/internal/errs"
	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists, it gets loaded into the
	// process env before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env var names map onto koanf keys through sectionPrefixes:

	  CHALLENGE_SECRET       -> challenge_secret
	  MODEL_URI              -> model.uri
	  NEW_RELIC_LICENSE_KEY  -> observability.new_relic.license_key

	Variables that match no section keep their lower-cased name as a
	top-level key.
*/
var sectionPrefixes = []struct {
	env string
	key string
}{
	{"MODEL_", "model."},
	{"AWS_", "aws."},
	{"SERVER_", "server."},
	{"LOG_", "observability.logging."},
	{"NEW_RELIC_", "observability.new_relic."},
}

// Config is the root configuration object for the function.
//
// The `env:"..."` tags name the environment variable behind a field; they are
// used to report missing values with the name an operator has to set.
type Config struct {
	ChallengeSecret string               `koanf:"challenge_secret" env:"CHALLENGE_SECRET" validate:"required"`
	Workspace       string               `koanf:"workspace" env:"WORKSPACE" validate:"required"`
	Model           ModelConfig          `koanf:"model"`
	AWS             AWSConfig            `koanf:"aws"`
	Server          ServerConfig         `koanf:"server"`
	Observability   *ObservabilityConfig `koanf:"observability"`
}

// ModelConfig locates the predictor artifact and the feature schema.
type ModelConfig struct {
	// URI is "file://<path>", a bare path, or "s3://<bucket>/<key>".
	URI string `koanf:"uri" env:"MODEL_URI" validate:"required"`

	// SchemaPath overrides the embedded feature schema when set.
	SchemaPath string `koanf:"schema_path" env:"MODEL_SCHEMA_PATH"`
}

// AWSConfig is only consulted when the model lives in S3.
type AWSConfig struct {
	Region string `koanf:"region" env:"AWS_REGION"`

	// EndpointURL points the S3 client at MinIO/LocalStack.
	EndpointURL string `koanf:"endpoint_url" env:"AWS_ENDPOINT_URL"`
}

// ServerConfig groups settings for the local HTTP adapter (cmd/server).
type ServerConfig struct {
	Port         string        `koanf:"port" env:"SERVER_PORT"`
	ReadTimeout  time.Duration `koanf:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `koanf:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" env:"SERVER_IDLE_TIMEOUT"`

	// CORSAllowedOrigins is a comma separated list in the environment.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" env:"SERVER_CORS_ALLOWED_ORIGINS"`

	// RateLimit is the per-client requests per second allowed on the invoke
	// routes. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit" env:"SERVER_RATE_LIMIT"`
}

// Default returns a Config populated with every optional default.
// Required values (secret, workspace) are left empty.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			URI: "file://models/neural.json",
		},
		Server: ServerConfig{
			Port:               "8080",
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       30 * time.Second,
			IdleTimeout:        60 * time.Second,
			CORSAllowedOrigins: []string{"*"},
			RateLimit:          20,
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// Load reads the environment into a Config.
//
// Behavior summary:
//   - Starts from Default()
//   - Loads every env var, mapping names through sectionPrefixes
//   - Unmarshals into Config (values present in env override defaults)
//   - Derives observability service name + environment
//
// Load does NOT check required values; call CheckRequired for that. Missing
// deployment settings are reported per invocation, not at process start.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Observability == nil {
		cfg.Observability = DefaultObservabilityConfig()
	}
	cfg.Observability.ServiceName = ServiceName
	cfg.Observability.Environment = cfg.Workspace

	return cfg, nil
}

// envKey converts an env var name into a koanf key path.
func envKey(name string) string {
	for _, p := range sectionPrefixes {
		if rest, ok := strings.CutPrefix(name, p.env); ok {
			return p.key + strings.ToLower(rest)
		}
	}
	return strings.ToLower(name)
}

// CheckRequired reports every required setting that is empty.
//
// It returns a *errs.ConfigError naming the env vars, e.g.
//
//	Missing required environment variables: CHALLENGE_SECRET, WORKSPACE
func (c *Config) CheckRequired() error {
	validate := validator.New()

	// Report fields by their env var name instead of the Go field name.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("env")
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	missing := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		missing = append(missing, fieldErr.Field())
	}

	return &errs.ConfigError{Missing: missing}
}
