package config

import (
	"fmt"
	"strings"
)

// ServiceName identifies this function in logs and APM dashboards.
const ServiceName = "predict-lambda"

// ObservabilityConfig groups all configuration related to telemetry and
// runtime visibility: logging settings and the New Relic error sink.
type ObservabilityConfig struct {
	// ServiceName is forced to ServiceName by Load.
	ServiceName string `koanf:"service_name"`

	// Environment mirrors Config.Workspace (dev, stage, prod, ...).
	Environment string `koanf:"environment"`

	Logging  LoggingConfig  `koanf:"logging"`
	NewRelic NewRelicConfig `koanf:"new_relic"`
}

// LoggingConfig holds application logging configuration.
type LoggingConfig struct {
	// Level is the verbosity threshold (debug/info/warn/error).
	Level string `koanf:"level" env:"LOG_LEVEL"`

	// Format selects "json" or "console" output.
	Format string `koanf:"format" env:"LOG_FORMAT"`
}

// NewRelicConfig holds configuration for the New Relic agent.
//
// An empty LicenseKey, or the literal "none", disables telemetry.
type NewRelicConfig struct {
	LicenseKey                string `koanf:"license_key" env:"NEW_RELIC_LICENSE_KEY"`
	AppLogForwardingEnabled   bool   `koanf:"app_log_forwarding_enabled"`
	DistributedTracingEnabled bool   `koanf:"distributed_tracing_enabled"`
	DebugLogging              bool   `koanf:"debug_logging"`
}

// DefaultObservabilityConfig provides the defaults used when nothing is set.
func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		ServiceName: ServiceName,
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "debug",
			Format: "json",
		},
		NewRelic: NewRelicConfig{
			AppLogForwardingEnabled:   true,
			DistributedTracingEnabled: true,
			DebugLogging:              false, // Disabled by default to avoid mixed log formats
		},
	}
}

// Validate applies rules that go beyond struct tags.
func (c *ObservabilityConfig) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be one of: debug, info, warn, error)", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid logging format: %s (must be one of: json, console)", c.Logging.Format)
	}

	return nil
}

// TelemetryEnabled reports whether a usable New Relic license key is set.
func (c *ObservabilityConfig) TelemetryEnabled() bool {
	key := strings.TrimSpace(c.NewRelic.LicenseKey)
	return key != "" && !strings.EqualFold(key, "none")
}
