// Package config provides configuration loading and validation for the
// memtrace CLI.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidFrequency = errors.New("frequency must be in [0, 1]")
	ErrInvalidErrorRate = errors.New("error rate must be in (0, 1)")
	ErrInvalidTop       = errors.New("top must be non-negative")
	ErrInvalidFormat    = errors.New("unknown report format")
)

// Default configuration values.
const (
	DefaultFrequency = 0.03
	DefaultErrorRate = 0.01
	DefaultTop       = 0 // Zero reports everything above the threshold.
)

// Report formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Config holds all configuration for the memtrace CLI.
type Config struct {
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	Report        ReportConfig        `mapstructure:"report"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AnalysisConfig holds heavy-hitter engine parameters.
type AnalysisConfig struct {
	// Frequency is the fraction of total sampled weight a suffix must
	// exceed to be reported.
	Frequency float64 `mapstructure:"frequency"`

	// ErrorRate is the lossy-counting error tolerance; smaller values keep
	// more state and report tighter bounds.
	ErrorRate float64 `mapstructure:"error_rate"`

	// Top truncates the report to the heaviest N entries; zero keeps all.
	Top int `mapstructure:"top"`
}

// ReportConfig holds rendering options.
type ReportConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig holds telemetry export configuration.
type ObservabilityConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	Environment  string `mapstructure:"environment"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("memtrace")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME/.config/memtrace")
	}

	viperCfg.SetEnvPrefix("MEMTRACE")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("analysis.frequency", DefaultFrequency)
	viperCfg.SetDefault("analysis.error_rate", DefaultErrorRate)
	viperCfg.SetDefault("analysis.top", DefaultTop)

	viperCfg.SetDefault("report.format", FormatTable)
	viperCfg.SetDefault("report.no_color", false)

	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "text")

	viperCfg.SetDefault("observability.service_name", "memtrace")
	viperCfg.SetDefault("observability.environment", "")
	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.metrics_addr", "")
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Analysis.Frequency < 0 || config.Analysis.Frequency > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, config.Analysis.Frequency)
	}

	if config.Analysis.ErrorRate <= 0 || config.Analysis.ErrorRate >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidErrorRate, config.Analysis.ErrorRate)
	}

	if config.Analysis.Top < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTop, config.Analysis.Top)
	}

	if config.Report.Format != FormatTable && config.Report.Format != FormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Report.Format)
	}

	return nil
}
