// Package config loads application configuration from file and environment
// and bootstraps the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Analyze AnalyzeConfig `yaml:"analyze" mapstructure:"analyze"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional Postgres connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// IngestConfig configures the normalization step.
type IngestConfig struct {
	// SchemaPath points to an optional YAML file overriding column aliases,
	// valid ranges, and fill defaults per source type.
	SchemaPath string `yaml:"schema_path" mapstructure:"schema_path"`
}

// MetricsConfig configures the metric engine.
type MetricsConfig struct {
	// IdealCycleTimeMinutes is the theoretical fastest time to produce one
	// unit, used by the performance ratio.
	IdealCycleTimeMinutes float64 `yaml:"ideal_cycle_time_minutes" mapstructure:"ideal_cycle_time_minutes"`
}

// AnalyzeConfig configures aggregation behavior.
type AnalyzeConfig struct {
	// Concurrency bounds the per-unit parallel metric computations.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	// TrendEpsilon is the minimum OEE delta counted as a trend.
	TrendEpsilon float64 `yaml:"trend_epsilon" mapstructure:"trend_epsilon"`
}

// ServerConfig configures the dashboard-facing JSON API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "oee.db")
	v.SetDefault("metrics.ideal_cycle_time_minutes", 1.0)
	v.SetDefault("analyze.concurrency", 4)
	v.SetDefault("analyze.trend_epsilon", 0.01)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
