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
	Input      InputConfig      `yaml:"input" mapstructure:"input"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Years      YearsConfig      `yaml:"years" mapstructure:"years"`
	Adjustment AdjustmentConfig `yaml:"adjustment" mapstructure:"adjustment"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Serve      ServeConfig      `yaml:"serve" mapstructure:"serve"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// InputConfig holds the input file paths for a run.
type InputConfig struct {
	Observed      string `yaml:"observed" mapstructure:"observed"`
	Controls      string `yaml:"controls" mapstructure:"controls"`
	Review        string `yaml:"review" mapstructure:"review"`
	Mapper        string `yaml:"mapper" mapstructure:"mapper"`
	Unconstrained string `yaml:"unconstrained" mapstructure:"unconstrained"`
}

// OutputConfig holds the output file paths for a run.
type OutputConfig struct {
	Reconciled string `yaml:"reconciled" mapstructure:"reconciled"`
	Report     string `yaml:"report" mapstructure:"report"`
}

// YearsConfig bounds the processed year span. Zero values mean the full
// span of the observed table.
type YearsConfig struct {
	Start int `yaml:"start" mapstructure:"start"`
	End   int `yaml:"end" mapstructure:"end"`
}

// AdjustmentConfig configures the adjustment stages.
type AdjustmentConfig struct {
	RollbackYears  int     `yaml:"apportion_rollback_years" mapstructure:"apportion_rollback_years"`
	Tolerance      float64 `yaml:"tolerance" mapstructure:"tolerance"`
	SpikeThreshold float64 `yaml:"spike_threshold" mapstructure:"spike_threshold"`
	MinGroupSize   int     `yaml:"min_group_size" mapstructure:"min_group_size"`
	Precision      int     `yaml:"precision" mapstructure:"precision"`
	Workers        int     `yaml:"workers" mapstructure:"workers"`
	PolicyFile     string  `yaml:"policy_file" mapstructure:"policy_file"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServeConfig configures the run-history HTTP server.
type ServeConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
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
	v.SetEnvPrefix("GDHIADJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("output.reconciled", "adjusted.csv")
	v.SetDefault("output.report", "report.json")
	v.SetDefault("adjustment.apportion_rollback_years", 2)
	v.SetDefault("adjustment.tolerance", 1e-6)
	v.SetDefault("adjustment.spike_threshold", 0.0)
	v.SetDefault("adjustment.min_group_size", 3)
	v.SetDefault("adjustment.precision", 2)
	v.SetDefault("adjustment.workers", 4)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "gdhi-adj.db")
	v.SetDefault("serve.port", 8080)
	v.SetDefault("serve.rate_limit", 10.0)
	v.SetDefault("serve.rate_burst", 20)
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

// Validate checks the fields a command mode depends on. Problems are
// collected so one pass reports everything that is missing.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Adjustment.RollbackYears < 0 {
		problems = append(problems, "adjustment.apportion_rollback_years must be >= 0")
	}
	if c.Adjustment.Tolerance <= 0 {
		problems = append(problems, "adjustment.tolerance must be > 0")
	}
	if c.Adjustment.SpikeThreshold < 0 {
		problems = append(problems, "adjustment.spike_threshold must be >= 0")
	}
	if c.Adjustment.MinGroupSize < 1 {
		problems = append(problems, "adjustment.min_group_size must be >= 1")
	}
	if c.Adjustment.Precision < 0 || c.Adjustment.Precision > 10 {
		problems = append(problems, "adjustment.precision must be between 0 and 10")
	}
	if c.Adjustment.Workers < 1 || c.Adjustment.Workers > 64 {
		problems = append(problems, "adjustment.workers must be between 1 and 64")
	}
	if c.Years.Start != 0 && c.Years.End != 0 && c.Years.End < c.Years.Start {
		problems = append(problems, "years.end must not precede years.start")
	}

	switch mode {
	case "adjust":
		if c.Input.Observed == "" {
			problems = append(problems, "input.observed is required")
		}
		if c.Input.Controls == "" {
			problems = append(problems, "input.controls is required")
		}
		problems = append(problems, c.storeProblems()...)
	case "validate":
		if c.Input.Observed == "" {
			problems = append(problems, "input.observed is required")
		}
		if c.Input.Controls == "" {
			problems = append(problems, "input.controls is required")
		}
	case "prepare":
		// Inputs arrive as command arguments.
	case "serve":
		if c.Serve.Port <= 0 {
			problems = append(problems, "serve.port must be > 0")
		}
		if c.Serve.RateLimit <= 0 {
			problems = append(problems, "serve.rate_limit must be > 0")
		}
		problems = append(problems, c.storeProblems()...)
	case "runs":
		problems = append(problems, c.storeProblems()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) storeProblems() []string {
	var problems []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	return problems
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
