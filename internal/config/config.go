package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Sample SampleConfig `yaml:"sample" mapstructure:"sample"`
	CEP    CEPConfig    `yaml:"cep" mapstructure:"cep"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-catalog backend.
type StoreConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DataConfig points the samplers at alternate source files. Empty paths use
// the datasets embedded in the binary.
type DataConfig struct {
	LocationsPath   string `yaml:"locations_path" mapstructure:"locations_path"`
	NamesPath       string `yaml:"names_path" mapstructure:"names_path"`
	SurnamesPath    string `yaml:"surnames_path" mapstructure:"surnames_path"`
	MiddleNamesPath string `yaml:"middle_names_path" mapstructure:"middle_names_path"`
}

// SampleConfig holds generation defaults.
type SampleConfig struct {
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
	OutputPath string `yaml:"output_path" mapstructure:"output_path"`
}

// CEPConfig tunes the postal-code web bridge.
type CEPConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	Workers      int     `yaml:"workers" mapstructure:"workers"`
	MaxAttempts  int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelayMS int     `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
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
	v.SetEnvPrefix("BRGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "brgen.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("sample.batch_size", 50)
	v.SetDefault("sample.output_path", "output/output.jsonl")
	v.SetDefault("cep.base_url", "https://viacep.com.br")
	v.SetDefault("cep.workers", 10)
	v.SetDefault("cep.max_attempts", 100)
	v.SetDefault("cep.retry_delay_ms", 10)
	v.SetDefault("cep.rate_limit", 10.0)
	v.SetDefault("server.addr", ":8080")
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

// Validate checks the fields the given mode depends on. Modes: "sample",
// "serve", "store".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DSN == "" {
		problems = append(problems, "store.dsn is required")
	}
	if c.CEP.Workers < 1 || c.CEP.Workers > 100 {
		problems = append(problems, "cep.workers must be between 1 and 100")
	}
	if c.CEP.MaxAttempts < 1 {
		problems = append(problems, "cep.max_attempts must be >= 1")
	}

	switch mode {
	case "sample":
		if c.Sample.BatchSize < 1 || c.Sample.BatchSize > 10000 {
			problems = append(problems, "sample.batch_size must be between 1 and 10000")
		}
	case "serve":
		if c.Server.Addr == "" {
			problems = append(problems, "server.addr is required")
		}
	case "store":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
