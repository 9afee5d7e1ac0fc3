package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/EIDA/statsboard-sub000/aggregate"
)

// configName is the config file name without extension.
const configName = ".hllagg"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix, e.g. HLLAGG_POLICY=skip.
const envPrefix = "HLLAGG"

// Defaults.
const (
	DefaultInput    = "csv"
	DefaultOutput   = "table"
	DefaultPolicy   = "abort"
	DefaultWorkers  = 1
	DefaultLogLevel = "warn"
)

// Config holds the settings shared by the commands.
type Config struct {
	Input     string   `mapstructure:"input"`
	Output    string   `mapstructure:"output"`
	KeyFields []string `mapstructure:"key"`
	HLLField  string   `mapstructure:"hll-field"`
	Policy    string   `mapstructure:"policy"`
	Workers   int      `mapstructure:"workers"`
	LogLevel  string   `mapstructure:"log-level"`
}

// Validate checks values that viper cannot.
func (c *Config) Validate() error {
	switch c.Input {
	case "csv", "json":
	default:
		return fmt.Errorf("input must be csv or json, got %q", c.Input)
	}
	switch c.Output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("output must be table, json or yaml, got %q", c.Output)
	}
	if _, err := aggregate.ParsePolicy(c.Policy); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := levelOption(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// LoadConfig merges defaults, the config file, HLLAGG_* environment variables and flags, in
// increasing order of precedence. A missing config file is not an error.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	if flags != nil {
		if err := viperCfg.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("input", DefaultInput)
	viperCfg.SetDefault("output", DefaultOutput)
	viperCfg.SetDefault("key", []string{})
	viperCfg.SetDefault("hll-field", aggregate.DefaultHLLField)
	viperCfg.SetDefault("policy", DefaultPolicy)
	viperCfg.SetDefault("workers", DefaultWorkers)
	viperCfg.SetDefault("log-level", DefaultLogLevel)
}

func levelOption(name string) (level.Option, error) {
	switch name {
	case "debug":
		return level.AllowDebug(), nil
	case "info":
		return level.AllowInfo(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	}
	return nil, fmt.Errorf("log level must be debug, info, warn or error, got %q", name)
}

// newLogger returns a logfmt logger on stderr filtered at the configured level.
func newLogger(cfg *Config) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	opt, err := levelOption(cfg.LogLevel)
	if err != nil {
		opt = level.AllowWarn()
	}
	return level.NewFilter(logger, opt)
}
