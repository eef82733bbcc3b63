// Package config loads tool settings from flags, MLST_* environment variables
// and an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mlst/internal/align"
	"mlst/internal/bigsdb"
	"mlst/internal/logging"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "MLST"

type Config struct {
	Workers  int    `mapstructure:"workers"`
	CacheDir string `mapstructure:"cache_dir"`
	Prepare  bool   `mapstructure:"prepare"`

	// DatabaseAPI pins one BIGSdb deployment; empty searches bigsdb.KnownAPIs.
	DatabaseAPI string        `mapstructure:"database_api"`
	Database    string        `mapstructure:"database"`
	Scheme      int           `mapstructure:"scheme"`
	Local       bool          `mapstructure:"local"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	DatabaseURL string `mapstructure:"database_url"`
	DBMaxConns  int32  `mapstructure:"db_max_conns"`
	DBMinConns  int32  `mapstructure:"db_min_conns"`

	Addr string `mapstructure:"addr"`

	Match     int `mapstructure:"match"`
	Mismatch  int `mapstructure:"mismatch"`
	GapOpen   int `mapstructure:"gap_open"`
	GapExtend int `mapstructure:"gap_extend"`
}

var defaults = map[string]any{
	"workers":      4,
	"cache_dir":    "",
	"prepare":      true,
	"database_api": "",
	"database":     "",
	"scheme":       0,
	"local":        true,
	"http_timeout": bigsdb.DefaultTimeout,
	"log_level":    "info",
	"log_format":   logging.FormatConsole,
	"database_url": "",
	"db_max_conns": 4,
	"db_min_conns": 0,
	"addr":         ":8080",
	"match":        align.DefaultScoring.Match,
	"mismatch":     align.DefaultScoring.Mismatch,
	"gap_open":     align.DefaultScoring.GapOpen,
	"gap_extend":   align.DefaultScoring.GapExtend,
}

// FlagName is the command-line spelling of a key ("cache_dir" -> "cache-dir").
func FlagName(key string) string { return strings.ReplaceAll(key, "_", "-") }

// Load resolves every key. Flags in fs override the environment only when
// set on the command line. envFile uses unprefixed keys (WORKERS=8) and may
// be missing; pass "" to skip it.
func Load(flags *pflag.FlagSet, envFile string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key)); err != nil {
			return nil, err
		}
		if flags == nil {
			continue
		}
		if f := flags.Lookup(FlagName(key)); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that do not depend on the command being run.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Database != "" && c.Scheme <= 0 {
		return fmt.Errorf("scheme id is required with database %q", c.Database)
	}
	if c.LogFormat != logging.FormatConsole && c.LogFormat != logging.FormatJSON {
		return fmt.Errorf("log_format must be %q or %q, got %q", logging.FormatConsole, logging.FormatJSON, c.LogFormat)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("db_min_conns (%d) exceeds db_max_conns (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.GapOpen > 0 || c.GapExtend > 0 || c.Match <= 0 {
		return fmt.Errorf("scoring needs a positive match and non-positive gap weights")
	}
	return nil
}

// APIs lists the BIGSdb deployments to search for databases.
func (c *Config) APIs() []string {
	if c.DatabaseAPI != "" {
		return []string{c.DatabaseAPI}
	}
	return bigsdb.KnownAPIs
}

// Scoring returns the alignment weights.
func (c *Config) Scoring() align.Scoring {
	return align.Scoring{Match: c.Match, Mismatch: c.Mismatch, GapOpen: c.GapOpen, GapExtend: c.GapExtend}
}
