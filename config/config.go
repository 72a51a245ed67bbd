// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the garde configuration from defaults, an optional
// garde.yaml, a .env file and GARDE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jcodagnone/gardecm/cache"
	"github.com/jcodagnone/gardecm/duty"
	"github.com/jcodagnone/gardecm/names"
	"github.com/jcodagnone/gardecm/query"
	"github.com/jcodagnone/gardecm/scrape"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. GARDE_DB_PATH.
const EnvPrefix = "GARDE"

// Config is the full configuration of the garde binary.
type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Server    ServerConfig    `mapstructure:"server"`
	Search    query.Limits    `mapstructure:"search"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Match     names.Weights   `mapstructure:"match"`
	Log       LogConfig       `mapstructure:"log"`
	Gazetteer GazetteerConfig `mapstructure:"gazetteer"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type ScrapeConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Workers   int           `mapstructure:"workers"`
	Delay     time.Duration `mapstructure:"delay"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	TraceHTTP bool          `mapstructure:"trace_http"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GazetteerConfig points to an optional JSON overlay of quarters and cities.
type GazetteerConfig struct {
	Path string `mapstructure:"path"`
}

// SetDefaults registers every key with its default value. Keys without a
// default are invisible to environment overrides.
func SetDefaults(v *viper.Viper) {
	limits := query.DefaultLimits()
	weights := names.DefaultWeights()

	defaults := map[string]any{
		"db.path":                    "garde.duckdb",
		"redis.url":                  "redis://localhost:6379/0",
		"redis.enabled":              false,
		"cache.ttl":                  cache.DefaultTTL,
		"server.addr":                ":8000",
		"search.default_radius_m":    limits.NearbyRadius,
		"search.max_radius_m":        limits.MaxNearbyRadius,
		"search.search_radius_m":     limits.SearchRadius,
		"search.max_search_radius_m": limits.MaxSearchRadius,
		"search.search_limit":        limits.SearchLimit,
		"search.max_search_limit":    limits.MaxSearchLimit,
		"search.list_limit":          limits.PharmacyListLimit,
		"search.max_list_limit":      limits.MaxPharmacyListLimit,
		"scrape.base_url":            scrape.DefaultBaseURL,
		"scrape.workers":             duty.DefaultWorkers,
		"scrape.delay":               duty.DefaultDelay,
		"scrape.timeout":             60 * time.Second,
		"scrape.user_agent":          "",
		"scrape.trace_http":          false,
		"match.threshold":            weights.Threshold,
		"match.containment":          weights.Containment,
		"match.per_keyword":          weights.PerKeyword,
		"match.half_bonus":           weights.HalfBonus,
		"match.long_keyword":         weights.LongKeyword,
		"match.longest_equal":        weights.LongestEqual,
		"match.longest_contains":     weights.LongestContains,
		"log.level":                  "info",
		"log.format":                 "console",
		"gazetteer.path":             "",
	}

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// New returns a viper instance with defaults and environment lookups set.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads .env and the configuration file into v and decodes it. With an
// empty path, garde.yaml is looked up in the working directory and its
// absence is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	_ = godotenv.Load()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("garde")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Search.MaxNearbyRadius < cfg.Search.NearbyRadius {
		return nil, fmt.Errorf("search.max_radius_m %d below search.default_radius_m %d",
			cfg.Search.MaxNearbyRadius, cfg.Search.NearbyRadius)
	}

	return &cfg, nil
}
