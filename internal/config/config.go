package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PlaceholderGaodeKey is the value shipped in sample configs. It is never a usable key.
const PlaceholderGaodeKey = "REPLACE_WITH_GAODE_API_KEY"

// Config holds the full application configuration.
type Config struct {
	Gaode    GaodeConfig    `yaml:"gaode" mapstructure:"gaode"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Refresh  RefreshConfig  `yaml:"refresh" mapstructure:"refresh"`
	Brands   BrandsConfig   `yaml:"brands" mapstructure:"brands"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// GaodeConfig holds Gaode (AMap) web service settings.
type GaodeConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	PageSize          int    `yaml:"page_size" mapstructure:"page_size"`
}

// HasUsableKey reports whether a real API key is configured.
func (g GaodeConfig) HasUsableKey() bool {
	key := strings.TrimSpace(g.Key)
	return key != "" && !strings.Contains(key, PlaceholderGaodeKey)
}

// Timeout returns the per-request HTTP timeout.
func (g GaodeConfig) Timeout() time.Duration {
	if g.TimeoutSecs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(g.TimeoutSecs) * time.Second
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CacheConfig configures read-time freshness of cached data.
type CacheConfig struct {
	// POITTLHours bounds cached POI age for statistics views. 0 disables the bound.
	POITTLHours int `yaml:"poi_ttl_hours" mapstructure:"poi_ttl_hours"`
	// AnalysisTTLSecs bounds the age of memoized density results.
	AnalysisTTLSecs int `yaml:"analysis_ttl_secs" mapstructure:"analysis_ttl_secs"`
	// MemoSize is the in-process LRU size in front of the analysis cache. 0 disables it.
	MemoSize int `yaml:"memo_size" mapstructure:"memo_size"`
}

// POITTL returns the POI freshness window.
func (c CacheConfig) POITTL() time.Duration {
	return time.Duration(c.POITTLHours) * time.Hour
}

// AnalysisTTL returns the memoized result freshness window.
func (c CacheConfig) AnalysisTTL() time.Duration {
	return time.Duration(c.AnalysisTTLSecs) * time.Second
}

// AnalysisConfig configures the density and target analysis read paths.
type AnalysisConfig struct {
	AllowNetworkFetch bool `yaml:"allow_network_fetch" mapstructure:"allow_network_fetch"`
	// BoundedPOIReads applies cache.poi_ttl_hours to analysis reads instead of reading all rows.
	BoundedPOIReads bool `yaml:"bounded_poi_reads" mapstructure:"bounded_poi_reads"`
}

// RefreshConfig configures the cache refresh pipeline.
type RefreshConfig struct {
	RateLimitRetries int `yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// BrandsConfig points at an optional brand preset file.
type BrandsConfig struct {
	PresetsPath string `yaml:"presets_path" mapstructure:"presets_path"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (if present) and the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path and the environment. An empty path
// searches the working directory for config.yaml; an explicit path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("gaode.key", "")
	v.SetDefault("gaode.base_url", "https://restapi.amap.com")
	v.SetDefault("gaode.timeout_secs", 5)
	v.SetDefault("gaode.requests_per_minute", 60)
	v.SetDefault("gaode.page_size", 25)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "storage/poi-cache.sqlite")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("cache.poi_ttl_hours", 24)
	v.SetDefault("cache.analysis_ttl_secs", 3600)
	v.SetDefault("cache.memo_size", 256)
	v.SetDefault("analysis.allow_network_fetch", false)
	v.SetDefault("analysis.bounded_poi_reads", false)
	v.SetDefault("refresh.rate_limit_retries", 0)
	v.SetDefault("refresh.initial_backoff_ms", 2000)
	v.SetDefault("refresh.max_backoff_ms", 30000)
	v.SetDefault("brands.presets_path", "")
	v.SetDefault("metrics.addr", "")
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

// Validate checks the settings required by the given mode.
// Modes: "read" (cache-only commands) and "fetch" (commands that call Gaode).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "read", "fetch":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if strings.TrimSpace(c.Store.DatabaseURL) == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Gaode.PageSize < 1 || c.Gaode.PageSize > 25 {
		errs = append(errs, "gaode.page_size must be between 1 and 25")
	}
	if c.Gaode.RequestsPerMinute < 0 {
		errs = append(errs, "gaode.requests_per_minute must be >= 0")
	}
	if c.Cache.POITTLHours < 0 || c.Cache.AnalysisTTLSecs < 0 {
		errs = append(errs, "cache ttl values must be >= 0")
	}
	if c.Refresh.RateLimitRetries < 0 {
		errs = append(errs, "refresh.rate_limit_retries must be >= 0")
	}
	if mode == "fetch" && !c.Gaode.HasUsableKey() {
		errs = append(errs, "gaode.key is required")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
