// Package config loads the process configuration from TOML with
// environment-variable override, the same viper-based shape as the
// teacher's pkg/config, extended with the engine's strategy/trading-hours/
// signal-evaluation/cache sections.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration object.
type Config struct {
	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`

	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`

	Strategy         StrategyConfig         `mapstructure:"strategy"`
	TradingHours     TradingHoursConfig     `mapstructure:"trading_hours"`
	SignalEvaluation SignalEvaluationConfig `mapstructure:"signal_evaluation"`
	Cache            CacheConfig            `mapstructure:"cache"`

	Mapping   MappingConfig   `mapstructure:"mapping"`
	Watchlist WatchlistConfig `mapstructure:"watchlist"`
}

// HTTPConfig controls the control-plane HTTP listener.
type HTTPConfig struct {
	Host           string `mapstructure:"host" default:"0.0.0.0"`
	Port           int    `mapstructure:"port" default:"8080"`
	ReadTimeout    int    `mapstructure:"read_timeout" default:"30"`
	WriteTimeout   int    `mapstructure:"write_timeout" default:"30"`
	MaxConnections int    `mapstructure:"max_connections" default:"1000"`
	ShutdownGrace  int    `mapstructure:"shutdown_grace" default:"10"`
}

// DatabaseConfig selects and tunes the signal and backtest-job store.
type DatabaseConfig struct {
	Driver             string `mapstructure:"driver" default:"sqlite"`
	DSN                string `mapstructure:"dsn" default:"data/engine.db"`
	MaxOpenConns       int    `mapstructure:"max_open_conns" default:"25"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetime    int    `mapstructure:"conn_max_lifetime" default:"300"`
	LogEnabled         bool   `mapstructure:"log_enabled" default:"false"`
	SlowQueryThreshold int    `mapstructure:"slow_query_threshold" default:"1000"`
}

// RedisConfig configures the optional secondary TTL-cache backend.
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled" default:"false"`
	Host         string `mapstructure:"host" default:"localhost"`
	Port         int    `mapstructure:"port" default:"6379"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db" default:"0"`
	MaxPoolSize  int    `mapstructure:"max_pool_size" default:"10"`
	ConnTimeout  int    `mapstructure:"conn_timeout" default:"5"`
	ReadTimeout  int    `mapstructure:"read_timeout" default:"3"`
	WriteTimeout int    `mapstructure:"write_timeout" default:"3"`
}

// KafkaConfig configures the Kafka-backed notification sender.
type KafkaConfig struct {
	Enabled        bool     `mapstructure:"enabled" default:"false"`
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic" default:"etfarb.signals"`
	GroupID        string   `mapstructure:"group_id" default:"etfarb"`
	SessionTimeout int      `mapstructure:"session_timeout" default:"10"`
}

// WebhookConfig configures the webhook-backed notification sender.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled" default:"false"`
	URL     string `mapstructure:"url"`
}

// LoggerConfig configures the slog-based structured logger.
type LoggerConfig struct {
	Level      string `mapstructure:"level" default:"info"`
	Format     string `mapstructure:"format" default:"json"`
	Output     string `mapstructure:"output" default:"stdout"`
	FilePath   string `mapstructure:"file_path" default:"logs/engine.log"`
	MaxSize    int    `mapstructure:"max_size" default:"100"`
	MaxBackups int    `mapstructure:"max_backups" default:"10"`
	MaxAge     int    `mapstructure:"max_age" default:"30"`
	Compress   bool   `mapstructure:"compress" default:"true"`
	WithCaller bool   `mapstructure:"with_caller" default:"true"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" default:"true"`
	Path    string `mapstructure:"path" default:"/metrics"`
}

// StrategyConfig is the §6 "strategy.*" configuration surface.
type StrategyConfig struct {
	MinWeight        float64 `mapstructure:"min_weight" default:"0.05"`
	MinETFVolume     float64 `mapstructure:"min_etf_volume" default:"50000000"`
	MinOrderAmount   float64 `mapstructure:"min_order_amount" default:"1000000000"`
	ScanInterval     int     `mapstructure:"scan_interval" default:"120"`
	MinTimeToClose   int     `mapstructure:"min_time_to_close" default:"1800"`
	ScanConcurrency  int     `mapstructure:"scan_concurrency" default:"8"`
	EventDetector    string  `mapstructure:"event_detector" default:"limit_up"`
	FundSelector     string  `mapstructure:"fund_selector" default:"highest_weight"`
	SignalFilters    []string `mapstructure:"signal_filters"`
}

// TradingHoursConfig describes the two A-share trading sessions.
type TradingHoursConfig struct {
	MorningStart   string `mapstructure:"morning_start" default:"09:30"`
	MorningEnd     string `mapstructure:"morning_end" default:"11:30"`
	AfternoonStart string `mapstructure:"afternoon_start" default:"13:00"`
	AfternoonEnd   string `mapstructure:"afternoon_end" default:"15:00"`
}

// SignalEvaluationConfig is the §6 "signal_evaluation.*" surface.
type SignalEvaluationConfig struct {
	ConfidenceHighWeight float64 `mapstructure:"confidence_high_weight" default:"0.10"`
	ConfidenceLowWeight  float64 `mapstructure:"confidence_low_weight" default:"0.05"`
	ConfidenceHighRank   int     `mapstructure:"confidence_high_rank" default:"3"`
	ConfidenceLowRank    int     `mapstructure:"confidence_low_rank" default:"10"`
	RiskHighTimeSeconds  int     `mapstructure:"risk_high_time_seconds" default:"600"`
	RiskLowTimeSeconds   int     `mapstructure:"risk_low_time_seconds" default:"3600"`
	RiskTop10RatioHigh   float64 `mapstructure:"risk_top10_ratio_high" default:"0.70"`
	RiskMorningHour      int     `mapstructure:"risk_morning_hour" default:"10"`
	CutoffHigh           float64 `mapstructure:"cutoff_high" default:"0.70"`
	CutoffMedium         float64 `mapstructure:"cutoff_medium" default:"0.40"`
	WeightOrder          float64 `mapstructure:"weight_order" default:"0.30"`
	WeightWeight         float64 `mapstructure:"weight_weight" default:"0.30"`
	WeightLiquidity      float64 `mapstructure:"weight_liquidity" default:"0.20"`
	WeightTime           float64 `mapstructure:"weight_time" default:"0.20"`
}

// CacheConfig is the §6 "cache.*" surface.
type CacheConfig struct {
	QuoteTTLSeconds    int `mapstructure:"quote_ttl_seconds" default:"5"`
	LimitUpTTLSeconds  int `mapstructure:"limit_up_ttl_seconds" default:"30"`
	MaxEntries         int `mapstructure:"max_entries" default:"10000"`
	Backend            string `mapstructure:"backend" default:"memory"`
}

// MappingConfig locates the persisted stock↔ETF mapping document.
type MappingConfig struct {
	Path string `mapstructure:"path" default:"data/stock_etf_mapping.json"`
}

// WatchlistConfig locates the persisted watchlist document.
type WatchlistConfig struct {
	Path string `mapstructure:"path" default:"data/watchlist.json"`
}

// Load reads configPath as TOML, applies defaults for unset fields, allows
// APP_-prefixed environment variables to override, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadWithDefaults behaves like Load but tolerates a missing config file,
// relying entirely on defaults and environment overrides.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	_ = v.ReadInConfig()

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks structural invariants that are not expressible as viper
// defaults (port ranges, weight sums, required DSNs for non-embedded drivers).
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		c.ServiceName = "etfarb"
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "" && c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required for driver %q", c.Database.Driver)
	}
	if c.Strategy.MinWeight < 0 || c.Strategy.MinWeight > 1 {
		return fmt.Errorf("strategy.min_weight must be in [0,1], got %v", c.Strategy.MinWeight)
	}
	sum := c.SignalEvaluation.WeightOrder + c.SignalEvaluation.WeightWeight +
		c.SignalEvaluation.WeightLiquidity + c.SignalEvaluation.WeightTime
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("signal_evaluation factor weights must sum to 1, got %v", sum)
	}
	return nil
}

// Sanitized returns a copy with secrets redacted, suitable for GET /api/config.
func (c *Config) Sanitized() Config {
	clone := *c
	if clone.Redis.Password != "" {
		clone.Redis.Password = "***"
	}
	clone.Database.DSN = redactDSN(clone.Database.DSN)
	return clone
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	if i := strings.Index(dsn, "@"); i >= 0 {
		return "***" + dsn[i:]
	}
	return dsn
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)
	v.SetDefault("http.max_connections", 1000)
	v.SetDefault("http.shutdown_grace", 10)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/engine.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "etfarb.signals")
	v.SetDefault("kafka.group_id", "etfarb")
	v.SetDefault("kafka.session_timeout", 10)

	v.SetDefault("webhook.enabled", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/engine.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("strategy.min_weight", 0.05)
	v.SetDefault("strategy.min_etf_volume", 50000000.0)
	v.SetDefault("strategy.min_order_amount", 1000000000.0)
	v.SetDefault("strategy.scan_interval", 120)
	v.SetDefault("strategy.min_time_to_close", 1800)
	v.SetDefault("strategy.scan_concurrency", 8)
	v.SetDefault("strategy.event_detector", "limit_up")
	v.SetDefault("strategy.fund_selector", "highest_weight")
	v.SetDefault("strategy.signal_filters", []string{"time", "liquidity", "confidence", "risk"})

	v.SetDefault("trading_hours.morning_start", "09:30")
	v.SetDefault("trading_hours.morning_end", "11:30")
	v.SetDefault("trading_hours.afternoon_start", "13:00")
	v.SetDefault("trading_hours.afternoon_end", "15:00")

	v.SetDefault("signal_evaluation.confidence_high_weight", 0.10)
	v.SetDefault("signal_evaluation.confidence_low_weight", 0.05)
	v.SetDefault("signal_evaluation.confidence_high_rank", 3)
	v.SetDefault("signal_evaluation.confidence_low_rank", 10)
	v.SetDefault("signal_evaluation.risk_high_time_seconds", 600)
	v.SetDefault("signal_evaluation.risk_low_time_seconds", 3600)
	v.SetDefault("signal_evaluation.risk_top10_ratio_high", 0.70)
	v.SetDefault("signal_evaluation.risk_morning_hour", 10)
	v.SetDefault("signal_evaluation.cutoff_high", 0.70)
	v.SetDefault("signal_evaluation.cutoff_medium", 0.40)
	v.SetDefault("signal_evaluation.weight_order", 0.30)
	v.SetDefault("signal_evaluation.weight_weight", 0.30)
	v.SetDefault("signal_evaluation.weight_liquidity", 0.20)
	v.SetDefault("signal_evaluation.weight_time", 0.20)

	v.SetDefault("cache.quote_ttl_seconds", 5)
	v.SetDefault("cache.limit_up_ttl_seconds", 30)
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.backend", "memory")

	v.SetDefault("mapping.path", "data/stock_etf_mapping.json")
	v.SetDefault("watchlist.path", "data/watchlist.json")
}
