package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"price-tracker/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	CSVLog    CSVLogConfig    `mapstructure:"csv_log"`
	Source    SourceConfig    `mapstructure:"source"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CSVLogConfig locates the append-only flat log sink.
type CSVLogConfig struct {
	Path string `mapstructure:"path"`
}

// SourceConfig covers the upstream market-data adapters.
type SourceConfig struct {
	CryptoBaseURL   string        `mapstructure:"crypto_base_url"`
	CryptoAssets    []string      `mapstructure:"crypto_assets"`
	EquityBaseURL   string        `mapstructure:"equity_base_url"`
	EquityAssets    []string      `mapstructure:"equity_assets"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
}

// SchedulerConfig governs the independent ingestion cadences.
type SchedulerConfig struct {
	CryptoInterval time.Duration `mapstructure:"crypto_interval"`
	EquityInterval time.Duration `mapstructure:"equity_interval"`
	PurgeInterval  time.Duration `mapstructure:"purge_interval"`
	RetentionDays  int           `mapstructure:"retention_days"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ThresholdPct float64       `mapstructure:"threshold_pct"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	Console      bool          `mapstructure:"console"`
	Email        EmailConfig   `mapstructure:"email"`
	Webhook      WebhookConfig `mapstructure:"webhook"`
}

// EmailConfig describes the SMTP alert channel. The password is supplied
// out-of-band via the EMAIL_PASSWORD environment variable, never from the
// config file.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
	Password string `mapstructure:"password"`
}

// WebhookConfig describes the webhook alert channel.
type WebhookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LimitsConfig carries validation bounds shared by the validator and the
// administrative boundary.
type LimitsConfig struct {
	MaxPrice            float64       `mapstructure:"max_price"`
	MaxChangePct        float64       `mapstructure:"max_change_pct"`
	MaxSymbolLength     int           `mapstructure:"max_symbol_length"`
	DedupWindow         time.Duration `mapstructure:"dedup_window"`
	DefaultLimit        int           `mapstructure:"default_limit"`
	MaxLimit            int           `mapstructure:"max_limit"`
	DefaultHistoryHours int           `mapstructure:"default_history_hours"`
	MaxHistoryHours     int           `mapstructure:"max_history_hours"`
	MinThresholdPct     float64       `mapstructure:"min_threshold_pct"`
	MaxThresholdPct     float64       `mapstructure:"max_threshold_pct"`
	MinCooldown         time.Duration `mapstructure:"min_cooldown"`
	MaxCooldown         time.Duration `mapstructure:"max_cooldown"`
	MinPurgeDays        int           `mapstructure:"min_purge_days"`
	MaxPurgeDays        int           `mapstructure:"max_purge_days"`
}

// SnapshotConfig selects the current-price cache backend.
type SnapshotConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICETRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credential kept out of committed configuration.
	_ = v.BindEnv("alerting.email.password", "EMAIL_PASSWORD")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pricetracker")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("csv_log.path", "logs/price_logs.csv")

	v.SetDefault("source.crypto_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("source.crypto_assets", []string{
		"bitcoin", "ethereum", "binancecoin", "cardano",
		"solana", "ripple", "polkadot", "dogecoin",
	})
	v.SetDefault("source.equity_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("source.equity_assets", []string{
		"AAPL", "GOOGL", "MSFT", "TSLA", "AMZN", "NVDA", "META", "NFLX",
	})
	v.SetDefault("source.request_timeout", "15s")
	v.SetDefault("source.user_agent", "pricetracker/1.0")
	v.SetDefault("source.rate_limit_per_min", 50)

	v.SetDefault("scheduler.crypto_interval", "1m")
	v.SetDefault("scheduler.equity_interval", "5m")
	v.SetDefault("scheduler.purge_interval", "24h")
	v.SetDefault("scheduler.retention_days", 30)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.threshold_pct", 5.0)
	v.SetDefault("alerting.cooldown", "5m")
	v.SetDefault("alerting.console", true)
	v.SetDefault("alerting.email.enabled", false)
	v.SetDefault("alerting.email.smtp_host", "smtp.gmail.com")
	v.SetDefault("alerting.email.smtp_port", 587)
	v.SetDefault("alerting.webhook.enabled", false)
	v.SetDefault("alerting.webhook.timeout", "10s")

	v.SetDefault("limits.max_price", 1_000_000_000.0)
	v.SetDefault("limits.max_change_pct", 1000.0)
	v.SetDefault("limits.max_symbol_length", 50)
	v.SetDefault("limits.dedup_window", "1m")
	v.SetDefault("limits.default_limit", 50)
	v.SetDefault("limits.max_limit", 1000)
	v.SetDefault("limits.default_history_hours", 24)
	v.SetDefault("limits.max_history_hours", 168)
	v.SetDefault("limits.min_threshold_pct", 0.1)
	v.SetDefault("limits.max_threshold_pct", 100.0)
	v.SetDefault("limits.min_cooldown", "60s")
	v.SetDefault("limits.max_cooldown", "1h")
	v.SetDefault("limits.min_purge_days", 1)
	v.SetDefault("limits.max_purge_days", 365)

	v.SetDefault("snapshot.backend", "memory")
	v.SetDefault("snapshot.ttl", "10m")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.CryptoInterval <= 0 {
		return fmt.Errorf("scheduler.crypto_interval must be greater than zero")
	}
	if c.Scheduler.EquityInterval <= 0 {
		return fmt.Errorf("scheduler.equity_interval must be greater than zero")
	}
	if c.Scheduler.RetentionDays <= 0 {
		return fmt.Errorf("scheduler.retention_days must be greater than zero")
	}
	if c.Source.RateLimitPerMin <= 0 {
		return fmt.Errorf("source.rate_limit_per_min must be greater than zero")
	}
	if c.Limits.DedupWindow <= 0 {
		return fmt.Errorf("limits.dedup_window must be greater than zero")
	}
	if c.Limits.MaxLimit <= 0 || c.Limits.DefaultLimit <= 0 || c.Limits.DefaultLimit > c.Limits.MaxLimit {
		return fmt.Errorf("limits.default_limit must be within 1..limits.max_limit")
	}
	if c.Limits.MaxHistoryHours <= 0 || c.Limits.DefaultHistoryHours <= 0 || c.Limits.DefaultHistoryHours > c.Limits.MaxHistoryHours {
		return fmt.Errorf("limits.default_history_hours must be within 1..limits.max_history_hours")
	}
	if c.Alerting.ThresholdPct < c.Limits.MinThresholdPct || c.Alerting.ThresholdPct > c.Limits.MaxThresholdPct {
		return fmt.Errorf("alerting.threshold_pct must be within %.1f..%.1f", c.Limits.MinThresholdPct, c.Limits.MaxThresholdPct)
	}
	if c.Alerting.Cooldown < c.Limits.MinCooldown || c.Alerting.Cooldown > c.Limits.MaxCooldown {
		return fmt.Errorf("alerting.cooldown must be within %s..%s", c.Limits.MinCooldown, c.Limits.MaxCooldown)
	}
	if c.Snapshot.Backend != "memory" && c.Snapshot.Backend != "redis" {
		return fmt.Errorf("snapshot.backend must be memory or redis")
	}
	if c.Snapshot.Backend == "redis" && c.Snapshot.RedisAddr == "" {
		return fmt.Errorf("snapshot.redis_addr must be configured for the redis backend")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
