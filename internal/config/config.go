package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"poe2-arb-scanner/internal/arb"
	"poe2-arb-scanner/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig      `mapstructure:"app"`
	Logging    logging.Config `mapstructure:"logging"`
	Database   DatabaseConfig `mapstructure:"database"`
	Ninja      NinjaConfig    `mapstructure:"ninja"`
	Scan       ScanConfig     `mapstructure:"scan"`
	Thresholds arb.Thresholds `mapstructure:"thresholds"`
	Alerting   AlertingConfig `mapstructure:"alerting"`
	Export     ExportConfig   `mapstructure:"export"`
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
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// NinjaConfig covers remote market-data access.
type NinjaConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	LeaguesTTL  time.Duration `mapstructure:"leagues_ttl"`
	SearchTTL   time.Duration `mapstructure:"search_ttl"`
	OverviewTTL time.Duration `mapstructure:"overview_ttl"`
	DetailsTTL  time.Duration `mapstructure:"details_ttl"`

	DetailsConcurrency int64         `mapstructure:"details_concurrency"`
	DetailsRetries     int           `mapstructure:"details_retries"`
	RetryBaseDelay     time.Duration `mapstructure:"retry_base_delay"`
	JitterMin          time.Duration `mapstructure:"jitter_min"`
	JitterMax          time.Duration `mapstructure:"jitter_max"`
}

// ScanConfig governs the scan daemon.
type ScanConfig struct {
	League          string        `mapstructure:"league"`
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	SortMode        string        `mapstructure:"sort_mode"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	MinOverall float64        `mapstructure:"min_overall"`
	Cooldown   time.Duration  `mapstructure:"cooldown"`
	Channels   []string       `mapstructure:"channels"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARBSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
	v.SetDefault("app.name", "arbscan")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("ninja.base_url", "https://poe.ninja")
	v.SetDefault("ninja.user_agent", "arbscan/1.0")
	v.SetDefault("ninja.request_timeout", "15s")
	v.SetDefault("ninja.leagues_ttl", "10m")
	v.SetDefault("ninja.search_ttl", "5m")
	v.SetDefault("ninja.overview_ttl", "45s")
	v.SetDefault("ninja.details_ttl", "3m")
	v.SetDefault("ninja.details_concurrency", int64(2))
	v.SetDefault("ninja.details_retries", 4)
	v.SetDefault("ninja.retry_base_delay", "500ms")
	v.SetDefault("ninja.jitter_min", "450ms")
	v.SetDefault("ninja.jitter_max", "900ms")

	v.SetDefault("scan.interval", "5m")
	v.SetDefault("scan.align_to_bucket", true)
	v.SetDefault("scan.startup_delay", "0s")
	v.SetDefault("scan.advisory_lock_key", int64(0x61726273))
	v.SetDefault("scan.sort_mode", "overall")

	v.SetDefault("thresholds.min_profit_pct", 2.0)
	v.SetDefault("thresholds.great_profit_pct", 12.0)
	v.SetDefault("thresholds.min_volume_per_hour", 5.0)
	v.SetDefault("thresholds.target_volume_per_hour", 50.0)
	v.SetDefault("thresholds.target_volatility", 0.08)
	v.SetDefault("thresholds.max_volatility", 0.18)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_overall", 60.0)
	v.SetDefault("alerting.cooldown", "30m")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
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
	if c.Scan.Interval <= 0 {
		return fmt.Errorf("scan.interval must be greater than zero")
	}
	if c.Ninja.DetailsConcurrency <= 0 {
		return fmt.Errorf("ninja.details_concurrency must be greater than zero")
	}
	if c.Ninja.JitterMax < c.Ninja.JitterMin {
		return fmt.Errorf("ninja.jitter_max must not be less than ninja.jitter_min")
	}
	if c.Thresholds.GreatProfitPct <= c.Thresholds.MinProfitPct {
		return fmt.Errorf("thresholds.great_profit_pct must exceed thresholds.min_profit_pct")
	}
	if c.Thresholds.MaxVolatility < c.Thresholds.TargetVolatility {
		return fmt.Errorf("thresholds.max_volatility must not be less than thresholds.target_volatility")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
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
