package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	SpotAPI   APIConfig       `yaml:"spot_api"`
	PerpAPI   APIConfig       `yaml:"perp_api"`
	WS        WSConfig        `yaml:"ws"`
	State     StateConfig     `yaml:"state"`
	Engine    EngineConfig    `yaml:"engine"`
	Scan      ScanConfig      `yaml:"scan"`
	Timescale TimescaleConfig `yaml:"timescale"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type WSConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// EngineConfig carries the strategy thresholds. Every value is tunable;
// zero fields fall back to the engine defaults.
type EngineConfig struct {
	MinAPRPercent             float64 `yaml:"min_apr_percent"`
	MaxCoefficientOfVariation float64 `yaml:"max_coefficient_of_variation"`
	MinSampleCount            int     `yaml:"min_sample_count"`
	ImbalanceThresholdPct     float64 `yaml:"imbalance_threshold_pct"`
	HighRiskLiquidationPct    float64 `yaml:"high_risk_liquidation_pct"`
	MinNotionalUSD            float64 `yaml:"min_notional_usd"`
	RequiredLeverage          int     `yaml:"required_leverage"`
}

type ScanConfig struct {
	RefreshInterval     time.Duration `yaml:"refresh_interval"`
	FundingHistoryLimit int           `yaml:"funding_history_limit"`
	MinVolume24hUSD     float64       `yaml:"min_volume_24h_usd"`
	CapitalUSD          float64       `yaml:"capital_usd"`
	AutoOpen            bool          `yaml:"auto_open"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.SpotAPI.BaseURL == "" {
		cfg.SpotAPI.BaseURL = "https://sapi.asterdex.com"
	}
	if cfg.SpotAPI.Timeout == 0 {
		cfg.SpotAPI.Timeout = 10 * time.Second
	}
	if cfg.PerpAPI.BaseURL == "" {
		cfg.PerpAPI.BaseURL = "https://fapi.asterdex.com"
	}
	if cfg.PerpAPI.Timeout == 0 {
		cfg.PerpAPI.Timeout = 10 * time.Second
	}
	if cfg.WS.URL == "" {
		cfg.WS.URL = "wss://fstream.asterdex.com/ws"
	}
	if cfg.WS.ReconnectDelay == 0 {
		cfg.WS.ReconnectDelay = 3 * time.Second
	}
	if cfg.WS.PingInterval == 0 {
		cfg.WS.PingInterval = 30 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/aster-dn-bot.db"
	}
	if cfg.Scan.RefreshInterval == 0 {
		cfg.Scan.RefreshInterval = 30 * time.Second
	}
	if cfg.Scan.FundingHistoryLimit == 0 {
		cfg.Scan.FundingHistoryLimit = 50
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}
}

func validate(cfg *Config) error {
	if cfg.Scan.CapitalUSD < 0 {
		return errors.New("scan.capital_usd must be >= 0")
	}
	if cfg.Scan.FundingHistoryLimit < cfg.Engine.EngineParams().WithDefaults().MinSampleCount {
		return errors.New("scan.funding_history_limit below engine.min_sample_count")
	}
	if cfg.Scan.AutoOpen && cfg.Scan.CapitalUSD <= 0 {
		return errors.New("scan.auto_open requires scan.capital_usd > 0")
	}
	if cfg.Engine.RequiredLeverage < 0 {
		return errors.New("engine.required_leverage must be >= 0")
	}
	if cfg.Timescale.Enabled && cfg.Timescale.DSN == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	return nil
}
