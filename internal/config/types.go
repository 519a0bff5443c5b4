package config

// Config is the root configuration tree.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Market       MarketConfig       `mapstructure:"market"`
	Trading      TradingConfig      `mapstructure:"trading"`
	Gamification GamificationConfig `mapstructure:"gamification"`
	Notifier     NotifierConfig     `mapstructure:"notifier"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

type ServerConfig struct {
	Addr            string `mapstructure:"addr"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout_sec"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MarketConfig selects and tunes the quote source.
type MarketConfig struct {
	// Provider is "http" or "sim".
	Provider string `mapstructure:"provider"`
	// BaseURL and APIKey configure the http provider.
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	// CatalogPath points at the YAML symbol catalog used by the simulator.
	CatalogPath string `mapstructure:"catalog_path"`
	// QuoteTTLMs bounds quote cache staleness.
	QuoteTTLMs int `mapstructure:"quote_ttl_ms"`
	// QuoteTimeoutMs caps one provider round trip.
	QuoteTimeoutMs int `mapstructure:"quote_timeout_ms"`
	// RatePerSec throttles outbound provider calls.
	RatePerSec float64 `mapstructure:"rate_per_sec"`
	// TickIntervalMs drives the websocket broadcast loop.
	TickIntervalMs int `mapstructure:"tick_interval_ms"`
}

type TradingConfig struct {
	StartingCash float64 `mapstructure:"starting_cash"`
	FeeRate      float64 `mapstructure:"fee_rate"`
	HistoryLimit int     `mapstructure:"history_limit"`
}

type GamificationConfig struct {
	TradeXP     int `mapstructure:"trade_xp"`
	TradePoints int `mapstructure:"trade_points"`
}

type NotifierConfig struct {
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   string `mapstructure:"telegram_chat_id"`
}
