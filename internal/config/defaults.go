package config

const (
	defaultStartingCash = 100000
	defaultHistoryLimit = 365
)

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/papertrade.db"
	}
	if c.Market.Provider == "" {
		c.Market.Provider = "sim"
	}
	if c.Market.CatalogPath == "" {
		c.Market.CatalogPath = "configs/catalog.yaml"
	}
	if c.Market.QuoteTTLMs <= 0 {
		c.Market.QuoteTTLMs = 5000
	}
	if c.Market.QuoteTimeoutMs <= 0 {
		c.Market.QuoteTimeoutMs = 3000
	}
	if c.Market.RatePerSec <= 0 {
		c.Market.RatePerSec = 10
	}
	if c.Market.TickIntervalMs <= 0 {
		c.Market.TickIntervalMs = 5000
	}
	if c.Trading.StartingCash <= 0 {
		c.Trading.StartingCash = defaultStartingCash
	}
	if c.Trading.HistoryLimit <= 0 {
		c.Trading.HistoryLimit = defaultHistoryLimit
	}
	if c.Gamification.TradeXP <= 0 {
		c.Gamification.TradeXP = 10
	}
	if c.Gamification.TradePoints <= 0 {
		c.Gamification.TradePoints = 5
	}
}
