package config

import "fmt"

func validate(c *Config) error {
	switch c.Market.Provider {
	case "http":
		if c.Market.BaseURL == "" {
			return fmt.Errorf("market.base_url is required when market.provider=http")
		}
	case "sim":
	default:
		return fmt.Errorf("unknown market.provider %q (expected http or sim)", c.Market.Provider)
	}
	if c.Trading.FeeRate < 0 || c.Trading.FeeRate >= 1 {
		return fmt.Errorf("trading.fee_rate must be in [0,1), got %v", c.Trading.FeeRate)
	}
	if (c.Notifier.TelegramBotToken == "") != (c.Notifier.TelegramChatID == "") {
		return fmt.Errorf("notifier.telegram_bot_token and notifier.telegram_chat_id must be set together")
	}
	return nil
}
