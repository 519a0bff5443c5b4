package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"papertrade/internal/logger"
)

// Watch re-reads the config file on change and pushes the reloaded tree to
// onChange. Only hot-applicable settings (log level) should be consumed from
// the callback; structural settings require a restart.
func Watch(path string, onChange func(*Config)) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		cfg, err := Load(path)
		if err != nil {
			logger.Errorf("config reload failed: %v", err)
			return
		}
		logger.Infof("config reloaded (%s)", evt.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
