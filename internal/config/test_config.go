package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Site.AllowPrivateHosts = true
	cfg.Fetch.HTTPTimeout = 5 * time.Second
	cfg.Fetch.UserAgent = "infowatch-test/1.0"
	cfg.Fetch.RenderEnabled = false
	cfg.Fetch.RenderSettleDelay = 0
	cfg.State.HistoryPath = ""
	cfg.State.SearchIndex = ""
	cfg.Schedule.Interval = time.Minute
	cfg.Schedule.DeliveryDelay = 0
	cfg.Twitter.Timeout = 5 * time.Second
	cfg.Logging.Level = "off"
	return cfg
}
