package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/pders01/infowatch/internal/validation"
)

const (
	EnvTwitterAPIKey            = "TWITTER_API_KEY"
	EnvTwitterAPIKeySecret      = "TWITTER_API_KEY_SECRET"
	EnvTwitterAccessToken       = "TWITTER_ACCESS_TOKEN"
	EnvTwitterAccessTokenSecret = "TWITTER_ACCESS_TOKEN_SECRET"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Config struct {
	Site     SiteConfig     `mapstructure:"site"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	State    StateConfig    `mapstructure:"state"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Message  MessageConfig  `mapstructure:"message"`
	Twitter  TwitterConfig  `mapstructure:"twitter"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type SiteConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	ListingURL  string `mapstructure:"listing_url"`
	Marker      string `mapstructure:"marker"`
	LinkPattern string `mapstructure:"link_pattern"`
	// AllowPrivateHosts permits loopback and private addresses, for local mirrors.
	AllowPrivateHosts bool `mapstructure:"allow_private_hosts"`
}

type FetchConfig struct {
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	RenderEnabled     bool          `mapstructure:"render_enabled"`
	RenderTimeout     time.Duration `mapstructure:"render_timeout"`
	RenderSettleDelay time.Duration `mapstructure:"render_settle_delay"`
	ChromePath        string        `mapstructure:"chrome_path"`
}

type StateConfig struct {
	Path string `mapstructure:"path"`
	// HistoryPath is the bbolt file; empty disables the history store.
	HistoryPath string `mapstructure:"history_path"`
	// SearchIndex is the bleve index directory; empty disables indexing.
	SearchIndex string `mapstructure:"search_index"`
}

type ScheduleConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	DeliveryDelay time.Duration `mapstructure:"delivery_delay"`
}

type MessageConfig struct {
	MaxLength int    `mapstructure:"max_length"`
	Slack     int    `mapstructure:"slack"`
	Header    string `mapstructure:"header"`
}

type TwitterConfig struct {
	APIBase           string        `mapstructure:"api_base"`
	Timeout           time.Duration `mapstructure:"timeout"`
	APIKey            string        `mapstructure:"api_key"`
	APIKeySecret      string        `mapstructure:"api_key_secret"`
	AccessToken       string        `mapstructure:"access_token"`
	AccessTokenSecret string        `mapstructure:"access_token_secret"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	File        string `mapstructure:"file"`
	Development bool   `mapstructure:"development"`
}

// MissingCredentialsError lists every credential environment variable that
// is unset.
type MissingCredentialsError struct {
	Names []string
}

func (e *MissingCredentialsError) Error() string {
	return "missing Twitter credentials: " + strings.Join(e.Names, ", ")
}

// Missing returns the environment variable names of absent credentials.
func (t TwitterConfig) Missing() []string {
	var missing []string
	for _, c := range []struct {
		env   string
		value string
	}{
		{EnvTwitterAPIKey, t.APIKey},
		{EnvTwitterAPIKeySecret, t.APIKeySecret},
		{EnvTwitterAccessToken, t.AccessToken},
		{EnvTwitterAccessTokenSecret, t.AccessTokenSecret},
	} {
		if strings.TrimSpace(c.value) == "" {
			missing = append(missing, c.env)
		}
	}
	return missing
}

// RequireCredentials returns a *MissingCredentialsError when any credential is absent.
func (t TwitterConfig) RequireCredentials() error {
	if missing := t.Missing(); len(missing) > 0 {
		return &MissingCredentialsError{Names: missing}
	}
	return nil
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Site: SiteConfig{
			BaseURL:     "https://www.yukiweb.net/",
			ListingURL:  "https://www.yukiweb.net/info/",
			Marker:      "infoTitle",
			LinkPattern: "/info/",
		},
		Fetch: FetchConfig{
			HTTPTimeout:       10 * time.Second,
			UserAgent:         defaultUserAgent,
			RenderEnabled:     true,
			RenderTimeout:     10 * time.Second,
			RenderSettleDelay: 3 * time.Second,
		},
		State: StateConfig{
			Path:        "last_checked.json",
			HistoryPath: filepath.Join(homeDir, ".infowatch", "history.db"),
			SearchIndex: filepath.Join(homeDir, ".infowatch", "index.bleve"),
		},
		Schedule: ScheduleConfig{
			Interval:      60 * time.Minute,
			DeliveryDelay: 2 * time.Second,
		},
		Message: MessageConfig{
			MaxLength: 280,
			Slack:     20,
			Header:    "【YUKI INFO更新】",
		},
		Twitter: TwitterConfig{
			APIBase: "https://api.twitter.com",
			Timeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("site.base_url", cfg.Site.BaseURL)
	v.SetDefault("site.listing_url", cfg.Site.ListingURL)
	v.SetDefault("site.marker", cfg.Site.Marker)
	v.SetDefault("site.link_pattern", cfg.Site.LinkPattern)
	v.SetDefault("site.allow_private_hosts", cfg.Site.AllowPrivateHosts)

	v.SetDefault("fetch.http_timeout", cfg.Fetch.HTTPTimeout)
	v.SetDefault("fetch.user_agent", cfg.Fetch.UserAgent)
	v.SetDefault("fetch.render_enabled", cfg.Fetch.RenderEnabled)
	v.SetDefault("fetch.render_timeout", cfg.Fetch.RenderTimeout)
	v.SetDefault("fetch.render_settle_delay", cfg.Fetch.RenderSettleDelay)
	v.SetDefault("fetch.chrome_path", cfg.Fetch.ChromePath)

	v.SetDefault("state.path", cfg.State.Path)
	v.SetDefault("state.history_path", cfg.State.HistoryPath)
	v.SetDefault("state.search_index", cfg.State.SearchIndex)

	v.SetDefault("schedule.interval", cfg.Schedule.Interval)
	v.SetDefault("schedule.delivery_delay", cfg.Schedule.DeliveryDelay)

	v.SetDefault("message.max_length", cfg.Message.MaxLength)
	v.SetDefault("message.slack", cfg.Message.Slack)
	v.SetDefault("message.header", cfg.Message.Header)

	v.SetDefault("twitter.api_base", cfg.Twitter.APIBase)
	v.SetDefault("twitter.timeout", cfg.Twitter.Timeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.development", cfg.Logging.Development)
}

// bindCredentials maps credentials to their bare environment names, with the
// prefixed form taking precedence.
func bindCredentials(v *viper.Viper) error {
	for key, env := range map[string]string{
		"twitter.api_key":             EnvTwitterAPIKey,
		"twitter.api_key_secret":      EnvTwitterAPIKeySecret,
		"twitter.access_token":        EnvTwitterAccessToken,
		"twitter.access_token_secret": EnvTwitterAccessTokenSecret,
	} {
		if err := v.BindEnv(key, "INFOWATCH_"+env, env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
	}
	return nil
}

// searchPaths lists the config files tried, in order, when no path is given.
func searchPaths() []string {
	paths := []string{"infowatch.toml"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "infowatch", "config.toml"))
	}
	return paths
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v, defaultConfig())

	if configPath == "" {
		for _, candidate := range searchPaths() {
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
	}

	v.SetEnvPrefix("INFOWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindCredentials(v); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := expandPaths(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func expandPaths(cfg *Config) error {
	for _, p := range []*string{&cfg.State.Path, &cfg.State.HistoryPath, &cfg.State.SearchIndex, &cfg.Logging.File} {
		expanded, err := validation.ExpandPath(*p)
		if err != nil {
			return fmt.Errorf("expanding %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	urls := validation.NewSiteURLValidator()
	if c.Site.AllowPrivateHosts {
		urls = validation.NewPermissiveSiteURLValidator()
	}
	if _, err := urls.Validate(c.Site.BaseURL); err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}
	if _, err := urls.Validate(c.Site.ListingURL); err != nil {
		return fmt.Errorf("site.listing_url: %w", err)
	}
	if strings.TrimSpace(c.Site.Marker) == "" {
		return errors.New("site.marker must not be empty")
	}
	if strings.TrimSpace(c.Site.LinkPattern) == "" {
		return errors.New("site.link_pattern must not be empty")
	}

	if _, err := validation.StateFile(c.State.Path); err != nil {
		return fmt.Errorf("state.path: %w", err)
	}
	if c.State.HistoryPath != "" {
		if _, err := validation.StateFile(c.State.HistoryPath); err != nil {
			return fmt.Errorf("state.history_path: %w", err)
		}
	}

	for name, d := range map[string]time.Duration{
		"fetch.http_timeout":   c.Fetch.HTTPTimeout,
		"fetch.render_timeout": c.Fetch.RenderTimeout,
		"schedule.interval":    c.Schedule.Interval,
		"twitter.timeout":      c.Twitter.Timeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.Schedule.DeliveryDelay < 0 || c.Fetch.RenderSettleDelay < 0 {
		return errors.New("delays must not be negative")
	}

	if c.Message.MaxLength <= 0 {
		return fmt.Errorf("message.max_length must be positive, got %d", c.Message.MaxLength)
	}
	if c.Message.Slack < 0 || c.Message.Slack >= c.Message.MaxLength {
		return fmt.Errorf("message.slack must be in [0, %d), got %d", c.Message.MaxLength, c.Message.Slack)
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "warning", "error", "off":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error, off", c.Logging.Level)
	}

	return nil
}

// fileConfig is the on-disk shape written by Save. Durations are strings and
// credentials are never written.
type fileConfig struct {
	Site struct {
		BaseURL           string `toml:"base_url"`
		ListingURL        string `toml:"listing_url"`
		Marker            string `toml:"marker"`
		LinkPattern       string `toml:"link_pattern"`
		AllowPrivateHosts bool   `toml:"allow_private_hosts"`
	} `toml:"site"`
	Fetch struct {
		HTTPTimeout       string `toml:"http_timeout"`
		UserAgent         string `toml:"user_agent"`
		RenderEnabled     bool   `toml:"render_enabled"`
		RenderTimeout     string `toml:"render_timeout"`
		RenderSettleDelay string `toml:"render_settle_delay"`
		ChromePath        string `toml:"chrome_path"`
	} `toml:"fetch"`
	State struct {
		Path        string `toml:"path"`
		HistoryPath string `toml:"history_path"`
		SearchIndex string `toml:"search_index"`
	} `toml:"state"`
	Schedule struct {
		Interval      string `toml:"interval"`
		DeliveryDelay string `toml:"delivery_delay"`
	} `toml:"schedule"`
	Message struct {
		MaxLength int    `toml:"max_length"`
		Slack     int    `toml:"slack"`
		Header    string `toml:"header"`
	} `toml:"message"`
	Twitter struct {
		APIBase string `toml:"api_base"`
		Timeout string `toml:"timeout"`
	} `toml:"twitter"`
	Logging struct {
		Level       string `toml:"level"`
		File        string `toml:"file"`
		Development bool   `toml:"development"`
	} `toml:"logging"`
}

func toFile(c *Config) fileConfig {
	var f fileConfig
	f.Site.BaseURL = c.Site.BaseURL
	f.Site.ListingURL = c.Site.ListingURL
	f.Site.Marker = c.Site.Marker
	f.Site.LinkPattern = c.Site.LinkPattern
	f.Site.AllowPrivateHosts = c.Site.AllowPrivateHosts

	f.Fetch.HTTPTimeout = c.Fetch.HTTPTimeout.String()
	f.Fetch.UserAgent = c.Fetch.UserAgent
	f.Fetch.RenderEnabled = c.Fetch.RenderEnabled
	f.Fetch.RenderTimeout = c.Fetch.RenderTimeout.String()
	f.Fetch.RenderSettleDelay = c.Fetch.RenderSettleDelay.String()
	f.Fetch.ChromePath = c.Fetch.ChromePath

	f.State.Path = c.State.Path
	f.State.HistoryPath = c.State.HistoryPath
	f.State.SearchIndex = c.State.SearchIndex

	f.Schedule.Interval = c.Schedule.Interval.String()
	f.Schedule.DeliveryDelay = c.Schedule.DeliveryDelay.String()

	f.Message.MaxLength = c.Message.MaxLength
	f.Message.Slack = c.Message.Slack
	f.Message.Header = c.Message.Header

	f.Twitter.APIBase = c.Twitter.APIBase
	f.Twitter.Timeout = c.Twitter.Timeout.String()

	f.Logging.Level = c.Logging.Level
	f.Logging.File = c.Logging.File
	f.Logging.Development = c.Logging.Development
	return f
}

func Save(config *Config, path string) error {
	data, err := toml.Marshal(toFile(config))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
