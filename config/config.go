package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"feedhub/models"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// Duration is a time.Duration written as a string such as "15m" in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// SourcesConfig selects the feeds to aggregate. Empty values disable a source.
type SourcesConfig struct {
	RSSURL       string   `toml:"rss_url"`
	VideoChannel string   `toml:"video_channel"` // Channel id or @handle
	Timeout      Duration `toml:"timeout"`
	UserAgent    string   `toml:"user_agent"`
}

type VideoConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type LiveConfig struct {
	ChannelID string `toml:"channel_id"`
	BaseURL   string `toml:"base_url"`
}

type RefreshConfig struct {
	MinInterval    Duration `toml:"min_interval"`
	Interval       Duration `toml:"interval"`
	MaxAttempts    int      `toml:"max_attempts"`
	InitialBackoff Duration `toml:"initial_backoff"`
	MaxBackoff     Duration `toml:"max_backoff"`
}

type ServerConfig struct {
	Hostname     string `toml:"hostname"`
	Port         int    `toml:"port"`
	AllowOrigins string `toml:"allow_origins"`
}

type DatabaseConfig struct {
	Path      string   `toml:"path"`
	Retention Duration `toml:"retention"`
}

// Config is the top-level TOML configuration
type Config struct {
	Sources  SourcesConfig  `toml:"sources"`
	Video    VideoConfig    `toml:"video"`
	Live     LiveConfig     `toml:"live"`
	Refresh  RefreshConfig  `toml:"refresh"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
}

func Default() *Config {
	return &Config{
		Sources: SourcesConfig{
			Timeout:   Duration{30 * time.Second},
			UserAgent: "feedhub/1.0",
		},
		Video: VideoConfig{
			BaseURL: "https://www.googleapis.com/youtube/v3",
		},
		Live: LiveConfig{
			BaseURL: "https://api.chzzk.naver.com",
		},
		Refresh: RefreshConfig{
			MinInterval:    Duration{60 * time.Second},
			Interval:       Duration{15 * time.Minute},
			MaxAttempts:    3,
			InitialBackoff: Duration{time.Second},
			MaxBackoff:     Duration{30 * time.Second},
		},
		Server: ServerConfig{
			Hostname:     "0.0.0.0",
			Port:         3000,
			AllowOrigins: "*",
		},
		Database: DatabaseConfig{
			Path:      "feedhub.db",
			Retention: Duration{30 * 24 * time.Hour},
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults
func LoadConfig(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	meta, err := toml.Decode(string(data), config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		log.WithField("keys", strings.Join(keys, ", ")).Warn("Ignoring unknown config keys")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig writes config to path as TOML, replacing any existing file
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Refresh.MinInterval.Duration < 0 {
		errs = append(errs, errors.New("refresh.min_interval must not be negative"))
	}
	if c.Refresh.Interval.Duration <= 0 {
		errs = append(errs, errors.New("refresh.interval must be positive"))
	}
	if c.Refresh.MaxAttempts < 1 {
		errs = append(errs, errors.New("refresh.max_attempts must be at least 1"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Query is the feed query built from the configured sources
func (c *Config) Query() models.FeedQuery {
	return models.FeedQuery{
		RSSURL:         strings.TrimSpace(c.Sources.RSSURL),
		VideoChannelID: strings.TrimSpace(c.Sources.VideoChannel),
	}
}
