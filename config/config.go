package config

import (
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"recital/assets"
	"recital/engine"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Narrator is the catalog id of the reciter
	Narrator string `mapstructure:"narrator"`

	// Content API configuration
	Content ContentConfig `mapstructure:"content"`

	// Local cache configuration
	Cache CacheConfig `mapstructure:"cache"`

	// Playback configuration
	Playback PlaybackConfig `mapstructure:"playback"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// ContentConfig holds the remote content endpoints
type ContentConfig struct {
	APIBase     string        `mapstructure:"api_base"`
	AudioBase   string        `mapstructure:"audio_base"`
	Bitrate     int           `mapstructure:"bitrate"`
	TimingBase  string        `mapstructure:"timing_base"`
	TextEdition string        `mapstructure:"text_edition"`
	Translation string        `mapstructure:"translation"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds the SQLite cache settings
type CacheConfig struct {
	Dir      string `mapstructure:"dir"`
	Disabled bool   `mapstructure:"disabled"`
}

// PlaybackConfig holds engine and audio output settings
type PlaybackConfig struct {
	Speed        float64       `mapstructure:"speed"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	SampleRate   int           `mapstructure:"sample_rate"`
	ChapterCount int           `mapstructure:"chapter_count"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
	File   string `mapstructure:"file"`   // stderr when empty
}

// SetDefaults registers the default value of every key
func SetDefaults() {
	viper.SetDefault("narrator", "ar.alafasy")
	viper.SetDefault("content.api_base", "https://api.alquran.cloud/v1")
	viper.SetDefault("content.audio_base", "https://cdn.islamic.network/quran/audio")
	viper.SetDefault("content.bitrate", 128)
	viper.SetDefault("content.timing_base", "https://api.qurancdn.com/api/qdc")
	viper.SetDefault("content.text_edition", "quran-uthmani")
	viper.SetDefault("content.translation", "en.asad")
	viper.SetDefault("content.timeout", "15s")
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.disabled", false)
	viper.SetDefault("playback.speed", 1.0)
	viper.SetDefault("playback.tick_interval", "250ms")
	viper.SetDefault("playback.sample_rate", 44100)
	viper.SetDefault("playback.chapter_count", engine.DefaultChapterCount)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.file", "")
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	SetDefaults()

	// Read config file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.recital")
	viper.AddConfigPath("/etc/recital")

	// Allow environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("RECITAL")

	// Read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		slog.Debug("No config file found, using defaults and environment variables")
	} else {
		slog.Info("Using config file", slog.String("file", viper.ConfigFileUsed()))
	}

	return Current()
}

// Current unmarshals the values viper holds right now
func Current() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Cache.Dir == "" {
		config.Cache.Dir = DefaultCacheDir()
	}

	return &config, nil
}

// DefaultCacheDir is ~/.recital, or the working directory when there is no
// home directory.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".recital")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Narrator == "" {
		return &ConfigError{Field: "narrator", Message: "Narrator is required"}
	}
	if _, ok := assets.GetCatalog().Lookup(c.Narrator); !ok {
		return &ConfigError{Field: "narrator", Message: "Unknown narrator " + c.Narrator}
	}
	if u, err := url.Parse(c.Content.APIBase); err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "content.api_base", Message: "Content API base must be an absolute URL"}
	}
	if c.Content.AudioBase == "" {
		return &ConfigError{Field: "content.audio_base", Message: "Audio base URL is required"}
	}
	if c.Content.Bitrate <= 0 {
		return &ConfigError{Field: "content.bitrate", Message: "Bitrate must be positive"}
	}
	if !engine.ValidSpeed(c.Playback.Speed) {
		return &ConfigError{Field: "playback.speed", Message: "Speed must be one of 0.5, 0.75, 1, 1.25, 1.5, 2"}
	}
	if c.Playback.TickInterval <= 0 {
		return &ConfigError{Field: "playback.tick_interval", Message: "Tick interval must be positive"}
	}
	if c.Playback.SampleRate <= 0 {
		return &ConfigError{Field: "playback.sample_rate", Message: "Sample rate must be positive"}
	}
	if c.Playback.ChapterCount <= 0 {
		return &ConfigError{Field: "playback.chapter_count", Message: "Chapter count must be positive"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
