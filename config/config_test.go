package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func validConfig() *Config {
	return &Config{
		Narrator: "ar.alafasy",
		Content: ContentConfig{
			APIBase:   "https://api.alquran.cloud/v1",
			AudioBase: "https://cdn.islamic.network/quran/audio",
			Bitrate:   128,
			Timeout:   15 * time.Second,
		},
		Playback: PlaybackConfig{
			Speed:        1,
			TickInterval: 250 * time.Millisecond,
			SampleRate:   44100,
			ChapterCount: 114,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "missing narrator",
			mutate:    func(c *Config) { c.Narrator = "" },
			wantField: "narrator",
		},
		{
			name:      "unknown narrator",
			mutate:    func(c *Config) { c.Narrator = "xx.nobody" },
			wantField: "narrator",
		},
		{
			name:      "relative api base",
			mutate:    func(c *Config) { c.Content.APIBase = "/v1" },
			wantField: "content.api_base",
		},
		{
			name:      "missing audio base",
			mutate:    func(c *Config) { c.Content.AudioBase = "" },
			wantField: "content.audio_base",
		},
		{
			name:      "unsupported speed",
			mutate:    func(c *Config) { c.Playback.Speed = 1.1 },
			wantField: "playback.speed",
		},
		{
			name:      "zero tick",
			mutate:    func(c *Config) { c.Playback.TickInterval = 0 },
			wantField: "playback.tick_interval",
		},
		{
			name:      "zero sample rate",
			mutate:    func(c *Config) { c.Playback.SampleRate = 0 },
			wantField: "playback.sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != (tt.wantField != "") {
				t.Fatalf("Config.Validate() error = %v, wantErr %v", err, tt.wantField != "")
			}
			if err == nil {
				return
			}

			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("error type = %T, want *ConfigError", err)
			}
			if cerr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cerr.Field, tt.wantField)
			}
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	yaml := `narrator: ar.husary
playback:
  speed: 1.5
cache:
  dir: ` + dir + `
`
	if err := os.WriteFile(file, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(file)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Narrator != "ar.husary" {
		t.Errorf("Narrator = %q", cfg.Narrator)
	}
	if cfg.Playback.Speed != 1.5 {
		t.Errorf("Speed = %v", cfg.Playback.Speed)
	}
	if cfg.Playback.TickInterval != 250*time.Millisecond {
		t.Errorf("TickInterval = %v, want default", cfg.Playback.TickInterval)
	}
	if cfg.Cache.Dir != dir {
		t.Errorf("Cache.Dir = %q, want %q", cfg.Cache.Dir, dir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
