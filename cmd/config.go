package cmd

import (
	"fmt"
	"log/slog"

	"recital/config"
	"recital/logger"

	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Commands for managing and validating recital configuration.",
}

// configValidateCmd validates the current configuration
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the current configuration file and environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Setup basic logging for validation
		if _, err := logger.Setup("info", "text", ""); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		// Load configuration
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// Validate configuration
		if err := cfg.Validate(); err != nil {
			slog.Error("Configuration validation failed", slog.Any("error", err))
			return err
		}

		slog.Info("Configuration is valid")
		fmt.Println("✅ Configuration is valid")
		return nil
	},
}

// configShowCmd shows the current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration values from file and environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Setup basic logging
		if _, err := logger.Setup("info", "text", ""); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		// Load configuration
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Println("Current Configuration:")
		fmt.Printf("  Narrator: %s\n", cfg.Narrator)
		fmt.Printf("  Content:\n")
		fmt.Printf("    API base: %s\n", cfg.Content.APIBase)
		fmt.Printf("    Audio base: %s\n", cfg.Content.AudioBase)
		fmt.Printf("    Bitrate: %d\n", cfg.Content.Bitrate)
		fmt.Printf("    Timing base: %s\n", cfg.Content.TimingBase)
		fmt.Printf("    Editions: %s, %s\n", cfg.Content.TextEdition, cfg.Content.Translation)
		fmt.Printf("    Timeout: %s\n", cfg.Content.Timeout)
		fmt.Printf("  Cache:\n")
		fmt.Printf("    Dir: %s\n", cfg.Cache.Dir)
		fmt.Printf("    Disabled: %t\n", cfg.Cache.Disabled)
		fmt.Printf("  Playback:\n")
		fmt.Printf("    Speed: %gx\n", cfg.Playback.Speed)
		fmt.Printf("    Tick interval: %s\n", cfg.Playback.TickInterval)
		fmt.Printf("    Sample rate: %d\n", cfg.Playback.SampleRate)
		fmt.Printf("    Chapters: %d\n", cfg.Playback.ChapterCount)
		fmt.Printf("  Logging:\n")
		fmt.Printf("    Level: %s\n", cfg.Logging.Level)
		fmt.Printf("    Format: %s\n", cfg.Logging.Format)
		fmt.Printf("    File: %s\n", orDefault(cfg.Logging.File, "stderr"))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
