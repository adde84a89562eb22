package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"recital/config"
	"recital/logger"
	"recital/machine"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recital",
	Short: "A gapless recitation player for the terminal",
	Long: `Recital plays chapter recitations verse by verse without gaps between verses.

Narrators that publish chapter-level audio with verse timings are played from a
single file per chapter; the others are played one file per verse with the next
verse preloaded. Playback continues into the next chapter automatically.`,
	RunE: runPlayer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("narrator", "ar.alafasy", "narrator id (see 'recital narrators')")
	rootCmd.PersistentFlags().String("cache-dir", "", "cache directory (default is ~/.recital)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "do not persist chapter data")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("log-file", "", "log file (the player defaults to <cache-dir>/recital.log)")

	// Player flags, shared by the root command and play
	rootCmd.PersistentFlags().Float64("speed", 1, "initial playback speed (0.5, 0.75, 1, 1.25, 1.5, 2)")
	rootCmd.PersistentFlags().Duration("tick", 0, "verse tracking interval for chapter audio")

	// Bind flags to viper
	viper.BindPFlag("narrator", rootCmd.PersistentFlags().Lookup("narrator"))
	viper.BindPFlag("cache.dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("cache.disabled", rootCmd.PersistentFlags().Lookup("no-cache"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("logging.file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("playback.speed", rootCmd.PersistentFlags().Lookup("speed"))
	viper.BindPFlag("playback.tick_interval", rootCmd.PersistentFlags().Lookup("tick"))

	rootCmd.AddCommand(playCmd)
}

// playCmd is the explicit form of the root command
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start the interactive player",
	RunE:  runPlayer,
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if verbose {
		viper.Set("logging.level", "debug")
	}
}

// loadConfig loads, validates and applies the logging configuration. With
// logToCache, logs default to a file in the cache directory. The returned
// closer releases the log file.
func loadConfig(logToCache bool) (*config.Config, io.Closer, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if logToCache && cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.Cache.Dir, "recital.log")
	}
	closer, err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	return cfg, closer, nil
}

// runPlayer starts the interactive player
func runPlayer(cmd *cobra.Command, args []string) error {
	// The prompt owns the terminal, so logs go to a file unless one is set.
	cfg, closer, err := loadConfig(true)
	if err != nil {
		return err
	}
	defer closer.Close()

	// Create and initialize the machine
	m := machine.New(cfg)
	if err := m.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize machine: %w", err)
	}

	// Start the machine
	if err := m.Start(); err != nil {
		return fmt.Errorf("failed to start machine: %w", err)
	}

	// Setup graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	p, err := newPlayer(cmd.Context(), m, cfg)
	if err != nil {
		m.Stop()
		return fmt.Errorf("failed to start prompt: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- p.run() }()

	// Wait for the prompt to exit or a shutdown signal
	select {
	case sig := <-signalChan:
		fmt.Printf("\nReceived %s, shutting down gracefully...\n", sig)
		p.close()
	case err = <-done:
	}

	// Graceful shutdown
	if stopErr := m.Stop(); stopErr != nil {
		return fmt.Errorf("failed to stop machine gracefully: %w", stopErr)
	}

	return err
}
