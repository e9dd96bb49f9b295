// Package cli holds the scribe command tree.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/maastricht-university/scribe/config"
)

var (
	configFile string
	envFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Transcribe recordings with timestamps and speaker labels",
	Long: `scribe turns an audio recording into a timestamped transcript.
Speech recognition, word alignment and speaker diarization run in a model
sidecar; scribe drives the stages, merges speakers into the transcript and
writes the result to a text file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errFatal marks a failure that was already reported to the user.
var errFatal = errors.New("transcription failed")

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFatal) {
			log.Error(err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(transcribeCmd, serveCmd, configCmd, versionCmd)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default config/<CONFIG_ENV>/config.yaml or config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "debug logging")
}

// loadConfig reads the configuration and applies its logging settings.
func loadConfig() (*cfg.Root, error) {
	conf, err := cfg.Load(cfg.Options{ConfigFile: configFile, EnvFile: envFile})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := setupLogging(conf.App); err != nil {
		return nil, err
	}
	return conf, nil
}

func setupLogging(app cfg.App) error {
	level := app.LogLevel
	if verbose {
		level = "debug"
	}
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("config: app.log_level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)

	switch strings.ToLower(app.LogFormat) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
