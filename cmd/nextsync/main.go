package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/nextsync/internal/client"
	"github.com/TheMichaelB/nextsync/internal/config"
	"github.com/TheMichaelB/nextsync/internal/events"
)

var (
	cfgFile    string
	logLevel   string
	jsonOutput bool

	cfg       *config.Config
	logger    *events.Logger
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "nextsync",
	Short: "Keep local folders in sync with a WebDAV content store",
	Long: `Nextsync keeps one or more local folder trees consistent with folders
on a WebDAV server. It detects divergence on both sides, classifies
conflicts, and applies user- or policy-selected resolutions.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initClient,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Config file path (default: nextsync.json, ~/.config/nextsync/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output machine-readable JSON")
}

func initClient(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.NewLoader(cfgFile).Load()
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err = events.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	apiClient, err = client.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize client: %w", err)
	}

	return nil
}

func main() {
	err := rootCmd.Execute()

	if apiClient != nil {
		if closeErr := apiClient.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}

	if err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// Output helpers. All user-facing text lives here; the engine only reports
// counts and records.

func printSuccess(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(os.Stdout, format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
}

func printWarning(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(os.Stderr, format+"\n", args...)
}

func printInfo(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		printError("encode output: %v", err)
	}
}
