package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docqa/internal/config"
	"docqa/internal/logging"
)

var (
	cfgPath string
	appCfg  *config.AppConfig
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions over uploaded documents",
	Long: `docqa ingests documents into an in-memory vector index and answers
questions by returning the most similar chunks of the selected documents.

Run "docqa serve" for the HTTP API or "docqa tui file..." for a terminal UI.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/docqa/config.yaml)")
}

func setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	var err error
	if cfgPath == "" {
		appCfg, _, err = config.LoadDefault()
	} else {
		appCfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := appCfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(appCfg.Log.Level)
	if err != nil {
		return err
	}
	logger = logging.New(logging.Config{Level: level, Format: appCfg.Log.Format, Output: cmd.ErrOrStderr()})
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
