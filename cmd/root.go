package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"virtual-ward-intake/app"
	"virtual-ward-intake/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	envFile string
	sandbox bool
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Virtual Ward clinical intake",
	Long: `Records patient vitals with an attached ECG PDF.

Each submission uploads the PDF to Google Drive, shares it by link, and
appends a row to the clinic's Google Sheet.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a dotenv file")
	rootCmd.PersistentFlags().BoolVar(&sandbox, "sandbox", false, "Keep records in memory instead of Google")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sheetCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(auditCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	log.Logger = logger
	return logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if sandbox {
		cfg.Sandbox = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openSession(ctx context.Context, cmd *cobra.Command) (*app.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	session, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return session, nil
}
