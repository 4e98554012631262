package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"paperchat/config"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	useGops  bool
	logger   = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "paperchat",
	Short: "Chat with research papers using retrieval-augmented generation",
	Long: `paperchat ingests PDF research papers into a local vector index and answers
questions about a paper using passages retrieved from it.

Example usage:
  paperchat ingest paper.pdf                     # Index a paper, prints its id
  paperchat query -p <paper-id> -q "main result" # Show retrieved passages
  paperchat ask -p <paper-id> -q "What is new?"  # Answer from the paper
  paperchat chat <paper-id>                      # Interactive chat`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		// A missing .env is fine; the key may already be exported.
		_ = godotenv.Load()

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger = newLogger(cfg.Logging)
		slog.SetDefault(logger)

		if useGops {
			if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
				return fmt.Errorf("failed to start gops agent: %w", err)
			}
		}

		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./paperchat.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory for the index (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&useGops, "gops", false, "start a gops diagnostics agent")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func newLogger(lc config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(lc.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
