package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragdesk/config"
	"ragdesk/internal/adapter/embedding"
	"ragdesk/internal/adapter/store"
	"ragdesk/internal/logging"
	"ragdesk/internal/port"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logger   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ragdesk",
	Short: "Ingest test documents and chat with QA assistants",
	Long: `ragdesk ingests PDFs, Word documents, spreadsheets and web pages into a
vector table and answers prompts through four QA assistants that can draw on
the ingested content.

Example usage:
  ragdesk ingest file plan.pdf --project shop           # Ingest one file
  ragdesk ingest web https://example.com --site         # Ingest a whole site
  ragdesk chat -a exploratory-testing -p "Plan a login session"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		// A missing .env is fine; real environment variables still apply.
		_ = godotenv.Load(filepath.Join(rootDir, ".env"))

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

		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragdesk.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func GetLogger() *zap.Logger {
	return logging.OrNop(logger)
}

// backend is the opened table store and the embedder it writes with.
type backend struct {
	store    port.TableStore
	embedder port.Embedder
}

func (b *backend) Close() error {
	return b.store.Close()
}

// openBackend opens the configured table store. Commands that never embed
// pass needEmbedder=false so they work without API credentials.
func openBackend(ctx context.Context, needEmbedder bool) (*backend, error) {
	cfg := GetConfig()
	log := GetLogger()

	var (
		embedder port.Embedder
		err      error
	)
	if needEmbedder {
		embedder, err = embedding.New(ctx, cfg.Embedding, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	} else {
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	}

	var st port.TableStore
	switch cfg.Store.Type {
	case "pgvector":
		st, err = store.NewPGStore(ctx, cfg.Store.DSN, embedder, log)
	default:
		if err := cfg.EnsureStoreDir(GetRootDir()); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		st, err = store.NewBoltStore(cfg.StorePath(GetRootDir()), embedder, log)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &backend{store: st, embedder: embedder}, nil
}

func tableOrDefault(name string) string {
	if name != "" {
		return name
	}
	return GetConfig().Store.DefaultTable
}
