// Package cli wires the ammd command tree: configuration loading, logger
// setup, storage backend selection, and the asset and pool subcommands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/poollabs/goamm/internal/config"
	"github.com/poollabs/goamm/internal/core/pool"
	"github.com/poollabs/goamm/internal/storage/kvdb"
	"github.com/poollabs/goamm/internal/storage/kvdb/leveldb"
	"github.com/poollabs/goamm/internal/storage/kvdb/pebble"
	"github.com/poollabs/goamm/internal/storage/poolstore"
)

// App carries the state shared by every subcommand.
type App struct {
	cfgPath string
	dataDir string

	cfg *config.Config
	log *zap.Logger
}

// NewRootCommand builds the ammd command tree.
func NewRootCommand() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:           "ammd",
		Short:         "Constant-product pool engine",
		Long:          "ammd manages two-asset constant-product pools over a local store: asset registration, pool creation, deposits, withdrawals and swaps.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
	}

	root.PersistentFlags().StringVar(&app.cfgPath, "config", "", "path to ammd.toml (optional)")
	root.PersistentFlags().StringVar(&app.dataDir, "data-dir", "", "override the data directory")

	root.AddCommand(
		newVersionCommand(),
		newAssetCommand(app),
		newPoolCommand(app),
	)
	return root
}

// setup loads configuration and builds the logger.
func (a *App) setup() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	a.cfg = cfg
	a.log = logger
	return nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// openDB opens the configured key-value backend.
func (a *App) openDB() (kvdb.DB, error) {
	path := a.cfg.DatabasePath()
	switch a.cfg.Database.Backend {
	case config.BackendPebble:
		return pebble.Open(path)
	case config.BackendLevelDB:
		return leveldb.Open(path)
	default:
		return nil, fmt.Errorf("unknown database backend %q", a.cfg.Database.Backend)
	}
}

// withEngine opens the store, rebuilds the engine, runs fn, and persists the
// engine again when fn succeeded and asked for it.
func (a *App) withEngine(ctx context.Context, persist bool, fn func(*pool.Engine) error) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			a.log.Warn("failed to close database", zap.Error(cerr))
		}
	}()

	store, err := poolstore.New(db, a.cfg.Database.PoolCacheSize)
	if err != nil {
		return err
	}
	engine, err := store.LoadEngine(ctx)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	if err := fn(engine); err != nil {
		return err
	}
	if persist {
		if err := store.SaveEngine(ctx, engine); err != nil {
			return fmt.Errorf("failed to persist state: %w", err)
		}
	}
	return nil
}
