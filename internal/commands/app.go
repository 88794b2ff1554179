package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/homeledger/homeledger/internal/accounts"
	"github.com/homeledger/homeledger/internal/config"
	"github.com/homeledger/homeledger/internal/logger"
	"github.com/homeledger/homeledger/internal/reconcile"
	"github.com/homeledger/homeledger/internal/runlog"
	"github.com/homeledger/homeledger/internal/store/sqlstore"
)

// app holds everything a command needs once the config is loaded.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	store *sqlstore.Store
	svc   *reconcile.Service
}

// loadApp reads the config (plus a .env next to it), opens and migrates the
// database and builds the reconcile service.
func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	st, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	opts := reconcile.Options{
		Store:            st,
		MergeAnnotations: cfg.Sweep.MergeAnnotations,
	}
	if len(cfg.BankAccounts) > 0 {
		accts, err := accounts.NewService(cfg.Accounts())
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("bank accounts: %w", err)
		}
		opts.Accounts = accts
	}
	if cfg.Log.RunLog != "" {
		opts.Recorder = runlog.NewRecorder(cfg.Log.RunLog)
	}

	return &app{
		cfg:   cfg,
		log:   log,
		store: st,
		svc:   reconcile.NewService(opts),
	}, nil
}

// loadConfig layers the config file, a .env next to it and the environment,
// then makes relative paths relative to the config's directory.
func loadConfig(configPath string) (*config.Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	if err := config.LoadEnvFile(filepath.Join(baseDir, ".env")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(absPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	cfg.Resolve(baseDir)
	return cfg, nil
}

// withLogger returns ctx carrying the app logger.
func (a *app) withLogger(ctx context.Context) context.Context {
	return logger.WithContext(ctx, a.log)
}

func (a *app) Close() error {
	return a.store.Close()
}

func requireUserFlag(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("--user is required")
	}
	return nil
}
