package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/homeledger/homeledger/internal/config"
	"github.com/homeledger/homeledger/internal/store/sqlstore"
)

func newInitCommand() *cobra.Command {
	var driver string
	var dsn string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), absDir, driver, dsn)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "sqlite", "database driver (sqlite, postgres, mysql)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "database DSN (defaults to homeledger.db for sqlite)")

	return cmd
}

func runInit(ctx context.Context, dir, driver, dsn string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()
	if _, err := sqlstore.ParseDialect(driver); err != nil {
		return err
	}
	cfg.Database.Driver = driver
	if dsn != "" {
		cfg.Database.DSN = dsn
	} else if driver != "sqlite" {
		return errors.New("--dsn is required for " + driver)
	}

	// Create directory structure.
	dirs := []string{
		"logs",
		cfg.Import.Dir,
		filepath.Join(cfg.Import.Dir, "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Secrets and the local database stay out of version control.
	gitignore := ".env\nhomeledger.db\nlogs/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Write import/.gitkeep.
	if err := os.WriteFile(filepath.Join(dir, cfg.Import.Dir, ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	cfg.Resolve(dir)
	st, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	fmt.Printf("Initialized ledger at %s\n", dir)
	return nil
}
