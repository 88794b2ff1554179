package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/homeledger/homeledger/internal/importer"
	"github.com/homeledger/homeledger/internal/logger"
)

func newSyncCommand(configPath *string) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "sync [file...]",
		Short: "Apply statement payloads from files or the import inbox",
		Long: `Apply statement payloads. With no arguments every *.json file in the
import directory is applied and moved to import/processed on success.
Payloads with accountId, startDate or endDate run as a bulletproof sync.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUserFlag(userID); err != nil {
				return err
			}

			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			return runSync(a.withLogger(cmd.Context()), a, userID, args)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to sync for (required)")

	return cmd
}

func runSync(ctx context.Context, a *app, userID string, paths []string) error {
	inbox := len(paths) == 0
	if inbox {
		files, err := importer.Scan(a.cfg.Import.Dir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Printf("No payloads in %s\n", a.cfg.Import.Dir)
			return nil
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}

	log := logger.FromContext(ctx)
	var failed int
	for _, path := range paths {
		name := filepath.Base(path)

		payload, err := importer.Load(path)
		if err != nil {
			log.Error().Err(err).Str("file", name).Msg("loading payload")
			failed++
			continue
		}

		msg, err := payload.Apply(ctx, a.svc, userID)
		if err != nil {
			log.Error().Err(err).Str("file", name).Str("kind", string(payload.Kind)).Msg("applying payload")
			failed++
			continue
		}
		fmt.Printf("%s: %s\n", name, msg)

		if inbox {
			if err := importer.MarkProcessed(a.cfg.Import.Dir, name); err != nil {
				log.Warn().Err(err).Str("file", name).Msg("moving payload")
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d payloads failed", failed, len(paths))
	}
	return nil
}
