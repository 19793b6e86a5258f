package cli

import (
	"fmt"

	"ai-memo-app/src/config"
	"ai-memo-app/src/infrastructure/legacy"
	"ai-memo-app/src/migration"
	"ai-memo-app/src/storage"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	var legacyPath string
	var snapshot bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy memos from the legacy local store to the server",
		Long: `Copy every memo in the legacy local store to the server.

Nothing is copied when the server already holds memos. The local store is
left untouched; with --snapshot (or S3_SNAPSHOT_ENABLED) a JSON copy of it is
also uploaded to S3.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			log := cliLogger(cmd.ErrOrStderr(), flags.verbose)
			if legacyPath == "" {
				legacyPath = cfg.Legacy.Path
			}

			store, err := legacy.Open(legacyPath, log)
			if err != nil {
				return err
			}
			defer store.Close()

			var bar *progressbar.ProgressBar
			opts := []migration.Option{
				migration.WithProgress(func(done, total int) {
					if bar == nil {
						bar = progressbar.NewOptions(total,
							progressbar.OptionSetDescription("  Migrating"),
							progressbar.OptionSetWriter(cmd.ErrOrStderr()),
							progressbar.OptionShowCount(),
							progressbar.OptionClearOnFinish(),
						)
					}
					_ = bar.Set(done)
				}),
			}

			if snapshot || cfg.S3.SnapshotEnabled {
				uploader, err := storage.NewUploader(s3Config(cfg), log)
				if err != nil {
					return fmt.Errorf("S3アップローダーの初期化に失敗: %w", err)
				}
				opts = append(opts, migration.WithSnapshot(uploader))
			}

			report := migration.NewMigrator(flags.client(cfg, log), store, log, opts...).Run(cmd.Context())
			if bar != nil {
				_ = bar.Finish()
			}

			out := cmd.OutOrStdout()
			if !report.Migrated {
				fmt.Fprintf(out, "Nothing migrated: %s.\n", report.Skipped)
				return nil
			}
			fmt.Fprintf(out, "Migrated %d of %d memos", report.Succeeded, report.Total)
			if report.Failed > 0 {
				fmt.Fprintf(out, " (%d failed)", report.Failed)
			}
			fmt.Fprintln(out, ".")
			for _, title := range report.FailedTitles {
				fmt.Fprintf(out, "  not migrated: %q\n", title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&legacyPath, "legacy", "", "legacy store file (default $LEGACY_STORE_PATH)")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "upload a JSON snapshot of the legacy store to S3")
	return cmd
}
