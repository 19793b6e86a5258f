package cli

import (
	"fmt"
	"time"

	"ai-memo-app/src/config"
	"ai-memo-app/src/infrastructure/legacy"

	"github.com/spf13/cobra"
)

func newSeedCmd(flags *globalFlags) *cobra.Command {
	var legacyPath string
	var reset bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the sample memos into the legacy local store",
		Long: `Write the sample memos into the legacy local store.

An existing store is left alone unless --reset is given.`,
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

			now := time.Now()
			if reset {
				if err := store.ResetToSample(cmd.Context(), now); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %s to %d sample memos.\n", legacyPath, len(legacy.SampleMemos(now)))
				return nil
			}

			seeded, err := store.Seed(cmd.Context(), now)
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already has memos; use --reset to overwrite.\n", legacyPath)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s with %d sample memos.\n", legacyPath, len(legacy.SampleMemos(now)))
			return nil
		},
	}

	cmd.Flags().StringVar(&legacyPath, "legacy", "", "legacy store file (default $LEGACY_STORE_PATH)")
	cmd.Flags().BoolVar(&reset, "reset", false, "replace existing memos with the samples")
	return cmd
}
