package cli

import (
	"errors"
	"fmt"

	"ai-memo-app/src/config"
	"ai-memo-app/src/service"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API",
		Long: `Issue a bearer token signed with AUTH_JWT_SECRET.

Pass it to the memos commands with --token or MEMO_APP_TOKEN.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			if !cfg.AuthEnabled() {
				return errors.New("AUTH_JWT_SECRET is not set; the server runs without authentication")
			}

			token, err := service.NewJWTService(cfg).GenerateToken(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "owner", "token subject")
	return cmd
}
