// Package cli defines the Cobra command tree for the memo app.
package cli

import (
	"fmt"
	"io"
	"os"

	"ai-memo-app/src/client"
	"ai-memo-app/src/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// version, commit, date are set via -ldflags at build time.
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalFlags are shared by every command that talks to a running server
type globalFlags struct {
	server  string
	token   string
	verbose bool
}

// Execute runs the root command.
func Execute(v, c, d string) {
	version, commit, date = v, c, d
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "memo-app",
		Short: "AI memo app server and command line client",
		Long: `memo-app stores categorized, tagged memos and can summarize them or
suggest tags with an AI provider.

Run 'memo-app serve' to start the API server, then use 'memo-app memos'
to work with your memos from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.server, "server", "", "API server base URL (default $API_BASE_URL)")
	pf.StringVar(&flags.token, "token", os.Getenv("MEMO_APP_TOKEN"), "bearer token for the API server")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(flags),
		newSeedCmd(flags),
		newMemosCmd(flags),
		newTokenCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "memo-app %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// cliLogger writes warnings (or everything with --verbose) to w
func cliLogger(w io.Writer, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.WarnLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

func (f *globalFlags) client(cfg *config.Config, log *logrus.Logger) *client.Client {
	server := f.server
	if server == "" {
		server = cfg.Server.BaseURL
	}
	opts := []client.Option{client.WithLogger(log)}
	if f.token != "" {
		opts = append(opts, client.WithToken(f.token))
	}
	return client.New(server, opts...)
}
