package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"ai-memo-app/src/client"
	"ai-memo-app/src/config"
	"ai-memo-app/src/domain"
	"ai-memo-app/src/infrastructure/legacy"
	"ai-memo-app/src/migration"
	"ai-memo-app/src/notify"
	"ai-memo-app/src/session"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// memosFlags are shared by the memos subcommands
type memosFlags struct {
	*globalFlags
	legacyPath string
	noMigrate  bool
}

// memoSession is a loaded engine plus the client it talks through
type memoSession struct {
	engine *session.Engine
	client *client.Client
	log    *logrus.Logger
	close  func()
}

func newMemosCmd(global *globalFlags) *cobra.Command {
	flags := &memosFlags{globalFlags: global}

	cmd := &cobra.Command{
		Use:   "memos",
		Short: "Work with the memos on a running server",
		Long: `Work with the memos on a running server.

On first use, memos found in the legacy local store are copied to the server
when the server has none. Pass --no-migrate to skip that.`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.legacyPath, "legacy", "", "legacy store file (default $LEGACY_STORE_PATH)")
	pf.BoolVar(&flags.noMigrate, "no-migrate", false, "do not migrate the legacy store")

	cmd.AddCommand(
		newMemosListCmd(flags),
		newMemosStatsCmd(flags),
		newMemosAddCmd(flags),
		newMemosEditCmd(flags),
		newMemosRmCmd(flags),
		newMemosClearCmd(flags),
		newMemosSummarizeCmd(flags),
		newMemosWatchCmd(flags),
	)
	return cmd
}

// open builds a session engine over the server and loads it
func (f *memosFlags) open(cmd *cobra.Command) (*memoSession, error) {
	cfg := config.LoadConfig()
	log := cliLogger(cmd.ErrOrStderr(), f.verbose)
	c := f.client(cfg, log)

	s := &memoSession{client: c, log: log, close: func() {}}
	var opts []session.Option

	legacyPath := f.legacyPath
	if legacyPath == "" {
		legacyPath = cfg.Legacy.Path
	}
	if !f.noMigrate {
		if _, err := os.Stat(legacyPath); err == nil {
			store, err := legacy.Open(legacyPath, log)
			if err != nil {
				return nil, err
			}
			s.close = func() { store.Close() }
			opts = append(opts, session.WithMigrator(migration.NewMigrator(c, store, log)))
		}
	}

	s.engine = session.NewEngine(c, log, opts...)
	if err := s.engine.Load(cmd.Context()); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to load memos: %w", err)
	}
	return s, nil
}

func newMemosListCmd(flags *memosFlags) *cobra.Command {
	var search, category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memos, optionally filtered",
		Example: `  memo-app memos list
  memo-app memos list --category work --search react`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			s.engine.Search(search)
			s.engine.FilterByCategory(category)
			printMemos(cmd.OutOrStdout(), s.engine.FilteredMemos())
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "match title, content or tags")
	cmd.Flags().StringVarP(&category, "category", "c", domain.CategoryAll, "category filter")
	return cmd
}

func newMemosStatsCmd(flags *memosFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show memo counts per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			stats := s.engine.Stats()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "total\t%d\n", stats.Total)
			for _, c := range domain.Categories {
				fmt.Fprintf(w, "%s (%s)\t%d\n", c, c.Label(), stats.ByCategory[c.String()])
			}
			return w.Flush()
		},
	}
}

func newMemosAddCmd(flags *memosFlags) *cobra.Command {
	var input domain.MemoInput
	var suggestTags bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a memo",
		Example: `  memo-app memos add --title "Weekly sync" --content "agenda" --category work --tags meeting,team
  memo-app memos add --title "Go generics" --content "type sets" --suggest-tags`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
				return errors.New("--title and --content are required")
			}
			if !domain.Category(input.Category).IsValid() {
				return fmt.Errorf("unknown category %q", input.Category)
			}

			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if suggestTags && len(input.Tags) == 0 {
				tags, err := s.client.GenerateTags(cmd.Context(), input.Title, input.Content)
				if err != nil {
					s.log.WithError(err).Warn("タグの自動生成に失敗しました")
				}
				input.Tags = tags
			}
			tags := []string{}
			for _, t := range input.Tags {
				tags = domain.AddTag(tags, t)
			}
			input.Tags = tags

			memo, err := s.engine.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created memo %s.\n", memo.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input.Title, "title", "t", "", "memo title")
	cmd.Flags().StringVar(&input.Content, "content", "", "memo content")
	cmd.Flags().StringVarP(&input.Category, "category", "c", string(domain.DefaultCategory), "memo category")
	cmd.Flags().StringSliceVar(&input.Tags, "tags", nil, "comma separated tags")
	cmd.Flags().BoolVar(&suggestTags, "suggest-tags", false, "ask the AI provider for tags when none are given")
	return cmd
}

func newMemosEditCmd(flags *memosFlags) *cobra.Command {
	var title, content, category string
	var tags, addTags, rmTags []string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title, content, category or tags of a memo",
		Args:  cobra.ExactArgs(1),
		Example: `  memo-app memos edit 3 --title "Weekly sync v2"
  memo-app memos edit 3 --add-tag urgent --rm-tag draft`,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := cmd.Flags().Changed
			if !changed("title") && !changed("content") && !changed("category") &&
				!changed("tags") && !changed("add-tag") && !changed("rm-tag") {
				return errors.New("nothing to change; pass at least one of --title, --content, --category, --tags, --add-tag, --rm-tag")
			}
			if changed("category") && !domain.Category(category).IsValid() {
				return fmt.Errorf("unknown category %q", category)
			}

			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			memo, ok := s.engine.GetMemoByID(args[0])
			if !ok {
				return fmt.Errorf("memo %s: %w", args[0], domain.ErrMemoNotFound)
			}

			input := memo.Input()
			if changed("title") {
				input.Title = title
			}
			if changed("content") {
				input.Content = content
			}
			if changed("category") {
				input.Category = category
			}
			if changed("tags") {
				input.Tags = []string{}
				for _, t := range tags {
					input.Tags = domain.AddTag(input.Tags, t)
				}
			}
			for _, t := range addTags {
				input.Tags = domain.AddTag(input.Tags, t)
			}
			for _, t := range rmTags {
				input.Tags = domain.RemoveTag(input.Tags, strings.TrimSpace(t))
			}
			if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
				return errors.New("title and content must not be blank")
			}

			updated, err := s.engine.Update(cmd.Context(), memo.ID, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated memo %s.\n", updated.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "replace all tags (comma separated)")
	cmd.Flags().StringSliceVar(&addTags, "add-tag", nil, "add a tag (repeatable)")
	cmd.Flags().StringSliceVar(&rmTags, "rm-tag", nil, "remove a tag (repeatable)")
	return cmd
}

func newMemosRmCmd(flags *memosFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete memos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			for _, id := range args {
				if err := s.engine.Delete(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted memo %s.\n", id)
			}
			return nil
		},
	}
}

func newMemosClearCmd(flags *memosFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every memo",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete every memo without --yes")
			}

			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			total := len(s.engine.Memos())
			err = s.engine.ClearAll(cmd.Context())
			var clearErr *session.ClearAllError
			if errors.As(err, &clearErr) {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d of %d memos. Still present: %s\n",
					clearErr.Attempted-len(clearErr.Failures), clearErr.Attempted, strings.Join(clearErr.FailedIDs(), ", "))
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d memos.\n", total)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func newMemosSummarizeCmd(flags *memosFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <id>",
		Short: "Generate and store an AI summary of a memo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			memo, ok := s.engine.GetMemoByID(args[0])
			if !ok {
				return fmt.Errorf("memo %s: %w", args[0], domain.ErrMemoNotFound)
			}
			result, err := s.client.Summarize(cmd.Context(), memo.ID, memo.Title, memo.Content)
			if err != nil {
				return err
			}
			// セッションのキャッシュにも要約を反映する
			if _, err := s.engine.UpdateSummary(cmd.Context(), memo.ID, result.Summary); err != nil {
				return fmt.Errorf("store summary: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
			return nil
		},
	}
}

func newMemosWatchCmd(flags *memosFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload and print the memo count whenever the server reports a change",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d memos\n", len(s.engine.Memos()))
			err = s.client.WatchInvalidations(ctx, func(msg notify.Message) {
				if err := s.engine.Load(ctx); err != nil {
					return
				}
				fmt.Fprintf(out, "%d memos\n", len(s.engine.Memos()))
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

func printMemos(w io.Writer, memos []domain.Memo) {
	if len(memos) == 0 {
		fmt.Fprintln(w, "No memos.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tTITLE\tTAGS\tSUMMARY\tUPDATED")
	for _, m := range memos {
		summarized := "-"
		if m.HasSummary() {
			summarized = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Category, m.Title, strings.Join(m.Tags, ","), summarized, m.UpdatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}
