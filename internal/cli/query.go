package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/synapseinbox/internal/inbox"
	"github.com/theirongolddev/synapseinbox/internal/message"
	"github.com/theirongolddev/synapseinbox/internal/output"
	"github.com/theirongolddev/synapseinbox/internal/theme"
	"github.com/theirongolddev/synapseinbox/internal/util"
)

func newUnreadCmd(a *app) *cobra.Command {
	var all bool
	var limit int

	cmd := &cobra.Command{
		Use:   "unread",
		Short: "List unread messages addressed to the agent",
		Long: `List unread, non-archived messages, newest first.

By default only messages sent to the agent directly or through the
broadcast recipient are shown. Use --all to include unread messages
addressed to anyone.

Examples:
  synapseinbox unread --agent ATLAS
  synapseinbox unread --agent ATLAS --all --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := a.openIndex()
			if err != nil {
				return err
			}
			c := inbox.Criteria{UnreadOnly: true, Limit: limit}
			if !all {
				c.To = ix.Agent()
			}
			entries := ix.Filter(c)
			return a.writeList(newListResponse(ix.Agent(), "Unread messages", entries))
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include unread messages not addressed to the agent")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of messages (0 = no limit)")
	return cmd
}

func newFromCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "from <agent>",
		Short: "List messages sent by an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := a.openIndex()
			if err != nil {
				return err
			}
			sender := message.NormalizeAgent(args[0])
			entries := ix.Filter(inbox.Criteria{From: sender})
			return a.writeList(newListResponse(ix.Agent(), "From "+sender, entries))
		},
	}
}

func newToCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "to <agent>",
		Short: "List messages addressed to an agent (broadcasts included)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := a.openIndex()
			if err != nil {
				return err
			}
			recipient := message.NormalizeAgent(args[0])
			entries := ix.Filter(inbox.Criteria{To: recipient})
			return a.writeList(newListResponse(ix.Agent(), "To "+recipient, entries))
		},
	}
}

// filterFlags are the criteria flags shared by list and search.
type filterFlags struct {
	from     string
	to       string
	priority string
	unread   bool
	archived bool
	since    string
	limit    int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "only messages from this sender")
	cmd.Flags().StringVar(&f.to, "to", "", "only messages to this recipient (broadcasts included)")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "only messages with this priority (LOW, NORMAL, HIGH, CRITICAL)")
	cmd.Flags().BoolVarP(&f.unread, "unread", "u", false, "only unread messages")
	cmd.Flags().BoolVar(&f.archived, "archived", false, "include archived messages")
	cmd.Flags().StringVar(&f.since, "since", "", "only messages newer than this (2h, 3d, 1w, today, 2026-01-18)")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "maximum number of messages (0 = no limit)")
}

func (f *filterFlags) criteria() (inbox.Criteria, error) {
	since, err := util.ParseSince(f.since, time.Now())
	if err != nil {
		return inbox.Criteria{}, output.NewCLIError(err.Error()).WithCode("INVALID_ARGUMENT")
	}
	return inbox.Criteria{
		From:            f.from,
		To:              f.to,
		Priority:        f.priority,
		UnreadOnly:      f.unread,
		IncludeArchived: f.archived,
		Since:           since,
		Limit:           f.limit,
	}, nil
}

func newListCmd(a *app) *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages, optionally filtered",
		Long: `List messages newest first. Filters combine: a message must satisfy
every flag given. Archived messages are hidden unless --archived is set.

Examples:
  synapseinbox list --agent ATLAS
  synapseinbox list --agent ATLAS --priority HIGH --limit 10
  synapseinbox list --agent ATLAS --from FORGE --unread
  synapseinbox list --agent ATLAS --since 2d`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.criteria()
			if err != nil {
				return err
			}
			ix, err := a.openIndex()
			if err != nil {
				return err
			}
			if c.Limit == 0 && !cmd.Flags().Changed("limit") {
				c.Limit = a.cfg.Display.Limit
			}
			a.checkPriority(c.Priority)
			entries := ix.Filter(c)
			return a.writeList(newListResponse(ix.Agent(), "Messages", entries))
		},
	}

	flags.register(cmd)
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var flags filterFlags
	var subjectOnly bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search subjects and bodies (case-insensitive)",
		Long: `Search message subjects and bodies for a case-insensitive substring.
Results keep catalog order (newest first). Archived messages are skipped
unless --archived is set.

Examples:
  synapseinbox search "deploy" --agent ATLAS
  synapseinbox search urgent --agent ATLAS --subject-only --priority HIGH`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.criteria()
			if err != nil {
				return err
			}
			ix, err := a.openIndex()
			if err != nil {
				return err
			}
			a.checkPriority(flags.priority)
			q := inbox.Query{Text: args[0], SubjectOnly: subjectOnly, Criteria: c}
			entries := ix.Search(q)
			return a.writeList(newListResponse(ix.Agent(), fmt.Sprintf("Search %q", args[0]), entries))
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&subjectOnly, "subject-only", false, "match the subject only, not the body")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var (
		markdown bool
		markRead bool
		width    int
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one message with its body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := a.openIndex()
			if err != nil {
				return err
			}
			id := args[0]
			entry, ok := ix.Get(id)
			if !ok {
				return output.MessageNotFoundError(id)
			}
			if markRead && !entry.Read {
				if err := ix.MarkRead(id); err != nil {
					return output.WrapCLIError("could not save state", err).WithHint(output.HintPermissionDenied)
				}
				entry, _ = ix.Get(id)
			}

			if width <= 0 {
				width = a.cfg.Display.Wrap
			}
			if width <= 0 {
				width = output.TerminalWidth(80)
			}
			opts := detailOptions{Width: width, Markdown: markdown, Style: a.markdownStyle()}
			return a.out.Data(entry, func(w io.Writer) error {
				return renderDetail(w, a.styler, entry, opts)
			})
		},
	}

	cmd.Flags().BoolVarP(&markdown, "markdown", "m", false, "render the body as markdown")
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "mark the message read after showing it")
	cmd.Flags().IntVarP(&width, "width", "w", 0, "wrap width (default: display.wrap or terminal width)")
	return cmd
}

// markdownStyle picks a glamour style matching the active theme.
func (a *app) markdownStyle() string {
	switch {
	case !a.styler.Enabled():
		return "notty"
	case a.theme == theme.CatppuccinLatte:
		return "light"
	default:
		return "dark"
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := a.openIndex()
			if err != nil {
				return err
			}
			st := ix.Stats()
			return a.out.Data(st, func(w io.Writer) error {
				renderStats(w, a.styler, ix.Agent(), st)
				return nil
			})
		},
	}
}
