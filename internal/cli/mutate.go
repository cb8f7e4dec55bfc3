package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/synapseinbox/internal/inbox"
	"github.com/theirongolddev/synapseinbox/internal/output"
)

// idAction describes a mutation applied to each id argument.
type idAction struct {
	use   string
	short string
	verb  string // past tense for confirmations
	name  string // machine-readable action name
	apply func(ix *inbox.Index, id string) error
}

func newIDActionCmd(a *app, act idAction) *cobra.Command {
	return &cobra.Command{
		Use:   act.use + " <id>...",
		Short: act.short,
		Long: act.short + `.

Ids that are not in the repository are accepted: state is keyed by id,
so the change applies if the message appears later.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := a.openIndex()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := act.apply(ix, id); err != nil {
					return output.WrapCLIError(fmt.Sprintf("could not %s %s", act.use, id), err).
						WithCode("STATE_WRITE_FAILED").
						WithHint(output.HintPermissionDenied)
				}
				if _, ok := ix.Get(id); !ok {
					a.logger.Info("id not in repository", "id", id)
				}
			}
			return a.writeMutation(ix, act.name, act.verb, args)
		},
	}
}

func (a *app) writeMutation(ix *inbox.Index, action, verb string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	resp := output.MutationResponse{
		Success: true,
		Agent:   ix.Agent(),
		Action:  action,
		IDs:     ids,
		Unread:  ix.UnreadCount(),
	}
	return a.out.Data(resp, func(w io.Writer) error {
		for _, id := range ids {
			fmt.Fprintf(w, "%s %s %s\n", a.styler.Success("[OK]"), verb, id)
		}
		if len(ids) == 0 {
			fmt.Fprintf(w, "%s %s\n", a.styler.Success("[OK]"), verb)
		}
		fmt.Fprintln(w, a.styler.Dim(output.CountStr(resp.Unread, "unread message", "unread messages")+" remaining"))
		return nil
	})
}

func newMarkReadCmd(a *app) *cobra.Command {
	return newIDActionCmd(a, idAction{
		use:   "mark-read",
		short: "Mark messages as read",
		verb:  "Marked read",
		name:  "mark_read",
		apply: (*inbox.Index).MarkRead,
	})
}

func newMarkUnreadCmd(a *app) *cobra.Command {
	return newIDActionCmd(a, idAction{
		use:   "mark-unread",
		short: "Mark messages as unread",
		verb:  "Marked unread",
		name:  "mark_unread",
		apply: (*inbox.Index).MarkUnread,
	})
}

func newArchiveCmd(a *app) *cobra.Command {
	return newIDActionCmd(a, idAction{
		use:   "archive",
		short: "Hide messages from default views",
		verb:  "Archived",
		name:  "archive",
		apply: (*inbox.Index).Archive,
	})
}

func newUnarchiveCmd(a *app) *cobra.Command {
	return newIDActionCmd(a, idAction{
		use:   "unarchive",
		short: "Restore archived messages to default views",
		verb:  "Unarchived",
		name:  "unarchive",
		apply: (*inbox.Index).Unarchive,
	})
}

func newMarkAllReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-all-read",
		Short: "Mark every message in the repository as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := a.openIndex()
			if err != nil {
				return err
			}
			before := ix.UnreadCount()
			if err := ix.MarkAllRead(); err != nil {
				return output.WrapCLIError("could not mark all read", err).
					WithCode("STATE_WRITE_FAILED").
					WithHint(output.HintPermissionDenied)
			}
			verb := fmt.Sprintf("Marked %s read", output.CountStr(before, "message", "messages"))
			return a.writeMutation(ix, "mark_all_read", verb, nil)
		},
	}
}

func newClearStateCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear-state",
		Short: "Forget all read and archived marks for the agent",
		Long: `Reset the agent's state document to empty. Every message becomes
unread and unarchived again. Messages themselves are not touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && output.IsInputTerminal(cmd.InOrStdin()) {
				fmt.Fprint(cmd.ErrOrStderr(), "Clear all read/archive marks? [y/N] ")
				var answer string
				fmt.Fscanln(cmd.InOrStdin(), &answer)
				if answer != "y" && answer != "Y" && answer != "yes" {
					return output.NewCLIError("aborted").WithCode("ABORTED")
				}
			}
			ix, err := a.openIndex()
			if err != nil {
				return err
			}
			if err := ix.ClearState(); err != nil {
				return output.WrapCLIError("could not clear state", err).
					WithCode("STATE_WRITE_FAILED").
					WithHint(output.HintPermissionDenied)
			}
			return a.writeMutation(ix, "clear_state", "Cleared state for "+ix.Agent(), nil)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
