package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/synapseinbox/internal/inbox"
	"github.com/theirongolddev/synapseinbox/internal/notify"
	"github.com/theirongolddev/synapseinbox/internal/output"
	"github.com/theirongolddev/synapseinbox/internal/watcher"
)

// arrival is one newly seen unread message, emitted by watch.
type arrival struct {
	Event   string      `json:"event" yaml:"event"`
	Agent   string      `json:"agent" yaml:"agent"`
	Message inbox.Entry `json:"message" yaml:"message"`
}

// arrivalTracker reports unread messages for the agent that were not
// present in the previous catalog.
type arrivalTracker struct {
	ix   *inbox.Index
	all  bool
	seen map[string]bool
}

func newArrivalTracker(ix *inbox.Index, all bool) *arrivalTracker {
	t := &arrivalTracker{ix: ix, all: all, seen: make(map[string]bool)}
	for _, e := range ix.Entries() {
		t.seen[e.ID] = true
	}
	return t
}

// refresh reloads the index and returns new unread entries, oldest first.
func (t *arrivalTracker) refresh() ([]inbox.Entry, error) {
	if err := t.ix.Reload(); err != nil {
		return nil, err
	}
	c := inbox.Criteria{UnreadOnly: true}
	if !t.all {
		c.To = t.ix.Agent()
	}
	unread := t.ix.Filter(c)

	var fresh []inbox.Entry
	for i := len(unread) - 1; i >= 0; i-- {
		if !t.seen[unread[i].ID] {
			fresh = append(fresh, unread[i])
		}
	}
	for _, e := range t.ix.Entries() {
		t.seen[e.ID] = true
	}
	return fresh, nil
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		all          bool
		poll         bool
		notifyFlag   bool
		debounce     time.Duration
		pollInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print new messages as they arrive",
		Long: `Watch the message repository and print unread messages addressed to the
agent as they appear. Runs until interrupted (Ctrl-C).

Uses filesystem notifications when available and falls back to polling
(always polls with --poll, useful on network filesystems).

With --json or --format yaml each arrival is written as its own document.

With --notify (or notifications.enabled in the config file) arrivals are
also announced through the configured desktop, shell and log channels.

Examples:
  synapseinbox watch --agent ATLAS
  synapseinbox watch --agent ATLAS --all --json | jq .message.subject`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := a.openIndex()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("poll") {
				poll = a.cfg.Watch.Poll
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = a.cfg.Watch.DebounceDuration()
			}
			if !cmd.Flags().Changed("poll-interval") {
				pollInterval = a.cfg.Watch.PollInterval()
			}

			ncfg := a.cfg.Notifications
			if cmd.Flags().Changed("notify") {
				ncfg.Enabled = notifyFlag
			}
			notifier := notify.New(ncfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.watch(ctx, ix, all, notifier,
				watcher.WithPolling(poll),
				watcher.WithDebounce(debounce),
				watcher.WithPollInterval(pollInterval),
			)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "report new unread messages for every recipient")
	cmd.Flags().BoolVar(&poll, "poll", false, "poll instead of using filesystem notifications")
	cmd.Flags().BoolVar(&notifyFlag, "notify", false, "announce arrivals through the configured notification channels")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before reloading (default from config)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "polling period (default from config)")
	return cmd
}

// watch blocks until ctx is done, printing arrivals after each batch of
// repository changes.
func (a *app) watch(ctx context.Context, ix *inbox.Index, all bool, notifier *notify.Notifier, opts ...watcher.Option) error {
	tracker := newArrivalTracker(ix, all)
	unread := ix.UnreadCount()
	w := a.out.Writer()

	var mu sync.Mutex
	handle := func(changes []watcher.Change) {
		mu.Lock()
		defer mu.Unlock()

		a.logger.Debug("repository changed", "changes", len(changes))
		fresh, err := tracker.refresh()
		if err != nil {
			a.logger.Warn("reload failed", "error", err)
			return
		}
		for _, e := range fresh {
			if err := a.writeArrival(w, ix.Agent(), e); err != nil {
				a.logger.Warn("writing arrival failed", "error", err)
			}
			if err := notifier.Notify(notify.NewMessageEvent(ix.Agent(), e.Message)); err != nil {
				a.logger.Warn("notification failed", "id", e.ID, "error", err)
			}
		}
	}

	opts = append(opts,
		watcher.WithExtensions(a.cfg.Extensions...),
		watcher.WithLogger(a.logger),
	)
	wt, err := watcher.New(ix.RepositoryPath(), handle, opts...)
	if err != nil {
		return output.RepositoryUnavailableError(ix.RepositoryPath(), err)
	}

	mode := "notifications"
	if wt.Polling() {
		mode = "polling"
	}
	a.logger.Info("watching repository", "dir", wt.Dir(), "mode", mode, "notify", notifier.Enabled())
	if !a.out.IsStructured() {
		fmt.Fprintf(w, "%s %s %s\n",
			a.styler.Header("Watching"), wt.Dir(),
			a.styler.Dim(fmt.Sprintf("for %s (%s, %d unread, Ctrl-C to stop)", ix.Agent(), mode, unread)))
	}

	return wt.Run(ctx)
}

func (a *app) writeArrival(w io.Writer, agent string, e inbox.Entry) error {
	ev := arrival{Event: "new_message", Agent: agent, Message: e}
	switch a.out.Format() {
	case output.FormatJSON:
		return output.WriteJSON(w, ev, false)
	case output.FormatYAML:
		fmt.Fprintln(w, "---")
		return output.WriteYAML(w, ev)
	}

	s := a.styler
	_, err := fmt.Fprintf(w, "%s %s %s %s %s -> %s: %s\n",
		s.Dim(e.Timestamp.Local().Format(timeLayout)),
		s.Unread(unreadMark),
		s.Priority(e.Priority, fmt.Sprintf("%-8s", e.Priority.String())),
		e.ID,
		e.From,
		strings.Join(e.To, ", "),
		e.Subject,
	)
	return err
}
