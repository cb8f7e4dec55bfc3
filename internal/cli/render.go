package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/theirongolddev/synapseinbox/internal/inbox"
	"github.com/theirongolddev/synapseinbox/internal/message"
	"github.com/theirongolddev/synapseinbox/internal/output"
)

const (
	readMark   = "✓"
	unreadMark = "○"
	timeLayout = "2006-01-02 15:04"
)

// listResponse is the structured form of every listing command.
type listResponse struct {
	Agent    string        `json:"agent" yaml:"agent"`
	Title    string        `json:"title" yaml:"title"`
	Count    int           `json:"count" yaml:"count"`
	Messages []inbox.Entry `json:"messages" yaml:"messages"`
}

func newListResponse(agent, title string, entries []inbox.Entry) listResponse {
	if entries == nil {
		entries = []inbox.Entry{}
	}
	return listResponse{Agent: agent, Title: title, Count: len(entries), Messages: entries}
}

// writeList renders entries in the selected format.
func (a *app) writeList(resp listResponse) error {
	return a.out.Data(resp, func(w io.Writer) error {
		renderList(w, a.styler, resp, subjectWidth())
		return nil
	})
}

// subjectWidth fits the subject column to the terminal.
func subjectWidth() int {
	const fixed = 64 // marker, id, sender, recipients, priority, time and gaps
	width := output.TerminalWidth(0)
	if width == 0 {
		return 60
	}
	if width-fixed < 20 {
		return 20
	}
	return width - fixed
}

func renderList(w io.Writer, s *output.Styler, resp listResponse, subjectMax int) {
	fmt.Fprintf(w, "%s %s\n", s.Header(resp.Title), s.Dim(fmt.Sprintf("(%d)", resp.Count)))
	if resp.Count == 0 {
		fmt.Fprintln(w, s.Dim("  No messages."))
		return
	}
	fmt.Fprintln(w)

	table := output.NewTable(w, "", "ID", "FROM", "TO", "PRIORITY", "TIME", "SUBJECT")
	priorities := make([]message.Priority, 0, len(resp.Messages))
	for _, e := range resp.Messages {
		mark := readMark
		if !e.Read {
			mark = unreadMark
		}
		if e.Archived {
			mark = "a"
		}
		table.AddRow(
			mark,
			e.ID,
			e.From,
			output.Truncate(strings.Join(e.To, ","), 24),
			e.Priority.String(),
			e.Timestamp.Local().Format(timeLayout),
			output.Truncate(e.Subject, subjectMax),
		)
		priorities = append(priorities, e.Priority)
	}

	row := -1
	table.SetStyle(func(col int, cell string) string {
		if col == 0 {
			row++
		}
		switch col {
		case 0:
			if strings.TrimSpace(cell) == unreadMark {
				return s.Unread(cell)
			}
			return s.Dim(cell)
		case 4:
			return s.Priority(priorities[row], cell)
		case 5:
			return s.Dim(cell)
		}
		return cell
	})
	table.Render()
}

// bodyContent returns the human-facing text of a body: its "content"
// field when present, otherwise the serialized body.
func bodyContent(b message.Body) string {
	for _, key := range []string{"content", "message", "text"} {
		if v, ok := b.Field(key); ok {
			return v
		}
	}
	return b.Text()
}

// detailOptions controls renderDetail.
type detailOptions struct {
	Width    int
	Markdown bool
	Style    string // glamour standard style: dark, light or notty
}

func renderDetail(w io.Writer, s *output.Styler, e inbox.Entry, opts detailOptions) error {
	status := "unread"
	if e.Read {
		status = "read"
	}
	if e.Archived {
		status += ", archived"
	}

	fmt.Fprintln(w, s.Header(e.Subject))
	field := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", s.Label(fmt.Sprintf("%-9s", label+":")), value)
	}
	field("ID", e.ID)
	field("From", e.From)
	field("To", strings.Join(e.To, ", "))
	field("Priority", s.Priority(e.Priority, e.Priority.String()))
	field("Date", e.Timestamp.Format(time.RFC3339))
	field("Status", status)
	if e.Source != "" {
		field("Source", s.Dim(e.Source))
	}
	fmt.Fprintln(w)

	text := bodyContent(e.Body)
	if opts.Markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(opts.Style),
			glamour.WithWordWrap(opts.Width),
		)
		if err != nil {
			return fmt.Errorf("creating markdown renderer: %w", err)
		}
		rendered, err := r.Render(text)
		if err != nil {
			return fmt.Errorf("rendering markdown: %w", err)
		}
		fmt.Fprint(w, rendered)
		return nil
	}

	fmt.Fprintln(w, wordwrap.String(text, opts.Width))
	return nil
}

func renderStats(w io.Writer, s *output.Styler, agent string, st inbox.Stats) {
	fmt.Fprintf(w, "%s %s\n\n", s.Header("Inbox stats for"), agent)
	fmt.Fprintf(w, "  %s %d\n", s.Label("Total:   "), st.Total)
	fmt.Fprintf(w, "  %s %d\n", s.Label("Unread:  "), st.Unread)
	fmt.Fprintf(w, "  %s %d\n", s.Label("Archived:"), st.Archived)
	if st.Skipped > 0 {
		fmt.Fprintf(w, "  %s %s\n", s.Label("Skipped: "), s.Warning(output.CountStr(st.Skipped, "malformed file", "malformed files")))
	}

	section := func(title string, counts map[string]int, order []string) {
		if len(counts) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s\n", s.Header(title))
		for _, k := range order {
			fmt.Fprintf(w, "  %-16s %d\n", k, counts[k])
		}
	}
	section("By sender", st.BySender, byCountDesc(st.BySender))
	section("By priority", st.ByPriority, priorityOrder(st.ByPriority))
	section("By recipient", st.ByRecipient, byCountDesc(st.ByRecipient))
}

// byCountDesc orders keys by count, then name.
func byCountDesc(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// priorityOrder lists observed priorities from CRITICAL down to LOW.
func priorityOrder(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for i := len(message.Priorities) - 1; i >= 0; i-- {
		name := message.Priorities[i].String()
		if _, ok := counts[name]; ok {
			keys = append(keys, name)
		}
	}
	return keys
}
