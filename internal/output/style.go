package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/synapseinbox/internal/message"
	"github.com/theirongolddev/synapseinbox/internal/theme"
)

// Styler colors text output. A disabled Styler returns its input unchanged.
type Styler struct {
	theme    theme.Theme
	renderer *lipgloss.Renderer
}

// NewStyler returns a Styler for w. It is disabled when enabled is false
// or the theme is Plain.
func NewStyler(w io.Writer, t theme.Theme, enabled bool) *Styler {
	if !enabled || t.IsPlain() {
		return &Styler{theme: theme.Plain}
	}
	return &Styler{theme: t, renderer: lipgloss.NewRenderer(w)}
}

// Enabled reports whether the Styler emits colors.
func (s *Styler) Enabled() bool {
	return s.renderer != nil
}

func (s *Styler) fg(c lipgloss.Color, bold bool, text string) string {
	if s.renderer == nil || text == "" {
		return text
	}
	return s.renderer.NewStyle().Foreground(c).Bold(bold).Render(text)
}

// Priority colors text by message priority; HIGH and CRITICAL are bold.
func (s *Styler) Priority(p message.Priority, text string) string {
	return s.fg(s.theme.PriorityColor(p), p >= message.PriorityHigh, text)
}

// Header renders a section heading.
func (s *Styler) Header(text string) string {
	return s.fg(s.theme.Primary, true, text)
}

// Dim renders secondary text.
func (s *Styler) Dim(text string) string {
	return s.fg(s.theme.Overlay, false, text)
}

// Label renders a field label.
func (s *Styler) Label(text string) string {
	return s.fg(s.theme.Subtext, false, text)
}

// Unread renders the unread marker.
func (s *Styler) Unread(text string) string {
	return s.fg(s.theme.Info, true, text)
}

// Success renders confirmation text.
func (s *Styler) Success(text string) string {
	return s.fg(s.theme.Success, false, text)
}

// Warning renders cautionary text.
func (s *Styler) Warning(text string) string {
	return s.fg(s.theme.Warning, false, text)
}
