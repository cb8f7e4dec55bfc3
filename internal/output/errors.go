package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/synapseinbox/internal/theme"
)

// CLIError represents a structured CLI error with remediation hints.
type CLIError struct {
	Message string // What failed
	Cause   string // Why it failed (optional)
	Hint    string // Fastest command/action to fix it (optional)
	Code    string // Error code for programmatic handling (optional)

	err error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error, if any.
func (e *CLIError) Unwrap() error {
	return e.err
}

// NewCLIError creates a new CLI error with just a message.
func NewCLIError(msg string) *CLIError {
	return &CLIError{Message: msg}
}

// WrapCLIError creates a CLI error whose cause is err.
func WrapCLIError(msg string, err error) *CLIError {
	return &CLIError{Message: msg, Cause: err.Error(), err: err}
}

// WithCause adds a cause to the error.
func (e *CLIError) WithCause(cause string) *CLIError {
	e.Cause = cause
	return e
}

// WithHint adds a remediation hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// WithCode adds an error code to the error.
func (e *CLIError) WithCode(code string) *CLIError {
	e.Code = code
	return e
}

// Response converts the error into its structured form.
func (e *CLIError) Response() ErrorResponse {
	return ErrorResponse{Error: e.Message, Code: e.Code, Details: e.Cause, Hint: e.Hint}
}

// AsCLIError returns err as a CLIError, wrapping plain errors.
func AsCLIError(err error) *CLIError {
	var ce *CLIError
	if errors.As(err, &ce) {
		return ce
	}
	return &CLIError{Message: err.Error(), err: err}
}

// FormatCLIError formats a CLIError for terminal output.
// Colors come from t; a Plain theme yields plain text.
func FormatCLIError(e *CLIError, t theme.Theme) string {
	label := func(_ lipgloss.Color, s string) string { return s }
	bold := label
	if !t.IsPlain() {
		label = func(c lipgloss.Color, s string) string {
			return lipgloss.NewStyle().Foreground(c).Render(s)
		}
		bold = func(c lipgloss.Color, s string) string {
			return lipgloss.NewStyle().Foreground(c).Bold(true).Render(s)
		}
	}

	var sb strings.Builder

	// Error message (red, bold)
	sb.WriteString(bold(t.Error, "Error: "))
	sb.WriteString(e.Message)
	if e.Code != "" {
		sb.WriteString(" ")
		sb.WriteString(label(t.Overlay, "["+e.Code+"]"))
	}
	sb.WriteString("\n")

	if e.Cause != "" {
		sb.WriteString(label(t.Subtext, "  Cause: "))
		sb.WriteString(e.Cause)
		sb.WriteString("\n")
	}

	if e.Hint != "" {
		sb.WriteString(label(t.Info, "  Hint: "))
		sb.WriteString(e.Hint)
		sb.WriteString("\n")
	}

	return sb.String()
}

// WriteError reports err in the formatter's structured format on its writer,
// or as text on its error writer.
func (f *Formatter) WriteError(err error, themeName string) {
	ce := AsCLIError(err)
	switch f.format {
	case FormatJSON:
		_ = WriteJSON(f.writer, ce.Response(), f.pretty)
	case FormatYAML:
		_ = WriteYAML(f.writer, ce.Response())
	default:
		t := theme.Plain
		if f.color && IsInteractive(f.errWriter) {
			t = theme.Current(themeName)
		}
		fmt.Fprint(f.errWriter, FormatCLIError(ce, t))
	}
}

// Common error hints for frequent scenarios
var (
	HintAgentRequired    = "Pass --agent NAME, or set SYNAPSE_AGENT / agent in the config file"
	HintRepoUnavailable  = "Check --synapse-path, SYNAPSE_PATH or synapse_path in 'synapseinbox config show'"
	HintMessageNotFound  = "Run 'synapseinbox list' to see message ids"
	HintConfigNotFound   = "Run 'synapseinbox config init' to create a default configuration"
	HintConfigInvalid    = "Check config syntax with 'synapseinbox config show' or edit the file from 'synapseinbox config path'"
	HintPermissionDenied = "Check file permissions or run with appropriate privileges"
)

// AgentRequiredError is returned when no agent identity was configured.
func AgentRequiredError() *CLIError {
	return NewCLIError("no agent identity configured").
		WithCode("AGENT_REQUIRED").
		WithHint(HintAgentRequired)
}

// MessageNotFoundError creates a message not found error with hint
func MessageNotFoundError(id string) *CLIError {
	return NewCLIError(fmt.Sprintf("message '%s' not found", id)).
		WithCode("MESSAGE_NOT_FOUND").
		WithHint(HintMessageNotFound)
}

// RepositoryUnavailableError wraps a failure to read the message directory.
func RepositoryUnavailableError(path string, err error) *CLIError {
	return WrapCLIError(fmt.Sprintf("message repository '%s' is unavailable", path), err).
		WithCode("REPOSITORY_UNAVAILABLE").
		WithHint(HintRepoUnavailable)
}
