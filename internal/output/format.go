// Package output provides unified output formatting for text, JSON and YAML.
// All commands should use this package for consistent output across the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Format represents the output format type
type Format int

const (
	// FormatText is human-readable formatted text (default)
	FormatText Format = iota
	// FormatJSON is machine-readable JSON output
	FormatJSON
	// FormatYAML is machine-readable YAML output
	FormatYAML
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "text"
	}
}

// ParseFormat converts a --format value into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "table":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return FormatText, fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// Formatter handles output formatting for commands
type Formatter struct {
	format    Format
	writer    io.Writer
	errWriter io.Writer
	pretty    bool // For JSON: whether to indent
	color     bool
}

// New creates a new Formatter with the given options
func New(opts ...Option) *Formatter {
	f := &Formatter{
		format:    FormatText,
		writer:    os.Stdout,
		errWriter: os.Stderr,
		pretty:    true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Option is a functional option for Formatter
type Option func(*Formatter)

// WithFormat sets the output format
func WithFormat(format Format) Option {
	return func(f *Formatter) {
		f.format = format
	}
}

// WithJSON sets the output format to JSON
func WithJSON(enabled bool) Option {
	return func(f *Formatter) {
		if enabled {
			f.format = FormatJSON
		} else {
			f.format = FormatText
		}
	}
}

// WithWriter sets the output writer
func WithWriter(w io.Writer) Option {
	return func(f *Formatter) {
		f.writer = w
	}
}

// WithErrWriter sets the writer for text-mode errors
func WithErrWriter(w io.Writer) Option {
	return func(f *Formatter) {
		f.errWriter = w
	}
}

// WithPretty sets whether JSON should be indented
func WithPretty(pretty bool) Option {
	return func(f *Formatter) {
		f.pretty = pretty
	}
}

// WithColor enables styled text output.
func WithColor(enabled bool) Option {
	return func(f *Formatter) {
		f.color = enabled
	}
}

// Format returns the current output format
func (f *Formatter) Format() Format {
	return f.format
}

// IsStructured returns true for any machine-readable format.
func (f *Formatter) IsStructured() bool {
	return f.format == FormatJSON || f.format == FormatYAML
}

// Color reports whether text output should be styled.
func (f *Formatter) Color() bool {
	return f.color && f.format == FormatText
}

// Writer returns the output writer
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// Data writes v in the structured format, or calls textFn for text output.
func (f *Formatter) Data(v any, textFn func(w io.Writer) error) error {
	switch f.format {
	case FormatJSON:
		return f.JSON(v)
	case FormatYAML:
		return WriteYAML(f.writer, v)
	default:
		return textFn(f.writer)
	}
}

// DetectFormat determines the output format.
// Priority: explicit flag > env var > default text
func DetectFormat(flag string, jsonFlag bool) (Format, error) {
	// 1. Explicit --json flag takes highest priority
	if jsonFlag {
		return FormatJSON, nil
	}
	if flag != "" {
		return ParseFormat(flag)
	}

	// 2. Check SYNAPSE_OUTPUT_FORMAT environment variable
	if env := os.Getenv("SYNAPSE_OUTPUT_FORMAT"); env != "" {
		if f, err := ParseFormat(env); err == nil {
			return f, nil
		}
	}

	return FormatText, nil
}

// IsTerminal returns true if stdout is a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsInteractive returns true when the writer is a terminal.
func IsInteractive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// IsInputTerminal returns true when r is an interactive terminal.
func IsInputTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// TerminalWidth returns the width of stdout, or fallback when it is not a terminal.
func TerminalWidth(fallback int) int {
	if !IsTerminal() {
		return fallback
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
