// Package notify announces newly arrived messages outside the terminal.
// Each enabled channel (desktop, shell hook, log file) receives every event.
package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/theirongolddev/synapseinbox/internal/message"
)

// EventType represents the type of notification event
type EventType string

const (
	EventNewMessage EventType = "message.new" // Unread message arrived for the agent
)

// Event represents a notification event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	MessageID string    `json:"message_id"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Priority  string    `json:"priority"`

	priority message.Priority
}

// NewMessageEvent describes the arrival of m in agent's inbox.
func NewMessageEvent(agent string, m message.Message) Event {
	return Event{
		Type:      EventNewMessage,
		Agent:     agent,
		MessageID: m.ID,
		From:      m.From,
		Subject:   m.Subject,
		Priority:  m.Priority.String(),
		priority:  m.Priority,
	}
}

// Summary is the one-line human form used by desktop and log channels.
func (e Event) Summary() string {
	return fmt.Sprintf("[%s] %s: %s", e.Priority, e.From, e.Subject)
}

// Config holds notification configuration
type Config struct {
	Enabled     bool   `toml:"enabled"`
	MinPriority string `toml:"min_priority"` // Lowest priority that triggers a notification

	Desktop DesktopConfig `toml:"desktop"`
	Shell   ShellConfig   `toml:"shell"`
	Log     LogConfig     `toml:"log"`
}

// DesktopConfig configures desktop notifications
type DesktopConfig struct {
	Enabled bool   `toml:"enabled"`
	Title   string `toml:"title"` // Default title prefix
}

// ShellConfig configures shell command notifications
type ShellConfig struct {
	Enabled  bool   `toml:"enabled"`
	Command  string `toml:"command"`   // Command to run
	PassJSON bool   `toml:"pass_json"` // Pass event as JSON stdin
}

// LogConfig configures log file notifications
type LogConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Log file path
}

// DefaultConfig returns a default notification configuration
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		MinPriority: "NORMAL",
		Desktop: DesktopConfig{
			Enabled: true,
			Title:   "Synapse",
		},
		Shell: ShellConfig{
			Enabled:  false,
			PassJSON: true,
		},
		Log: LogConfig{
			Enabled: false,
			Path:    "~/.local/state/synapseinbox/notifications.log",
		},
	}
}

// Notifier sends notifications through configured channels
type Notifier struct {
	config      Config
	minPriority message.Priority
	mu          sync.Mutex

	// desktop is replaced in tests.
	desktop func(title, body string) error
}

// New creates a new Notifier with the given configuration. An unknown
// MinPriority lets every message through.
func New(cfg Config) *Notifier {
	minPriority, ok := message.ParsePriority(cfg.MinPriority)
	if !ok {
		minPriority = message.PriorityLow
	}
	return &Notifier{
		config:      cfg,
		minPriority: minPriority,
		desktop:     sendDesktop,
	}
}

// Enabled reports whether any notification can be sent.
func (n *Notifier) Enabled() bool {
	return n.config.Enabled
}

// Notify sends a notification for the given event
func (n *Notifier) Notify(event Event) error {
	if !n.config.Enabled {
		return nil
	}
	if event.priority < n.minPriority {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var (
		wg    sync.WaitGroup
		errs  []error
		errMu sync.Mutex
	)

	addErr := func(err error) {
		if err != nil {
			errMu.Lock()
			errs = append(errs, err)
			errMu.Unlock()
		}
	}

	// Send through each enabled channel in parallel
	if n.config.Desktop.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.sendDesktop(event); err != nil {
				addErr(fmt.Errorf("desktop: %w", err))
			}
		}()
	}

	if n.config.Shell.Enabled && n.config.Shell.Command != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.sendShell(event); err != nil {
				addErr(fmt.Errorf("shell: %w", err))
			}
		}()
	}

	if n.config.Log.Enabled && n.config.Log.Path != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := n.sendLog(event); err != nil {
				addErr(fmt.Errorf("log: %w", err))
			}
		}()
	}

	wg.Wait()
	return errors.Join(errs...)
}

func (n *Notifier) sendDesktop(event Event) error {
	title := n.config.Desktop.Title
	if title == "" {
		title = "Synapse"
	}
	title = fmt.Sprintf("%s [%s]", title, event.Agent)
	return n.desktop(title, event.Summary())
}

func sendDesktop(title, body string) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, body, title)
		return exec.Command("osascript", "-e", script).Run()
	case "linux":
		if _, err := exec.LookPath("notify-send"); err != nil {
			return fmt.Errorf("notify-send not found")
		}
		return exec.Command("notify-send", title, body).Run()
	default:
		return fmt.Errorf("desktop notifications not supported on %s", runtime.GOOS)
	}
}

// sendShell runs the configured command with the event in its environment.
func (n *Notifier) sendShell(event Event) error {
	cmd := exec.Command("sh", "-c", n.config.Shell.Command)

	if n.config.Shell.PassJSON {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		cmd.Stdin = bytes.NewReader(eventJSON)
	}

	cmd.Env = append(os.Environ(),
		"SYNAPSE_EVENT_TYPE="+string(event.Type),
		"SYNAPSE_AGENT="+event.Agent,
		"SYNAPSE_MESSAGE_ID="+event.MessageID,
		"SYNAPSE_MESSAGE_FROM="+event.From,
		"SYNAPSE_MESSAGE_SUBJECT="+event.Subject,
		"SYNAPSE_MESSAGE_PRIORITY="+event.Priority,
	)

	return cmd.Run()
}

// sendLog appends one line per event to the log file.
func (n *Notifier) sendLog(event Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	path := n.config.Log.Path
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] [%s] %s %s: %s",
		event.Timestamp.Format(time.RFC3339),
		event.Agent,
		event.Type,
		event.MessageID,
		event.Summary(),
	)
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("failed to write to log: %w", err)
	}
	return nil
}
