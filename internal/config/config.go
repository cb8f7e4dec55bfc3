// Package config loads synapseinbox settings from TOML and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/synapseinbox/internal/message"
	"github.com/theirongolddev/synapseinbox/internal/notify"
	"github.com/theirongolddev/synapseinbox/internal/state"
)

// Config represents the main configuration
type Config struct {
	SynapsePath string        `toml:"synapse_path"` // Message repository directory
	StateDir    string        `toml:"state_dir"`    // Per-agent state documents
	Agent       string        `toml:"agent"`        // Default agent identity
	Broadcast   string        `toml:"broadcast"`    // Recipient token meaning "all agents"
	Extensions  []string      `toml:"extensions"`   // Recognized record extensions
	Watch       WatchConfig   `toml:"watch"`
	Display     DisplayConfig `toml:"display"`

	Notifications notify.Config `toml:"notifications"`
}

// WatchConfig holds settings for the watch command
type WatchConfig struct {
	DebounceMs     int  `toml:"debounce_ms"`      // Coalesce bursts of repository writes
	Poll           bool `toml:"poll"`             // Force polling instead of fsnotify
	PollIntervalMs int  `toml:"poll_interval_ms"` // Polling period when polling
}

// DisplayConfig holds text output settings
type DisplayConfig struct {
	Theme string `toml:"theme"` // auto, mocha, latte, plain
	Wrap  int    `toml:"wrap"`  // Body wrap width for show; 0 means terminal width
	Limit int    `toml:"limit"` // Default result limit for list; 0 means unlimited
}

// DebounceDuration returns the watch debounce window.
func (w WatchConfig) DebounceDuration() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

// PollInterval returns the watch polling period.
func (w WatchConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMs) * time.Millisecond
}

// DefaultPath returns the default config file path
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "synapseinbox", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "synapseinbox", "config.toml")
}

// DefaultSynapsePath returns the conventional repository location.
func DefaultSynapsePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "BEACON_HQ", "MEMORY_CORE_V2", "03_INTER_AI_COMMS", "THE_SYNAPSE", "active")
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// Default returns the default configuration with environment overrides applied.
func Default() *Config {
	cfg := builtin()
	cfg.applyEnv()
	return cfg
}

// builtin returns the defaults without environment overrides.
func builtin() *Config {
	cfg := &Config{Notifications: notify.DefaultConfig()}
	cfg.applyDefaults()
	return cfg
}

// Load reads the config file at path (DefaultPath if empty). A missing file
// yields the defaults; a file that does not parse is an error.
//
// Precedence, lowest first:
//  1. Built-in defaults
//  2. TOML config file
//  3. Environment variables (SYNAPSE_PATH, SYNAPSE_STATE_DIR, SYNAPSE_AGENT, AGENT_NAME)
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Notification channels keep their defaults unless the file overrides them.
	cfg := Config{Notifications: notify.DefaultConfig()}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SynapsePath == "" {
		c.SynapsePath = DefaultSynapsePath()
	}
	if c.StateDir == "" {
		c.StateDir = state.DefaultDir()
	}
	if c.Broadcast == "" {
		c.Broadcast = message.Broadcast
	}
	if len(c.Extensions) == 0 {
		c.Extensions = append([]string(nil), message.DefaultExtensions...)
	}
	if c.Watch.DebounceMs <= 0 {
		c.Watch.DebounceMs = 500
	}
	if c.Watch.PollIntervalMs <= 0 {
		c.Watch.PollIntervalMs = 1000
	}
	if c.Display.Theme == "" {
		c.Display.Theme = "auto"
	}
	c.SynapsePath = ExpandHome(c.SynapsePath)
	c.StateDir = ExpandHome(c.StateDir)
	c.Notifications.Log.Path = ExpandHome(c.Notifications.Log.Path)
}

func (c *Config) applyEnv() {
	if p := os.Getenv("SYNAPSE_PATH"); p != "" {
		c.SynapsePath = ExpandHome(p)
	}
	if d := os.Getenv("SYNAPSE_STATE_DIR"); d != "" {
		c.StateDir = ExpandHome(d)
	}
	if a := os.Getenv("SYNAPSE_AGENT"); a != "" {
		c.Agent = a
	} else if a := os.Getenv("AGENT_NAME"); a != "" && c.Agent == "" {
		c.Agent = a
	}
}

// CreateDefault writes a default config file to path (DefaultPath if empty).
func CreateDefault(path string) (string, error) {
	if path == "" {
		path = DefaultPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := Print(builtin(), f); err != nil {
		return "", err
	}

	return path, nil
}

// Print writes config to a writer in TOML format
func Print(cfg *Config, w io.Writer) error {
	fmt.Fprintln(w, "# SynapseInbox Configuration")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# Directory of message files (env: SYNAPSE_PATH)")
	fmt.Fprintf(w, "synapse_path = %q\n", cfg.SynapsePath)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# Directory holding per-agent read/archive state (env: SYNAPSE_STATE_DIR)")
	fmt.Fprintf(w, "state_dir = %q\n", cfg.StateDir)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# Default agent identity (env: SYNAPSE_AGENT, AGENT_NAME)")
	if cfg.Agent != "" {
		fmt.Fprintf(w, "agent = %q\n", cfg.Agent)
	} else {
		fmt.Fprintln(w, "# agent = \"ATLAS\"")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# Recipient token that addresses every agent")
	fmt.Fprintf(w, "broadcast = %q\n", cfg.Broadcast)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# Message file extensions to load")
	quoted := make([]string, len(cfg.Extensions))
	for i, e := range cfg.Extensions {
		quoted[i] = fmt.Sprintf("%q", e)
	}
	fmt.Fprintf(w, "extensions = [%s]\n", strings.Join(quoted, ", "))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[watch]")
	fmt.Fprintln(w, "# Settings for 'synapseinbox watch'")
	fmt.Fprintf(w, "debounce_ms = %d\n", cfg.Watch.DebounceMs)
	fmt.Fprintf(w, "poll = %t\n", cfg.Watch.Poll)
	fmt.Fprintf(w, "poll_interval_ms = %d\n", cfg.Watch.PollIntervalMs)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[display]")
	fmt.Fprintln(w, "# theme: auto, mocha, latte, plain")
	fmt.Fprintf(w, "theme = %q\n", cfg.Display.Theme)
	fmt.Fprintln(w, "# Body wrap width for 'show' (0 = terminal width)")
	fmt.Fprintf(w, "wrap = %d\n", cfg.Display.Wrap)
	fmt.Fprintln(w, "# Default result limit for 'list' (0 = unlimited)")
	fmt.Fprintf(w, "limit = %d\n", cfg.Display.Limit)
	fmt.Fprintln(w)

	n := cfg.Notifications
	fmt.Fprintln(w, "[notifications]")
	fmt.Fprintln(w, "# Announce new messages during 'synapseinbox watch'")
	fmt.Fprintf(w, "enabled = %t\n", n.Enabled)
	fmt.Fprintln(w, "# Lowest priority that notifies: LOW, NORMAL, HIGH, CRITICAL")
	fmt.Fprintf(w, "min_priority = %q\n", n.MinPriority)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "[notifications.desktop]")
	fmt.Fprintf(w, "enabled = %t\n", n.Desktop.Enabled)
	fmt.Fprintf(w, "title = %q\n", n.Desktop.Title)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "[notifications.shell]")
	fmt.Fprintln(w, "# Run via sh -c with SYNAPSE_MESSAGE_* in the environment")
	fmt.Fprintf(w, "enabled = %t\n", n.Shell.Enabled)
	fmt.Fprintf(w, "command = %q\n", n.Shell.Command)
	fmt.Fprintf(w, "pass_json = %t\n", n.Shell.PassJSON)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "[notifications.log]")
	fmt.Fprintf(w, "enabled = %t\n", n.Log.Enabled)
	fmt.Fprintf(w, "path = %q\n", n.Log.Path)

	return nil
}
