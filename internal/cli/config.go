package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/synapseinbox/internal/config"
	"github.com/theirongolddev/synapseinbox/internal/output"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefault(a.cfgFile)
			if err != nil {
				return output.WrapCLIError("could not create config file", err).WithCode("CONFIG_EXISTS")
			}
			return a.out.Data(map[string]string{"path": path}, func(w io.Writer) error {
				fmt.Fprintf(w, "Created config file: %s\n", path)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				path = config.DefaultPath()
			}
			return a.out.Data(map[string]string{"path": path}, func(w io.Writer) error {
				fmt.Fprintln(w, path)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (file, env and flags applied)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.out.Data(configView(a.cfg), func(w io.Writer) error {
				return config.Print(a.cfg, w)
			})
		},
	})

	return cmd
}

type configJSON struct {
	SynapsePath string         `json:"synapse_path" yaml:"synapse_path"`
	StateDir    string         `json:"state_dir" yaml:"state_dir"`
	Agent       string         `json:"agent" yaml:"agent"`
	Broadcast   string         `json:"broadcast" yaml:"broadcast"`
	Extensions  []string       `json:"extensions" yaml:"extensions"`
	Watch       map[string]any `json:"watch" yaml:"watch"`
	Display     map[string]any `json:"display" yaml:"display"`

	Notifications map[string]any `json:"notifications" yaml:"notifications"`
}

func configView(cfg *config.Config) configJSON {
	n := cfg.Notifications
	return configJSON{
		SynapsePath: cfg.SynapsePath,
		StateDir:    cfg.StateDir,
		Agent:       cfg.Agent,
		Broadcast:   cfg.Broadcast,
		Extensions:  cfg.Extensions,
		Watch: map[string]any{
			"debounce_ms":      cfg.Watch.DebounceMs,
			"poll":             cfg.Watch.Poll,
			"poll_interval_ms": cfg.Watch.PollIntervalMs,
		},
		Display: map[string]any{
			"theme": cfg.Display.Theme,
			"wrap":  cfg.Display.Wrap,
			"limit": cfg.Display.Limit,
		},
		Notifications: map[string]any{
			"enabled":      n.Enabled,
			"min_priority": n.MinPriority,
			"desktop":      n.Desktop.Enabled,
			"shell":        n.Shell.Enabled,
			"log":          n.Log.Enabled,
		},
	}
}
