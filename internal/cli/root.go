// Package cli implements the synapseinbox command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/synapseinbox/internal/config"
	"github.com/theirongolddev/synapseinbox/internal/inbox"
	"github.com/theirongolddev/synapseinbox/internal/message"
	"github.com/theirongolddev/synapseinbox/internal/output"
	"github.com/theirongolddev/synapseinbox/internal/state"
	"github.com/theirongolddev/synapseinbox/internal/theme"
)

// Build information - set by goreleaser via ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	BuiltBy = "unknown"
)

// app carries global flags and the per-invocation environment built from
// them. Each command tree owns one app.
type app struct {
	cfgFile     string
	agent       string
	synapsePath string
	stateDir    string
	format      string
	jsonOutput  bool
	noColor     bool
	verbose     bool
	quiet       bool

	cfg    *config.Config
	logger *slog.Logger
	out    *output.Formatter
	theme  theme.Theme
	styler *output.Styler
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "synapseinbox",
		Short: "Per-agent inbox over a shared Synapse message directory",
		Long: `SynapseInbox gives each AI agent an inbox view over the shared Synapse
message repository: unread tracking, filtering, search, archiving and stats.

Messages are never modified; read and archived status is kept per agent
in a small state document.

Quick Start:
  synapseinbox unread --agent ATLAS            # Messages waiting for ATLAS
  synapseinbox list --agent ATLAS --priority HIGH
  synapseinbox search "deploy" --agent ATLAS
  synapseinbox mark-read test_001 --agent ATLAS
  synapseinbox watch --agent ATLAS             # Follow new arrivals`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is "+config.DefaultPath()+")")
	flags.StringVarP(&a.agent, "agent", "a", "", "agent identity (env: SYNAPSE_AGENT, AGENT_NAME)")
	flags.StringVar(&a.synapsePath, "synapse-path", "", "message repository directory (env: SYNAPSE_PATH)")
	flags.StringVar(&a.stateDir, "state-dir", "", "directory for per-agent state (env: SYNAPSE_STATE_DIR)")
	flags.StringVarP(&a.format, "format", "f", "", "output format: text, json or yaml (env: SYNAPSE_OUTPUT_FORMAT)")
	flags.BoolVar(&a.jsonOutput, "json", false, "output in JSON format (same as --format json)")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug details to stderr")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "only log errors")

	cmd.AddCommand(
		newUnreadCmd(a),
		newFromCmd(a),
		newToCmd(a),
		newSearchCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newStatsCmd(a),
		newMarkReadCmd(a),
		newMarkUnreadCmd(a),
		newMarkAllReadCmd(a),
		newArchiveCmd(a),
		newUnarchiveCmd(a),
		newClearStateCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)

	return cmd, a
}

// Execute runs the command tree and reports any error in the selected
// output format. The caller maps a non-nil error to exit status 1.
func Execute() error {
	cmd, a := newRoot()
	return a.execute(cmd, nil)
}

func (a *app) execute(cmd *cobra.Command, args []string) error {
	if args != nil {
		cmd.SetArgs(args)
	}
	err := cmd.Execute()
	if err == nil {
		return nil
	}

	// Setup never ran for flag errors and unknown commands.
	f := a.out
	if f == nil {
		f = output.New(output.WithWriter(cmd.OutOrStdout()), output.WithErrWriter(cmd.ErrOrStderr()))
	}
	themeName := "auto"
	if a.cfg != nil {
		themeName = a.cfg.Display.Theme
	}
	f.WriteError(err, themeName)
	return err
}

// setup loads configuration, applies flag overrides and builds the logger
// and formatter shared by every subcommand.
func (a *app) setup(cmd *cobra.Command) error {
	format, err := output.DetectFormat(a.format, a.jsonOutput)
	if err != nil {
		return output.NewCLIError(err.Error()).WithCode("INVALID_ARGUMENT")
	}

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	useColor := !a.noColor && !theme.NoColorEnabled() && output.IsInteractive(stdout)
	a.out = output.New(
		output.WithFormat(format),
		output.WithWriter(stdout),
		output.WithErrWriter(stderr),
		output.WithColor(useColor),
	)
	a.logger = newLogger(stderr, a.verbose, a.quiet)

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return output.WrapCLIError("could not load configuration", err).
			WithCode("CONFIG_INVALID").
			WithHint(output.HintConfigInvalid)
	}
	if a.synapsePath != "" {
		cfg.SynapsePath = config.ExpandHome(a.synapsePath)
	}
	if a.stateDir != "" {
		cfg.StateDir = config.ExpandHome(a.stateDir)
	}
	if a.agent != "" {
		cfg.Agent = a.agent
	}
	a.cfg = cfg

	a.theme = theme.Plain
	if useColor {
		a.theme = theme.Current(cfg.Display.Theme)
	}
	a.styler = output.NewStyler(stdout, a.theme, a.out.Color())

	a.logger.Debug("configuration loaded",
		"config", a.cfgFile, "synapse_path", cfg.SynapsePath, "state_dir", cfg.StateDir,
		"agent", cfg.Agent, "format", format.String())
	return nil
}

// newLogger builds the stderr logger: WARN by default, DEBUG with
// --verbose and ERROR with --quiet.
func newLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openIndex loads the repository and state for the configured agent.
func (a *app) openIndex() (*inbox.Index, error) {
	agent := message.NormalizeAgent(a.cfg.Agent)
	if agent == "" {
		return nil, output.AgentRequiredError()
	}

	store := state.NewFileStore(a.cfg.StateDir, state.WithLogger(a.logger))
	ix, err := inbox.New(agent, a.cfg.SynapsePath, store,
		inbox.WithLogger(a.logger),
		inbox.WithBroadcast(a.cfg.Broadcast),
		inbox.WithExtensions(a.cfg.Extensions...),
	)
	if err != nil {
		if errors.Is(err, message.ErrRepositoryUnavailable) {
			return nil, output.RepositoryUnavailableError(a.cfg.SynapsePath, err)
		}
		return nil, output.WrapCLIError("could not open inbox", err).
			WithHint(output.HintPermissionDenied)
	}
	return ix, nil
}

// checkPriority warns about a --priority value no message can match. The
// filter itself degrades an unknown priority to "no matches".
func (a *app) checkPriority(s string) {
	if s == "" {
		return
	}
	if _, ok := message.ParsePriority(s); !ok {
		names := make([]string, len(message.Priorities))
		for i, p := range message.Priorities {
			names[i] = p.String()
		}
		a.logger.Warn("unknown priority matches no messages", "priority", s, "valid", strings.Join(names, ","))
	}
}

func newVersionCmd(a *app) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if short && !a.out.IsStructured() {
				fmt.Fprintln(a.out.Writer(), Version)
				return nil
			}
			info := versionInfo{
				Version:   Version,
				Commit:    Commit,
				BuiltAt:   Date,
				BuiltBy:   BuiltBy,
				GoVersion: runtime.Version(),
				Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
			}
			return a.out.Data(info, func(w io.Writer) error {
				fmt.Fprintf(w, "synapseinbox version %s\n", info.Version)
				fmt.Fprintf(w, "  commit:    %s\n", info.Commit)
				fmt.Fprintf(w, "  built:     %s\n", info.BuiltAt)
				fmt.Fprintf(w, "  builder:   %s\n", info.BuiltBy)
				fmt.Fprintf(w, "  go:        %s\n", info.GoVersion)
				fmt.Fprintf(w, "  platform:  %s\n", info.Platform)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}

type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuiltAt   string `json:"built_at" yaml:"built_at"`
	BuiltBy   string `json:"built_by" yaml:"built_by"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}
