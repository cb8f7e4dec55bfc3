package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theirongolddev/synapseinbox/internal/output"
)

type harness struct {
	repo     string
	stateDir string
	cfgPath  string
}

// newHarness isolates a command run from the user's environment and seeds
// a repository with four messages, test_004 being the newest.
func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, key := range []string{
		"SYNAPSE_PATH", "SYNAPSE_STATE_DIR", "SYNAPSE_AGENT", "AGENT_NAME",
		"SYNAPSE_OUTPUT_FORMAT", "SYNAPSE_THEME",
	} {
		t.Setenv(key, "")
	}

	h := &harness{
		repo:     t.TempDir(),
		stateDir: t.TempDir(),
		cfgPath:  filepath.Join(t.TempDir(), "config.toml"),
	}
	h.write(t, "test_001", `{"msg_id":"test_001","from":"FORGE","to":["ATLAS"],"subject":"Test Message 1","body":{"content":"This is a test"},"priority":"HIGH","timestamp":"2026-01-18T10:00:00"}`)
	h.write(t, "test_002", `{"msg_id":"test_002","from":"BOLT","to":["ATLAS","ALL_AGENTS"],"subject":"Test Message 2","body":{"content":"Another test"},"priority":"NORMAL","timestamp":"2026-01-18T11:00:00"}`)
	h.write(t, "test_003", `{"msg_id":"test_003","from":"CLIO","to":["ALL_AGENTS"],"subject":"Broadcast Test","body":{"content":"Broadcast message"},"priority":"LOW","timestamp":"2026-01-18T12:00:00"}`)
	h.write(t, "test_004", `{"msg_id":"test_004","from":"FORGE","to":["ATLAS"],"subject":"Urgent Task","body":{"content":"This is urgent"},"priority":"CRITICAL","timestamp":"2026-01-18T13:00:00"}`)
	return h
}

func (h *harness) write(t *testing.T, id, record string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(h.repo, id+".json"), []byte(record), 0644); err != nil {
		t.Fatal(err)
	}
}

// run executes one command with the harness paths appended as flags.
func (h *harness) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd, a := newRoot()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))

	full := append([]string{}, args...)
	full = append(full, "--config", h.cfgPath, "--synapse-path", h.repo, "--state-dir", h.stateDir)
	err = a.execute(cmd, full)
	return out.String(), errOut.String(), err
}

func (h *harness) listJSON(t *testing.T, args ...string) listResponse {
	t.Helper()
	stdout, stderr, err := h.run(t, append(args, "--json")...)
	if err != nil {
		t.Fatalf("%v: %v\nstderr: %s", args, err, stderr)
	}
	var resp listResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("decoding %q: %v", stdout, err)
	}
	return resp
}

func ids(resp listResponse) string {
	parts := make([]string, len(resp.Messages))
	for i, e := range resp.Messages {
		parts[i] = e.ID
	}
	return strings.Join(parts, ",")
}

func TestHelp(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := h.run(t, "--help")
	if err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"unread", "search", "mark-read", "archive", "watch", "config"} {
		if !strings.Contains(stdout, sub) {
			t.Errorf("help missing %q", sub)
		}
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := h.run(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != Version {
		t.Errorf("version = %q, want %q", stdout, Version)
	}

	stdout, _, err = h.run(t, "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var info versionInfo
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatal(err)
	}
	if info.Version != Version || info.GoVersion == "" {
		t.Errorf("unexpected version info %+v", info)
	}
}

func TestUnreadNewestFirst(t *testing.T) {
	h := newHarness(t)
	resp := h.listJSON(t, "unread", "--agent", "atlas")
	if resp.Agent != "ATLAS" {
		t.Errorf("agent = %q, want ATLAS", resp.Agent)
	}
	if got := ids(resp); got != "test_004,test_003,test_002,test_001" {
		t.Errorf("unread = %s", got)
	}
	if resp.Count != 4 {
		t.Errorf("count = %d, want 4", resp.Count)
	}
}

func TestUnreadAgentFromEnv(t *testing.T) {
	h := newHarness(t)
	t.Setenv("SYNAPSE_AGENT", "atlas")
	resp := h.listJSON(t, "unread")
	if resp.Agent != "ATLAS" {
		t.Errorf("agent = %q, want ATLAS", resp.Agent)
	}
}

func TestUnreadExcludesOtherRecipients(t *testing.T) {
	h := newHarness(t)
	h.write(t, "test_005", `{"msg_id":"test_005","from":"ATLAS","to":["FORGE"],"subject":"For forge","timestamp":"2026-01-18T14:00:00"}`)

	if got := ids(h.listJSON(t, "unread", "--agent", "ATLAS")); got != "test_004,test_003,test_002,test_001" {
		t.Errorf("unread = %s", got)
	}
	if got := ids(h.listJSON(t, "unread", "--agent", "ATLAS", "--all")); !strings.HasPrefix(got, "test_005,") {
		t.Errorf("unread --all = %s", got)
	}
}

func TestMarkReadPersists(t *testing.T) {
	h := newHarness(t)
	if _, stderr, err := h.run(t, "mark-read", "test_001", "test_003", "--agent", "ATLAS"); err != nil {
		t.Fatalf("mark-read: %v\n%s", err, stderr)
	}
	if got := ids(h.listJSON(t, "unread", "--agent", "ATLAS")); got != "test_004,test_002" {
		t.Errorf("unread after mark-read = %s", got)
	}
	if _, err := os.Stat(filepath.Join(h.stateDir, "atlas.json")); err != nil {
		t.Errorf("state file not written: %v", err)
	}

	// Other agents keep their own state.
	if got := ids(h.listJSON(t, "to", "ALL_AGENTS", "--agent", "BOLT")); got != "test_003,test_002" {
		t.Errorf("to ALL_AGENTS = %s", got)
	}
	resp := h.listJSON(t, "list", "--unread", "--agent", "BOLT")
	if resp.Count != 4 {
		t.Errorf("BOLT unread count = %d, want 4", resp.Count)
	}
}

func TestMarkReadUnknownID(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := h.run(t, "mark-read", "nope", "--agent", "ATLAS", "--json")
	if err != nil {
		t.Fatalf("unknown id should succeed: %v", err)
	}
	var resp output.MutationResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Action != "mark_read" || resp.Unread != 4 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestMarkAllReadAndClearState(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := h.run(t, "mark-all-read", "--agent", "ATLAS")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "Marked 4 messages read") || !strings.Contains(stdout, "0 unread messages remaining") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
	if resp := h.listJSON(t, "unread", "--agent", "ATLAS"); resp.Count != 0 {
		t.Errorf("unread after mark-all-read = %s", ids(resp))
	}

	if _, _, err := h.run(t, "clear-state", "--agent", "ATLAS"); err != nil {
		t.Fatal(err)
	}
	if resp := h.listJSON(t, "unread", "--agent", "ATLAS"); resp.Count != 4 {
		t.Errorf("unread after clear-state = %s", ids(resp))
	}
}

func TestArchiveHidesFromDefaultViews(t *testing.T) {
	h := newHarness(t)
	if _, _, err := h.run(t, "archive", "test_004", "--agent", "ATLAS"); err != nil {
		t.Fatal(err)
	}
	if got := ids(h.listJSON(t, "list", "--agent", "ATLAS")); got != "test_003,test_002,test_001" {
		t.Errorf("list = %s", got)
	}
	if got := ids(h.listJSON(t, "unread", "--agent", "ATLAS")); got != "test_003,test_002,test_001" {
		t.Errorf("unread = %s", got)
	}
	resp := h.listJSON(t, "list", "--archived", "--agent", "ATLAS")
	if resp.Count != 4 || !resp.Messages[0].Archived {
		t.Errorf("list --archived = %s", ids(resp))
	}

	if _, _, err := h.run(t, "unarchive", "test_004", "--agent", "ATLAS"); err != nil {
		t.Fatal(err)
	}
	if resp := h.listJSON(t, "list", "--agent", "ATLAS"); resp.Count != 4 {
		t.Errorf("list after unarchive = %s", ids(resp))
	}
}

func TestListFilters(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"from", []string{"list", "--from", "forge"}, "test_004,test_001"},
		{"priority", []string{"list", "--priority", "high"}, "test_001"},
		{"unknown priority", []string{"list", "--priority", "URGENT"}, ""},
		{"limit", []string{"list", "--limit", "2"}, "test_004,test_003"},
		{"since", []string{"list", "--since", "2026-01-18T12:00:00Z"}, "test_004,test_003"},
		{"from command", []string{"from", "BOLT"}, "test_002"},
		{"to broadcast", []string{"to", "ZEUS"}, "test_003,test_002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--agent", "ATLAS")
			if got := ids(h.listJSON(t, args...)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"subject", []string{"search", "message"}, "test_003,test_002,test_001"},
		{"case insensitive", []string{"search", "URGENT"}, "test_004"},
		{"subject only", []string{"search", "urgent", "--subject-only"}, "test_004"},
		{"body only match skipped", []string{"search", "another", "--subject-only"}, ""},
		{"body", []string{"search", "another"}, "test_002"},
		{"no match", []string{"search", "nonexistent"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--agent", "ATLAS")
			if got := ids(h.listJSON(t, args...)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListText(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := h.run(t, "unread", "--agent", "ATLAS")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "Unread messages (4)") {
		t.Errorf("missing header:\n%s", stdout)
	}
	for _, want := range []string{"ID", "test_004", "CRITICAL", "Urgent Task", unreadMark} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "\x1b[") {
		t.Errorf("non-terminal output should not be styled:\n%q", stdout)
	}
}

func TestShow(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := h.run(t, "show", "test_002", "--agent", "ATLAS", "--mark-read")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Test Message 2", "From:     BOLT", "ATLAS, ALL_AGENTS", "Another test", "Status:   read"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("show missing %q:\n%s", want, stdout)
		}
	}
	if got := ids(h.listJSON(t, "unread", "--agent", "ATLAS")); got != "test_004,test_003,test_001" {
		t.Errorf("unread after show --mark-read = %s", got)
	}
}

func TestShowNotFound(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := h.run(t, "show", "missing", "--agent", "ATLAS", "--json")
	if err == nil {
		t.Fatal("expected error")
	}
	var resp output.ErrorResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatalf("decoding %q: %v", stdout, err)
	}
	if resp.Code != "MESSAGE_NOT_FOUND" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	os.WriteFile(filepath.Join(h.repo, "bad.json"), []byte("{ not json"), 0644)
	if _, _, err := h.run(t, "mark-read", "test_001", "--agent", "ATLAS"); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := h.run(t, "stats", "--agent", "ATLAS", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var st struct {
		Total      int            `json:"total"`
		Unread     int            `json:"unread"`
		Skipped    int            `json:"skipped"`
		BySender   map[string]int `json:"by_sender"`
		ByPriority map[string]int `json:"by_priority"`
	}
	if err := json.Unmarshal([]byte(stdout), &st); err != nil {
		t.Fatal(err)
	}
	if st.Total != 4 || st.Unread != 3 || st.Skipped != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.BySender["FORGE"] != 2 || st.ByPriority["CRITICAL"] != 1 {
		t.Errorf("breakdown = %+v", st)
	}

	stdout, _, err = h.run(t, "stats", "--agent", "ATLAS")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "By sender") || !strings.Contains(stdout, "1 malformed file") {
		t.Errorf("text stats:\n%s", stdout)
	}
}

func TestAgentRequired(t *testing.T) {
	h := newHarness(t)
	_, stderr, err := h.run(t, "unread")
	if err == nil {
		t.Fatal("expected error without an agent")
	}
	if !strings.Contains(stderr, "no agent identity configured") || !strings.Contains(stderr, "AGENT_REQUIRED") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRepositoryUnavailable(t *testing.T) {
	h := newHarness(t)
	h.repo = filepath.Join(h.repo, "missing")
	stdout, _, err := h.run(t, "unread", "--agent", "ATLAS", "--json")
	if err == nil {
		t.Fatal("expected error")
	}
	var resp output.ErrorResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "REPOSITORY_UNAVAILABLE" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestInvalidFormat(t *testing.T) {
	h := newHarness(t)
	_, stderr, err := h.run(t, "unread", "--agent", "ATLAS", "--format", "xml")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(stderr, "INVALID_ARGUMENT") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestInvalidSince(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := h.run(t, "search", "test", "--since", "soon", "--agent", "ATLAS", "--json")
	if err == nil {
		t.Fatal("expected error")
	}
	var resp output.ErrorResponse
	if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "INVALID_ARGUMENT" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestYAMLOutput(t *testing.T) {
	h := newHarness(t)
	stdout, _, err := h.run(t, "unread", "--agent", "ATLAS", "--format", "yaml", "--limit", "1")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"agent: ATLAS", "count: 1", "id: test_004", "priority: CRITICAL"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("yaml missing %q:\n%s", want, stdout)
		}
	}
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run(t, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != h.cfgPath {
		t.Errorf("config path = %q, want %q", stdout, h.cfgPath)
	}

	if _, _, err := h.run(t, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(h.cfgPath); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if _, _, err := h.run(t, "config", "init"); err == nil {
		t.Error("second config init should fail")
	}

	stdout, _, err = h.run(t, "config", "show", "--agent", "ATLAS", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var view configJSON
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		t.Fatal(err)
	}
	if view.SynapsePath != h.repo || view.StateDir != h.stateDir || view.Agent != "ATLAS" {
		t.Errorf("config show = %+v", view)
	}

	stdout, _, err = h.run(t, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "synapse_path = ") {
		t.Errorf("config show text:\n%s", stdout)
	}
}

func TestInvalidConfig(t *testing.T) {
	h := newHarness(t)
	os.WriteFile(h.cfgPath, []byte("synapse_path = [unterminated"), 0644)
	_, stderr, err := h.run(t, "unread", "--agent", "ATLAS")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(stderr, "CONFIG_INVALID") {
		t.Errorf("stderr = %q", stderr)
	}
}
