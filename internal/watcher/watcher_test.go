package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type collector struct {
	mu      sync.Mutex
	batches [][]Change
	notify  chan struct{}
}

func newCollector() *collector {
	return &collector{notify: make(chan struct{}, 16)}
}

func (c *collector) handle(changes []Change) {
	c.mu.Lock()
	c.batches = append(c.batches, changes)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *collector) wait(t *testing.T) []Change {
	t.Helper()
	select {
	case <-c.notify:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for changes")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches[len(c.batches)-1]
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	// Rename into place so a poll never sees a half-written file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename %s: %v", path, err)
	}
}

func TestNewRequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(filepath.Join(dir, "missing"), nil); err == nil {
		t.Error("expected error for missing directory")
	}

	file := filepath.Join(dir, "f.json")
	writeFile(t, file, "{}")
	if _, err := New(file, nil); err == nil {
		t.Error("expected error for a regular file")
	}
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{0, "none"},
		{Create, "create"},
		{Create | Write, "create|write"},
		{Remove, "remove"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestRelevant(t *testing.T) {
	w := &Watcher{}
	WithExtensions(".json", ".YAML")(w)

	tests := []struct {
		name string
		want bool
	}{
		{"msg.json", true},
		{"msg.yaml", true},
		{"MSG.JSON", true},
		{"notes.txt", false},
		{".hidden.json", false},
		{"msg.json~", false},
		{"state.json.tmp", false},
	}
	for _, tt := range tests {
		if got := w.relevant(filepath.Join("/repo", tt.name)); got != tt.want {
			t.Errorf("relevant(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPollingDetectsChanges(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.json")
	writeFile(t, existing, `{"id":"old"}`)

	c := newCollector()
	w, err := New(dir, c.handle,
		WithPolling(true),
		WithPollInterval(20*time.Millisecond),
		WithDebounce(40*time.Millisecond),
		WithExtensions(".json"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if !w.Polling() {
		t.Fatal("expected polling mode")
	}

	created := filepath.Join(dir, "new.json")
	writeFile(t, created, `{"id":"new"}`)
	writeFile(t, filepath.Join(dir, "ignored.txt"), "x")

	changes := c.wait(t)
	if len(changes) != 1 || changes[0].Path != created || changes[0].Op&Create == 0 {
		t.Fatalf("unexpected changes %+v", changes)
	}

	if err := os.Remove(existing); err != nil {
		t.Fatal(err)
	}
	changes = c.wait(t)
	if len(changes) != 1 || changes[0].Path != existing || changes[0].Op != Remove {
		t.Fatalf("expected remove of %s, got %+v", existing, changes)
	}
}

func TestPollingCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	c := newCollector()
	w, err := New(dir, c.handle,
		WithPolling(true),
		WithPollInterval(10*time.Millisecond),
		WithDebounce(150*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	for _, name := range []string{"b.json", "a.json", "c.yaml"} {
		writeFile(t, filepath.Join(dir, name), "{}")
		time.Sleep(15 * time.Millisecond)
	}

	changes := c.wait(t)
	if len(changes) != 3 {
		t.Fatalf("expected one batch of 3 changes, got %+v", changes)
	}
	for i := 1; i < len(changes); i++ {
		if changes[i-1].Path >= changes[i].Path {
			t.Errorf("changes not sorted by path: %+v", changes)
		}
	}
}

func TestFsnotifyDetectsWrite(t *testing.T) {
	dir := t.TempDir()
	c := newCollector()
	w, err := New(dir, c.handle, WithDebounce(30*time.Millisecond), WithExtensions(".json"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	if w.Polling() {
		t.Skip("fsnotify unavailable in this environment")
	}

	path := filepath.Join(dir, "m1.json")
	writeFile(t, path, `{"id":"m1"}`)

	changes := c.wait(t)
	if len(changes) == 0 || changes[0].Path != path {
		t.Fatalf("unexpected changes %+v", changes)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	c := newCollector()
	w, err := New(dir, c.handle, WithPolling(true), WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	writeFile(t, filepath.Join(dir, "late.json"), "{}")
	time.Sleep(100 * time.Millisecond)
	if n := c.count(); n != 0 {
		t.Errorf("handler called %d times after close", n)
	}

	// Close is idempotent.
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
