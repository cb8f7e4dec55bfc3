package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const appDirName = "synapseinbox"

// ErrStateCorrupt identifies a state document that exists but cannot be
// parsed. Stores recover from it by treating the state as empty.
var ErrStateCorrupt = errors.New("state document corrupt")

// Store loads and saves agent state.
type Store interface {
	// Load returns the agent's state, or an empty state if none exists.
	Load(agent string) (*AgentState, error)
	// Save replaces the agent's state atomically.
	Save(agent string, st *AgentState) error
	// Update loads the latest state, applies fn and saves the result as one
	// step, returning the saved state.
	Update(agent string, fn func(*AgentState)) (*AgentState, error)
	// Clear resets the agent's state to empty and persists it.
	Clear(agent string) error
}

// DefaultDir returns the default directory for state documents.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share/synapseinbox.
func DefaultDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "." // fallback to current dir
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, appDirName)
}

// FileStore keeps one JSON document per agent in a directory.
type FileStore struct {
	dir    string
	logger *slog.Logger

	// serializes goroutines; the flock in acquireLock covers processes
	mu sync.Mutex
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger used for recovery warnings.
func WithLogger(l *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFileStore creates a store rooted at dir. An empty dir means DefaultDir.
func NewFileStore(dir string, opts ...FileStoreOption) *FileStore {
	if dir == "" {
		dir = DefaultDir()
	}
	s := &FileStore{
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the directory holding the state documents.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the document path for agent.
func (s *FileStore) Path(agent string) string {
	return filepath.Join(s.dir, fileName(agent))
}

// fileName maps an agent identity onto a safe file name.
func fileName(agent string) string {
	name := strings.ToLower(strings.TrimSpace(agent))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		name = "_"
	}
	return name + ".json"
}

// Load implements Store.
func (s *FileStore) Load(agent string) (*AgentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked(agent)
}

// loadLocked reads the document. A missing file is an empty state; a
// document that does not parse is logged and also treated as empty. Any
// other read failure is returned.
func (s *FileStore) loadLocked(agent string) (*AgentState, error) {
	path := s.Path(agent)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("no prior state", "agent", agent, "path", path)
			return New(), nil
		}
		return nil, fmt.Errorf("reading state for %s: %w", agent, err)
	}

	st := New()
	if err := json.Unmarshal(data, st); err != nil {
		s.logger.Warn("state document corrupt, starting from empty state",
			"agent", agent, "path", path, "error", fmt.Errorf("%w: %v", ErrStateCorrupt, err))
		return New(), nil
	}
	return st, nil
}

// Save implements Store.
func (s *FileStore) Save(agent string, st *AgentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := acquireLock(s.Path(agent) + ".lock")
	if err != nil {
		return fmt.Errorf("locking state for %s: %w", agent, err)
	}
	defer unlock()

	return s.saveLocked(agent, st)
}

// Update implements Store. The load-mutate-save sequence runs under an
// exclusive lock so concurrent invocations for the same agent do not lose
// each other's changes.
func (s *FileStore) Update(agent string, fn func(*AgentState)) (*AgentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := acquireLock(s.Path(agent) + ".lock")
	if err != nil {
		return nil, fmt.Errorf("locking state for %s: %w", agent, err)
	}
	defer unlock()

	st, err := s.loadLocked(agent)
	if err != nil {
		return nil, err
	}
	fn(st)
	if err := s.saveLocked(agent, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Clear implements Store.
func (s *FileStore) Clear(agent string) error {
	return s.Save(agent, New())
}

// saveLocked writes to a temp file in the same directory, fsyncs it and
// renames it over the target so readers never observe a partial document.
func (s *FileStore) saveLocked(agent string, st *AgentState) error {
	path := s.Path(agent)
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state for %s: %w", agent, err)
	}
	data = append(data, '\n')

	tmpFile, err := os.CreateTemp(s.dir, fileName(agent)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary state file: %w", err)
	}
	defer os.Remove(tmpFile.Name()) // clean up on error

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temporary state file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing temporary state file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temporary state file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), 0600); err != nil {
		return fmt.Errorf("setting state file mode: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}

	s.logger.Debug("saved state", "agent", agent, "path", path, "state", st.String())
	return nil
}

// MemStore keeps state in memory. It is safe for concurrent use.
type MemStore struct {
	mu     sync.Mutex
	states map[string]*AgentState
	saves  int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{states: make(map[string]*AgentState)}
}

// Load implements Store.
func (m *MemStore) Load(agent string) (*AgentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.states[agent]; ok {
		return st.Clone(), nil
	}
	return New(), nil
}

// Save implements Store.
func (m *MemStore) Save(agent string, st *AgentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[agent] = st.Clone()
	m.saves++
	return nil
}

// Update implements Store.
func (m *MemStore) Update(agent string, fn func(*AgentState)) (*AgentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := New()
	if cur, ok := m.states[agent]; ok {
		st = cur.Clone()
	}
	fn(st)
	m.states[agent] = st.Clone()
	m.saves++
	return st, nil
}

// Clear implements Store.
func (m *MemStore) Clear(agent string) error {
	return m.Save(agent, New())
}

// Delete forgets the agent entirely, as if its document were removed.
func (m *MemStore) Delete(agent string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, agent)
}

// Saves returns how many times state has been persisted.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saves
}
