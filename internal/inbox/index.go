// Package inbox builds a per-agent view over the shared message
// repository: a sorted catalog annotated with the agent's read and
// archived state, plus filtering, search, statistics and mutations.
package inbox

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/theirongolddev/synapseinbox/internal/message"
	"github.com/theirongolddev/synapseinbox/internal/state"
)

// Entry is a catalog message together with the agent's view of it.
type Entry struct {
	message.Message `yaml:",inline"`

	Read     bool `json:"read" yaml:"read"`
	Archived bool `json:"archived" yaml:"archived"`
}

// Index is one agent's inbox session. The catalog is a snapshot taken at
// construction (or Reload); mutations change state, never the catalog.
//
// An Index is not safe for concurrent use.
type Index struct {
	agent      string
	broadcast  string
	reader     *message.Reader
	store      state.Store
	logger     *slog.Logger
	readerOpts []message.ReaderOption

	catalog []message.Message
	byID    map[string]int
	state   *state.AgentState
	skipped []*message.SkipError
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger for the index and its repository reader.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// WithBroadcast overrides the broadcast recipient token.
func WithBroadcast(token string) Option {
	return func(ix *Index) {
		ix.broadcast = token
	}
}

// WithExtensions restricts which record file extensions are loaded.
func WithExtensions(exts ...string) Option {
	return func(ix *Index) {
		ix.readerOpts = append(ix.readerOpts, message.WithExtensions(exts...))
	}
}

// New loads the repository at repoPath and the agent's state from store.
// It fails if the repository directory is inaccessible or the state cannot
// be read; malformed records are skipped and reported by Skipped.
func New(agent, repoPath string, store state.Store, opts ...Option) (*Index, error) {
	agent = message.NormalizeAgent(agent)
	if agent == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if store == nil {
		return nil, fmt.Errorf("state store is required")
	}

	ix := &Index{
		agent:     agent,
		broadcast: message.Broadcast,
		store:     store,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(ix)
	}
	ix.logger = ix.logger.With("agent", agent)
	ix.reader = message.NewReader(repoPath, append(ix.readerOpts, message.WithLogger(ix.logger))...)

	if err := ix.Reload(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Reload rebuilds the catalog from the repository and re-reads state.
// On error the previous catalog and state are kept.
func (ix *Index) Reload() error {
	result, err := ix.reader.Load()
	if err != nil {
		return err
	}
	st, err := ix.store.Load(ix.agent)
	if err != nil {
		return err
	}

	ix.catalog, ix.byID = buildCatalog(result.Messages)
	ix.skipped = result.Skipped
	ix.state = st
	ix.logger.Debug("inbox loaded", "messages", len(ix.catalog), "skipped", len(ix.skipped), "state", st.String())
	return nil
}

// buildCatalog dedupes by id (later records win) and sorts newest first,
// breaking timestamp ties by ascending id.
func buildCatalog(msgs []message.Message) ([]message.Message, map[string]int) {
	latest := make(map[string]message.Message, len(msgs))
	for _, m := range msgs {
		latest[m.ID] = m
	}

	catalog := make([]message.Message, 0, len(latest))
	for _, m := range latest {
		catalog = append(catalog, m)
	}
	sort.Slice(catalog, func(i, j int) bool {
		a, b := catalog[i], catalog[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID < b.ID
	})

	byID := make(map[string]int, len(catalog))
	for i, m := range catalog {
		byID[m.ID] = i
	}
	return catalog, byID
}

// Agent returns the normalized agent identity.
func (ix *Index) Agent() string {
	return ix.agent
}

// Broadcast returns the broadcast recipient token in use.
func (ix *Index) Broadcast() string {
	return ix.broadcast
}

// RepositoryPath returns the repository directory.
func (ix *Index) RepositoryPath() string {
	return ix.reader.Dir()
}

// Skipped returns the records skipped by the last load.
func (ix *Index) Skipped() []*message.SkipError {
	return ix.skipped
}

// State returns a copy of the agent's current state.
func (ix *Index) State() *state.AgentState {
	return ix.state.Clone()
}

// Len returns the number of catalog messages, archived included.
func (ix *Index) Len() int {
	return len(ix.catalog)
}

// Entries returns the whole catalog, archived included, in catalog order.
func (ix *Index) Entries() []Entry {
	entries := make([]Entry, len(ix.catalog))
	for i, m := range ix.catalog {
		entries[i] = ix.entry(m)
	}
	return entries
}

func (ix *Index) entry(m message.Message) Entry {
	return Entry{
		Message:  m,
		Read:     ix.state.IsRead(m.ID),
		Archived: ix.state.IsArchived(m.ID),
	}
}

// Get returns the entry with the given id.
func (ix *Index) Get(id string) (Entry, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return Entry{}, false
	}
	return ix.entry(ix.catalog[i]), true
}

// Unread returns unread, non-archived entries in catalog order.
func (ix *Index) Unread() []Entry {
	return ix.Filter(Criteria{UnreadOnly: true})
}

// UnreadCount returns len(Unread()).
func (ix *Index) UnreadCount() int {
	return len(ix.Unread())
}

// Filter applies c to the catalog.
func (ix *Index) Filter(c Criteria) []Entry {
	if c.Broadcast == "" {
		c.Broadcast = ix.broadcast
	}
	return Filter(ix.Entries(), c)
}

// Search applies q to the catalog.
func (ix *Index) Search(q Query) []Entry {
	if q.Broadcast == "" {
		q.Broadcast = ix.broadcast
	}
	return Search(ix.Entries(), q)
}

// Stats summarizes the catalog.
func (ix *Index) Stats() Stats {
	s := Aggregate(ix.Entries())
	s.Skipped = len(ix.skipped)
	return s
}

// MarkRead marks id read and persists. Unknown ids are accepted.
func (ix *Index) MarkRead(id string) error {
	return ix.update("mark read", id, func(st *state.AgentState) { st.MarkRead(id) })
}

// MarkUnread removes id from the read set and persists.
func (ix *Index) MarkUnread(id string) error {
	return ix.update("mark unread", id, func(st *state.AgentState) { st.MarkUnread(id) })
}

// MarkAllRead marks every catalog message read (archived included) and
// persists once.
func (ix *Index) MarkAllRead() error {
	ids := make([]string, len(ix.catalog))
	for i, m := range ix.catalog {
		ids[i] = m.ID
	}
	return ix.update("mark all read", "", func(st *state.AgentState) {
		for _, id := range ids {
			st.MarkRead(id)
		}
	})
}

// Archive hides id from default views and persists.
func (ix *Index) Archive(id string) error {
	return ix.update("archive", id, func(st *state.AgentState) { st.Archive(id) })
}

// Unarchive restores id to default views and persists.
func (ix *Index) Unarchive(id string) error {
	return ix.update("unarchive", id, func(st *state.AgentState) { st.Unarchive(id) })
}

// ClearState resets the agent's state to empty and persists.
func (ix *Index) ClearState() error {
	if err := ix.store.Clear(ix.agent); err != nil {
		return fmt.Errorf("clearing state: %w", err)
	}
	ix.state = state.New()
	return nil
}

// update persists one mutation through the store and adopts the saved state.
func (ix *Index) update(action, id string, fn func(*state.AgentState)) error {
	if id != "" {
		if _, ok := ix.byID[id]; !ok {
			ix.logger.Debug("mutation target not in catalog", "action", action, "id", id)
		}
	}
	st, err := ix.store.Update(ix.agent, fn)
	if err != nil {
		return fmt.Errorf("%s: saving state: %w", action, err)
	}
	ix.state = st
	return nil
}
