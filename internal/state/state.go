// Package state persists per-agent inbox state: which messages an agent
// has read and which it has archived.
package state

import (
	"encoding/json"
	"fmt"
	"sort"
)

// AgentState is the set of read and archived message ids for one agent.
// Only membership matters; ids need not exist in the repository.
type AgentState struct {
	read     map[string]struct{}
	archived map[string]struct{}
}

// New returns an empty state.
func New() *AgentState {
	return &AgentState{
		read:     make(map[string]struct{}),
		archived: make(map[string]struct{}),
	}
}

// IsRead reports whether id is in the read set.
func (s *AgentState) IsRead(id string) bool {
	_, ok := s.read[id]
	return ok
}

// IsArchived reports whether id is in the archived set.
func (s *AgentState) IsArchived(id string) bool {
	_, ok := s.archived[id]
	return ok
}

// MarkRead adds id to the read set.
func (s *AgentState) MarkRead(id string) {
	s.read[id] = struct{}{}
}

// MarkUnread removes id from the read set.
func (s *AgentState) MarkUnread(id string) {
	delete(s.read, id)
}

// Archive adds id to the archived set.
func (s *AgentState) Archive(id string) {
	s.archived[id] = struct{}{}
}

// Unarchive removes id from the archived set.
func (s *AgentState) Unarchive(id string) {
	delete(s.archived, id)
}

// ReadIDs returns the read set, sorted.
func (s *AgentState) ReadIDs() []string {
	return sortedKeys(s.read)
}

// ArchivedIDs returns the archived set, sorted.
func (s *AgentState) ArchivedIDs() []string {
	return sortedKeys(s.archived)
}

// Empty reports whether both sets are empty.
func (s *AgentState) Empty() bool {
	return len(s.read) == 0 && len(s.archived) == 0
}

// Clone returns an independent copy.
func (s *AgentState) Clone() *AgentState {
	c := New()
	for id := range s.read {
		c.read[id] = struct{}{}
	}
	for id := range s.archived {
		c.archived[id] = struct{}{}
	}
	return c
}

// Equal reports whether two states have identical membership.
func (s *AgentState) Equal(o *AgentState) bool {
	return setEqual(s.read, o.read) && setEqual(s.archived, o.archived)
}

// document is the on-disk form. Order within the lists is not significant.
type document struct {
	ReadMessages []string `json:"read_messages"`
	Archived     []string `json:"archived"`
}

// MarshalJSON writes the state document with sorted id lists.
func (s *AgentState) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{
		ReadMessages: s.ReadIDs(),
		Archived:     s.ArchivedIDs(),
	})
}

// UnmarshalJSON reads a state document. Missing or null fields are empty.
func (s *AgentState) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	fresh := New()
	for _, id := range doc.ReadMessages {
		fresh.read[id] = struct{}{}
	}
	for _, id := range doc.Archived {
		fresh.archived[id] = struct{}{}
	}
	*s = *fresh
	return nil
}

// String summarizes the state for logs.
func (s *AgentState) String() string {
	return fmt.Sprintf("read=%d archived=%d", len(s.read), len(s.archived))
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
