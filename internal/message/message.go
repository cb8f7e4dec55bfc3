// Package message defines Synapse message records and reads them from the
// shared repository directory.
package message

import (
	"fmt"
	"strings"
	"time"
)

// Broadcast is the recipient token meaning "all agents".
const Broadcast = "ALL_AGENTS"

// Message is a single record loaded from the repository. Messages are never
// modified after loading; read and archived status live in the agent state.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	From      string    `json:"from" yaml:"from"`
	To        []string  `json:"to" yaml:"to"`
	Subject   string    `json:"subject" yaml:"subject"`
	Body      Body      `json:"body" yaml:"body"`
	Priority  Priority  `json:"priority" yaml:"priority"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"` // File the record was read from
}

// String renders the message as "FROM -> TO1, TO2: Subject [PRIORITY]".
func (m Message) String() string {
	return fmt.Sprintf("%s -> %s: %s [%s]", m.From, strings.Join(m.To, ", "), m.Subject, m.Priority)
}

// SentTo reports whether agent is a recipient, either by name or through
// the broadcast token. Comparison ignores case.
func (m Message) SentTo(agent, broadcast string) bool {
	for _, r := range m.To {
		if strings.EqualFold(r, agent) {
			return true
		}
		if broadcast != "" && strings.EqualFold(r, broadcast) {
			return true
		}
	}
	return false
}

// SentFrom reports whether agent sent the message, ignoring case.
func (m Message) SentFrom(agent string) bool {
	return strings.EqualFold(m.From, agent)
}

// NormalizeAgent returns the canonical form of an agent identity.
func NormalizeAgent(agent string) string {
	return strings.ToUpper(strings.TrimSpace(agent))
}

// timestampLayouts are tried in order when parsing record timestamps.
// Layouts without a zone are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp in any of the forms producers
// are known to write.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
