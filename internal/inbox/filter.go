package inbox

import (
	"strings"
	"time"

	"github.com/theirongolddev/synapseinbox/internal/message"
)

// Criteria is a conjunction of optional predicates. Zero-valued fields are
// not applied, so the zero Criteria selects every non-archived entry.
type Criteria struct {
	From            string // sender, case-insensitive
	To              string // recipient, matched directly or via Broadcast
	Priority        string // priority name, case-insensitive
	UnreadOnly      bool
	IncludeArchived bool
	Since           time.Time // only messages at or after this instant
	// Broadcast is the token that addresses every agent. Empty means
	// message.Broadcast.
	Broadcast string
	// Limit caps the number of results; zero means no limit.
	Limit int
}

// Query is a case-insensitive substring search, optionally narrowed by
// Criteria. Results keep catalog order; there is no relevance ranking.
type Query struct {
	Text        string
	SubjectOnly bool
	Criteria
}

// predicate evaluates the non-text parts of Criteria against one entry.
type predicate struct {
	from      string
	to        string
	broadcast string
	priority  message.Priority
	byPrio    bool
	unread    bool
	archived  bool
	since     time.Time
}

// compile resolves c once per call. ok is false when the criteria can
// never match, e.g. an unrecognized priority name.
func compile(c Criteria) (p predicate, ok bool) {
	p = predicate{
		from:      strings.TrimSpace(c.From),
		to:        strings.TrimSpace(c.To),
		broadcast: c.Broadcast,
		unread:    c.UnreadOnly,
		archived:  c.IncludeArchived,
		since:     c.Since,
	}
	if p.broadcast == "" {
		p.broadcast = message.Broadcast
	}
	if strings.TrimSpace(c.Priority) != "" {
		prio, known := message.ParsePriority(c.Priority)
		if !known {
			return p, false
		}
		p.priority = prio
		p.byPrio = true
	}
	return p, true
}

// match checks the cheap equality predicates before recipient scanning.
func (p predicate) match(e Entry) bool {
	if !p.archived && e.Archived {
		return false
	}
	if p.unread && e.Read {
		return false
	}
	if p.byPrio && e.Priority != p.priority {
		return false
	}
	if !p.since.IsZero() && e.Timestamp.Before(p.since) {
		return false
	}
	if p.from != "" && !e.SentFrom(p.from) {
		return false
	}
	if p.to != "" && !e.SentTo(p.to, p.broadcast) {
		return false
	}
	return true
}

// Filter returns the entries satisfying every predicate in c, in input
// order. The input slice is not modified.
func Filter(entries []Entry, c Criteria) []Entry {
	p, ok := compile(c)
	if !ok {
		return []Entry{}
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !p.match(e) {
			continue
		}
		out = append(out, e)
		if c.Limit > 0 && len(out) >= c.Limit {
			break
		}
	}
	return out
}

// Search returns entries whose subject, or body text unless SubjectOnly,
// contains q.Text ignoring case. An empty text matches everything the
// criteria allow.
func Search(entries []Entry, q Query) []Entry {
	p, ok := compile(q.Criteria)
	if !ok {
		return []Entry{}
	}
	needle := strings.ToLower(q.Text)

	out := make([]Entry, 0)
	for _, e := range entries {
		if !p.match(e) {
			continue
		}
		if !containsFold(e.Subject, needle) && (q.SubjectOnly || !containsFold(e.Body.SearchText(), needle)) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}

// IDs returns the ids of entries in order.
func IDs(entries []Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func containsFold(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}
