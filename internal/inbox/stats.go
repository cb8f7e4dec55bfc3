package inbox

import "github.com/theirongolddev/synapseinbox/internal/message"

// Stats summarizes a catalog. Counts by sender, priority and recipient
// cover every entry, archived included; keys exist only for observed values.
type Stats struct {
	Total       int            `json:"total" yaml:"total"`
	Unread      int            `json:"unread" yaml:"unread"`
	Archived    int            `json:"archived" yaml:"archived"`
	Skipped     int            `json:"skipped" yaml:"skipped"`
	BySender    map[string]int `json:"by_sender" yaml:"by_sender"`
	ByPriority  map[string]int `json:"by_priority" yaml:"by_priority"`
	ByRecipient map[string]int `json:"by_recipient" yaml:"by_recipient"`
}

// Aggregate reduces entries into Stats. Sender and recipient keys are
// normalized agent names, and a message listing the same recipient twice
// counts once for that recipient.
func Aggregate(entries []Entry) Stats {
	s := Stats{
		Total:       len(entries),
		BySender:    make(map[string]int),
		ByPriority:  make(map[string]int),
		ByRecipient: make(map[string]int),
	}

	for _, e := range entries {
		if e.Archived {
			s.Archived++
		} else if !e.Read {
			s.Unread++
		}
		s.BySender[message.NormalizeAgent(e.From)]++
		s.ByPriority[e.Priority.String()]++

		seen := make(map[string]bool, len(e.To))
		for _, r := range e.To {
			r = message.NormalizeAgent(r)
			if seen[r] {
				continue
			}
			seen[r] = true
			s.ByRecipient[r]++
		}
	}
	return s
}
