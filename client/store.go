package client

import "sync"

// Store holds the ordered, deduplicated message sequence for one open
// conversation. Entries are appended or replaced wholesale, never
// re-sorted; soft deletion is represented in place on the record.
type Store struct {
	mu   sync.Mutex
	msgs []Message
	ids  map[string]struct{}
}

func NewStore() *Store {
	return &Store{ids: map[string]struct{}{}}
}

// Append inserts the candidate at the end only when no existing entry
// shares its identity. Returns whether the store changed.
func (s *Store) Append(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[m.ID]; dup {
		return false
	}
	s.ids[m.ID] = struct{}{}
	s.msgs = append(s.msgs, m)
	return true
}

// ReplaceAll adopts the server snapshot wholesale when it is strictly
// longer than the store or its final identity differs from the store's
// final identity; otherwise the store is left untouched. Re-fetching an
// unchanged list is a no-op; any detected divergence favors server truth.
func (s *Store) ReplaceAll(snapshot []Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(snapshot) <= len(s.msgs) {
		sameTail := len(snapshot) == 0 && len(s.msgs) == 0
		if len(snapshot) > 0 && len(s.msgs) > 0 &&
			snapshot[len(snapshot)-1].ID == s.msgs[len(s.msgs)-1].ID {
			sameTail = true
		}
		if sameTail {
			return false
		}
	}

	msgs := make([]Message, 0, len(snapshot))
	ids := make(map[string]struct{}, len(snapshot))
	for _, m := range snapshot {
		if _, dup := ids[m.ID]; dup {
			continue
		}
		ids[m.ID] = struct{}{}
		msgs = append(msgs, m)
	}
	s.msgs = msgs
	s.ids = ids
	return true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// Last returns the newest entry, if any.
func (s *Store) Last() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return Message{}, false
	}
	return s.msgs[len(s.msgs)-1], true
}

// Messages returns a copy of the current sequence.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}
