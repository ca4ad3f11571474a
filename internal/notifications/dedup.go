package notifications

import "sync"

// recentSet remembers the last N delivery keys so a redelivered event is
// not delivered twice to the same recipient and sink.
type recentSet struct {
	mu    sync.Mutex
	slots map[string]int
	order []string
	next  int
}

func newRecentSet(size int) *recentSet {
	if size < 1 {
		size = 1
	}
	return &recentSet{
		slots: make(map[string]int, size),
		order: make([]string, size),
	}
}

// claim records key and reports whether it was not already present.
func (s *recentSet) claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[key]; ok {
		return false
	}
	if old := s.order[s.next]; old != "" {
		delete(s.slots, old)
	}
	s.order[s.next] = key
	s.slots[key] = s.next
	s.next = (s.next + 1) % len(s.order)
	return true
}

// forget drops key and frees its slot so a later redelivery is attempted again.
func (s *recentSet) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot, ok := s.slots[key]; ok {
		s.order[slot] = ""
		delete(s.slots, key)
	}
}
