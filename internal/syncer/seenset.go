package syncer

// SeenSet tracks message ids that have already been walked by the sync loop.
// Once an id is present it is never emitted again for the life of the loop.
//
// With a positive capacity the set evicts its oldest ids first, bounding
// memory for long-running deployments; capacity 0 grows without bound for
// the process lifetime. The set is not goroutine-safe; the owning Syncer
// serializes access.
type SeenSet struct {
	capacity int
	ids      map[string]struct{}
	order    []string
}

// NewSeenSet creates a SeenSet. A capacity of 0 means unbounded.
func NewSeenSet(capacity int) *SeenSet {
	if capacity < 0 {
		capacity = 0
	}
	return &SeenSet{
		capacity: capacity,
		ids:      make(map[string]struct{}),
	}
}

// Mark records id as seen and reports whether it was newly added. Marking an
// id that is already present returns false and changes nothing.
func (s *SeenSet) Mark(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	if s.capacity > 0 && len(s.order) > s.capacity {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.ids, evicted)
	}
	return true
}

// Contains reports whether id has been seen.
func (s *SeenSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of ids currently tracked.
func (s *SeenSet) Len() int {
	return len(s.ids)
}
