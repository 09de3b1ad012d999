package urn

// Set is an insertion-ordered set of urns. The zero value is ready to use.
type Set struct {
	index map[Urn]int
	items []Urn
}

// NewSet returns a set seeded with urns.
func NewSet(urns ...Urn) *Set {
	s := &Set{}
	s.AddAll(urns...)
	return s
}

// Add inserts u and reports whether it was not already present.
func (s *Set) Add(u Urn) bool {
	if s.index == nil {
		s.index = make(map[Urn]int)
	}
	if _, ok := s.index[u]; ok {
		return false
	}
	s.index[u] = len(s.items)
	s.items = append(s.items, u)
	return true
}

// AddAll inserts every urn.
func (s *Set) AddAll(urns ...Urn) {
	for _, u := range urns {
		s.Add(u)
	}
}

// Contains reports whether u is in the set.
func (s *Set) Contains(u Urn) bool {
	_, ok := s.index[u]
	return ok
}

// Len returns the number of urns.
func (s *Set) Len() int {
	return len(s.items)
}

// Slice returns the urns in insertion order.
func (s *Set) Slice() []Urn {
	out := make([]Urn, len(s.items))
	copy(out, s.items)
	return out
}
