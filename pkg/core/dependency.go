package core

import "github.com/leapstack-labs/schemadeps/pkg/urn"

// Dependency is one object's position in a dependency graph returned by a
// DependencyService. Links holds the objects this object depends on (or is
// depended on by, depending on the discovery direction). Links entries are
// the same pointers that appear in the flat chain collection.
type Dependency struct {
	Urn           urn.Urn
	IsSchemaBound bool
	Links         DependencyChainCollection
}

// DependencyChainCollection is the ordered, flat result of one discovery
// call: the requested objects plus everything transitively reached.
type DependencyChainCollection []*Dependency

// Find returns the first dependency whose urn equals u.
func (c DependencyChainCollection) Find(u urn.Urn) (*Dependency, bool) {
	for _, d := range c {
		if d != nil && d.Urn.Equal(u) {
			return d, true
		}
	}
	return nil, false
}

// Without returns a copy of c with every entry pointing at dep removed.
func (c DependencyChainCollection) Without(dep *Dependency) DependencyChainCollection {
	out := make(DependencyChainCollection, 0, len(c))
	for _, d := range c {
		if d != dep {
			out = append(out, d)
		}
	}
	return out
}

// CompareDependencies orders dependencies by urn with cmp; nil entries sort last.
func CompareDependencies(cmp func(a, b urn.Urn) int, a, b *Dependency) int {
	var au, bu *urn.Urn
	if a != nil {
		au = &a.Urn
	}
	if b != nil {
		bu = &b.Urn
	}
	return urn.CompareNullable(cmp, au, bu)
}
