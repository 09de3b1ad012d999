package adapter

import (
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// Edge is one reference from an object to another.
type Edge struct {
	To          urn.Urn
	SchemaBound bool
}

// EdgeFunc returns the edges leaving u in the requested direction.
type EdgeFunc func(u urn.Urn) ([]Edge, error)

// BuildChain computes the transitive closure of urns over next and returns it
// as a flat chain. Every object appears once; Links hold the same pointers as
// the chain, and an object is schema bound when any edge reaching it is.
// Objects are listed breadth-first from the requested urns.
func BuildChain(urns []urn.Urn, next EdgeFunc) (core.DependencyChainCollection, error) {
	index := make(map[urn.Urn]*core.Dependency)
	var chain core.DependencyChainCollection
	var queue []*core.Dependency

	get := func(u urn.Urn) *core.Dependency {
		if d, ok := index[u]; ok {
			return d
		}
		d := &core.Dependency{Urn: u}
		index[u] = d
		chain = append(chain, d)
		queue = append(queue, d)
		return d
	}

	for _, u := range urns {
		get(u)
	}

	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]

		edges, err := next(d.Urn)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			target := get(e.To)
			if e.SchemaBound {
				target.IsSchemaBound = true
			}
			if _, dup := d.Links.Find(e.To); !dup {
				d.Links = append(d.Links, target)
			}
		}
	}

	return chain, nil
}

// ValidateDiscoverable rejects urns whose kind is not tracked for dependency
// discovery.
func ValidateDiscoverable(urns []urn.Urn) error {
	for _, u := range urns {
		if k := core.KindOf(u); !k.IsDependencyDiscoverable() {
			return &core.UnsupportedObjectTypeError{Urn: u, Kind: k}
		}
	}
	return nil
}
