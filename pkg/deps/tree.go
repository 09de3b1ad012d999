package deps

import (
	"context"
	"sort"

	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// DependencyTree is the root of a discovered dependency graph. It is itself a
// node over one synthetic, schema-bound dependency whose links are the
// requested objects, so FirstChild yields the roots.
type DependencyTree struct {
	DependencyTreeNode

	all       core.DependencyChainCollection
	ancestors bool
}

// BuildTree wraps a chain returned by a dependency service. urns are the
// objects originally requested. A urn missing from the chain is skipped when
// its live object is a system object and fails otherwise.
func BuildTree(ctx context.Context, urns []urn.Urn, chain core.DependencyChainCollection, ancestors bool, server core.Server) (*DependencyTree, error) {
	if len(urns) == 0 {
		return nil, ErrEmptyInput
	}
	if server == nil {
		return nil, &PropertyNotSetError{Property: "Server"}
	}

	sorted := make(core.DependencyChainCollection, len(chain))
	copy(sorted, chain)
	sort.SliceStable(sorted, func(i, j int) bool {
		return core.CompareDependencies(server.CompareUrns, sorted[i], sorted[j]) < 0
	})
	lookup := dependencyLookup{sorted: sorted, compare: server.CompareUrns}

	var roots core.DependencyChainCollection
	picked := make(map[*core.Dependency]bool)
	for _, u := range urns {
		dep, ok := lookup.find(u)
		if !ok {
			obj, err := server.GetObject(ctx, u)
			if err != nil {
				return nil, &UrnResolutionError{Urn: u, Err: err}
			}
			if obj.IsSystemObject() {
				// The server does not track dependencies of system objects.
				continue
			}
			return nil, &MissingDependencyError{Urn: u}
		}
		if picked[dep] {
			continue
		}
		picked[dep] = true
		roots = append(roots, dep)
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return server.CompareUrns(roots[i].Urn, roots[j].Urn) < 0
	})

	top := &core.Dependency{IsSchemaBound: true, Links: roots}
	return &DependencyTree{
		DependencyTreeNode: DependencyTreeNode{index: 0, siblings: core.DependencyChainCollection{top}},
		all:                chain,
		ancestors:          ancestors,
	}, nil
}

// AllDependencies returns every object touched by the discovery call.
func (t *DependencyTree) AllDependencies() core.DependencyChainCollection {
	return t.all
}

// Roots returns the requested objects in comparer order.
func (t *DependencyTree) Roots() core.DependencyChainCollection {
	return t.top().Links
}

// DependsOnParents reports whether the tree was discovered towards ancestors.
func (t *DependencyTree) DependsOnParents() bool {
	return t.ancestors
}

// Remove deletes the object at node from AllDependencies, from every link
// list and from Roots. Nodes created before the call keep their old view.
func (t *DependencyTree) Remove(node *DependencyTreeNode) {
	if node == nil {
		return
	}
	dep := node.dependency()
	if dep == t.top() {
		return
	}
	target := dep.Urn

	t.all = withoutUrn(t.all, target)
	for _, d := range t.all {
		d.Links = withoutUrn(d.Links, target)
	}
	top := t.top()
	top.Links = withoutUrn(top.Links, target)
}

// Prune removes the object at node like Remove, then drops from
// AllDependencies every object no longer reachable from Roots.
func (t *DependencyTree) Prune(node *DependencyTreeNode) {
	if node == nil || node.dependency() == t.top() {
		return
	}
	t.Remove(node)

	reachable := make(map[*core.Dependency]bool)
	var mark func(c core.DependencyChainCollection)
	mark = func(c core.DependencyChainCollection) {
		for _, d := range c {
			if d == nil || reachable[d] {
				continue
			}
			reachable[d] = true
			mark(d.Links)
		}
	}
	mark(t.Roots())

	kept := make(core.DependencyChainCollection, 0, len(reachable))
	for _, d := range t.all {
		if d == nil || reachable[d] {
			kept = append(kept, d)
		}
	}
	t.all = kept
}

// Find returns the first node, in depth-first order below the roots, whose
// urn equals u, or nil.
func (t *DependencyTree) Find(u urn.Urn) *DependencyTreeNode {
	seen := make(map[*core.Dependency]bool)
	var search func(n *DependencyTreeNode) *DependencyTreeNode
	search = func(n *DependencyTreeNode) *DependencyTreeNode {
		for ; n != nil; n = n.NextSibling() {
			dep := n.dependency()
			if dep == nil || seen[dep] {
				continue
			}
			seen[dep] = true
			if dep.Urn.Equal(u) {
				return n
			}
			if found := search(n.FirstChild()); found != nil {
				return found
			}
		}
		return nil
	}
	return search(t.FirstChild())
}

func (t *DependencyTree) top() *core.Dependency {
	return t.siblings[0]
}

func withoutUrn(c core.DependencyChainCollection, u urn.Urn) core.DependencyChainCollection {
	out := make(core.DependencyChainCollection, 0, len(c))
	for _, d := range c {
		if d != nil && d.Urn.Equal(u) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// dependencyLookup is a sorted, comparer-keyed view of a chain.
type dependencyLookup struct {
	sorted  core.DependencyChainCollection
	compare func(a, b urn.Urn) int
}

func (l dependencyLookup) find(u urn.Urn) (*core.Dependency, bool) {
	i := sort.Search(len(l.sorted), func(i int) bool {
		return core.CompareDependencies(l.compare, l.sorted[i], &core.Dependency{Urn: u}) >= 0
	})
	if i < len(l.sorted) && l.sorted[i] != nil && l.compare(l.sorted[i].Urn, u) == 0 {
		return l.sorted[i], true
	}
	return nil, false
}
