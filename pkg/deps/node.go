// Package deps linearises reference dependencies between server objects.
//
// A DependencyService returns dependency data as a flat chain in which every
// object carries its own link list. DependencyTreeNode is a first-child /
// next-sibling view over those link lists: a node is only an index into a
// sibling collection, and navigation is recomputed on every access, so no
// pointer tree is ever materialised. Walker turns a DependencyTree into a
// script order in which nothing precedes what it depends on.
package deps

import (
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// DependencyTreeNode is a positional view of one dependency within its
// sibling collection. Nodes do not own the collection.
type DependencyTreeNode struct {
	index    int
	siblings core.DependencyChainCollection
}

func newNode(index int, siblings core.DependencyChainCollection) *DependencyTreeNode {
	return &DependencyTreeNode{index: index, siblings: siblings}
}

func (n *DependencyTreeNode) dependency() *core.Dependency {
	return n.siblings[n.index]
}

// Urn returns the identifier of the object at this position.
func (n *DependencyTreeNode) Urn() urn.Urn {
	return n.dependency().Urn
}

// IsSchemaBound reports whether the link to this object is schema bound.
func (n *DependencyTreeNode) IsSchemaBound() bool {
	return n.dependency().IsSchemaBound
}

// HasChildNodes reports whether the object has any links.
func (n *DependencyTreeNode) HasChildNodes() bool {
	return len(n.dependency().Links) > 0
}

// FirstChild returns a node for the first link, or nil.
func (n *DependencyTreeNode) FirstChild() *DependencyTreeNode {
	links := n.dependency().Links
	if len(links) == 0 {
		return nil
	}
	return newNode(0, links)
}

// NextSibling returns a node for the next entry in the sibling collection, or nil.
func (n *DependencyTreeNode) NextSibling() *DependencyTreeNode {
	if n.index+1 >= len(n.siblings) {
		return nil
	}
	return newNode(n.index+1, n.siblings)
}

// NumberOfSiblings returns the size of the sibling collection, this node included.
func (n *DependencyTreeNode) NumberOfSiblings() int {
	return len(n.siblings)
}
