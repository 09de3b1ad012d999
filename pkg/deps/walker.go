package deps

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// DependencyCollectionNode is one entry of a linearised walk.
type DependencyCollectionNode struct {
	Urn           urn.Urn
	IsSchemaBound bool
	IsRootNode    bool
}

// ProgressReport describes one newly discovered object during a walk.
type ProgressReport struct {
	Current urn.Urn
	// Parent is the node the object was reached through; roots report themselves.
	Parent        urn.Urn
	IsSchemaBound bool
	// SubTotalCount is the 1-based position among the parent's links and
	// SubTotal the number of links.
	SubTotalCount int
	SubTotal      int
	// TotalCount is the number of objects discovered so far and Total the
	// number of objects expected, excluding filtered ones seen so far.
	TotalCount int
	Total      int
}

// WalkOptions customise a single walk.
type WalkOptions struct {
	// Filter excludes an object from the output and from the total count.
	// Objects reachable through it are still walked.
	Filter func(urn.Urn) bool

	// Progress is called once for each newly discovered, unfiltered object.
	Progress func(ProgressReport)
}

// WalkResult is the outcome of WalkDependencies.
type WalkResult struct {
	// Nodes lists every object after everything it links to.
	Nodes      []DependencyCollectionNode
	Discovered int
	Total      int
}

// Urns returns the urns of the walk in order.
func (r *WalkResult) Urns() []urn.Urn {
	out := make([]urn.Urn, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		out = append(out, n.Urn)
	}
	return out
}

// Walker discovers dependencies through a DependencyService and linearises
// them. A Walker holds no per-call state and may be reused concurrently as
// long as its collaborators allow it.
type Walker struct {
	Server  core.Server
	Service core.DependencyService
	Logger  *slog.Logger
}

// NewWalker creates a walker. If logger is nil, a discard logger is used.
func NewWalker(server core.Server, service core.DependencyService, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Walker{Server: server, Service: service, Logger: logger}
}

func (w *Walker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.Logger
}

// DiscoverDependencies resolves urns to their canonical form, checks they
// address the connected server and asks the dependency service for their
// chain in one call. ancestors selects what the urns depend on; otherwise
// what depends on them.
func (w *Walker) DiscoverDependencies(ctx context.Context, urns []urn.Urn, ancestors bool) (*DependencyTree, error) {
	if w.Server == nil {
		return nil, &PropertyNotSetError{Property: "Server"}
	}
	if w.Service == nil {
		return nil, &PropertyNotSetError{Property: "Service"}
	}
	if len(urns) == 0 {
		return nil, ErrEmptyInput
	}

	trueName := w.Server.Info().TrueName
	canonical := make([]urn.Urn, 0, len(urns))
	for _, u := range urns {
		obj, err := w.Server.GetObject(ctx, u)
		if err != nil {
			return nil, &UrnResolutionError{Urn: u, Err: err}
		}
		cu := obj.Urn()
		if !strings.EqualFold(cu.ServerName(), trueName) {
			return nil, &MismatchingServerError{Urn: cu, Expected: trueName, Actual: cu.ServerName()}
		}
		canonical = append(canonical, cu)
	}

	w.logger().Debug("discovering dependencies", "count", len(canonical), "ancestors", ancestors)

	chain, err := w.Service.DiscoverDependencies(ctx, canonical, ancestors)
	if err != nil {
		return nil, translateError("discover dependencies", err)
	}

	w.logger().Debug("dependency chain received", "objects", len(chain))

	return BuildTree(ctx, canonical, chain, ancestors, w.Server)
}

// DiscoverObjectDependencies is DiscoverDependencies for materialised objects.
func (w *Walker) DiscoverObjectDependencies(ctx context.Context, objects []core.Object, ancestors bool) (*DependencyTree, error) {
	urns := make([]urn.Urn, 0, len(objects))
	for _, obj := range objects {
		if obj != nil {
			urns = append(urns, obj.Urn())
		}
	}
	return w.DiscoverDependencies(ctx, urns, ancestors)
}

// translateError wraps a dependency service failure once; the cause stays
// reachable through errors.Is and errors.As.
func translateError(op string, err error) error {
	var fe *FailedOperationError
	if errors.As(err, &fe) {
		return err
	}
	return &FailedOperationError{Op: op, Err: err}
}

// walkState carries the bookkeeping of one WalkDependencies call.
type walkState struct {
	opts    WalkOptions
	roots   map[urn.Urn]bool
	visited map[urn.Urn]bool
	result  *WalkResult
}

// WalkDependencies linearises tree depth-first: every object is emitted after
// everything it links to and at most once.
func (w *Walker) WalkDependencies(tree *DependencyTree, opts WalkOptions) *WalkResult {
	result := &WalkResult{}
	if tree == nil {
		return result
	}
	result.Total = len(tree.AllDependencies())

	st := &walkState{
		opts:    opts,
		roots:   make(map[urn.Urn]bool, len(tree.Roots())),
		visited: make(map[urn.Urn]bool, result.Total),
		result:  result,
	}
	for _, r := range tree.Roots() {
		st.roots[r.Urn] = true
	}

	st.walk(&tree.DependencyTreeNode)

	w.logger().Debug("dependency walk complete", "emitted", len(result.Nodes), "total", result.Total)
	return result
}

func (st *walkState) walk(parent *DependencyTreeNode) {
	child := parent.FirstChild()
	subTotal := 0
	if child != nil {
		subTotal = child.NumberOfSiblings()
	}
	subTotalCount := 0

	for ; child != nil; child = child.NextSibling() {
		// Already visited siblings still advance the position counter.
		subTotalCount++

		cu := child.Urn()
		if st.visited[cu] {
			continue
		}
		st.visited[cu] = true

		isRoot := st.roots[cu]
		if st.opts.Filter != nil && st.opts.Filter(cu) {
			st.result.Total--
			if child.HasChildNodes() {
				st.walk(child)
			}
			continue
		}

		st.result.Discovered++
		if st.opts.Progress != nil {
			reportParent := parent.Urn()
			if isRoot {
				reportParent = cu
			}
			st.opts.Progress(ProgressReport{
				Current:       cu,
				Parent:        reportParent,
				IsSchemaBound: child.IsSchemaBound(),
				SubTotalCount: subTotalCount,
				SubTotal:      subTotal,
				TotalCount:    st.result.Discovered,
				Total:         st.result.Total,
			})
		}

		if child.HasChildNodes() {
			st.walk(child)
		}
		st.result.Nodes = append(st.result.Nodes, DependencyCollectionNode{
			Urn:           cu,
			IsSchemaBound: child.IsSchemaBound(),
			IsRootNode:    isRoot,
		})
	}
}
