// Package discovery merges reference dependencies and structural children
// into the full set of objects a script must cover.
//
// A Discoverer runs up to three passes over the requested urns:
//
//  1. Reference discovery through a deps.Walker, in the direction selected
//     by the script behavior.
//  2. Structural child expansion (columns, indexes, constraints) through
//     each object's propagate info, for behaviors that create objects.
//  3. Otherwise, an optional bulk prefetch of the discovered set.
//
// The result is a set; per-parent child order is exposed through
// Options.OnChildrenDiscovered.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/deps"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// Options configure a Discoverer.
type Options struct {
	// DependentObjects enables reference discovery.
	DependentObjects bool
	// SfcChildren enables structural child expansion.
	SfcChildren bool
	// IgnoreDependencyError drops urns whose kind the dependency service does
	// not track instead of failing the call.
	IgnoreDependencyError bool

	Behavior core.Behavior

	// FilteredKinds are never collected as children, nor expanded.
	FilteredKinds core.KindSet

	// OnChildrenDiscovered receives, per expanded parent, its collected
	// children in discovery order.
	OnChildrenDiscovered func(parent urn.Urn, children []urn.Urn)

	// Filter and Progress are passed to the dependency walk.
	Filter   func(urn.Urn) bool
	Progress func(deps.ProgressReport)
}

// Discoverer computes the objects a script must cover.
type Discoverer struct {
	Server core.Server
	Walker *deps.Walker
	Cache  *ObjectCache
	// Prefetch is optional.
	Prefetch core.Prefetcher
	Logger   *slog.Logger
	Options  Options
}

// New creates a discoverer over one backend with a fresh object cache.
func New(backend core.Backend, opts Options, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Discoverer{
		Server:   backend,
		Walker:   deps.NewWalker(backend, backend, logger),
		Cache:    NewObjectCache(),
		Prefetch: backend,
		Logger:   logger,
		Options:  opts,
	}
}

func (d *Discoverer) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// Discover returns urns together with every object they pull in.
func (d *Discoverer) Discover(ctx context.Context, urns []urn.Urn) (*urn.Set, error) {
	discovered := urn.NewSet(urns...)
	if len(urns) == 0 {
		return discovered, nil
	}
	if d.Cache == nil {
		d.Cache = NewObjectCache()
	}
	opts := d.Options

	if opts.DependentObjects {
		found, err := d.discoverReferences(ctx, urns)
		if err != nil {
			return nil, err
		}
		discovered.AddAll(found...)
	}

	if opts.SfcChildren && opts.Behavior.NeedsChildren() {
		if d.Server == nil {
			return nil, &deps.PropertyNotSetError{Property: "Server"}
		}
		children, err := d.expandChildren(ctx, discovered.Slice())
		if err != nil {
			return nil, err
		}
		discovered.AddAll(children...)
	} else if d.Prefetch != nil {
		loaded, err := d.Prefetch.PrefetchObjects(ctx, discovered.Slice())
		if err != nil {
			return nil, fmt.Errorf("failed to prefetch objects: %w", err)
		}
		discovered = urn.NewSet(loaded...)
	}

	d.logger().Debug("discovery complete", "requested", len(urns), "discovered", discovered.Len())
	return discovered, nil
}

func (d *Discoverer) discoverReferences(ctx context.Context, urns []urn.Urn) ([]urn.Urn, error) {
	if d.Walker == nil {
		return nil, &deps.PropertyNotSetError{Property: "Walker"}
	}

	request := urns
	if d.Options.IgnoreDependencyError {
		request = make([]urn.Urn, 0, len(urns))
		for _, u := range urns {
			if !core.KindOf(u).IsDependencyDiscoverable() {
				d.logger().Debug("skipping object without dependency tracking", "urn", u.String())
				continue
			}
			if d.Cache.Contains(u) {
				continue
			}
			request = append(request, u)
		}
		if len(request) == 0 {
			return nil, nil
		}
	}

	tree, err := d.Walker.DiscoverDependencies(ctx, request, d.Options.Behavior.DiscoverAncestors())
	if err != nil {
		return nil, err
	}
	result := d.Walker.WalkDependencies(tree, deps.WalkOptions{
		Filter:   d.Options.Filter,
		Progress: d.Options.Progress,
	})
	return result.Urns(), nil
}

// expandChildren collects the structural children of parents.
func (d *Discoverer) expandChildren(ctx context.Context, parents []urn.Urn) ([]urn.Urn, error) {
	if d.Prefetch != nil {
		var cold []urn.Urn
		for _, u := range parents {
			if !d.Cache.Contains(u) {
				cold = append(cold, u)
			}
		}
		if len(cold) > 0 {
			if _, err := d.Prefetch.PrefetchObjects(ctx, cold); err != nil {
				return nil, fmt.Errorf("failed to prefetch objects: %w", err)
			}
		}
	}

	x := &expansion{
		d:      d,
		action: d.Options.Behavior.ScriptAction(),
		info:   d.Server.Info(),
		seen:   urn.NewSet(),
	}
	for _, u := range parents {
		if core.KindOf(u) == core.KindUnresolvedEntity {
			continue
		}
		obj, err := d.Cache.Resolve(ctx, d.Server, u)
		if err != nil {
			return nil, &deps.UrnResolutionError{Urn: u, Err: err}
		}
		if err := x.expand(obj); err != nil {
			return nil, err
		}
	}
	return x.seen.Slice(), nil
}

type expansion struct {
	d      *Discoverer
	action core.ScriptAction
	info   core.ServerInfo
	seen   *urn.Set
}

func (x *expansion) expand(parent core.Object) error {
	infos, err := parent.PropagateInfo(x.action)
	if errors.Is(err, core.ErrUnsupportedVersion) {
		x.d.logger().Debug("skipping children unsupported on target", "urn", parent.Urn().String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read children of %s: %w", parent.Urn(), err)
	}

	filtered := x.d.Options.FilteredKinds
	var collected []urn.Urn
	var recurse []core.Object
	for _, info := range infos {
		if filtered.Contains(info.TypeKey) {
			continue
		}
		for _, child := range info.Objects {
			if child == nil || filtered.Contains(child.Kind()) {
				continue
			}
			if !child.SupportedOn(x.info) {
				x.d.logger().Debug("skipping child unsupported on target", "urn", child.Urn().String())
				continue
			}
			cu := child.Urn()
			x.d.Cache.Put(cu, child)
			if !x.seen.Add(cu) {
				continue
			}
			collected = append(collected, cu)
			if info.Recursive {
				recurse = append(recurse, child)
			}
		}
	}

	if len(collected) > 0 && x.d.Options.OnChildrenDiscovered != nil {
		x.d.Options.OnChildrenDiscovered(parent.Urn(), collected)
	}

	for _, child := range recurse {
		if err := x.expand(child); err != nil {
			return err
		}
	}
	return nil
}
