package testutil

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/leapstack-labs/schemadeps/pkg/adapter"
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// Catalog is an in-memory core.Backend for tests.
type Catalog struct {
	info     core.ServerInfo
	comparer *urn.Comparer

	objects   map[urn.Urn]*Object
	aliases   map[urn.Urn]urn.Urn
	dependsOn map[urn.Urn][]adapter.Edge
	usedBy    map[urn.Urn][]adapter.Edge

	// ServiceErr, when set, is returned by DiscoverDependencies.
	ServiceErr error
	// ServiceCalls counts DiscoverDependencies calls.
	ServiceCalls int
	// LastRequest holds the urns of the last DiscoverDependencies call.
	LastRequest []urn.Urn
	// Prefetched holds the urns of the last PrefetchObjects call.
	Prefetched []urn.Urn
}

// NewCatalog creates an empty catalog for the named server.
func NewCatalog(serverName string) *Catalog {
	return &Catalog{
		info: core.ServerInfo{
			TrueName:  serverName,
			Version:   semver.MustParse("16.0.0"),
			Edition:   core.EditionEnterprise,
			Collation: urn.DefaultCollation,
		},
		comparer:  urn.NewComparer(urn.DefaultCollation),
		objects:   make(map[urn.Urn]*Object),
		aliases:   make(map[urn.Urn]urn.Urn),
		dependsOn: make(map[urn.Urn][]adapter.Edge),
		usedBy:    make(map[urn.Urn][]adapter.Edge),
	}
}

// Urn builds a dbo-schema object urn in database db on this catalog's server.
func (c *Catalog) Urn(typ, name string) urn.Urn {
	return c.DatabaseUrn("db").Child(typ,
		urn.Attr{Name: "Name", Value: name},
		urn.Attr{Name: "Schema", Value: "dbo"})
}

// DatabaseUrn builds the urn of a database on this catalog's server.
func (c *Catalog) DatabaseUrn(name string) urn.Urn {
	return urn.New(
		urn.Segment{Type: "Server", Attrs: []urn.Attr{{Name: "Name", Value: c.info.TrueName}}},
		urn.Segment{Type: "Database", Attrs: []urn.Attr{{Name: "Name", Value: name}}},
	)
}

// SetVersion changes the reported server version.
func (c *Catalog) SetVersion(v string) {
	c.info.Version = semver.MustParse(v)
}

// Add registers an object and returns it for further setup.
func (c *Catalog) Add(u urn.Urn) *Object {
	obj := &Object{urn: u, kind: core.KindOf(u), propagate: make(map[core.ScriptAction][]core.PropagateInfo)}
	c.objects[u] = obj
	return obj
}

// Alias makes alt resolve to the object registered under canonical.
func (c *Catalog) Alias(alt, canonical urn.Urn) {
	c.aliases[alt] = canonical
}

// DependsOn records that from references to.
func (c *Catalog) DependsOn(from, to urn.Urn, schemaBound bool) {
	c.dependsOn[from] = append(c.dependsOn[from], adapter.Edge{To: to, SchemaBound: schemaBound})
	c.usedBy[to] = append(c.usedBy[to], adapter.Edge{To: from, SchemaBound: schemaBound})
}

// Info implements core.Server.
func (c *Catalog) Info() core.ServerInfo {
	return c.info
}

// CompareUrns implements core.Server.
func (c *Catalog) CompareUrns(a, b urn.Urn) int {
	return c.comparer.Compare(a, b)
}

// GetObject implements core.Server.
func (c *Catalog) GetObject(_ context.Context, u urn.Urn) (core.Object, error) {
	if canonical, ok := c.aliases[u]; ok {
		u = canonical
	}
	obj, ok := c.objects[u]
	if !ok {
		return nil, fmt.Errorf("%s: %w", u, core.ErrNotFound)
	}
	return obj, nil
}

// DiscoverDependencies implements core.DependencyService.
func (c *Catalog) DiscoverDependencies(_ context.Context, urns []urn.Urn, ancestors bool) (core.DependencyChainCollection, error) {
	c.ServiceCalls++
	c.LastRequest = append([]urn.Urn(nil), urns...)
	if c.ServiceErr != nil {
		return nil, c.ServiceErr
	}
	if err := adapter.ValidateDiscoverable(urns); err != nil {
		return nil, err
	}

	var seeds []urn.Urn
	for _, u := range urns {
		if obj, ok := c.objects[u]; ok && obj.system {
			continue
		}
		seeds = append(seeds, u)
	}

	edges := c.usedBy
	if ancestors {
		edges = c.dependsOn
	}
	return adapter.BuildChain(seeds, func(u urn.Urn) ([]adapter.Edge, error) {
		var out []adapter.Edge
		for _, e := range edges[u] {
			if obj, ok := c.objects[e.To]; ok && obj.system {
				continue
			}
			out = append(out, e)
		}
		return out, nil
	})
}

// PrefetchObjects implements core.Prefetcher.
func (c *Catalog) PrefetchObjects(_ context.Context, urns []urn.Urn) ([]urn.Urn, error) {
	c.Prefetched = append([]urn.Urn(nil), urns...)
	return append([]urn.Urn(nil), urns...), nil
}

// Object is a catalog object.
type Object struct {
	urn        urn.Urn
	kind       core.ObjectKind
	system     bool
	minVersion *semver.Version
	propagate  map[core.ScriptAction][]core.PropagateInfo
	propErr    error
}

// System marks the object as a system object.
func (o *Object) System() *Object {
	o.system = true
	return o
}

// MinVersion restricts the object to servers at or above v.
func (o *Object) MinVersion(v string) *Object {
	o.minVersion = semver.MustParse(v)
	return o
}

// PropagateError makes PropagateInfo fail with err.
func (o *Object) PropagateError(err error) *Object {
	o.propErr = err
	return o
}

// Children registers structural children for the actions in mask.
func (o *Object) Children(mask core.ScriptAction, info core.PropagateInfo) *Object {
	for _, a := range []core.ScriptAction{core.ActionCreate, core.ActionDrop, core.ActionAlter, core.ActionCreateOrAlter} {
		if mask.Has(a) {
			o.propagate[a] = append(o.propagate[a], info)
		}
	}
	return o
}

// Urn implements core.Object.
func (o *Object) Urn() urn.Urn { return o.urn }

// Kind implements core.Object.
func (o *Object) Kind() core.ObjectKind { return o.kind }

// IsSystemObject implements core.Object.
func (o *Object) IsSystemObject() bool { return o.system }

// PropagateInfo implements core.Object.
func (o *Object) PropagateInfo(action core.ScriptAction) ([]core.PropagateInfo, error) {
	if o.propErr != nil {
		return nil, o.propErr
	}
	return o.propagate[action], nil
}

// SupportedOn implements core.Object.
func (o *Object) SupportedOn(info core.ServerInfo) bool {
	if o.minVersion == nil || info.Version == nil {
		return true
	}
	return !info.Version.LessThan(o.minVersion)
}
