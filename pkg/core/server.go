package core

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// Engine editions an object may be restricted to.
const (
	EditionStandard   = "standard"
	EditionEnterprise = "enterprise"
	EditionExpress    = "express"
	EditionAzure      = "azure"
)

// ServerInfo describes the connected server.
type ServerInfo struct {
	// TrueName is the server's own name, compared against urn server segments.
	TrueName  string
	Version   *semver.Version
	Edition   string
	Collation string
}

// Server resolves urns to live objects and orders urns the way the server does.
type Server interface {
	Info() ServerInfo

	// GetObject resolves a urn to its live object. Returns an error wrapping
	// ErrNotFound when no such object exists.
	GetObject(ctx context.Context, u urn.Urn) (Object, error)

	// CompareUrns is the server's collation-aware total order.
	CompareUrns(a, b urn.Urn) int
}

// Object is a materialised server object.
type Object interface {
	// Urn returns the canonical urn of the object.
	Urn() urn.Urn
	Kind() ObjectKind
	IsSystemObject() bool

	// PropagateInfo lists the structural children that accompany the object
	// for the given script action.
	PropagateInfo(action ScriptAction) ([]PropagateInfo, error)

	// SupportedOn reports whether the object can be scripted against a server.
	SupportedOn(info ServerInfo) bool
}

// PropagateInfo is one collection (or single child) of structural children.
type PropagateInfo struct {
	Objects []Object
	// WithScript marks children that are emitted as part of the parent's script.
	WithScript bool
	// Recursive marks children whose own children must also be expanded.
	Recursive bool
	TypeKey   ObjectKind
}

// DependencyService discovers reference dependencies server-side.
type DependencyService interface {
	// DiscoverDependencies returns the flat chain for urns. ancestors selects
	// what the urns depend on; otherwise what depends on them.
	DiscoverDependencies(ctx context.Context, urns []urn.Urn, ancestors bool) (DependencyChainCollection, error)
}

// Prefetcher bulk-loads object metadata ahead of scripting.
type Prefetcher interface {
	PrefetchObjects(ctx context.Context, urns []urn.Urn) ([]urn.Urn, error)
}

// Backend bundles what one connected target provides.
type Backend interface {
	Server
	DependencyService
	Prefetcher
}
