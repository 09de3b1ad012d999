// Package adapter provides the backend interface and registry for schemadeps.
//
// A backend connects to one target (a live server or a catalog snapshot) and
// exposes it as a core.Server, core.DependencyService and core.Prefetcher.
// Concrete backends are in pkg/adapters/ subdirectories and register
// themselves from init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/schemadeps/pkg/core"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// Adapter defines the interface that all backends must implement.
type Adapter interface {
	core.Backend

	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error
}
