// Package sqlite provides the catalog snapshot backend for schemadeps.
//
// This file registers the sqlite backend with the adapter registry.
// Import this package with a blank identifier to register the backend:
//
//	import _ "github.com/leapstack-labs/schemadeps/pkg/adapters/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/leapstack-labs/schemadeps/pkg/adapter"
)

func init() {
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
