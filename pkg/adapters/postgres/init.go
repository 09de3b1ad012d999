// Package postgres provides a live PostgreSQL backend for schemadeps.
//
// This file registers the postgres backend with the adapter registry.
// Import this package with a blank identifier to register the backend:
//
//	import _ "github.com/leapstack-labs/schemadeps/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/leapstack-labs/schemadeps/pkg/adapter"
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
