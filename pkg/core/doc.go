// Package core defines the shared language of schemadeps.
//
// This package contains:
//   - Object kinds and script behaviors (ObjectKind, Behavior, ScriptAction)
//   - Dependency records returned by a dependency service (Dependency, DependencyChainCollection)
//   - Collaborator contracts (Server, Object, DependencyService, Prefetcher)
//   - Backend connection settings (AdapterConfig)
//
// The Golden Rule: pkg/core imports ONLY pkg/urn, semver and stdlib.
// All other packages depend on core, not the reverse.
package core
