package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"
	"github.com/leapstack-labs/schemadeps/internal/state"
	"github.com/leapstack-labs/schemadeps/pkg/adapter"
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// DefaultPath is used when the target does not name a catalog file.
const DefaultPath = "schemadeps.db"

// Adapter serves dependency discovery from an imported catalog snapshot.
type Adapter struct {
	adapter.BaseSQLAdapter
	store *state.Store

	// prefetched holds records bulk-loaded by PrefetchObjects until the
	// next reload.
	prefetched map[urn.Urn]state.ObjectRecord
}

// New creates a new sqlite backend instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect opens the catalog store. An empty catalog is not an error; the
// server is then described by the target config until Import runs.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}

	a.Logger.Debug("opening catalog store", slog.String("path", path))

	store := state.NewStore()
	if err := store.Open(path); err != nil {
		return err
	}

	a.store = store
	a.DB = store.DB()
	a.Cfg = cfg
	return a.reload(ctx)
}

// Close closes the catalog store.
func (a *Adapter) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	a.DB = nil
	a.prefetched = nil
	return err
}

// Store returns the underlying catalog store.
func (a *Adapter) Store() *state.Store {
	return a.store
}

// Import loads a catalog file into the store and refreshes the server info.
func (a *Adapter) Import(ctx context.Context, path string) (*state.ImportResult, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	result, err := a.store.ImportFile(ctx, path)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("catalog imported", slog.String("id", result.ID), slog.Int("objects", result.Objects))
	return result, a.reload(ctx)
}

func (a *Adapter) reload(ctx context.Context) error {
	a.prefetched = nil
	info := core.ServerInfo{TrueName: a.Cfg.ServerName, Collation: a.Cfg.Collation}

	rec, err := a.store.ServerInfo(ctx)
	switch {
	case errors.Is(err, state.ErrEmptyCatalog):
		a.Logger.Debug("catalog is empty")
	case err != nil:
		return err
	default:
		info.TrueName = rec.TrueName
		info.Edition = rec.Edition
		if info.Collation == "" {
			info.Collation = rec.Collation
		}
		if rec.Version != "" {
			v, err := semver.NewVersion(rec.Version)
			if err != nil {
				return fmt.Errorf("invalid stored server version %q: %w", rec.Version, err)
			}
			info.Version = v
		}
	}

	a.SetServerInfo(info)
	return nil
}

func (a *Adapter) ready() error {
	if a.store == nil {
		return fmt.Errorf("database connection not established")
	}
	return nil
}

// GetObject implements core.Server. Urns that differ from a stored urn only
// in case resolve when the server collation ignores case.
func (a *Adapter) GetObject(ctx context.Context, u urn.Urn) (core.Object, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if rec, ok := a.prefetched[u]; ok {
		return a.newObject(rec)
	}
	recs, err := a.store.FindObjects(ctx, u)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.Urn.Equal(u) || a.CompareUrns(rec.Urn, u) == 0 {
			return a.newObject(rec)
		}
	}
	return nil, adapter.NotFound(u)
}

func (a *Adapter) newObject(rec state.ObjectRecord) (*adapter.Object, error) {
	return adapter.NewObject(adapter.ObjectSpec{
		Urn:        rec.Urn,
		Kind:       rec.Kind,
		System:     rec.System,
		MinVersion: rec.MinVersion,
		Editions:   rec.Editions,
	}, a.children)
}

func (a *Adapter) children(ctx context.Context, parent urn.Urn, action core.ScriptAction) ([]core.PropagateInfo, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	recs, err := a.store.Children(ctx, parent, action)
	if err != nil {
		return nil, err
	}
	children := make([]adapter.Child, 0, len(recs))
	for _, rec := range recs {
		obj, err := a.newObject(rec.ObjectRecord)
		if err != nil {
			return nil, err
		}
		children = append(children, adapter.Child{
			Object:     obj,
			TypeKey:    rec.TypeKey,
			WithScript: rec.WithScript,
			Recursive:  rec.Recursive,
		})
	}
	return adapter.GroupChildren(children), nil
}

// DiscoverDependencies implements core.DependencyService over the stored
// reference edges. System objects are neither expanded nor returned.
func (a *Adapter) DiscoverDependencies(ctx context.Context, urns []urn.Urn, ancestors bool) (core.DependencyChainCollection, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if err := adapter.ValidateDiscoverable(urns); err != nil {
		return nil, err
	}

	seeds := make([]urn.Urn, 0, len(urns))
	for _, u := range urns {
		recs, err := a.store.FindObjects(ctx, u)
		if err != nil {
			return nil, err
		}
		if len(recs) > 0 && recs[0].Urn.Equal(u) && recs[0].System {
			continue
		}
		seeds = append(seeds, u)
	}

	chain, err := adapter.BuildChain(seeds, func(u urn.Urn) ([]adapter.Edge, error) {
		recs, err := a.store.Edges(ctx, u, ancestors)
		if err != nil {
			return nil, err
		}
		edges := make([]adapter.Edge, 0, len(recs))
		for _, r := range recs {
			edges = append(edges, adapter.Edge{To: r.Urn, SchemaBound: r.SchemaBound})
		}
		return edges, nil
	})
	if err != nil {
		return nil, err
	}

	a.Logger.Debug("dependency chain built", slog.Int("seeds", len(seeds)), slog.Int("objects", len(chain)))
	return chain, nil
}

// PrefetchObjects implements core.Prefetcher. Stored objects among urns are
// loaded in one query and served by GetObject without further lookups; urns
// come back unchanged.
func (a *Adapter) PrefetchObjects(ctx context.Context, urns []urn.Urn) ([]urn.Urn, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	recs, err := a.store.LoadObjects(ctx, urns)
	if err != nil {
		return nil, err
	}
	if a.prefetched == nil {
		a.prefetched = make(map[urn.Urn]state.ObjectRecord, len(recs))
	}
	for _, rec := range recs {
		a.prefetched[rec.Urn] = rec
	}
	a.Logger.Debug("prefetch", slog.Int("requested", len(urns)), slog.Int("loaded", len(recs)))
	return append([]urn.Urn(nil), urns...), nil
}
