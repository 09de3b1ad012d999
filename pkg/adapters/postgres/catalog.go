package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/schemadeps/pkg/adapter"
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// objectRef addresses a catalog row: the system catalog holding it and its oid.
type objectRef struct {
	class string
	oid   uint32
}

var systemSchemas = map[string]bool{
	"pg_catalog":         true,
	"information_schema": true,
	"pg_toast":           true,
}

const (
	relationLookup = `
		SELECT c.oid, c.relname, n.nspname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2`

	procLookup = `
		SELECT p.oid, p.proname, n.nspname
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = $1 AND p.proname = $2`

	typeLookup = `
		SELECT t.oid, t.typname, n.nspname
		FROM pg_type t
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = $1 AND t.typname = $2`
)

type lookup struct {
	class string
	query string
}

// lookups resolve a schema-scoped urn to its catalog row. Kinds without an
// entry do not exist on PostgreSQL.
var lookups = map[core.ObjectKind]lookup{
	core.KindTable:                {"pg_class", relationLookup + ` AND c.relkind IN ('r', 'p', 'f')`},
	core.KindView:                 {"pg_class", relationLookup + ` AND c.relkind IN ('v', 'm')`},
	core.KindSequence:             {"pg_class", relationLookup + ` AND c.relkind = 'S'`},
	core.KindUserDefinedFunction:  {"pg_proc", procLookup + ` AND p.prokind IN ('f', 'w') ORDER BY p.oid LIMIT 1`},
	core.KindStoredProcedure:      {"pg_proc", procLookup + ` AND p.prokind = 'p' ORDER BY p.oid LIMIT 1`},
	core.KindUserDefinedAggregate: {"pg_proc", procLookup + ` AND p.prokind = 'a' ORDER BY p.oid LIMIT 1`},
	core.KindUserDefinedDataType:  {"pg_type", typeLookup + ` AND t.typtype = 'd'`},
	core.KindUserDefinedType: {"pg_type", typeLookup + ` AND t.typtype IN ('c', 'e', 'r')
		AND (t.typrelid = 0 OR EXISTS (SELECT 1 FROM pg_class tc WHERE tc.oid = t.typrelid AND tc.relkind = 'c'))`},
}

// describeQueries return (name, schema, code) for an oid; the code selects
// the object kind through describeKinds.
var describeQueries = map[string]string{
	"pg_class": `
		SELECT c.relname, n.nspname, c.relkind::text
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.oid = $1`,
	"pg_proc": `
		SELECT p.proname, n.nspname, p.prokind::text
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE p.oid = $1`,
	"pg_type": `
		SELECT t.typname, n.nspname,
		       t.typtype::text || COALESCE((SELECT tc.relkind::text FROM pg_class tc WHERE tc.oid = t.typrelid), '')
		FROM pg_type t
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE t.oid = $1`,
}

var describeKinds = map[string]map[string]core.ObjectKind{
	"pg_class": {
		"r": core.KindTable, "p": core.KindTable, "f": core.KindTable,
		"v": core.KindView, "m": core.KindView,
		"S": core.KindSequence,
	},
	"pg_proc": {
		"f": core.KindUserDefinedFunction, "w": core.KindUserDefinedFunction,
		"p": core.KindStoredProcedure,
		"a": core.KindUserDefinedAggregate,
	},
	"pg_type": {
		"d":  core.KindUserDefinedDataType,
		"e":  core.KindUserDefinedType,
		"r":  core.KindUserDefinedType,
		"cc": core.KindUserDefinedType,
	},
}

// Reference edges. View bodies reference through pg_rewrite and are schema
// bound: the referenced objects cannot be dropped while the view exists.
const (
	ancestorEdges = `
		SELECT d.refclassid::regclass::text, d.refobjid, false
		FROM pg_depend d
		WHERE d.classid = $1::regclass AND d.objid = $2 AND d.deptype = 'n'
		UNION
		SELECT d.refclassid::regclass::text, d.refobjid, true
		FROM pg_rewrite r
		JOIN pg_depend d ON d.classid = 'pg_rewrite'::regclass AND d.objid = r.oid
		WHERE $1 = 'pg_class' AND r.ev_class = $2 AND d.refobjid <> $2 AND d.deptype = 'n'
		ORDER BY 1, 2`

	descendantEdges = `
		SELECT d.classid::regclass::text, d.objid, false
		FROM pg_depend d
		WHERE d.refclassid = $1::regclass AND d.refobjid = $2 AND d.deptype = 'n'
		  AND d.classid <> 'pg_rewrite'::regclass
		UNION
		SELECT 'pg_class', r.ev_class, true
		FROM pg_depend d
		JOIN pg_rewrite r ON d.classid = 'pg_rewrite'::regclass AND d.objid = r.oid
		WHERE d.refclassid = $1::regclass AND d.refobjid = $2 AND r.ev_class <> $2 AND d.deptype = 'n'
		ORDER BY 1, 2`
)

const (
	columnLookup = `
		SELECT a.attname
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2 AND a.attname = $3
		  AND a.attnum > 0 AND NOT a.attisdropped`

	indexLookup = `
		SELECT i.relname
		FROM pg_index x
		JOIN pg_class i ON i.oid = x.indexrelid
		JOIN pg_class c ON c.oid = x.indrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2 AND i.relname = $3`

	columnList = `
		SELECT a.attname
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`

	indexList = `
		SELECT i.relname
		FROM pg_index x
		JOIN pg_class i ON i.oid = x.indexrelid
		JOIN pg_class c ON c.oid = x.indrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
		ORDER BY i.relname`
)

// DatabaseUrn returns the urn of the connected database.
func (a *Adapter) DatabaseUrn() urn.Urn {
	return a.ServerUrn().Child("Database", urn.Attr{Name: "Name", Value: a.Cfg.Database})
}

func (a *Adapter) objectUrn(kind core.ObjectKind, schema, name string) urn.Urn {
	return a.DatabaseUrn().Child(kind.URNType(),
		urn.Attr{Name: "Name", Value: name},
		urn.Attr{Name: "Schema", Value: schema})
}

// schemaAndName splits a schema-scoped segment; schema defaults to public.
func schemaAndName(seg urn.Segment) (schema, name string) {
	name, _ = seg.Attribute("Name")
	schema, ok := seg.Attribute("Schema")
	if !ok || schema == "" {
		schema = "public"
	}
	return schema, name
}

// GetObject implements core.Server.
func (a *Adapter) GetObject(ctx context.Context, u urn.Urn) (core.Object, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	segs := u.Segments()
	if len(segs) < 3 || segs[0].Type != "Server" || segs[1].Type != "Database" {
		return nil, adapter.NotFound(u)
	}
	if db, _ := segs[1].Attribute("Name"); db != a.Cfg.Database {
		return nil, adapter.NotFound(u)
	}

	kind := core.KindOf(u)
	if (kind == core.KindColumn || kind == core.KindIndex) && len(segs) == 4 {
		return a.getTableChild(ctx, u, kind, segs)
	}

	lk, ok := lookups[kind]
	if !ok || len(segs) != 3 {
		return nil, adapter.NotFound(u)
	}

	schema, name := schemaAndName(segs[2])
	var (
		oid           uint32
		relName, nspc string
	)
	err := a.DB.QueryRowContext(ctx, lk.query, schema, name).Scan(&oid, &relName, &nspc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, adapter.NotFound(u)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", u, err)
	}

	canonical := a.objectUrn(kind, nspc, relName)
	a.remember(canonical, objectRef{class: lk.class, oid: oid})
	return a.newObject(canonical, kind, nspc)
}

func (a *Adapter) getTableChild(ctx context.Context, u urn.Urn, kind core.ObjectKind, segs []urn.Segment) (core.Object, error) {
	if segs[2].Type != core.KindTable.URNType() {
		return nil, adapter.NotFound(u)
	}
	schema, table := schemaAndName(segs[2])
	child, _ := segs[3].Attribute("Name")

	query := columnLookup
	if kind == core.KindIndex {
		query = indexLookup
	}

	var name string
	err := a.DB.QueryRowContext(ctx, query, schema, table, child).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, adapter.NotFound(u)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", u, err)
	}

	parent := a.objectUrn(core.KindTable, schema, table)
	return adapter.NewObject(adapter.ObjectSpec{
		Urn:    parent.Child(kind.URNType(), urn.Attr{Name: "Name", Value: name}),
		Kind:   kind,
		System: systemSchemas[schema],
	}, nil)
}

func (a *Adapter) newObject(u urn.Urn, kind core.ObjectKind, schema string) (*adapter.Object, error) {
	var children adapter.ChildrenFunc
	if kind == core.KindTable {
		children = a.tableChildren
	}
	return adapter.NewObject(adapter.ObjectSpec{
		Urn:    u,
		Kind:   kind,
		System: systemSchemas[schema],
	}, children)
}

func (a *Adapter) remember(u urn.Urn, ref objectRef) {
	if a.refs == nil {
		a.refs = make(map[urn.Urn]objectRef)
	}
	a.refs[u] = ref
}

// tableChildren lists columns for create actions and indexes for create.
func (a *Adapter) tableChildren(ctx context.Context, parent urn.Urn, action core.ScriptAction) ([]core.PropagateInfo, error) {
	if action != core.ActionCreate && action != core.ActionCreateOrAlter {
		return nil, nil
	}
	segs := parent.Segments()
	schema, table := schemaAndName(segs[len(segs)-1])

	var children []adapter.Child
	add := func(query string, kind core.ObjectKind) error {
		rows, err := a.QueryContext(ctx, query, schema, table)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return fmt.Errorf("failed to scan %s: %w", kind, err)
			}
			obj, err := adapter.NewObject(adapter.ObjectSpec{
				Urn:    parent.Child(kind.URNType(), urn.Attr{Name: "Name", Value: name}),
				Kind:   kind,
				System: systemSchemas[schema],
			}, nil)
			if err != nil {
				return err
			}
			children = append(children, adapter.Child{Object: obj, TypeKey: kind, WithScript: true})
		}
		return rows.Err()
	}

	if err := add(columnList, core.KindColumn); err != nil {
		return nil, err
	}
	if action == core.ActionCreate {
		if err := add(indexList, core.KindIndex); err != nil {
			return nil, err
		}
	}
	return adapter.GroupChildren(children), nil
}

// DiscoverDependencies implements core.DependencyService over pg_depend.
// System objects are neither expanded nor returned.
func (a *Adapter) DiscoverDependencies(ctx context.Context, urns []urn.Urn, ancestors bool) (core.DependencyChainCollection, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	if err := adapter.ValidateDiscoverable(urns); err != nil {
		return nil, err
	}

	seeds := make([]urn.Urn, 0, len(urns))
	for _, u := range urns {
		if _, ok := a.refs[u]; !ok {
			obj, err := a.GetObject(ctx, u)
			if err != nil {
				return nil, err
			}
			if obj.IsSystemObject() {
				continue
			}
			u = obj.Urn()
		}
		seeds = append(seeds, u)
	}

	query := descendantEdges
	if ancestors {
		query = ancestorEdges
	}

	chain, err := adapter.BuildChain(seeds, func(u urn.Urn) ([]adapter.Edge, error) {
		ref, ok := a.refs[u]
		if !ok {
			return nil, nil
		}
		return a.edges(ctx, query, ref)
	})
	if err != nil {
		return nil, err
	}

	a.Logger.Debug("dependency chain built", slog.Int("seeds", len(seeds)), slog.Int("objects", len(chain)))
	return chain, nil
}

func (a *Adapter) edges(ctx context.Context, query string, ref objectRef) ([]adapter.Edge, error) {
	type row struct {
		ref         objectRef
		schemaBound bool
	}

	rows, err := a.QueryContext(ctx, query, ref.class, ref.oid)
	if err != nil {
		return nil, err
	}
	var found []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.ref.class, &r.ref.oid, &r.schemaBound); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	edges := make([]adapter.Edge, 0, len(found))
	for _, r := range found {
		target, ok, err := a.describe(ctx, r.ref)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		edges = append(edges, adapter.Edge{To: target, SchemaBound: r.schemaBound})
	}
	return edges, nil
}

// describe maps a catalog row to its urn. Rows of kinds schemadeps does not
// track, and system objects, report false.
func (a *Adapter) describe(ctx context.Context, ref objectRef) (urn.Urn, bool, error) {
	query, ok := describeQueries[ref.class]
	if !ok {
		return urn.Urn{}, false, nil
	}

	var name, schema, code string
	err := a.DB.QueryRowContext(ctx, query, ref.oid).Scan(&name, &schema, &code)
	if errors.Is(err, sql.ErrNoRows) {
		return urn.Urn{}, false, nil
	}
	if err != nil {
		return urn.Urn{}, false, fmt.Errorf("failed to describe %s %d: %w", ref.class, ref.oid, err)
	}

	kind, ok := describeKinds[ref.class][code]
	if !ok || systemSchemas[schema] {
		return urn.Urn{}, false, nil
	}

	u := a.objectUrn(kind, schema, name)
	a.remember(u, ref)
	return u, true, nil
}

// PrefetchObjects implements core.Prefetcher. Catalog rows are read on
// demand, so urns come back unchanged.
func (a *Adapter) PrefetchObjects(_ context.Context, urns []urn.Urn) ([]urn.Urn, error) {
	return append([]urn.Urn(nil), urns...), nil
}
