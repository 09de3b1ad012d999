package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// ServerRecord is the stored description of the catalog's server.
type ServerRecord struct {
	TrueName  string
	Version   string
	Edition   string
	Collation string
}

// ObjectRecord is one stored object.
type ObjectRecord struct {
	Urn        urn.Urn
	Kind       core.ObjectKind
	System     bool
	MinVersion string
	Editions   []string
}

// EdgeRecord is one reference from or to an object.
type EdgeRecord struct {
	Urn         urn.Urn
	SchemaBound bool
}

// ChildRecord is one structural child of an object.
type ChildRecord struct {
	ObjectRecord
	TypeKey    core.ObjectKind
	WithScript bool
	Recursive  bool
}

// ServerInfo returns the stored server description.
func (s *Store) ServerInfo(ctx context.Context) (*ServerRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rec := &ServerRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT true_name, version, edition, collation_name FROM server_info WHERE id = 1`,
	).Scan(&rec.TrueName, &rec.Version, &rec.Edition, &rec.Collation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmptyCatalog
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get server info: %w", err)
	}
	return rec, nil
}

// FindObjects returns the objects whose urn equals u, or equals it ignoring
// case. An exact match is listed first.
func (s *Store) FindObjects(ctx context.Context, u urn.Urn) ([]ObjectRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	key := u.String()
	rows, err := s.db.QueryContext(ctx, `
		SELECT urn, kind, is_system, min_version, editions
		FROM objects
		WHERE urn = ? OR urn_folded = ?
		ORDER BY urn = ? DESC, urn`,
		key, fold(key), key,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find objects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ObjectRecord
	for rows.Next() {
		rec, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Edges returns the references leaving u: what u depends on when ancestors
// is set, otherwise what depends on u. References to system objects are
// left out.
func (s *Store) Edges(ctx context.Context, u urn.Urn, ancestors bool) ([]EdgeRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `
		SELECT d.depends_on, d.schema_bound
		FROM object_dependencies d
		LEFT JOIN objects o ON o.urn = d.depends_on
		WHERE d.urn = ? AND COALESCE(o.is_system, 0) = 0
		ORDER BY d.rowid`
	if !ancestors {
		query = `
		SELECT d.urn, d.schema_bound
		FROM object_dependencies d
		LEFT JOIN objects o ON o.urn = d.urn
		WHERE d.depends_on = ? AND COALESCE(o.is_system, 0) = 0
		ORDER BY d.rowid`
	}

	rows, err := s.db.QueryContext(ctx, query, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get edges of %s: %w", u, err)
	}
	defer func() { _ = rows.Close() }()

	var out []EdgeRecord
	for rows.Next() {
		var target string
		var edge EdgeRecord
		if err := rows.Scan(&target, &edge.SchemaBound); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		if edge.Urn, err = urn.Parse(target); err != nil {
			return nil, fmt.Errorf("invalid stored urn %q: %w", target, err)
		}
		out = append(out, edge)
	}
	return out, rows.Err()
}

// Children returns the structural children of parent that take part in
// action, in their stored order.
func (s *Store) Children(ctx context.Context, parent urn.Urn, action core.ScriptAction) ([]ChildRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.urn, o.kind, o.is_system, o.min_version, o.editions,
		       c.type_key, c.with_script, c.propagate_recursive
		FROM object_children c
		JOIN objects o ON o.urn = c.child_urn
		WHERE c.parent_urn = ? AND (c.actions & ?) != 0
		ORDER BY c.position`,
		parent.String(), int(action),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get children of %s: %w", parent, err)
	}
	defer func() { _ = rows.Close() }()

	var out []ChildRecord
	for rows.Next() {
		var (
			rawUrn, kind, editions, typeKey string
			child                           ChildRecord
		)
		if err := rows.Scan(&rawUrn, &kind, &child.System, &child.MinVersion, &editions,
			&typeKey, &child.WithScript, &child.Recursive); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		if err := child.fill(rawUrn, kind, editions); err != nil {
			return nil, err
		}
		if child.TypeKey, err = core.ParseObjectKind(typeKey); err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, rows.Err()
}

// LoadObjects returns the stored objects among urns, in input order. Urns
// are matched exactly; unknown urns are left out.
func (s *Store) LoadObjects(ctx context.Context, urns []urn.Urn) ([]ObjectRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(urns) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(urns))
	args := make([]any, len(urns))
	for i, u := range urns {
		placeholders[i] = "?"
		args[i] = u.String()
	}

	//nolint:gosec // G202: placeholders only
	rows, err := s.db.QueryContext(ctx, `
		SELECT urn, kind, is_system, min_version, editions
		FROM objects
		WHERE urn IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load objects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	found := make(map[urn.Urn]ObjectRecord, len(urns))
	for rows.Next() {
		rec, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		found[rec.Urn] = *rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ObjectRecord, 0, len(found))
	for _, u := range urns {
		if rec, ok := found[u]; ok {
			out = append(out, rec)
			delete(found, u)
		}
	}
	return out, nil
}

func scanObject(rows *sql.Rows) (*ObjectRecord, error) {
	var rawUrn, kind, editions string
	rec := &ObjectRecord{}
	if err := rows.Scan(&rawUrn, &kind, &rec.System, &rec.MinVersion, &editions); err != nil {
		return nil, fmt.Errorf("failed to scan object: %w", err)
	}
	if err := rec.fill(rawUrn, kind, editions); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *ObjectRecord) fill(rawUrn, kind, editions string) error {
	var err error
	if r.Urn, err = urn.Parse(rawUrn); err != nil {
		return fmt.Errorf("invalid stored urn %q: %w", rawUrn, err)
	}
	if r.Kind, err = core.ParseObjectKind(kind); err != nil {
		return err
	}
	if editions != "" {
		r.Editions = strings.Split(editions, ",")
	}
	return nil
}

func fold(s string) string {
	return strings.ToLower(s)
}
