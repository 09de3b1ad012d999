package state

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
	"gopkg.in/yaml.v3"
)

// CatalogFile is the YAML form of a catalog snapshot.
type CatalogFile struct {
	Server  ServerSpec   `yaml:"server"`
	Objects []ObjectSpec `yaml:"objects"`
}

// ServerSpec describes the server a catalog was taken from.
type ServerSpec struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Edition   string `yaml:"edition"`
	Collation string `yaml:"collation"`
}

// ObjectSpec is one object in a catalog file.
type ObjectSpec struct {
	Urn        urn.Urn          `yaml:"urn"`
	System     bool             `yaml:"system"`
	MinVersion string           `yaml:"min_version"`
	Editions   []string         `yaml:"editions"`
	DependsOn  []DependencySpec `yaml:"depends_on"`
	Children   []ChildSpec      `yaml:"children"`
}

// DependencySpec is a reference from the enclosing object.
type DependencySpec struct {
	Urn         urn.Urn `yaml:"urn"`
	SchemaBound bool    `yaml:"schema_bound"`
}

// ChildSpec is a structural child of the enclosing object. TypeKey defaults
// to the child's kind, WithScript to true and Actions to every action.
type ChildSpec struct {
	Urn        urn.Urn             `yaml:"urn"`
	TypeKey    string              `yaml:"type_key"`
	WithScript *bool               `yaml:"with_script"`
	Recursive  bool                `yaml:"recursive"`
	Actions    []core.ScriptAction `yaml:"actions"`
	MinVersion string              `yaml:"min_version"`
	Editions   []string            `yaml:"editions"`
}

// ImportResult summarises one import.
type ImportResult struct {
	ID           string
	Objects      int
	Dependencies int
	Children     int
}

// ImportRecord is one row of the import history.
type ImportRecord struct {
	ID         string
	Source     string
	Objects    int
	ImportedAt time.Time
}

// LoadCatalog decodes and validates a catalog file.
func LoadCatalog(r io.Reader) (*CatalogFile, error) {
	var cat CatalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks that every urn addresses the catalog's server and has a
// known kind.
func (c *CatalogFile) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("catalog: server.name is required")
	}
	if c.Server.Version != "" {
		if _, err := semver.NewVersion(c.Server.Version); err != nil {
			return fmt.Errorf("catalog: invalid server.version %q: %w", c.Server.Version, err)
		}
	}

	check := func(u urn.Urn, minVersion string) error {
		if u.IsZero() {
			return fmt.Errorf("catalog: object without urn")
		}
		if core.KindOf(u) == core.KindUnknown {
			return fmt.Errorf("catalog: %s: unknown object kind %q", u, u.Type())
		}
		if !strings.EqualFold(u.ServerName(), c.Server.Name) {
			return fmt.Errorf("catalog: %s does not belong to server %q", u, c.Server.Name)
		}
		if minVersion != "" {
			if _, err := semver.NewVersion(minVersion); err != nil {
				return fmt.Errorf("catalog: %s: invalid min_version %q: %w", u, minVersion, err)
			}
		}
		return nil
	}

	for _, obj := range c.Objects {
		if err := check(obj.Urn, obj.MinVersion); err != nil {
			return err
		}
		for _, dep := range obj.DependsOn {
			if err := check(dep.Urn, ""); err != nil {
				return err
			}
		}
		for _, child := range obj.Children {
			if err := check(child.Urn, child.MinVersion); err != nil {
				return err
			}
			if child.TypeKey != "" {
				if _, err := core.ParseObjectKind(child.TypeKey); err != nil {
					return fmt.Errorf("catalog: %s: %w", child.Urn, err)
				}
			}
		}
	}
	return nil
}

// ImportFile loads the catalog file at path and imports it.
func (s *Store) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is supplied by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	cat, err := LoadCatalog(f)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, cat, path)
}

// Import replaces the stored catalog with cat.
func (s *Store) Import(ctx context.Context, cat *CatalogFile, source string) (*ImportResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"object_children", "object_dependencies", "objects", "server_info"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil { //nolint:gosec // G202: fixed table names
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	srv := cat.Server
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO server_info (id, true_name, version, edition, collation_name) VALUES (1, ?, ?, ?, ?)`,
		srv.Name, srv.Version, srv.Edition, srv.Collation,
	); err != nil {
		return nil, fmt.Errorf("failed to store server info: %w", err)
	}

	result := &ImportResult{ID: uuid.New().String()}

	// Listed objects win over objects only mentioned as a reference or child.
	for _, obj := range cat.Objects {
		if err := upsertObject(ctx, tx, obj.Urn, obj.System, obj.MinVersion, obj.Editions, true); err != nil {
			return nil, err
		}
	}

	for _, obj := range cat.Objects {
		for _, dep := range obj.DependsOn {
			if err := upsertObject(ctx, tx, dep.Urn, false, "", nil, false); err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO object_dependencies (urn, depends_on, schema_bound) VALUES (?, ?, ?)`,
				obj.Urn.String(), dep.Urn.String(), dep.SchemaBound,
			); err != nil {
				return nil, fmt.Errorf("failed to store dependency %s -> %s: %w", obj.Urn, dep.Urn, err)
			}
			result.Dependencies++
		}

		for pos, child := range obj.Children {
			if err := upsertObject(ctx, tx, child.Urn, false, child.MinVersion, child.Editions, false); err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO object_children
					(parent_urn, child_urn, position, type_key, with_script, propagate_recursive, actions)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				obj.Urn.String(), child.Urn.String(), pos, child.typeKey().String(),
				child.WithScript == nil || *child.WithScript, child.Recursive, int(child.actions()),
			); err != nil {
				return nil, fmt.Errorf("failed to store child %s of %s: %w", child.Urn, obj.Urn, err)
			}
			result.Children++
		}
	}

	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM objects`).Scan(&result.Objects); err != nil {
		return nil, fmt.Errorf("failed to count objects: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO imports (id, source, object_count, imported_at) VALUES (?, ?, ?, ?)`,
		result.ID, source, result.Objects, time.Now().UTC(),
	); err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return result, nil
}

// Imports returns the import history, newest first.
func (s *Store) Imports(ctx context.Context) ([]ImportRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, object_count, imported_at FROM imports ORDER BY imported_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ImportRecord
	for rows.Next() {
		var rec ImportRecord
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Objects, &rec.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// upsertObject stores an object row. With replace unset an existing row is
// kept as is.
func upsertObject(ctx context.Context, tx *sql.Tx, u urn.Urn, system bool, minVersion string, editions []string, replace bool) error {
	verb := "INSERT OR IGNORE"
	if replace {
		verb = "INSERT OR REPLACE"
	}
	key := u.String()
	//nolint:gosec // G202: verb is one of two constants
	_, err := tx.ExecContext(ctx,
		verb+` INTO objects (urn, urn_folded, kind, is_system, min_version, editions) VALUES (?, ?, ?, ?, ?, ?)`,
		key, fold(key), core.KindOf(u).String(), system, minVersion, strings.Join(editions, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to store object %s: %w", u, err)
	}
	return nil
}

func (c ChildSpec) typeKey() core.ObjectKind {
	if c.TypeKey != "" {
		if k, err := core.ParseObjectKind(c.TypeKey); err == nil {
			return k
		}
	}
	return core.KindOf(c.Urn)
}

func (c ChildSpec) actions() core.ScriptAction {
	if len(c.Actions) == 0 {
		return core.ActionAll
	}
	var mask core.ScriptAction
	for _, a := range c.Actions {
		mask |= a
	}
	return mask
}
