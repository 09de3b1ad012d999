package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/schemadeps/pkg/adapter"
	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// DefaultCollation is used unless the target overrides it. PostgreSQL
// identifiers compare exactly once quoted.
const DefaultCollation = "Latin1_General_BIN2"

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter

	refs map[urn.Urn]objectRef
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect establishes a connection to PostgreSQL and reads the server
// description.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	if err := a.loadServerInfo(ctx); err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}
	return nil
}

// loadServerInfo reads the server version. The server's true name is the
// configured server name, falling back to the host.
func (a *Adapter) loadServerInfo(ctx context.Context) error {
	var versionNum int
	err := a.DB.QueryRowContext(ctx, `SELECT current_setting('server_version_num')::int`).Scan(&versionNum)
	if err != nil {
		return fmt.Errorf("failed to read server version: %w", err)
	}

	name := a.Cfg.ServerName
	if name == "" {
		name = a.Cfg.Host
	}
	if name == "" {
		name = "localhost"
	}
	collation := a.Cfg.Collation
	if collation == "" {
		collation = DefaultCollation
	}

	a.SetServerInfo(core.ServerInfo{
		TrueName:  name,
		Version:   versionFromNum(versionNum),
		Edition:   core.EditionStandard,
		Collation: collation,
	})
	a.refs = nil
	return nil
}

// versionFromNum converts server_version_num (e.g. 160002) to 16.0.2.
// Releases before 10 use a three part number (e.g. 90624 is 9.6.24).
func versionFromNum(n int) *semver.Version {
	if n >= 100000 {
		return semver.New(uint64(n/10000), 0, uint64(n%100), "", "")
	}
	return semver.New(uint64(n/10000), uint64(n/100%100), uint64(n%100), "", "")
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}
