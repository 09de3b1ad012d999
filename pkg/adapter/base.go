package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/schemadeps/pkg/core"
	"github.com/leapstack-labs/schemadeps/pkg/urn"
)

// BaseSQLAdapter provides common database/sql functionality for backends.
// Embed this struct in concrete adapter implementations to get standard
// Close, Info and CompareUrns implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger

	info     core.ServerInfo
	comparer *urn.Comparer
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// SetServerInfo records what the backend discovered about its server and
// builds the matching urn comparer.
func (b *BaseSQLAdapter) SetServerInfo(info core.ServerInfo) {
	if info.Collation == "" {
		info.Collation = urn.DefaultCollation
	}
	b.info = info
	b.comparer = urn.NewComparer(info.Collation)
}

// Info returns the connected server's description.
func (b *BaseSQLAdapter) Info() core.ServerInfo {
	return b.info
}

// CompareUrns orders urns under the server collation.
func (b *BaseSQLAdapter) CompareUrns(a, c urn.Urn) int {
	if b.comparer == nil {
		b.comparer = urn.NewComparer(b.info.Collation)
	}
	return b.comparer.Compare(a, c)
}

// ServerUrn returns the urn of the connected server itself.
func (b *BaseSQLAdapter) ServerUrn() urn.Urn {
	return urn.New(urn.Segment{Type: "Server", Attrs: []urn.Attr{{Name: "Name", Value: b.info.TrueName}}})
}

// QueryContext runs a query on the connection, failing if none is established.
func (b *BaseSQLAdapter) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return rows, nil
}
