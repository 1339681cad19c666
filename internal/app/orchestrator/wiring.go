package orchestrator

import (
	"context"

	"github.com/varunr89/oews-sub002/internal/app/transfer"
	"github.com/varunr89/oews-sub002/internal/infrastructure/mssql"
	"github.com/varunr89/oews-sub002/internal/infrastructure/sqlite"
	"github.com/varunr89/oews-sub002/internal/pkg/logger"
)

// OpenSQLiteSource is the production SourceOpener.
func OpenSQLiteSource(path string) (SourceDB, error) {
	src, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	return sqliteSource{src}, nil
}

// sqliteSource narrows *sqlite.Rows to the stream interface the
// transfer service consumes.
type sqliteSource struct {
	*sqlite.Source
}

func (s sqliteSource) ReadTable(ctx context.Context, table string, columns, orderBy []string) (transfer.RowStream, error) {
	rows, err := s.Source.ReadTable(ctx, table, columns, orderBy)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ConnectSQLServer is the production TargetConnector. The password is
// revealed only here, where it enters the connection string.
func ConnectSQLServer(ctx context.Context, host, database, user string, password logger.Secret) (TargetDB, error) {
	target, err := mssql.Open(ctx, host, database, user, password.Reveal())
	if err != nil {
		return nil, err
	}
	return target, nil
}
