// Package mssql is the Azure SQL Database adapter: DDL execution, batched
// row inserts for transfer, and counts and samples for validation.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // sqlserver driver
)

// Target is a connection pool on the provisioned Azure SQL database.
type Target struct {
	db *sql.DB
}

// Open connects to database on the given server FQDN. Azure requires TLS,
// so encrypt is always on. The password never appears in any error or log
// output from this package; the driver URL is built and discarded here.
func Open(ctx context.Context, server, database, user, password string) (*Target, error) {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(user, password),
		Host:   server,
		RawQuery: url.Values{
			"database": {database},
			"encrypt":  {"true"},
		}.Encode(),
	}
	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("open target %s/%s: %w", server, database, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to target %s/%s: %w", server, database, err)
	}
	return &Target{db: db}, nil
}

func (t *Target) Close() error {
	return t.db.Close()
}

// SetMaxOpenConns bounds the pool. The transfer stage sets this to its
// worker count so parallel table copies never queue behind each other.
func (t *Target) SetMaxOpenConns(n int) {
	t.db.SetMaxOpenConns(n)
}

// Exec runs one autocommitted statement.
func (t *Target) Exec(ctx context.Context, statement string) error {
	if _, err := t.db.ExecContext(ctx, statement); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// ExecInTransaction runs statements in a single transaction. Any failure
// rolls back every statement in the batch.
func (t *Target) ExecInTransaction(ctx context.Context, statements []string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec in transaction: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// quoteIdent quotes a T-SQL identifier with brackets.
func quoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func quoteIdentList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	return strings.Join(quoted, ", ")
}
