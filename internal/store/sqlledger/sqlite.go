package sqlledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens a SQLite-backed Ledger, creating the ai_usage table if
// it does not already exist. path may be a file path or ":memory:" for
// tests and local development where MySQL is unavailable.
func OpenSQLite(ctx context.Context, path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlledger: open sqlite: %w", err)
	}
	// SQLite supports at most one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlledger: ping sqlite: %w", err)
	}
	for _, stmt := range strings.Split(createTableSQLite, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlledger: create ai_usage table: %w", err)
		}
	}
	return &Ledger{db: db}, nil
}
