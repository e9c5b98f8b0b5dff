package sqlledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// OpenMySQL opens a MySQL-backed Ledger, creating the ai_usage table if it
// does not already exist. dsn follows the go-sql-driver/mysql format, e.g.
// "user:pass@tcp(127.0.0.1:3306)/graphex?parseTime=true".
func OpenMySQL(ctx context.Context, dsn string) (*Ledger, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlledger: open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlledger: ping mysql: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTableMySQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlledger: create ai_usage table: %w", err)
	}
	return &Ledger{db: db}, nil
}
