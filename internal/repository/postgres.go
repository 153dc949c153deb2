package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenPostgres opens the pgx-backed pool shared by the API and the orchestrators.
func OpenPostgres(ctx context.Context, dsn, env string) (*sql.DB, error) {
	db, err := sql.Open("pgx", PostgresDSN(dsn, env))
	if err != nil {
		return nil, fmt.Errorf("failed to open DB connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	// Set reasonable connection pool limits
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// PostgresDSN disables SSL for local development and forces the simple query protocol
// elsewhere, where a transaction pooler sits in front of Postgres. Settings already
// present in dsn win.
func PostgresDSN(dsn, env string) string {
	if env == "development" && !strings.Contains(dsn, "sslmode") {
		dsn = withParam(dsn, "sslmode=disable")
	}
	if env != "development" && !strings.Contains(dsn, "prefer_simple_protocol") {
		dsn = withParam(dsn, "prefer_simple_protocol=true")
	}
	return dsn
}

func withParam(dsn, kv string) string {
	sep := " "
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep = "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
	}
	return dsn + sep + kv
}
