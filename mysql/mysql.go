// Package mysql opens the MySQL database holding the identity table and run records.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	slog "github.com/TermGraph/syslog"

	"github.com/go-sql-driver/mysql"
)

const logid = "mysql"

func syslog(s string) {
	slog.Log(logid, s)
}

// Open connects to dsn and verifies the connection.
// The DSN is parsed by the driver first so configuration errors are
// reported before any network access.
func Open(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true

	conn, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("Open database error: %w", err)
	}
	mdb := sql.OpenDB(conn)
	if maxConns > 0 {
		mdb.SetMaxOpenConns(maxConns)
		mdb.SetMaxIdleConns(maxConns)
	}
	mdb.SetConnMaxLifetime(5 * time.Minute)

	// OpenDB doesn't open a connection. Validate DSN data:
	if err = mdb.PingContext(ctx); err != nil {
		mdb.Close()
		return nil, fmt.Errorf("ping %s@%s: %w", cfg.User, cfg.Addr, err)
	}
	syslog(fmt.Sprintf("Successfully pinged database %s at %s", cfg.DBName, cfg.Addr))
	return mdb, nil
}

// IsDuplicate reports whether err is a MySQL duplicate key error.
func IsDuplicate(err error) bool {
	if me, ok := err.(*mysql.MySQLError); ok {
		return me.Number == 1062
	}
	return false
}
