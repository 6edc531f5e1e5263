package db

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// NewSQLiteDialer creates a dialer for a SQLite database file.
// Unless create is set the file must already exist, so a missing database
// surfaces as a connection error instead of an empty new file.
func NewSQLiteDialer(path string, create bool) *SQLDialer {
	dsn := sqliteDSN(path, create)
	return NewSQLDialer("sqlite3", sq.Question, func(ctx context.Context) (*sqlx.DB, error) {
		// ConnectContext pings, which is when SQLite actually opens the file
		return sqlx.ConnectContext(ctx, "sqlite3", dsn)
	})
}

func sqliteDSN(path string, create bool) string {
	mode := "rw"
	if create {
		mode = "rwc"
	}

	if !strings.HasPrefix(path, "file:") {
		return fmt.Sprintf("file:%s?mode=%s", path, mode)
	}
	if strings.Contains(path, "mode=") {
		return path
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "mode=" + mode
}
