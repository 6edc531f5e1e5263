package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// ErrNoRows is returned by Session.QueryRow when the statement matched no row
var ErrNoRows = errors.New("no rows in result set")

// Session is one live connection to the storage engine.
// Implementations are not safe for concurrent use.
type Session interface {
	// QueryRow runs a statement expected to return at most one row and scans it into dest.
	// It returns ErrNoRows when nothing matched.
	QueryRow(ctx context.Context, stmt string, args []any, dest ...any) error

	// Exec runs a statement that returns no rows
	Exec(ctx context.Context, stmt string, args ...any) error

	// Close releases the session
	Close(ctx context.Context) error
}

// Dialer opens sessions against one storage engine
type Dialer interface {
	// Name returns the driver name, used in logs, spans and errors
	Name() string

	// Placeholder returns the bind-parameter format of the engine
	Placeholder() sq.PlaceholderFormat

	// Dial establishes a new session
	Dial(ctx context.Context) (Session, error)
}

// NewDialer returns the dialer for a configured driver
func NewDialer(driver, url string, create bool) (Dialer, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return NewSQLiteDialer(url, create), nil
	case "postgres", "pgx":
		return NewPostgresDialer(url), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// SQLDialer opens database/sql backed sessions through sqlx
type SQLDialer struct {
	name        string
	placeholder sq.PlaceholderFormat
	open        func(ctx context.Context) (*sqlx.DB, error)
}

// NewSQLDialer creates a dialer from an open function. Every Dial calls open and
// the returned *sqlx.DB is owned by exactly one session.
func NewSQLDialer(name string, placeholder sq.PlaceholderFormat, open func(ctx context.Context) (*sqlx.DB, error)) *SQLDialer {
	return &SQLDialer{
		name:        name,
		placeholder: placeholder,
		open:        open,
	}
}

// Name returns the driver name
func (d *SQLDialer) Name() string { return d.name }

// Placeholder returns the bind-parameter format
func (d *SQLDialer) Placeholder() sq.PlaceholderFormat { return d.placeholder }

// Dial opens a new single-connection session
func (d *SQLDialer) Dial(ctx context.Context) (Session, error) {
	xdb, err := d.open(ctx)
	if err != nil {
		return nil, err
	}
	xdb.SetMaxOpenConns(1)
	return &sqlSession{db: xdb}, nil
}

type sqlSession struct {
	db *sqlx.DB
}

func (s *sqlSession) QueryRow(ctx context.Context, stmt string, args []any, dest ...any) error {
	err := s.db.QueryRowxContext(ctx, stmt, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

func (s *sqlSession) Exec(ctx context.Context, stmt string, args ...any) error {
	_, err := s.db.ExecContext(ctx, stmt, args...)
	return err
}

func (s *sqlSession) Close(_ context.Context) error {
	return s.db.Close()
}
