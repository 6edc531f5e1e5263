package db

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// PostgresDialer opens one pgx connection per session. Nothing is pooled.
type PostgresDialer struct {
	connString string
}

// NewPostgresDialer creates a dialer for the given connection string
func NewPostgresDialer(connString string) *PostgresDialer {
	return &PostgresDialer{connString: connString}
}

// Name returns the driver name
func (d *PostgresDialer) Name() string { return "postgres" }

// Placeholder returns the bind-parameter format ($1, $2, ...)
func (d *PostgresDialer) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

// Dial opens a new connection
func (d *PostgresDialer) Dial(ctx context.Context) (Session, error) {
	conn, err := pgx.Connect(ctx, d.connString)
	if err != nil {
		return nil, err
	}
	return &pgxSession{conn: conn}, nil
}

type pgxSession struct {
	conn *pgx.Conn
}

func (s *pgxSession) QueryRow(ctx context.Context, stmt string, args []any, dest ...any) error {
	err := s.conn.QueryRow(ctx, stmt, args...).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

func (s *pgxSession) Exec(ctx context.Context, stmt string, args ...any) error {
	_, err := s.conn.Exec(ctx, stmt, args...)
	return err
}

func (s *pgxSession) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
