// Package aggregate computes summary values over stored collections.
package aggregate

import (
	"context"
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"
	"github.com/dsjohal14/usercount/internal/scope/db"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Service runs aggregate queries, one connection per call
type Service struct {
	accessor *db.Accessor
}

// NewService creates a new aggregate service
func NewService(accessor *db.Accessor) *Service {
	return &Service{accessor: accessor}
}

// CountRecords returns the number of rows in the named collection.
// Storage errors are returned unchanged; the connection is released before returning.
func (s *Service) CountRecords(ctx context.Context, collection string) (int64, error) {
	if !identifier.MatchString(collection) {
		return 0, &db.QueryError{
			Statement: collection,
			Err:       fmt.Errorf("%w: %q", db.ErrInvalidCollection, collection),
		}
	}

	stmt, args, err := sq.Select("COUNT(*)").
		From(collection).
		PlaceholderFormat(s.accessor.Placeholder()).
		ToSql()
	if err != nil {
		return 0, &db.QueryError{Statement: collection, Err: err}
	}

	var count int64
	err = s.accessor.WithConn(ctx, func(ctx context.Context, c *db.Conn) error {
		found, err := s.accessor.QueryScalar(ctx, c, stmt, args, &count)
		if err != nil {
			return err
		}
		if !found {
			// COUNT(*) always yields a row
			return &db.QueryError{Statement: stmt, Err: db.ErrNoRows}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CountUsers returns the number of rows in the users table
func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	return s.CountRecords(ctx, db.UsersTable)
}

// Ping opens and releases a connection to check that storage is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.accessor.WithConn(ctx, func(context.Context, *db.Conn) error {
		return nil
	})
}
