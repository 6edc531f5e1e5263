package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// UsersTable is the collection holding user records
const UsersTable = "user_list"

// UserRecord is a row of the users table
type UserRecord struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

var usersDDL = map[string]string{
	"sqlite3": `CREATE TABLE IF NOT EXISTS user_list (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS user_list (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT now()
	)`,
}

// SampleUsers returns the fixture users inserted by setup
func SampleUsers() []UserRecord {
	return []UserRecord{
		{Username: "john_doe", Email: "john.doe@example.com"},
		{Username: "jane_smith", Email: "jane.smith@example.com"},
		{Username: "bob_johnson", Email: "bob.johnson@example.com"},
		{Username: "alice_williams", Email: "alice.williams@example.com"},
		{Username: "charlie_brown", Email: "charlie.brown@example.com"},
		{Username: "diana_davis", Email: "diana.davis@example.com"},
		{Username: "evan_miller", Email: "evan.miller@example.com"},
		{Username: "fiona_wilson", Email: "fiona.wilson@example.com"},
		{Username: "george_moore", Email: "george.moore@example.com"},
		{Username: "helen_taylor", Email: "helen.taylor@example.com"},
	}
}

// EnsureSchema creates the users table if it does not exist
func EnsureSchema(ctx context.Context, a *Accessor, c *Conn) error {
	ddl, ok := usersDDL[a.Driver()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", a.Driver())
	}
	return a.Exec(ctx, c, ddl)
}

// ResetUsers removes every row from the users table
func ResetUsers(ctx context.Context, a *Accessor, c *Conn) error {
	stmt, args, err := sq.Delete(UsersTable).PlaceholderFormat(a.Placeholder()).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	return a.Exec(ctx, c, stmt, args...)
}

// InsertUsers inserts the given users in a single statement.
// IDs and creation timestamps are assigned by the database.
func InsertUsers(ctx context.Context, a *Accessor, c *Conn, users []UserRecord) error {
	if len(users) == 0 {
		return nil
	}

	b := sq.Insert(UsersTable).
		Columns("username", "email").
		PlaceholderFormat(a.Placeholder())
	for _, u := range users {
		b = b.Values(u.Username, u.Email)
	}

	stmt, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}
	return a.Exec(ctx, c, stmt, args...)
}
