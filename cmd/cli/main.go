// Package main implements the usercount CLI for database setup and ad-hoc counts.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dsjohal14/usercount/internal/libs/config"
	"github.com/dsjohal14/usercount/internal/libs/obs"
	"github.com/dsjohal14/usercount/internal/scope/aggregate"
	"github.com/dsjohal14/usercount/internal/scope/db"
	"github.com/spf13/cobra"
)

type options struct {
	driver      string
	databaseURL string
	timeout     time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "usercount",
		Short:        "usercount CLI",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "storage driver (sqlite3 or postgres), overrides DB_DRIVER")
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "database path or URL, overrides DATABASE_URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout for the whole command")

	root.AddCommand(newSetupCmd(opts), newCountCmd(opts))
	return root
}

func newSetupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "setup-db",
		Short: "Create the user_list table and load sample users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accessor, err := opts.accessor(true)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			users := db.SampleUsers()
			err = accessor.WithConn(ctx, func(ctx context.Context, c *db.Conn) error {
				if err := db.EnsureSchema(ctx, accessor, c); err != nil {
					return fmt.Errorf("failed to create table: %w", err)
				}
				if err := db.ResetUsers(ctx, accessor, c); err != nil {
					return fmt.Errorf("failed to clear existing data: %w", err)
				}
				if err := db.InsertUsers(ctx, accessor, c, users); err != nil {
					return fmt.Errorf("failed to insert sample users: %w", err)
				}
				return nil
			})
			if err != nil {
				return err
			}

			total, err := aggregate.NewService(accessor).CountUsers(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Inserted %d sample users.\n", len(users))
			fmt.Fprintf(out, "Total users in database: %d\n", total)
			return nil
		},
	}
}

func newCountCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accessor, err := opts.accessor(false)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			total, err := aggregate.NewService(accessor).CountUsers(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), total)
			return nil
		},
	}
}

// accessor builds a storage accessor from config, applying flag overrides.
// create allows a missing SQLite file to be created.
func (o *options) accessor(create bool) (*db.Accessor, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	obs.InitLogger(cfg.LogLevel, cfg.Env)

	driver, url := cfg.DBDriver, cfg.DatabaseURL
	if o.driver != "" {
		driver = o.driver
	}
	if o.databaseURL != "" {
		url = o.databaseURL
	}

	dialer, err := db.NewDialer(driver, url, create)
	if err != nil {
		return nil, err
	}
	return db.NewAccessor(dialer,
		db.WithLogger(obs.Logger("cli")),
		db.WithOpenRetry(cfg.StorageOpenAttempts, cfg.StorageOpenBackoff),
	), nil
}
