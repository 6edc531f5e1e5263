// Package db provides the storage accessor: connection handles, scalar queries and
// guaranteed release over SQLite or Postgres.
package db

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dsjohal14/usercount/internal/libs/metrics"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/dsjohal14/usercount/internal/scope/db"

	// releaseTimeout bounds Close, which runs on a context detached from the caller
	releaseTimeout = 5 * time.Second
)

// Conn is a handle to one live storage session.
// It is owned by the operation that opened it and must not be shared.
type Conn struct {
	session  Session
	driver   string
	openedAt time.Time
	closed   atomic.Bool
}

// Closed reports whether the handle has been released
func (c *Conn) Closed() bool {
	return c == nil || c.closed.Load()
}

// Accessor opens, queries and releases storage connections
type Accessor struct {
	dialer   Dialer
	logger   zerolog.Logger
	tracer   trace.Tracer
	attempts int
	backoff  time.Duration
	open     atomic.Int64
}

// Option configures an Accessor
type Option func(*Accessor)

// WithLogger sets the logger used for connection lifecycle events
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Accessor) {
		a.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Accessor) {
		a.tracer = tracer
	}
}

// WithOpenRetry retries failed dials up to attempts times in total,
// doubling the wait after each failure starting at backoff.
// Query failures are never retried.
func WithOpenRetry(attempts int, backoff time.Duration) Option {
	return func(a *Accessor) {
		if attempts < 1 {
			attempts = 1
		}
		if backoff < 0 {
			backoff = 0
		}
		a.attempts = attempts
		a.backoff = backoff
	}
}

// NewAccessor creates an accessor over the given dialer
func NewAccessor(dialer Dialer, opts ...Option) *Accessor {
	a := &Accessor{
		dialer:   dialer,
		logger:   zerolog.Nop(),
		tracer:   otel.Tracer(tracerName),
		attempts: 1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Driver returns the name of the underlying driver
func (a *Accessor) Driver() string {
	return a.dialer.Name()
}

// Placeholder returns the bind-parameter format of the underlying engine
func (a *Accessor) Placeholder() sq.PlaceholderFormat {
	return a.dialer.Placeholder()
}

// OpenHandles returns the number of handles opened by this accessor and not yet released
func (a *Accessor) OpenHandles() int64 {
	return a.open.Load()
}

// Open establishes a new session. Failures are returned as *ConnectionError.
func (a *Accessor) Open(ctx context.Context) (*Conn, error) {
	ctx, span := a.tracer.Start(ctx, "db.open", trace.WithAttributes(
		attribute.String("db.system", a.dialer.Name()),
	))
	defer span.End()

	start := time.Now()
	session, err := a.dial(ctx)
	metrics.RecordStorageOp("open", time.Since(start), err)
	if err != nil {
		connErr := &ConnectionError{Driver: a.dialer.Name(), Err: err}
		span.RecordError(connErr)
		span.SetStatus(codes.Error, ErrConnection.Error())
		return nil, connErr
	}

	a.open.Add(1)
	metrics.StorageHandleOpened()
	a.logger.Debug().Str("driver", a.dialer.Name()).Msg("storage connection opened")

	return &Conn{
		session:  session,
		driver:   a.dialer.Name(),
		openedAt: time.Now(),
	}, nil
}

func (a *Accessor) dial(ctx context.Context) (Session, error) {
	wait := a.backoff
	var err error
	for attempt := 1; attempt <= a.attempts; attempt++ {
		var session Session
		session, err = a.dialer.Dial(ctx)
		if err == nil {
			return session, nil
		}

		a.logger.Warn().
			Err(err).
			Str("driver", a.dialer.Name()).
			Int("attempt", attempt).
			Int("max_attempts", a.attempts).
			Msg("failed to open storage connection")

		if attempt == a.attempts {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w (retry aborted: %v)", err, ctx.Err())
		case <-timer.C:
		}
		wait *= 2
	}
	return nil, err
}

// QueryScalar runs a statement expected to return zero or one row and scans it into dest.
// found is false when no row matched. Failures are returned as *QueryError.
func (a *Accessor) QueryScalar(ctx context.Context, c *Conn, stmt string, args []any, dest ...any) (found bool, err error) {
	if c.Closed() {
		return false, &QueryError{Statement: stmt, Err: ErrHandleClosed}
	}

	ctx, span := a.tracer.Start(ctx, "db.query_scalar", trace.WithAttributes(
		attribute.String("db.system", c.driver),
		attribute.String("db.statement", stmt),
	))
	defer span.End()

	start := time.Now()
	err = c.session.QueryRow(ctx, stmt, args, dest...)
	if errors.Is(err, ErrNoRows) {
		metrics.RecordStorageOp("query", time.Since(start), nil)
		return false, nil
	}
	metrics.RecordStorageOp("query", time.Since(start), err)
	if err != nil {
		queryErr := &QueryError{Statement: stmt, Err: err}
		span.RecordError(queryErr)
		span.SetStatus(codes.Error, ErrQuery.Error())
		return false, queryErr
	}
	return true, nil
}

// Exec runs a statement that returns no rows, such as DDL or inserts during setup.
func (a *Accessor) Exec(ctx context.Context, c *Conn, stmt string, args ...any) error {
	if c.Closed() {
		return &QueryError{Statement: stmt, Err: ErrHandleClosed}
	}

	ctx, span := a.tracer.Start(ctx, "db.exec", trace.WithAttributes(
		attribute.String("db.system", c.driver),
		attribute.String("db.statement", stmt),
	))
	defer span.End()

	start := time.Now()
	err := c.session.Exec(ctx, stmt, args...)
	metrics.RecordStorageOp("exec", time.Since(start), err)
	if err != nil {
		queryErr := &QueryError{Statement: stmt, Err: err}
		span.RecordError(queryErr)
		span.SetStatus(codes.Error, ErrQuery.Error())
		return queryErr
	}
	return nil
}

// Close releases the handle. It never fails: release errors are logged as
// *ReleaseError and dropped. Calling Close on a nil or already closed handle is a no-op.
func (a *Accessor) Close(c *Conn) {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return
	}
	a.open.Add(-1)
	metrics.StorageHandleReleased()

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	ctx, span := a.tracer.Start(ctx, "db.close", trace.WithAttributes(
		attribute.String("db.system", c.driver),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			relErr := &ReleaseError{Driver: c.driver, Err: fmt.Errorf("panic: %v", p)}
			span.RecordError(relErr)
			metrics.RecordStorageOp("close", time.Since(start), relErr)
			a.logger.Error().Err(relErr).Msg("error closing storage connection")
		}
	}()

	err := c.session.Close(ctx)
	metrics.RecordStorageOp("close", time.Since(start), err)
	if err != nil {
		relErr := &ReleaseError{Driver: c.driver, Err: err}
		span.RecordError(relErr)
		a.logger.Error().Err(relErr).Msg("error closing storage connection")
		return
	}

	a.logger.Debug().
		Str("driver", c.driver).
		Dur("held", time.Since(c.openedAt)).
		Msg("storage connection closed")
}

// WithConn opens a handle, passes it to fn and releases it on every exit path,
// including a panic in fn. The error from fn is returned unchanged.
func (a *Accessor) WithConn(ctx context.Context, fn func(ctx context.Context, c *Conn) error) error {
	c, err := a.Open(ctx)
	if err != nil {
		return err
	}
	defer a.Close(c)

	return fn(ctx, c)
}
