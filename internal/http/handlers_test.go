package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dsjohal14/usercount/internal/libs/obs"
	"github.com/dsjohal14/usercount/internal/scope/aggregate"
	"github.com/dsjohal14/usercount/internal/scope/db"
	"github.com/go-chi/chi/v5"
)

// fakeCounter stands in for the aggregate service
type fakeCounter struct {
	count     int64
	err       error
	pingErr   error
	panicWith any
	calls     atomic.Int32
	ctxErr    error
}

func (f *fakeCounter) CountUsers(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	f.ctxErr = ctx.Err()
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.count, f.err
}

func (f *fakeCounter) Ping(context.Context) error {
	f.calls.Add(1)
	return f.pingErr
}

func setupTestRouter(t *testing.T, counter UserCounter, opts ...HandlerOption) *chi.Mux {
	t.Helper()

	obs.InitLogger("error", "test") // Quiet logs during tests
	logger := obs.Logger("test")
	handler := NewHandler(counter, logger, opts...)

	return NewRouter(handler)
}

// sqliteCounter returns a service over a fresh SQLite database holding the given users
func sqliteCounter(t *testing.T, users []db.UserRecord) *aggregate.Service {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test001.db")
	setup := db.NewAccessor(db.NewSQLiteDialer(path, true))
	err := setup.WithConn(context.Background(), func(ctx context.Context, c *db.Conn) error {
		if err := db.EnsureSchema(ctx, setup, c); err != nil {
			return err
		}
		return db.InsertUsers(ctx, setup, c, users)
	})
	if err != nil {
		t.Fatalf("failed to set up database: %v", err)
	}

	return aggregate.NewService(db.NewAccessor(db.NewSQLiteDialer(path, false)))
}

// missingCounter returns a service whose database file does not exist
func missingCounter(t *testing.T) *aggregate.Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "missing.db")
	return aggregate.NewService(db.NewAccessor(db.NewSQLiteDialer(path, false)))
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, body io.Reader) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestHandleRoot(t *testing.T) {
	counter := &fakeCounter{err: errors.New("must not be called")}
	router := setupTestRouter(t, counter)

	w := get(router, "/")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var resp RootResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", resp.Version)
	}
	if resp.Endpoints.UserCount != "/api/usercount" {
		t.Errorf("expected userCount endpoint /api/usercount, got %s", resp.Endpoints.UserCount)
	}
	if resp.Endpoints.Health != "/" {
		t.Errorf("expected health endpoint /, got %s", resp.Endpoints.Health)
	}
	if resp.Message == "" {
		t.Error("expected non-empty message")
	}

	if counter.calls.Load() != 0 {
		t.Errorf("root endpoint touched storage %d times", counter.calls.Load())
	}
}

func TestHandleRootWithoutStorage(t *testing.T) {
	router := setupTestRouter(t, missingCounter(t))

	w := get(router, "/")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 with storage missing, got %d", w.Code)
	}
}

func TestHandleUserCountEmpty(t *testing.T) {
	router := setupTestRouter(t, sqliteCounter(t, nil))

	w := get(router, "/api/usercount")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if strings.TrimSpace(w.Body.String()) != `{"totalUsers":0}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestHandleUserCountSeeded(t *testing.T) {
	router := setupTestRouter(t, sqliteCounter(t, db.SampleUsers()))

	w := get(router, "/api/usercount")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp UserCountResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalUsers != 10 {
		t.Errorf("expected 10 users, got %d", resp.TotalUsers)
	}
}

func TestHandleUserCountIsIdempotent(t *testing.T) {
	router := setupTestRouter(t, sqliteCounter(t, db.SampleUsers()[:4]))

	first := get(router, "/api/usercount").Body.String()
	for i := 0; i < 5; i++ {
		if again := get(router, "/api/usercount").Body.String(); again != first {
			t.Errorf("response %d changed: %s != %s", i, again, first)
		}
	}
}

func TestHandleUserCountMissingDatabase(t *testing.T) {
	router := setupTestRouter(t, missingCounter(t))

	w := get(router, "/api/usercount")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}

	resp := decodeError(t, w.Body)
	if resp.Error != "Internal Server Error" {
		t.Errorf("expected error Internal Server Error, got %q", resp.Error)
	}
	if resp.Message != "Failed to retrieve user count from database" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if resp.Code != "DATABASE_UNAVAILABLE" {
		t.Errorf("expected code DATABASE_UNAVAILABLE, got %q", resp.Code)
	}
	if resp.Details != "storage connection failed" {
		t.Errorf("expected short details outside dev mode, got %q", resp.Details)
	}
}

func TestHandleUserCountErrorDetails(t *testing.T) {
	queryErr := &db.QueryError{
		Statement: "SELECT COUNT(*) FROM user_list",
		Err:       errors.New("no such table: user_list"),
	}

	tests := []struct {
		name    string
		err     error
		details bool
		code    string
		want    string
	}{
		{"query error hidden", queryErr, false, "QUERY_FAILED", "storage query failed"},
		{"query error exposed", queryErr, true, "QUERY_FAILED", "storage query failed: no such table: user_list"},
		{"unknown error hidden", errors.New("boom"), false, "INTERNAL", "unexpected error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(t, &fakeCounter{err: tt.err}, WithErrorDetails(tt.details))

			w := get(router, "/api/usercount")
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("expected status 500, got %d", w.Code)
			}

			resp := decodeError(t, w.Body)
			if resp.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Code)
			}
			if resp.Details != tt.want {
				t.Errorf("expected details %q, got %q", tt.want, resp.Details)
			}
		})
	}
}

func TestHandleUserCountIgnoresClientCancellation(t *testing.T) {
	counter := &fakeCounter{count: 5}
	router := setupTestRouter(t, counter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/usercount", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if counter.ctxErr != nil {
		t.Errorf("storage context should not inherit client cancellation, got %v", counter.ctxErr)
	}
}

func TestNotFound(t *testing.T) {
	router := setupTestRouter(t, &fakeCounter{})

	for _, path := range []string{"/api/nonexistent", "/api/invalid", "/api/usercount/extra"} {
		if w := get(router, path); w.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, w.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := setupTestRouter(t, &fakeCounter{})

	req := httptest.NewRequest(http.MethodPost, "/api/usercount", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	router := setupTestRouter(t, &fakeCounter{panicWith: "nil map write"})

	w := get(router, "/api/usercount")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}

	resp := decodeError(t, w.Body)
	if resp.Error != "Internal Server Error" {
		t.Errorf("expected error Internal Server Error, got %q", resp.Error)
	}
	if resp.Message != "Something went wrong!" {
		t.Errorf("expected generic message, got %q", resp.Message)
	}
	if resp.Details != "" {
		t.Errorf("expected no details in generic fault response, got %q", resp.Details)
	}
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name     string
		counter  UserCounter
		status   int
		database string
	}{
		{"storage reachable", &fakeCounter{}, http.StatusOK, "connected"},
		{"storage missing", missingCounter(t), http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(t, tt.counter)

			w := get(router, "/health")
			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, w.Code)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Database != tt.database {
				t.Errorf("expected database %s, got %s", tt.database, resp.Database)
			}
			if resp.Uptime == "" {
				t.Error("expected uptime")
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t, &fakeCounter{count: 1})

	_ = get(router, "/api/usercount")
	w := get(router, "/metrics")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "usercount_http_requests_total") {
		t.Error("expected http request counter in metrics output")
	}
}
