package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"plain", cause, KindUnknown},
		{"connection", &ConnectionError{Driver: "sqlite3", Err: cause}, KindConnection},
		{"query", &QueryError{Statement: "SELECT 1", Err: cause}, KindQuery},
		{"release", &ReleaseError{Driver: "sqlite3", Err: cause}, KindRelease},
		{"wrapped query", fmt.Errorf("count users: %w", &QueryError{Err: cause}), KindQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Kind(tt.err))
		})
	}
}

func TestErrorsUnwrapToCause(t *testing.T) {
	cause := errors.New("unable to open database file")

	err := &ConnectionError{Driver: "sqlite3", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrConnection)
	assert.NotErrorIs(t, err, ErrQuery)
	assert.Equal(t, "storage connection failed: sqlite3: unable to open database file", err.Error())

	qerr := &QueryError{Statement: "SELECT", Err: ErrHandleClosed}
	assert.ErrorIs(t, qerr, ErrHandleClosed)
	assert.Equal(t, "storage query failed: connection handle is closed", qerr.Error())
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "connection", KindConnection.String())
	assert.Equal(t, "query", KindQuery.String())
	assert.Equal(t, "release", KindRelease.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
