package adapters_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	. "github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/postgresengine/internal/adapters"
)

func Test_ServerErrorCode(t *testing.T) {
	testCases := []struct {
		name         string
		err          error
		expectedCode string
		expectedOK   bool
	}{
		{
			name:         "pgx server error",
			err:          &pgconn.PgError{Code: "42P01", Message: "relation does not exist"},
			expectedCode: "42P01",
			expectedOK:   true,
		},
		{
			name:         "wrapped pgx server error",
			err:          fmt.Errorf("declare: %w", &pgconn.PgError{Code: "42703"}),
			expectedCode: "42703",
			expectedOK:   true,
		},
		{
			name:         "lib/pq server error",
			err:          &pq.Error{Code: "42P01", Message: "relation does not exist"},
			expectedCode: "42P01",
			expectedOK:   true,
		},
		{
			name:         "joined lib/pq server error",
			err:          errors.Join(errors.New("fetch failed"), &pq.Error{Code: "57014"}),
			expectedCode: "57014",
			expectedOK:   true,
		},
		{
			name:       "network error",
			err:        errors.New("connection reset by peer"),
			expectedOK: false,
		},
		{
			name:       "context canceled",
			err:        context.Canceled,
			expectedOK: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, ok := ServerErrorCode(tc.err)

			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedCode, code)
		})
	}
}
