package entityreader

import (
	"errors"
)

var (
	// ErrConnectivity is returned when the storage engine cannot be reached or the session
	// cannot execute the statement.
	ErrConnectivity = errors.New("storage engine connectivity failed")

	// ErrQueryExecution is returned when the storage engine rejects the snapshot statement.
	ErrQueryExecution = errors.New("snapshot query execution failed")

	// ErrMalformedRow is returned when a row does not have the expected shape.
	ErrMalformedRow = errors.New("malformed row")

	// ErrOrderingViolation is returned when an identifier lower than the previous one is observed.
	ErrOrderingViolation = errors.New("identifier ordering violated")

	// ErrMultipleRevisions is returned when two different current revisions exist for one identifier.
	ErrMultipleRevisions = errors.New("identifier has multiple current revisions")
)

var ErrBuildingQueryFailed = errors.New("building the snapshot query failed")
var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrEmptyTableName = errors.New("table name must not be empty")
var ErrInvalidFetchSize = errors.New("fetch size must be greater than zero")
