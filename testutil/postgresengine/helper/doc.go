// Package helper provides testing utilities for the PostgreSQL entity reader.
//
// This package contains shared testing infrastructure: revision table setup and fixtures,
// a slog handler spy for capturing and validating log output, and spies for the contextual
// logger, metrics, and tracing interfaces.
package helper
