// Package oteladapters provides OpenTelemetry adapters for the entityreader observability interfaces.
//
// Wire them into a Reader with the postgresengine options:
//
//	reader, err := postgresengine.NewReaderFromPGXPool(pool,
//		postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("entityreader")),
//		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter("entityreader"))),
//		postgresengine.WithTracing(oteladapters.NewTracingCollector(otel.Tracer("entityreader"))),
//	)
//
// The slog bridge and the meter and tracer obtained from the global providers pick up
// whatever SDK the application installed; without one they are no-ops.
package oteladapters
