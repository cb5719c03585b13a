// Package promadapters provides a Prometheus adapter for the entityreader metrics interface.
//
//	registry := prometheus.NewRegistry()
//	reader, err := postgresengine.NewReaderFromPGXPool(pool,
//		postgresengine.WithMetrics(promadapters.NewMetricsCollector(registry)),
//	)
package promadapters
