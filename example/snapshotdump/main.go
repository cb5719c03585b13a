// Command snapshotdump writes the node or segment snapshot at a given instant as JSON lines to stdout.
//
// It reads from the primary test database and wires the reader with zap logging and, optionally,
// Prometheus metrics served on -metrics-addr while the dump runs.
//
//	go run ./example/snapshotdump -at 2024-06-01T00:00:00Z -kind nodes -fetch-size 5000 > nodes.jsonl
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/postgresengine"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/promadapters"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/tags"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/zapadapters"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/testutil/postgresengine/config"
)

const (
	kindNodes    = "nodes"
	kindSegments = "segments"
)

type Config struct {
	At          time.Time
	Kind        string
	FetchSize   int
	JSONTags    bool
	Replica     bool
	MetricsAddr string
	Verbose     bool
}

type nodeLine struct {
	ID        uint64            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Latitude  float64           `json:"lat"`
	Longitude float64           `json:"lon"`
	Tags      map[string]string `json:"tags"`
}

type segmentLine struct {
	ID        uint64            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	NodeA     uint64            `json:"node_a"`
	NodeB     uint64            `json:"node_b"`
	Tags      map[string]string `json:"tags"`
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	zapLogger, err := newZapLogger(cfg.Verbose)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	err = run(cfg, zapadapters.NewLogger(zapLogger.Sugar()))
	_ = zapLogger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

func run(cfg Config, logger *zapadapters.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	options := []postgresengine.Option{
		postgresengine.WithContextualLogger(logger),
		postgresengine.WithFetchSize(cfg.FetchSize),
	}

	if cfg.JSONTags {
		options = append(options, postgresengine.WithTagParser(tags.ParseJSON))
	}

	if cfg.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		options = append(options, postgresengine.WithMetrics(promadapters.NewMetricsCollector(registry)))

		server := serveMetrics(cfg.MetricsAddr, registry, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	reader, closeDB, err := newReader(ctx, cfg, options...)
	if err != nil {
		logger.Error("failed to create reader", "error", err.Error())
		return err
	}
	defer closeDB()

	if cfg.Replica {
		ctx = entityreader.WithEventualConsistency(ctx)
	}

	out := bufio.NewWriterSize(os.Stdout, 1<<16)

	var count int
	switch cfg.Kind {
	case kindNodes:
		count, err = dumpNodes(ctx, reader, cfg.At, out)
	case kindSegments:
		count, err = dumpSegments(ctx, reader, cfg.At, out)
	}

	if flushErr := out.Flush(); err == nil {
		err = flushErr
	}

	if err != nil {
		logger.ErrorContext(ctx, "snapshot dump failed", "error", err.Error(), "written", count)
		return err
	}

	logger.InfoContext(ctx, "snapshot dump finished", "kind", cfg.Kind, "at", cfg.At.Format(time.RFC3339), "written", count)

	return nil
}

func parseFlags() (Config, error) {
	var (
		at          = flag.String("at", "", "Snapshot instant in RFC3339 format (default: now)")
		kind        = flag.String("kind", kindNodes, "Entity kind to dump: nodes or segments")
		fetchSize   = flag.Int("fetch-size", 1000, "Rows per server round trip")
		jsonTags    = flag.Bool("json-tags", false, "Tags column holds JSON objects instead of k=v;k=v")
		replica     = flag.Bool("replica", false, "Allow the read to be served from the replica")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
		verbose     = flag.Bool("verbose", false, "Log SQL statements")
	)

	flag.Parse()

	instant := time.Now().UTC()
	if *at != "" {
		parsed, err := time.Parse(time.RFC3339Nano, *at)
		if err != nil {
			return Config{}, fmt.Errorf("invalid -at '%s': %w", *at, err)
		}
		instant = parsed
	}

	if *kind != kindNodes && *kind != kindSegments {
		return Config{}, fmt.Errorf("invalid -kind '%s': expected %s or %s", *kind, kindNodes, kindSegments)
	}

	return Config{
		At:          instant,
		Kind:        *kind,
		FetchSize:   *fetchSize,
		JSONTags:    *jsonTags,
		Replica:     *replica,
		MetricsAddr: *metricsAddr,
		Verbose:     *verbose,
	}, nil
}

func newZapLogger(verbose bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{"stderr"}

	if verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return zapConfig.Build()
}

func newReader(ctx context.Context, cfg Config, options ...postgresengine.Option) (*postgresengine.Reader, func(), error) {
	primaryConfig, err := config.PostgresPGXPoolPrimaryConfig()
	if err != nil {
		return nil, nil, err
	}

	primary, err := config.NewPGXPool(ctx, primaryConfig)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Replica {
		reader, err := postgresengine.NewReaderFromPGXPool(primary, options...)
		if err != nil {
			primary.Close()
			return nil, nil, err
		}

		return reader, primary.Close, nil
	}

	replicaConfig, err := config.PostgresPGXPoolReplicaConfig()
	if err != nil {
		primary.Close()
		return nil, nil, err
	}

	replica, err := config.NewPGXPool(ctx, replicaConfig)
	if err != nil {
		primary.Close()
		return nil, nil, err
	}

	closeAll := func() {
		replica.Close()
		primary.Close()
	}

	reader, err := postgresengine.NewReaderFromPGXPoolWithReplica(primary, replica, options...)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	return reader, closeAll, nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zapadapters.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err.Error())
		}
	}()

	return server
}

func dumpNodes(ctx context.Context, reader *postgresengine.Reader, at time.Time, out io.Writer) (int, error) {
	stream, err := reader.ReadNodes(ctx, at)
	if err != nil {
		return 0, err
	}

	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)

	written := 0
	for node, err := range stream.All(ctx) {
		if err != nil {
			return written, err
		}

		line := nodeLine{
			ID:        node.ID,
			Timestamp: node.Timestamp.UTC(),
			Latitude:  node.Latitude,
			Longitude: node.Longitude,
			Tags:      node.Tags.Map(),
		}

		if err := encoder.Encode(line); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}

func dumpSegments(ctx context.Context, reader *postgresengine.Reader, at time.Time, out io.Writer) (int, error) {
	stream, err := reader.ReadSegments(ctx, at)
	if err != nil {
		return 0, err
	}

	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)

	written := 0
	for segment, err := range stream.All(ctx) {
		if err != nil {
			return written, err
		}

		line := segmentLine{
			ID:        segment.ID,
			Timestamp: segment.Timestamp.UTC(),
			NodeA:     segment.NodeA,
			NodeB:     segment.NodeB,
			Tags:      segment.Tags.Map(),
		}

		if err := encoder.Encode(line); err != nil {
			return written, err
		}
		written++
	}

	return written, nil
}
