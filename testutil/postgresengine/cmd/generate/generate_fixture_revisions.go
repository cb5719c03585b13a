package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/testutil/postgresengine/config"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/testutil/postgresengine/helper"
)

const (
	tenThousand     = 10000
	hundredThousand = tenThousand * 10
	million         = hundredThousand * 10

	// NumNodes - Number of nodes to generate, each with 1 to 4 revisions - adapt as needed.
	//
	// WARNING
	//
	// The whole history is generated in memory before it is copied into the database.
	// 1 Million nodes need roughly 1GB of RAM.
	NumNodes = 1 * million

	// NumSegments - Number of segments to generate, each with 1 to 4 revisions - adapt as needed.
	NumSegments = 3 * hundredThousand

	// NodesTable - the node revision table read by the default Reader - don't change.
	NodesTable = "nodes"

	// SegmentsTable - the segment revision table read by the default Reader - don't change.
	SegmentsTable = "segments"

	// Seed - the seed of the generated history, keep it fixed to get comparable benchmarks.
	Seed = 20240601
)

var (
	nodeColumns    = []string{"id", "timestamp", "latitude", "longitude", "tags", "visible"}
	segmentColumns = []string{"id", "timestamp", "node_a", "node_b", "tags", "visible"}
)

func main() {
	if err := GenerateFixtureRevisions(context.Background()); err != nil {
		log.Fatalf("Error generating fixture revisions: %v", err)
	}
}

// GenerateFixtureRevisions recreates the node and segment revision tables in the primary test database
// and bulk loads a generated history into them.
func GenerateFixtureRevisions(ctx context.Context) error {
	startTime := time.Now()

	fmt.Println("🚀 Starting fixture revision generation")
	fmt.Printf("📊 Entities to generate: %s nodes, %s segments\n", formatNumber(NumNodes), formatNumber(NumSegments))
	fmt.Println()

	fmt.Printf("🔗\tConnecting to database...")
	poolConfig, err := config.PostgresPGXPoolPrimaryConfig()
	if err != nil {
		return err
	}

	connPool, err := config.NewPGXPool(ctx, poolConfig)
	if err != nil {
		return err
	}
	defer connPool.Close()
	fmt.Println(" ✅")

	fmt.Printf("🔄\tPhase 1/2: Generating node history...")
	nodes := helper.GenerateNodeHistory(helper.DefaultHistoryConfig(Seed, NumNodes))
	fmt.Printf(" ✅ %s revisions\n", formatNumber(len(nodes)))

	nodeRows := make([][]any, 0, len(nodes))
	for _, node := range nodes {
		nodeRows = append(nodeRows, []any{node.ID, node.Timestamp, node.Latitude, node.Longitude, node.Tags, node.Visible})
	}

	if err := loadTable(ctx, connPool, NodesTable, helper.CreateNodesTableStatements(NodesTable), nodeColumns, nodeRows); err != nil {
		return err
	}

	fmt.Printf("🔄\tPhase 2/2: Generating segment history...")
	segments := helper.GenerateSegmentHistory(helper.DefaultHistoryConfig(Seed, NumSegments), NumNodes)
	fmt.Printf(" ✅ %s revisions\n", formatNumber(len(segments)))

	segmentRows := make([][]any, 0, len(segments))
	for _, segment := range segments {
		segmentRows = append(segmentRows, []any{segment.ID, segment.Timestamp, segment.NodeA, segment.NodeB, segment.Tags, segment.Visible})
	}

	if err := loadTable(ctx, connPool, SegmentsTable, helper.CreateSegmentsTableStatements(SegmentsTable), segmentColumns, segmentRows); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Fixture generation completed! 🎉\n")
	fmt.Printf("Total revisions loaded: %s 📊\n", formatNumber(len(nodes)+len(segments)))
	fmt.Printf("Total time: %v ⏱️\n", time.Since(startTime).Round(time.Millisecond))

	return nil
}

// loadTable recreates table and copies rows into it within one transaction.
func loadTable(
	ctx context.Context,
	connPool *pgxpool.Pool,
	table string,
	createStatements []string,
	columns []string,
	rows [][]any,
) error {

	tx, err := connPool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // Will be ignored if already committed
	}()

	fmt.Printf("🧹\tRecreating table %s...", table)
	for _, statement := range createStatements {
		if _, err = tx.Exec(ctx, statement); err != nil {
			return fmt.Errorf("failed to recreate table %s: %w", table, err)
		}
	}
	fmt.Println(" ✅")

	fmt.Printf("📥\tCopying revisions into %s...", table)
	copyStart := time.Now()
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy revisions into %s: %w", table, err)
	}
	fmt.Printf(" ✅ %s rows in %v\n", formatNumber(int(copied)), time.Since(copyStart).Round(time.Millisecond))

	fmt.Printf("📊\tUpdating table statistics...")
	if _, err = tx.Exec(ctx, "ANALYZE "+pgx.Identifier{table}.Sanitize()); err != nil {
		return fmt.Errorf("failed to analyze table %s: %w", table, err)
	}
	fmt.Println(" ✅")

	fmt.Printf("💾\tCommitting transaction...")
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	fmt.Println(" ✅")

	return nil
}

func formatNumber(n int) string {
	if n >= million {
		return fmt.Sprintf("%.1fM", float64(n)/float64(million))
	} else if n >= hundredThousand {
		return fmt.Sprintf("%.0fK", float64(n)/1000)
	} else if n >= tenThousand {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return strconv.Itoa(n)
}
