package postgresengine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/postgresengine"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/testutil/postgresengine/helper"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/testutil/postgresengine/helper/postgreswrapper"
)

const benchmarkNumNodes = 20000

func Benchmark_ReadNodes_FullSnapshot_ByFetchSize(b *testing.B) {
	// setup
	ctx := context.Background()
	table := helper.GivenUniqueTableName("bench_nodes")

	loader := postgreswrapper.CreateWrapperWithTestConfig(b)
	b.Cleanup(loader.Close)

	// arrange
	helper.GivenNodesTable(b, ctx, loader, table)
	helper.GivenNodeRevisions(b, ctx, loader, table, helper.GenerateNodeHistory(helper.DefaultHistoryConfig(1, benchmarkNumNodes))...)
	require.NoError(b, loader.Exec(ctx, "ANALYZE "+table))

	instant := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, fetchSize := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("fetch size %d", fetchSize), func(b *testing.B) {
			wrapper := postgreswrapper.CreateWrapperWithTestConfig(
				b,
				postgresengine.WithNodesTableName(table),
				postgresengine.WithFetchSize(fetchSize),
			)
			defer wrapper.Close()
			reader := wrapper.GetReader()

			// act
			b.ResetTimer()
			var readTime time.Duration
			var emitted int

			for i := 0; i < b.N; i++ {
				start := time.Now()
				stream, err := reader.ReadNodes(ctx, instant)
				require.NoError(b, err)

				for stream.Next(ctx) {
					emitted++
				}

				readTime += time.Since(start)
				require.NoError(b, stream.Err())
			}

			b.ReportMetric(float64(readTime.Milliseconds())/float64(b.N), "ms/read-op")
			b.ReportMetric(float64(emitted)/float64(b.N), "entities/read-op")
		})
	}
}
