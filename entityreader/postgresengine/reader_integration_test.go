package postgresengine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/postgresengine"
	"github.com/AntonStoeckl/snapshot-entity-reader-go/entityreader/tags"
	. "github.com/AntonStoeckl/snapshot-entity-reader-go/testutil/postgresengine/helper"                 //nolint:revive
	. "github.com/AntonStoeckl/snapshot-entity-reader-go/testutil/postgresengine/helper/postgreswrapper" //nolint:revive
)

var (
	dbSnapshot = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	dbBefore1  = dbSnapshot.Add(-72 * time.Hour)
	dbBefore2  = dbSnapshot.Add(-48 * time.Hour)
	dbBefore3  = dbSnapshot.Add(-24 * time.Hour)
	dbAfter    = dbSnapshot.Add(24 * time.Hour)
)

func givenNodesReader(t *testing.T, ctx context.Context, options ...postgresengine.Option) (Wrapper, string) { //nolint:revive
	table := GivenUniqueTableName("nodes")
	wrapper := CreateWrapperWithTestConfig(t, append([]postgresengine.Option{postgresengine.WithNodesTableName(table)}, options...)...)
	t.Cleanup(wrapper.Close)

	GivenNodesTable(t, ctx, wrapper, table)

	return wrapper, table
}

func Test_Integration_ReadNodes_EmitsTheLatestVisibleRevisionBeforeTheSnapshot(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper, table := givenNodesReader(t, ctxWithTimeout)
	reader := wrapper.GetReader()

	// arrange
	GivenNodeRevisions(t, ctxWithTimeout, wrapper, table,
		VisibleNode(1, dbBefore1, "name=first"),
		VisibleNode(1, dbBefore2, "name=second"),
		VisibleNode(1, dbAfter, "name=future"),
		VisibleNode(2, dbBefore1, "name=deleted later"),
		DeletedNode(2, dbBefore3),
		VisibleNode(3, dbSnapshot, "name=exactly at the snapshot"),
		VisibleNode(4, dbBefore3, "name=only"),
		DeletedNode(5, dbBefore1),
		VisibleNode(5, dbBefore2, "name=restored"),
		VisibleNode(6, dbAfter, "name=created later"),
	)

	// act
	stream, err := reader.ReadNodes(ctxWithTimeout, dbSnapshot)
	require.NoError(t, err)
	nodes, err := stream.Collect(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	require.Equal(t, []entityreader.EntityIDUint{1, 4, 5}, nodeIDs(nodes))

	assert.True(t, nodes[0].Timestamp.Equal(dbBefore2))
	assert.Equal(t, map[string]string{"name": "second"}, nodes[0].Tags.Map())
	assert.InDelta(t, 0.1, nodes[0].Latitude, 1e-9)
	assert.InDelta(t, 0.05, nodes[0].Longitude, 1e-9)
	assert.Equal(t, map[string]string{"name": "only"}, nodes[1].Tags.Map())
	assert.Equal(t, map[string]string{"name": "restored"}, nodes[2].Tags.Map())
}

func Test_Integration_ReadNodes_WithSubMicrosecondSnapshot_KeepsTheStrictCut(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper, table := givenNodesReader(t, ctxWithTimeout)
	reader := wrapper.GetReader()

	revisionTS := time.Date(2024, 1, 1, 12, 0, 0, 1000, time.UTC)

	// arrange
	GivenNodeRevisions(t, ctxWithTimeout, wrapper, table,
		VisibleNode(1, revisionTS, "name=at the microsecond"),
		VisibleNode(2, revisionTS.Add(time.Microsecond), "name=one microsecond later"),
	)

	testCases := []struct {
		name     string
		snapshot time.Time
		expected []entityreader.EntityIDUint
	}{
		{name: "500ns after the revision", snapshot: revisionTS.Add(500 * time.Nanosecond), expected: []entityreader.EntityIDUint{1}},
		{name: "1ns after the revision", snapshot: revisionTS.Add(time.Nanosecond), expected: []entityreader.EntityIDUint{1}},
		{name: "exactly at the revision", snapshot: revisionTS, expected: []entityreader.EntityIDUint{}},
		{name: "1ns before the next revision", snapshot: revisionTS.Add(time.Microsecond - time.Nanosecond), expected: []entityreader.EntityIDUint{1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			stream, err := reader.ReadNodes(ctxWithTimeout, tc.snapshot)
			require.NoError(t, err)
			nodes, err := stream.Collect(ctxWithTimeout)

			// assert
			require.NoError(t, err)
			assert.Equal(t, tc.expected, nodeIDs(nodes))
		})
	}
}

func Test_Integration_ReadNodes_EmitsAscendingIdentifiers_IndependentOfTheInsertOrder(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper, table := givenNodesReader(t, ctxWithTimeout)

	// arrange
	GivenNodeRevisions(t, ctxWithTimeout, wrapper, table,
		VisibleNode(42, dbBefore1, ""),
		VisibleNode(7, dbBefore1, ""),
		VisibleNode(1000000000000, dbBefore1, ""),
		VisibleNode(0, dbBefore1, ""),
		VisibleNode(8, dbBefore1, ""),
	)

	// act
	stream, err := wrapper.GetReader().ReadNodes(ctxWithTimeout, dbSnapshot)
	require.NoError(t, err)
	nodes, err := stream.Collect(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []entityreader.EntityIDUint{0, 7, 8, 42, 1000000000000}, nodeIDs(nodes))
}

func Test_Integration_ReadNodes_YieldsTheSameEntities_ForEveryFetchSize(t *testing.T) {
	for _, fetchSize := range []int{1, 2, 3, 1000} {
		t.Run(fmt.Sprintf("fetch size %d", fetchSize), func(t *testing.T) {
			// setup
			ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			wrapper, table := givenNodesReader(t, ctxWithTimeout, postgresengine.WithFetchSize(fetchSize))

			// arrange
			GivenNodeRevisions(t, ctxWithTimeout, wrapper, table,
				VisibleNode(1, dbBefore1, ""),
				VisibleNode(2, dbBefore1, ""),
				VisibleNode(3, dbBefore1, ""),
				VisibleNode(4, dbBefore1, ""),
				VisibleNode(5, dbBefore1, ""),
				VisibleNode(6, dbBefore1, ""),
			)

			// act
			stream, err := wrapper.GetReader().ReadNodes(ctxWithTimeout, dbSnapshot)
			require.NoError(t, err)
			nodes, err := stream.Collect(ctxWithTimeout)

			// assert
			require.NoError(t, err)
			assert.Equal(t, []entityreader.EntityIDUint{1, 2, 3, 4, 5, 6}, nodeIDs(nodes))
		})
	}
}

func Test_Integration_ReadNodes_OfAnEmptyTable_IsEmpty(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper, _ := givenNodesReader(t, ctxWithTimeout)

	// act
	stream, err := wrapper.GetReader().ReadNodes(ctxWithTimeout, dbSnapshot)
	require.NoError(t, err)
	nodes, err := stream.Collect(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func Test_Integration_ReadNodes_MapsNullTags_ToEmptyTags(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper, table := givenNodesReader(t, ctxWithTimeout)

	// arrange
	GivenNodeRevisions(t, ctxWithTimeout, wrapper, table,
		NodeRevision{ID: 9, Timestamp: dbBefore1, Latitude: -33.86, Longitude: 151.21, Visible: true},
	)

	// act
	stream, err := wrapper.GetReader().ReadNodes(ctxWithTimeout, dbSnapshot)
	require.NoError(t, err)
	nodes, err := stream.Collect(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Empty(t, nodes[0].Tags)
	assert.InDelta(t, -33.86, nodes[0].Latitude, 1e-9)
}

func Test_Integration_ReadNodes_WithJSONTags(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper, table := givenNodesReader(t, ctxWithTimeout, postgresengine.WithTagParser(tags.ParseJSON))

	// arrange
	GivenNodeRevisions(t, ctxWithTimeout, wrapper, table,
		VisibleNode(1, dbBefore1, `{"amenity":"cafe","name":"Corner; Cafe = good"}`),
	)

	// act
	stream, err := wrapper.GetReader().ReadNodes(ctxWithTimeout, dbSnapshot)
	require.NoError(t, err)
	nodes, err := stream.Collect(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, entityreader.Tags{{Key: "amenity", Value: "cafe"}, {Key: "name", Value: "Corner; Cafe = good"}}, nodes[0].Tags)
}

func Test_Integration_ReadSegments_EmitsTheLatestVisibleRevisionBeforeTheSnapshot(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := GivenUniqueTableName("segments")
	wrapper := CreateWrapperWithTestConfig(t, postgresengine.WithSegmentsTableName(table), postgresengine.WithFetchSize(2))
	t.Cleanup(wrapper.Close)

	GivenSegmentsTable(t, ctxWithTimeout, wrapper, table)

	// arrange
	GivenSegmentRevisions(t, ctxWithTimeout, wrapper, table,
		VisibleSegment(3, dbBefore1, 30, 31, "highway=path"),
		VisibleSegment(1, dbBefore1, 10, 11, "highway=residential"),
		VisibleSegment(1, dbBefore2, 10, 12, "highway=primary"),
		VisibleSegment(2, dbAfter, 20, 21, "highway=future"),
		SegmentRevision{ID: 4, Timestamp: dbBefore1, NodeA: 40, NodeB: 41, Visible: true},
		SegmentRevision{ID: 4, Timestamp: dbBefore2, NodeA: 40, NodeB: 41, Visible: false},
	)

	// act
	stream, err := wrapper.GetReader().ReadSegments(ctxWithTimeout, dbSnapshot)
	require.NoError(t, err)
	segments, err := stream.Collect(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, entityreader.EntityIDUint(1), segments[0].ID)
	assert.Equal(t, entityreader.EntityIDUint(10), segments[0].NodeA)
	assert.Equal(t, entityreader.EntityIDUint(12), segments[0].NodeB)
	assert.Equal(t, map[string]string{"highway": "primary"}, segments[0].Tags.Map())

	assert.Equal(t, entityreader.EntityIDUint(3), segments[1].ID)
	assert.True(t, segments[1].Timestamp.Equal(dbBefore1))
}

func Test_Integration_ReadNodes_CanBeRepeated_AfterClosingEarly(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper, table := givenNodesReader(t, ctxWithTimeout, postgresengine.WithFetchSize(1))
	reader := wrapper.GetReader()

	// arrange
	GivenNodeRevisions(t, ctxWithTimeout, wrapper, table,
		VisibleNode(1, dbBefore1, ""),
		VisibleNode(2, dbBefore1, ""),
		VisibleNode(3, dbBefore1, ""),
	)

	firstPass, err := reader.ReadNodes(ctxWithTimeout, dbSnapshot)
	require.NoError(t, err)
	require.True(t, firstPass.Next(ctxWithTimeout))

	// act
	closeErr := firstPass.Close()
	secondPass, err := reader.ReadNodes(ctxWithTimeout, dbSnapshot)
	require.NoError(t, err)
	nodes, err := secondPass.Collect(ctxWithTimeout)

	// assert
	assert.NoError(t, closeErr)
	assert.False(t, firstPass.Next(ctxWithTimeout))
	require.NoError(t, err)
	assert.Equal(t, []entityreader.EntityIDUint{1, 2, 3}, nodeIDs(nodes))
}

func Test_Integration_ReadNodes_SeesAConsistentSnapshot_WhileRevisionsAreAdded(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wrapper, table := givenNodesReader(t, ctxWithTimeout, postgresengine.WithFetchSize(1))

	// arrange
	GivenNodeRevisions(t, ctxWithTimeout, wrapper, table,
		VisibleNode(1, dbBefore1, ""),
		VisibleNode(3, dbBefore1, ""),
	)

	stream, err := wrapper.GetReader().ReadNodes(ctxWithTimeout, dbSnapshot)
	require.NoError(t, err)
	require.True(t, stream.Next(ctxWithTimeout))

	// act
	GivenNodeRevisions(t, ctxWithTimeout, wrapper, table, VisibleNode(2, dbBefore1, ""))
	GivenNodeRevisions(t, ctxWithTimeout, wrapper, table, VisibleNode(4, dbBefore1, ""))
	rest, err := stream.Collect(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []entityreader.EntityIDUint{3}, nodeIDs(rest))
}

func Test_Integration_ReadNodes_WithEventualConsistency_IsRoutedToTheReplica(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := GivenUniqueTableName("nodes")
	wrapper := CreateWrapperWithReplicaRouting(t, postgresengine.WithNodesTableName(table))
	t.Cleanup(wrapper.Close)

	GivenNodesTable(t, ctxWithTimeout, wrapper, table)

	// arrange
	GivenNodeRevisions(t, ctxWithTimeout, wrapper, table,
		VisibleNode(1, dbBefore1, ""),
		VisibleNode(2, dbBefore1, ""),
	)

	// act
	stream, err := wrapper.GetReader().ReadNodes(entityreader.WithEventualConsistency(ctxWithTimeout), dbSnapshot)
	require.NoError(t, err)
	nodes, err := stream.Collect(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []entityreader.EntityIDUint{1, 2}, nodeIDs(nodes))
}

func Test_Integration_ReadNodes_MatchesTheReferenceSnapshot_OfAGeneratedHistory(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wrapper, table := givenNodesReader(t, ctxWithTimeout, postgresengine.WithFetchSize(97))
	reader := wrapper.GetReader()

	// arrange
	history := GenerateNodeHistory(DefaultHistoryConfig(42, 500))
	GivenNodeRevisions(t, ctxWithTimeout, wrapper, table, history...)

	instants := []time.Time{
		time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	for _, instant := range instants {
		t.Run(instant.Format(time.DateOnly), func(t *testing.T) {
			expected := ReferenceNodeSnapshot(history, instant)

			// act
			stream, err := reader.ReadNodes(ctxWithTimeout, instant)
			require.NoError(t, err)
			nodes, err := stream.Collect(ctxWithTimeout)

			// assert
			require.NoError(t, err)
			require.Len(t, nodes, len(expected))

			for i, node := range nodes {
				assert.Equal(t, entityreader.EntityIDUint(expected[i].ID), node.ID)
				assert.True(t, node.Timestamp.Equal(expected[i].Timestamp), "timestamp of node %d", node.ID)
				assert.InDelta(t, expected[i].Latitude, node.Latitude, 1e-9)
				assert.Equal(t, tags.ParseEmbedded(*expected[i].Tags), node.Tags)
			}
		})
	}
}
