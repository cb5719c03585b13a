package helper_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/AntonStoeckl/snapshot-entity-reader-go/testutil/postgresengine/helper" //nolint:revive
)

func Test_GenerateNodeHistory_IsDeterministic(t *testing.T) {
	// arrange
	config := DefaultHistoryConfig(7, 50)

	// act
	first := GenerateNodeHistory(config)
	second := GenerateNodeHistory(config)

	// assert
	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, len(first), 50)
	assert.LessOrEqual(t, len(first), 50*config.MaxRevisions)
}

func Test_GenerateNodeHistory_HasNoTwoRevisionsOfOneNode_AtTheSameInstant(t *testing.T) {
	// arrange
	config := DefaultHistoryConfig(11, 200)

	// act
	revisions := GenerateNodeHistory(config)

	// assert
	type key struct {
		id        int64
		timestamp time.Time
	}

	seen := make(map[key]bool)
	for _, revision := range revisions {
		k := key{id: revision.ID, timestamp: revision.Timestamp}
		require.False(t, seen[k], "duplicate revision for node %d", revision.ID)
		seen[k] = true
		assert.Equal(t, time.Duration(0), revision.Timestamp.Sub(revision.Timestamp.Truncate(time.Second)))
	}
}

func Test_ReferenceNodeSnapshot_KeepsTheLatestVisibleRevisionBeforeTheInstant(t *testing.T) {
	// arrange
	instant := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	revisions := []NodeRevision{
		VisibleNode(3, instant.Add(-time.Hour), "v=1"),
		VisibleNode(1, instant.Add(-2*time.Hour), "v=1"),
		VisibleNode(1, instant.Add(-time.Hour), "v=2"),
		VisibleNode(1, instant, "v=3"),
		VisibleNode(2, instant.Add(-2*time.Hour), "v=1"),
		DeletedNode(2, instant.Add(-time.Hour)),
	}

	// act
	snapshot := ReferenceNodeSnapshot(revisions, instant)

	// assert
	require.Len(t, snapshot, 2)
	assert.Equal(t, int64(1), snapshot[0].ID)
	assert.Equal(t, "v=2", *snapshot[0].Tags)
	assert.Equal(t, int64(3), snapshot[1].ID)
}
