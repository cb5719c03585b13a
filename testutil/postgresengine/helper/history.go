package helper

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"time"
)

// HistoryConfig describes a generated revision history.
type HistoryConfig struct {
	Seed            uint64
	NumEntities     int
	MaxRevisions    int
	DeletePercent   int
	Start           time.Time
	MaxRevisionStep time.Duration
}

// DefaultHistoryConfig returns a history with up to 4 revisions per entity,
// of which roughly every tenth is a deletion, spread over about a year.
func DefaultHistoryConfig(seed uint64, numEntities int) HistoryConfig {
	return HistoryConfig{
		Seed:            seed,
		NumEntities:     numEntities,
		MaxRevisions:    4,
		DeletePercent:   10,
		Start:           time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxRevisionStep: 90 * 24 * time.Hour,
	}
}

// GenerateNodeHistory returns a deterministic node revision history for config.
// Identifiers start at 1, revisions of one node have strictly increasing whole-second timestamps,
// and the rows are shuffled so that the insert order does not follow the identifier order.
func GenerateNodeHistory(config HistoryConfig) []NodeRevision {
	random := rand.New(rand.NewPCG(config.Seed, config.Seed^0x5eed))
	revisions := make([]NodeRevision, 0, config.NumEntities*config.MaxRevisions)

	for id := int64(1); id <= int64(config.NumEntities); id++ {
		timestamp := config.Start
		numRevisions := random.IntN(config.MaxRevisions) + 1

		for range numRevisions {
			timestamp = timestamp.Add(time.Second + randomStep(random, config.MaxRevisionStep))

			if random.IntN(100) < config.DeletePercent {
				revisions = append(revisions, DeletedNode(id, timestamp))
				continue
			}

			tags := "name=node " + strconv.FormatInt(id, 10) + ";revision=" + timestamp.Format(time.RFC3339)
			revision := VisibleNode(id, timestamp, tags)
			revision.Latitude = random.Float64()*180 - 90
			revision.Longitude = random.Float64()*360 - 180
			revisions = append(revisions, revision)
		}
	}

	random.Shuffle(len(revisions), func(i, j int) {
		revisions[i], revisions[j] = revisions[j], revisions[i]
	})

	return revisions
}

// GenerateSegmentHistory returns a deterministic segment revision history for config,
// connecting nodes with identifiers in [1, numNodes].
func GenerateSegmentHistory(config HistoryConfig, numNodes int) []SegmentRevision {
	random := rand.New(rand.NewPCG(config.Seed, config.Seed^0x5e9))
	revisions := make([]SegmentRevision, 0, config.NumEntities*config.MaxRevisions)

	for id := int64(1); id <= int64(config.NumEntities); id++ {
		timestamp := config.Start
		numRevisions := random.IntN(config.MaxRevisions) + 1

		for range numRevisions {
			timestamp = timestamp.Add(time.Second + randomStep(random, config.MaxRevisionStep))
			nodeA := random.Int64N(int64(numNodes)) + 1
			nodeB := random.Int64N(int64(numNodes)) + 1

			if random.IntN(100) < config.DeletePercent {
				revisions = append(revisions, SegmentRevision{ID: id, Timestamp: timestamp, NodeA: nodeA, NodeB: nodeB})
				continue
			}

			revisions = append(revisions, VisibleSegment(id, timestamp, nodeA, nodeB, "highway=residential"))
		}
	}

	random.Shuffle(len(revisions), func(i, j int) {
		revisions[i], revisions[j] = revisions[j], revisions[i]
	})

	return revisions
}

// ReferenceNodeSnapshot computes in memory which node revisions a snapshot read at instant must yield,
// in ascending identifier order.
func ReferenceNodeSnapshot(revisions []NodeRevision, instant time.Time) []NodeRevision {
	latest := make(map[int64]NodeRevision)
	for _, revision := range revisions {
		if !revision.Timestamp.Before(instant) {
			continue
		}

		if current, exists := latest[revision.ID]; !exists || revision.Timestamp.After(current.Timestamp) {
			latest[revision.ID] = revision
		}
	}

	snapshot := make([]NodeRevision, 0, len(latest))
	for _, revision := range latest {
		if revision.Visible {
			snapshot = append(snapshot, revision)
		}
	}

	slices.SortFunc(snapshot, func(a, b NodeRevision) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	return snapshot
}

func randomStep(random *rand.Rand, maxStep time.Duration) time.Duration {
	seconds := int64(maxStep / time.Second)
	if seconds <= 0 {
		return 0
	}

	return time.Duration(random.Int64N(seconds)) * time.Second
}
