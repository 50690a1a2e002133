package seasonal

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westtrac/parts-insights/internal/domain"
)

func patternSet(prefix string, n int) map[string]domain.SeasonalPattern {
	out := make(map[string]domain.SeasonalPattern, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%d", prefix, i)
		out[id] = domain.SeasonalPattern{EntityID: id, Level: domain.LevelPart, SeasonalIndex: []float64{1}}
	}
	return out
}

func TestStore_RebuildReplacesSlot(t *testing.T) {
	store := NewStore()
	assert.True(t, store.BuiltAt(domain.LevelPart).IsZero())

	require.NoError(t, store.Rebuild(domain.LevelPart, patternSet("old", 2), nil))
	require.NoError(t, store.Rebuild(domain.LevelPart, patternSet("new", 1), []domain.EntityFailure{
		{Level: domain.LevelPart, EntityID: "P9", Kind: domain.FailureDivisionUndefined},
	}))

	_, ok := store.Pattern(domain.LevelPart, "old-0")
	assert.False(t, ok)
	_, ok = store.Pattern(domain.LevelPart, "new-0")
	assert.True(t, ok)
	assert.Len(t, store.Failures(domain.LevelPart), 1)
	assert.False(t, store.BuiltAt(domain.LevelPart).IsZero())

	assert.Empty(t, store.Patterns(domain.LevelCategory))
	assert.Error(t, store.Rebuild("machine_level", nil, nil))
}

func TestStore_RebuildCopiesInput(t *testing.T) {
	store := NewStore()
	patterns := patternSet("p", 1)
	require.NoError(t, store.Rebuild(domain.LevelGlobal, patterns, nil))

	delete(patterns, "p-0")

	_, ok := store.Pattern(domain.LevelGlobal, "p-0")
	assert.True(t, ok)
}

func TestStore_SnapshotKeysAreLevelNames(t *testing.T) {
	store := NewStore()
	store.Load(&domain.SeasonalAnalysis{
		Levels: map[domain.Level]domain.LevelAnalysis{
			domain.LevelPart: {Patterns: patternSet("p", 2)},
		},
	})

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Len(t, snapshot[domain.LevelPart], 2)
	assert.Empty(t, snapshot[domain.LevelCategory])
	assert.Empty(t, snapshot[domain.LevelGlobal])
}

func TestStore_ConcurrentReadersSeeWholeSlots(t *testing.T) {
	store := NewStore()
	sets := []map[string]domain.SeasonalPattern{patternSet("a", 20), patternSet("b", 20)}
	require.NoError(t, store.Rebuild(domain.LevelPart, sets[0], nil))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_ = store.Rebuild(domain.LevelPart, sets[i%2], nil)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snapshot := store.Patterns(domain.LevelPart)
				assert.Len(t, snapshot, 20)
				_, hasA := snapshot["a-0"]
				_, hasB := snapshot["b-0"]
				assert.True(t, hasA != hasB)
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(stop)
	wg.Wait()
}
