package isolation

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAcquire_CreatesScratchDirAndReleaseRemovesIt(t *testing.T) {
	unit, release, err := Acquire(context.Background(), "x = 1")
	require.NoError(t, err)
	require.DirExists(t, unit.Dir)
	assert.Contains(t, unit.ID, "mcp_temp_")

	release()
	_, err = os.Stat(unit.Dir)
	assert.True(t, os.IsNotExist(err))
}

func TestAcquire_AssignsUniqueIdentifiers(t *testing.T) {
	u1, release1, err := Acquire(context.Background(), "a")
	require.NoError(t, err)
	defer release1()

	u2, release2, err := Acquire(context.Background(), "b")
	require.NoError(t, err)
	defer release2()

	assert.NotEqual(t, u1.ID, u2.ID)
	assert.NotEqual(t, u1.Dir, u2.Dir)
}

func TestRelease_IsIdempotent(t *testing.T) {
	unit, release, err := Acquire(context.Background(), "x")
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		release()
		release()
	})
	_, found := Lookup(unit.ID)
	assert.False(t, found)
}

// I1-style invariant: concurrent acquisitions never share a directory
// or collide on an identifier.
func TestAcquire_ConcurrentUnitsAreIsolated(t *testing.T) {
	const n = 32
	var wg sync.WaitGroup
	dirs := make(chan string, n)
	ids := make(chan string, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unit, release, err := Acquire(context.Background(), "pass")
			require.NoError(t, err)
			defer release()
			dirs <- unit.Dir
			ids <- unit.ID
		}()
	}
	wg.Wait()
	close(dirs)
	close(ids)

	seenDirs := map[string]bool{}
	for d := range dirs {
		assert.False(t, seenDirs[d], "duplicate scratch dir %s", d)
		seenDirs[d] = true
	}
	seenIDs := map[string]bool{}
	for id := range ids {
		assert.False(t, seenIDs[id], "duplicate unit id %s", id)
		seenIDs[id] = true
	}
}

func TestSweep_ForceReleasesOrphanedUnits(t *testing.T) {
	unit, _, err := Acquire(context.Background(), "orphan")
	require.NoError(t, err)

	Sweep()

	_, found := Lookup(unit.ID)
	assert.False(t, found)
	_, statErr := os.Stat(unit.Dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAcquire_RejectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Acquire(ctx, "x")
	assert.Error(t, err)
}

func TestCount_TracksLiveUnits(t *testing.T) {
	before := Count()
	_, release, err := Acquire(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, before+1, Count())
	release()
	assert.Equal(t, before, Count())
}
