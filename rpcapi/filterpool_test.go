package rpcapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterPoolInstallGetRemove(t *testing.T) {
	pool := newFilterPool()
	id, evicted := pool.newFilterID()
	require.False(t, evicted)

	pool.install(id, &filterEntry{kind: filterLogs, atBlock: 10, lastPollBlock: 10})

	entry, ok := pool.get(id)
	require.True(t, ok)
	require.Equal(t, filterLogs, entry.kind)

	pool.touch(id, 12)
	entry, _ = pool.get(id)
	require.Equal(t, uint32(12), entry.lastPollBlock)

	require.True(t, pool.remove(id))
	_, ok = pool.get(id)
	require.False(t, ok)
}

func TestFilterPoolEvictsOldestAtCapacity(t *testing.T) {
	pool := newFilterPool()
	var ids []string
	for i := 0; i < MaxStoredFilters; i++ {
		id, evicted := pool.newFilterID()
		require.False(t, evicted)
		pool.install(id, &filterEntry{kind: filterLogs})
		ids = append(ids, id.String())
	}

	_, evicted := pool.newFilterID()
	require.True(t, evicted)
	require.Len(t, pool.order, MaxStoredFilters)

	_, ok := pool.entries[ids[0]]
	require.False(t, ok, "oldest entry should have been evicted")
}

func TestFilterPoolSweepRemovesStale(t *testing.T) {
	pool := newFilterPool()
	id, _ := pool.newFilterID()
	pool.install(id, &filterEntry{kind: filterLogs, atBlock: 10})

	pool.sweep(10 + RetainThreshold - 1)
	_, ok := pool.get(id)
	require.True(t, ok, "not stale yet")

	pool.sweep(10 + RetainThreshold)
	_, ok = pool.get(id)
	require.False(t, ok, "should be reaped once at_block+RetainThreshold <= latest")
}
