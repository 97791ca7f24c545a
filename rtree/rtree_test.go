package rtree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesCapacity(t *testing.T) {
	tree, err := New(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())

	_, err = New(4, 3)
	assert.Error(t, err)

	_, err = New(4, 0)
	require.NoError(t, err)

	_, err = New(16, 8)
	assert.NoError(t, err)
}

func TestSearchFindsEveryInsertedPoint(t *testing.T) {
	tree, err := New(4, 2)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(42))
	boxes := make([]Box, 100)
	for i := range boxes {
		boxes[i] = PointBox(rng.Float64()*1000, rng.Float64()*1000)
		tree.Insert(Entry{Box: boxes[i], ID: int32(i)})
	}
	assert.Equal(t, 100, tree.Len())

	global := Box{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000}
	found := tree.Search(global)
	require.Len(t, found, 100)
	seen := make(map[int32]bool)
	for _, entry := range found {
		seen[entry.ID] = true
	}
	assert.Len(t, seen, 100)
}

func TestSearchHasNoFalseNegatives(t *testing.T) {
	tree, err := New(4, 2)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(7))
	boxes := make([]Box, 200)
	for i := range boxes {
		x := rng.Float64() * 100
		y := rng.Float64() * 100
		boxes[i] = Box{MinX: x, MinY: y, MaxX: x + rng.Float64()*10, MaxY: y + rng.Float64()*10}
		tree.Insert(Entry{Box: boxes[i], ID: int32(i)})
	}
	queries := []Box{
		{MinX: 10, MinY: 10, MaxX: 30, MaxY: 30},
		{MinX: 0, MinY: 0, MaxX: 5, MaxY: 5},
		{MinX: 50, MinY: 50, MaxX: 100, MaxY: 100},
		PointBox(25, 25),
	}
	for _, query := range queries {
		found := make(map[int32]bool)
		for _, entry := range tree.Search(query) {
			found[entry.ID] = true
			assert.True(t, entry.Box.Intersects(query))
		}
		for i, box := range boxes {
			if box.Intersects(query) {
				assert.True(t, found[int32(i)], "entry %d intersecting %+v missing from result", i, query)
			}
		}
	}
}

func TestSearchPoint(t *testing.T) {
	tree, err := New(4, 2)
	require.NoError(t, err)
	tree.Insert(Entry{Box: Box{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}, ID: 1})
	tree.Insert(Entry{Box: Box{MinX: 20, MinY: 20, MaxX: 30, MaxY: 30}, ID: 2})

	found := tree.SearchPoint(5, 5)
	require.Len(t, found, 1)
	assert.Equal(t, int32(1), found[0].ID)

	assert.Empty(t, tree.SearchPoint(15, 15))
}

func TestNearestSortedByDistance(t *testing.T) {
	tree, err := New(4, 2)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 100; i++ {
		tree.Insert(Entry{Box: PointBox(rng.Float64()*1000-500, rng.Float64()*1000-500), ID: int32(i)})
	}
	nearest := tree.Nearest(0, 0, 5)
	require.Len(t, nearest, 5)
	previous := -1.0
	for _, entry := range nearest {
		distance := math.Hypot(entry.Box.MinX, entry.Box.MinY)
		assert.GreaterOrEqual(t, distance, previous)
		previous = distance
	}

	// Requesting more entries than exist returns them all.
	assert.Len(t, tree.Nearest(0, 0, 1000), 100)
	assert.Nil(t, tree.Nearest(0, 0, 0))
}

func TestNearestIsExact(t *testing.T) {
	tree, err := New(4, 2)
	require.NoError(t, err)
	points := []Box{
		PointBox(1, 0),
		PointBox(0, 2),
		PointBox(3, 3),
		PointBox(-1, -1),
		PointBox(10, 10),
	}
	for i, box := range points {
		tree.Insert(Entry{Box: box, ID: int32(i)})
	}
	nearest := tree.Nearest(0, 0, 2)
	require.Len(t, nearest, 2)
	assert.Equal(t, int32(0), nearest[0].ID)
	assert.Equal(t, int32(3), nearest[1].ID)
}

func TestInsertionOrderPreservedInLeaves(t *testing.T) {
	tree, err := New(16, 4)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		tree.Insert(Entry{Box: PointBox(float64(i), 0), ID: int32(i)})
	}
	// Below the split threshold a single leaf keeps insertion order.
	found := tree.Search(Box{MinX: -1, MinY: -1, MaxX: 11, MaxY: 1})
	require.Len(t, found, 10)
	for i, entry := range found {
		assert.Equal(t, int32(i), entry.ID)
	}
}

func TestStats(t *testing.T) {
	tree, err := New(4, 2)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 64; i++ {
		tree.Insert(Entry{Box: PointBox(rng.Float64()*100, rng.Float64()*100), ID: int32(i)})
	}
	stats := tree.Stats()
	assert.Equal(t, 64, stats.Entries)
	assert.Greater(t, stats.Leaves, 1)
	assert.Greater(t, stats.Internals, 0)
	assert.Greater(t, stats.MaxDepth, 1)
	assert.InDelta(t, float64(stats.Entries)/float64(stats.Leaves), stats.EntriesPerLeaf, 1e-9)
	// The average leaf fill stays within the node capacity.
	assert.LessOrEqual(t, stats.EntriesPerLeaf, 4.0)
}

func TestEntryDataOwnership(t *testing.T) {
	tree, err := New(0, 0)
	require.NoError(t, err)
	payload := map[string]string{"name": "feature"}
	tree.Insert(Entry{Box: PointBox(1, 1), ID: 7, Data: payload})
	found := tree.SearchPoint(1, 1)
	require.Len(t, found, 1)
	assert.Equal(t, payload, found[0].Data)
}
