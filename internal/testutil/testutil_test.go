package testutil

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDs_CountsFromOne(t *testing.T) {
	ids := NewSequentialIDs()

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", ids.Generate())
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", ids.Generate())
	assert.Equal(t, int64(2), ids.Count())
}

func TestSequentialIDs_ParseAsUUID(t *testing.T) {
	ids := NewSequentialIDs()
	for range 20 {
		_, err := uuid.Parse(ids.Generate())
		require.NoError(t, err)
	}
}

func TestSequentialIDs_Reset(t *testing.T) {
	ids := NewSequentialIDs()
	ids.Generate()
	ids.Generate()

	ids.Reset()

	assert.Equal(t, int64(0), ids.Count())
	assert.Equal(t, ID(1), ids.Generate())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	ids := NewSequentialIDs()
	const goroutines = 50
	const perGoroutine = 20

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				id := ids.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, int64(goroutines*perGoroutine), ids.Count())
}

func TestNewGrid(t *testing.T) {
	g := NewGrid(t, "Sheet1", "Data")

	require.Len(t, g.Sheets(), 2)
	assert.Equal(t, "Sheet1", g.Sheet(SheetID(1)).Name())
	assert.Equal(t, "Data", g.Sheet(SheetID(2)).Name())

	id, ok := g.SheetByName("data")
	require.True(t, ok)
	assert.Equal(t, SheetID(2), id)
}

func TestNewGrid_DefaultSheet(t *testing.T) {
	g := NewGrid(t)

	require.Len(t, g.Sheets(), 1)
	assert.Equal(t, "Sheet1", g.Sheet(SheetID(1)).Name())
	assert.Equal(t, SheetID(1), At(1, 1).SheetID)
}
