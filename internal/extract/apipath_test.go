package extract

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIPathCell(t *testing.T) {
	var c APIPathCell

	_, ok := c.Get()
	assert.False(t, ok)

	c.Set("")
	_, ok = c.Get()
	assert.False(t, ok, "empty path must not be stored")

	c.Set("/ftor")
	got, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, "/ftor", got)

	assert.False(t, c.InvalidateIf("/old"), "a refreshed path survives a stale invalidation")
	got, _ = c.Get()
	assert.Equal(t, "/ftor", got)

	assert.True(t, c.InvalidateIf("/ftor"))
	_, ok = c.Get()
	assert.False(t, ok)

	c.Set("/x")
	c.Reset()
	_, ok = c.Get()
	assert.False(t, ok)
}

func TestAPIPathCellConcurrent(t *testing.T) {
	var c APIPathCell
	paths := []string{"/a", "/bb", "/ccc"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Set(paths[i%len(paths)])
		}(i)
		go func(i int) {
			defer wg.Done()
			c.InvalidateIf(paths[i%len(paths)])
		}(i)
	}
	wg.Wait()

	if got, ok := c.Get(); ok {
		assert.Contains(t, paths, got)
	}
}
