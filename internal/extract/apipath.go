package extract

import "sync"

// APIPathCell holds the Kodik API path discovered from the player script.
// A path is always read and written whole; concurrent refreshes resolve
// last-writer-wins.
type APIPathCell struct {
	mu   sync.RWMutex
	path string
}

// DefaultAPIPath is shared by every Kodik extractor built with Default.
var DefaultAPIPath = &APIPathCell{}

// Get returns the cached path and whether one is set.
func (c *APIPathCell) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path, c.path != ""
}

// Set stores path. Empty paths are ignored.
func (c *APIPathCell) Set(path string) {
	if path == "" {
		return
	}
	c.mu.Lock()
	c.path = path
	c.mu.Unlock()
}

// InvalidateIf clears the cell only if it still holds stale, so a call
// that failed with an old path cannot wipe a path another call just refreshed.
// It reports whether the cell was cleared.
func (c *APIPathCell) InvalidateIf(stale string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path != stale {
		return false
	}
	c.path = ""
	return true
}

// Reset clears the cell unconditionally.
func (c *APIPathCell) Reset() {
	c.mu.Lock()
	c.path = ""
	c.mu.Unlock()
}
