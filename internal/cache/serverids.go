// Package cache keeps lookups the sync path needs on every job.
package cache

import (
	"sync"

	"github.com/sitewalk/planmark/pkg/core"
)

// ServerIDs maps local project and drawing ids to the ids the backend assigned.
type ServerIDs struct {
	mu  sync.RWMutex
	ids map[core.ID]string
}

// NewServerIDs creates an empty cache.
func NewServerIDs() *ServerIDs {
	return &ServerIDs{
		ids: make(map[core.ID]string),
	}
}

// Get returns the server id of a local record.
func (c *ServerIDs) Get(local core.ID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[local]
	return id, ok
}

// Set stores the server id of a local record. An empty server id removes it.
func (c *ServerIDs) Set(local core.ID, server string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if server == "" {
		delete(c.ids, local)
		return
	}
	c.ids[local] = server
}

// Delete forgets a local record.
func (c *ServerIDs) Delete(local core.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, local)
}

// Len returns the number of cached ids.
func (c *ServerIDs) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

// Reset clears the cache
func (c *ServerIDs) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[core.ID]string)
}
