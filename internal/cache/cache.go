package cache

import (
	"sync"

	"github.com/angeloszaimis/health-validator/internal/healthcheck"
)

// Change describes a status transition caused by a merge. Known is false the
// first time a service is seen.
type Change struct {
	Service string
	From    healthcheck.Status
	To      healthcheck.Status
	Known   bool
}

type Cache struct {
	mutex    sync.RWMutex
	services map[string]healthcheck.ServiceHealthInfo
}

func New() *Cache {
	return &Cache{
		services: make(map[string]healthcheck.ServiceHealthInfo),
	}
}

// Get returns the cached result for one service.
func (c *Cache) Get(name string) (healthcheck.ServiceHealthInfo, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	info, ok := c.services[name]
	return info, ok
}

// GetAll returns a copy of every cached entry.
func (c *Cache) GetAll() map[string]healthcheck.ServiceHealthInfo {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	snapshot := make(map[string]healthcheck.ServiceHealthInfo, len(c.services))
	for name, info := range c.services {
		snapshot[name] = info
	}
	return snapshot
}

// PutMany sets or replaces the given entries. Keys absent from results are
// left alone.
func (c *Cache) PutMany(results map[string]healthcheck.ServiceHealthInfo) {
	c.Merge(results)
}

// Merge behaves like PutMany and reports every entry whose status differs from
// what was cached before, including services seen for the first time.
func (c *Cache) Merge(results map[string]healthcheck.ServiceHealthInfo) []Change {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var changes []Change
	for name, info := range results {
		prev, known := c.services[name]
		if !known || prev.Status != info.Status {
			changes = append(changes, Change{
				Service: name,
				From:    prev.Status,
				To:      info.Status,
				Known:   known,
			})
		}
		c.services[name] = info
	}

	return changes
}

// Len returns the number of cached services.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.services)
}
