package voltalis

import "sync"

// Cache holds the auth token and the default site id of one client.
type Cache struct {
	mutex  sync.RWMutex
	values map[string]string
}

func newCache() *Cache {
	return &Cache{
		values: map[string]string{
			AuthToken:     "",
			DefaultSiteID: "",
		},
	}
}

// Get returns the cached value for key, or an empty string.
func (c *Cache) Get(key string) string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.values[key]
}

func (c *Cache) Set(key string, value string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.values[key] = value
}
