package network

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultFreshness applies to responses that carry no explicit expiry.
const defaultFreshness = 5 * time.Minute

// CacheEntry represents a cached HTTP response.
type CacheEntry struct {
	Response  *Response
	MaxAge    time.Duration
	HasMaxAge bool // Whether max-age was explicitly set (including 0)
	Expires   time.Time
	CachedAt  time.Time
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	if e.HasMaxAge {
		return time.Since(e.CachedAt) > e.MaxAge
	}
	if !e.Expires.IsZero() {
		return time.Now().After(e.Expires)
	}
	return time.Since(e.CachedAt) > defaultFreshness
}

// Cache keeps fetched script bodies, evicting the least recently used entry
// once full.
type Cache struct {
	entries *lru.Cache[string, *CacheEntry]
}

// NewCache creates a new cache with the specified maximum number of entries.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	entries, err := lru.New[string, *CacheEntry](maxSize)
	if err != nil {
		panic(err)
	}
	return &Cache{entries: entries}
}

// Get retrieves a cached response that has not expired. Expired entries are
// dropped.
func (c *Cache) Get(url string) (*CacheEntry, bool) {
	entry, ok := c.entries.Get(url)
	if !ok {
		return nil, false
	}
	if entry.IsExpired() {
		c.entries.Remove(url)
		return nil, false
	}
	return entry, true
}

// Set stores a response honouring Cache-Control and Expires. Responses
// marked no-store are not cached.
func (c *Cache) Set(url string, resp *Response) {
	headers := resp.Headers
	if headers == nil {
		headers = http.Header{}
	}

	cacheControl := headers.Get("Cache-Control")
	if hasDirective(cacheControl, "no-store") {
		return
	}

	entry := &CacheEntry{
		Response: resp,
		CachedAt: time.Now(),
	}
	entry.MaxAge, entry.HasMaxAge = parseMaxAge(cacheControl)
	if hasDirective(cacheControl, "no-cache") {
		entry.MaxAge, entry.HasMaxAge = 0, true
	}

	if !entry.HasMaxAge {
		if expires := headers.Get("Expires"); expires != "" {
			if t, err := http.ParseTime(expires); err == nil {
				entry.Expires = t
			}
		}
	}

	c.entries.Add(url, entry)
}

// Delete removes an entry from the cache.
func (c *Cache) Delete(url string) {
	c.entries.Remove(url)
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.entries.Purge()
}

// Size returns the number of entries in the cache.
func (c *Cache) Size() int {
	return c.entries.Len()
}

func parseMaxAge(cacheControl string) (time.Duration, bool) {
	for _, d := range splitDirectives(cacheControl) {
		name, value, ok := strings.Cut(d, "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		seconds, err := strconv.Atoi(strings.Trim(value, "\""))
		if err != nil || seconds < 0 {
			continue
		}
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}

func hasDirective(cacheControl, directive string) bool {
	for _, d := range splitDirectives(cacheControl) {
		if strings.EqualFold(d, directive) {
			return true
		}
	}
	return false
}

func splitDirectives(value string) []string {
	var result []string
	for _, d := range strings.Split(value, ",") {
		if d = strings.TrimSpace(d); d != "" {
			result = append(result, d)
		}
	}
	return result
}
