package database

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ColumnCache holds table column lists of one database for a limited time.
// Concurrent lookups of the same table share a single query.
type ColumnCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]columnEntry
	sf      singleflight.Group
}

type columnEntry struct {
	columns []ColumnInfo
	built   time.Time
}

// NewColumnCache creates a cache whose entries expire after ttl.
// A zero ttl disables caching.
func NewColumnCache(ttl time.Duration) *ColumnCache {
	return &ColumnCache{
		ttl:     ttl,
		entries: make(map[string]columnEntry),
	}
}

func (c *ColumnCache) fresh(e columnEntry) bool {
	return c.ttl > 0 && time.Since(e.built) <= c.ttl
}

// Columns returns the columns of table, from the cache when fresh.
func (c *ColumnCache) Columns(ctx context.Context, db *gorm.DB, table string) ([]ColumnInfo, error) {
	c.mu.RLock()
	entry, ok := c.entries[table]
	c.mu.RUnlock()
	if ok && c.fresh(entry) {
		return entry.columns, nil
	}

	result, err, _ := c.sf.Do(table, func() (any, error) {
		// Double-check after acquiring the singleflight slot
		c.mu.RLock()
		entry, ok := c.entries[table]
		c.mu.RUnlock()
		if ok && c.fresh(entry) {
			return entry.columns, nil
		}

		cols, err := GetTableColumns(db.WithContext(ctx), table)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[table] = columnEntry{columns: cols, built: time.Now()}
		c.mu.Unlock()
		return cols, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]ColumnInfo), nil
}

// Invalidate drops the cached columns of table.
func (c *ColumnCache) Invalidate(table string) {
	c.mu.Lock()
	delete(c.entries, table)
	c.mu.Unlock()
}
