package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// HTTPCache is a gregjones/httpcache.Cache backed by its own SQLite file,
// mirroring the separate HTTP-response database the tool has always kept next
// to the structured cache. Entries older than the TTL are treated as misses
// and deleted lazily.
type HTTPCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewHTTPCache opens the HTTP response cache at path. A ttl of zero disables
// expiry.
func NewHTTPCache(path string, ttl time.Duration) (*HTTPCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening http cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS http_cache (
            key TEXT PRIMARY KEY,
            value BLOB,
            created_at INTEGER
        )`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error initialising http cache schema: %w", err)
	}
	return &HTTPCache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get implements httpcache.Cache.
func (c *HTTPCache) Get(key string) ([]byte, bool) {
	var value []byte
	var createdAt int64
	err := c.db.QueryRow(`SELECT value, created_at FROM http_cache WHERE key = ?`, key).
		Scan(&value, &createdAt)
	if err != nil {
		return nil, false
	}
	if c.ttl > 0 && c.now().Unix()-createdAt > int64(c.ttl.Seconds()) {
		c.Delete(key)
		return nil, false
	}
	return value, true
}

// Set implements httpcache.Cache.
func (c *HTTPCache) Set(key string, value []byte) {
	c.db.Exec(`
        INSERT INTO http_cache (key, value, created_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value, created_at=excluded.created_at`,
		key, value, c.now().Unix())
}

// Delete implements httpcache.Cache.
func (c *HTTPCache) Delete(key string) {
	c.db.Exec(`DELETE FROM http_cache WHERE key = ?`, key)
}

func (c *HTTPCache) Close() error {
	return c.db.Close()
}
