package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/nichescan/nichescan/internal/serp"
)

// SignalCache is a SQLite-backed serp.SignalCache. It lets a later session
// reuse signals fetched by an earlier one without spending budget again.
// Rows older than the TTL are pruned on open and filtered on read.
type SignalCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSignalCache opens (or creates) the cache database at dbPath.
// A zero ttl keeps entries forever.
func NewSignalCache(dbPath string, ttl time.Duration) (*SignalCache, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}

	c := &SignalCache{db: db, ttl: ttl}

	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	if pruned, err := c.pruneStale(); err != nil {
		logrus.Warnf("Failed to prune stale cache rows: %v", err)
	} else if pruned > 0 {
		logrus.Infof("Pruned %d stale signal cache rows", pruned)
	}

	return c, nil
}

// initSchema creates the cache table and index if they don't exist
func (c *SignalCache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS serp_cache (
		cache_key TEXT PRIMARY KEY,
		signals_json TEXT NOT NULL,
		fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_serp_cache_fetched ON serp_cache(fetched_at);
	`

	_, err := c.db.Exec(schema)
	return err
}

// pruneStale deletes rows older than the TTL, returning how many were removed
func (c *SignalCache) pruneStale() (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}

	// CURRENT_TIMESTAMP stores UTC, so the cutoff must be UTC too.
	cutoff := time.Now().Add(-c.ttl).UTC()
	res, err := c.db.Exec("DELETE FROM serp_cache WHERE fetched_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Get returns the cached signals for key, if present and fresh.
// Read errors are logged and reported as misses so a broken cache degrades
// to extra provider calls instead of failing the scan.
func (c *SignalCache) Get(key string) (serp.Signals, bool) {
	var signalsJSON string
	var fetchedAt time.Time

	err := c.db.QueryRow(`
		SELECT signals_json, fetched_at
		FROM serp_cache
		WHERE cache_key = ?
	`, key).Scan(&signalsJSON, &fetchedAt)

	if err == sql.ErrNoRows {
		return serp.Signals{}, false
	}
	if err != nil {
		logrus.Warnf("Cache read for %q failed: %v", key, err)
		return serp.Signals{}, false
	}

	if c.ttl > 0 && time.Since(fetchedAt) > c.ttl {
		return serp.Signals{}, false
	}

	var sig serp.Signals
	if err := json.Unmarshal([]byte(signalsJSON), &sig); err != nil {
		logrus.Warnf("Cache entry for %q is corrupt: %v", key, err)
		return serp.Signals{}, false
	}

	return sig, true
}

// Put stores signals under key. Keys are written once per scan session, but
// an upsert keeps re-fetches after TTL expiry from failing.
func (c *SignalCache) Put(key string, sig serp.Signals) {
	signalsJSON, err := json.Marshal(sig)
	if err != nil {
		logrus.Warnf("Failed to encode signals for %q: %v", key, err)
		return
	}

	_, err = c.db.Exec(`
		INSERT INTO serp_cache (cache_key, signals_json, fetched_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(cache_key) DO UPDATE SET
			signals_json = EXCLUDED.signals_json,
			fetched_at = CURRENT_TIMESTAMP
	`, key, string(signalsJSON))
	if err != nil {
		logrus.Warnf("Cache write for %q failed: %v", key, err)
	}
}

// Len returns the number of cached rows
func (c *SignalCache) Len() int {
	var count int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM serp_cache").Scan(&count); err != nil {
		logrus.Warnf("Cache count failed: %v", err)
		return 0
	}
	return count
}

// Close closes the database connection
func (c *SignalCache) Close() error {
	return c.db.Close()
}
