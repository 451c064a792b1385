// Package store persists geocode results in a local sqlite database so
// repeated runs over the same spreadsheet skip the network entirely.
package store

import (
	"database/sql"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/placemap/pkg/geocode"
)

const schema = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	provider        TEXT NOT NULL,
	address         TEXT NOT NULL,
	longitude       REAL NOT NULL,
	latitude        REAL NOT NULL,
	display_address TEXT NOT NULL,
	PRIMARY KEY (provider, address)
)`

// SQLCache is a write-once geocode.Cache backed by sqlite. Lookup misses and
// write failures degrade to cache misses; they never fail a resolution.
type SQLCache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*SQLCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open cache db")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "store: create cache schema")
	}
	return &SQLCache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *SQLCache) Close() error {
	return c.db.Close()
}

// Get implements geocode.Cache.
func (c *SQLCache) Get(provider, addr string) (*geocode.Result, bool) {
	row := c.db.QueryRow(
		`SELECT longitude, latitude, display_address FROM geocode_cache WHERE provider = ? AND address = ?`,
		provider, addr,
	)

	r := geocode.Result{Source: provider, Matched: true}
	if err := row.Scan(&r.Longitude, &r.Latitude, &r.Address); err != nil {
		if err != sql.ErrNoRows {
			zap.L().Warn("store: cache lookup failed", zap.Error(err))
		}
		return nil, false
	}
	return &r, true
}

// Put implements geocode.Cache. INSERT OR IGNORE keeps the first stored
// result for a key.
func (c *SQLCache) Put(provider, addr string, r *geocode.Result) {
	if !r.Matched {
		return
	}
	_, err := c.db.Exec(
		`INSERT OR IGNORE INTO geocode_cache (provider, address, longitude, latitude, display_address)
		 VALUES (?, ?, ?, ?, ?)`,
		provider, addr, r.Longitude, r.Latitude, r.Address,
	)
	if err != nil {
		zap.L().Warn("store: cache write failed", zap.Error(err))
	}
}
