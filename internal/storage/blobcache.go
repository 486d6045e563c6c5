/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	applog "carouselstudio/internal/log"
)

// DefaultBlobCacheBytes caps the blob cache when no limit is given.
const DefaultBlobCacheBytes = 256 * 1024 * 1024

// BlobCache is a TTL cache persisted in the blob_cache table. Once the stored
// bytes exceed the cap, least recently used rows are evicted.
type BlobCache struct {
	db       *DB
	capBytes int64
	now      func() time.Time
	log      *slog.Logger
}

func NewBlobCache(db *DB, capBytes int64) *BlobCache {
	if capBytes <= 0 {
		capBytes = DefaultBlobCacheBytes
	}
	return &BlobCache{db: db, capBytes: capBytes, now: time.Now, log: applog.WithComponent("storage")}
}

// Get returns the value for key and refreshes its access time. Expired rows
// are deleted and reported as misses.
func (c *BlobCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		blob    []byte
		expires int64
	)
	err := c.db.QueryRowContext(ctx, c.db.rebind(`SELECT value, expires_at FROM blob_cache WHERE key=?`), key).Scan(&blob, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query blob cache: %w", err)
	}
	now := c.now().UnixMilli()
	if expires > 0 && now >= expires {
		_, _ = c.db.ExecContext(ctx, c.db.rebind(`DELETE FROM blob_cache WHERE key=?`), key)
		return nil, false, nil
	}
	// touch
	_, _ = c.db.ExecContext(ctx, c.db.rebind(`UPDATE blob_cache SET last_access=? WHERE key=?`), now, key)
	return blob, true, nil
}

// Set upserts value and enforces the size cap.
func (c *BlobCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()
	var expires int64
	if ttl > 0 {
		expires = now.Add(ttl).UnixMilli()
	}
	_, err := c.db.ExecContext(ctx, c.db.rebind(`INSERT INTO blob_cache(key, value, size, expires_at, last_access)
		VALUES(?,?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, size=excluded.size, expires_at=excluded.expires_at, last_access=excluded.last_access`),
		key, value, len(value), expires, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert blob cache: %w", err)
	}
	return c.EvictToFit(ctx)
}

func (c *BlobCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM blob_cache`); err != nil {
		return fmt.Errorf("clear blob cache: %w", err)
	}
	return nil
}

// ClearByPrefix deletes keys starting with prefix.
func (c *BlobCache) ClearByPrefix(ctx context.Context, prefix string) error {
	_, err := c.db.ExecContext(ctx, c.db.rebind(`DELETE FROM blob_cache WHERE key LIKE ? ESCAPE '\'`), likePrefix(prefix))
	if err != nil {
		return fmt.Errorf("clear blob cache prefix: %w", err)
	}
	return nil
}

func likePrefix(p string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(p) + "%"
}

// TotalBytes returns the bytes held by the cache.
func (c *BlobCache) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM blob_cache`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum blob cache size: %w", err)
	}
	return total, nil
}

// EvictToFit drops expired rows, then least recently used rows until the
// total size is within the cap.
func (c *BlobCache) EvictToFit(ctx context.Context) error {
	now := c.now().UnixMilli()
	if _, err := c.db.ExecContext(ctx, c.db.rebind(`DELETE FROM blob_cache WHERE expires_at > 0 AND expires_at <= ?`), now); err != nil {
		return fmt.Errorf("evict expired: %w", err)
	}
	total, err := c.TotalBytes(ctx)
	if err != nil {
		return err
	}
	if total <= c.capBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT key, size FROM blob_cache ORDER BY last_access ASC, key ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []string
	cur := total
	for rows.Next() {
		var (
			key string
			sz  int64
		)
		if err := rows.Scan(&key, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, key)
		cur -= sz
		if cur <= c.capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Close the cursor before writing; SQLite runs on one connection.
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM blob_cache WHERE key IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	args := make([]any, len(victims))
	for i, v := range victims {
		args[i] = v
	}
	if _, err := c.db.ExecContext(ctx, c.db.rebind(q), args...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	applog.WithOperation(c.log, "cache_evict").Debug("blob cache evicted", slog.Int("rows", len(victims)), slog.Int64("bytes_before", total))
	return nil
}
