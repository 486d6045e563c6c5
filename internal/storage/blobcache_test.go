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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carouselstudio/internal/cache"
)

var _ cache.Cache = (*BlobCache)(nil)

func TestBlobCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := NewBlobCache(openTestDB(t), 0)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "img:a", []byte("png"), time.Minute))
	v, ok, err := c.Get(ctx, "img:a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("png"), v)

	require.NoError(t, c.Set(ctx, "img:a", []byte("png2"), time.Minute))
	v, _, _ = c.Get(ctx, "img:a")
	assert.Equal(t, []byte("png2"), v)

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "img:a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlobCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewBlobCache(openTestDB(t), 10)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a", []byte("1234"), 0))
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "b", []byte("1234"), 0))
	now = now.Add(time.Second)
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "c", []byte("1234"), 0))

	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
	total, err := c.TotalBytes(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, total, int64(10))
}

func TestBlobCacheClearByPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewBlobCache(openTestDB(t), 0)
	require.NoError(t, c.Set(ctx, "img_1", []byte{1}, 0))
	require.NoError(t, c.Set(ctx, "imgx2", []byte{2}, 0))
	require.NoError(t, c.Set(ctx, "link:1", []byte{3}, 0))

	require.NoError(t, c.ClearByPrefix(ctx, "img_"))
	_, ok, _ := c.Get(ctx, "img_1")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "imgx2")
	assert.True(t, ok, "underscore is literal, not a wildcard")

	require.NoError(t, c.Clear(ctx))
	total, err := c.TotalBytes(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}
