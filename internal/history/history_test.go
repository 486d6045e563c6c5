/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// live mimics the scene a history drives.
type live struct{ cur string }

func (l *live) apply(data []byte) error {
	l.cur = string(data)
	return nil
}

func assertCursorProjections(t *testing.T, h *History) {
	t.Helper()
	_, n, cur := h.Stats()
	assert.Equal(t, cur > 0, h.CanUndo(), "canUndo at cursor %d", cur)
	assert.Equal(t, cur < n-1, h.CanRedo(), "canRedo at cursor %d of %d", cur, n)
}

func TestCanUndoCanRedoTrackCursorUnderRandomNavigation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		h := New(Config{})
		l := &live{}
		n := 1 + rng.Intn(10)
		for i := 0; i < n; i++ {
			require.True(t, h.Record([]byte(fmt.Sprintf("s%d", i))))
			assertCursorProjections(t, h)
		}
		for step := 0; step < 40; step++ {
			var err error
			if rng.Intn(2) == 0 {
				_, err = h.Undo(l.apply)
			} else {
				_, err = h.Redo(l.apply)
			}
			require.NoError(t, err)
			assertCursorProjections(t, h)
			cur, ok := h.Current()
			require.True(t, ok)
			if h.Cursor() != n-1 || l.cur != "" {
				assert.Equal(t, string(cur), l.cur)
			}
		}
	}
}

func TestRedoBranchIsDiscardedOnRecord(t *testing.T) {
	h := New(Config{})
	l := &live{}
	h.Record([]byte("A"))
	h.Record([]byte("B"))
	h.Record([]byte("C"))

	for i := 0; i < 2; i++ {
		moved, err := h.Undo(l.apply)
		require.NoError(t, err)
		require.True(t, moved)
	}
	assert.Equal(t, "A", l.cur)

	h.Record([]byte("D"))
	assert.False(t, h.CanRedo())
	moved, err := h.Redo(l.apply)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 2, h.Len())

	moved, err = h.Undo(l.apply)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, "A", l.cur)
}

func TestUndoAtStartIsNoOp(t *testing.T) {
	h := New(Config{})
	_, err := h.Undo(func([]byte) error { return nil })
	assert.ErrorIs(t, err, ErrEmpty)

	h.Reset([]byte("base"))
	called := false
	moved, err := h.Undo(func([]byte) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, moved)
	assert.False(t, called)
	assert.Equal(t, 0, h.Cursor())
}

func TestFailedApplyLeavesCursor(t *testing.T) {
	h := New(Config{})
	h.Record([]byte("A"))
	h.Record([]byte("corrupt"))
	h.Record([]byte("C"))

	boom := errors.New("bad snapshot")
	failOnCorrupt := func(data []byte) error {
		if string(data) == "corrupt" {
			return boom
		}
		return nil
	}
	moved, err := h.Undo(failOnCorrupt)
	assert.ErrorIs(t, err, boom)
	assert.False(t, moved)
	assert.Equal(t, 2, h.Cursor())
	assert.True(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}

func TestRecordDedupesIdenticalConsecutiveSnapshot(t *testing.T) {
	h := New(Config{})
	assert.True(t, h.Record([]byte("A")))
	assert.False(t, h.Record([]byte("A")))
	assert.Equal(t, 1, h.Len())
	assert.True(t, h.Record([]byte("B")))
	assert.True(t, h.Record([]byte("A")))
	assert.Equal(t, 3, h.Len())
}

func TestRecordCopiesInput(t *testing.T) {
	h := New(Config{})
	buf := []byte("A")
	h.Record(buf)
	buf[0] = 'Z'
	cur, _ := h.Current()
	assert.Equal(t, "A", string(cur))
}

func TestMaxEntriesDropsOldest(t *testing.T) {
	h := New(Config{MaxEntries: 3})
	for i := 0; i < 5; i++ {
		h.Record([]byte(fmt.Sprintf("s%d", i)))
	}
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 2, h.Cursor())

	l := &live{}
	for h.CanUndo() {
		_, err := h.Undo(l.apply)
		require.NoError(t, err)
	}
	assert.Equal(t, "s2", l.cur)
}

func TestMaxBytesKeepsCursorEntry(t *testing.T) {
	h := New(Config{MaxBytes: 10})
	h.Record([]byte("aaaaaa"))
	h.Record([]byte("bbbbbb"))
	total, n, cur := h.Stats()
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, cur)
	assert.Equal(t, 6, total)

	h.Record([]byte("cccccccccccccccccccc"))
	total, n, _ = h.Stats()
	assert.Equal(t, 1, n, "a single oversized entry is still kept")
	assert.Equal(t, 20, total)
}

func TestCoalescingIsOptIn(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }

	plain := New(Config{Now: clock})
	plain.Record([]byte("A"))
	plain.Record([]byte("B"))
	plain.Record([]byte("C"))
	assert.Equal(t, 3, plain.Len())

	co := New(Config{Now: clock, MinInterval: time.Second})
	co.Record([]byte("A"))
	co.Record([]byte("B"))
	co.Record([]byte("C"))
	assert.Equal(t, 2, co.Len(), "the base entry is never coalesced")
	now = now.Add(2 * time.Second)
	co.Record([]byte("D"))
	assert.Equal(t, 3, co.Len())
	total, _, _ := co.Stats()
	assert.Equal(t, 3, total)
}
