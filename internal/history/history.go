/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history keeps a linear list of serialized scene snapshots with a
// movable cursor. Recording after an undo discards the redo branch.
package history

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// ErrEmpty is returned by navigation on a history with no entries.
var ErrEmpty = errors.New("history: empty")

// Entry is an immutable serialized snapshot.
// TS is when the snapshot was recorded.
type Entry struct {
	Data []byte
	TS   time.Time
}

// Config controls depth and memory caps and optional coalescing.
type Config struct {
	// MaxEntries limits the number of entries kept (0 means unlimited).
	MaxEntries int
	// MaxBytes is a soft cap; the oldest entries are pruned when exceeded.
	MaxBytes int
	// MinInterval, when positive, replaces the tail entry instead of appending
	// if the previous record happened less than MinInterval ago.
	MinInterval time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// History is safe for concurrent use, but is owned by one editor session.
type History struct {
	cfg Config
	mu  sync.Mutex
	// entries[cursor] mirrors the live scene; cursor is -1 when empty.
	entries    []Entry
	cursor     int
	totalBytes int
}

func New(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &History{cfg: cfg, cursor: -1}
}

// Reset drops every entry and starts over from a single base entry.
func (h *History) Reset(base []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = []Entry{{Data: clone(base), TS: h.cfg.Now()}}
	h.totalBytes = len(base)
	h.cursor = 0
}

// Record appends a snapshot after truncating any redo branch. It reports
// false when data equals the entry at the cursor (nothing recorded).
func (h *History) Record(data []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor >= 0 && bytes.Equal(h.entries[h.cursor].Data, data) {
		return false
	}
	// Any new change invalidates redo.
	for _, e := range h.entries[h.cursor+1:] {
		h.totalBytes -= len(e.Data)
	}
	h.entries = h.entries[:h.cursor+1]

	now := h.cfg.Now()
	e := Entry{Data: clone(data), TS: now}
	if n := len(h.entries); n > 1 && h.cfg.MinInterval > 0 && now.Sub(h.entries[n-1].TS) < h.cfg.MinInterval {
		// Coalesce: adjust accounting and replace
		h.totalBytes -= len(h.entries[n-1].Data)
		h.entries[n-1] = e
	} else {
		h.entries = append(h.entries, e)
	}
	h.totalBytes += len(e.Data)
	h.cursor = len(h.entries) - 1
	h.enforceCapsLocked()
	return true
}

// Undo moves the cursor back one entry. apply receives the target entry and
// must install it in the live scene; if apply fails the cursor does not move.
// Undo at the first entry is a no-op returning (false, nil).
func (h *History) Undo(apply func(data []byte) error) (bool, error) {
	return h.step(-1, apply)
}

// Redo moves the cursor forward one entry, with the same contract as Undo.
func (h *History) Redo(apply func(data []byte) error) (bool, error) {
	return h.step(+1, apply)
}

func (h *History) step(delta int, apply func(data []byte) error) (bool, error) {
	h.mu.Lock()
	if h.cursor < 0 {
		h.mu.Unlock()
		return false, ErrEmpty
	}
	from := h.cursor
	to := from + delta
	if to < 0 || to >= len(h.entries) {
		h.mu.Unlock()
		return false, nil
	}
	data := h.entries[to].Data
	h.mu.Unlock()

	// apply runs unlocked; it may read history state.
	if err := apply(data); err != nil {
		return false, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor != from {
		// Moved underneath us; leave the newer position alone.
		return false, nil
	}
	h.cursor = to
	return true, nil
}

// CanUndo reports cursor > 0.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor > 0
}

// CanRedo reports cursor < last index.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor < len(h.entries)-1
}

// Cursor returns the active index, or -1 when empty.
func (h *History) Cursor() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// Len returns the number of entries held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Current returns a copy of the entry at the cursor.
func (h *History) Current() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor < 0 {
		return nil, false
	}
	return clone(h.entries[h.cursor].Data), true
}

// Stats returns current sizes for diagnostics.
func (h *History) Stats() (totalBytes int, entries int, cursor int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalBytes, len(h.entries), h.cursor
}

// enforceCapsLocked drops the oldest entries, never the one at the cursor.
func (h *History) enforceCapsLocked() {
	drop := 0
	if h.cfg.MaxEntries > 0 && len(h.entries) > h.cfg.MaxEntries {
		drop = len(h.entries) - h.cfg.MaxEntries
	}
	bytesLeft := h.totalBytes
	for i := 0; i < drop; i++ {
		bytesLeft -= len(h.entries[i].Data)
	}
	for h.cfg.MaxBytes > 0 && bytesLeft > h.cfg.MaxBytes && drop < h.cursor {
		bytesLeft -= len(h.entries[drop].Data)
		drop++
	}
	if drop > h.cursor {
		drop = h.cursor
	}
	if drop <= 0 {
		return
	}
	for i := 0; i < drop; i++ {
		h.totalBytes -= len(h.entries[i].Data)
	}
	h.entries = append([]Entry(nil), h.entries[drop:]...)
	h.cursor -= drop
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
