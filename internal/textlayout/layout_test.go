/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordWrapBreaksOnSpaces(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	// Face7x13 advances 7px per glyph.
	box := l.Layout("Hello world from Go", FontSpec{Size: 13}, 80, 1)
	require.Len(t, box.Lines, 2)
	assert.Equal(t, "Hello world", box.Lines[0].Text)
	assert.Equal(t, "from Go", box.Lines[1].Text)
	assert.InDelta(t, 77, box.Lines[0].Width, 1e-9)
	assert.InDelta(t, 77, box.Width, 1e-9)
	assert.InDelta(t, 26, box.Height, 1e-9)
}

func TestWordWrapHardBreaksAndOverflow(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	box := l.Layout("a\n\nsupercalifragilistic b", FontSpec{Size: 10}, 30, 0)
	texts := make([]string, len(box.Lines))
	for i, ln := range box.Lines {
		texts[i] = ln.Text
	}
	assert.Equal(t, []string{"a", "", "supercalifragilistic", "b"}, texts)
	assert.Greater(t, box.Width, 30.0, "long word overflows")
	assert.InDelta(t, 4*10*DefaultLineHeight, box.Height, 1e-9)
}

func TestWordWrapNoLimit(t *testing.T) {
	box := NewWordWrap(nil).Layout("one two three", FontSpec{}, 0, 1)
	require.Len(t, box.Lines, 1)
	assert.Equal(t, "one two three", box.Lines[0].Text)
}

func TestMeasureDeterministic(t *testing.T) {
	w1, h1 := Measure(BasicProvider{}, FontSpec{}, "ABC")
	w2, h2 := Measure(nil, FontSpec{}, "ABC")
	assert.Equal(t, w1, w2)
	assert.Equal(t, h1, h2)
	assert.InDelta(t, 21, w1, 1e-9)
}

func TestDefaultProviderScalesWithSize(t *testing.T) {
	p := NewDefaultProvider()
	small, _ := Measure(p, FontSpec{Family: "Arial", Size: 20}, "carousel")
	big, _ := Measure(p, FontSpec{Family: "Arial", Size: 40}, "carousel")
	assert.Greater(t, small, 0.0)
	assert.InEpsilon(t, 2*small, big, 0.08)

	regular, _ := Measure(p, FontSpec{Family: "Go", Size: 30, Weight: 400}, "WWWW")
	bold, _ := Measure(p, FontSpec{Family: "Go", Size: 30, Weight: 800}, "WWWW")
	assert.NotEqual(t, regular, bold, "bold resolves to a different face")
}

func TestDefaultProviderConcurrentUse(t *testing.T) {
	p := NewDefaultProvider()
	l := NewWordWrap(p)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			box := l.Layout(strings.Repeat("palavra ", 40), FontSpec{Size: 32}, 900, 0)
			assert.Greater(t, len(box.Lines), 1)
		}()
	}
	wg.Wait()
}

func TestFontLibraryFind(t *testing.T) {
	lib := DefaultLibrary()
	assert.NotNil(t, lib.find(FontSpec{Family: "go", Weight: 700}))
	assert.Nil(t, lib.find(FontSpec{Family: "Unknown"}))
	assert.Same(t, lib.find(FontSpec{Family: "Go", Weight: 900}), lib.find(FontSpec{Family: "Go", Weight: 700}))
	assert.Same(t, lib.find(FontSpec{Family: "Go", Weight: 300}), lib.find(FontSpec{Family: "Go", Weight: 400}))
	assert.Error(t, NewFontLibrary().Register("bad", 400, false, []byte("nope")))
}

func TestStyleSheetPrecedence(t *testing.T) {
	ss := NewStyleSheet()
	base, ok := ss.Resolve(StyleBody)
	require.True(t, ok)

	tpl := base
	tpl.Color = "#111111"
	ss = ss.WithTemplate(map[string]TextStyle{StyleBody: tpl})
	got := ss.MustResolve(StyleBody)
	assert.Equal(t, "#111111", got.Color)
	assert.Equal(t, base.Font, got.Font)

	card := tpl
	card.Font.Size = 28
	withCard := ss.WithCard(map[string]TextStyle{StyleBody: card})
	assert.InDelta(t, 28, withCard.MustResolve(StyleBody).Font.Size, 1e-9)
	assert.InDelta(t, base.Font.Size, ss.MustResolve(StyleBody).Font.Size, 1e-9, "copies do not leak")

	_, ok = ss.Resolve("Nope")
	assert.False(t, ok)
	assert.Equal(t, StyleBody, ss.MustResolve("Nope").Name)
	assert.Equal(t, []string{StyleHeadline, StyleBody, StyleUsername, StyleHandle, StyleCaption}, ListStyles())
}
