/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and word-wraps card text so templates can size
// text boxes without a live canvas.
package textlayout

// Abstractions for text measurement and line breaking. Everything sits behind
// deterministic interfaces so tests can run on a fixed bitmap face.

import (
	"strings"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultLineHeight matches the editor's text descriptor default.
const DefaultLineHeight = 1.16

// FontSpec describes a requested font. Size is in pixels.
type FontSpec struct {
	Family string
	Size   float64
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Line is a single laid out line.
type Line struct {
	Text  string
	Width float64
}

// Box is the result of laying out text into a box width.
type Box struct {
	Lines      []Line
	Width      float64
	Height     float64
	LineHeight float64 // px between baselines
	Metrics    Metrics
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// WordWrap breaks on whitespace and honours explicit newlines; it does not
// perform shaping or hyphenation. A word wider than the box gets a line of
// its own and overflows.
type WordWrap struct{ Provider Provider }

func NewWordWrap(provider Provider) *WordWrap { return &WordWrap{Provider: provider} }

// Layout wraps text to maxWidth (no wrapping when maxWidth <= 0). lineHeight
// is a multiple of the font size; zero means DefaultLineHeight.
func (l *WordWrap) Layout(text string, spec FontSpec, maxWidth, lineHeight float64) Box {
	p := l.Provider
	if p == nil {
		p = BasicProvider{}
	}
	if lineHeight <= 0 {
		lineHeight = DefaultLineHeight
	}
	face, met := p.Resolve(spec)
	size := spec.Size
	if size <= 0 {
		size = met.Ascent + met.Descent
	}
	d := &font.Drawer{Face: face}
	space := advance(d, " ")
	box := Box{Metrics: met, LineHeight: size * lineHeight}

	for _, para := range strings.Split(text, "\n") {
		var cur strings.Builder
		curW := 0.0
		flush := func() {
			box.Lines = append(box.Lines, Line{Text: cur.String(), Width: curW})
			if curW > box.Width {
				box.Width = curW
			}
			cur.Reset()
			curW = 0
		}
		for _, word := range strings.FieldsFunc(para, unicode.IsSpace) {
			w := advance(d, word)
			if cur.Len() > 0 && maxWidth > 0 && curW+space+w > maxWidth {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
				curW += space
			}
			cur.WriteString(word)
			curW += w
		}
		flush()
	}
	box.Height = float64(len(box.Lines)) * box.LineHeight
	return box
}

func advance(d *font.Drawer, s string) float64 {
	return fixedToFloat(d.MeasureString(s))
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

// Measure returns the single-line width of text and the font's line height.
func Measure(provider Provider, spec FontSpec, text string) (w, h float64) {
	if provider == nil {
		provider = BasicProvider{}
	}
	face, met := provider.Resolve(spec)
	return advance(&font.Drawer{Face: face}, text), met.Ascent + met.Descent
}
