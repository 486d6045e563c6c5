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
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FallbackFamily is the bundled Go font family every lookup can fall back to.
const FallbackFamily = "Go"

// FontLibrary stores parsed OpenType fonts keyed by family, weight and italic.
// Families are matched case-insensitively.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[fontKey]*opentype.Font
}

type fontKey struct {
	family string
	weight int
	italic bool
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]*opentype.Font)} }

var (
	defaultLibOnce sync.Once
	defaultLib     *FontLibrary
)

// DefaultLibrary holds the Go font family in four styles.
func DefaultLibrary() *FontLibrary {
	defaultLibOnce.Do(func() {
		lib := NewFontLibrary()
		for _, f := range []struct {
			weight int
			italic bool
			data   []byte
		}{
			{400, false, goregular.TTF},
			{700, false, gobold.TTF},
			{400, true, goitalic.TTF},
			{700, true, gobolditalic.TTF},
		} {
			if err := lib.Register(FallbackFamily, f.weight, f.italic, f.data); err != nil {
				panic(err) // bundled fonts always parse
			}
		}
		defaultLib = lib
	})
	return defaultLib
}

// Register parses TTF/OTF data into the library.
func (fl *FontLibrary) Register(family string, weight int, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	fl.fonts[fontKey{family: strings.ToLower(family), weight: weight, italic: italic}] = f
	return nil
}

// LoadTTF loads a font file into the library under the given family/weight/italic.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.Register(family, weight, italic, data)
}

// find returns the closest weight within the family, preferring a matching
// italic flag.
func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	family := strings.ToLower(spec.Family)
	weight := spec.Weight
	if weight == 0 {
		weight = 400
	}
	if f, ok := fl.fonts[fontKey{family: family, weight: weight, italic: spec.Italic}]; ok {
		return f
	}
	var (
		best      *opentype.Font
		bestScore = -1
	)
	for k, f := range fl.fonts {
		if k.family != family {
			continue
		}
		score := abs(k.weight - weight)
		if k.italic != spec.Italic {
			score += 1000
		}
		if best == nil || score < bestScore || (score == bestScore && k.weight < weight) {
			best, bestScore = f, score
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// OTProvider resolves FontSpec using a FontLibrary. Unknown families resolve
// to FallbackFamily in the same library, then to Fallback.
// Faces are created per call: opentype faces are not safe for concurrent use.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 72 if zero
	Fallback Provider
}

// NewDefaultProvider resolves against the bundled Go fonts.
func NewDefaultProvider() OTProvider { return OTProvider{Lib: DefaultLibrary()} }

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.Size <= 0 {
		spec.Size = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	f := p.Lib.find(spec)
	if f == nil && !strings.EqualFold(spec.Family, FallbackFamily) {
		fb := spec
		fb.Family = FallbackFamily
		f = p.Lib.find(fb)
	}
	if f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.Size, DPI: dpi, Hinting: font.HintingFull})
		if err == nil {
			return face, metricsOf(face)
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
