/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/gg"

	"carouselstudio/internal/scene"
)

var namedColors = map[string]string{
	"black": "#000000",
	"white": "#ffffff",
	"red":   "#ff0000",
	"green": "#008000",
	"blue":  "#0000ff",
	"gray":  "#808080",
	"grey":  "#808080",
}

// ParseColor understands #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(), rgba(),
// "transparent" and a few names. ok is false for anything else and for
// empty input.
func ParseColor(s string) (c gg.RGBA, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, named := namedColors[s]; named {
		s = hex
	}
	switch {
	case s == "" || s == "none":
		return gg.RGBA{}, false
	case s == "transparent":
		return gg.RGBA{}, true
	case strings.HasPrefix(s, "#"):
		switch len(s) {
		case 4, 5, 7, 9:
			for _, r := range s[1:] {
				if !strings.ContainsRune("0123456789abcdef", r) {
					return gg.RGBA{}, false
				}
			}
			return gg.Hex(s), true
		}
		return gg.RGBA{}, false
	case strings.HasPrefix(s, "rgb"):
		open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
		if open < 0 || end < open {
			return gg.RGBA{}, false
		}
		parts := strings.Split(s[open+1:end], ",")
		if len(parts) != 3 && len(parts) != 4 {
			return gg.RGBA{}, false
		}
		v := [4]float64{0, 0, 0, 1}
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return gg.RGBA{}, false
			}
			if i < 3 {
				f /= 255
			}
			v[i] = math.Max(0, math.Min(1, f))
		}
		return gg.RGBA2(v[0], v[1], v[2], v[3]), true
	}
	return gg.RGBA{}, false
}

func withOpacity(c gg.RGBA, opacity float64) gg.RGBA {
	c.A *= opacity
	return c
}

// applyFilters returns a filtered copy of img. Unknown filter types are
// skipped.
func applyFilters(img image.Image, filters []scene.Filter) image.Image {
	if len(filters) == 0 {
		return img
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	for _, f := range filters {
		switch f.Type {
		case scene.FilterPixelate:
			pixelate(out, int(math.Max(2, f.Value)))
		case scene.FilterBlur:
			boxBlur(out, int(math.Max(1, f.Value*20)))
		default:
			fn := pixelFilter(f)
			if fn == nil {
				continue
			}
			for i := 0; i+3 < len(out.Pix); i += 4 {
				r, g, bl := fn(float64(out.Pix[i]), float64(out.Pix[i+1]), float64(out.Pix[i+2]))
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = clampByte(r), clampByte(g), clampByte(bl)
			}
		}
	}
	return out
}

// pixelFilter maps one filter onto a per-pixel color function.
// Value ranges follow the editor: brightness/contrast/saturation in [-1, 1].
func pixelFilter(f scene.Filter) func(r, g, b float64) (float64, float64, float64) {
	switch f.Type {
	case scene.FilterGrayscale:
		return func(r, g, b float64) (float64, float64, float64) {
			l := 0.299*r + 0.587*g + 0.114*b
			return l, l, l
		}
	case scene.FilterSepia:
		return func(r, g, b float64) (float64, float64, float64) {
			return 0.393*r + 0.769*g + 0.189*b, 0.349*r + 0.686*g + 0.168*b, 0.272*r + 0.534*g + 0.131*b
		}
	case scene.FilterInvert:
		return func(r, g, b float64) (float64, float64, float64) { return 255 - r, 255 - g, 255 - b }
	case scene.FilterBrightness:
		d := f.Value * 255
		return func(r, g, b float64) (float64, float64, float64) { return r + d, g + d, b + d }
	case scene.FilterContrast:
		k := (f.Value + 1) / (1.01 - f.Value)
		return func(r, g, b float64) (float64, float64, float64) {
			return k*(r-128) + 128, k*(g-128) + 128, k*(b-128) + 128
		}
	case scene.FilterSaturation:
		s := 1 + f.Value
		return func(r, g, b float64) (float64, float64, float64) {
			l := 0.299*r + 0.587*g + 0.114*b
			return l + s*(r-l), l + s*(g-l), l + s*(b-l)
		}
	}
	return nil
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

func pixelate(img *image.NRGBA, block int) {
	b := img.Bounds()
	for y0 := 0; y0 < b.Dy(); y0 += block {
		for x0 := 0; x0 < b.Dx(); x0 += block {
			c := img.NRGBAAt(x0, y0)
			for y := y0; y < min(y0+block, b.Dy()); y++ {
				for x := x0; x < min(x0+block, b.Dx()); x++ {
					img.SetNRGBA(x, y, c)
				}
			}
		}
	}
}

// boxBlur runs one horizontal and one vertical box pass of the given radius.
func boxBlur(img *image.NRGBA, radius int) {
	b := img.Bounds()
	src := image.NewNRGBA(b)
	pass := func(dx, dy int) {
		copy(src.Pix, img.Pix)
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				var sum [4]int
				n := 0
				for k := -radius; k <= radius; k++ {
					sx, sy := x+k*dx, y+k*dy
					if sx < 0 || sy < 0 || sx >= b.Dx() || sy >= b.Dy() {
						continue
					}
					c := src.NRGBAAt(sx, sy)
					sum[0] += int(c.R)
					sum[1] += int(c.G)
					sum[2] += int(c.B)
					sum[3] += int(c.A)
					n++
				}
				img.SetNRGBA(x, y, color.NRGBA{
					R: uint8(sum[0] / n), G: uint8(sum[1] / n), B: uint8(sum[2] / n), A: uint8(sum[3] / n),
				})
			}
		}
	}
	pass(1, 0)
	pass(0, 1)
}

// circleMask crops img to its centered square and clears everything outside
// the inscribed circle.
func circleMask(img image.Image) *image.NRGBA {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	ox := b.Min.X + (b.Dx()-side)/2
	oy := b.Min.Y + (b.Dy()-side)/2
	out := image.NewNRGBA(image.Rect(0, 0, side, side))
	r := float64(side) / 2
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			dx, dy := float64(x)+0.5-r, float64(y)+0.5-r
			if dx*dx+dy*dy > r*r {
				continue
			}
			out.Set(x, y, img.At(ox+x, oy+y))
		}
	}
	return out
}
