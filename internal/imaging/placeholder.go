/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/gogpu/gg"
	"golang.org/x/image/draw"

	"carouselstudio/internal/cache"
)

const placeholderSide = 256

// Placeholder returns a PNG data URI of a w x h (or default square) graphic:
// a diagonal gradient with a picture glyph in the middle.
func (n *Normalizer) Placeholder(ctx context.Context, w, h int) string {
	if w <= 0 {
		w = placeholderSide
	}
	if h <= 0 {
		h = w
	}
	key := cache.Key("placeholder", strconv.Itoa(w), strconv.Itoa(h))
	if uri, ok := n.cached(ctx, key); ok {
		return uri
	}
	data, err := PlaceholderPNG(w, h)
	if err != nil {
		// Encoding into memory does not fail in practice; keep the caller going.
		n.log.Error("placeholder render failed", "err", err)
		return ""
	}
	uri := DataURI("image/png", data)
	n.store(ctx, key, uri)
	return uri
}

// PlaceholderPNG renders the placeholder graphic.
func PlaceholderPNG(w, h int) ([]byte, error) {
	dc := gg.NewContext(w, h)
	defer dc.Close()

	fw, fh := float64(w), float64(h)
	bg := gg.NewLinearGradientBrush(0, 0, fw, fh).
		AddColorStop(0, gg.Hex("#e2e8f0")).
		AddColorStop(1, gg.Hex("#94a3b8"))
	dc.SetFillBrush(bg)
	dc.DrawRectangle(0, 0, fw, fh)
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("imaging: placeholder background: %w", err)
	}

	// glyph: framed picture with a sun and two peaks
	s := min(fw, fh) * 0.5
	x0, y0 := (fw-s)/2, (fh-s*0.8)/2
	dc.SetFillBrush(gg.Solid(gg.Hex("#f8fafc")))
	dc.DrawRoundedRectangle(x0, y0, s, s*0.8, s*0.08)
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("imaging: placeholder frame: %w", err)
	}
	dc.SetFillBrush(gg.Solid(gg.Hex("#64748b")))
	dc.DrawCircle(x0+s*0.3, y0+s*0.25, s*0.09)
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("imaging: placeholder sun: %w", err)
	}
	base := y0 + s*0.72
	dc.MoveTo(x0+s*0.1, base)
	dc.LineTo(x0+s*0.4, y0+s*0.35)
	dc.LineTo(x0+s*0.58, y0+s*0.55)
	dc.LineTo(x0+s*0.7, y0+s*0.42)
	dc.LineTo(x0+s*0.9, base)
	dc.ClosePath()
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("imaging: placeholder peaks: %w", err)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("imaging: placeholder encode: %w", err)
	}
	return buf.Bytes(), nil
}

// circleCrop center-crops img to a square, scales it to side x side and
// paints it through a circular mask. The corners stay transparent.
func circleCrop(img image.Image, side int) ([]byte, error) {
	square := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.CatmullRom.Scale(square, square.Bounds(), img, centerSquare(img.Bounds()), draw.Src, nil)

	dc := gg.NewContext(side, side)
	defer dc.Close()
	buf := gg.ImageBufFromImage(square)
	dc.SetFillPattern(dc.CreateImagePattern(buf, 0, 0, side, side))
	r := float64(side) / 2
	dc.DrawCircle(r, r, r)
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("imaging: circle mask: %w", err)
	}
	var out bytes.Buffer
	if err := dc.EncodePNG(&out); err != nil {
		return nil, fmt.Errorf("imaging: encode: %w", err)
	}
	return out.Bytes(), nil
}
