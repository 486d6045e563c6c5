/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package render rasterizes scene snapshots with gogpu/gg. It backs page
// thumbnails and raster exports and performs no network I/O: images must be
// data URIs to be drawn, anything else is painted as a neutral box.
package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/gogpu/gg"
	ggtext "github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/webp"

	applog "carouselstudio/internal/log"
	"carouselstudio/internal/scene"
	"carouselstudio/internal/textlayout"
)

// DefaultThumbnailSide is the longest side of a page thumbnail in pixels.
const DefaultThumbnailSide = 320

const missingImageColor = "#e5e7eb"

type Options struct {
	ThumbnailSide int
	Logger        *slog.Logger
}

// Renderer draws snapshots. It is safe for concurrent use.
type Renderer struct {
	opts  Options
	log   *slog.Logger
	wrap  *textlayout.WordWrap
	mu    sync.Mutex
	fonts map[fontStyle]*ggtext.FontSource
}

type fontStyle struct{ bold, italic bool }

func New(opts Options) *Renderer {
	if opts.ThumbnailSide <= 0 {
		opts.ThumbnailSide = DefaultThumbnailSide
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("render")
	}
	return &Renderer{
		opts:  opts,
		log:   opts.Logger,
		wrap:  textlayout.NewWordWrap(textlayout.NewDefaultProvider()),
		fonts: make(map[fontStyle]*ggtext.FontSource),
	}
}

// Render draws s at scale (1 = workspace pixels).
func (r *Renderer) Render(s scene.Snapshot, scale float64) (image.Image, error) {
	ws := s.Workspace()
	if ws == nil {
		return nil, scene.ErrNoWorkspace
	}
	if scale <= 0 {
		scale = 1
	}
	w, h := s.Size()
	pw, ph := int(math.Ceil(w*scale)), int(math.Ceil(h*scale))
	if pw <= 0 || ph <= 0 {
		return nil, fmt.Errorf("render: empty workspace %gx%g", w, h)
	}

	// gg text faces and font sources are not shared across goroutines
	r.mu.Lock()
	defer r.mu.Unlock()

	dc := gg.NewContext(pw, ph)
	defer dc.Close()
	dc.Scale(scale, scale)
	dc.Translate(-ws.Left, -ws.Top)

	for i, o := range s.Objects {
		if err := r.drawObject(dc, o, scale); err != nil {
			r.log.Warn("object skipped", slog.Int("index", i), slog.String("kind", string(o.Kind())), slog.Any("err", err))
		}
	}
	return dc.Image(), nil
}

// RenderPNG renders s and encodes it as PNG.
func (r *Renderer) RenderPNG(s scene.Snapshot, scale float64) ([]byte, error) {
	img, err := r.Render(s, scale)
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}

// Thumbnail renders s so its longest side is ThumbnailSide pixels.
func (r *Renderer) Thumbnail(s scene.Snapshot) ([]byte, error) {
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return nil, scene.ErrNoWorkspace
	}
	return r.RenderPNG(s, float64(r.opts.ThumbnailSide)/math.Max(w, h))
}

func (r *Renderer) drawObject(dc *gg.Context, o scene.Object, scale float64) error {
	b := o.Common()
	if b.Opacity <= 0 {
		return nil
	}
	dc.Push()
	defer dc.Pop()
	dc.Translate(b.Left, b.Top)
	if b.Angle != 0 {
		dc.Rotate(b.Angle * math.Pi / 180)
	}
	sx, sy := nonZero(b.ScaleX), nonZero(b.ScaleY)
	if b.FlipX {
		dc.Translate(b.Width*sx, 0)
		sx = -sx
	}
	if b.FlipY {
		dc.Translate(0, b.Height*sy)
		sy = -sy
	}
	dc.Scale(sx, sy)

	switch v := o.(type) {
	case *scene.Workspace:
		dc.DrawRectangle(0, 0, v.Width, v.Height)
		return paint(dc, b)
	case *scene.RectObj:
		switch {
		case v.Rx > 0 && v.Rx*2 >= v.Width && v.Ry*2 >= v.Height:
			dc.DrawEllipse(v.Width/2, v.Height/2, v.Width/2, v.Height/2)
		case v.Rx > 0:
			dc.DrawRoundedRectangle(0, 0, v.Width, v.Height, v.Rx)
		default:
			dc.DrawRectangle(0, 0, v.Width, v.Height)
		}
		return paint(dc, b)
	case *scene.PolygonObj:
		if len(v.Points) < 2 {
			return nil
		}
		dc.MoveTo(v.Points[0].X, v.Points[0].Y)
		for _, p := range v.Points[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		return paint(dc, b)
	case *scene.PathObj:
		p, err := ParsePath(v.Path)
		if err != nil {
			return err
		}
		tracePath(dc, p)
		return paint(dc, b)
	case *scene.TextObj:
		return r.drawText(dc, v, scale)
	case *scene.ImageObj:
		return drawImage(dc, v)
	}
	return fmt.Errorf("render: unsupported descriptor %T", o)
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func tracePath(dc *gg.Context, p *Path) {
	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case MoveTo:
			dc.MoveTo(d[0], d[1])
		case LineTo:
			dc.LineTo(d[0], d[1])
		case QuadTo:
			dc.QuadraticTo(d[0], d[1], d[2], d[3])
		case CubicTo:
			dc.CubicTo(d[0], d[1], d[2], d[3], d[4], d[5])
		case Close:
			dc.ClosePath()
		}
	}
}

// paint fills then strokes the current path. Fill and stroke share one brush
// in gg, so the brush is swapped in between.
func paint(dc *gg.Context, b *scene.Base) error {
	stroke, hasStroke := ParseColor(b.Stroke)
	hasStroke = hasStroke && b.StrokeWidth > 0

	filled := false
	if b.Gradient != nil && len(b.Gradient.Stops) > 0 {
		x0, y0 := dc.TransformPoint(b.Gradient.X1*b.Width, b.Gradient.Y1*b.Height)
		x1, y1 := dc.TransformPoint(b.Gradient.X2*b.Width, b.Gradient.Y2*b.Height)
		g := gg.NewLinearGradientBrush(x0, y0, x1, y1)
		for _, st := range b.Gradient.Stops {
			c, _ := ParseColor(st.Color)
			g.AddColorStop(st.Offset, withOpacity(c, b.Opacity))
		}
		dc.SetFillBrush(g)
		filled = true
	} else if c, ok := ParseColor(b.Fill); ok {
		dc.SetFillBrush(gg.Solid(withOpacity(c, b.Opacity)))
		filled = true
	}

	if filled {
		var err error
		if hasStroke {
			err = dc.FillPreserve()
		} else {
			err = dc.Fill()
		}
		if err != nil {
			return err
		}
	}
	if !hasStroke {
		dc.ClearPath()
		return nil
	}
	dc.SetStrokeBrush(gg.Solid(withOpacity(stroke, b.Opacity)))
	dc.SetLineWidth(b.StrokeWidth)
	dc.SetDash(b.StrokeDashArray...)
	defer dc.SetDash()
	return dc.Stroke()
}

func (r *Renderer) face(t *scene.TextObj, px float64) ggtext.Face {
	weight, _ := strconv.Atoi(t.FontWeight)
	st := fontStyle{
		bold:   weight >= 600 || strings.EqualFold(t.FontWeight, "bold"),
		italic: strings.EqualFold(t.FontStyle, "italic"),
	}
	src, ok := r.fonts[st]
	if !ok {
		data := goregular.TTF
		switch {
		case st.bold && st.italic:
			data = gobolditalic.TTF
		case st.bold:
			data = gobold.TTF
		case st.italic:
			data = goitalic.TTF
		}
		var err error
		src, err = ggtext.NewFontSource(data)
		if err != nil {
			return nil
		}
		r.fonts[st] = src
	}
	return src.Face(px)
}

// drawText lays out t with the same word wrap the card compiler measures
// with, then draws each line in device space. Rotation is not applied to
// glyphs.
func (r *Renderer) drawText(dc *gg.Context, t *scene.TextObj, scale float64) error {
	if strings.TrimSpace(t.Text) == "" || t.FontSize <= 0 {
		return nil
	}
	col, ok := ParseColor(t.Fill)
	if !ok {
		col = gg.RGB(0, 0, 0)
	}
	weight, _ := strconv.Atoi(t.FontWeight)
	lh := t.LineHeight
	if lh <= 0 {
		lh = textlayout.DefaultLineHeight
	}
	spec := textlayout.FontSpec{Family: t.FontFamily, Size: t.FontSize, Weight: weight, Italic: strings.EqualFold(t.FontStyle, "italic")}
	box := r.wrap.Layout(t.Text, spec, t.Width, lh)

	devScale := scale * math.Abs(nonZero(t.ScaleY))
	face := r.face(t, t.FontSize*devScale)
	if face == nil {
		return errors.New("render: font unavailable")
	}
	dc.SetFont(face)
	dc.SetColor(withOpacity(col, t.Opacity).Color())

	for i, line := range box.Lines {
		x := 0.0
		switch t.TextAlign {
		case "center":
			x = (t.Width - line.Width) / 2
		case "right":
			x = t.Width - line.Width
		}
		y := float64(i)*box.LineHeight + box.Metrics.Ascent
		dx, dy := dc.TransformPoint(x, y)
		dc.DrawString(line.Text, dx, dy)
	}
	return nil
}

func drawImage(dc *gg.Context, im *scene.ImageObj) error {
	img, err := decodeSrc(im.Src)
	if err != nil {
		// keep the layout readable even when the bitmap is unavailable
		c, _ := ParseColor(missingImageColor)
		dc.SetFillBrush(gg.Solid(withOpacity(c, im.Opacity)))
		if im.ClipCircle {
			dc.DrawEllipse(im.Width/2, im.Height/2, im.Width/2, im.Height/2)
		} else {
			dc.DrawRectangle(0, 0, im.Width, im.Height)
		}
		if ferr := dc.Fill(); ferr != nil {
			return ferr
		}
		return err
	}
	img = applyFilters(img, im.Filters)
	if im.ClipCircle {
		img = circleMask(img)
	}
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X: 0, Y: 0,
		DstWidth:      im.Width,
		DstHeight:     im.Height,
		Interpolation: gg.InterpBicubic,
		Opacity:       im.Opacity,
	})
	return nil
}

// ErrRemoteImage marks image sources the renderer does not fetch.
var ErrRemoteImage = errors.New("render: image is not a data uri")

func decodeSrc(src string) (image.Image, error) {
	head, payload, ok := strings.Cut(src, ",")
	if !ok || !strings.HasPrefix(strings.ToLower(head), "data:image/") || !strings.HasSuffix(strings.ToLower(head), ";base64") {
		return nil, ErrRemoteImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("render: image payload: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("render: decode image: %w", err)
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
