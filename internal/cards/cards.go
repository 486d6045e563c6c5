/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package cards compiles carousel card content into scene snapshots. Layouts
// are selected by style name; each one declares the images it needs, which
// are resolved through the image normalizer before the layout is built, so a
// snapshot never references an unverified remote image.
package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"carouselstudio/internal/imaging"
	applog "carouselstudio/internal/log"
	"carouselstudio/internal/scene"
	"carouselstudio/internal/textlayout"
)

// Style selects a card layout.
type Style string

const (
	StyleEditorialBold Style = "editorial-bold"
	StyleCardWithImage Style = "card-with-image"
)

// Default canvas for generated cards (portrait 4:5).
const (
	DefaultWidth  = 1080
	DefaultHeight = 1350
)

// ErrUnknownStyle is returned for a style with no registered layout.
var ErrUnknownStyle = errors.New("cards: unknown style")

// Profile identifies the author shown on cards.
type Profile struct {
	Username string
	Image    string
}

// Content is the input for one card.
type Content struct {
	Text        string
	Profile     Profile
	IsFirstCard bool
	PageNumber  int
	TotalPages  int
	Link        string
}

// ImageResolver turns image references into embeddable ones.
// *imaging.Normalizer satisfies it.
type ImageResolver interface {
	Normalize(ctx context.Context, req imaging.Request) imaging.Result
}

// Options configures a Compiler. Zero values take defaults.
type Options struct {
	Width, Height float64
	Style         Style
	Sheet         *textlayout.StyleSheet
	Provider      textlayout.Provider
	// NewID must be safe for concurrent use; GenerateCarousel compiles
	// cards in parallel.
	NewID  scene.IDFunc
	Logger *slog.Logger
}

// Compiler builds card snapshots.
type Compiler struct {
	images ImageResolver
	opts   Options
	wrap   *textlayout.WordWrap
	log    *slog.Logger
}

func NewCompiler(images ImageResolver, opts Options) *Compiler {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Style == "" {
		opts.Style = StyleEditorialBold
	}
	if opts.Sheet == nil {
		opts.Sheet = textlayout.NewStyleSheet()
	}
	if opts.Provider == nil {
		opts.Provider = textlayout.NewDefaultProvider()
	}
	if opts.NewID == nil {
		opts.NewID = scene.NewID
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("cards")
	}
	if images == nil {
		images = imaging.New(imaging.Config{}, nil, nil).WithLogger(opts.Logger)
	}
	return &Compiler{images: images, opts: opts, wrap: textlayout.NewWordWrap(opts.Provider), log: opts.Logger}
}

// Style reports the layout this compiler uses.
func (c *Compiler) Style() Style { return c.opts.Style }

// slot names an image a layout places.
type slot string

const (
	slotAvatar  slot = "avatar"
	slotPreview slot = "preview"
)

// layout is one card design. requests lists the images the design needs for
// content; build lays the card out from already resolved image URIs and does
// no I/O.
type layout interface {
	requests(c *Compiler, content Content) map[slot]imaging.Request
	build(c *Compiler, content Content, images map[slot]string) scene.Snapshot
}

var layouts = map[Style]layout{
	StyleEditorialBold: editorialBold{},
	StyleCardWithImage: cardWithImage{},
}

// ParseStyle maps a style name to a Style.
func ParseStyle(name string) (Style, error) {
	s := Style(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := layouts[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, name)
	}
	return s, nil
}

// Compile resolves the images content needs and lays out one card.
// Image failures degrade to placeholders and never fail the card.
func (c *Compiler) Compile(ctx context.Context, content Content) (scene.Snapshot, error) {
	l, ok := layouts[c.opts.Style]
	if !ok {
		return scene.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownStyle, c.opts.Style)
	}
	resolved := make(map[slot]string)
	for name, req := range l.requests(c, content) {
		if err := ctx.Err(); err != nil {
			return scene.Snapshot{}, err
		}
		res := c.images.Normalize(ctx, req)
		if res.Err != nil {
			c.log.Warn("card image replaced by placeholder",
				slog.String("slot", string(name)), slog.Int("page", content.PageNumber), slog.Any("err", res.Err))
		}
		if res.URI != "" {
			resolved[name] = res.URI
		}
	}
	snap := l.build(c, content, resolved)
	if err := snap.Validate(); err != nil {
		return scene.Snapshot{}, fmt.Errorf("cards: %s layout: %w", c.opts.Style, err)
	}
	return snap, nil
}

// EditorialFontSize is the editorial-bold text size for text, stepping down
// as the character count grows.
func EditorialFontSize(text string, first bool) float64 {
	n := utf8.RuneCountInString(text)
	if first {
		switch {
		case n > 150:
			return 32
		case n > 100:
			return 38
		case n > 50:
			return 45
		default:
			return 52
		}
	}
	switch {
	case n > 200:
		return 28
	case n > 100:
		return 35
	default:
		return 42
	}
}

// CardFontSize is the card-with-image body size.
func CardFontSize(text string) float64 {
	n := utf8.RuneCountInString(text)
	switch {
	case n > 280:
		return 30
	case n > 160:
		return 34
	default:
		return 38
	}
}

// scale maps design units (laid out on a 1080 wide card) to the canvas.
func (c *Compiler) scale() float64 { return c.opts.Width / DefaultWidth }

func (c *Compiler) base(x, y, w, h float64) scene.Base {
	return scene.Base{
		ID: c.opts.NewID(), Left: x, Top: y, Width: w, Height: h,
		ScaleX: 1, ScaleY: 1, Opacity: 1,
	}
}

// text lays out value with the named style at size px inside maxW and
// returns the descriptor and its laid out height.
func (c *Compiler) text(style, value string, size, x, y, maxW float64) (*scene.TextObj, float64) {
	st := c.opts.Sheet.MustResolve(style)
	spec := st.Font
	if size > 0 {
		spec.Size = size
	}
	lh := st.LineHeight
	if lh <= 0 {
		lh = textlayout.DefaultLineHeight
	}
	box := c.wrap.Layout(value, spec, maxW, lh)
	b := c.base(x, y, maxW, box.Height)
	b.Fill = st.Color
	fontStyle := "normal"
	if spec.Italic {
		fontStyle = "italic"
	}
	return &scene.TextObj{
		Base:       b,
		Text:       value,
		FontFamily: spec.Family,
		FontSize:   spec.Size,
		FontWeight: strconv.Itoa(spec.Weight),
		FontStyle:  fontStyle,
		TextAlign:  st.Align,
		LineHeight: lh,
	}, box.Height
}

// textWidth measures a single line in the named style.
func (c *Compiler) textWidth(style, value string, size float64) float64 {
	spec := c.opts.Sheet.MustResolve(style).Font
	if size > 0 {
		spec.Size = size
	}
	w, _ := textlayout.Measure(c.opts.Provider, spec, value)
	return w
}

func (c *Compiler) image(src string, x, y, w, h float64, circle bool) *scene.ImageObj {
	return &scene.ImageObj{Base: c.base(x, y, w, h), Src: src, ClipCircle: circle}
}

func (c *Compiler) pageIndicator(content Content, color string) *scene.TextObj {
	if content.TotalPages <= 1 || content.PageNumber <= 0 {
		return nil
	}
	s := c.scale()
	m := 80 * s
	label := strconv.Itoa(content.PageNumber) + "/" + strconv.Itoa(content.TotalPages)
	t, h := c.text(textlayout.StyleCaption, label, 24*s, c.opts.Width-m-160*s, 0, 160*s)
	t.Top = c.opts.Height - m/2 - h
	t.TextAlign = "right"
	t.FontStyle = "normal"
	t.Fill = color
	return t
}

func handle(username string) string {
	u := strings.TrimSpace(username)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "@") {
		u = "@" + u
	}
	return u
}
