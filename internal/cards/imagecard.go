/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package cards

import (
	"strings"

	"carouselstudio/internal/imaging"
	"carouselstudio/internal/scene"
	"carouselstudio/internal/textlayout"
)

// cardWithImage imitates a social post: avatar, display name with a verified
// badge, handle, body text and an optional link preview at the bottom.
type cardWithImage struct{}

const (
	postAvatar  = 110
	postMargin  = 80
	postBadge   = 30
	postPreview = 0.36 // share of the card height
	inkColor    = "#0f1419"
	badgeColor  = "#1d9bf0"
	defaultName = "carousel"
	checkPath   = "M 7 15 L 13 21 L 23 9"
)

func (cardWithImage) previewBox(c *Compiler) (x, y, w, h float64) {
	s := c.scale()
	m := postMargin * s
	w = c.opts.Width - 2*m
	h = c.opts.Height * postPreview
	return m, c.opts.Height - m - h, w, h
}

func (l cardWithImage) requests(c *Compiler, content Content) map[slot]imaging.Request {
	side := int(postAvatar * c.scale() * 2)
	reqs := map[slot]imaging.Request{
		// an empty source resolves to the placeholder
		slotAvatar: {Source: content.Profile.Image, Width: side, Force: true},
	}
	if link := strings.TrimSpace(content.Link); link != "" {
		_, _, pw, ph := l.previewBox(c)
		reqs[slotPreview] = imaging.Request{Source: link, Width: int(pw), Height: int(ph)}
	}
	return reqs
}

func (l cardWithImage) build(c *Compiler, content Content, images map[slot]string) scene.Snapshot {
	s := c.scale()
	w := c.opts.Width
	m := postMargin * s
	av := postAvatar * s

	objs := []scene.Object{scene.NewWorkspace(c.opts.NewID(), w, c.opts.Height, "#ffffff")}
	if src, ok := images[slotAvatar]; ok {
		objs = append(objs, c.image(src, m, m, av, av, true))
	}

	name := strings.TrimPrefix(strings.TrimSpace(content.Profile.Username), "@")
	if name == "" {
		name = defaultName
	}
	nameX := m + av + 24*s
	nameSize := 34 * s
	nt, _ := c.text(textlayout.StyleUsername, name, nameSize, nameX, m+16*s, w-nameX-m-postBadge*s)
	nt.Fill = inkColor
	nw := min(c.textWidth(textlayout.StyleUsername, name, nameSize), nt.Width)
	nt.Width = nw
	objs = append(objs, nt)

	bs := postBadge * s
	bx, by := nameX+nw+10*s, nt.Top+(nt.Height-bs)/2
	badge := &scene.RectObj{Base: c.base(bx, by, bs, bs), Rx: bs / 2, Ry: bs / 2}
	badge.Fill = badgeColor
	check := &scene.PathObj{Base: c.base(bx, by, postBadge, postBadge), Path: checkPath}
	check.ScaleX, check.ScaleY = s, s
	check.Stroke = "#ffffff"
	check.StrokeWidth = 3
	objs = append(objs, badge, check)

	ht, _ := c.text(textlayout.StyleHandle, handle(name), 28*s, nameX, m+62*s, w-nameX-m)
	objs = append(objs, ht)

	bodyTop := m + av + 48*s
	body, _ := c.text(textlayout.StyleBody, content.Text, CardFontSize(content.Text)*s, m, bodyTop, w-2*m)
	body.Fill = inkColor
	objs = append(objs, body)

	if src, ok := images[slotPreview]; ok {
		x, y, pw, ph := l.previewBox(c)
		objs = append(objs, c.image(src, x, y, pw, ph, false))
	}
	if pi := c.pageIndicator(content, "#536471"); pi != nil {
		objs = append(objs, pi)
	}
	return scene.Snapshot{Version: scene.FormatVersion, Objects: objs}
}
