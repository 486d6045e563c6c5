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
	"carouselstudio/internal/imaging"
	"carouselstudio/internal/scene"
	"carouselstudio/internal/textlayout"
)

// editorialBold is a full-bleed gradient with one large text block. Cards
// after the first carry a small author header.
type editorialBold struct{}

const (
	editorialAvatar = 88
	editorialMargin = 80
)

var editorialGradient = []scene.Stop{
	{Offset: 0, Color: "#1e1b4b"},
	{Offset: 1, Color: "#7c3aed"},
}

func (editorialBold) showHeader(content Content) bool {
	return !content.IsFirstCard && (content.Profile.Username != "" || content.Profile.Image != "")
}

func (l editorialBold) requests(c *Compiler, content Content) map[slot]imaging.Request {
	if !l.showHeader(content) || content.Profile.Image == "" {
		return nil
	}
	side := int(editorialAvatar * c.scale() * 2)
	return map[slot]imaging.Request{
		slotAvatar: {Source: content.Profile.Image, Width: side, Force: true},
	}
}

func (l editorialBold) build(c *Compiler, content Content, images map[slot]string) scene.Snapshot {
	s := c.scale()
	w, h := c.opts.Width, c.opts.Height
	m := editorialMargin * s

	ws := scene.NewWorkspace(c.opts.NewID(), w, h, editorialGradient[0].Color)
	ws.Gradient = &scene.Gradient{X1: 0, Y1: 0, X2: 1, Y2: 1, Stops: append([]scene.Stop(nil), editorialGradient...)}
	objs := []scene.Object{ws}

	top := m
	if l.showHeader(content) {
		x := m
		av := editorialAvatar * s
		if src, ok := images[slotAvatar]; ok {
			objs = append(objs, c.image(src, m, m, av, av, true))
			x += av + 20*s
		}
		if u := handle(content.Profile.Username); u != "" {
			t, th := c.text(textlayout.StyleUsername, u, 30*s, x, 0, w-x-m)
			t.Top = m + (av-th)/2
			objs = append(objs, t)
		}
		top = m + av + 40*s
	}

	style := textlayout.StyleBody
	if content.IsFirstCard {
		style = textlayout.StyleHeadline
	}
	size := EditorialFontSize(content.Text, content.IsFirstCard) * s
	body, bh := c.text(style, content.Text, size, m, 0, w-2*m)
	body.Top = max(top, (h-bh)/2)
	objs = append(objs, body)

	if pi := c.pageIndicator(content, "#e9d5ff"); pi != nil {
		objs = append(objs, pi)
	}
	return scene.Snapshot{Version: scene.FormatVersion, Objects: objs}
}
