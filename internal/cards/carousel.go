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
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"carouselstudio/internal/scene"
	"carouselstudio/internal/segment"
)

// DefaultParallelism bounds concurrent card compiles in GenerateCarousel.
const DefaultParallelism = 4

// Input is the generated-content payload a carousel is built from.
type Input struct {
	Headline string
	// Cards is raw text, segmented into one fragment per card.
	Cards string
	Links []string
	// Legenda is the post caption; it is carried through untouched.
	Legenda string
}

type CarouselOptions struct {
	Segment     segment.Options
	Parallelism int
}

// Card is one compiled card. Err is set when this card alone failed; its
// Snapshot is then a blank page so the carousel keeps its length.
type Card struct {
	Index    int
	Text     string
	Snapshot scene.Snapshot
	Err      error
}

type Carousel struct {
	Cards    []Card
	Strategy segment.Strategy
	Capped   int
	Caption  string
}

// Failed counts cards that fell back to a blank page.
func (c Carousel) Failed() int {
	n := 0
	for _, card := range c.Cards {
		if card.Err != nil {
			n++
		}
	}
	return n
}

// GenerateCarousel segments in and compiles one card per fragment. Cards are
// compiled concurrently and independently: one failing card never aborts its
// siblings. Only cancellation of ctx fails the whole call. In the
// card-with-image style the last card carries a preview of the first link.
func (c *Compiler) GenerateCarousel(ctx context.Context, in Input, profile Profile, opts CarouselOptions) (Carousel, error) {
	seg := segment.Segment(segment.Input{Headline: in.Headline, Body: in.Cards}, opts.Segment)
	out := Carousel{
		Cards:    make([]Card, len(seg.Fragments)),
		Strategy: seg.Strategy,
		Capped:   seg.Capped,
		Caption:  strings.TrimSpace(in.Legenda),
	}
	link := firstLink(in.Links)
	total := len(seg.Fragments)

	par := opts.Parallelism
	if par <= 0 {
		par = DefaultParallelism
	}
	var g errgroup.Group
	g.SetLimit(par)
	for i, frag := range seg.Fragments {
		content := Content{
			Text:        frag,
			Profile:     profile,
			IsFirstCard: i == 0,
			PageNumber:  i + 1,
			TotalPages:  total,
		}
		if c.opts.Style == StyleCardWithImage && i == total-1 {
			content.Link = link
		}
		g.Go(func() error {
			card := Card{Index: i, Text: frag}
			snap, err := c.Compile(ctx, content)
			if err != nil {
				c.log.Warn("card compile failed", slog.Int("page", i+1), slog.Any("err", err))
				card.Err = err
				snap = scene.Blank(c.opts.Width, c.opts.Height, c.opts.NewID)
			}
			card.Snapshot = snap
			out.Cards[i] = card
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Carousel{}, err
	}
	c.log.Info("carousel generated",
		slog.Int("cards", total), slog.String("strategy", string(seg.Strategy)), slog.Int("failed", out.Failed()))
	return out, nil
}

func firstLink(links []string) string {
	for _, l := range links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}
