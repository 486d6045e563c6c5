/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"carouselstudio/internal/cards"
	"carouselstudio/internal/config"
	"carouselstudio/internal/pages"
	"carouselstudio/internal/scene"
	"carouselstudio/internal/segment"

	"github.com/spf13/cobra"
)

func readSource(cmd *cobra.Command, path string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func newSegmentCmd() *cobra.Command {
	var (
		headline  string
		maxCards  int
		unlimited bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "segment [file|-]",
		Short: "Split copy into card fragments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := ""
			if len(args) == 1 {
				src = args[0]
			}
			body, err := readSource(cmd, src)
			if err != nil {
				return fmt.Errorf("reading copy: %w", err)
			}
			if !cmd.Flags().Changed("max-cards") {
				if cfg, _, err := config.Load(); err == nil {
					maxCards = cfg.Cards.MaxCards
				}
			}
			res := segment.Segment(segment.Input{Headline: headline, Body: body}, segment.Options{MaxCards: maxCards, Unlimited: unlimited})
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			for i, f := range res.Fragments {
				printf(cmd, "%2d  %s\n", i+1, f)
			}
			printf(cmd, "strategy: %s", res.Strategy)
			if res.Capped > 0 {
				printf(cmd, " (dropped %d)", res.Capped)
			}
			printf(cmd, "\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&headline, "headline", "", "headline placed on the first card")
	cmd.Flags().IntVar(&maxCards, "max-cards", segment.DefaultMaxCards, "maximum number of cards, headline included")
	cmd.Flags().BoolVar(&unlimited, "unlimited", false, "do not cap the number of cards")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

// generateInput is the JSON payload accepted by generate --input.
type generateInput struct {
	Headline string   `json:"headline"`
	Cards    string   `json:"cards"`
	Links    []string `json:"links"`
	Legenda  string   `json:"legenda"`
}

func newGenerateCmd() *cobra.Command {
	var (
		input    string
		style    string
		name     string
		userID   string
		username string
		avatar   string
		outDir   string
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a carousel project from copy",
		Long:  "Reads {headline, cards, links, legenda} as JSON, compiles one card per fragment and stores them as the pages of a new project.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			raw, err := readSource(cmd, input)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			var in generateInput
			if err := json.Unmarshal([]byte(raw), &in); err != nil {
				return fmt.Errorf("decoding input: %w", err)
			}

			a, err := newApp(ctx, "generate")
			if err != nil {
				return err
			}
			defer a.Close()
			comp, err := a.compiler(style)
			if err != nil {
				return err
			}
			car, err := comp.GenerateCarousel(ctx,
				cards.Input{Headline: in.Headline, Cards: in.Cards, Links: in.Links, Legenda: in.Legenda},
				cards.Profile{Username: username, Image: avatar},
				cards.CarouselOptions{Segment: segment.Options{MaxCards: a.cfg.Cards.MaxCards}, Parallelism: parallel},
			)
			if err != nil {
				return err
			}
			for _, c := range car.Cards {
				if c.Err != nil {
					a.log.Warn("card left blank", slog.Int("card", c.Index+1), slog.Any("err", c.Err))
				}
			}

			b := a.bridge()
			if name == "" {
				name = firstLine(in.Headline, "Carousel")
			}
			proj, pagesOut, err := storeCarousel(ctx, b, car, pages.NewProject{
				UserID: userID, Name: name,
				Width: float64(a.cfg.Cards.Width), Height: float64(a.cfg.Cards.Height),
			})
			if err != nil {
				return err
			}
			if outDir != "" {
				r := a.renderer()
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
				for i, c := range car.Cards {
					png, err := r.RenderPNG(c.Snapshot, 1)
					if err != nil {
						return fmt.Errorf("render card %d: %w", i+1, err)
					}
					if err := os.WriteFile(filepath.Join(outDir, fmt.Sprintf("card-%d.png", i+1)), png, 0o644); err != nil {
						return err
					}
				}
			}

			printf(cmd, "project %s (%s): %d cards, strategy %s\n", proj.ID, proj.Name, len(pagesOut), car.Strategy)
			if n := car.Failed(); n > 0 {
				printf(cmd, "%d cards failed and were left blank\n", n)
			}
			if car.Caption != "" {
				printf(cmd, "caption: %s\n", car.Caption)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON input file, - for stdin")
	cmd.Flags().StringVar(&style, "style", "", "card style: editorial-bold or card-with-image")
	cmd.Flags().StringVar(&name, "name", "", "project name (defaults to the headline)")
	cmd.Flags().StringVar(&userID, "user", "", "owner user id")
	cmd.Flags().StringVar(&username, "username", "", "profile handle shown on the cards")
	cmd.Flags().StringVar(&avatar, "avatar", "", "profile image URL or data URI")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "also write card PNGs into this directory")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "cards compiled concurrently (0 = default)")
	return cmd
}

// storeCarousel creates a project whose pages are the compiled cards in order.
func storeCarousel(ctx context.Context, b *pages.Bridge, car cards.Carousel, np pages.NewProject) (pages.Project, []pages.Page, error) {
	data := make([]string, len(car.Cards))
	for i, c := range car.Cards {
		s, err := scene.MarshalString(c.Snapshot)
		if err != nil {
			return pages.Project{}, nil, fmt.Errorf("card %d: %w", i+1, err)
		}
		data[i] = s
	}
	if len(data) > 0 {
		np.FirstScene = data[0]
	}
	proj, first, err := b.CreateProject(ctx, np)
	if err != nil {
		return pages.Project{}, nil, err
	}
	out := []pages.Page{first}
	for i := 1; i < len(data); i++ {
		p, err := b.AddPageWithScene(ctx, proj.ID, fmt.Sprintf("Card %d", i+1), data[i])
		if err != nil {
			return proj, out, err
		}
		out = append(out, p)
	}
	return proj, out, nil
}

func firstLine(s, def string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if s == "" {
		return def
	}
	return s
}
