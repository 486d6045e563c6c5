/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export writes a project's pages out as files: one multi-page PDF
// or one PNG per page. Pages are rasterized from their stored scenes.
package export

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sort"

	applog "carouselstudio/internal/log"
	"carouselstudio/internal/pages"
	"carouselstudio/internal/scene"
)

// Rasterizer draws a snapshot at a scale. *render.Renderer satisfies it.
type Rasterizer interface {
	Render(s scene.Snapshot, scale float64) (image.Image, error)
}

type exportPage struct {
	pages.Page
	snap scene.Snapshot
}

// loadPages fetches the project and the selected pages (zero-based positions
// in page order; empty selects all) with their decoded scenes. A page whose
// scene cannot be decoded is exported blank.
func loadPages(ctx context.Context, store pages.Store, projectID string, selected []int) (pages.Project, []exportPage, error) {
	proj, err := store.GetProject(ctx, projectID)
	if err != nil {
		return pages.Project{}, nil, err
	}
	all, err := store.ListPages(ctx, projectID)
	if err != nil {
		return pages.Project{}, nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Order < all[j].Order })

	idx := pageIndexes(len(all), selected)
	out := make([]exportPage, 0, len(idx))
	log := applog.WithOperation(applog.WithComponent("export"), "load")
	for _, i := range idx {
		if i < 0 || i >= len(all) {
			continue
		}
		pg := all[i]
		snap := scene.Blank(pg.Width, pg.Height, nil)
		if pg.Scene != "" {
			s, err := scene.UnmarshalString(pg.Scene)
			if err == nil {
				err = s.Validate()
			}
			if err != nil {
				log.Warn("page scene unreadable, exporting blank", slog.String("page", pg.ID), slog.Any("err", err))
			} else {
				snap = s
			}
		}
		out = append(out, exportPage{Page: pg, snap: snap})
	}
	if len(out) == 0 {
		return pages.Project{}, nil, fmt.Errorf("export: no pages selected")
	}
	return proj, out, nil
}

func pageIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return specific
}
