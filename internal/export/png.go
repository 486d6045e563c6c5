/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"carouselstudio/internal/pages"
)

// PNGOptions controls per-page PNG export.
type PNGOptions struct {
	Scale float64
	Pages []int // zero-based positions; empty means all pages
}

// ExportProjectPNGPages writes each selected page as page-<n>.png under outDir,
// n being the page's one-based position. It returns the written paths.
func ExportProjectPNGPages(ctx context.Context, store pages.Store, r Rasterizer, projectID, outDir string, opt PNGOptions) ([]string, error) {
	_, pgs, err := loadPages(ctx, store, projectID, opt.Pages)
	if err != nil {
		return nil, err
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}

	written := make([]string, 0, len(pgs))
	for _, pg := range pgs {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		img, err := r.Render(pg.snap, scale)
		if err != nil {
			return written, fmt.Errorf("render page %d: %w", pg.Order+1, err)
		}
		name := filepath.Join(outDir, fmt.Sprintf("page-%d.png", pg.Order+1))
		f, err := os.Create(name)
		if err != nil {
			return written, fmt.Errorf("create png: %w", err)
		}
		if err := png.Encode(f, img); err != nil {
			_ = f.Close()
			return written, fmt.Errorf("encode png: %w", err)
		}
		if err := f.Close(); err != nil {
			return written, fmt.Errorf("close png: %w", err)
		}
		written = append(written, name)
	}
	return written, nil
}
