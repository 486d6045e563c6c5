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
	"path/filepath"
	"strings"

	"carouselstudio/internal/pages"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export across formats.
//
// Outputs land under OutDir/<preset>/: pdf/carousel.pdf for PDF and
// png/page-<n>.png for PNG.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: pdf, png; empty means preset defaults
	Pages   []int    // zero-based positions; empty means all pages
	Scale   float64  // when > 0 overrides the preset raster scale
	OutDir  string
}

// BatchResult lists what BatchExport wrote.
type BatchResult struct {
	PDF  string
	PNGs []string
}

// BatchExport runs exports according to the given preset.
func BatchExport(ctx context.Context, store pages.Store, r Rasterizer, projectID string, opt BatchOptions) (BatchResult, error) {
	var res BatchResult
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	scale := presetScale(opt.Preset)
	if opt.Scale > 0 {
		scale = opt.Scale
	}
	preset := string(opt.Preset)
	if preset == "" {
		preset = string(PresetWeb)
	}
	base := filepath.Join(opt.OutDir, preset)

	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "pdf":
			out := filepath.Join(base, "pdf", "carousel.pdf")
			if err := ExportProjectPDF(ctx, store, r, projectID, out, PDFOptions{Scale: scale, Pages: opt.Pages}); err != nil {
				return res, fmt.Errorf("pdf: %w", err)
			}
			res.PDF = out
		case "png":
			written, err := ExportProjectPNGPages(ctx, store, r, projectID, filepath.Join(base, "png"), PNGOptions{Scale: scale, Pages: opt.Pages})
			res.PNGs = append(res.PNGs, written...)
			if err != nil {
				return res, fmt.Errorf("png: %w", err)
			}
		default:
			return res, fmt.Errorf("unknown format: %s", f)
		}
	}
	return res, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"png"}
	}
}

func presetScale(p PresetName) float64 {
	if p == PresetPrint {
		return 2
	}
	return 1
}
