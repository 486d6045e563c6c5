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
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"carouselstudio/internal/pages"
)

// PDFOptions controls PDF export. Page size in the PDF equals the workspace
// size with one pixel mapped to one point; Scale sets the raster resolution
// embedded per page (2 keeps text crisp when printed).
type PDFOptions struct {
	Scale float64
	Pages []int // zero-based positions; empty means all pages
}

// ExportProjectPDF writes the project's pages to a single multi-page PDF at outPath.
func ExportProjectPDF(ctx context.Context, store pages.Store, r Rasterizer, projectID, outPath string, opt PDFOptions) error {
	proj, pgs, err := loadPages(ctx, store, projectID, opt.Pages)
	if err != nil {
		return err
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = 1
	}

	first := pgs[0]
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	pdf.SetTitle(proj.Name, true)
	pdf.SetAuthor("Carousel Studio", false)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	for i, pg := range pgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := r.Render(pg.snap, scale)
		if err != nil {
			return fmt.Errorf("render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		w, h := pg.snap.Size()
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: w, Ht: h})
		name := fmt.Sprintf("page-%d", i+1)
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
