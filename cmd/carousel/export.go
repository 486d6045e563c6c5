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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"carouselstudio/internal/export"
	"carouselstudio/internal/scene"

	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	var (
		scale float64
		out   string
	)
	cmd := &cobra.Command{
		Use:   "render <project> <page>",
		Short: "Render one page to PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "render")
			if err != nil {
				return err
			}
			defer a.Close()
			p, err := a.store.GetPage(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			snap := scene.Blank(p.Width, p.Height, nil)
			if p.Scene != "" {
				if snap, err = scene.UnmarshalString(p.Scene); err != nil {
					return fmt.Errorf("page %s: %w", p.ID, err)
				}
			}
			png, err := a.renderer().RenderPNG(snap, scale)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("page-%d.png", p.Order+1)
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return err
			}
			printf(cmd, "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().Float64Var(&scale, "scale", 1, "raster scale factor")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default page-<n>.png)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		preset  string
		formats []string
		pageSel string
		scale   float64
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Export a project as PDF and/or PNG pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parsePageList(pageSel)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), "export")
			if err != nil {
				return err
			}
			defer a.Close()
			if outDir == "" {
				outDir = filepath.Join("export", args[0])
			}
			res, err := export.BatchExport(cmd.Context(), a.store, a.renderer(), args[0], export.BatchOptions{
				Preset:  export.PresetName(preset),
				Formats: formats,
				Pages:   sel,
				Scale:   scale,
				OutDir:  outDir,
			})
			if err != nil {
				return err
			}
			if res.PDF != "" {
				printf(cmd, "pdf: %s\n", res.PDF)
			}
			for _, p := range res.PNGs {
				printf(cmd, "png: %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", string(export.PresetWeb), "web or print")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "pdf, png (default from preset)")
	cmd.Flags().StringVar(&pageSel, "pages", "", "comma separated 1-based page positions (default all)")
	cmd.Flags().Float64Var(&scale, "scale", 0, "override the preset scale")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "output directory")
	return cmd
}

// parsePageList turns "1,3,4" into zero-based positions.
func parsePageList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid page %q", f)
		}
		out = append(out, n-1)
	}
	return out, nil
}
