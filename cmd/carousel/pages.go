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
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"carouselstudio/internal/editor"
	"carouselstudio/internal/host"
	"carouselstudio/internal/imaging"
	"carouselstudio/internal/pages"
	"carouselstudio/internal/scene"

	"github.com/spf13/cobra"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "projects", Short: "Manage projects"}

	var user string
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "projects_list")
			if err != nil {
				return err
			}
			defer a.Close()
			ps, err := a.store.ListProjects(cmd.Context(), user)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tSIZE\tUPDATED")
			for _, p := range ps {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%gx%g\t%s\n", p.ID, p.Name, p.Width, p.Height, p.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&user, "user", "", "only projects of this user")

	var (
		cUser      string
		cW, cH     float64
		isTemplate bool
	)
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project with one blank page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "projects_create")
			if err != nil {
				return err
			}
			defer a.Close()
			if cW <= 0 {
				cW = float64(a.cfg.Cards.Width)
			}
			if cH <= 0 {
				cH = float64(a.cfg.Cards.Height)
			}
			p, first, err := a.bridge().CreateProject(cmd.Context(), pages.NewProject{
				UserID: cUser, Name: args[0], Width: cW, Height: cH, IsTemplate: isTemplate,
			})
			if err != nil {
				return err
			}
			printf(cmd, "project %s, first page %s\n", p.ID, first.ID)
			return nil
		},
	}
	create.Flags().StringVar(&cUser, "user", "", "owner user id")
	create.Flags().Float64Var(&cW, "width", 0, "page width in px")
	create.Flags().Float64Var(&cH, "height", 0, "page height in px")
	create.Flags().BoolVar(&isTemplate, "template", false, "mark the project as a template")

	cmd.AddCommand(list, create)
	return cmd
}

func newPagesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "pages", Short: "Manage the pages of a project"}

	list := &cobra.Command{
		Use:   "list <project>",
		Short: "List pages in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "pages_list")
			if err != nil {
				return err
			}
			defer a.Close()
			ps, err := a.store.ListPages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "#\tID\tTITLE\tSIZE\tTHUMB")
			for _, p := range ps {
				thumb := "-"
				if p.Thumbnail != "" {
					thumb = "yes"
				}
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%gx%g\t%s\n", p.Order+1, p.ID, p.Title, p.Width, p.Height, thumb)
			}
			return tw.Flush()
		},
	}

	var title string
	add := &cobra.Command{
		Use:   "add <project>",
		Short: "Append a blank page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "pages_add")
			if err != nil {
				return err
			}
			defer a.Close()
			p, err := a.bridge().AddPage(cmd.Context(), args[0], title)
			if err != nil {
				return err
			}
			printf(cmd, "page %s at position %d\n", p.ID, p.Order+1)
			return nil
		},
	}
	add.Flags().StringVar(&title, "title", "", "page title")

	del := &cobra.Command{
		Use:   "delete <project> <page>",
		Short: "Delete a page (the last page of a project cannot be deleted)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "pages_delete")
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.bridge().DeletePage(cmd.Context(), args[0], args[1]); err != nil {
				if errors.Is(err, pages.ErrLastPage) {
					return errors.New("a project keeps at least one page")
				}
				return err
			}
			printf(cmd, "deleted %s\n", args[1])
			return nil
		},
	}

	reorder := &cobra.Command{
		Use:   "reorder <project> <page>...",
		Short: "Set the page order; every page of the project must be listed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "pages_reorder")
			if err != nil {
				return err
			}
			defer a.Close()
			order := make([]pages.OrderAssignment, 0, len(args)-1)
			for i, id := range args[1:] {
				order = append(order, pages.OrderAssignment{ID: id, Order: i})
			}
			return a.bridge().ReorderPages(cmd.Context(), args[0], order)
		},
	}

	var (
		rTitle string
		rW, rH float64
	)
	update := &cobra.Command{
		Use:   "update <project> <page>",
		Short: "Rename or resize a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "pages_update")
			if err != nil {
				return err
			}
			defer a.Close()
			var t *string
			if cmd.Flags().Changed("title") {
				t = &rTitle
			}
			var w, h *float64
			if rW > 0 && rH > 0 {
				w, h = &rW, &rH
			}
			p, err := a.bridge().UpdatePage(cmd.Context(), args[0], args[1], t, w, h)
			if err != nil {
				return err
			}
			printf(cmd, "page %s: %q %gx%g\n", p.ID, p.Title, p.Width, p.Height)
			return nil
		},
	}
	update.Flags().StringVar(&rTitle, "title", "", "new title")
	update.Flags().Float64Var(&rW, "width", 0, "new width in px")
	update.Flags().Float64Var(&rH, "height", 0, "new height in px")

	cmd.AddCommand(list, add, del, reorder, update, newEditCmd())
	return cmd
}

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <project> <page> <op>...",
		Short: "Apply editor operations to a page and save it",
		Long: `Operations run in order against the page's editor session:
  background=<color>  fill=<color>  stroke=<color>  stroke-width=<n>  font=<family>
  rect  soft-rect  circle  triangle  inverse-triangle  diamond  text=<value>  image=<url>
  path=<svg path data>  select-all  clear-selection  delete  copy  paste
  front  back  forward  backward  grayscale  sepia  invert  blur=<n>
  resize=<w>x<h>  undo  redo`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "pages_edit")
			if err != nil {
				return err
			}
			defer a.Close()
			b := a.bridge()
			s, err := b.Activate(ctx, args[0], args[1], host.NewMemory(1280, 800))
			if err != nil {
				return err
			}
			norm := a.normalizer()
			for _, op := range args[2:] {
				if err := applyEditOp(cmd, s, norm, op); err != nil {
					_ = b.Deactivate(ctx)
					return fmt.Errorf("%s: %w", op, err)
				}
			}
			if err := b.Deactivate(ctx); err != nil {
				return err
			}
			printf(cmd, "applied %d operations\n", len(args)-2)
			return nil
		},
	}
}

func applyEditOp(cmd *cobra.Command, s *editor.Session, norm *imaging.Normalizer, op string) error {
	name, val, _ := strings.Cut(op, "=")
	num := func() (float64, error) { return strconv.ParseFloat(val, 64) }
	switch name {
	case "background":
		return s.ChangeBackground(val)
	case "fill":
		if err := s.SetFillColor(val); err != nil {
			return err
		}
		return s.ApplyToSelection(editor.Change{Fill: editor.Ptr(val)})
	case "stroke":
		if err := s.SetStrokeColor(val); err != nil {
			return err
		}
		return s.ApplyToSelection(editor.Change{Stroke: editor.Ptr(val)})
	case "stroke-width":
		w, err := num()
		if err != nil {
			return err
		}
		if err := s.SetStrokeWidth(w); err != nil {
			return err
		}
		return s.ApplyToSelection(editor.Change{StrokeWidth: editor.Ptr(w)})
	case "font":
		if err := s.SetFontFamily(val); err != nil {
			return err
		}
		return s.ApplyToSelection(editor.Change{FontFamily: editor.Ptr(val)})
	case "rect":
		return s.AddRectangle()
	case "soft-rect":
		return s.AddSoftRectangle()
	case "circle":
		return s.AddCircle()
	case "triangle":
		return s.AddTriangle()
	case "inverse-triangle":
		return s.AddInverseTriangle()
	case "diamond":
		return s.AddDiamond()
	case "text":
		return s.AddText(val)
	case "image":
		res := norm.Normalize(cmd.Context(), imaging.Request{Source: val})
		return s.AddImage(res.URI, 400, 400)
	case "path":
		return s.AddPath(val, 400, 400)
	case "select-all":
		return s.SelectAll()
	case "clear-selection":
		return s.ClearSelection()
	case "delete":
		return s.DeleteSelection()
	case "copy":
		return s.Copy()
	case "paste":
		return s.Paste()
	case "front":
		return s.BringToFront()
	case "back":
		return s.SendToBack()
	case "forward":
		return s.BringForward()
	case "backward":
		return s.SendBackward()
	case scene.FilterGrayscale, scene.FilterSepia, scene.FilterInvert:
		return s.SetFilters(scene.Filter{Type: name})
	case scene.FilterBlur:
		v, err := num()
		if err != nil {
			return err
		}
		return s.SetFilters(scene.Filter{Type: name, Value: v})
	case "resize":
		ws, hs, ok := strings.Cut(val, "x")
		if !ok {
			return errors.New("want <w>x<h>")
		}
		w, err := strconv.ParseFloat(ws, 64)
		if err != nil {
			return err
		}
		h, err := strconv.ParseFloat(hs, 64)
		if err != nil {
			return err
		}
		return s.SetWorkspaceSize(w, h)
	case "undo":
		return s.Undo()
	case "redo":
		return s.Redo()
	default:
		return errors.New("unknown operation")
	}
}
