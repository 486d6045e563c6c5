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
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"carouselstudio/internal/config"
	"carouselstudio/internal/crash"
	applog "carouselstudio/internal/log"
	"carouselstudio/internal/version"

	"github.com/spf13/cobra"
)

func main() {
	applog.Init(applog.FromEnv())
	opts := crash.Options{Flusher: activeBridge, Uploader: crash.UploaderFromEnv()}
	if dir, err := config.ConfigDir(); err == nil {
		opts.ReportDir = filepath.Join(dir, "crash")
	}
	defer crash.Recover(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "carousel",
		Short:         "Build, edit and export social carousels",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newSegmentCmd(),
		newGenerateCmd(),
		newProjectsCmd(),
		newPagesCmd(),
		newRenderCmd(),
		newExportCmd(),
		newDBCmd(),
		newCacheCmd(),
		newServeCmd(),
		newAuthCmd(),
		newConfigCmd(),
	)
	return root
}

func printf(cmd *cobra.Command, format string, a ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, a...)
}
