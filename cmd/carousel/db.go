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

	"carouselstudio/internal/config"
	"carouselstudio/internal/storage"

	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "db", Short: "Database maintenance"}
	migrate := &cobra.Command{Use: "migrate", Short: "Schema migrations"}

	withDB := func(fn func(cmd *cobra.Command, db *storage.DB, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load()
			if err != nil {
				return err
			}
			if strings.EqualFold(cfg.Storage.Driver, "remote") {
				return errors.New("the remote driver has no local database")
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			return fn(cmd, db, args)
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: withDB(func(cmd *cobra.Command, db *storage.DB, _ []string) error {
			if err := storage.MigrateUp(db); err != nil {
				return err
			}
			return printStatus(cmd, db)
		}),
	}
	down := &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withDB(func(cmd *cobra.Command, db *storage.DB, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid steps %q", args[0])
				}
				steps = n
			}
			if err := storage.MigrateDown(db, steps); err != nil {
				return err
			}
			return printStatus(cmd, db)
		}),
	}
	status := &cobra.Command{
		Use:   "status",
		Short: "Show the schema version",
		RunE: withDB(func(cmd *cobra.Command, db *storage.DB, _ []string) error {
			return printStatus(cmd, db)
		}),
	}
	migrate.AddCommand(up, down, status)
	cmd.AddCommand(migrate)
	return cmd
}

func printStatus(cmd *cobra.Command, db *storage.DB) error {
	st, err := storage.MigrationStatus(db)
	if err != nil {
		return err
	}
	state := "current"
	switch {
	case st.Dirty:
		state = "dirty"
	case !st.Current():
		state = "pending"
	}
	printf(cmd, "%s schema version %d of %d (%s)\n", db.Dialect(), st.Version, st.Latest, state)
	return nil
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Image cache maintenance"}
	var prefix string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached images",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "cache_clear")
			if err != nil {
				return err
			}
			defer a.Close()
			if prefix != "" {
				err = a.cache.ClearByPrefix(cmd.Context(), prefix)
			} else {
				err = a.cache.Clear(cmd.Context())
			}
			if err != nil {
				return err
			}
			printf(cmd, "cache cleared\n")
			return nil
		},
	}
	clearCmd.Flags().StringVar(&prefix, "prefix", "", "only keys with this prefix")
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show the size of the image cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "cache_stats")
			if err != nil {
				return err
			}
			defer a.Close()
			bc, ok := a.cache.(*storage.BlobCache)
			if !ok {
				printf(cmd, "in-memory cache\n")
				return nil
			}
			n, err := bc.TotalBytes(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "%d bytes cached\n", n)
			return nil
		},
	}
	cmd.AddCommand(clearCmd, stats)
	return cmd
}
