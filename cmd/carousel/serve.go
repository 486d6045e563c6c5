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
	"net/http"
	"os"
	"strings"
	"time"

	"carouselstudio/internal/backend"
	"carouselstudio/internal/config"

	"github.com/spf13/cobra"
)

// EnvServerSecret holds the HMAC key used to sign API tokens.
const EnvServerSecret = "CST_SERVER_SECRET"

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured database over the pages HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), "serve")
			if err != nil {
				return err
			}
			defer a.Close()
			if a.db == nil {
				return errors.New("serve needs a sqlite or postgres storage driver")
			}
			srv := backend.NewServer(a.store, backend.ServerConfig{
				Addr:   addr,
				Secret: os.Getenv(EnvServerSecret),
				Ready:  a.db,
			})
			err = srv.ListenAndServe(cmd.Context())
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Remote API credentials"}
	var (
		url     string
		subject string
		ttl     time.Duration
	)
	login := &cobra.Command{
		Use:   "login",
		Short: "Fetch an API token and switch storage to the remote driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load()
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Storage.RemoteURL
			}
			if url == "" {
				return errors.New("--url is required")
			}
			if subject == "" {
				subject = os.Getenv("USER")
			}
			tok, err := backend.NewClient(url, "").FetchToken(cmd.Context(), subject, ttl)
			if err != nil {
				return fmt.Errorf("fetching token: %w", err)
			}
			cfg.Storage.Driver = "remote"
			cfg.Storage.RemoteURL = strings.TrimRight(url, "/")
			if err := config.Save(cfg, tok); err != nil {
				return err
			}
			printf(cmd, "logged in to %s as %s\n", cfg.Storage.RemoteURL, subject)
			return nil
		},
	}
	login.Flags().StringVar(&url, "url", "", "server base URL")
	login.Flags().StringVar(&subject, "subject", "", "token subject (default $USER)")
	login.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (the server caps it at 24h)")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ClearToken(); err != nil {
				return err
			}
			printf(cmd, "token removed\n")
			return nil
		},
	}
	cmd.AddCommand(login, logout)
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Show or initialize the user configuration"}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, tok, err := config.Load()
			if err != nil {
				return err
			}
			path, _ := config.ConfigPath()
			printf(cmd, "file:     %s\n", path)
			printf(cmd, "storage:  %s %s%s\n", cfg.Storage.Driver, cfg.Storage.DSN, cfg.Storage.RemoteURL)
			printf(cmd, "token:    %t\n", tok != "")
			printf(cmd, "cards:    %s %dx%d max %d\n", cfg.Cards.Style, cfg.Cards.Width, cfg.Cards.Height, cfg.Cards.MaxCards)
			printf(cmd, "autosave: %s\n", cfg.Editor.AutosaveDebounce())
			printf(cmd, "history:  %d entries, %d bytes\n", cfg.Editor.HistoryMaxEntries, cfg.Editor.HistoryMaxBytes)
			printf(cmd, "images:   fetch %s, max %d bytes\n", cfg.Images.FetchTimeout(), cfg.Images.MaxBytes)
			return nil
		},
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, ""); err != nil {
				return err
			}
			path, _ := config.ConfigPath()
			printf(cmd, "configuration written to %s\n", path)
			return nil
		},
	}
	cmd.AddCommand(show, initCmd)
	return cmd
}
