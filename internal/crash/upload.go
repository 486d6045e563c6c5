/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	applog "carouselstudio/internal/log"
)

// EnvUploadURL opts in to crash report uploads.
const EnvUploadURL = "CST_CRASH_UPLOAD_URL"

const defaultUploadTimeout = 1500 * time.Millisecond

// Uploader posts crash reports to an opt-in endpoint. A nil Uploader is a no-op.
type Uploader struct {
	URL     string
	Timeout time.Duration
	client  *http.Client
	log     *slog.Logger
}

// UploaderFromEnv returns an Uploader when EnvUploadURL is set, else nil.
func UploaderFromEnv() *Uploader {
	u := strings.TrimSpace(os.Getenv(EnvUploadURL))
	if u == "" {
		return nil
	}
	return NewUploader(u, 0)
}

func NewUploader(url string, timeout time.Duration) *Uploader {
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	return &Uploader{URL: url, Timeout: timeout, client: &http.Client{}, log: applog.WithComponent("crash")}
}

// Upload sends report and waits at most Timeout; the process is about to
// exit, so there is no background retry.
func (u *Uploader) Upload(report []byte) {
	if u == nil || u.URL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), u.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, bytes.NewReader(report))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp, err := u.client.Do(req)
	if err != nil {
		u.log.Debug("crash upload failed", slog.Any("err", err))
		return
	}
	_ = resp.Body.Close()
	u.log.Debug("crash report uploaded", slog.Int("status", resp.StatusCode))
}
