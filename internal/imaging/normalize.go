/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package imaging turns arbitrary image references (remote URLs, data URIs,
// bare base64) into something a card can embed directly. It avoids decode and
// re-encode work whenever the reference is already usable, and it never fails:
// the worst outcome is a generated placeholder graphic.
package imaging

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"carouselstudio/internal/cache"
	applog "carouselstudio/internal/log"
)

var (
	// ErrTooLarge reports a source above the configured byte limit.
	ErrTooLarge = errors.New("imaging: image too large")
	// ErrNotImage reports a source that is not a decodable image.
	ErrNotImage = errors.New("imaging: not an image")
)

// Defaults for Config fields left zero.
const (
	DefaultHeadTimeout  = 3 * time.Second
	DefaultFetchTimeout = 5 * time.Second
	DefaultMaxBytes     = 10 << 20
	DefaultTolerance    = 0.10
	DefaultCacheTTL     = 10 * time.Minute
)

type Config struct {
	HeadTimeout  time.Duration
	FetchTimeout time.Duration
	MaxBytes     int64
	// Tolerance is the relative size difference accepted without resizing.
	Tolerance float64
	CacheTTL  time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeadTimeout <= 0 {
		c.HeadTimeout = DefaultHeadTimeout
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	return c
}

// Request describes one image to resolve. Height 0 means a square target of
// Width; Width 0 means no target size at all.
type Request struct {
	Source string
	Width  int
	Height int
	// Force skips the direct-use shortcut and always decodes.
	Force bool
}

func (r Request) target() (w, h int) {
	if r.Height > 0 {
		return r.Width, r.Height
	}
	return r.Width, r.Width
}

// Outcome tells how a Result was produced.
type Outcome int

const (
	Direct Outcome = iota
	Processed
	Placeholder
)

func (o Outcome) String() string {
	switch o {
	case Direct:
		return "direct"
	case Processed:
		return "processed"
	default:
		return "placeholder"
	}
}

// Result is always usable: URI is either the original reference, a data URI
// built from the source, or a placeholder data URI. Err carries the reason a
// placeholder was substituted.
type Result struct {
	URI     string
	Outcome Outcome
	Err     error
}

// Normalizer resolves image references. It is safe for concurrent use.
type Normalizer struct {
	cfg    Config
	client *http.Client
	cache  cache.Cache
	log    *slog.Logger
}

// New builds a Normalizer. A nil client uses a plain http.Client (per-phase
// deadlines come from the request context); a nil cache disables caching.
func New(cfg Config, client *http.Client, c cache.Cache) *Normalizer {
	if client == nil {
		client = &http.Client{}
	}
	return &Normalizer{
		cfg:    cfg.withDefaults(),
		client: client,
		cache:  c,
		log:    applog.WithComponent("imaging"),
	}
}

// WithLogger replaces the component logger.
func (n *Normalizer) WithLogger(l *slog.Logger) *Normalizer {
	if l != nil {
		n.log = l
	}
	return n
}

// Normalize resolves req. It never returns an error; failures yield a
// placeholder with Result.Err set.
func (n *Normalizer) Normalize(ctx context.Context, req Request) Result {
	key := n.cacheKey(req)
	if uri, ok := n.cached(ctx, key); ok {
		return Result{URI: uri, Outcome: outcomeOf(req, uri)}
	}
	res, err := n.resolve(ctx, req)
	if err != nil {
		reason := "failed"
		if errors.Is(err, ErrTooLarge) {
			reason = "too_large"
		}
		applog.WithOperation(n.log, "normalize").Warn("image fallback to placeholder",
			slog.String("reason", reason), slog.String("source", abbreviate(req.Source)), slog.Any("err", err))
		w, h := req.target()
		return Result{URI: n.Placeholder(ctx, w, h), Outcome: Placeholder, Err: err}
	}
	n.store(ctx, key, res.URI)
	return res
}

func (n *Normalizer) resolve(ctx context.Context, req Request) (Result, error) {
	src := strings.TrimSpace(req.Source)
	if src == "" {
		return Result{}, fmt.Errorf("%w: empty source", ErrNotImage)
	}
	direct := !req.Force && req.Height == 0
	tw, th := req.target()

	switch {
	case isDataURI(src):
		if !req.Force {
			return Result{URI: src, Outcome: Direct}, nil
		}
		mime, data, err := decodeDataURI(src)
		if err != nil {
			return Result{}, err
		}
		return n.process(data, mime, tw, th)

	case isHTTP(src):
		if direct {
			if n.headIsImage(ctx, src) {
				return Result{URI: src, Outcome: Direct}, nil
			}
		}
		data, err := n.fetch(ctx, src)
		if err != nil {
			return Result{}, err
		}
		mime := http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			return Result{}, fmt.Errorf("%w: %s served %s", ErrNotImage, abbreviate(src), mime)
		}
		if direct {
			return Result{URI: src, Outcome: Direct}, nil
		}
		return n.process(data, mime, tw, th)

	default:
		data, err := base64.StdEncoding.DecodeString(src)
		if err != nil {
			return Result{}, fmt.Errorf("%w: bad base64: %v", ErrNotImage, err)
		}
		mime := SniffBase64(src)
		if direct {
			if int64(len(data)) > n.cfg.MaxBytes {
				return Result{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
			}
			return Result{URI: DataURI(mime, data), Outcome: Direct}, nil
		}
		return n.process(data, mime, tw, th)
	}
}

// headIsImage is the cheap check: a HEAD answered 2xx with an image content type.
func (n *Normalizer) headIsImage(ctx context.Context, src string) bool {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.HeadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, src, nil)
	if err != nil {
		return false
	}
	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Debug("head check failed", slog.String("source", abbreviate(src)), slog.Any("err", err))
		return false
	}
	defer resp.Body.Close()
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	return resp.StatusCode/100 == 2 && strings.HasPrefix(ct, "image/")
}

func (n *Normalizer) fetch(ctx context.Context, src string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.FetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("imaging: build request: %w", err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imaging: fetch %s: %w", abbreviate(src), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("imaging: fetch %s: status %d", abbreviate(src), resp.StatusCode)
	}
	if resp.ContentLength > n.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: content length %d", ErrTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, n.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("imaging: read %s: %w", abbreviate(src), err)
	}
	if int64(len(data)) > n.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, n.cfg.MaxBytes)
	}
	return data, nil
}

// process decodes data and fits it to tw x th. Sources already within
// tolerance are passed through as a data URI without resampling.
func (n *Normalizer) process(data []byte, mime string, tw, th int) (Result, error) {
	if int64(len(data)) > n.cfg.MaxBytes {
		return Result{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if format != "" {
		mime = "image/" + format
	}
	b := img.Bounds()
	if tw <= 0 || th <= 0 || (n.near(b.Dx(), tw) && n.near(b.Dy(), th)) {
		return Result{URI: DataURI(mime, data), Outcome: Processed}, nil
	}
	if tw == th {
		png, err := circleCrop(img, tw)
		if err != nil {
			return Result{}, err
		}
		return Result{URI: DataURI("image/png", png), Outcome: Processed}, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return Result{}, fmt.Errorf("imaging: encode: %w", err)
	}
	return Result{URI: DataURI("image/jpeg", buf.Bytes()), Outcome: Processed}, nil
}

func (n *Normalizer) near(have, want int) bool {
	return math.Abs(float64(have-want)) <= n.cfg.Tolerance*float64(want)
}

// centerSquare is the largest centered square inside r.
func centerSquare(r image.Rectangle) image.Rectangle {
	side := min(r.Dx(), r.Dy())
	x := r.Min.X + (r.Dx()-side)/2
	y := r.Min.Y + (r.Dy()-side)/2
	return image.Rect(x, y, x+side, y+side)
}

func (n *Normalizer) cacheKey(req Request) string {
	sum := sha256.Sum256([]byte(req.Source))
	return cache.Key("image", hex.EncodeToString(sum[:12]),
		strconv.Itoa(req.Width), strconv.Itoa(req.Height), strconv.FormatBool(req.Force))
}

func (n *Normalizer) cached(ctx context.Context, key string) (string, bool) {
	if n.cache == nil {
		return "", false
	}
	v, ok, err := n.cache.Get(ctx, key)
	if err != nil || !ok {
		return "", false
	}
	return string(v), true
}

func (n *Normalizer) store(ctx context.Context, key, uri string) {
	if n.cache == nil {
		return
	}
	if err := n.cache.Set(ctx, key, []byte(uri), n.cfg.CacheTTL); err != nil {
		n.log.Debug("image cache write failed", slog.Any("err", err))
	}
}

func outcomeOf(req Request, uri string) Outcome {
	if uri == strings.TrimSpace(req.Source) {
		return Direct
	}
	return Processed
}

func isHTTP(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func isDataURI(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), "data:image/")
}

func decodeDataURI(s string) (string, []byte, error) {
	head, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasSuffix(strings.ToLower(head), ";base64") {
		return "", nil, fmt.Errorf("%w: unsupported data uri", ErrNotImage)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: bad base64: %v", ErrNotImage, err)
	}
	mime := strings.TrimSuffix(strings.TrimPrefix(head, "data:"), ";base64")
	return mime, data, nil
}

// SniffBase64 guesses the MIME type of bare base64 image data from its
// leading characters. Unknown prefixes are assumed to be JPEG.
func SniffBase64(s string) string {
	switch {
	case strings.HasPrefix(s, "iVBO"):
		return "image/png"
	case strings.HasPrefix(s, "UklG"):
		return "image/webp"
	case strings.HasPrefix(s, "R0lG"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

// DataURI encodes data as a base64 data URI.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func abbreviate(s string) string {
	if len(s) <= 80 {
		return s
	}
	return s[:77] + "..."
}
