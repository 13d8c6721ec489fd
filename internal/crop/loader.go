/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/patrickmn/go-cache"

	"balloonstudio/internal/domain"
	applog "balloonstudio/internal/log"
)

const (
	defaultCacheExpiration = 30 * time.Minute
	cacheCleanupInterval   = time.Hour
)

// Loader decodes page bitmaps by reference and keeps them in memory. A
// reference is a file path (relative ones resolve against BaseDir) or an
// http(s) URL.
type Loader struct {
	BaseDir string
	Client  *http.Client
	cache   *cache.Cache
}

// NewLoader returns a loader backed by c, or by a fresh cache when c is nil.
func NewLoader(baseDir string, c *cache.Cache) *Loader {
	if c == nil {
		c = cache.New(defaultCacheExpiration, cacheCleanupInterval)
	}
	return &Loader{BaseDir: baseDir, Client: http.DefaultClient, cache: c}
}

// Put seeds the cache, e.g. with a bitmap that is already decoded.
func (l *Loader) Put(ref string, img image.Image) {
	l.cache.Set(ref, img, cache.DefaultExpiration)
}

// Load returns the decoded bitmap for ref.
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, errors.New("empty image reference")
	}
	if v, ok := l.cache.Get(ref); ok {
		return v.(image.Image), nil
	}
	var (
		img image.Image
		err error
	)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		img, err = l.fetch(ctx, ref)
	} else {
		img, err = l.open(ref)
	}
	if err != nil {
		return nil, err
	}
	l.cache.Set(ref, img, cache.DefaultExpiration)
	return img, nil
}

func (l *Loader) open(ref string) (image.Image, error) {
	path := ref
	if !filepath.IsAbs(path) && l.BaseDir != "" {
		path = filepath.Join(l.BaseDir, path)
	}
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", ref, err)
		}
		return webp.Decode(bytes.NewReader(data))
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", ref, err)
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return decodeBytes(data)
}

// decodeBytes tries the registered decoders first, then WebP.
func decodeBytes(data []byte) (image.Image, error) {
	if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, errors.New("image: unknown or unsupported format")
}

// Source resolves the bitmap a crop batch reads from: the cleaned image when
// the page has one that loads, the original otherwise.
func (l *Loader) Source(ctx context.Context, page domain.Page) (image.Image, error) {
	var clean image.Image
	if page.CleanImageRef != "" {
		img, err := l.Load(ctx, page.CleanImageRef)
		if err != nil {
			applog.WithComponent("crop").Warn("clean image unavailable, using original",
				slog.String("page", page.ID), slog.Any("err", err))
		} else {
			clean = img
		}
	}
	if clean != nil {
		return SelectSource(clean, nil), nil
	}
	orig, err := l.Load(ctx, page.ImageRef)
	if err != nil {
		return nil, err
	}
	return SelectSource(nil, orig), nil
}

// CropPanelsToImages crops every panel of page from a single source bitmap.
func CropPanelsToImages(ctx context.Context, l *Loader, page domain.Page) ([]Crop, error) {
	src, err := l.Source(ctx, page)
	if err != nil {
		return nil, err
	}
	return CropPanels(ctx, src, page.Panels)
}
