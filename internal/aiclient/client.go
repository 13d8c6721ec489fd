/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package aiclient talks to the detection, OCR and inpainting service over
// HTTP JSON. It implements workflow.AIService.
package aiclient

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	gojsonschema "github.com/xeipuuv/gojsonschema"
	"golang.org/x/time/rate"

	applog "balloonstudio/internal/log"
)

// Service routes.
const (
	PathDetectBalloons = "/detect-balloons"
	PathOCR            = "/ocr"
	PathClean          = "/clean"
	PathDetectPanels   = "/detect-panels"
)

const maxResponseBytes = 16 << 20

//go:embed schemas/*.json
var schemaFS embed.FS

var ErrInvalidResponse = errors.New("response does not match schema")

// StatusError is a non-2xx reply. Detail carries the service's own message
// when the body had one.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("service returned %d", e.Code)
	}
	return fmt.Sprintf("service returned %d: %s", e.Code, e.Detail)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
	// RatePerSec throttles outgoing calls; zero disables throttling.
	RatePerSec float64
	HTTPClient *http.Client
}

type Client struct {
	base    *url.URL
	http    *http.Client
	token   string
	limiter *rate.Limiter
	schemas map[string]*gojsonschema.Schema
	log     *slog.Logger
}

// New validates cfg and compiles the embedded response schemas.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid service url %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		hc = &http.Client{Timeout: timeout}
	}
	c := &Client{
		base:    base,
		http:    hc,
		token:   cfg.Token,
		schemas: make(map[string]*gojsonschema.Schema),
		log:     applog.WithComponent("aiclient"),
	}
	if cfg.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	for path, file := range map[string]string{
		PathDetectBalloons: "detect",
		PathOCR:            "ocr",
		PathClean:          "clean",
		PathDetectPanels:   "panels",
	} {
		raw, err := schemaFS.ReadFile("schemas/" + file + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", file, err)
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", file, err)
		}
		c.schemas[path] = s
	}
	return c, nil
}

// post sends in as JSON to path, validates the reply against the route's
// schema and decodes it into out.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	l := c.log.With(slog.String("path", path), slog.String("request_id", reqID))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		l.Warn("request failed", slog.Any("err", err))
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	l.Debug("response", slog.Int("status", resp.StatusCode), slog.Duration("took", time.Since(start)), slog.Int("bytes", len(data)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Detail: errorDetail(data)}
	}
	if s := c.schemas[path]; s != nil {
		res, err := s.Validate(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		if !res.Valid() {
			msgs := make([]string, 0, len(res.Errors()))
			for _, e := range res.Errors() {
				msgs = append(msgs, e.String())
			}
			return fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(msgs, "; "))
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorDetail pulls "detail" or "message" out of a JSON error body and falls
// back to a short excerpt of the raw body.
func errorDetail(body []byte) string {
	var e struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if s, ok := e.Detail.(string); ok && s != "" {
			return s
		}
		if e.Detail != nil {
			if b, err := json.Marshal(e.Detail); err == nil {
				return string(b)
			}
		}
		if e.Message != "" {
			return e.Message
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
