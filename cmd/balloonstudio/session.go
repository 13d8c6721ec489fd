/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"balloonstudio/internal/aiclient"
	"balloonstudio/internal/config"
	"balloonstudio/internal/crop"
	"balloonstudio/internal/domain"
	"balloonstudio/internal/editor"
	applog "balloonstudio/internal/log"
	"balloonstudio/internal/storage"
	"balloonstudio/internal/undo"
	"balloonstudio/internal/workflow"
)

// session is one page opened from disk: its sidecar document, the editor
// holding it and the workflow engine driving the external service.
type session struct {
	imagePath string
	cfg       config.AppConfig
	loader    *crop.Loader
	ed        *editor.Editor
	eng       *workflow.Engine
	recovered bool
	log       *slog.Logger
}

// openSession loads the sidecar next to imagePath, or starts a fresh page
// sized from the image when there is none.
func openSession(ctx context.Context, cfg config.AppConfig, token, imagePath string) (*session, error) {
	abs, err := filepath.Abs(imagePath)
	if err != nil {
		return nil, err
	}
	s := &session{
		imagePath: abs,
		cfg:       cfg,
		loader:    crop.NewLoader(filepath.Dir(abs), nil),
		log:       applog.WithComponent("cli"),
	}

	var page domain.Page
	doc, err := storage.OpenDocument(abs)
	switch {
	case err == nil:
		page, s.recovered = doc.Page, doc.Recovered
		if s.recovered {
			s.log.Warn("document restored from backup", slog.String("image", abs))
		}
	case errors.Is(err, fs.ErrNotExist):
		page = domain.Page{ID: uuid.NewString(), ImageRef: abs}
	default:
		return nil, err
	}
	if page.Width <= 0 || page.Height <= 0 {
		img, err := s.loader.Load(ctx, abs)
		if err != nil {
			return nil, fmt.Errorf("read page image: %w", err)
		}
		page.Width, page.Height = img.Bounds().Dx(), img.Bounds().Dy()
	}

	ai, err := aiclient.New(aiclient.Config{
		BaseURL:    cfg.Service.BaseURL,
		Token:      token,
		Timeout:    cfg.Service.Timeout(),
		RatePerSec: cfg.Service.RatePerSec,
	})
	if err != nil {
		return nil, err
	}
	s.ed = editor.New(editor.Options{
		History: undo.Config{
			MaxEntries:  cfg.Workflow.HistoryDepth,
			MinInterval: cfg.Workflow.CoalesceWindow(),
		},
		SnapThreshold: cfg.Workflow.SnapDistance,
	})
	s.eng = workflow.New(ai, s.ed, workflow.Options{PanelInset: cfg.Workflow.PanelInset})
	s.eng.BeginPageLoad(page.ID)
	if err := s.eng.CompletePageLoad(page); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) dir() string { return filepath.Dir(s.imagePath) }

// save writes the sidecar and records a labeled snapshot plus the text index
// entry in the directory's index.
func (s *session) save(ctx context.Context, label string) error {
	page := s.ed.Page()
	if err := storage.SaveDocument(s.imagePath, page); err != nil {
		return err
	}
	s.ed.MarkSaved()

	ix, err := storage.OpenIndex(ctx, s.dir())
	if err != nil {
		s.log.Warn("index unavailable", slog.Any("err", err))
		return nil
	}
	defer ix.Close()
	if _, err := ix.SaveSnapshot(ctx, page, label, time.Now()); err != nil {
		return err
	}
	if _, err := ix.PruneSnapshots(ctx, page.ID, storage.DefaultSnapshotLimit); err != nil {
		return err
	}
	return ix.IndexPage(ctx, page)
}

// autosave is handed to crash.Recover; it only writes unsaved work.
func (s *session) autosave() (string, error) {
	if s == nil || s.ed == nil || !s.ed.Dirty() {
		return "", nil
	}
	if err := storage.SaveDocument(s.imagePath, s.ed.Page()); err != nil {
		return "", err
	}
	return storage.SidecarPath(s.imagePath), nil
}
