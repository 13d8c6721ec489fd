/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"balloonstudio/internal/domain"
	applog "balloonstudio/internal/log"
	"balloonstudio/internal/version"
)

const (
	SidecarSuffix  = ".balloons.json"
	StateDirName   = ".bst"
	BackupsDirName = "backups"

	// DocumentFormat tags sidecar files so unrelated JSON is never loaded as a page.
	DocumentFormat  = "balloonstudio.page"
	DocumentVersion = 1

	// MaxBackups is how many timestamped backups are kept per document.
	MaxBackups = 10

	backupStampLayout = "20060102-150405.000000000"
)

// ErrUnsupportedDocument is returned for sidecars from a newer release or a
// different format.
var ErrUnsupportedDocument = errors.New("unsupported page document")

// Document is the on-disk envelope around a page.
type Document struct {
	Format  string      `json:"format"`
	Version int         `json:"version"`
	App     string      `json:"app,omitempty"`
	SavedAt time.Time   `json:"savedAt"`
	Page    domain.Page `json:"page"`

	// Recovered is set when the page came from a backup.
	Recovered bool `json:"-"`
}

// SidecarPath returns the document path for an image.
func SidecarPath(imagePath string) string { return imagePath + SidecarSuffix }

func backupsDir(imagePath string) string {
	return filepath.Join(filepath.Dir(imagePath), StateDirName, BackupsDirName)
}

// SaveDocument writes page to the sidecar of imagePath. The previous sidecar,
// if any, is copied to a timestamped backup first, and the new content lands
// through a temp file and rename so readers never see a partial document.
func SaveDocument(imagePath string, page domain.Page) error {
	l := applog.WithOperation(applog.WithComponent("storage"), "save_document").With(slog.String("page", page.ID))
	if strings.TrimSpace(imagePath) == "" {
		return errors.New("image path is required")
	}
	doc := Document{
		Format:  DocumentFormat,
		Version: DocumentVersion,
		App:     version.String(),
		SavedAt: time.Now().UTC(),
		Page:    page,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	data = append(data, '\n')

	target := SidecarPath(imagePath)
	if _, statErr := os.Stat(target); statErr == nil {
		bdir := backupsDir(imagePath)
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(target), time.Now().UTC().Format(backupStampLayout)))
		if err := copyFile(target, bpath); err != nil {
			l.Error("backup failed", slog.Any("err", err))
			return fmt.Errorf("backup current document: %w", err)
		}
		if err := pruneBackups(imagePath, MaxBackups); err != nil {
			l.Warn("prune backups failed", slog.Any("err", err))
		}
	}

	temp := filepath.Join(filepath.Dir(target), fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(target), os.Getpid(), rand.Int64()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace document: %w", err)
	}
	l.Debug("document saved", slog.String("path", target), slog.Int("balloons", len(page.Balloons)))
	return nil
}

// OpenDocument loads the sidecar of imagePath. An unreadable or corrupt sidecar
// falls back to the newest backup, with Recovered set. A missing document with
// no backups yields an error matching fs.ErrNotExist.
func OpenDocument(imagePath string) (*Document, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open_document")
	data, err := os.ReadFile(SidecarPath(imagePath))
	if err == nil {
		doc, perr := parseDocument(data)
		if perr == nil {
			return doc, nil
		}
		if errors.Is(perr, ErrUnsupportedDocument) {
			return nil, perr
		}
		err = perr
	}
	doc, berr := openLatestBackup(imagePath)
	if berr != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open document: %w", err)
		}
		return nil, fmt.Errorf("open document: %w; backup attempt: %v", err, berr)
	}
	l.Warn("document recovered from backup", slog.String("image", imagePath), slog.Any("err", err))
	doc.Recovered = true
	return doc, nil
}

func parseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc.Format != DocumentFormat {
		if doc.Format == "" {
			return nil, errors.New("parse document: missing format tag")
		}
		return nil, fmt.Errorf("%w: format %q", ErrUnsupportedDocument, doc.Format)
	}
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedDocument, doc.Version)
	}
	return &doc, nil
}

// Backups lists backup files for imagePath, oldest first.
func Backups(imagePath string) ([]string, error) {
	bdir := backupsDir(imagePath)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, err
	}
	prefix := filepath.Base(SidecarPath(imagePath)) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	// The fixed-width stamp sorts chronologically.
	sort.Strings(out)
	return out, nil
}

func openLatestBackup(imagePath string) (*Document, error) {
	list, err := Backups(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	for i := len(list) - 1; i >= 0; i-- {
		data, err := os.ReadFile(list[i])
		if err != nil {
			continue
		}
		if doc, err := parseDocument(data); err == nil {
			return doc, nil
		}
	}
	return nil, errors.New("no usable backup found")
}

func pruneBackups(imagePath string, keep int) error {
	list, err := Backups(imagePath)
	if err != nil || len(list) <= keep {
		return err
	}
	var firstErr error
	for _, p := range list[:len(list)-keep] {
		if err := os.Remove(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sf.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
