/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"balloonstudio/internal/crop"
)

// CBZOptions fills the ComicInfo.xml manifest.
type CBZOptions struct {
	Series      string
	Title       string
	Number      int
	Summary     string
	RightToLeft bool
	Quality     int
}

// comicInfo is the subset of the ComicRack schema readers look at.
type comicInfo struct {
	XMLName          xml.Name `xml:"ComicInfo"`
	XSI              string   `xml:"xmlns:xsi,attr"`
	Series           string   `xml:"Series,omitempty"`
	Title            string   `xml:"Title,omitempty"`
	Number           int      `xml:"Number,omitempty"`
	Summary          string   `xml:"Summary,omitempty"`
	PageCount        int      `xml:"PageCount"`
	Manga            string   `xml:"Manga,omitempty"`
	ReadingDirection string   `xml:"ReadingDirection"`
}

// CropName is the archive entry name of the i-th crop (zero based).
func CropName(i int) string { return fmt.Sprintf("panel-%03d.jpg", i+1) }

// WriteCBZ stores every crop as a JPEG in a ZIP archive, in slice order, with a
// ComicInfo.xml manifest. A missing .cbz extension is appended.
func WriteCBZ(path string, crops []crop.Crop, opt CBZOptions) (string, error) {
	if len(crops) == 0 {
		return "", ErrNoPanels
	}
	if !strings.HasSuffix(strings.ToLower(path), ".cbz") {
		path += ".cbz"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create cbz: %w", err)
	}
	fail := func(err error) (string, error) {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}

	zw := zip.NewWriter(f)
	var buf bytes.Buffer
	for i, c := range crops {
		buf.Reset()
		if err := crop.EncodeQuality(&buf, c.Image, opt.Quality); err != nil {
			return fail(fmt.Errorf("encode panel %s: %w", c.PanelID, err))
		}
		// JPEG is already compressed.
		w, err := zw.CreateHeader(&zip.FileHeader{Name: CropName(i), Method: zip.Store})
		if err != nil {
			return fail(fmt.Errorf("zip add %s: %w", CropName(i), err))
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return fail(fmt.Errorf("zip write %s: %w", CropName(i), err))
		}
	}

	manifest, err := buildComicInfo(opt, len(crops))
	if err != nil {
		return fail(err)
	}
	w, err := zw.Create("ComicInfo.xml")
	if err != nil {
		return fail(fmt.Errorf("zip add manifest: %w", err))
	}
	if _, err := w.Write(manifest); err != nil {
		return fail(fmt.Errorf("zip write manifest: %w", err))
	}
	if err := zw.Close(); err != nil {
		return fail(fmt.Errorf("close zip: %w", err))
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close cbz: %w", err)
	}
	return path, nil
}

func buildComicInfo(opt CBZOptions, pages int) ([]byte, error) {
	ci := comicInfo{
		XSI:              "http://www.w3.org/2001/XMLSchema-instance",
		Series:           opt.Series,
		Title:            opt.Title,
		Number:           opt.Number,
		Summary:          opt.Summary,
		PageCount:        pages,
		ReadingDirection: "LeftToRight",
	}
	if opt.RightToLeft {
		ci.ReadingDirection = "RightToLeft"
		ci.Manga = "YesAndRightToLeft"
	}
	body, err := xml.MarshalIndent(ci, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("build manifest: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
