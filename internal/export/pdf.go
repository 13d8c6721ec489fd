/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"balloonstudio/internal/crop"
)

// PDFOptions controls the panel sheet.
type PDFOptions struct {
	Title  string
	Author string
	// DPI maps crop pixels to points; zero means 150.
	DPI float64
	// Margin in points around each panel.
	Margin float64
	// Quality of the embedded JPEGs; zero means crop.JPEGQuality.
	Quality int
}

// ErrNoPanels is returned when there is nothing to export.
var ErrNoPanels = errors.New("no panel crops to export")

// WritePanelPDF writes one PDF page per crop, each page sized to its panel.
func WritePanelPDF(path string, crops []crop.Crop, opt PDFOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := EncodePanelPDF(f, crops, opt); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// EncodePanelPDF is WritePanelPDF to an arbitrary writer.
func EncodePanelPDF(w io.Writer, crops []crop.Crop, opt PDFOptions) error {
	if len(crops) == 0 {
		return ErrNoPanels
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = 150
	}
	toPt := 72 / dpi
	margin := max(opt.Margin, 0)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt"})
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	pdf.SetCreator("balloonstudio", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	var buf bytes.Buffer
	for i, c := range crops {
		b := c.Image.Bounds()
		wPt, hPt := float64(b.Dx())*toPt, float64(b.Dy())*toPt
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: wPt + 2*margin, Ht: hPt + 2*margin})

		buf.Reset()
		if err := crop.EncodeQuality(&buf, c.Image, opt.Quality); err != nil {
			return fmt.Errorf("encode panel %s: %w", c.PanelID, err)
		}
		name := fmt.Sprintf("panel-%03d", i+1)
		iopt := gofpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(name, iopt, bytes.NewReader(buf.Bytes()))
		pdf.ImageOptions(name, margin, margin, wPt, hPt, false, iopt, 0, "")
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("pdf panel %s: %w", c.PanelID, err)
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
