/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"balloonstudio/internal/crop"
	"balloonstudio/internal/domain"
	applog "balloonstudio/internal/log"
	"balloonstudio/internal/textlayout"
)

// PresetName names a bundle of export formats.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Format is one export artifact type.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPDF Format = "pdf"
	FormatCBZ Format = "cbz"
)

// BatchOptions controls ExportPage.
type BatchOptions struct {
	Preset  PresetName
	Formats []Format // empty means the preset defaults
	OutDir  string
	Quality int
	Fonts   textlayout.Provider
}

// Result lists the files one ExportPage call wrote.
type Result struct {
	Files  []string
	Panels int
}

// PresetFormats returns the default formats of a preset.
func PresetFormats(p PresetName) []Format {
	switch p {
	case PresetWeb:
		return []Format{FormatSVG, FormatCBZ}
	case PresetPrint:
		return []Format{FormatPDF, FormatSVG}
	default:
		return []Format{FormatSVG}
	}
}

// ParseFormats accepts a comma separated list such as "svg,cbz".
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	for _, part := range strings.Split(s, ",") {
		switch f := Format(strings.ToLower(strings.TrimSpace(part))); f {
		case "":
		case FormatSVG, FormatPDF, FormatCBZ:
			out = append(out, f)
		default:
			return nil, fmt.Errorf("unknown format: %s", part)
		}
	}
	return out, nil
}

// ExportPage writes the requested artifacts for one page into OutDir, named
// after the page id. Panel crops are produced once and shared by the PDF and
// CBZ writers; a page without croppable panels still gets its SVG.
func ExportPage(ctx context.Context, loader *crop.Loader, page domain.Page, opt BatchOptions) (Result, error) {
	l := applog.WithOperation(applog.WithComponent("export"), "export_page")
	formats := opt.Formats
	if len(formats) == 0 {
		formats = PresetFormats(opt.Preset)
	}
	if err := os.MkdirAll(opt.OutDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("ensure out dir: %w", err)
	}
	base := filepath.Join(opt.OutDir, safeName(page.ID))

	var (
		res    Result
		crops  []crop.Crop
		cropOK bool
	)
	needCrops := func() ([]crop.Crop, error) {
		if cropOK {
			return crops, nil
		}
		c, err := crop.CropPanelsToImages(ctx, loader, page)
		if err != nil {
			return nil, fmt.Errorf("crop panels: %w", err)
		}
		crops, cropOK = c, true
		res.Panels = len(c)
		return crops, nil
	}

	for _, f := range formats {
		switch f {
		case FormatSVG:
			path := base + ".svg"
			if err := writeSVGFile(path, page, SVGOptions{ShowPanels: true, ImageHref: imageHref(page), Fonts: opt.Fonts}); err != nil {
				return res, err
			}
			res.Files = append(res.Files, path)
		case FormatPDF:
			cs, err := needCrops()
			if err != nil {
				return res, err
			}
			path := base + ".pdf"
			if err := WritePanelPDF(path, cs, PDFOptions{Title: page.ID, Quality: opt.Quality}); err != nil {
				if errors.Is(err, ErrNoPanels) {
					l.Warn("no panels, skipping pdf", slog.String("page", page.ID))
					continue
				}
				return res, err
			}
			res.Files = append(res.Files, path)
		case FormatCBZ:
			cs, err := needCrops()
			if err != nil {
				return res, err
			}
			path, err := WriteCBZ(base+".cbz", cs, CBZOptions{Title: page.ID, Quality: opt.Quality})
			if err != nil {
				if errors.Is(err, ErrNoPanels) {
					l.Warn("no panels, skipping cbz", slog.String("page", page.ID))
					continue
				}
				return res, err
			}
			res.Files = append(res.Files, path)
		default:
			return res, fmt.Errorf("unknown format: %s", f)
		}
	}
	l.Info("page exported", slog.String("page", page.ID), slog.Int("files", len(res.Files)), slog.Int("panels", res.Panels))
	return res, nil
}

func writeSVGFile(path string, page domain.Page, opt SVGOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create svg: %w", err)
	}
	if err := WriteSVG(f, page, opt); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func imageHref(page domain.Page) string {
	if page.CleanImageRef != "" {
		return page.CleanImageRef
	}
	return page.ImageRef
}

func safeName(id string) string {
	if id == "" {
		return "page"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, id)
}
