/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FontLibrary holds parsed OpenType fonts keyed by family, weight and italic.
// It is safe for concurrent use by export workers.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[fontKey]*opentype.Font
}

type fontKey struct {
	family string
	weight int
	italic bool
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]*opentype.Font)} }

// LoadFile parses a TTF/OTF file and registers it.
func (fl *FontLibrary) LoadFile(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.Load(family, weight, italic, data)
}

// Load registers font data under family/weight/italic.
func (fl *FontLibrary) Load(family string, weight int, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	fl.fonts[fontKey{family: normFamily(family), weight: weight, italic: italic}] = f
	return nil
}

// Len reports how many faces are registered.
func (fl *FontLibrary) Len() int {
	if fl == nil {
		return 0
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return len(fl.fonts)
}

// find prefers an exact match, then the closest weight with the same slant,
// then the closest weight of the other slant. Ties go to the lighter weight.
func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	fam := normFamily(spec.Family)
	if f, ok := fl.fonts[fontKey{family: fam, weight: spec.Weight, italic: spec.Italic}]; ok {
		return f
	}
	var (
		best    *opentype.Font
		bestKey fontKey
		bestD   = -1
	)
	for k, f := range fl.fonts {
		if k.family != fam {
			continue
		}
		d := k.weight - spec.Weight
		if d < 0 {
			d = -d
		}
		if k.italic != spec.Italic {
			d += 1000
		}
		if bestD < 0 || d < bestD || (d == bestD && k.weight < bestKey.weight) {
			best, bestKey, bestD = f, k, d
		}
	}
	return best
}

func normFamily(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// OTProvider resolves specs against a FontLibrary and falls back to another
// Provider when the family is unknown. Kerning comes from opentype.Face.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // 72 if zero, so Size is in pixels
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) Face {
	if spec.Size <= 0 {
		spec.Size = DefaultFontSize
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if f := p.Lib.find(spec); f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.Size, DPI: dpi, Hinting: font.HintingNone})
		if err == nil {
			m := face.Metrics()
			asc, desc := fixedToFloat(m.Ascent), fixedToFloat(m.Descent)
			return Face{
				Face:  face,
				Scale: 1,
				Metrics: Metrics{
					Ascent:  asc,
					Descent: desc,
					LineGap: max(0, fixedToFloat(m.Height)-asc-desc),
				},
			}
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
