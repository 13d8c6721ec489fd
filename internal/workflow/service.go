/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package workflow

import (
	"context"

	"balloonstudio/internal/coords"
	"balloonstudio/internal/domain"
)

// Detection is one raw detector hit. Box is [ymin, xmin, ymax, xmax] either
// fractional (all values < 1) or in image pixels. Polygon, when present,
// holds [x, y] contour points in the same convention.
type Detection struct {
	Box     [4]float64
	Text    string
	Polygon [][2]float64
}

// TextRequest asks for the text inside one balloon. Text is always sent empty.
type TextRequest struct {
	ID   string
	Box  coords.PixelBox
	Text string
}

// TextResult echoes a request id with the recognized text.
type TextResult struct {
	ID   string
	Text string
}

// EraseRegion is one inpainting region in integer 1000-space.
type EraseRegion struct {
	ID  string
	Box domain.Box
}

// AIService is the external detection, OCR and inpainting collaborator.
type AIService interface {
	DetectBalloons(ctx context.Context, imageRef string) ([]Detection, error)
	RecognizeText(ctx context.Context, imageRef string, items []TextRequest) ([]TextResult, error)
	Inpaint(ctx context.Context, imageRef string, regions []EraseRegion) (string, error)
	DetectPanels(ctx context.Context, imageRef string) ([]Detection, error)
}
