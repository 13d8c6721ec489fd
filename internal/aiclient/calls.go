/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package aiclient

import (
	"context"

	"balloonstudio/internal/workflow"
)

var _ workflow.AIService = (*Client)(nil)

type imageRequest struct {
	ImagePath string `json:"image_path"`
}

type detectedBox struct {
	Box     [4]float64   `json:"box"`
	Text    string       `json:"text,omitempty"`
	Polygon [][2]float64 `json:"polygon,omitempty"`
}

func (d detectedBox) detection() workflow.Detection {
	return workflow.Detection{Box: d.Box, Text: d.Text, Polygon: d.Polygon}
}

func (c *Client) DetectBalloons(ctx context.Context, imageRef string) ([]workflow.Detection, error) {
	var out struct {
		Balloons []detectedBox `json:"balloons"`
	}
	if err := c.post(ctx, PathDetectBalloons, imageRequest{ImagePath: imageRef}, &out); err != nil {
		return nil, err
	}
	dets := make([]workflow.Detection, len(out.Balloons))
	for i, b := range out.Balloons {
		dets[i] = b.detection()
	}
	return dets, nil
}

type ocrItem struct {
	ID   string     `json:"id"`
	Box  [4]float64 `json:"box"` // x, y, w, h in pixels
	Text string     `json:"text"`
}

func (c *Client) RecognizeText(ctx context.Context, imageRef string, items []workflow.TextRequest) ([]workflow.TextResult, error) {
	in := struct {
		ImagePath string    `json:"image_path"`
		Balloons  []ocrItem `json:"balloons"`
	}{ImagePath: imageRef, Balloons: make([]ocrItem, len(items))}
	for i, it := range items {
		in.Balloons[i] = ocrItem{ID: it.ID, Box: [4]float64{it.Box.X, it.Box.Y, it.Box.W, it.Box.H}, Text: it.Text}
	}
	var out struct {
		Balloons []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"balloons"`
	}
	if err := c.post(ctx, PathOCR, in, &out); err != nil {
		return nil, err
	}
	res := make([]workflow.TextResult, len(out.Balloons))
	for i, b := range out.Balloons {
		res[i] = workflow.TextResult{ID: b.ID, Text: b.Text}
	}
	return res, nil
}

type eraseItem struct {
	ID    string     `json:"id"`
	Box2D [4]float64 `json:"box_2d"` // ymin, xmin, ymax, xmax in 1000-space
}

func (c *Client) Inpaint(ctx context.Context, imageRef string, regions []workflow.EraseRegion) (string, error) {
	in := struct {
		ImageURL string      `json:"image_url"`
		Bubbles  []eraseItem `json:"bubbles"`
	}{ImageURL: imageRef, Bubbles: make([]eraseItem, len(regions))}
	for i, r := range regions {
		in.Bubbles[i] = eraseItem{ID: r.ID, Box2D: r.Box.Array()}
	}
	var out struct {
		CleanImageURL string `json:"clean_image_url"`
	}
	if err := c.post(ctx, PathClean, in, &out); err != nil {
		return "", err
	}
	return out.CleanImageURL, nil
}

func (c *Client) DetectPanels(ctx context.Context, imageRef string) ([]workflow.Detection, error) {
	var out struct {
		Panels []detectedBox `json:"panels"`
	}
	if err := c.post(ctx, PathDetectPanels, imageRequest{ImagePath: imageRef}, &out); err != nil {
		return nil, err
	}
	dets := make([]workflow.Detection, len(out.Panels))
	for i, p := range out.Panels {
		dets[i] = p.detection()
	}
	return dets, nil
}
