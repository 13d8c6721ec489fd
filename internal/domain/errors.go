/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "errors"

// Error kinds surfaced by the workflow and geometry layers. Callers wrap them
// with context and match with errors.Is.
var (
	ErrEmptyDetectionResult   = errors.New("detector found nothing")
	ErrMissingImageDimensions = errors.New("image dimensions unknown")
	ErrUnmatchedCorrelationID = errors.New("no shape matches correlation id")
	ErrExternalService        = errors.New("external service failure")
	ErrDegenerateGeometry     = errors.New("degenerate geometry")
	ErrStaleResponse          = errors.New("response belongs to a page that is no longer active")
	ErrInvalidTransition      = errors.New("invalid workflow transition")
	ErrNotFound               = errors.New("shape not found")
)
