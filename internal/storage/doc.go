/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists page documents next to their images.
// Each image gets a sidecar <image>.balloons.json written transactionally with
// timestamped backups under <dir>/.bst/backups. A per-directory SQLite index at
// <dir>/.bst/index.sqlite keeps page snapshots and a full-text index of
// balloon text; it is derived data and is rebuilt when it cannot be opened.
package storage
