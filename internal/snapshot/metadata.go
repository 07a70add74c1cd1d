// Copyright 2025 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package snapshot

import (
	"time"
)

// Metadata - snapshot header stored as a separate object. It is written after the snapshot itself, so the
// directory without metadata is an incomplete snapshot
type Metadata struct {
	ID             ID        `json:"id" yaml:"id"`
	CreatedAt      time.Time `json:"createdAt" yaml:"createdAt"`
	Database       string    `json:"dbName" yaml:"dbName"`
	ServerVersion  string    `json:"serverVersion" yaml:"serverVersion"`
	Schemas        []string  `json:"schemas" yaml:"schemas"`
	Fingerprint    string    `json:"fingerprint" yaml:"fingerprint"`
	RelationsCount int       `json:"relationsCount" yaml:"relationsCount"`
	EnumsCount     int       `json:"enumsCount" yaml:"enumsCount"`
	OriginalSize   int64     `json:"originalSize" yaml:"originalSize"`
	CompressedSize int64     `json:"compressedSize" yaml:"compressedSize"`
}
