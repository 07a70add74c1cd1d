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
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/greenmaskio/pgschemadiff/internal/utils/ioutils"
)

const (
	FormatYaml = "yaml"
	FormatJson = "json"
)

func Encode(w io.Writer, s *Snapshot, format string) error {
	switch format {
	case FormatYaml:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("cannot encode snapshot to yaml: %w", err)
		}
		return enc.Close()
	case FormatJson:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("cannot encode snapshot to json: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown snapshot format \"%s\"", format)
}

// Decode - decodes and validates the snapshot
func Decode(r io.Reader, format string) (*Snapshot, error) {
	s := &Snapshot{}
	switch format {
	case FormatYaml:
		if err := yaml.NewDecoder(r).Decode(s); err != nil {
			return nil, fmt.Errorf("cannot decode snapshot from yaml: %w", err)
		}
	case FormatJson:
		if err := json.NewDecoder(r).Decode(s); err != nil {
			return nil, fmt.Errorf("cannot decode snapshot from json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown snapshot format \"%s\"", format)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return s, nil
}

// FormatFromPath - detects the format by the file extension. The gzip extension is skipped
func FormatFromPath(p string) (string, error) {
	ext := filepath.Ext(strings.TrimSuffix(p, ioutils.GzipExt))
	switch ext {
	case ".yaml", ".yml":
		return FormatYaml, nil
	case ".json":
		return FormatJson, nil
	}
	return "", fmt.Errorf("unsupported file extension \"%s\"", ext)
}
