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
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/greenmaskio/pgschemadiff/internal/utils/ioutils"
)

// LoadFile - reads the snapshot exported to the yaml or json file. The file might be gzip compressed
func LoadFile(filePath string) (*Snapshot, error) {
	format, err := FormatFromPath(filePath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("cannot open snapshot file: %w", err)
	}
	var r io.ReadCloser = f
	if ioutils.IsGzipName(filePath) {
		if r, err = ioutils.NewGzipReader(f, false); err != nil {
			return nil, err
		}
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing snapshot file")
		}
	}()
	snap, err := Decode(r, format)
	if err != nil {
		return nil, fmt.Errorf("snapshot file %s: %w", filePath, err)
	}
	if err = snap.VerifyFingerprint(); err != nil {
		return nil, err
	}
	return snap, nil
}

// WriteFile - exports the snapshot to the file. The format is detected by the file extension
func WriteFile(filePath string, snap *Snapshot, usePgzip bool) (err error) {
	format, err := FormatFromPath(filePath)
	if err != nil {
		return err
	}
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("cannot create snapshot file: %w", err)
	}
	var w io.WriteCloser = f
	if ioutils.IsGzipName(filePath) {
		w = ioutils.NewGzipWriter(f, usePgzip)
	}
	if err = Encode(w, snap, format); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
