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

package diff

import (
	"fmt"
	"io"
	"os"

	"github.com/greenmaskio/pgschemadiff/internal/utils/ioutils"
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// NewOutput - opens the plan output. Empty path means stdout. The output is gzip compressed when the path
// ends with .gz
func NewOutput(path string, usePgzip bool) (io.WriteCloser, error) {
	if path == "" {
		return nopWriteCloser{Writer: os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create output file: %w", err)
	}
	if ioutils.IsGzipName(path) {
		return ioutils.NewGzipWriter(f, usePgzip), nil
	}
	return f, nil
}
