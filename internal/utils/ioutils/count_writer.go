// Copyright 2023 Greenmask
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

package ioutils

import "io"

// CountWriteCloser - counts bytes written to the underlying object. Used to report the stored size
type CountWriteCloser struct {
	w     io.WriteCloser
	Count int64
}

func NewCountWriteCloser(w io.WriteCloser) *CountWriteCloser {
	return &CountWriteCloser{
		w: w,
	}
}

func (cw *CountWriteCloser) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.Count += int64(n)
	return n, err
}

func (cw *CountWriteCloser) Close() error {
	return cw.w.Close()
}
