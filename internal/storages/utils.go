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

package storages

import (
	"context"
	"errors"
	"fmt"
	"path"
)

var ErrFileNotFound = errors.New("file not found")

// Walk - returns all the file paths in the storage recursively. The paths are relative to the storage cwd
// and prefixed with parent
func Walk(ctx context.Context, st Storager, parent string) (res []string, err error) {
	files, dirs, err := st.ListDir(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing directory: %w", err)
	}
	for _, f := range files {
		res = append(res, path.Join(parent, f))
	}
	for _, d := range dirs {
		subFiles, err := Walk(ctx, d, d.Dirname())
		if err != nil {
			return nil, fmt.Errorf("error walking through directory: %w", err)
		}
		for _, f := range subFiles {
			res = append(res, path.Join(parent, f))
		}
	}
	return res, nil
}

// SubDirs - returns the names of the directories in the storage cwd
func SubDirs(ctx context.Context, st Storager) ([]string, error) {
	_, dirs, err := st.ListDir(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing directory: %w", err)
	}
	res := make([]string, 0, len(dirs))
	for _, d := range dirs {
		res = append(res, d.Dirname())
	}
	return res, nil
}
