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
	"errors"
	"fmt"
	"strconv"
	"time"
)

var errEmptyID = errors.New("snapshot id cannot be empty")

// ID - unix milliseconds of the snapshot creation. Sorting IDs as numbers sorts snapshots by the creation time
type ID string

const LatestID ID = "latest"

func NewID() ID {
	return ID(strconv.FormatInt(time.Now().UnixMilli(), 10))
}

// Validate - checks that the id is numeric or the latest alias
func (id ID) Validate() error {
	if id == "" {
		return errEmptyID
	}
	if id == LatestID {
		return nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err != nil {
		return fmt.Errorf("snapshot id must be int or latest %s: %w", id, err)
	}
	return nil
}

func (id ID) IsLatest() bool {
	return id == LatestID
}

func (id ID) less(other ID) bool {
	a, errA := strconv.ParseInt(string(id), 10, 64)
	b, errB := strconv.ParseInt(string(other), 10, 64)
	if errA != nil || errB != nil {
		return id < other
	}
	return a < b
}
