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

	"github.com/spaolacci/murmur3"

	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

type fingerprintContent struct {
	Enums     []*toolkit.EnumType   `json:"enums,omitempty"`
	Relations []*toolkit.Selectable `json:"relations,omitempty"`
}

// Fingerprint - murmur3 128 bit hash of the canonical json of the schema objects. The objects must be
// sorted in the same way for the equal schemas
func Fingerprint(enums []*toolkit.EnumType, relations []*toolkit.Selectable) (string, error) {
	data, err := json.Marshal(fingerprintContent{Enums: enums, Relations: relations})
	if err != nil {
		return "", fmt.Errorf("cannot marshal snapshot content: %w", err)
	}
	h := murmur3.New128()
	if _, err = h.Write(data); err != nil {
		return "", fmt.Errorf("cannot compute fingerprint: %w", err)
	}
	v1, v2 := h.Sum128()
	return fmt.Sprintf("%016x%016x", v1, v2), nil
}
