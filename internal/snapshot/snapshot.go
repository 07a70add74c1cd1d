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
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

const FormatVersion = 1

// Snapshot - introspected state of the database schema
type Snapshot struct {
	Version       int                   `json:"version" yaml:"version"`
	ID            ID                    `json:"id" yaml:"id"`
	CreatedAt     time.Time             `json:"created_at" yaml:"created_at"`
	Database      string                `json:"database" yaml:"database"`
	ServerVersion string                `json:"server_version" yaml:"server_version"`
	Schemas       []string              `json:"schemas" yaml:"schemas"`
	Fingerprint   string                `json:"fingerprint" yaml:"fingerprint"`
	Enums         []*toolkit.EnumType   `json:"enums" yaml:"enums"`
	Relations     []*toolkit.Selectable `json:"relations" yaml:"relations"`

	relIdx  map[string]int
	enumIdx map[string]int
}

// New - builds the snapshot with the new ID. Enums and relations are sorted by schema and name
func New(
	database, serverVersion string, enums []*toolkit.EnumType, relations []*toolkit.Selectable,
) (*Snapshot, error) {
	s := &Snapshot{
		Version:       FormatVersion,
		ID:            NewID(),
		CreatedAt:     time.Now().UTC(),
		Database:      database,
		ServerVersion: serverVersion,
		Enums:         slices.Clone(enums),
		Relations:     slices.Clone(relations),
	}
	if err := s.seal(); err != nil {
		return nil, err
	}
	return s, nil
}

// seal - normalizes the content, validates it and computes the fingerprint
func (s *Snapshot) seal() error {
	slices.SortFunc(s.Enums, func(a, b *toolkit.EnumType) int {
		return cmp.Or(cmp.Compare(a.Schema, b.Schema), cmp.Compare(a.Name, b.Name))
	})
	slices.SortFunc(s.Relations, func(a, b *toolkit.Selectable) int {
		return cmp.Or(cmp.Compare(a.Schema, b.Schema), cmp.Compare(a.Name, b.Name))
	})
	s.Schemas = s.Schemas[:0]
	for _, r := range s.Relations {
		if !slices.Contains(s.Schemas, r.Schema) {
			s.Schemas = append(s.Schemas, r.Schema)
		}
	}
	for _, e := range s.Enums {
		if !slices.Contains(s.Schemas, e.Schema) {
			s.Schemas = append(s.Schemas, e.Schema)
		}
	}
	slices.Sort(s.Schemas)
	if err := s.Validate(); err != nil {
		return err
	}
	fp, err := Fingerprint(s.Enums, s.Relations)
	if err != nil {
		return err
	}
	s.Fingerprint = fp
	return nil
}

// Validate - checks the identity of the snapshot and all the objects in it. The lookup indexes are
// rebuilt, so it must be called after decoding
func (s *Snapshot) Validate() error {
	if s.Version != FormatVersion {
		return fmt.Errorf("unsupported snapshot version %d: %w", s.Version, toolkit.ErrMalformedInput)
	}
	if err := s.ID.Validate(); err != nil {
		return fmt.Errorf("%w: %w", err, toolkit.ErrMalformedInput)
	}
	if s.ID.IsLatest() {
		return fmt.Errorf("snapshot id cannot be the %s alias: %w", LatestID, toolkit.ErrMalformedInput)
	}

	enumIdx := make(map[string]int, len(s.Enums))
	for i, e := range s.Enums {
		if e == nil {
			return fmt.Errorf("nil enum at %d: %w", i, toolkit.ErrMalformedInput)
		}
		if err := e.Validate(); err != nil {
			return err
		}
		key := e.QuotedFullName()
		if _, ok := enumIdx[key]; ok {
			return fmt.Errorf("duplicate enum type %s: %w", key, toolkit.ErrMalformedInput)
		}
		enumIdx[key] = i
	}

	relIdx := make(map[string]int, len(s.Relations))
	for i, r := range s.Relations {
		if r == nil {
			return fmt.Errorf("nil relation at %d: %w", i, toolkit.ErrMalformedInput)
		}
		if err := r.Validate(); err != nil {
			return err
		}
		key := r.Signature()
		if _, ok := relIdx[key]; ok {
			return fmt.Errorf("duplicate relation %s: %w", r.UnquotedFullName(), toolkit.ErrMalformedInput)
		}
		relIdx[key] = i
	}
	s.enumIdx = enumIdx
	s.relIdx = relIdx
	return nil
}

// VerifyFingerprint - checks that the content was not changed after the snapshot was created
func (s *Snapshot) VerifyFingerprint() error {
	fp, err := Fingerprint(s.Enums, s.Relations)
	if err != nil {
		return err
	}
	if fp != s.Fingerprint {
		return fmt.Errorf(
			"snapshot %s fingerprint mismatch: stored %s computed %s: %w",
			s.ID, s.Fingerprint, fp, toolkit.ErrMalformedInput,
		)
	}
	return nil
}

func (s *Snapshot) Relation(schema, name string) (*toolkit.Selectable, bool) {
	key := toolkit.QuoteQualifiedIdent(schema, name)
	if s.relIdx == nil {
		idx := slices.IndexFunc(s.Relations, func(r *toolkit.Selectable) bool {
			return r.Signature() == key
		})
		if idx == -1 {
			return nil, false
		}
		return s.Relations[idx], true
	}
	i, ok := s.relIdx[key]
	if !ok {
		return nil, false
	}
	return s.Relations[i], true
}

func (s *Snapshot) Enum(schema, name string) (*toolkit.EnumType, bool) {
	key := toolkit.QuoteQualifiedIdent(schema, name)
	if s.enumIdx == nil {
		idx := slices.IndexFunc(s.Enums, func(e *toolkit.EnumType) bool {
			return e.QuotedFullName() == key
		})
		if idx == -1 {
			return nil, false
		}
		return s.Enums[idx], true
	}
	i, ok := s.enumIdx[key]
	if !ok {
		return nil, false
	}
	return s.Enums[i], true
}

// Filter - returns the copy of the snapshot with the relations accepted by the predicate. Enum types are kept
func (s *Snapshot) Filter(pred func(r *toolkit.Selectable) (bool, error)) (*Snapshot, error) {
	res := &Snapshot{
		Version:       s.Version,
		ID:            s.ID,
		CreatedAt:     s.CreatedAt,
		Database:      s.Database,
		ServerVersion: s.ServerVersion,
		Enums:         slices.Clone(s.Enums),
	}
	for _, r := range s.Relations {
		ok, err := pred(r)
		if err != nil {
			return nil, fmt.Errorf("cannot filter relation %s: %w", r.UnquotedFullName(), err)
		}
		if ok {
			res.Relations = append(res.Relations, r)
		}
	}
	if err := res.seal(); err != nil {
		return nil, err
	}
	return res, nil
}

// Metadata - short description of the snapshot stored next to it
func (s *Snapshot) Metadata() *Metadata {
	return &Metadata{
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		Database:       s.Database,
		ServerVersion:  s.ServerVersion,
		Schemas:        slices.Clone(s.Schemas),
		Fingerprint:    s.Fingerprint,
		RelationsCount: len(s.Relations),
		EnumsCount:     len(s.Enums),
	}
}
