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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/greenmaskio/pgschemadiff/internal/storages"
	"github.com/greenmaskio/pgschemadiff/internal/utils/ioutils"
)

const (
	SnapshotFileName = "snapshot.yaml.gz"
	MetadataFileName = "metadata.json"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store - keeps the snapshots in the storage. Each snapshot is a directory named by its ID that contains
// the compressed snapshot and its metadata
type Store struct {
	st       storages.Storager
	usePgzip bool
}

func NewStore(st storages.Storager, usePgzip bool) *Store {
	return &Store{
		st:       st,
		usePgzip: usePgzip,
	}
}

// Save - writes the snapshot and then its metadata
func (s *Store) Save(ctx context.Context, snap *Snapshot) (*Metadata, error) {
	if snap.ID.IsLatest() {
		return nil, fmt.Errorf("cannot save snapshot with id %s", snap.ID)
	}
	if err := snap.ID.Validate(); err != nil {
		return nil, err
	}
	sub := s.st.SubStorage(string(snap.ID), true)

	pr, pw := io.Pipe()
	compressed := ioutils.NewCountWriteCloser(pw)
	original := ioutils.NewCountWriteCloser(ioutils.NewGzipWriter(compressed, s.usePgzip))

	eg, gtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := Encode(original, snap, FormatYaml); err != nil {
			pw.CloseWithError(err)
			return err
		}
		if err := original.Close(); err != nil {
			pw.CloseWithError(err)
			return fmt.Errorf("cannot finish snapshot object: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		if err := sub.PutObject(gtx, SnapshotFileName, pr); err != nil {
			_ = pr.CloseWithError(err)
			return fmt.Errorf("cannot store snapshot object: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	md := snap.Metadata()
	md.OriginalSize = original.Count
	md.CompressedSize = compressed.Count
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal metadata: %w", err)
	}
	if err = sub.PutObject(ctx, MetadataFileName, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("cannot store metadata: %w", err)
	}

	log.Debug().
		Str("SnapshotID", string(snap.ID)).
		Int64("OriginalSize", md.OriginalSize).
		Int64("CompressedSize", md.CompressedSize).
		Msg("snapshot saved")
	return md, nil
}

// Resolve - turns the latest alias into the ID of the newest snapshot and checks that the snapshot exists
func (s *Store) Resolve(ctx context.Context, id ID) (ID, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	if id.IsLatest() {
		md, err := s.Latest(ctx)
		if err != nil {
			return "", err
		}
		return md.ID, nil
	}
	exists, err := s.st.Exists(ctx, string(id)+"/"+MetadataFileName)
	if err != nil {
		return "", fmt.Errorf("cannot check snapshot existence: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("snapshot %s: %w", id, ErrSnapshotNotFound)
	}
	return id, nil
}

func (s *Store) Load(ctx context.Context, id ID) (*Snapshot, error) {
	id, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	sub := s.st.SubStorage(string(id), true)
	obj, err := sub.GetObject(ctx, SnapshotFileName)
	if err != nil {
		return nil, fmt.Errorf("cannot open snapshot object: %w", err)
	}
	gz, err := ioutils.NewGzipReader(obj, s.usePgzip)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	snap, err := Decode(gz, FormatYaml)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	if snap.ID != id {
		return nil, fmt.Errorf("snapshot object %s contains snapshot %s", id, snap.ID)
	}
	if err = snap.VerifyFingerprint(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) Metadata(ctx context.Context, id ID) (*Metadata, error) {
	id, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.readMetadata(ctx, s.st.SubStorage(string(id), true))
}

func (s *Store) readMetadata(ctx context.Context, sub storages.Storager) (*Metadata, error) {
	obj, err := sub.GetObject(ctx, MetadataFileName)
	if err != nil {
		return nil, fmt.Errorf("cannot open metadata object: %w", err)
	}
	defer obj.Close()
	md := &Metadata{}
	if err = json.NewDecoder(obj).Decode(md); err != nil {
		return nil, fmt.Errorf("cannot decode metadata: %w", err)
	}
	return md, nil
}

// List - returns metadata of the complete snapshots, the newest first
func (s *Store) List(ctx context.Context) ([]*Metadata, error) {
	_, dirs, err := s.st.ListDir(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot list snapshots: %w", err)
	}
	res := make([]*Metadata, 0, len(dirs))
	for _, d := range dirs {
		if err := ID(d.Dirname()).Validate(); err != nil || ID(d.Dirname()).IsLatest() {
			log.Debug().Str("Dirname", d.Dirname()).Msg("skipping unknown directory")
			continue
		}
		exists, err := d.Exists(ctx, MetadataFileName)
		if err != nil {
			return nil, fmt.Errorf("cannot check metadata existence: %w", err)
		}
		if !exists {
			log.Warn().Str("SnapshotID", d.Dirname()).Msg("incomplete snapshot: metadata not found")
			continue
		}
		md, err := s.readMetadata(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", d.Dirname(), err)
		}
		res = append(res, md)
	}
	slices.SortFunc(res, func(a, b *Metadata) int {
		switch {
		case a.ID == b.ID:
			return 0
		case b.ID.less(a.ID):
			return -1
		}
		return 1
	})
	return res, nil
}

func (s *Store) Latest(ctx context.Context) (*Metadata, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no snapshots in the storage: %w", ErrSnapshotNotFound)
	}
	return list[0], nil
}

// Delete - removes the snapshot directory. The latest alias is resolved
func (s *Store) Delete(ctx context.Context, id ID) (ID, error) {
	id, err := s.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	if err = s.st.DeleteAll(ctx, string(id)); err != nil {
		return "", fmt.Errorf("cannot delete snapshot %s: %w", id, err)
	}
	return id, nil
}
