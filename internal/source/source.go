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

package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/greenmaskio/pgschemadiff/internal/db/postgres/inspect"
	"github.com/greenmaskio/pgschemadiff/internal/db/postgres/utils"
	"github.com/greenmaskio/pgschemadiff/internal/domains"
	"github.com/greenmaskio/pgschemadiff/internal/filter"
	"github.com/greenmaskio/pgschemadiff/internal/snapshot"
)

const (
	snapshotPrefix = "snapshot:"
	filePrefix     = "file:"
)

var (
	ErrUnknownReference = errors.New("unknown schema reference")
	errStoreIsRequired  = errors.New("snapshot storage is required")
)

type Kind string

const (
	KindSnapshot Kind = "snapshot"
	KindFile     Kind = "file"
	KindDatabase Kind = "database"
)

// Ref - parsed reference to the schema state
type Ref struct {
	Kind  Kind
	Value string
}

// ParseRef - parses snapshot:<id|latest>, file:<path> or a postgres:// (postgresql://) connection uri
func ParseRef(ref string) (*Ref, error) {
	switch {
	case strings.HasPrefix(ref, snapshotPrefix):
		id := snapshot.ID(strings.TrimPrefix(ref, snapshotPrefix))
		if err := id.Validate(); err != nil {
			return nil, fmt.Errorf("invalid snapshot reference: %w", err)
		}
		return &Ref{Kind: KindSnapshot, Value: string(id)}, nil
	case strings.HasPrefix(ref, filePrefix):
		p := strings.TrimPrefix(ref, filePrefix)
		if p == "" {
			return nil, fmt.Errorf("empty file path: %w", ErrUnknownReference)
		}
		return &Ref{Kind: KindFile, Value: p}, nil
	case strings.HasPrefix(ref, "postgres://"), strings.HasPrefix(ref, "postgresql://"):
		return &Ref{Kind: KindDatabase, Value: ref}, nil
	}
	return nil, fmt.Errorf("\"%s\": %w", redact(ref), ErrUnknownReference)
}

// String - reference representation safe for logging
func (r *Ref) String() string {
	switch r.Kind {
	case KindSnapshot:
		return snapshotPrefix + r.Value
	case KindFile:
		return filePrefix + r.Value
	}
	return redact(r.Value)
}

// InspectFunc - builds the snapshot of the live database
type InspectFunc func(ctx context.Context, dsn string) (*snapshot.Snapshot, error)

// Resolver - turns schema references into snapshots. All the resolved snapshots are filtered by the
// relation condition
type Resolver struct {
	store   *snapshot.Store
	when    *filter.When
	inspect InspectFunc
}

func NewResolver(store *snapshot.Store, when *filter.When, inspect InspectFunc) *Resolver {
	if when == nil {
		when = &filter.When{}
	}
	return &Resolver{
		store:   store,
		when:    when,
		inspect: inspect,
	}
}

func (r *Resolver) Resolve(ctx context.Context, ref string) (*snapshot.Snapshot, error) {
	parsed, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("Reference", parsed.String()).
		Msg("resolving schema reference")

	var snap *snapshot.Snapshot
	switch parsed.Kind {
	case KindSnapshot:
		if r.store == nil {
			return nil, errStoreIsRequired
		}
		snap, err = r.store.Load(ctx, snapshot.ID(parsed.Value))
	case KindFile:
		snap, err = snapshot.LoadFile(parsed.Value)
	case KindDatabase:
		if r.inspect == nil {
			return nil, fmt.Errorf("database references are not supported: %w", ErrUnknownReference)
		}
		snap, err = r.inspect(ctx, parsed.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %s: %w", parsed, err)
	}

	if r.when.IsEmpty() {
		return snap, nil
	}
	return snap.Filter(r.when.Evaluate)
}

// ResolvePair - resolves both references concurrently
func (r *Resolver) ResolvePair(ctx context.Context, from, to string) (*snapshot.Snapshot, *snapshot.Snapshot, error) {
	var fromSnap, toSnap *snapshot.Snapshot
	eg, gtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		fromSnap, err = r.Resolve(gtx, from)
		return err
	})
	eg.Go(func() (err error) {
		toSnap, err = r.Resolve(gtx, to)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return fromSnap, toSnap, nil
}

// InspectDatabase - connects to the database and builds the snapshot of its schema
func InspectDatabase(ctx context.Context, dsn string, cfg *domains.Inspect) (*snapshot.Snapshot, error) {
	conn, err := utils.Connect(ctx, dsn, cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("cannot close connection")
		}
	}()

	res, err := inspect.NewInspector(conn, inspect.NewOptions(cfg)).Inspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot inspect database: %w", err)
	}
	snap, err := snapshot.New(res.Database, res.ServerVersion, res.Enums, res.Relations)
	if err != nil {
		return nil, fmt.Errorf("cannot build snapshot: %w", err)
	}
	log.Info().
		Str("Database", snap.Database).
		Int("RelationsCount", len(snap.Relations)).
		Int("EnumsCount", len(snap.Enums)).
		Msg("database inspected")
	return snap, nil
}

// NewDatabaseInspector - InspectFunc that uses the inspect configuration
func NewDatabaseInspector(cfg *domains.Inspect) InspectFunc {
	return func(ctx context.Context, dsn string) (*snapshot.Snapshot, error) {
		return InspectDatabase(ctx, dsn, cfg)
	}
}

// redact - hides the password of the connection uri
func redact(ref string) string {
	scheme, rest, ok := strings.Cut(ref, "://")
	if !ok {
		return ref
	}
	userInfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return ref
	}
	user, _, hasPassword := strings.Cut(userInfo, ":")
	if !hasPassword {
		return ref
	}
	return fmt.Sprintf("%s://%s:xxxxx@%s", scheme, user, host)
}
