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

package inspect

import (
	"bytes"
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/greenmaskio/pgschemadiff/internal/db/postgres/utils"
	"github.com/greenmaskio/pgschemadiff/internal/utils/pgerrors"
	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

// Result - state of the database schema
type Result struct {
	Database         string
	ServerVersion    string
	ServerVersionNum int
	Enums            []*toolkit.EnumType
	Relations        []*toolkit.Selectable
}

type Inspector struct {
	conn    utils.PGConnector
	opts    *Options
	typeMap *pgtype.Map
}

func NewInspector(conn utils.PGConnector, opts *Options) *Inspector {
	if opts == nil {
		opts = &Options{}
	}
	return &Inspector{
		conn:    conn,
		opts:    opts,
		typeMap: pgtype.NewMap(),
	}
}

type relation struct {
	oid              int
	schema           string
	name             string
	kind             string
	definition       *string
	parentSchema     *string
	parentName       *string
	partitionDef     *string
	partitionKey     *string
	rowSecurity      bool
	forceRowSecurity bool
	comment          *string
	columns          []*toolkit.Column
	dependsOn        []string
	dependents       []string
}

func (r *relation) quotedFullName() string {
	return toolkit.QuoteQualifiedIdent(r.schema, r.name)
}

// Inspect - reads the schema inside a single read only transaction, so all the queries see the same state
func (i *Inspector) Inspect(ctx context.Context) (*Result, error) {
	if i.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.opts.QueryTimeout)
		defer cancel()
	}

	res := &Result{}
	err := i.conn.WithReadOnlyTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, serverInfoQuery).
			Scan(&res.ServerVersionNum, &res.ServerVersion, &res.Database)
		if err != nil {
			return errors.Wrap(pgerrors.Wrap(err, "server info"), "cannot get server info")
		}
		log.Debug().
			Str("Database", res.Database).
			Str("ServerVersion", res.ServerVersion).
			Msg("inspecting database")

		enums, err := i.getEnums(ctx, tx)
		if err != nil {
			return err
		}
		relations, err := i.getRelations(ctx, tx, res.ServerVersionNum)
		if err != nil {
			return err
		}
		res.Enums = enums
		res.Relations = relations
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (i *Inspector) getEnums(ctx context.Context, tx pgx.Tx) ([]*toolkit.EnumType, error) {
	rows, err := tx.Query(ctx, enumsQuery, i.opts.queryArgs()...)
	if err != nil {
		return nil, errors.Wrap(pgerrors.Wrap(err, "enums"), "cannot execute enums query")
	}
	defer rows.Close()

	var res []*toolkit.EnumType
	for rows.Next() {
		var schema, name string
		var labels []string
		if err := rows.Scan(&schema, &name, &labels); err != nil {
			return nil, errors.Wrap(err, "cannot scan enums query")
		}
		e, err := toolkit.NewEnumType(schema, name, labels...)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(pgerrors.Wrap(err, "enums"), "enums query failed")
	}
	return res, nil
}

func (i *Inspector) getRelations(ctx context.Context, tx pgx.Tx, version int) ([]*toolkit.Selectable, error) {
	relations, err := i.scanRelations(ctx, tx)
	if err != nil {
		return nil, err
	}
	byOid := make(map[int]*relation, len(relations))
	byName := make(map[string]*relation, len(relations))
	for _, r := range relations {
		byOid[r.oid] = r
		byName[r.quotedFullName()] = r
	}

	if err := i.fillColumns(ctx, tx, version, byOid); err != nil {
		return nil, err
	}
	if err := i.fillDependencies(ctx, tx, byName); err != nil {
		return nil, err
	}

	res := make([]*toolkit.Selectable, 0, len(relations))
	for _, r := range relations {
		s, err := r.toSelectable()
		if err != nil {
			return nil, err
		}
		log.Debug().
			Str("TableSchema", s.Schema).
			Str("TableName", s.Name).
			Str("Kind", string(s.Kind)).
			Int("ColumnsCount", len(s.Columns)).
			Msg("relation inspected")
		res = append(res, s)
	}
	return res, nil
}

func (i *Inspector) scanRelations(ctx context.Context, tx pgx.Tx) ([]*relation, error) {
	rows, err := tx.Query(ctx, relationsQuery, i.opts.queryArgs()...)
	if err != nil {
		return nil, errors.Wrap(pgerrors.Wrap(err, "relations"), "cannot execute relations query")
	}
	defer rows.Close()

	var res []*relation
	for rows.Next() {
		r := &relation{}
		err = rows.Scan(
			&r.oid, &r.schema, &r.name, &r.kind, &r.definition,
			&r.parentSchema, &r.parentName, &r.partitionDef, &r.partitionKey,
			&r.rowSecurity, &r.forceRowSecurity, &r.comment,
		)
		if err != nil {
			return nil, errors.Wrap(err, "cannot scan relations query")
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(pgerrors.Wrap(err, "relations"), "relations query failed")
	}
	return res, nil
}

func (i *Inspector) fillColumns(ctx context.Context, tx pgx.Tx, version int, byOid map[int]*relation) error {
	buf := bytes.NewBuffer(nil)
	if err := columnsQuery.Execute(buf, map[string]int{"Version": version}); err != nil {
		return errors.Wrap(err, "error templating columns query")
	}
	rows, err := tx.Query(ctx, buf.String(), i.opts.queryArgs()...)
	if err != nil {
		return errors.Wrap(pgerrors.Wrap(err, "columns"), "cannot execute columns query")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			relOid, typeOid         int
			name, dbType, dbTypeStr string
			notNull, isEnum         bool
			defaultExpr, collation  *string
			typeSchema, typeName    string
			enumValues              []string
		)
		err = rows.Scan(
			&relOid, &name, &typeOid, &dbType, &dbTypeStr, &notNull, &defaultExpr,
			&collation, &isEnum, &typeSchema, &typeName, &enumValues,
		)
		if err != nil {
			return errors.Wrap(err, "cannot scan columns query")
		}
		r, ok := byOid[relOid]
		if !ok {
			continue
		}

		opts := []toolkit.ColumnOption{
			toolkit.WithDBTypeStr(dbTypeStr),
			toolkit.WithNotNull(notNull),
		}
		if defaultExpr != nil {
			opts = append(opts, toolkit.WithDefault(*defaultExpr))
		}
		if collation != nil {
			opts = append(opts, toolkit.WithCollation(*collation))
		}
		if isEnum {
			opts = append(opts,
				toolkit.WithEnum(typeSchema, typeName, enumValues...),
				toolkit.WithHostType("string"),
			)
		} else {
			opts = append(opts, toolkit.WithHostType(HostTypeForOID(i.typeMap, uint32(typeOid), typeName)))
		}

		c, err := toolkit.NewColumn(name, dbType, opts...)
		if err != nil {
			return errors.Wrapf(err, "cannot build column %s of %s", name, r.quotedFullName())
		}
		r.columns = append(r.columns, c)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(pgerrors.Wrap(err, "columns"), "columns query failed")
	}
	return nil
}

// fillDependencies - sets dependencies between the inspected relations. The objects that were not inspected
// are skipped
func (i *Inspector) fillDependencies(ctx context.Context, tx pgx.Tx, byName map[string]*relation) error {
	rows, err := tx.Query(ctx, dependenciesQuery)
	if err != nil {
		return errors.Wrap(pgerrors.Wrap(err, "dependencies"), "cannot execute dependencies query")
	}
	defer rows.Close()

	for rows.Next() {
		var depSchema, depName, refSchema, refName string
		if err := rows.Scan(&depSchema, &depName, &refSchema, &refName); err != nil {
			return errors.Wrap(err, "cannot scan dependencies query")
		}
		dependent, ok := byName[toolkit.QuoteQualifiedIdent(depSchema, depName)]
		if !ok {
			continue
		}
		referenced, ok := byName[toolkit.QuoteQualifiedIdent(refSchema, refName)]
		if !ok {
			log.Debug().
				Str("Dependent", dependent.quotedFullName()).
				Str("Referenced", toolkit.QuoteQualifiedIdent(refSchema, refName)).
				Msg("referenced relation is not inspected: skipping dependency")
			continue
		}
		dependent.dependsOn = append(dependent.dependsOn, referenced.quotedFullName())
		referenced.dependents = append(referenced.dependents, dependent.quotedFullName())
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(pgerrors.Wrap(err, "dependencies"), "dependencies query failed")
	}
	return nil
}

func (r *relation) toSelectable() (*toolkit.Selectable, error) {
	var kind toolkit.RelationKind
	if len(r.kind) == 1 {
		kind = toolkit.RelationKindFromRelKind(rune(r.kind[0]))
	}
	opts := []toolkit.SelectableOption{
		toolkit.WithRowSecurity(r.rowSecurity, r.forceRowSecurity),
	}
	if r.definition != nil {
		opts = append(opts, toolkit.WithDefinition(*r.definition))
	}
	if r.parentSchema != nil && r.parentName != nil {
		opts = append(opts, toolkit.WithParentTable(toolkit.QuoteQualifiedIdent(*r.parentSchema, *r.parentName)))
		if r.partitionDef != nil {
			opts = append(opts, toolkit.WithPartitionDef(*r.partitionDef))
		}
	}
	if r.partitionKey != nil {
		opts = append(opts, toolkit.WithPartitionKey(*r.partitionKey))
	}
	if r.comment != nil {
		opts = append(opts, toolkit.WithComment(*r.comment))
	}
	if len(r.dependsOn) > 0 {
		opts = append(opts, toolkit.WithDependsOn(r.dependsOn...))
	}
	if len(r.dependents) > 0 {
		opts = append(opts, toolkit.WithDependents(r.dependents...))
	}
	s, err := toolkit.NewSelectable(r.schema, r.name, kind, r.columns, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot build relation %s", r.quotedFullName())
	}
	return s, nil
}
