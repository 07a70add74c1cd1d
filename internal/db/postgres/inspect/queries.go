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

import "text/template"

// schemaFilterCond - $1 included schemas (empty means all), $2 excluded schemas, $3 include internal schemas.
// Objects that belong to extensions are never inspected.
const schemaFilterCond = `
	(cardinality($1::TEXT[]) = 0 OR n.nspname = ANY ($1::TEXT[]))
	AND NOT (n.nspname = ANY ($2::TEXT[]))
	AND (
		$3::BOOLEAN
		OR (
			n.nspname NOT IN ('pg_catalog', 'information_schema')
			AND n.nspname NOT LIKE 'pg\_toast%'
			AND n.nspname NOT LIKE 'pg\_temp\_%'
		)
	)
`

var (
	serverInfoQuery = `
		SELECT current_setting('server_version_num')::INT AS version_num,
		       current_setting('server_version')          AS version,
		       current_database()::TEXT                   AS database
	`

	// relationsQuery - tables, partitioned tables, views and materialized views
	relationsQuery = `
		SELECT c.oid::TEXT::INT                                           AS oid,
		       n.nspname::TEXT                                            AS schema,
		       c.relname::TEXT                                            AS name,
		       c.relkind::TEXT                                            AS kind,
		       CASE
		           WHEN c.relkind IN ('v', 'm') THEN pg_catalog.pg_get_viewdef(c.oid)
		       END                                                        AS definition,
		       pn.nspname::TEXT                                           AS parent_schema,
		       pc.relname::TEXT                                           AS parent_name,
		       CASE
		           WHEN c.relispartition THEN pg_catalog.pg_get_expr(c.relpartbound, c.oid)
		       END                                                        AS partition_def,
		       CASE
		           WHEN c.relkind = 'p' THEN pg_catalog.pg_get_partkeydef(c.oid)
		       END                                                        AS partition_key,
		       c.relrowsecurity                                           AS row_security,
		       c.relforcerowsecurity                                      AS force_row_security,
		       pg_catalog.obj_description(c.oid, 'pg_class')              AS comment
		FROM pg_catalog.pg_class c
		         JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		         LEFT JOIN pg_catalog.pg_inherits i ON i.inhrelid = c.oid AND c.relispartition
		         LEFT JOIN pg_catalog.pg_class pc ON pc.oid = i.inhparent
		         LEFT JOIN pg_catalog.pg_namespace pn ON pn.oid = pc.relnamespace
		WHERE c.relkind IN ('r', 'p', 'v', 'm')
		  AND NOT EXISTS (
		      SELECT 1
		      FROM pg_catalog.pg_depend d
		      WHERE d.classid = 'pg_catalog.pg_class'::REGCLASS
		        AND d.objid = c.oid
		        AND d.deptype = 'e'
		  )
		  AND ` + schemaFilterCond + `
		ORDER BY n.nspname, c.relname
	`

	// columnsQuery - columns of all the inspected relations in the declaration order. The collation is
	// reported only when it differs from the default collation of the type
	columnsQuery = template.Must(template.New("columnsQuery").Parse(`
		SELECT a.attrelid::TEXT::INT                            AS rel_oid,
		       a.attname::TEXT                                  AS name,
		       a.atttypid::TEXT::INT                            AS type_oid,
		       CASE
		           WHEN tn.nspname = 'pg_catalog' THEN t.typname::TEXT
		           ELSE tn.nspname || '.' || t.typname
		       END                                              AS db_type,
		       pg_catalog.format_type(a.atttypid, a.atttypmod)  AS db_type_str,
		       a.attnotnull                                     AS not_null,
		       {{ if ge .Version 120000 }}
		       CASE
		           WHEN a.attgenerated = '' THEN pg_catalog.pg_get_expr(ad.adbin, ad.adrelid)
		       END                                              AS "default",
		       {{ else }}
		       pg_catalog.pg_get_expr(ad.adbin, ad.adrelid)     AS "default",
		       {{ end }}
		       CASE
		           WHEN a.attcollation <> t.typcollation THEN co.collname::TEXT
		       END                                              AS collation,
		       t.typtype = 'e'                                  AS is_enum,
		       tn.nspname::TEXT                                 AS type_schema,
		       t.typname::TEXT                                  AS type_name,
		       CASE
		           WHEN t.typtype = 'e' THEN ARRAY(
		               SELECT e.enumlabel::TEXT
		               FROM pg_catalog.pg_enum e
		               WHERE e.enumtypid = t.oid
		               ORDER BY e.enumsortorder
		           )
		       END                                              AS enum_values
		FROM pg_catalog.pg_attribute a
		         JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
		         JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		         JOIN pg_catalog.pg_type t ON t.oid = a.atttypid
		         JOIN pg_catalog.pg_namespace tn ON tn.oid = t.typnamespace
		         LEFT JOIN pg_catalog.pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
		         LEFT JOIN pg_catalog.pg_collation co ON co.oid = a.attcollation
		WHERE a.attnum > 0
		  AND NOT a.attisdropped
		  AND c.relkind IN ('r', 'p', 'v', 'm')
		  AND ` + schemaFilterCond + `
		ORDER BY a.attrelid, a.attnum
	`))

	// enumsQuery - enum types with labels in the sort order
	enumsQuery = `
		SELECT n.nspname::TEXT AS schema,
		       t.typname::TEXT AS name,
		       ARRAY(
		           SELECT e.enumlabel::TEXT
		           FROM pg_catalog.pg_enum e
		           WHERE e.enumtypid = t.oid
		           ORDER BY e.enumsortorder
		       )               AS labels
		FROM pg_catalog.pg_type t
		         JOIN pg_catalog.pg_namespace n ON n.oid = t.typnamespace
		WHERE t.typtype = 'e'
		  AND NOT EXISTS (
		      SELECT 1
		      FROM pg_catalog.pg_depend d
		      WHERE d.classid = 'pg_catalog.pg_type'::REGCLASS
		        AND d.objid = t.oid
		        AND d.deptype = 'e'
		  )
		  AND ` + schemaFilterCond + `
		ORDER BY n.nspname, t.typname
	`

	// dependenciesQuery - relations referenced by the rewrite rules of views and materialized views
	dependenciesQuery = `
		SELECT DISTINCT dn.nspname::TEXT AS dependent_schema,
		                dc.relname::TEXT AS dependent_name,
		                rn.nspname::TEXT AS referenced_schema,
		                rc.relname::TEXT AS referenced_name
		FROM pg_catalog.pg_depend d
		         JOIN pg_catalog.pg_rewrite r ON r.oid = d.objid
		         JOIN pg_catalog.pg_class dc ON dc.oid = r.ev_class
		         JOIN pg_catalog.pg_namespace dn ON dn.oid = dc.relnamespace
		         JOIN pg_catalog.pg_class rc ON rc.oid = d.refobjid
		         JOIN pg_catalog.pg_namespace rn ON rn.oid = rc.relnamespace
		WHERE d.classid = 'pg_catalog.pg_rewrite'::REGCLASS
		  AND d.refclassid = 'pg_catalog.pg_class'::REGCLASS
		  AND d.deptype = 'n'
		  AND dc.oid <> rc.oid
		  AND dc.relkind IN ('v', 'm')
		  AND rc.relkind IN ('r', 'p', 'v', 'm')
		ORDER BY 1, 2, 3, 4
	`
)
