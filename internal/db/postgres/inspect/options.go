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
	"time"

	"github.com/greenmaskio/pgschemadiff/internal/domains"
)

type Options struct {
	// Schemas - schemas to inspect. Empty means all schemas
	Schemas []string
	// ExcludeSchemas - schemas that are never inspected
	ExcludeSchemas []string
	// IncludeInternal - inspect pg_catalog, information_schema and toast schemas
	IncludeInternal bool
	// QueryTimeout - bounds the whole introspection. Zero means no limit
	QueryTimeout time.Duration
}

func NewOptions(cfg *domains.Inspect) *Options {
	return &Options{
		Schemas:         cfg.Schemas,
		ExcludeSchemas:  cfg.ExcludeSchemas,
		IncludeInternal: cfg.IncludeInternal,
		QueryTimeout:    cfg.QueryTimeout,
	}
}

// queryArgs - positional arguments of the schema filter shared by all the queries
func (o *Options) queryArgs() []any {
	schemas := o.Schemas
	if schemas == nil {
		schemas = []string{}
	}
	excluded := o.ExcludeSchemas
	if excluded == nil {
		excluded = []string{}
	}
	return []any{schemas, excluded, o.IncludeInternal}
}
