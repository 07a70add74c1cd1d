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
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

const unknownHostType = "any"

// hostTypes - canonical PostgreSQL type name to the go type the pgx driver decodes it to
var hostTypes = map[string]string{
	"bool":        "bool",
	"int2":        "int16",
	"int4":        "int32",
	"int8":        "int64",
	"oid":         "uint32",
	"float4":      "float32",
	"float8":      "float64",
	"numeric":     "pgtype.Numeric",
	"text":        "string",
	"varchar":     "string",
	"bpchar":      "string",
	"char":        "string",
	"name":        "string",
	"citext":      "string",
	"bytea":       "[]byte",
	"date":        "time.Time",
	"timestamp":   "time.Time",
	"timestamptz": "time.Time",
	"time":        "pgtype.Time",
	"interval":    "time.Duration",
	"uuid":        "[16]byte",
	"json":        "map[string]any",
	"jsonb":       "map[string]any",
	"inet":        "netip.Prefix",
	"cidr":        "netip.Prefix",
	"macaddr":     "net.HardwareAddr",
	"point":       "pgtype.Point",
	"bit":         "pgtype.Bits",
	"varbit":      "pgtype.Bits",
	"tsvector":    "string",
	"xml":         "string",
	"money":       "string",
}

// HostTypeForOID - go type name of the values of the PostgreSQL type. The canonical name is taken from
// the type map when the oid is known to it, otherwise typeName is used. Array types are mapped to slices
// of the element type and unknown types to any.
func HostTypeForOID(m *pgtype.Map, oid uint32, typeName string) string {
	name := typeName
	if m != nil {
		if t, ok := m.TypeForOID(oid); ok {
			name = t.Name
		}
	}
	return hostTypeForName(name)
}

func hostTypeForName(name string) string {
	if elem, ok := strings.CutPrefix(name, "_"); ok && elem != "" {
		return "[]" + hostTypeForName(elem)
	}
	if res, ok := hostTypes[name]; ok {
		return res
	}
	return unknownHostType
}
