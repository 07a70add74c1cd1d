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
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/tidwall/gjson"

	stringsUtils "github.com/greenmaskio/pgschemadiff/internal/utils/strings"
)

const FormatText = "text"

const showTemplateName = "snapshotShow"

var showTemplateString = `;
; Snapshot {{ .ID }} created at {{ .CreatedAt.Format "2006-01-02 15:04:05 UTC" }}
;     dbname: {{ .Database }}
;     Server version: {{ .ServerVersion }}
;     Schemas: {{ join .Schemas ", " }}
;     Fingerprint: {{ .Fingerprint }}
;     Enums: {{ len .Enums }}
;     Relations: {{ len .Relations }}
;
;
; Enums:
;
{{- range .Enums }}
type {{ .Schema }}.{{ .Name }} ({{ join .Values ", " }})
{{- end }}
;
; Relations:
;
{{- range .Relations }}
{{ .Kind }} {{ .Schema }}.{{ .Name }}{{ if .ParentTable }} partition of {{ deref .ParentTable }}{{ end }}
{{- range .Columns }}
    {{ .Name }} {{ .DBTypeStr }}{{ if .NotNull }} not null{{ end }}{{ if .Default }} default {{ deref .Default }}{{ end }}
{{- end }}
{{- if .Definition }}
{{ indent (wrap (deref .Definition)) }}
{{- end }}
{{- end }}
`

// Show - writes the snapshot in the text, yaml or json format. The view definitions of the text format are
// wrapped to wrapWidth
func Show(w io.Writer, snap *Snapshot, format string, wrapWidth int) error {
	switch format {
	case FormatText:
		return showText(w, snap, wrapWidth)
	case FormatYaml, FormatJson:
		return Encode(w, snap, format)
	}
	return fmt.Errorf("unknown output format %s", format)
}

func showText(w io.Writer, snap *Snapshot, wrapWidth int) error {
	funcs := template.FuncMap{
		"join": strings.Join,
		"deref": func(v *string) string {
			if v == nil {
				return ""
			}
			return *v
		},
		"wrap": func(v string) string {
			return stringsUtils.WrapString(v, wrapWidth)
		},
		"indent": func(v string) string {
			return "    " + strings.ReplaceAll(v, "\n", "\n    ")
		},
	}
	t, err := template.New(showTemplateName).Funcs(funcs).Parse(showTemplateString)
	if err != nil {
		return fmt.Errorf("cannot parse snapshot report template: %w", err)
	}
	if err = t.Execute(w, snap); err != nil {
		return fmt.Errorf("template render error: %w", err)
	}
	return nil
}

var errPathNotFound = errors.New("path not found in snapshot")

// Query - returns the raw json of the snapshot part selected by the gjson path, for instance
// relations.#(name=="users").columns.#.name
func Query(snap *Snapshot, path string) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("cannot encode snapshot to json: %w", err)
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return "", fmt.Errorf("%s: %w", path, errPathNotFound)
	}
	return res.Raw, nil
}
