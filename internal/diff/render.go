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

package diff

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/olekukonko/tablewriter"

	"github.com/greenmaskio/pgschemadiff/internal/domains"
	stringsUtils "github.com/greenmaskio/pgschemadiff/internal/utils/strings"
	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

type Renderer interface {
	Render(w io.Writer, p *Plan) error
}

func NewRenderer(cfg *domains.Diff) (Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Format {
	case domains.DiffFormatJson:
		return &JsonRenderer{}, nil
	case domains.DiffFormatTable:
		return &TableRenderer{WrapWidth: cfg.WrapWidth}, nil
	case domains.DiffFormatTemplate:
		return NewTemplateRenderer(cfg.Template)
	}
	return &SqlRenderer{Header: true}, nil
}

// SqlRenderer - plain SQL script. The statements are separated by the empty line
type SqlRenderer struct {
	Header bool
}

func (r *SqlRenderer) Render(w io.Writer, p *Plan) error {
	if r.Header {
		if _, err := fmt.Fprintf(w, "-- from: %s\n-- to: %s\n\n", planSide(p.FromID, p.FromFingerprint),
			planSide(p.ToID, p.ToFingerprint)); err != nil {
			return err
		}
	}
	for i, s := range p.Steps {
		sep := "\n\n"
		if i == len(p.Steps)-1 {
			sep = "\n"
		}
		if _, err := io.WriteString(w, s.SQL+sep); err != nil {
			return err
		}
	}
	return nil
}

func planSide(id, fingerprint string) string {
	if id == "" {
		return fingerprint
	}
	return fmt.Sprintf("%s (%s)", id, fingerprint)
}

type JsonRenderer struct{}

func (r *JsonRenderer) Render(w io.Writer, p *Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if p.Steps == nil {
		cp := *p
		cp.Steps = []*Step{}
		p = &cp
	}
	return enc.Encode(p)
}

// TableRenderer - human-readable table. Long statements are wrapped to WrapWidth characters
type TableRenderer struct {
	WrapWidth uint
}

func (r *TableRenderer) Render(w io.Writer, p *Plan) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "operation", "object type", "object", "destructive", "sql"})
	table.SetAutoWrapText(false)
	table.SetRowLine(true)

	data := make([][]string, 0, len(p.Steps))
	for i, s := range p.Steps {
		sql := s.SQL
		if r.WrapWidth > 0 {
			sql = stringsUtils.WrapString(sql, int(r.WrapWidth))
		}
		destructive := ""
		if s.Destructive {
			destructive = "yes"
		}
		data = append(data, []string{
			strconv.Itoa(i + 1), string(s.Operation), string(s.ObjectType), s.ObjectPath, destructive, sql,
		})
	}
	table.AppendBulk(data)
	table.Render()

	if len(p.Events) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	events := tablewriter.NewWriter(w)
	events.SetHeader([]string{"event", "relation", "details"})
	events.SetAutoWrapText(false)
	for _, e := range p.Events {
		events.Append([]string{eventMessage(e), eventRelation(e), eventDetails(e)})
	}
	events.Render()
	return nil
}

func eventMessage(e *toolkit.DiffNode) string {
	if msg, ok := toolkit.DiffEventMsgs[e.Event]; ok {
		return msg
	}
	return e.Event
}

func eventRelation(e *toolkit.DiffNode) string {
	return toolkit.QuoteQualifiedIdent(e.Signature["SchemaName"], e.Signature["RelationName"])
}

// eventDetails - signature without the relation identity, sorted by key
func eventDetails(e *toolkit.DiffNode) string {
	var res []string
	for _, k := range slices.Sorted(maps.Keys(e.Signature)) {
		switch k {
		case "SchemaName", "RelationName", "RelationKind":
			continue
		}
		res = append(res, k+"="+e.Signature[k])
	}
	return strings.Join(res, " ")
}

// TemplateRenderer - renders the plan using text/template with the sprig functions
type TemplateRenderer struct {
	tmpl *template.Template
}

func NewTemplateRenderer(text string) (*TemplateRenderer, error) {
	tmpl, err := template.New("plan").Funcs(FuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("cannot parse plan template: %w", err)
	}
	return &TemplateRenderer{tmpl: tmpl}, nil
}

func (r *TemplateRenderer) Render(w io.Writer, p *Plan) error {
	if err := r.tmpl.Execute(w, p); err != nil {
		return fmt.Errorf("cannot execute plan template: %w", err)
	}
	return nil
}

func FuncMap() template.FuncMap {
	fm := make(template.FuncMap)
	maps.Copy(fm, sprig.TxtFuncMap())
	fm["quoteIdent"] = toolkit.QuoteIdent
	fm["quoteLiteral"] = toolkit.QuoteLiteral
	return fm
}
