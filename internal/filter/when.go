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

package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

// relationEnv - variables available in the condition
type relationEnv struct {
	Schema      string   `expr:"schema"`
	Name        string   `expr:"name"`
	Kind        string   `expr:"kind"`
	Columns     []string `expr:"columns"`
	RowSecurity bool     `expr:"row_security"`
	IsPartition bool     `expr:"is_partition"`
}

// When - compiled boolean condition that decides whether the relation is kept. For instance
//
//	schema == "public" and kind != "view" and "email" in columns
type When struct {
	when    string
	program *vm.Program
}

// NewWhen - compiles the condition. An empty condition is always true
func NewWhen(when string) (*When, error) {
	if when == "" {
		return &When{}, nil
	}
	log.Debug().
		Str("WhenCond", when).
		Msg("compiling relation condition")
	program, err := expr.Compile(when, expr.Env(relationEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("unable to compile when condition: %w", err)
	}
	return &When{
		when:    when,
		program: program,
	}, nil
}

func (w *When) String() string {
	return w.when
}

func (w *When) IsEmpty() bool {
	return w.program == nil
}

func (w *When) Evaluate(s *toolkit.Selectable) (bool, error) {
	if w.program == nil {
		return true, nil
	}
	env := relationEnv{
		Schema:      s.Schema,
		Name:        s.Name,
		Kind:        string(s.Kind),
		Columns:     s.ColumnNames(),
		RowSecurity: s.RowSecurity,
		IsPartition: s.IsPartition(),
	}
	output, err := expr.Run(w.program, env)
	if err != nil {
		return false, fmt.Errorf("unable to evaluate when condition for %s: %w", s.QuotedFullName(), err)
	}
	cond, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("when condition should return boolean, got (%T) and value %+v", output, output)
	}
	return cond, nil
}
