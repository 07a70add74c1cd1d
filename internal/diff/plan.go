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
	"errors"
	"fmt"
	"strings"

	"github.com/greenmaskio/pgschemadiff/pkg/toolkit"
)

var ErrUnsafePlan = errors.New("plan contains destructive steps")

type ObjectType string

const (
	ObjectTypeTable            ObjectType = "table"
	ObjectTypeView             ObjectType = "view"
	ObjectTypeMaterializedView ObjectType = "materialized_view"
	ObjectTypeEnum             ObjectType = "enum"
	ObjectTypeColumn           ObjectType = "column"
)

type Operation string

const (
	OperationCreate Operation = "create"
	OperationDrop   Operation = "drop"
	OperationAlter  Operation = "alter"
)

// Step - single DDL statement of the plan
type Step struct {
	SQL        string     `json:"sql"`
	ObjectType ObjectType `json:"object_type"`
	Operation  Operation  `json:"operation"`
	// ObjectPath - quoted full name of the changed object. For columns it is the quoted full name of the table
	// followed by the quoted column name
	ObjectPath string `json:"object_path"`
	// Destructive - the step removes data or the object is not recreated by the plan
	Destructive bool `json:"destructive"`
}

// Plan - ordered DDL statements that migrate the From schema to the To schema
type Plan struct {
	FromID          string  `json:"from_id"`
	ToID            string  `json:"to_id"`
	FromFingerprint string  `json:"from_fingerprint"`
	ToFingerprint   string  `json:"to_fingerprint"`
	Steps           []*Step `json:"steps"`
	// Events - changes found in the relations that exist in both schemas
	Events []*toolkit.DiffNode `json:"events,omitempty"`
}

func (p *Plan) IsEmpty() bool {
	return len(p.Steps) == 0
}

func (p *Plan) Statements() []string {
	res := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		res = append(res, s.SQL)
	}
	return res
}

func (p *Plan) DestructiveSteps() []*Step {
	var res []*Step
	for _, s := range p.Steps {
		if s.Destructive {
			res = append(res, s)
		}
	}
	return res
}

// CheckSafe - returns ErrUnsafePlan listing the destructive steps
func (p *Plan) CheckSafe() error {
	steps := p.DestructiveSteps()
	if len(steps) == 0 {
		return nil
	}
	objects := make([]string, 0, len(steps))
	for _, s := range steps {
		objects = append(objects, fmt.Sprintf("%s %s %s", s.Operation, s.ObjectType, s.ObjectPath))
	}
	return fmt.Errorf("%w: %s", ErrUnsafePlan, strings.Join(objects, ", "))
}

func (p *Plan) add(s *Step) {
	p.Steps = append(p.Steps, s)
}
