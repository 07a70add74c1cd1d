// Copyright 2023 Greenmask
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

package domains

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/greenmaskio/pgschemadiff/internal/storages/directory"
	"github.com/greenmaskio/pgschemadiff/internal/storages/s3"
)

var (
	Cfg  *Config
	once sync.Once
)

const (
	defaultStorageType    = "directory"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
	defaultDiffFormat     = "sql"
	defaultWrapWidth      = 80
	defaultConnectTimeout = 30 * time.Second
	defaultQueryTimeout   = 5 * time.Minute
)

const (
	DiffFormatSql      = "sql"
	DiffFormatJson     = "json"
	DiffFormatTable    = "table"
	DiffFormatTemplate = "template"
)

var DiffFormats = []string{DiffFormatSql, DiffFormatJson, DiffFormatTable, DiffFormatTemplate}

func NewConfig() *Config {
	once.Do(
		func() {
			Cfg = newDefaultConfig()
		},
	)
	return Cfg
}

func newDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Storage: StorageConfig{
			Type:      defaultStorageType,
			S3:        s3.NewConfig(),
			Directory: directory.NewConfig(),
		},
		Inspect: Inspect{
			ConnectTimeout: defaultConnectTimeout,
			QueryTimeout:   defaultQueryTimeout,
		},
		Diff: Diff{
			Format:    defaultDiffFormat,
			WrapWidth: defaultWrapWidth,
		},
	}
}

type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage" json:"storage"`
	Inspect Inspect       `mapstructure:"inspect" yaml:"inspect" json:"inspect"`
	Diff    Diff          `mapstructure:"diff" yaml:"diff" json:"diff"`
}

type StorageConfig struct {
	Type      string            `mapstructure:"type" yaml:"type" json:"type,omitempty"`
	S3        *s3.Config        `mapstructure:"s3" json:"s3,omitempty" yaml:"s3"`
	Directory *directory.Config `mapstructure:"directory" json:"directory,omitempty" yaml:"directory"`
	// UsePgzip - compress the stored snapshots with the parallel gzip implementation
	UsePgzip bool `mapstructure:"use_pgzip" yaml:"use_pgzip" json:"use_pgzip,omitempty"`
}

type LogConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format,omitempty"`
	Level  string `mapstructure:"level" yaml:"level" json:"level,omitempty"`
}

type Inspect struct {
	// Dsn - connection string of the database that is inspected by the snapshot command
	Dsn             string        `mapstructure:"dsn" yaml:"dsn,omitempty" json:"-"`
	Schemas         []string      `mapstructure:"schemas" yaml:"schemas,omitempty" json:"schemas,omitempty"`
	ExcludeSchemas  []string      `mapstructure:"exclude_schemas" yaml:"exclude_schemas,omitempty" json:"exclude_schemas,omitempty"`
	IncludeInternal bool          `mapstructure:"include_internal" yaml:"include_internal" json:"include_internal,omitempty"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout" json:"connect_timeout,omitempty"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout" yaml:"query_timeout" json:"query_timeout,omitempty"`
	// When - expression that must be true for the relation to be included
	When string `mapstructure:"when" yaml:"when,omitempty" json:"when,omitempty"`
}

type Diff struct {
	Format string `mapstructure:"format" yaml:"format" json:"format,omitempty"`
	// Output - file path of the plan. Stdout is used if empty. The plan is compressed if the path ends with .gz
	Output    string `mapstructure:"output" yaml:"output,omitempty" json:"output,omitempty"`
	UsePgzip  bool   `mapstructure:"use_pgzip" yaml:"use_pgzip" json:"use_pgzip,omitempty"`
	WrapWidth uint   `mapstructure:"wrap_width" yaml:"wrap_width" json:"wrap_width,omitempty"`
	// Template - text/template of the plan. Used with the template format
	Template string `mapstructure:"template" yaml:"template,omitempty" json:"template,omitempty"`
	// Safe - refuse the plans that drop objects
	Safe bool `mapstructure:"safe" yaml:"safe" json:"safe,omitempty"`
}

func (d *Diff) Validate() error {
	if !slices.Contains(DiffFormats, d.Format) {
		return fmt.Errorf("unknown diff format \"%s\": expected one of %v", d.Format, DiffFormats)
	}
	if d.Format == DiffFormatTemplate && d.Template == "" {
		return fmt.Errorf("diff template is required for the %s format", DiffFormatTemplate)
	}
	return nil
}
