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

package schema_diff

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/greenmaskio/pgschemadiff/internal/diff"
	"github.com/greenmaskio/pgschemadiff/internal/domains"
	"github.com/greenmaskio/pgschemadiff/internal/filter"
	"github.com/greenmaskio/pgschemadiff/internal/snapshot"
	"github.com/greenmaskio/pgschemadiff/internal/source"
	"github.com/greenmaskio/pgschemadiff/internal/storages/builder"
	"github.com/greenmaskio/pgschemadiff/internal/utils/logger"
)

var errRefsAreRequired = errors.New("both --from and --to references are required")

var (
	Cmd = &cobra.Command{
		Use:   "diff --from <ref> --to <ref>",
		Short: "compute the DDL plan that turns the --from schema into the --to schema",
		Long: "Computes the ordered DDL plan between two schemas. A reference is one of " +
			"snapshot:<id|latest> (stored snapshot), file:<path> (snapshot file in yaml or json, " +
			"optionally gzipped) or postgres://... (live database)",
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Fatal().Err(err).Msg("error setting up logger")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if cmd.Flags().Changed("when") {
				Config.Inspect.When = when
			}
			if err := runDiff(ctx); err != nil {
				log.Fatal().Err(err).Msg("")
			}
		},
	}
	Config = domains.NewConfig()

	fromRef      string
	toRef        string
	when         string
	templateFile string
)

func runDiff(ctx context.Context) (err error) {
	if fromRef == "" || toRef == "" {
		return errRefsAreRequired
	}
	if templateFile != "" {
		data, err := os.ReadFile(templateFile)
		if err != nil {
			return fmt.Errorf("cannot read template file: %w", err)
		}
		Config.Diff.Template = string(data)
	}
	renderer, err := diff.NewRenderer(&Config.Diff)
	if err != nil {
		return err
	}
	w, err := filter.NewWhen(Config.Inspect.When)
	if err != nil {
		return err
	}
	st, err := builder.GetStorage(ctx, &Config.Storage, &Config.Log)
	if err != nil {
		return fmt.Errorf("error building storage: %w", err)
	}

	resolver := source.NewResolver(
		snapshot.NewStore(st, Config.Storage.UsePgzip), w, source.NewDatabaseInspector(&Config.Inspect),
	)
	from, to, err := resolver.ResolvePair(ctx, fromRef, toRef)
	if err != nil {
		return err
	}

	plan, err := diff.Compute(from, to, &diff.Options{Safe: Config.Diff.Safe})
	if err != nil {
		return err
	}
	log.Info().
		Int("StepsCount", len(plan.Steps)).
		Int("DestructiveStepsCount", len(plan.DestructiveSteps())).
		Msg("plan computed")

	out, err := diff.NewOutput(Config.Diff.Output, Config.Diff.UsePgzip)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("cannot close plan output: %w", closeErr)
		}
	}()
	return renderer.Render(out, plan)
}

func init() {
	Cmd.Flags().StringVarP(&fromRef, "from", "", "", "current schema reference")
	Cmd.Flags().StringVarP(&toRef, "to", "", "", "desired schema reference")
	Cmd.Flags().StringVarP(&when, "when", "", "", "expression that must be true for the relation to be compared")
	Cmd.Flags().StringVarP(&templateFile, "template-file", "", "", "file with the text/template of the plan")

	Cmd.Flags().StringP("format", "f", domains.DiffFormatSql, fmt.Sprintf("plan format %v", domains.DiffFormats))
	Cmd.Flags().StringP("output", "o", "", "plan file path, compressed if it ends with .gz (default stdout)")
	Cmd.Flags().BoolP("use-pgzip", "", false, "compress the plan with the parallel gzip implementation")
	Cmd.Flags().UintP("wrap-width", "", 80, "max width of the sql column of the table format")
	Cmd.Flags().StringP("template", "", "", "text/template of the plan used with the template format")
	Cmd.Flags().BoolP("safe", "", false, "refuse the plan if it drops objects or columns")

	for flagName, key := range map[string]string{
		"format":     "diff.format",
		"output":     "diff.output",
		"use-pgzip":  "diff.use_pgzip",
		"wrap-width": "diff.wrap_width",
		"template":   "diff.template",
		"safe":       "diff.safe",
	} {
		if err := viper.BindPFlag(key, Cmd.Flags().Lookup(flagName)); err != nil {
			log.Fatal().Err(err).Msg("")
		}
	}
}
