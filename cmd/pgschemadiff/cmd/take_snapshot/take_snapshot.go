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

package take_snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/greenmaskio/pgschemadiff/internal/domains"
	"github.com/greenmaskio/pgschemadiff/internal/filter"
	"github.com/greenmaskio/pgschemadiff/internal/snapshot"
	"github.com/greenmaskio/pgschemadiff/internal/source"
	"github.com/greenmaskio/pgschemadiff/internal/storages/builder"
	"github.com/greenmaskio/pgschemadiff/internal/utils/logger"
)

var errDsnIsRequired = errors.New("dsn is required: use --dsn flag or inspect.dsn config parameter")

var (
	Cmd = &cobra.Command{
		Use:   "snapshot",
		Short: "inspect the database schema and save it as a snapshot in the storage",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Fatal().Err(err).Msg("error setting up logger")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			md, err := takeSnapshot(ctx)
			if err != nil {
				log.Fatal().Err(err).Msg("")
			}
			log.Info().
				Str("SnapshotID", string(md.ID)).
				Str("Fingerprint", md.Fingerprint).
				Int("RelationsCount", md.RelationsCount).
				Msg("snapshot saved")
			fmt.Println(md.ID)
		},
	}
	Config = domains.NewConfig()
)

func takeSnapshot(ctx context.Context) (*snapshot.Metadata, error) {
	if Config.Inspect.Dsn == "" {
		return nil, errDsnIsRequired
	}
	when, err := filter.NewWhen(Config.Inspect.When)
	if err != nil {
		return nil, err
	}
	st, err := builder.GetStorage(ctx, &Config.Storage, &Config.Log)
	if err != nil {
		return nil, fmt.Errorf("error building storage: %w", err)
	}

	snap, err := source.InspectDatabase(ctx, Config.Inspect.Dsn, &Config.Inspect)
	if err != nil {
		return nil, err
	}
	if !when.IsEmpty() {
		if snap, err = snap.Filter(when.Evaluate); err != nil {
			return nil, err
		}
	}
	return snapshot.NewStore(st, Config.Storage.UsePgzip).Save(ctx, snap)
}

func init() {
	Cmd.Flags().StringP("dsn", "d", "", "connection string of the inspected database")
	Cmd.Flags().StringSliceP("schema", "n", []string{}, "inspect the specified schema(s) only")
	Cmd.Flags().StringSliceP("exclude-schema", "N", []string{}, "do NOT inspect the specified schema(s)")
	Cmd.Flags().BoolP("include-internal", "", false, "inspect pg_catalog and information_schema too")
	Cmd.Flags().StringP("when", "", "", "expression that must be true for the relation to be included")
	Cmd.Flags().BoolP("use-pgzip", "", false, "compress the snapshot with the parallel gzip implementation")

	for flagName, key := range map[string]string{
		"dsn":              "inspect.dsn",
		"schema":           "inspect.schemas",
		"exclude-schema":   "inspect.exclude_schemas",
		"include-internal": "inspect.include_internal",
		"when":             "inspect.when",
		"use-pgzip":        "storage.use_pgzip",
	} {
		if err := viper.BindPFlag(key, Cmd.Flags().Lookup(flagName)); err != nil {
			log.Fatal().Err(err).Msg("")
		}
	}
	if err := viper.BindEnv("inspect.dsn", "PGSCHEMADIFF_DSN"); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}
