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

package delete_snapshot

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/greenmaskio/pgschemadiff/internal/domains"
	"github.com/greenmaskio/pgschemadiff/internal/snapshot"
	"github.com/greenmaskio/pgschemadiff/internal/storages/builder"
	"github.com/greenmaskio/pgschemadiff/internal/utils/logger"
)

var (
	Cmd = &cobra.Command{
		Use:   "delete-snapshot snapshotId|latest",
		Short: "delete snapshot from the storage with a specific ID",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Fatal().Err(err).Msg("")
			}

			id, err := deleteSnapshot(snapshot.ID(args[0]))
			if err != nil {
				log.Fatal().Err(err).Msg("")
			}
			log.Info().Str("SnapshotID", string(id)).Msg("snapshot deleted")
		},
	}
	Config = domains.NewConfig()
)

func deleteSnapshot(id snapshot.ID) (snapshot.ID, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st, err := builder.GetStorage(ctx, &Config.Storage, &Config.Log)
	if err != nil {
		return "", err
	}
	return snapshot.NewStore(st, Config.Storage.UsePgzip).Delete(ctx, id)
}
