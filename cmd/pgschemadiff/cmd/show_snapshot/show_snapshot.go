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

package show_snapshot

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/greenmaskio/pgschemadiff/internal/domains"
	"github.com/greenmaskio/pgschemadiff/internal/snapshot"
	"github.com/greenmaskio/pgschemadiff/internal/storages/builder"
	"github.com/greenmaskio/pgschemadiff/internal/utils/logger"
)

var (
	Config = domains.NewConfig()
	format string
	path   string
	output string
)

var (
	Cmd = &cobra.Command{
		Use:   "show-snapshot [flags] snapshotId|latest",
		Args:  cobra.ExactArgs(1),
		Short: "shows the inspected schema stored in the snapshot",
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Fatal().Err(err).Msg("error setting up logger")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if err := showSnapshot(ctx, os.Stdout, snapshot.ID(args[0])); err != nil {
				log.Fatal().Err(err).Msg("")
			}
		},
	}
)

// showSnapshot - prints the snapshot, the part selected by the path or exports the snapshot to the output file
func showSnapshot(ctx context.Context, w io.Writer, id snapshot.ID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	st, err := builder.GetStorage(ctx, &Config.Storage, &Config.Log)
	if err != nil {
		return fmt.Errorf("error building storage: %w", err)
	}
	snap, err := snapshot.NewStore(st, Config.Storage.UsePgzip).Load(ctx, id)
	if err != nil {
		return fmt.Errorf("cannot load snapshot %s: %w", id, err)
	}

	switch {
	case output != "":
		if err = snapshot.WriteFile(output, snap, Config.Storage.UsePgzip); err != nil {
			return err
		}
		log.Info().
			Str("SnapshotID", string(snap.ID)).
			Str("File", output).
			Msg("snapshot exported")
		return nil
	case path != "":
		res, err := snapshot.Query(snap, path)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, res)
		return err
	}
	return snapshot.Show(w, snap, format, int(Config.Diff.WrapWidth))
}

func init() {
	Cmd.Flags().StringVarP(&format, "format", "f", snapshot.FormatText, "output format [text|yaml|json]")
	Cmd.Flags().StringVarP(&path, "path", "p", "", "print only the json part of the snapshot selected by the gjson path")
	Cmd.Flags().StringVarP(
		&output, "output", "o", "",
		"export the snapshot to the file, the format is detected by the extension (.json, .yaml, .yml, optionally .gz)",
	)
}
