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

package list_snapshots

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/greenmaskio/pgschemadiff/internal/domains"
	"github.com/greenmaskio/pgschemadiff/internal/snapshot"
	"github.com/greenmaskio/pgschemadiff/internal/storages/builder"
	"github.com/greenmaskio/pgschemadiff/internal/utils/logger"
)

var (
	Cmd = &cobra.Command{
		Use:   "list-snapshots",
		Short: "list all snapshots in the storage",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Err(err).Msg("")
			}

			if err := listSnapshots(os.Stdout); err != nil {
				log.Fatal().Err(err).Msg("")
			}
		},
	}
	Config = domains.NewConfig()
)

func SizePretty(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func listSnapshots(w io.Writer) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st, err := builder.GetStorage(ctx, &Config.Storage, &Config.Log)
	if err != nil {
		return fmt.Errorf("error building storage: %w", err)
	}

	list, err := snapshot.NewStore(st, Config.Storage.UsePgzip).List(ctx)
	if err != nil {
		return err
	}
	renderList(w, list)
	return nil
}

// renderList - writes the table of snapshots. The list is expected to be sorted, the newest first
func renderList(w io.Writer, list []*snapshot.Metadata) {
	data := make([][]string, 0, len(list))
	for _, md := range list {
		data = append(data, []string{
			string(md.ID),
			md.CreatedAt.Format(time.RFC3339),
			md.Database,
			strconv.Itoa(md.RelationsCount),
			strconv.Itoa(md.EnumsCount),
			SizePretty(md.CompressedSize),
			md.Fingerprint,
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"id", "date", "database", "relations", "enums", "size", "fingerprint"})
	table.AppendBulk(data)
	table.Render()
}
