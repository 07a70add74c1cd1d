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

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/greenmaskio/pgschemadiff/cmd/pgschemadiff/cmd/delete_snapshot"
	"github.com/greenmaskio/pgschemadiff/cmd/pgschemadiff/cmd/list_snapshots"
	"github.com/greenmaskio/pgschemadiff/cmd/pgschemadiff/cmd/schema_diff"
	"github.com/greenmaskio/pgschemadiff/cmd/pgschemadiff/cmd/show_snapshot"
	"github.com/greenmaskio/pgschemadiff/cmd/pgschemadiff/cmd/take_snapshot"
	"github.com/greenmaskio/pgschemadiff/internal/domains"
	configUtils "github.com/greenmaskio/pgschemadiff/internal/utils/config"
)

const (
	appName               = "pgschemadiff"
	defaultConfigFileName = "config.yml"
)

var (
	Version    string
	Commit     string
	CommitDate string

	RootCmd = &cobra.Command{
		Use:   appName,
		Short: "pgschemadiff captures PostgreSQL schema snapshots and plans the DDL between them",
		Long: "A tool that introspects tables, views, materialized views and enum types of a PostgreSQL " +
			"database, keeps the result as a versioned snapshot in the storage (directory or S3) and " +
			"computes an ordered DDL plan that turns one schema into another. Both sides of a diff may be " +
			"a stored snapshot, a snapshot file or a live database",
	}
	cfgFile string
	Config  = domains.NewConfig()
)

func Execute() error {
	return RootCmd.Execute()
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				Commit = setting.Value
			}
			if setting.Key == "vcs.time" {
				CommitDate = setting.Value
			}
		}
	}
	if Version != "" {
		RootCmd.Version = fmt.Sprintf("%s %s %s", Version, Commit, CommitDate)
	} else {
		RootCmd.Version = fmt.Sprintf("%s %s", Commit, CommitDate)
	}

	cobra.OnInitialize(initConfig)
	// Removing short help flag from default
	RootCmd.PersistentFlags().BoolP("help", "", false, "help for pgschemadiff")
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	RootCmd.PersistentFlags().StringP("log-format", "", "text", "logging format [text|json]")
	RootCmd.PersistentFlags().StringP("log-level", "", zerolog.LevelInfoValue,
		fmt.Sprintf(
			"logging level %s|%s|%s",
			zerolog.LevelDebugValue,
			zerolog.LevelInfoValue,
			zerolog.LevelWarnValue,
		),
	)

	RootCmd.AddCommand(take_snapshot.Cmd)
	RootCmd.AddCommand(schema_diff.Cmd)
	RootCmd.AddCommand(list_snapshots.Cmd)
	RootCmd.AddCommand(show_snapshot.Cmd)
	RootCmd.AddCommand(delete_snapshot.Cmd)

	if err := viper.BindPFlag("log.format", RootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		log.Fatal().Err(err).Msg("")
	}

	if err := viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		log.Fatal().Err(err).Msg("")
	}

	RootCmd.InitDefaultCompletionCmd()
	RootCmd.InitDefaultHelpCmd()
	RootCmd.InitDefaultVersionFlag()

	for _, c := range RootCmd.Commands() {
		if c.Name() == "completion" || c.Name() == "help" {
			c.DisableFlagParsing = true
			for _, subc := range c.Commands() {
				subc.DisableFlagParsing = true
			}
		}
	}
}

// defaultConfigFile - returns the path of the config in the user config directory if it exists
func defaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		log.Debug().Err(err).Msg("cannot determine user config directory")
		return ""
	}
	p := filepath.Join(dir, appName, defaultConfigFileName)
	if _, err = os.Stat(p); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("ConfigFile", p).Msg("cannot access default config file")
		}
		return ""
	}
	return p
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = defaultConfigFile()
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal().Err(err).Msg("error reading from config file")
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(Config, viper.DecodeHook(configUtils.DecodeHook())); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}
