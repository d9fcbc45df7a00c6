// Atlas
// Copyright (c) 2025 The Atlas Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Atlas.
//
// Atlas is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Atlas is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Atlas.  If not, see <http://www.gnu.org/licenses/>.

package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/towerwatchman/atlas/pkg/config"
	"github.com/towerwatchman/atlas/pkg/helpers"
)

type commandContext struct {
	cfg     *config.Instance
	cfgErr  error
	fs      afero.Fs
	load    func() (*config.Instance, error)
	dataDir func() string
	once    sync.Once
}

func newCommandContext(writers []io.Writer) *commandContext {
	return &commandContext{
		fs:      afero.NewOsFs(),
		dataDir: helpers.DataDir,
		load: func() (*config.Instance, error) {
			return Setup(config.BaseDefaults, writers)
		},
	}
}

func (c *commandContext) ensureConfig() (*config.Instance, error) {
	c.once.Do(func() {
		c.cfg, c.cfgErr = c.load()
	})
	return c.cfg, c.cfgErr
}

func (c *commandContext) withLocal(ctx context.Context, fn func(*config.Instance, *Local) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	local, err := OpenLocal(ctx, cfg, c.fs, c.dataDir())
	if err != nil {
		return err
	}
	defer func() {
		_ = local.Close()
	}()
	return fn(cfg, local)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// NewRootCommand builds the atlas command tree. Log output also goes to
// writers.
func NewRootCommand(writers []io.Writer) *cobra.Command {
	return newRootCommand(newCommandContext(writers))
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Catalog and import a local game library",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newGamesCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Atlas v%s\n", config.AppVersion)
			return err
		},
	}
}
