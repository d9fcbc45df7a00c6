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

package helpers

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/towerwatchman/atlas/pkg/config"
)

func TestPathHasPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		root     string
		expected bool
	}{
		{name: "exact", path: "/games", root: "/games", expected: true},
		{name: "child", path: "/games/eternum", root: "/games", expected: true},
		{name: "trailing slash root", path: "/games/eternum", root: "/games/", expected: true},
		{name: "sibling with shared prefix", path: "/games2/x", root: "/games", expected: false},
		{name: "case insensitive", path: "/Games/X", root: "/games", expected: true},
		{name: "empty root", path: "/games", root: "", expected: false},
		{name: "unclean path", path: "/games/a/../b", root: "/games", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, PathHasPrefix(tt.path, tt.root))
		})
	}
}

func TestDataDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.DataEnv, dir)

	assert.Equal(t, dir, DataDir())
	assert.Equal(t, filepath.Join(dir, "logs"), LogDir())
	assert.Equal(t, filepath.Join(dir, config.ImagesDir), ImagesDir())
}

func TestExtractDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.DataEnv, dir)
	t.Setenv(config.CfgEnv, filepath.Join(dir, "atlas.toml"))

	cfg, err := config.NewConfig(dir, config.BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, config.ExtractDir), ExtractDir(cfg))
}

func TestInitLogging(t *testing.T) {
	orig := log.Logger
	t.Cleanup(func() { log.Logger = orig })

	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, InitLogging(dir, []io.Writer{&buf}))

	log.Info().Msg("scan finished")
	assert.Contains(t, buf.String(), "scan finished")
	assert.FileExists(t, filepath.Join(dir, config.LogFile))
	assert.NotNil(t, LogWriter())
}
