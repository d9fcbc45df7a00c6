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

package libraryscanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Discovery is the shallowest directory under a root holding executables.
type Discovery struct {
	Dir         string
	Executables []string
	Engine      string
}

// levelVisitor inspects one directory of a level walk and reports whether
// it satisfied the search.
type levelVisitor func(dir string, entries []os.FileInfo) bool

// walkLevels visits start and the directories below it one level at a
// time, at most levels levels deep. The walk stops after the first level in
// which visit returned true and reports whether that happened. Unreadable
// directories are logged and skipped.
func walkLevels(
	ctx context.Context,
	fs afero.Fs,
	start []string,
	levels int,
	visit levelVisitor,
) (bool, error) {
	level := start
	for depth := 0; depth < levels && len(level) > 0; depth++ {
		found := false
		var next []string
		for _, dir := range level {
			if err := ctx.Err(); err != nil {
				return found, fmt.Errorf("scan interrupted: %w", err)
			}
			entries, err := afero.ReadDir(fs, dir)
			if err != nil {
				log.Warn().Err(err).Str("path", dir).Msg("failed to read directory")
				continue
			}
			if visit(dir, entries) {
				found = true
			}
			next = append(next, subdirs(dir, entries)...)
		}
		if found {
			return true, nil
		}
		level = next
	}
	return false, nil
}

func subdirs(dir string, entries []os.FileInfo) []string {
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(dir, e.Name()))
		}
	}
	return dirs
}

// FindExecutables searches dir breadth first for the shallowest directory
// containing files with one of exts. dir itself is level 0 and the search
// goes down to maxDepth levels below it. It returns a zero Discovery when
// nothing is found.
func FindExecutables(
	ctx context.Context,
	fs afero.Fs,
	dir string,
	exts []string,
	maxDepth int,
) (Discovery, error) {
	exts = normalizeExts(exts, DefaultExecutableExts)
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if _, err := afero.ReadDir(fs, dir); err != nil {
		return Discovery{}, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var found Discovery
	_, err := walkLevels(ctx, fs, []string{dir}, maxDepth+1, func(d string, entries []os.FileInfo) bool {
		if found.Dir != "" {
			return true
		}
		var execs, names []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			names = append(names, e.Name())
			if hasExt(e.Name(), exts) {
				execs = append(execs, e.Name())
			}
		}
		if len(execs) == 0 {
			return false
		}
		sort.Strings(execs)
		found = Discovery{Dir: d, Executables: execs, Engine: GuessEngine(names)}
		return true
	})
	if err != nil {
		return Discovery{}, err
	}
	return found, nil
}
