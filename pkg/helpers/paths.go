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
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/towerwatchman/atlas/pkg/config"
)

// DataDir holds the catalog, logs, images and extracted archives.
// ATLAS_DATA overrides the XDG location.
func DataDir() string {
	if dir := os.Getenv(config.DataEnv); dir != "" {
		return dir
	}
	return filepath.Join(xdg.DataHome, config.AppName)
}

func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, config.AppName)
}

func LogDir() string {
	return filepath.Join(DataDir(), "logs")
}

func ImagesDir() string {
	return filepath.Join(DataDir(), config.ImagesDir)
}

// ExtractDir returns the configured extraction directory or the default
// under the data dir.
func ExtractDir(cfg *config.Instance) string {
	if dir := cfg.ExtractDir(); dir != "" {
		return dir
	}
	return filepath.Join(DataDir(), config.ExtractDir)
}

// NormalizePathForComparison normalizes a path for cross-platform case-insensitive comparison.
// Converts to forward slashes and lowercases for consistent matching across all platforms.
func NormalizePathForComparison(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	return strings.ToLower(p)
}

// PathHasPrefix checks if path is within root directory, handling separator boundaries correctly.
// This avoids the prefix bug where "c:/games2/x" would incorrectly match root "c:/games".
func PathHasPrefix(path, root string) bool {
	normPath := NormalizePathForComparison(path)
	normRoot := NormalizePathForComparison(root)

	// Handle exact match
	if normPath == normRoot {
		return true
	}

	// Handle empty root - only match if both are empty
	if normRoot == "" {
		return false
	}

	// Ensure root ends with separator to avoid "games" matching "games2"
	if !strings.HasSuffix(normRoot, "/") {
		normRoot += "/"
	}

	return strings.HasPrefix(normPath, normRoot)
}
