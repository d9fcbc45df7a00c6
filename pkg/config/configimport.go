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

package config

const (
	DefaultPreviewLimit = 10
	MaxPreviewLimit     = 50
)

type Import struct {
	PreviewLimit      *int     `toml:"preview_limit,omitempty"`
	FolderSize        *bool    `toml:"folder_size,omitempty"`
	FetchBanner       *bool    `toml:"fetch_banner,omitempty"`
	ExtractDir        string   `toml:"extract_dir,omitempty"`
	ExtractCommand    []string `toml:"extract_command,omitempty"`
	DeleteArchive     bool     `toml:"delete_archive"`
	FetchPreviews     bool     `toml:"fetch_previews"`
	FetchVideos       bool     `toml:"fetch_videos"`
}

// ImportDefaults holds the import settings used when a request does not
// override them.
type ImportDefaults struct {
	PreviewLimit      int
	DeleteArchive     bool
	ComputeFolderSize bool
	FetchBanner       bool
	FetchPreviews     bool
	FetchVideos       bool
}

func (c *Instance) ImportDefaults() ImportDefaults {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d := ImportDefaults{
		PreviewLimit:      DefaultPreviewLimit,
		DeleteArchive:     c.vals.Import.DeleteArchive,
		ComputeFolderSize: true,
		FetchBanner:       true,
		FetchPreviews:     c.vals.Import.FetchPreviews,
		FetchVideos:       c.vals.Import.FetchVideos,
	}
	if c.vals.Import.PreviewLimit != nil {
		d.PreviewLimit = min(max(*c.vals.Import.PreviewLimit, 0), MaxPreviewLimit)
	}
	if c.vals.Import.FolderSize != nil {
		d.ComputeFolderSize = *c.vals.Import.FolderSize
	}
	if c.vals.Import.FetchBanner != nil {
		d.FetchBanner = *c.vals.Import.FetchBanner
	}
	return d
}

// ExtractCommand returns the archive extraction command line. The
// placeholders {archive} and {dest} are substituted per archive. Empty
// means archives cannot be imported.
func (c *Instance) ExtractCommand() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Import.ExtractCommand
}

// ExtractDir returns the configured extraction directory, or "" for the
// default under the data dir.
func (c *Instance) ExtractDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Import.ExtractDir
}
