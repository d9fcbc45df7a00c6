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

type Reference struct {
	FeedURL           string  `toml:"feed_url,omitempty"`
	FeedFile          string  `toml:"feed_file,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
	DownloadWorkers   int     `toml:"download_workers,omitempty"`
	SyncOnStart       bool    `toml:"sync_on_start"`
}

func (c *Instance) ReferenceFeedURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Reference.FeedURL
}

func (c *Instance) SetReferenceFeedURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Reference.FeedURL = u
}

// ReferenceFeedFile is a local CSV export used instead of the HTTP feed.
func (c *Instance) ReferenceFeedFile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Reference.FeedFile
}

func (c *Instance) SyncOnStart() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r := c.vals.Reference
	return r.SyncOnStart && (r.FeedURL != "" || r.FeedFile != "")
}

// AssetRequestsPerSecond returns the asset download rate, or 0 for the
// downloader default.
func (c *Instance) AssetRequestsPerSecond() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Reference.RequestsPerSecond
}

func (c *Instance) AssetDownloadWorkers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Reference.DownloadWorkers
}
