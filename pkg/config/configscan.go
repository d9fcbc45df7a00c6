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

import "regexp"

type Scan struct {
	MaxDepth       *int     `toml:"max_depth,omitempty"`
	Pattern        string   `toml:"pattern,omitempty"`
	Roots          []string `toml:"roots,omitempty,multiline"`
	ExecutableExts []string `toml:"executable_exts,omitempty"`
	ArchiveExts    []string `toml:"archive_exts,omitempty"`
	AllowRoots     []string `toml:"allow_roots,omitempty,multiline"`
	allowRootsRe   []*regexp.Regexp
}

func (c *Instance) ScanRoots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Scan.Roots
}

func (c *Instance) SetScanRoots(roots []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Scan.Roots = roots
}

func (c *Instance) ScanPattern() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Scan.Pattern
}

// ExecutableExts returns the configured executable extensions, or nil to
// use the scanner defaults.
func (c *Instance) ExecutableExts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Scan.ExecutableExts
}

func (c *Instance) ArchiveExts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Scan.ArchiveExts
}

// ScanMaxDepth returns 0 when unset, meaning the scanner default.
func (c *Instance) ScanMaxDepth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Scan.MaxDepth == nil {
		return 0
	}
	return *c.vals.Scan.MaxDepth
}

// IsRootAllowed reports whether a library root may be scanned. With no
// allow_roots configured every root is allowed.
func (c *Instance) IsRootAllowed(root string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.vals.Scan.AllowRoots) == 0 {
		return root != ""
	}
	return checkAllow(c.vals.Scan.AllowRoots, c.vals.Scan.allowRootsRe, root)
}
