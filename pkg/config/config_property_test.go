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

import (
	"testing"

	"pgregory.net/rapid"
)

// TestPropertyImportDefaultsPreviewLimitInRange verifies any configured
// preview limit is clamped into the accepted range.
func TestPropertyImportDefaultsPreviewLimitInRange(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(-1000, 1000).Draw(t, "limit")
		cfg := &Instance{vals: Values{Import: Import{PreviewLimit: &limit}}}

		got := cfg.ImportDefaults().PreviewLimit
		if got < 0 || got > MaxPreviewLimit {
			t.Fatalf("preview limit %d out of range for configured %d", got, limit)
		}
		if limit >= 0 && limit <= MaxPreviewLimit && got != limit {
			t.Fatalf("in-range limit %d changed to %d", limit, got)
		}
	})
}

// TestPropertyWindowsStylePathDriveLetters verifies any drive letter prefix
// is recognised.
func TestPropertyWindowsStylePathDriveLetters(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		drive := rapid.StringMatching(`[A-Za-z]`).Draw(t, "drive")
		rest := rapid.StringMatching(`[\\/][a-z]{0,10}`).Draw(t, "rest")
		if !isWindowsStylePath(drive + ":" + rest) {
			t.Fatalf("expected %q to be a windows path", drive+":"+rest)
		}
	})
}
