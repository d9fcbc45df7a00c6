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

package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "no username", input: "/opt/games/Eternum", expected: "/opt/games/Eternum"},
		{
			name:     "linux home",
			input:    "/home/sam/Games/Eternum/Eternum.sh",
			expected: "/home/<user>/Games/Eternum/Eternum.sh",
		},
		{
			name:     "macos users",
			input:    "/users/sam/Library/atlas/catalog.db",
			expected: "/Users/<user>/Library/atlas/catalog.db",
		},
		{
			name:     "windows other drive",
			input:    "D:\\Users\\sam\\Games\\Eternum.exe",
			expected: "C:\\Users\\<user>\\Games\\Eternum.exe",
		},
		{
			name:     "several paths in one message",
			input:    "moving /home/a/x to /home/b/y",
			expected: "moving /home/<user>/x to /home/<user>/y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizePath(tt.input))
		})
	}
}

func TestSanitizeEvent(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		ServerName: "sams-laptop",
		Message:    "scan failed: /home/sam/Games: permission denied",
		Extra:      map[string]any{"path": "/home/sam/Games/x", "count": 3},
		Exception: []sentry.Exception{{
			Stacktrace: &sentry.Stacktrace{Frames: []sentry.Frame{{
				AbsPath:  "/home/sam/src/atlas/pkg/importer/importer.go",
				Filename: "importer.go",
			}}},
		}, {}},
	}

	got := sanitizeEvent(event)
	require.NotNil(t, got)
	assert.Empty(t, got.ServerName)
	assert.Equal(t, "scan failed: /home/<user>/Games: permission denied", got.Message)
	assert.Equal(t, "/home/<user>/Games/x", got.Extra["path"])
	assert.Equal(t, 3, got.Extra["count"])
	assert.Equal(t, "/home/<user>/src/atlas/pkg/importer/importer.go",
		got.Exception[0].Stacktrace.Frames[0].AbsPath)
}

func TestInitDisabledOrWithoutDSN(t *testing.T) {
	t.Parallel()

	require.NoError(t, Init(Options{Enabled: false, DSN: "https://k@example.invalid/1"}))
	require.NoError(t, Init(Options{Enabled: true, DSN: "  "}))
	assert.False(t, Enabled())

	Close()
	Flush()
}
