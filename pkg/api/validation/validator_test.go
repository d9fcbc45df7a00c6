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

package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/towerwatchman/atlas/pkg/api/models"
)

func TestValidateAndUnmarshalMissingAndInvalid(t *testing.T) {
	t.Parallel()

	var p models.SearchParams
	require.ErrorIs(t, ValidateAndUnmarshal(nil, &p), ErrMissingParams)
	require.ErrorIs(t, ValidateAndUnmarshal(json.RawMessage(`{"title":`), &p), ErrInvalidParams)
}

func TestValidateAndUnmarshalRequired(t *testing.T) {
	t.Parallel()

	var p models.SearchParams
	err := ValidateAndUnmarshal(json.RawMessage(`{"creator":"Caribdis"}`), &p)

	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, "title is required", ve.Fields[0].Message)
}

func TestScanParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  string
		wantErr string
	}{
		{name: "root only", params: `{"root":"/games"}`},
		{name: "pattern", params: `{"root":"/games","pattern":"{creator}/{title}/{version}"}`},
		{name: "extensions", params: `{"root":"/games","executableExts":["exe",".sh"]}`},
		{name: "no root", params: `{}`, wantErr: "root is required"},
		{
			name:    "pattern without title",
			params:  `{"root":"/games","pattern":"{creator}/{version}"}`,
			wantErr: "must be a folder pattern containing {title}",
		},
		{
			name:    "bad extension",
			params:  `{"root":"/games","archiveExts":["tar.gz"]}`,
			wantErr: "is not a file extension",
		},
		{name: "depth out of range", params: `{"root":"/games","maxDepth":0}`, wantErr: "at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var p models.ScanParams
			err := ValidateAndUnmarshal(json.RawMessage(tt.params), &p)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImportParamsPreviewLimit(t *testing.T) {
	t.Parallel()

	var p models.ImportParams
	err := ValidateAndUnmarshal(json.RawMessage(
		`{"items":[{"title":"Eternum","path":"/g/Eternum"}],"options":{"previewLimit":51}}`), &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 50")

	err = ValidateAndUnmarshal(json.RawMessage(`{"items":[]}`), &p)
	require.Error(t, err)
}
