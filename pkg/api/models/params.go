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

package models

import (
	"github.com/towerwatchman/atlas/pkg/database/libraryscanner"
	"github.com/towerwatchman/atlas/pkg/importer"
)

type ScanParams struct {
	Pattern        *string  `json:"pattern" validate:"omitempty,pattern"`
	MaxDepth       *int     `json:"maxDepth" validate:"omitempty,min=1,max=64"`
	Root           string   `json:"root" validate:"required"`
	ExecutableExts []string `json:"executableExts" validate:"omitempty,dive,ext"`
	ArchiveExts    []string `json:"archiveExts" validate:"omitempty,dive,ext"`
	Archives       bool     `json:"archives"`
}

type ImportParams struct {
	Options *importer.Options          `json:"options"`
	Items   []libraryscanner.Candidate `json:"items" validate:"required,min=1,dive"`
}

type SearchParams struct {
	Title   string `json:"title" validate:"required"`
	Creator string `json:"creator"`
}

type SyncParams struct {
	File *string `json:"file"`
}

type GamesParams struct {
	Offset int `json:"offset" validate:"min=0"`
	Limit  int `json:"limit" validate:"min=0,max=1000"`
}

type GameIDParams struct {
	ID      int64 `json:"id" validate:"required,gt=0"`
	Cascade bool  `json:"cascade"`
}

type UpdateGameParams struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Creator     *string `json:"creator"`
	Engine      *string `json:"engine"`
	Description *string `json:"description"`
	ID          int64   `json:"id" validate:"required,gt=0"`
}

type UpdateVersionParams struct {
	InstallPath *string `json:"installPath" validate:"omitempty,min=1"`
	ExecPath    *string `json:"execPath"`
	Playtime    *int64  `json:"playtime" validate:"omitempty,min=0"`
	Version     string  `json:"version" validate:"required"`
	GameID      int64   `json:"gameId" validate:"required,gt=0"`
}

type AddMappingParams struct {
	GameID int64 `json:"gameId" validate:"required,gt=0"`
	RefID  int64 `json:"refId" validate:"required,gt=0"`
}
