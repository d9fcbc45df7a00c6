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

package catalogdb

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/towerwatchman/atlas/pkg/database"
)

// gameRow is one flat row of the game read query. Everything after the game
// columns comes from a left join and may be null.
type gameRow struct {
	Title             string
	Creator           string
	Engine            string
	Description       string
	LastPlayedVersion string

	Version     sql.NullString
	InstallPath sql.NullString
	ExecPath    sql.NullString

	RefTitle       sql.NullString
	RefCreator     sql.NullString
	RefEngine      sql.NullString
	RefVersion     sql.NullString
	RefOverview    sql.NullString
	RefStatus      sql.NullString
	RefCategory    sql.NullString
	RefLanguage    sql.NullString
	RefReleaseDate sql.NullString
	ThreadID       sql.NullString
	RemoteBanner   sql.NullString
	Tags           sql.NullString
	LocalBanner    sql.NullString

	InPlace           sql.NullBool
	RefCensored       sql.NullBool
	VersionLastPlayed sql.NullInt64
	VersionPlaytime   sql.NullInt64
	FolderSize        sql.NullInt64
	DateAdded         sql.NullInt64
	RefID             sql.NullInt64

	GameDBID      int64
	TotalPlaytime int64
	LastPlayed    int64
}

// reshapeGameRows folds flat join rows into nested games, keeping the row
// order of first appearance. Only the first mapping of a game is used for
// reference data.
func reshapeGameRows(rows []gameRow) []database.Game {
	games := make([]database.Game, 0)
	index := make(map[int64]int)
	seenVersions := make(map[int64]map[string]struct{})

	for i := range rows {
		r := &rows[i]
		pos, ok := index[r.GameDBID]
		if !ok {
			games = append(games, newGameFromRow(r))
			pos = len(games) - 1
			index[r.GameDBID] = pos
			seenVersions[r.GameDBID] = make(map[string]struct{})
		}
		g := &games[pos]

		if r.Version.Valid {
			if _, dup := seenVersions[r.GameDBID][r.Version.String]; !dup {
				seenVersions[r.GameDBID][r.Version.String] = struct{}{}
				g.Versions = append(g.Versions, database.Version{
					GameDBID:    r.GameDBID,
					Version:     r.Version.String,
					InstallPath: r.InstallPath.String,
					ExecPath:    r.ExecPath.String,
					InPlace:     r.InPlace.Bool,
					LastPlayed:  timeOrZero(r.VersionLastPlayed.Int64),
					Playtime:    r.VersionPlaytime.Int64,
					FolderSize:  r.FolderSize.Int64,
					DateAdded:   timeOrZero(r.DateAdded.Int64),
				})
			}
		}
	}

	for i := range games {
		g := &games[i]
		if g.Reference == nil {
			continue
		}
		locals := make([]string, 0, len(g.Versions))
		for _, v := range g.Versions {
			locals = append(locals, v.Version)
		}
		g.UpdateAvailable = updateAvailable(g.Reference.Version, locals)
	}

	return games
}

func newGameFromRow(r *gameRow) database.Game {
	g := database.Game{
		DBID:              r.GameDBID,
		Title:             r.Title,
		Creator:           r.Creator,
		Engine:            r.Engine,
		Description:       r.Description,
		TotalPlaytime:     r.TotalPlaytime,
		LastPlayed:        timeOrZero(r.LastPlayed),
		LastPlayedVersion: r.LastPlayedVersion,
		Versions:          make([]database.Version, 0),
		Tags:              splitList(r.Tags.String),
	}
	if r.RefID.Valid {
		g.Reference = &database.ReferenceEntry{
			RefID:       r.RefID.Int64,
			Title:       r.RefTitle.String,
			Creator:     r.RefCreator.String,
			Engine:      r.RefEngine.String,
			Version:     r.RefVersion.String,
			Overview:    r.RefOverview.String,
			Status:      r.RefStatus.String,
			Category:    r.RefCategory.String,
			Language:    r.RefLanguage.String,
			ReleaseDate: r.RefReleaseDate.String,
			Censored:    r.RefCensored.Bool,
			Tags:        r.Tags.String,
		}
	}
	switch {
	case r.LocalBanner.Valid && r.LocalBanner.String != "":
		g.BannerURL = r.LocalBanner.String
	case r.RemoteBanner.Valid:
		g.BannerURL = r.RemoteBanner.String
	}
	return g
}

// versionNumber keeps only the digits of a version label. "v1.2a" becomes
// 12 and anything without digits, or too long to parse, becomes 0.
func versionNumber(label string) int64 {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, label)
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// updateAvailable reports whether the reference version number is greater
// than every local version number. Schemes like "1.10" against "1.9" are
// compared as 110 and 19.
func updateAvailable(referenceVersion string, localVersions []string) bool {
	if len(localVersions) == 0 || strings.TrimSpace(referenceVersion) == "" {
		return false
	}
	ref := versionNumber(referenceVersion)
	for _, v := range localVersions {
		if versionNumber(v) >= ref {
			return false
		}
	}
	return true
}
