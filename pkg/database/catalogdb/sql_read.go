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
	"context"
	"database/sql"
	"fmt"

	"github.com/towerwatchman/atlas/pkg/database"
)

const defaultListLimit = 100

// gameRowsQuery selects one flat row per (game, version, mapping). The
// placeholder is replaced by the game subquery that applies filtering and
// paging.
const gameRowsQuery = `
	select
		g.DBID, g.Title, g.Creator, g.Engine, g.Description,
		g.TotalPlaytime, g.LastPlayed, g.LastPlayedVersion,
		v.Version, v.InstallPath, v.ExecPath, v.InPlace,
		v.LastPlayed, v.Playtime, v.FolderSize, v.DateAdded,
		r.RefID, r.Title, r.Creator, r.Engine, r.Version, r.Overview,
		r.Status, r.Category, r.Language, r.ReleaseDate, r.Censored,
		t.ThreadID, t.Banner,
		(
			select group_concat(tg.Tag, ',')
			from ReferenceTags rt
			join Tags tg on tg.DBID = rt.TagDBID
			where rt.RefID = r.RefID
		),
		(
			select i.Path from Images i
			where i.GameDBID = g.DBID and i.Kind = 'banner'
			order by i.Position
			limit 1
		)
	from (%s) g
	left join Versions v on v.GameDBID = g.DBID
	left join Mappings m on m.GameDBID = g.DBID
	left join ReferenceEntries r on r.RefID = m.RefID
	left join ReferenceThreads t on t.RefID = r.RefID
	order by g.Title, g.DBID, m.RefID, v.DateAdded, v.Version;
`

func queryGameRows(ctx context.Context, db *sql.DB, gameQuery string, args ...any) ([]gameRow, error) {
	stmt, err := db.PrepareContext(ctx, fmt.Sprintf(gameRowsQuery, gameQuery))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare game query statement: %w", err)
	}
	defer closeStmt(stmt)

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, database.ClassifyError("query games", err)
	}
	defer closeRows(rows)

	list := make([]gameRow, 0)
	for rows.Next() {
		var r gameRow
		err := rows.Scan(
			&r.GameDBID,
			&r.Title,
			&r.Creator,
			&r.Engine,
			&r.Description,
			&r.TotalPlaytime,
			&r.LastPlayed,
			&r.LastPlayedVersion,
			&r.Version,
			&r.InstallPath,
			&r.ExecPath,
			&r.InPlace,
			&r.VersionLastPlayed,
			&r.VersionPlaytime,
			&r.FolderSize,
			&r.DateAdded,
			&r.RefID,
			&r.RefTitle,
			&r.RefCreator,
			&r.RefEngine,
			&r.RefVersion,
			&r.RefOverview,
			&r.RefStatus,
			&r.RefCategory,
			&r.RefLanguage,
			&r.RefReleaseDate,
			&r.RefCensored,
			&r.ThreadID,
			&r.RemoteBanner,
			&r.Tags,
			&r.LocalBanner,
		)
		if err != nil {
			return list, fmt.Errorf("failed to scan game row: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return list, fmt.Errorf("error iterating game rows: %w", err)
	}
	return list, nil
}

func sqlListGames(ctx context.Context, db *sql.DB, offset, limit int) ([]database.Game, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := queryGameRows(ctx, db,
		`select * from Games order by Title, DBID limit ? offset ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return reshapeGameRows(rows), nil
}

func sqlGetGame(ctx context.Context, db *sql.DB, gameDBID int64) (*database.Game, error) {
	rows, err := queryGameRows(ctx, db, `select * from Games where DBID = ?`, gameDBID)
	if err != nil {
		return nil, err
	}
	games := reshapeGameRows(rows)
	if len(games) == 0 {
		return nil, fmt.Errorf("game %d: %w", gameDBID, database.ErrNotFound)
	}
	return &games[0], nil
}
