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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/database/slugs"
)

// maxReferenceResults caps each matcher tier query.
const maxReferenceResults = 100

const referenceColumns = `
	RefID, Title, Creator, Engine, Version, Overview, Status, Category,
	Language, ReleaseDate, Censored, ShortName, FullName,
	coalesce((
		select group_concat(t.Tag, ',')
		from ReferenceTags rt
		join Tags t on t.DBID = rt.TagDBID
		where rt.RefID = ReferenceEntries.RefID
	), '')`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likeContains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func scanReferenceRows(rows *sql.Rows) ([]database.ReferenceEntry, error) {
	results := make([]database.ReferenceEntry, 0)
	for rows.Next() {
		var r database.ReferenceEntry
		err := rows.Scan(
			&r.RefID,
			&r.Title,
			&r.Creator,
			&r.Engine,
			&r.Version,
			&r.Overview,
			&r.Status,
			&r.Category,
			&r.Language,
			&r.ReleaseDate,
			&r.Censored,
			&r.ShortName,
			&r.FullName,
			&r.Tags,
		)
		if err != nil {
			return results, fmt.Errorf("failed to scan reference row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return results, fmt.Errorf("error iterating reference rows: %w", err)
	}
	return results, nil
}

func queryReferences(ctx context.Context, db *sql.DB, query string, args ...any) ([]database.ReferenceEntry, error) {
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare reference search statement: %w", err)
	}
	defer closeStmt(stmt)

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, database.ClassifyError("search reference", err)
	}
	defer closeRows(rows)

	return scanReferenceRows(rows)
}

func sqlSearchReferenceByTitleCreator(
	ctx context.Context,
	db *sql.DB,
	title, creator string,
) ([]database.ReferenceEntry, error) {
	return queryReferences(ctx, db, `
		select `+referenceColumns+`
		from ReferenceEntries
		where Title like ? escape '\' and Creator like ? escape '\'
		order by RefID
		limit ?;
	`, likeContains(title), likeContains(creator), maxReferenceResults)
}

// sqlSearchReferenceByName matches a normalized query inside the ShortName
// or FullName column, closest length first.
func sqlSearchReferenceByName(
	ctx context.Context,
	db *sql.DB,
	column, query string,
) ([]database.ReferenceEntry, error) {
	if column != "ShortName" && column != "FullName" {
		return nil, fmt.Errorf("invalid reference name column: %s", column)
	}
	return queryReferences(ctx, db, `
		select `+referenceColumns+`
		from ReferenceEntries
		where instr(`+column+`, ?) > 0
		order by abs(length(`+column+`) - ?), RefID
		limit ?;
	`, query, len(query), maxReferenceResults)
}

func sqlSearchReferenceByTitle(ctx context.Context, db *sql.DB, title string) ([]database.ReferenceEntry, error) {
	return queryReferences(ctx, db, `
		select `+referenceColumns+`
		from ReferenceEntries
		where Title like ? escape '\'
		order by RefID
		limit ?;
	`, likeContains(title), maxReferenceResults)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sqlGetReferenceThread returns an empty thread, not an error, when the
// entry has no secondary identifier.
func sqlGetReferenceThread(ctx context.Context, db *sql.DB, refID int64) (database.ReferenceThread, error) {
	thread := database.ReferenceThread{RefID: refID}
	var screens, videos string
	err := db.QueryRowContext(ctx, `
		select ThreadID, Banner, Screens, Videos from ReferenceThreads where RefID = ?;
	`, refID).Scan(&thread.ThreadID, &thread.BannerURL, &screens, &videos)
	if errors.Is(err, sql.ErrNoRows) {
		return thread, nil
	}
	if err != nil {
		return thread, database.ClassifyError("get reference thread", err)
	}
	thread.PreviewURLs = splitList(screens)
	thread.VideoURLs = splitList(videos)
	return thread, nil
}

func sqlLastAppliedUpdate(ctx context.Context, db *sql.DB) (int64, error) {
	var stamp int64
	err := db.QueryRowContext(ctx, `
		select coalesce(max(Stamp), 0) from AppliedUpdates;
	`).Scan(&stamp)
	if err != nil {
		return 0, database.ClassifyError("last applied update", err)
	}
	return stamp, nil
}

// sqlSyncReferenceCatalog applies one batch and records its stamp in a single
// transaction. Any failing row rolls back the whole batch.
func sqlSyncReferenceCatalog(
	ctx context.Context,
	db *sql.DB,
	batch *database.ReferenceBatch,
	now time.Time,
) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	entryStmt, err := tx.PrepareContext(ctx, `
		insert into ReferenceEntries(
			RefID, Title, Creator, Engine, Version, Overview, Status, Category,
			Language, ReleaseDate, Censored, ShortName, FullName
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		on conflict(RefID) do update set
			Title = excluded.Title,
			Creator = excluded.Creator,
			Engine = excluded.Engine,
			Version = excluded.Version,
			Overview = excluded.Overview,
			Status = excluded.Status,
			Category = excluded.Category,
			Language = excluded.Language,
			ReleaseDate = excluded.ReleaseDate,
			Censored = excluded.Censored,
			ShortName = excluded.ShortName,
			FullName = excluded.FullName;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare reference upsert statement: %w", err)
	}
	defer closeStmt(entryStmt)

	for i := range batch.Entries {
		e := &batch.Entries[i]
		if e.RefID <= 0 {
			return fmt.Errorf("reference entry %q has no id", e.Title)
		}
		e.ShortName = slugs.ShortName(e.Title)
		e.FullName = slugs.FullName(e.Title, e.Creator)
		_, err := entryStmt.ExecContext(ctx,
			e.RefID,
			e.Title,
			e.Creator,
			e.Engine,
			e.Version,
			e.Overview,
			e.Status,
			e.Category,
			e.Language,
			e.ReleaseDate,
			e.Censored,
			e.ShortName,
			e.FullName,
		)
		if err != nil {
			return database.ClassifyError("sync reference entry", err)
		}
		if err := syncReferenceTags(ctx, tx, e.RefID, splitList(e.Tags)); err != nil {
			return err
		}
	}

	threadStmt, err := tx.PrepareContext(ctx, `
		insert into ReferenceThreads(RefID, ThreadID, Banner, Screens, Videos)
		values (?, ?, ?, ?, ?)
		on conflict(RefID) do update set
			ThreadID = excluded.ThreadID,
			Banner = excluded.Banner,
			Screens = excluded.Screens,
			Videos = excluded.Videos;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare reference thread statement: %w", err)
	}
	defer closeStmt(threadStmt)

	for _, th := range batch.Threads {
		_, err := threadStmt.ExecContext(ctx,
			th.RefID,
			th.ThreadID,
			th.BannerURL,
			strings.Join(th.PreviewURLs, ","),
			strings.Join(th.VideoURLs, ","),
		)
		if err != nil {
			return database.ClassifyError("sync reference thread", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		insert into AppliedUpdates(Stamp, AppliedAt, Entries) values (?, ?, ?);
	`, batch.Stamp, now.Unix(), len(batch.Entries))
	if err != nil {
		return database.ClassifyError("record applied update", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reference batch: %w", err)
	}
	return nil
}

func syncReferenceTags(ctx context.Context, tx *sql.Tx, refID int64, tags []string) error {
	if _, err := tx.ExecContext(ctx, `delete from ReferenceTags where RefID = ?;`, refID); err != nil {
		return database.ClassifyError("clear reference tags", err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `insert or ignore into Tags(Tag) values (?);`, tag); err != nil {
			return database.ClassifyError("insert tag", err)
		}
		_, err := tx.ExecContext(ctx, `
			insert or ignore into ReferenceTags(RefID, TagDBID)
			select ?, DBID from Tags where Tag = ?;
		`, refID, tag)
		if err != nil {
			return database.ClassifyError("insert reference tag", err)
		}
	}
	return nil
}
