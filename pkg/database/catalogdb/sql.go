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
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func sqlMigrateUp(db *sql.DB) error {
	if err := database.MigrateUp(db, migrationFiles, "migrations"); err != nil {
		return fmt.Errorf("failed to run catalog database migrations: %w", err)
	}
	return nil
}

func sqlAllocate(db *sql.DB) error {
	return sqlMigrateUp(db)
}

func sqlVacuum(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "vacuum;")
	if err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

func closeStmt(stmt *sql.Stmt) {
	if closeErr := stmt.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("failed to close sql statement")
	}
}

func closeRows(rows *sql.Rows) {
	if closeErr := rows.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("failed to close sql rows")
	}
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Warn().Err(err).Msg("failed to rollback transaction")
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(secs int64) time.Time {
	if secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

// sqlUpsertGame relies on the unique (Title, Creator) index: the insert is
// ignored when the pair exists and the lookup returns whichever row won.
// Engine is never updated on an existing row.
func sqlUpsertGame(ctx context.Context, db *sql.DB, title, creator, engine string) (int64, error) {
	_, err := db.ExecContext(ctx, `
		insert or ignore into Games(Title, Creator, Engine) values (?, ?, ?);
	`, title, creator, engine)
	if err != nil {
		return 0, database.ClassifyError("upsert game", err)
	}

	var id int64
	err = db.QueryRowContext(ctx, `
		select DBID from Games where Title = ? and Creator = ?;
	`, title, creator).Scan(&id)
	if err != nil {
		return 0, database.ClassifyError("upsert game lookup", err)
	}
	return id, nil
}

func sqlInsertGame(ctx context.Context, db *sql.DB, row *database.Game) (int64, error) {
	stmt, err := db.PrepareContext(ctx, `
		insert into Games(
			Title, Creator, Engine, Description, TotalPlaytime, LastPlayed, LastPlayedVersion
		) values (?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare game insert statement: %w", err)
	}
	defer closeStmt(stmt)

	res, err := stmt.ExecContext(ctx,
		row.Title,
		row.Creator,
		row.Engine,
		row.Description,
		row.TotalPlaytime,
		unixOrZero(row.LastPlayed),
		row.LastPlayedVersion,
	)
	if err != nil {
		return 0, database.ClassifyError("insert game", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get game insert id: %w", err)
	}
	row.DBID = id
	return id, nil
}

func sqlUpdateGame(ctx context.Context, db *sql.DB, row *database.Game) error {
	stmt, err := db.PrepareContext(ctx, `
		update Games set
			Title = ?, Creator = ?, Engine = ?, Description = ?,
			TotalPlaytime = ?, LastPlayed = ?, LastPlayedVersion = ?
		where DBID = ?;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare game update statement: %w", err)
	}
	defer closeStmt(stmt)

	res, err := stmt.ExecContext(ctx,
		row.Title,
		row.Creator,
		row.Engine,
		row.Description,
		row.TotalPlaytime,
		unixOrZero(row.LastPlayed),
		row.LastPlayedVersion,
		row.DBID,
	)
	if err != nil {
		return database.ClassifyError("update game", err)
	}
	return expectAffected(res, fmt.Sprintf("game %d", row.DBID))
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, database.ErrNotFound)
	}
	return nil
}

func sqlRemoveGame(ctx context.Context, db *sql.DB, gameDBID int64) error {
	res, err := db.ExecContext(ctx, `delete from Games where DBID = ?;`, gameDBID)
	if err != nil {
		return database.ClassifyError("remove game", err)
	}
	return expectAffected(res, fmt.Sprintf("game %d", gameDBID))
}

func sqlRemoveGameCascade(ctx context.Context, db *sql.DB, gameDBID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	for _, q := range []string{
		`delete from Images where GameDBID = ?;`,
		`delete from Mappings where GameDBID = ?;`,
		`delete from Versions where GameDBID = ?;`,
	} {
		if _, err := tx.ExecContext(ctx, q, gameDBID); err != nil {
			return database.ClassifyError("remove game children", err)
		}
	}

	res, err := tx.ExecContext(ctx, `delete from Games where DBID = ?;`, gameDBID)
	if err != nil {
		return database.ClassifyError("remove game", err)
	}
	if err := expectAffected(res, fmt.Sprintf("game %d", gameDBID)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit game removal: %w", err)
	}
	return nil
}

// sqlUpsertVersion replaces paths, size and date added on an existing
// (game, version) row. Playtime and last played keep their values.
func sqlUpsertVersion(ctx context.Context, db *sql.DB, row *database.Version, now time.Time) error {
	stmt, err := db.PrepareContext(ctx, `
		insert into Versions(
			GameDBID, Version, InstallPath, ExecPath, SourcePath,
			InPlace, FolderSize, DateAdded
		) values (?, ?, ?, ?, ?, ?, ?, ?)
		on conflict(GameDBID, Version) do update set
			InstallPath = excluded.InstallPath,
			SourcePath = excluded.SourcePath,
			ExecPath = excluded.ExecPath,
			InPlace = excluded.InPlace,
			FolderSize = excluded.FolderSize,
			DateAdded = excluded.DateAdded;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare version upsert statement: %w", err)
	}
	defer closeStmt(stmt)

	_, err = stmt.ExecContext(ctx,
		row.GameDBID,
		row.Version,
		row.InstallPath,
		row.ExecPath,
		sourcePath(row),
		row.InPlace,
		row.FolderSize,
		now.Unix(),
	)
	if err != nil {
		return database.ClassifyError("upsert version", err)
	}
	row.DateAdded = time.Unix(now.Unix(), 0)
	return nil
}

// sourcePath falls back to the install folder for rows written without a
// scan source, such as manual edits.
func sourcePath(row *database.Version) string {
	if row.SourcePath != "" {
		return row.SourcePath
	}
	return row.InstallPath
}

func sqlUpdateVersion(ctx context.Context, db *sql.DB, row *database.Version) error {
	stmt, err := db.PrepareContext(ctx, `
		update Versions set
			InstallPath = ?, ExecPath = ?, InPlace = ?,
			LastPlayed = ?, Playtime = ?, FolderSize = ?
		where GameDBID = ? and Version = ?;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare version update statement: %w", err)
	}
	defer closeStmt(stmt)

	res, err := stmt.ExecContext(ctx,
		row.InstallPath,
		row.ExecPath,
		row.InPlace,
		unixOrZero(row.LastPlayed),
		row.Playtime,
		row.FolderSize,
		row.GameDBID,
		row.Version,
	)
	if err != nil {
		return database.ClassifyError("update version", err)
	}
	return expectAffected(res, fmt.Sprintf("version %d/%s", row.GameDBID, row.Version))
}

func sqlSetFolderSize(ctx context.Context, db *sql.DB, gameDBID int64, version string, size int64) error {
	res, err := db.ExecContext(ctx, `
		update Versions set FolderSize = ? where GameDBID = ? and Version = ?;
	`, size, gameDBID, version)
	if err != nil {
		return database.ClassifyError("set folder size", err)
	}
	return expectAffected(res, fmt.Sprintf("version %d/%s", gameDBID, version))
}

func sqlVersionExists(
	ctx context.Context,
	db *sql.DB,
	title, creator, version, path string,
) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, `
		select 1
		from Versions v
		join Games g on g.DBID = v.GameDBID
		where g.Title = ? and g.Creator = ? and v.Version = ?
			and (v.SourcePath = ? or v.InstallPath = ? or v.ExecPath = ?)
		limit 1;
	`, title, creator, version, path, path, path).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, database.ClassifyError("version exists", err)
	}
	return true, nil
}

func rowExists(ctx context.Context, db *sql.DB, query string, arg any) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx, query, arg).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check row: %w", err)
	}
	return true, nil
}

// sqlAddMapping checks both keys before inserting. Inserting an existing
// pair is a no-op.
func sqlAddMapping(ctx context.Context, db *sql.DB, gameDBID, refID int64) error {
	ok, err := rowExists(ctx, db, `select 1 from Games where DBID = ?;`, gameDBID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("game %d: %w", gameDBID, database.ErrNotFound)
	}

	ok, err = rowExists(ctx, db, `select 1 from ReferenceEntries where RefID = ?;`, refID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reference entry %d: %w", refID, database.ErrNotFound)
	}

	_, err = db.ExecContext(ctx, `
		insert or ignore into Mappings(GameDBID, RefID) values (?, ?);
	`, gameDBID, refID)
	if err != nil {
		return database.ClassifyError("add mapping", err)
	}
	return nil
}

func sqlAddImage(ctx context.Context, db *sql.DB, row database.Image) error {
	_, err := db.ExecContext(ctx, `
		insert into Images(GameDBID, Kind, Path, Position) values (?, ?, ?, ?)
		on conflict(GameDBID, Kind, Position) do update set Path = excluded.Path;
	`, row.GameDBID, row.Kind, row.Path, row.Position)
	if err != nil {
		return database.ClassifyError("add image", err)
	}
	return nil
}
