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
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/towerwatchman/atlas/pkg/database"
	testsqlmock "github.com/towerwatchman/atlas/pkg/testing/sqlmock"
)

func TestSqlUpsertGame_InsertOrIgnoreThenLookup(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`insert or ignore into Games`).
		WithArgs("Foo", "Bar", "Unity").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`select DBID from Games where Title = \? and Creator = \?`).
		WithArgs("Foo", "Bar").
		WillReturnRows(sqlmock.NewRows([]string{"DBID"}).AddRow(7))

	id, err := sqlUpsertGame(context.Background(), db, "Foo", "Bar", "Unity")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlInsertGame_UniqueViolationIsConflict(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectPrepare(`insert into Games`).
		ExpectExec().
		WillReturnError(sqlite3.Error{
			Code:         sqlite3.ErrConstraint,
			ExtendedCode: sqlite3.ErrConstraintUnique,
		})

	_, err = sqlInsertGame(context.Background(), db, &database.Game{Title: "Foo", Creator: "Bar"})
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrConflict)
	assert.False(t, database.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlUpsertVersion_SetsDateAdded(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	now := time.Unix(1700000000, 0)
	row := &database.Version{
		GameDBID:    3,
		Version:     "1.5",
		InstallPath: "/games/foo",
		ExecPath:    "/games/foo/game.exe",
		InPlace:     true,
		FolderSize:  42,
	}

	mock.ExpectPrepare(`insert into Versions.*on conflict\(GameDBID, Version\) do update`).
		ExpectExec().
		WithArgs(int64(3), "1.5", "/games/foo", "/games/foo/game.exe", "/games/foo",
			true, int64(42), now.Unix()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = sqlUpsertVersion(context.Background(), db, row, now)
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), row.DateAdded.Unix())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlAddMapping_MissingGame(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`select 1 from Games where DBID = \?`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	err = sqlAddMapping(context.Background(), db, 9, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlAddMapping_MissingReference(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`select 1 from Games where DBID = \?`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(`select 1 from ReferenceEntries where RefID = \?`).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	err = sqlAddMapping(context.Background(), db, 1, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlSyncReferenceCatalog_RollsBackOnFailure(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	batch := &database.ReferenceBatch{
		Stamp: 10,
		Entries: []database.ReferenceEntry{
			{RefID: 1, Title: "Foo", Creator: "Bar"},
			{RefID: 2, Title: "Baz", Creator: "Qux"},
		},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`insert into ReferenceEntries`)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`delete from ReferenceTags`).WillReturnResult(sqlmock.NewResult(0, 0))
	prep.ExpectExec().WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = sqlSyncReferenceCatalog(context.Background(), db, batch, time.Now())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSqlLastAppliedUpdate(t *testing.T) {
	t.Parallel()
	db, mock, err := testsqlmock.NewSQLMock()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`select coalesce\(max\(Stamp\), 0\) from AppliedUpdates`).
		WillReturnRows(sqlmock.NewRows([]string{"stamp"}).AddRow(int64(1234)))

	stamp, err := sqlLastAppliedUpdate(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), stamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNullSQL(t *testing.T) {
	t.Parallel()
	db := &CatalogDB{}
	_, err := db.UpsertGame(context.Background(), "a", "b", "")
	assert.ErrorIs(t, err, database.ErrNullSQL)
	assert.NoError(t, db.Close())
}
