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
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/towerwatchman/atlas/pkg/database"
)

func setupTempCatalogDB(t *testing.T) (*CatalogDB, *clockwork.FakeClock) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog_test.db")
	sqlDB, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=ON&_busy_timeout=5000")
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	db := &CatalogDB{}
	require.NoError(t, db.SetSQLForTesting(sqlDB, clock, dbPath))
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return db, clock
}

func seedReference(t *testing.T, db *CatalogDB, stamp int64, entries []database.ReferenceEntry,
	threads []database.ReferenceThread,
) {
	t.Helper()
	err := db.SyncReferenceCatalog(context.Background(), &database.ReferenceBatch{
		Stamp:   stamp,
		Entries: entries,
		Threads: threads,
	})
	require.NoError(t, err)
}

func countRows(t *testing.T, db *CatalogDB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.sql.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}

func TestUpsertGame_Idempotent(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	first, err := db.UpsertGame(ctx, "Foo", "Bar", "X")
	require.NoError(t, err)
	second, err := db.UpsertGame(ctx, "Foo", "Bar", "X")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, countRows(t, db, `select count(*) from Games`))
}

func TestUpsertGame_EngineFirstWriteWins(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	first, err := db.UpsertGame(ctx, "Foo", "Bar", "X")
	require.NoError(t, err)
	second, err := db.UpsertGame(ctx, "Foo", "Bar", "Y")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	game, err := db.GetGame(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "X", game.Engine)
}

func TestUpsertGame_Concurrent(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	const workers = 8
	ids := make(chan int64, workers)
	errs := make(chan error, workers)
	for range workers {
		go func() {
			id, err := db.UpsertGame(ctx, "Race", "Condition", "")
			ids <- id
			errs <- err
		}()
	}

	var want int64
	for i := range workers {
		require.NoError(t, <-errs)
		id := <-ids
		if i == 0 {
			want = id
		}
		assert.Equal(t, want, id)
	}
	assert.Equal(t, 1, countRows(t, db, `select count(*) from Games`))
}

func TestInsertGame_DuplicateIsConflict(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	_, err := db.InsertGame(ctx, &database.Game{Title: "Foo", Creator: "Bar"})
	require.NoError(t, err)
	_, err = db.InsertGame(ctx, &database.Game{Title: "Foo", Creator: "Bar", Engine: "Z"})
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrConflict)
}

func TestUpsertVersion_ReplacesInstallPath(t *testing.T) {
	t.Parallel()
	db, clock := setupTempCatalogDB(t)
	ctx := context.Background()

	gameID, err := db.UpsertGame(ctx, "Foo", "Bar", "")
	require.NoError(t, err)

	require.NoError(t, db.UpsertVersion(ctx, &database.Version{
		GameDBID:    gameID,
		Version:     "1.0",
		InstallPath: "/old/path",
	}))
	require.NoError(t, db.UpdateVersion(ctx, &database.Version{
		GameDBID:    gameID,
		Version:     "1.0",
		InstallPath: "/old/path",
		Playtime:    3600,
	}))

	clock.Advance(time.Hour)
	require.NoError(t, db.UpsertVersion(ctx, &database.Version{
		GameDBID:    gameID,
		Version:     "1.0",
		InstallPath: "/new/path",
	}))

	assert.Equal(t, 1, countRows(t, db, `select count(*) from Versions`))

	game, err := db.GetGame(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, game.Versions, 1)
	assert.Equal(t, "/new/path", game.Versions[0].InstallPath)
	assert.Equal(t, int64(3600), game.Versions[0].Playtime)
	assert.Equal(t, clock.Now().Unix(), game.Versions[0].DateAdded.Unix())
}

func TestVersionExists(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	gameID, err := db.UpsertGame(ctx, "Foo", "Bar", "")
	require.NoError(t, err)
	require.NoError(t, db.UpsertVersion(ctx, &database.Version{
		GameDBID:    gameID,
		Version:     "2.0",
		InstallPath: "/games/foo",
	}))

	found, err := db.VersionExists(ctx, "Foo", "Bar", "2.0", "/games/foo")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = db.VersionExists(ctx, "Foo", "Bar", "2.0", "/elsewhere")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestVersionExistsMatchesSourceAndExecPath(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	gameID, err := db.UpsertGame(ctx, "Tiny", "", "")
	require.NoError(t, err)
	require.NoError(t, db.UpsertVersion(ctx, &database.Version{
		GameDBID:    gameID,
		Version:     "1.2",
		InstallPath: "/extract/tiny",
		ExecPath:    "/extract/tiny/tiny.exe",
		SourcePath:  "/archives/tiny-1.2.zip",
	}))

	for _, path := range []string{"/archives/tiny-1.2.zip", "/extract/tiny", "/extract/tiny/tiny.exe"} {
		found, err := db.VersionExists(ctx, "Tiny", "", "1.2", path)
		require.NoError(t, err)
		assert.True(t, found, path)
	}

	found, err := db.VersionExists(ctx, "Tiny", "", "1.3", "/archives/tiny-1.2.zip")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRemoveGame_LeavesChildren(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	gameID, err := db.UpsertGame(ctx, "Foo", "Bar", "")
	require.NoError(t, err)
	require.NoError(t, db.UpsertVersion(ctx, &database.Version{GameDBID: gameID, Version: "1", InstallPath: "/a"}))

	require.NoError(t, db.RemoveGame(ctx, gameID))
	assert.Equal(t, 0, countRows(t, db, `select count(*) from Games`))
	assert.Equal(t, 1, countRows(t, db, `select count(*) from Versions`))

	err = db.RemoveGame(ctx, gameID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRemoveGameCascade(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	seedReference(t, db, 1, []database.ReferenceEntry{{RefID: 50, Title: "Foo", Creator: "Bar"}}, nil)
	gameID, err := db.UpsertGame(ctx, "Foo", "Bar", "")
	require.NoError(t, err)
	require.NoError(t, db.UpsertVersion(ctx, &database.Version{GameDBID: gameID, Version: "1", InstallPath: "/a"}))
	require.NoError(t, db.AddMapping(ctx, gameID, 50))
	require.NoError(t, db.AddImage(ctx, database.Image{GameDBID: gameID, Kind: database.ImageKindBanner, Path: "/b.jpg"}))

	require.NoError(t, db.RemoveGameCascade(ctx, gameID))
	for _, table := range []string{"Games", "Versions", "Mappings", "Images"} {
		assert.Equal(t, 0, countRows(t, db, `select count(*) from `+table), table)
	}
}

func TestAddMapping(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	seedReference(t, db, 1, []database.ReferenceEntry{{RefID: 50, Title: "Foo", Creator: "Bar"}}, nil)
	gameID, err := db.UpsertGame(ctx, "Foo", "Bar", "")
	require.NoError(t, err)

	assert.ErrorIs(t, db.AddMapping(ctx, gameID, 999), database.ErrNotFound)
	assert.ErrorIs(t, db.AddMapping(ctx, 999, 50), database.ErrNotFound)

	require.NoError(t, db.AddMapping(ctx, gameID, 50))
	require.NoError(t, db.AddMapping(ctx, gameID, 50))
	assert.Equal(t, 1, countRows(t, db, `select count(*) from Mappings`))
}

func TestGetGame_UpdateAvailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		reference string
		want      bool
	}{
		{name: "newer reference", reference: "v1.3", want: true},
		{name: "older reference", reference: "v1.0", want: false},
		{name: "empty reference", reference: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, _ := setupTempCatalogDB(t)
			ctx := context.Background()

			seedReference(t, db, 1, []database.ReferenceEntry{
				{RefID: 5, Title: "Foo", Creator: "Bar", Version: tt.reference, Tags: "rpg, sandbox"},
			}, []database.ReferenceThread{
				{RefID: 5, ThreadID: "777", BannerURL: "https://example.com/banner.jpg"},
			})
			gameID, err := db.UpsertGame(ctx, "Foo", "Bar", "")
			require.NoError(t, err)
			require.NoError(t, db.UpsertVersion(ctx, &database.Version{
				GameDBID:    gameID,
				Version:     "1.2",
				InstallPath: "/games/foo",
			}))
			require.NoError(t, db.AddMapping(ctx, gameID, 5))

			game, err := db.GetGame(ctx, gameID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, game.UpdateAvailable)
			require.NotNil(t, game.Reference)
			assert.Equal(t, int64(5), game.Reference.RefID)
			assert.ElementsMatch(t, []string{"rpg", "sandbox"}, game.Tags)
			assert.Equal(t, "https://example.com/banner.jpg", game.BannerURL)
		})
	}
}

func TestGetGame_LocalBannerWins(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	seedReference(t, db, 1, []database.ReferenceEntry{{RefID: 5, Title: "Foo", Creator: "Bar"}},
		[]database.ReferenceThread{{RefID: 5, ThreadID: "1", BannerURL: "https://example.com/b.jpg"}})
	gameID, err := db.UpsertGame(ctx, "Foo", "Bar", "")
	require.NoError(t, err)
	require.NoError(t, db.AddMapping(ctx, gameID, 5))
	require.NoError(t, db.AddImage(ctx, database.Image{
		GameDBID: gameID,
		Kind:     database.ImageKindBanner,
		Path:     "/data/images/5/banner.jpg",
	}))

	game, err := db.GetGame(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, "/data/images/5/banner.jpg", game.BannerURL)
}

func TestGetGame_NotFound(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	_, err := db.GetGame(context.Background(), 42)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestListGames_Paging(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	for _, title := range []string{"Charlie", "Alpha", "Bravo"} {
		id, err := db.UpsertGame(ctx, title, "Studio", "")
		require.NoError(t, err)
		require.NoError(t, db.UpsertVersion(ctx, &database.Version{GameDBID: id, Version: "1", InstallPath: "/" + title}))
		require.NoError(t, db.UpsertVersion(ctx, &database.Version{GameDBID: id, Version: "2", InstallPath: "/" + title}))
	}

	page, err := db.ListGames(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Bravo", page[0].Title)
	assert.Equal(t, "Charlie", page[1].Title)
	assert.Len(t, page[0].Versions, 2)
}

func TestUpdateGame(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	id, err := db.UpsertGame(ctx, "Foo", "Bar", "")
	require.NoError(t, err)
	other, err := db.UpsertGame(ctx, "Other", "Bar", "")
	require.NoError(t, err)

	require.NoError(t, db.UpdateGame(ctx, &database.Game{
		DBID:        id,
		Title:       "Foo",
		Creator:     "Bar",
		Engine:      "Ren'Py",
		Description: "edited",
	}))
	game, err := db.GetGame(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ren'Py", game.Engine)
	assert.Equal(t, "edited", game.Description)

	err = db.UpdateGame(ctx, &database.Game{DBID: other, Title: "Foo", Creator: "Bar"})
	assert.ErrorIs(t, err, database.ErrConflict)

	err = db.UpdateGame(ctx, &database.Game{DBID: 999, Title: "X", Creator: "Y"})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSetFolderSize(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	id, err := db.UpsertGame(ctx, "Foo", "Bar", "")
	require.NoError(t, err)
	require.NoError(t, db.UpsertVersion(ctx, &database.Version{GameDBID: id, Version: "1", InstallPath: "/a"}))
	require.NoError(t, db.SetFolderSize(ctx, id, "1", 2048))

	game, err := db.GetGame(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), game.Versions[0].FolderSize)

	assert.ErrorIs(t, db.SetFolderSize(ctx, id, "9", 1), database.ErrNotFound)
}

func TestSyncReferenceCatalog_UpsertsAndRecordsStamp(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	seedReference(t, db, 100, []database.ReferenceEntry{
		{RefID: 1, Title: "Summer's Gone", Creator: "Night Cat", Version: "1.0"},
	}, nil)
	seedReference(t, db, 200, []database.ReferenceEntry{
		{RefID: 1, Title: "Summer's Gone", Creator: "Night Cat", Version: "2.0"},
	}, nil)

	assert.Equal(t, 1, countRows(t, db, `select count(*) from ReferenceEntries`))
	stamp, err := db.LastAppliedUpdate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), stamp)

	results, err := db.SearchReferenceByShortName(ctx, "SUMMERSGONE")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2.0", results[0].Version)
	assert.Equal(t, "SUMMERSGONENIGHTCAT", results[0].FullName)
}

func TestSyncReferenceCatalog_DuplicateStampRollsBack(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	seedReference(t, db, 100, []database.ReferenceEntry{{RefID: 1, Title: "A"}}, nil)
	err := db.SyncReferenceCatalog(ctx, &database.ReferenceBatch{
		Stamp:   100,
		Entries: []database.ReferenceEntry{{RefID: 2, Title: "B"}},
	})
	require.Error(t, err)
	assert.Equal(t, 1, countRows(t, db, `select count(*) from ReferenceEntries`))
}

func TestSearchReference_Tiers(t *testing.T) {
	t.Parallel()
	db, _ := setupTempCatalogDB(t)
	ctx := context.Background()

	seedReference(t, db, 1, []database.ReferenceEntry{
		{RefID: 1, Title: "Eternum", Creator: "Caribdis"},
		{RefID: 2, Title: "Eternum Remastered Edition", Creator: "Caribdis"},
		{RefID: 3, Title: "100% Orange", Creator: "Juice_Studio"},
	}, []database.ReferenceThread{{RefID: 2, ThreadID: "4242", PreviewURLs: []string{"a.jpg", "b.jpg"}}})

	byPair, err := db.SearchReferenceByTitleCreator(ctx, "eternum", "cari")
	require.NoError(t, err)
	assert.Len(t, byPair, 2)

	byShort, err := db.SearchReferenceByShortName(ctx, "ETERNUM")
	require.NoError(t, err)
	require.Len(t, byShort, 2)
	assert.Equal(t, int64(1), byShort[0].RefID, "closest length first")

	byFull, err := db.SearchReferenceByFullName(ctx, "ETERNUMCARIBDIS")
	require.NoError(t, err)
	require.Len(t, byFull, 1)
	assert.Equal(t, int64(1), byFull[0].RefID)

	literal, err := db.SearchReferenceByTitle(ctx, "100%")
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, int64(3), literal[0].RefID)

	none, err := db.SearchReferenceByTitle(ctx, "1000")
	require.NoError(t, err)
	assert.Empty(t, none)

	thread, err := db.GetReferenceThread(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "4242", thread.ThreadID)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, thread.PreviewURLs)

	missing, err := db.GetReferenceThread(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, missing.ThreadID)
}
