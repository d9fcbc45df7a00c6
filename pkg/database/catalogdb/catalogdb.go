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
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/towerwatchman/atlas/pkg/config"
	"github.com/towerwatchman/atlas/pkg/database"
)

const sqliteConnParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"

// CatalogDB is the catalog store handle. It is opened once at startup and
// shared by the scanner, importer and API.
type CatalogDB struct {
	sql     *sql.DB
	clock   clockwork.Clock
	dataDir string
	dbPath  string
}

var _ database.CatalogDBI = (*CatalogDB)(nil)

func OpenCatalogDB(ctx context.Context, dataDir string) (*CatalogDB, error) {
	db := &CatalogDB{dataDir: dataDir, clock: clockwork.NewRealClock()}
	if err := db.Open(); err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("%w (close: %w)", err, closeErr)
		}
		return nil, err
	}
	if err := db.sql.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}
	return db, nil
}

func (db *CatalogDB) Open() error {
	dbPath := db.GetDBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for database: %w", err)
	}
	sqlInstance, err := sql.Open("sqlite3", dbPath+sqliteConnParams)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.sql = sqlInstance
	return nil
}

func (db *CatalogDB) GetDBPath() string {
	if db.dbPath != "" {
		return db.dbPath
	}
	return filepath.Join(db.dataDir, config.CatalogDBFile)
}

func (db *CatalogDB) Allocate() error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlAllocate(db.sql)
}

func (db *CatalogDB) MigrateUp() error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

func (db *CatalogDB) Vacuum() error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlVacuum(context.Background(), db.sql)
}

func (db *CatalogDB) Close() error {
	if db.sql == nil {
		return nil
	}
	err := db.sql.Close()
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SetSQLForTesting injects a sql.DB and clock and allocates the schema.
func (db *CatalogDB) SetSQLForTesting(sqlDB *sql.DB, clock clockwork.Clock, dbPath string) error {
	db.sql = sqlDB
	db.clock = clock
	db.dbPath = dbPath
	return db.Allocate()
}

func (db *CatalogDB) UpsertGame(ctx context.Context, title, creator, engine string) (int64, error) {
	if db.sql == nil {
		return 0, database.ErrNullSQL
	}
	return sqlUpsertGame(ctx, db.sql, title, creator, engine)
}

func (db *CatalogDB) InsertGame(ctx context.Context, row *database.Game) (int64, error) {
	if db.sql == nil {
		return 0, database.ErrNullSQL
	}
	return sqlInsertGame(ctx, db.sql, row)
}

func (db *CatalogDB) UpdateGame(ctx context.Context, row *database.Game) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlUpdateGame(ctx, db.sql, row)
}

// RemoveGame deletes only the game row. Versions, mappings and images stay
// behind; use RemoveGameCascade for a full cleanup.
func (db *CatalogDB) RemoveGame(ctx context.Context, gameDBID int64) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlRemoveGame(ctx, db.sql, gameDBID)
}

func (db *CatalogDB) RemoveGameCascade(ctx context.Context, gameDBID int64) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlRemoveGameCascade(ctx, db.sql, gameDBID)
}

func (db *CatalogDB) GetGame(ctx context.Context, gameDBID int64) (*database.Game, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	return sqlGetGame(ctx, db.sql, gameDBID)
}

func (db *CatalogDB) ListGames(ctx context.Context, offset, limit int) ([]database.Game, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	return sqlListGames(ctx, db.sql, offset, limit)
}

func (db *CatalogDB) UpsertVersion(ctx context.Context, row *database.Version) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlUpsertVersion(ctx, db.sql, row, db.clock.Now())
}

func (db *CatalogDB) UpdateVersion(ctx context.Context, row *database.Version) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlUpdateVersion(ctx, db.sql, row)
}

func (db *CatalogDB) SetFolderSize(ctx context.Context, gameDBID int64, version string, size int64) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlSetFolderSize(ctx, db.sql, gameDBID, version, size)
}

func (db *CatalogDB) VersionExists(
	ctx context.Context,
	title, creator, version, path string,
) (bool, error) {
	if db.sql == nil {
		return false, database.ErrNullSQL
	}
	return sqlVersionExists(ctx, db.sql, title, creator, version, path)
}

func (db *CatalogDB) AddMapping(ctx context.Context, gameDBID, refID int64) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlAddMapping(ctx, db.sql, gameDBID, refID)
}

func (db *CatalogDB) AddImage(ctx context.Context, row database.Image) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlAddImage(ctx, db.sql, row)
}

func (db *CatalogDB) SearchReferenceByTitleCreator(
	ctx context.Context,
	title, creator string,
) ([]database.ReferenceEntry, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	return sqlSearchReferenceByTitleCreator(ctx, db.sql, title, creator)
}

func (db *CatalogDB) SearchReferenceByShortName(
	ctx context.Context,
	shortName string,
) ([]database.ReferenceEntry, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	return sqlSearchReferenceByName(ctx, db.sql, "ShortName", shortName)
}

func (db *CatalogDB) SearchReferenceByFullName(
	ctx context.Context,
	fullName string,
) ([]database.ReferenceEntry, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	return sqlSearchReferenceByName(ctx, db.sql, "FullName", fullName)
}

func (db *CatalogDB) SearchReferenceByTitle(ctx context.Context, title string) ([]database.ReferenceEntry, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	return sqlSearchReferenceByTitle(ctx, db.sql, title)
}

func (db *CatalogDB) GetReferenceThread(ctx context.Context, refID int64) (database.ReferenceThread, error) {
	if db.sql == nil {
		return database.ReferenceThread{}, database.ErrNullSQL
	}
	return sqlGetReferenceThread(ctx, db.sql, refID)
}

func (db *CatalogDB) SyncReferenceCatalog(ctx context.Context, batch *database.ReferenceBatch) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlSyncReferenceCatalog(ctx, db.sql, batch, db.clock.Now())
}

func (db *CatalogDB) LastAppliedUpdate(ctx context.Context) (int64, error) {
	if db.sql == nil {
		return 0, database.ErrNullSQL
	}
	return sqlLastAppliedUpdate(ctx, db.sql)
}
