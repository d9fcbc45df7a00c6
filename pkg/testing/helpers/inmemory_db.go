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

package helpers

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/database/catalogdb"
)

// NewInMemoryCatalogDB opens a migrated catalog in a temp dir. The file
// survives connection close and reopen for the lifetime of the test.
func NewInMemoryCatalogDB(t *testing.T) (db *catalogdb.CatalogDB, cleanup func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog_test.db")
	sqlDB, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	db = &catalogdb.CatalogDB{}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	err = db.SetSQLForTesting(sqlDB, clock, dbPath)
	if err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			t.Errorf("Failed to close SQL database after setup error: %v", closeErr)
		}
		t.Fatalf("Failed to set up CatalogDB for testing: %v", err)
	}

	cleanup = func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close CatalogDB: %v", err)
		}
	}

	return db, cleanup
}

// SeedReference applies one reference batch or fails the test.
func SeedReference(t *testing.T, db database.CatalogDBI, batch *database.ReferenceBatch) {
	t.Helper()
	if err := db.SyncReferenceCatalog(t.Context(), batch); err != nil {
		t.Fatalf("Failed to seed reference catalog: %v", err)
	}
}
