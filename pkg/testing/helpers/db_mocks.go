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

// Package helpers provides testing utilities for the catalog, filesystem and
// API layers.
//
// MockCatalogDBI is a testify mock of database.CatalogDBI:
//
//	db := helpers.NewMockCatalogDBI()
//	db.On("UpsertGame", mock.Anything, "Foo", "Bar", "").Return(int64(1), nil)
//	err := MyFunction(db)
//	require.NoError(t, err)
//	db.AssertExpectations(t)
package helpers

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/towerwatchman/atlas/pkg/database"
)

type MockCatalogDBI struct {
	mock.Mock
}

var _ database.CatalogDBI = (*MockCatalogDBI)(nil)

func NewMockCatalogDBI() *MockCatalogDBI {
	return &MockCatalogDBI{}
}

func (m *MockCatalogDBI) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCatalogDBI) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCatalogDBI) Allocate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCatalogDBI) MigrateUp() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCatalogDBI) Vacuum() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCatalogDBI) GetDBPath() string {
	args := m.Called()
	return args.String(0)
}

func referenceEntries(args mock.Arguments) []database.ReferenceEntry {
	if v, ok := args.Get(0).([]database.ReferenceEntry); ok {
		return v
	}
	return nil
}

func (m *MockCatalogDBI) SearchReferenceByTitleCreator(
	ctx context.Context,
	title, creator string,
) ([]database.ReferenceEntry, error) {
	args := m.Called(ctx, title, creator)
	return referenceEntries(args), args.Error(1)
}

func (m *MockCatalogDBI) SearchReferenceByShortName(
	ctx context.Context,
	shortName string,
) ([]database.ReferenceEntry, error) {
	args := m.Called(ctx, shortName)
	return referenceEntries(args), args.Error(1)
}

func (m *MockCatalogDBI) SearchReferenceByFullName(
	ctx context.Context,
	fullName string,
) ([]database.ReferenceEntry, error) {
	args := m.Called(ctx, fullName)
	return referenceEntries(args), args.Error(1)
}

func (m *MockCatalogDBI) SearchReferenceByTitle(ctx context.Context, title string) ([]database.ReferenceEntry, error) {
	args := m.Called(ctx, title)
	return referenceEntries(args), args.Error(1)
}

func (m *MockCatalogDBI) GetReferenceThread(ctx context.Context, refID int64) (database.ReferenceThread, error) {
	args := m.Called(ctx, refID)
	thread, _ := args.Get(0).(database.ReferenceThread)
	return thread, args.Error(1)
}

func (m *MockCatalogDBI) UpsertGame(ctx context.Context, title, creator, engine string) (int64, error) {
	args := m.Called(ctx, title, creator, engine)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogDBI) InsertGame(ctx context.Context, row *database.Game) (int64, error) {
	args := m.Called(ctx, row)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogDBI) UpdateGame(ctx context.Context, row *database.Game) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockCatalogDBI) RemoveGame(ctx context.Context, gameDBID int64) error {
	args := m.Called(ctx, gameDBID)
	return args.Error(0)
}

func (m *MockCatalogDBI) RemoveGameCascade(ctx context.Context, gameDBID int64) error {
	args := m.Called(ctx, gameDBID)
	return args.Error(0)
}

func (m *MockCatalogDBI) GetGame(ctx context.Context, gameDBID int64) (*database.Game, error) {
	args := m.Called(ctx, gameDBID)
	game, _ := args.Get(0).(*database.Game)
	return game, args.Error(1)
}

func (m *MockCatalogDBI) ListGames(ctx context.Context, offset, limit int) ([]database.Game, error) {
	args := m.Called(ctx, offset, limit)
	games, _ := args.Get(0).([]database.Game)
	return games, args.Error(1)
}

func (m *MockCatalogDBI) UpsertVersion(ctx context.Context, row *database.Version) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockCatalogDBI) UpdateVersion(ctx context.Context, row *database.Version) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockCatalogDBI) SetFolderSize(ctx context.Context, gameDBID int64, version string, size int64) error {
	args := m.Called(ctx, gameDBID, version, size)
	return args.Error(0)
}

func (m *MockCatalogDBI) VersionExists(
	ctx context.Context,
	title, creator, version, path string,
) (bool, error) {
	args := m.Called(ctx, title, creator, version, path)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogDBI) AddMapping(ctx context.Context, gameDBID, refID int64) error {
	args := m.Called(ctx, gameDBID, refID)
	return args.Error(0)
}

func (m *MockCatalogDBI) AddImage(ctx context.Context, row database.Image) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockCatalogDBI) SyncReferenceCatalog(ctx context.Context, batch *database.ReferenceBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockCatalogDBI) LastAppliedUpdate(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
