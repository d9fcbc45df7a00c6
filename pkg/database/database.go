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

package database

import (
	"context"
	"time"
)

// Game is a canonical catalog entry. The read path fills Versions, Reference,
// Tags, BannerURL and UpdateAvailable from joined tables.
type Game struct {
	LastPlayed        time.Time
	Reference         *ReferenceEntry
	Title             string
	Creator           string
	Engine            string
	Description       string
	LastPlayedVersion string
	BannerURL         string
	Versions          []Version
	Tags              []string
	DBID              int64
	TotalPlaytime     int64
	UpdateAvailable   bool
}

// Version is one concrete installation of a Game. SourcePath is the scanned
// location it was imported from, used to skip it on later scans.
type Version struct {
	LastPlayed  time.Time
	DateAdded   time.Time
	Version     string
	InstallPath string
	ExecPath    string
	SourcePath  string
	GameDBID    int64
	Playtime    int64
	FolderSize  int64
	InPlace     bool
}

// ReferenceEntry is a row of the externally synced reference catalog.
// ShortName and FullName are derived on sync and used for fuzzy lookup.
type ReferenceEntry struct {
	Title       string `json:"title" csv:"title"`
	Creator     string `json:"creator" csv:"creator"`
	Engine      string `json:"engine" csv:"engine"`
	Version     string `json:"version" csv:"version"`
	Overview    string `json:"overview" csv:"overview"`
	Status      string `json:"status" csv:"status"`
	Category    string `json:"category" csv:"category"`
	Language    string `json:"language" csv:"language"`
	ReleaseDate string `json:"releaseDate" csv:"release_date"`
	Tags        string `json:"tags" csv:"tags"`
	ShortName   string `json:"-" csv:"-"`
	FullName    string `json:"-" csv:"-"`
	RefID       int64  `json:"id" csv:"id"`
	Censored    bool   `json:"censored" csv:"censored"`
}

// ReferenceThread carries the secondary identifier of a reference entry and
// the remote imagery published with it.
type ReferenceThread struct {
	ThreadID    string   `json:"threadId" csv:"thread_id"`
	BannerURL   string   `json:"banner" csv:"banner"`
	PreviewURLs []string `json:"screens" csv:"-"`
	VideoURLs   []string `json:"videos" csv:"-"`
	RefID       int64    `json:"id" csv:"id"`
}

// ReferenceCandidate is a reference entry returned by the matcher, enriched
// with its secondary identifier when one is known.
type ReferenceCandidate struct {
	ThreadID string `json:"threadId"`
	ReferenceEntry
}

// HasThread reports whether the candidate has a secondary identifier.
func (c ReferenceCandidate) HasThread() bool {
	return c.ThreadID != ""
}

type Mapping struct {
	GameDBID int64
	RefID    int64
}

const (
	ImageKindBanner  = "banner"
	ImageKindPreview = "preview"
	ImageKindVideo   = "video"
)

type Image struct {
	Kind     string
	Path     string
	GameDBID int64
	Position int
}

// UpdateStamp records one applied reference catalog batch.
type UpdateStamp struct {
	AppliedAt time.Time
	Stamp     int64
	Entries   int
}

// ReferenceBatch is one versioned unit of the reference feed.
type ReferenceBatch struct {
	Entries []ReferenceEntry  `json:"entries"`
	Threads []ReferenceThread `json:"threads"`
	Stamp   int64             `json:"stamp"`
}

type GenericDBI interface {
	Open() error
	Close() error
	Allocate() error
	MigrateUp() error
	Vacuum() error
	GetDBPath() string
}

// ReferenceSearcher is the read surface over the reference catalog used by
// the matcher. Each method is one query.
type ReferenceSearcher interface {
	SearchReferenceByTitleCreator(ctx context.Context, title, creator string) ([]ReferenceEntry, error)
	SearchReferenceByShortName(ctx context.Context, shortName string) ([]ReferenceEntry, error)
	SearchReferenceByFullName(ctx context.Context, fullName string) ([]ReferenceEntry, error)
	SearchReferenceByTitle(ctx context.Context, title string) ([]ReferenceEntry, error)
	GetReferenceThread(ctx context.Context, refID int64) (ReferenceThread, error)
}

type CatalogDBI interface {
	GenericDBI
	ReferenceSearcher

	UpsertGame(ctx context.Context, title, creator, engine string) (int64, error)
	InsertGame(ctx context.Context, row *Game) (int64, error)
	UpdateGame(ctx context.Context, row *Game) error
	RemoveGame(ctx context.Context, gameDBID int64) error
	RemoveGameCascade(ctx context.Context, gameDBID int64) error
	GetGame(ctx context.Context, gameDBID int64) (*Game, error)
	ListGames(ctx context.Context, offset, limit int) ([]Game, error)

	UpsertVersion(ctx context.Context, row *Version) error
	UpdateVersion(ctx context.Context, row *Version) error
	SetFolderSize(ctx context.Context, gameDBID int64, version string, size int64) error
	VersionExists(ctx context.Context, title, creator, version, path string) (bool, error)

	AddMapping(ctx context.Context, gameDBID, refID int64) error
	AddImage(ctx context.Context, row Image) error

	SyncReferenceCatalog(ctx context.Context, batch *ReferenceBatch) error
	LastAppliedUpdate(ctx context.Context) (int64, error)
}
