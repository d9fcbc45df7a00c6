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

package models

import (
	"time"

	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/database/libraryscanner"
	"github.com/towerwatchman/atlas/pkg/importer"
	"github.com/towerwatchman/atlas/pkg/refsync"
)

type VersionResponse struct {
	Version string `json:"version"`
}

// SessionResponse answers a long-running method. Results for the session
// arrive later as notifications carrying the same ID.
type SessionResponse struct {
	SessionID string `json:"sessionId"`
}

type ScanCancelResponse struct {
	SessionID string `json:"sessionId,omitempty"`
	Cancelled bool   `json:"cancelled"`
}

type GameVersion struct {
	DateAdded   time.Time  `json:"dateAdded"`
	LastPlayed  *time.Time `json:"lastPlayed,omitempty"`
	Version     string     `json:"version"`
	InstallPath string     `json:"installPath"`
	ExecPath    string     `json:"execPath"`
	Playtime    int64      `json:"playtime"`
	FolderSize  int64      `json:"folderSize"`
	InPlace     bool       `json:"inPlace"`
}

type Game struct {
	LastPlayed        *time.Time               `json:"lastPlayed,omitempty"`
	Reference         *database.ReferenceEntry `json:"reference,omitempty"`
	Title             string                   `json:"title"`
	Creator           string                   `json:"creator"`
	Engine            string                   `json:"engine"`
	Description       string                   `json:"description,omitempty"`
	LastPlayedVersion string                   `json:"lastPlayedVersion,omitempty"`
	BannerURL         string                   `json:"bannerUrl,omitempty"`
	Versions          []GameVersion            `json:"versions"`
	Tags              []string                 `json:"tags"`
	ID                int64                    `json:"id"`
	TotalPlaytime     int64                    `json:"totalPlaytime"`
	UpdateAvailable   bool                     `json:"updateAvailable"`
}

type GamesResponse struct {
	Games []Game `json:"games"`
}

type SearchResponse struct {
	Results []database.ReferenceCandidate `json:"results"`
}

type ScanDoneParams struct {
	Error      string                     `json:"error,omitempty"`
	SessionID  string                     `json:"sessionId"`
	State      string                     `json:"state"`
	Candidates []libraryscanner.Candidate `json:"candidates"`
	Processed  int                        `json:"processed"`
	Total      int                        `json:"total"`
}

type ScanProgressParams struct {
	SessionID string `json:"sessionId"`
	libraryscanner.Progress
}

type ScanCandidateParams struct {
	SessionID string `json:"sessionId"`
	libraryscanner.Candidate
}

type ImportProgressParams struct {
	SessionID string `json:"sessionId"`
	importer.Progress
}

type ImportOutcome struct {
	Error       string `json:"error,omitempty"`
	AssetsError string `json:"assetsError,omitempty"`
	importer.Outcome
}

type ImportDoneParams struct {
	Error        string          `json:"error,omitempty"`
	SessionID    string          `json:"sessionId"`
	Outcomes     []ImportOutcome `json:"outcomes"`
	Succeeded    int             `json:"succeeded"`
	Failed       int             `json:"failed"`
	AssetsFailed int             `json:"assetsFailed"`
}

type SyncDoneParams struct {
	Error     string `json:"error,omitempty"`
	SessionID string `json:"sessionId"`
	refsync.Result
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// NewGame converts a catalog row to its wire form.
func NewGame(g *database.Game) Game {
	out := Game{
		ID:                g.DBID,
		Title:             g.Title,
		Creator:           g.Creator,
		Engine:            g.Engine,
		Description:       g.Description,
		LastPlayed:        timePtr(g.LastPlayed),
		LastPlayedVersion: g.LastPlayedVersion,
		BannerURL:         g.BannerURL,
		TotalPlaytime:     g.TotalPlaytime,
		UpdateAvailable:   g.UpdateAvailable,
		Reference:         g.Reference,
		Tags:              g.Tags,
		Versions:          make([]GameVersion, 0, len(g.Versions)),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	for i := range g.Versions {
		v := &g.Versions[i]
		out.Versions = append(out.Versions, GameVersion{
			Version:     v.Version,
			InstallPath: v.InstallPath,
			ExecPath:    v.ExecPath,
			DateAdded:   v.DateAdded,
			LastPlayed:  timePtr(v.LastPlayed),
			Playtime:    v.Playtime,
			FolderSize:  v.FolderSize,
			InPlace:     v.InPlace,
		})
	}
	return out
}

// NewImportDone flattens a report, turning outcome errors into strings.
func NewImportDone(sessionID string, r *importer.Report, err error) ImportDoneParams {
	out := ImportDoneParams{
		SessionID:    sessionID,
		Succeeded:    r.Succeeded,
		Failed:       r.Failed,
		AssetsFailed: r.AssetsFailed,
		Outcomes:     make([]ImportOutcome, 0, len(r.Outcomes)),
	}
	if err != nil {
		out.Error = err.Error()
	}
	for _, o := range r.Outcomes {
		io := ImportOutcome{Outcome: o}
		if o.Err != nil {
			io.Error = o.Err.Error()
		}
		if o.AssetsErr != nil {
			io.AssetsError = o.AssetsErr.Error()
		}
		out.Outcomes = append(out.Outcomes, io)
	}
	return out
}
