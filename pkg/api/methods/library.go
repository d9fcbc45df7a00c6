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

package methods

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/api/models"
	"github.com/towerwatchman/atlas/pkg/api/models/requests"
	"github.com/towerwatchman/atlas/pkg/api/notifications"
	"github.com/towerwatchman/atlas/pkg/api/validation"
	"github.com/towerwatchman/atlas/pkg/config"
	"github.com/towerwatchman/atlas/pkg/database/libraryscanner"
	"github.com/towerwatchman/atlas/pkg/importer"
)

var (
	ErrRootNotAllowed = errors.New("scan root is not allowed")
	ErrScanNotRunning = errors.New("no scan in progress")
)

func scanOptions(cfg *config.Instance, params *models.ScanParams) libraryscanner.Options {
	opts := libraryscanner.Options{
		Root:           params.Root,
		Pattern:        cfg.ScanPattern(),
		ExecutableExts: cfg.ExecutableExts(),
		ArchiveExts:    cfg.ArchiveExts(),
		ArchiveSource:  params.Archives,
		MaxDepth:       cfg.ScanMaxDepth(),
	}
	if params.Pattern != nil {
		opts.Pattern = *params.Pattern
	}
	if params.MaxDepth != nil {
		opts.MaxDepth = *params.MaxDepth
	}
	if len(params.ExecutableExts) > 0 {
		opts.ExecutableExts = params.ExecutableExts
	}
	if len(params.ArchiveExts) > 0 {
		opts.ArchiveExts = params.ArchiveExts
	}
	return opts
}

// HandleLibraryScan starts a background scan and returns its session ID.
// Candidates, progress and the final result arrive as notifications.
//
//nolint:gocritic // single-use parameter in API handler
func HandleLibraryScan(env requests.RequestEnv) (any, error) {
	var params models.ScanParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if !env.Config.IsRootAllowed(params.Root) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotAllowed, params.Root)
	}

	sessionID, ctx, ok := env.State.BeginScan()
	if !ok {
		return nil, fmt.Errorf("%w: session %s", libraryscanner.ErrScanInProgress, sessionID)
	}

	log.Info().Str("root", params.Root).Str("session", sessionID).Msg("starting library scan")

	opts := scanOptions(env.Config, &params)
	ns := env.State.Notifications
	sink := libraryscanner.SinkFuncs{
		OnCandidate: func(c libraryscanner.Candidate) {
			notifications.ScanCandidate(ns, models.ScanCandidateParams{SessionID: sessionID, Candidate: c})
		},
		OnProgress: func(p libraryscanner.Progress) {
			notifications.ScanProgress(ns, models.ScanProgressParams{SessionID: sessionID, Progress: p})
		},
	}

	go func() {
		defer env.State.EndScan(sessionID)

		result, err := env.Scanner.Scan(ctx, opts, sink)
		done := models.ScanDoneParams{
			SessionID:  sessionID,
			State:      result.State.String(),
			Candidates: result.Candidates,
			Processed:  result.Processed,
			Total:      result.Total,
		}
		if done.Candidates == nil {
			done.Candidates = []libraryscanner.Candidate{}
		}
		if err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("library scan ended with error")
			done.Error = err.Error()
		}
		log.Info().
			Str("session", sessionID).
			Int("found", len(result.Candidates)).
			Stringer("state", result.State).
			Msg("library scan finished")
		notifications.ScanDone(ns, done)
	}()

	return models.SessionResponse{SessionID: sessionID}, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleLibraryScanCancel(env requests.RequestEnv) (any, error) {
	id, ok := env.State.CancelScan()
	if !ok {
		return models.ScanCancelResponse{Cancelled: false}, nil
	}
	log.Info().Str("session", id).Msg("library scan cancel requested")
	return models.ScanCancelResponse{SessionID: id, Cancelled: true}, nil
}

func importOptions(cfg *config.Instance) importer.Options {
	d := cfg.ImportDefaults()
	return importer.Options{
		ExecutableExts:    cfg.ExecutableExts(),
		PreviewLimit:      d.PreviewLimit,
		DeleteArchive:     d.DeleteArchive,
		ComputeFolderSize: d.ComputeFolderSize,
		FetchBanner:       d.FetchBanner,
		FetchPreviews:     d.FetchPreviews,
		FetchVideos:       d.FetchVideos,
	}
}

// HandleLibraryImport persists the given candidates in the background.
// Options not supplied come from the config file.
//
//nolint:gocritic // single-use parameter in API handler
func HandleLibraryImport(env requests.RequestEnv) (any, error) {
	var params models.ImportParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	opts := importOptions(env.Config)
	if params.Options != nil {
		opts = *params.Options
		if len(opts.ExecutableExts) == 0 {
			opts.ExecutableExts = env.Config.ExecutableExts()
		}
	}

	sessionID := newSessionID()
	ns := env.State.Notifications
	ctx := env.State.GetContext()
	items := params.Items

	log.Info().Int("items", len(items)).Str("session", sessionID).Msg("starting library import")

	go func() {
		sink := importer.SinkFuncs{
			OnProgress: func(p importer.Progress) {
				notifications.ImportProgress(ns, models.ImportProgressParams{SessionID: sessionID, Progress: p})
			},
		}
		report, err := env.Importer.Import(ctx, items, opts, sink)
		if err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("library import finished with errors")
		}
		notifications.ImportDone(ns, models.NewImportDone(sessionID, &report, err))
	}()

	return models.SessionResponse{SessionID: sessionID}, nil
}
