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
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/api/models"
	"github.com/towerwatchman/atlas/pkg/api/models/requests"
	"github.com/towerwatchman/atlas/pkg/api/notifications"
	"github.com/towerwatchman/atlas/pkg/api/validation"
	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/refsync"
)

func newSessionID() string {
	return uuid.New().String()
}

//nolint:gocritic // single-use parameter in API handler
func HandleReferenceSearch(env requests.RequestEnv) (any, error) {
	var params models.SearchParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	results, err := env.Matcher.Search(env.Context, params.Title, params.Creator)
	if err != nil {
		log.Error().Err(err).Str("title", params.Title).Msg("reference search failed")
		return nil, fmt.Errorf("reference search failed: %w", err)
	}
	if results == nil {
		results = []database.ReferenceCandidate{}
	}
	return models.SearchResponse{Results: results}, nil
}

// HandleReferenceSync applies the reference feed in the background. The
// params may name a CSV file to use instead of the configured feed.
//
//nolint:gocritic // single-use parameter in API handler
func HandleReferenceSync(env requests.RequestEnv) (any, error) {
	var params models.SyncParams
	if len(env.Params) > 0 {
		if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}

	src := refsync.Source{
		Fs:     env.Fs,
		Client: env.HTTP,
		URL:    env.Config.ReferenceFeedURL(),
		File:   env.Config.ReferenceFeedFile(),
	}
	if params.File != nil {
		src.File = *params.File
	}
	feed, err := src.Feed()
	if err != nil {
		return nil, fmt.Errorf("reference sync: %w", err)
	}

	sessionID := newSessionID()
	ns := env.State.Notifications
	ctx := env.State.GetContext()

	go func() {
		result, err := env.Syncer.Sync(ctx, feed)
		done := models.SyncDoneParams{SessionID: sessionID, Result: result}
		if err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("reference sync failed")
			done.Error = err.Error()
		}
		notifications.SyncDone(ns, done)
	}()

	return models.SessionResponse{SessionID: sessionID}, nil
}
