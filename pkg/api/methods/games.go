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

	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/api/models"
	"github.com/towerwatchman/atlas/pkg/api/models/requests"
	"github.com/towerwatchman/atlas/pkg/api/validation"
	"github.com/towerwatchman/atlas/pkg/database"
)

const defaultGamesLimit = 100

//nolint:gocritic // single-use parameter in API handler
func HandleGames(env requests.RequestEnv) (any, error) {
	params := models.GamesParams{Limit: defaultGamesLimit}
	if len(env.Params) > 0 {
		if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}

	games, err := env.Catalog.ListGames(env.Context, params.Offset, params.Limit)
	if err != nil {
		log.Error().Err(err).Msg("error listing games")
		return nil, fmt.Errorf("error listing games: %w", err)
	}

	resp := models.GamesResponse{Games: make([]models.Game, 0, len(games))}
	for i := range games {
		resp.Games = append(resp.Games, models.NewGame(&games[i]))
	}
	return resp, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleGame(env requests.RequestEnv) (any, error) {
	var params models.GameIDParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	game, err := env.Catalog.GetGame(env.Context, params.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting game: %w", err)
	}
	return models.NewGame(game), nil
}

// HandleRemoveGame deletes a game. With cascade its versions, mappings and
// images go too.
//
//nolint:gocritic // single-use parameter in API handler
func HandleRemoveGame(env requests.RequestEnv) (any, error) {
	var params models.GameIDParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	var err error
	if params.Cascade {
		err = env.Catalog.RemoveGameCascade(env.Context, params.ID)
	} else {
		err = env.Catalog.RemoveGame(env.Context, params.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("error removing game: %w", err)
	}
	log.Info().Int64("game", params.ID).Bool("cascade", params.Cascade).Msg("removed game")
	return nil, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleUpdateGame(env requests.RequestEnv) (any, error) {
	var params models.UpdateGameParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	game, err := env.Catalog.GetGame(env.Context, params.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting game: %w", err)
	}
	if params.Title != nil {
		game.Title = *params.Title
	}
	if params.Creator != nil {
		game.Creator = *params.Creator
	}
	if params.Engine != nil {
		game.Engine = *params.Engine
	}
	if params.Description != nil {
		game.Description = *params.Description
	}

	if err := env.Catalog.UpdateGame(env.Context, game); err != nil {
		return nil, fmt.Errorf("error updating game: %w", err)
	}
	return models.NewGame(game), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleUpdateVersion(env requests.RequestEnv) (any, error) {
	var params models.UpdateVersionParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	game, err := env.Catalog.GetGame(env.Context, params.GameID)
	if err != nil {
		return nil, fmt.Errorf("error getting game: %w", err)
	}

	var row *database.Version
	for i := range game.Versions {
		if game.Versions[i].Version == params.Version {
			row = &game.Versions[i]
			break
		}
	}
	if row == nil {
		return nil, fmt.Errorf("version %q of game %d: %w", params.Version, params.GameID, database.ErrNotFound)
	}

	if params.InstallPath != nil {
		row.InstallPath = *params.InstallPath
	}
	if params.ExecPath != nil {
		row.ExecPath = *params.ExecPath
	}
	if params.Playtime != nil {
		row.Playtime = *params.Playtime
	}

	if err := env.Catalog.UpdateVersion(env.Context, row); err != nil {
		return nil, fmt.Errorf("error updating version: %w", err)
	}
	return models.NewGame(game), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleAddMapping(env requests.RequestEnv) (any, error) {
	var params models.AddMappingParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if err := env.Catalog.AddMapping(env.Context, params.GameID, params.RefID); err != nil {
		return nil, fmt.Errorf("error adding mapping: %w", err)
	}
	log.Info().Int64("game", params.GameID).Int64("ref", params.RefID).Msg("added mapping")
	return nil, nil
}
