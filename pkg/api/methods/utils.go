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
	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/api/models"
	"github.com/towerwatchman/atlas/pkg/api/models/requests"
	"github.com/towerwatchman/atlas/pkg/config"
)

//nolint:gocritic // single-use parameter in API handler
func HandleVersion(_ requests.RequestEnv) (any, error) {
	log.Debug().Msg("received version request")
	return models.VersionResponse{Version: config.AppVersion}, nil
}
