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

package requests

import (
	"context"
	"encoding/json"

	"github.com/spf13/afero"
	"github.com/towerwatchman/atlas/pkg/api/models"
	"github.com/towerwatchman/atlas/pkg/config"
	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/database/libraryscanner"
	"github.com/towerwatchman/atlas/pkg/database/matcher"
	"github.com/towerwatchman/atlas/pkg/importer"
	"github.com/towerwatchman/atlas/pkg/refsync"
	"github.com/towerwatchman/atlas/pkg/service/state"
	"github.com/towerwatchman/atlas/pkg/shared/httpclient"
)

// RequestEnv is everything a method handler can reach. Context is scoped to
// the request; background jobs use State.GetContext.
type RequestEnv struct {
	Context  context.Context
	Config   *config.Instance
	State    *state.State
	Catalog  database.CatalogDBI
	Scanner  *libraryscanner.Scanner
	Matcher  *matcher.Matcher
	Importer *importer.Coordinator
	Syncer   *refsync.Syncer
	HTTP     *httpclient.Client
	Fs       afero.Fs
	ID       models.RPCID
	Params   json.RawMessage
	IsLocal  bool
}
