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

// Package cli holds the atlas command tree. Commands other than serve open
// the catalog directly and do not need a running service.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/towerwatchman/atlas/internal/telemetry"
	"github.com/towerwatchman/atlas/pkg/config"
	"github.com/towerwatchman/atlas/pkg/database/catalogdb"
	"github.com/towerwatchman/atlas/pkg/database/libraryscanner"
	"github.com/towerwatchman/atlas/pkg/database/matcher"
	"github.com/towerwatchman/atlas/pkg/helpers"
	"github.com/towerwatchman/atlas/pkg/importer"
	"github.com/towerwatchman/atlas/pkg/refsync"
	"github.com/towerwatchman/atlas/pkg/service"
	"github.com/towerwatchman/atlas/pkg/shared/httpclient"
)

// Setup creates the data directory, starts logging and loads the user
// config. Error reporting is initialised when enabled in the config.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) (*config.Instance, error) {
	if err := os.MkdirAll(helpers.DataDir(), 0o750); err != nil {
		return nil, fmt.Errorf("error creating data directory: %w", err)
	}

	if err := helpers.InitLogging(helpers.LogDir(), writers); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	err = telemetry.Init(telemetry.Options{
		Enabled:    cfg.ErrorReporting(),
		DSN:        cfg.TelemetryDSN(),
		InstanceID: cfg.InstanceID(),
		AppVersion: config.AppVersion,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}

// Local is the catalog and the components built on it, opened in-process.
type Local struct {
	DB       *catalogdb.CatalogDB
	Fs       afero.Fs
	HTTP     *httpclient.Client
	Matcher  *matcher.Matcher
	Scanner  *libraryscanner.Scanner
	Importer *importer.Coordinator
	Syncer   *refsync.Syncer
}

// OpenLocal opens the catalog in dataDir and wires the scanner, importer and
// syncer to it. The caller must Close it.
func OpenLocal(ctx context.Context, cfg *config.Instance, fs afero.Fs, dataDir string) (*Local, error) {
	db, err := catalogdb.OpenCatalogDB(ctx, dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	client := httpclient.NewClient()
	m := matcher.New(db)
	return &Local{
		DB:       db,
		Fs:       fs,
		HTTP:     client,
		Matcher:  m,
		Scanner:  libraryscanner.New(fs, m, db),
		Importer: importer.New(db, fs, service.NewExtractor(cfg), service.NewFetcher(cfg, client, db)),
		Syncer:   refsync.NewSyncer(db),
	}, nil
}

func (l *Local) Close() error {
	if err := l.DB.Close(); err != nil {
		return fmt.Errorf("failed to close catalog database: %w", err)
	}
	return nil
}
