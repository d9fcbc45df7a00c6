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

// Package service wires the catalog, scanner, importer and reference sync
// together and serves them over the API until stopped.
package service

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/towerwatchman/atlas/pkg/api"
	"github.com/towerwatchman/atlas/pkg/api/models"
	"github.com/towerwatchman/atlas/pkg/api/models/requests"
	"github.com/towerwatchman/atlas/pkg/api/notifications"
	"github.com/towerwatchman/atlas/pkg/assets"
	"github.com/towerwatchman/atlas/pkg/config"
	"github.com/towerwatchman/atlas/pkg/database/catalogdb"
	"github.com/towerwatchman/atlas/pkg/database/libraryscanner"
	"github.com/towerwatchman/atlas/pkg/database/matcher"
	"github.com/towerwatchman/atlas/pkg/helpers"
	"github.com/towerwatchman/atlas/pkg/importer"
	"github.com/towerwatchman/atlas/pkg/refsync"
	"github.com/towerwatchman/atlas/pkg/service/broker"
	"github.com/towerwatchman/atlas/pkg/service/state"
	"github.com/towerwatchman/atlas/pkg/shared/httpclient"
)

const subscriberBuffer = 100

func setupEnvironment(cfg *config.Instance) error {
	log.Info().Msg("creating data directories")
	dirs := []string{
		helpers.DataDir(),
		helpers.ImagesDir(),
		helpers.ExtractDir(cfg),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// NewExtractor returns the configured archive extractor, or nil when
// archives are not importable.
func NewExtractor(cfg *config.Instance) importer.Extractor {
	cmd := cfg.ExtractCommand()
	if len(cmd) == 0 {
		return nil
	}
	ex, err := importer.NewCommandExtractor(cmd, helpers.ExtractDir(cfg))
	if err != nil {
		log.Warn().Err(err).Msg("ignoring archive extract command")
		return nil
	}
	return ex
}

// NewFetcher builds the asset downloader from the reference settings.
func NewFetcher(cfg *config.Instance, client *httpclient.Client, rec assets.Recorder) *assets.Fetcher {
	return assets.NewFetcher(client, rec, assets.Config{
		Dir:               helpers.ImagesDir(),
		Workers:           cfg.AssetDownloadWorkers(),
		RequestsPerSecond: cfg.AssetRequestsPerSecond(),
	})
}

func applyLogLevel(cfg *config.Instance) {
	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// logEvents writes a line for every finished job so the log file has a
// record of work started from clients.
func logEvents(ch <-chan models.Notification) {
	for notif := range ch {
		switch notif.Method {
		case models.NotificationScanDone, models.NotificationImportDone, models.NotificationSyncDone:
			log.Info().Str("event", notif.Method).RawJSON("params", notif.Params).Msg("job finished")
		default:
		}
	}
}

func syncOnStart(env *requests.RequestEnv) {
	src := refsync.Source{
		Fs:     env.Fs,
		Client: env.HTTP,
		URL:    env.Config.ReferenceFeedURL(),
		File:   env.Config.ReferenceFeedFile(),
	}
	feed, err := src.Feed()
	if err != nil {
		log.Warn().Err(err).Msg("skipping reference sync on start")
		return
	}

	log.Info().Msg("syncing reference catalog")
	result, err := env.Syncer.Sync(env.State.GetContext(), feed)
	done := models.SyncDoneParams{SessionID: "startup", Result: result}
	if err != nil {
		log.Error().Err(err).Msg("reference sync on start failed")
		done.Error = err.Error()
	}
	notifications.SyncDone(env.State.Notifications, done)
}

func Start(cfg *config.Instance) (stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)
	applyLogLevel(cfg)

	st, ns := state.NewState()
	notifBroker := broker.NewBroker(st.GetContext(), ns)

	if err = setupEnvironment(cfg); err != nil {
		log.Error().Err(err).Msg("error setting up environment")
		return nil, nil, err
	}

	log.Info().Msg("opening catalog database")
	db, err := catalogdb.OpenCatalogDB(st.GetContext(), helpers.DataDir())
	if err != nil {
		log.Error().Err(err).Msg("error opening catalog database")
		return nil, nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	fs := afero.NewOsFs()
	client := httpclient.NewClient()
	m := matcher.New(db)
	env := requests.RequestEnv{
		Config:   cfg,
		State:    st,
		Catalog:  db,
		Scanner:  libraryscanner.New(fs, m, db),
		Matcher:  m,
		Importer: importer.New(db, fs, NewExtractor(cfg), NewFetcher(cfg, client, db)),
		Syncer:   refsync.NewSyncer(db),
		HTTP:     client,
		Fs:       fs,
	}

	apiNotifications, _ := notifBroker.Subscribe(subscriberBuffer)
	logNotifications, _ := notifBroker.Subscribe(subscriberBuffer)
	notifBroker.Start()
	go logEvents(logNotifications)

	log.Info().Msg("starting API service")
	apiDone := make(chan struct{})
	go func() {
		defer close(apiDone)
		if apiErr := api.Start(env, apiNotifications); apiErr != nil {
			log.Error().Err(apiErr).Msg("API server stopped with error")
			st.StopService()
		}
	}()

	go func() {
		watchErr := cfg.Watch(st.GetContext(), func() {
			applyLogLevel(cfg)
		})
		if watchErr != nil {
			log.Warn().Err(watchErr).Msg("config watch stopped")
		}
	}()

	if cfg.SyncOnStart() {
		go syncOnStart(&env)
	}

	doneCh := make(chan struct{})
	go func() {
		<-st.GetContext().Done()
		log.Info().Msg("service context cancelled, running cleanup")
		<-apiDone
		if closeErr := db.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing catalog database")
		}
		log.Info().Msg("service cleanup completed")
		close(doneCh)
	}()

	stop = func() error {
		st.StopService()
		<-doneCh
		return nil
	}
	return stop, doneCh, nil
}
