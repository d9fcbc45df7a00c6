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

// Package assets downloads banner, preview and video files for imported
// games and records them in the catalog.
package assets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/shared/httpclient"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultWorkers           = 4
	DefaultRequestsPerSecond = 4
)

// Options selects which assets to fetch. A PreviewLimit of 0 fetches every
// preview.
type Options struct {
	Banner       bool
	Previews     bool
	Videos       bool
	PreviewLimit int
}

// Any reports whether at least one kind of asset is requested.
func (o Options) Any() bool {
	return o.Banner || o.Previews || o.Videos
}

type Downloader interface {
	DownloadFile(ctx context.Context, args httpclient.DownloadFileArgs) error
}

type Recorder interface {
	AddImage(ctx context.Context, row database.Image) error
}

type Config struct {
	// Dir is the directory images are stored under, one subdirectory per
	// game.
	Dir               string
	Workers           int
	RequestsPerSecond float64
}

type Fetcher struct {
	dl      Downloader
	db      Recorder
	limiter *rate.Limiter
	dir     string
	workers int
}

func NewFetcher(dl Downloader, db Recorder, cfg Config) *Fetcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &Fetcher{
		dl:      dl,
		db:      db,
		dir:     cfg.Dir,
		workers: workers,
		limiter: rate.NewLimiter(rate.Limit(rps), workers),
	}
}

type job struct {
	kind     string
	url      string
	position int
}

func jobs(thread database.ReferenceThread, opts Options) []job {
	var out []job
	if opts.Banner && thread.BannerURL != "" {
		out = append(out, job{kind: database.ImageKindBanner, url: thread.BannerURL})
	}
	if opts.Previews {
		for i, u := range thread.PreviewURLs {
			if opts.PreviewLimit > 0 && i >= opts.PreviewLimit {
				break
			}
			out = append(out, job{kind: database.ImageKindPreview, url: u, position: i})
		}
	}
	if opts.Videos {
		for i, u := range thread.VideoURLs {
			out = append(out, job{kind: database.ImageKindVideo, url: u, position: i})
		}
	}
	return out
}

// Fetch downloads the requested assets of thread for gameID. Every asset is
// attempted; the returned error joins the individual failures.
func (f *Fetcher) Fetch(
	ctx context.Context,
	gameID int64,
	thread database.ReferenceThread,
	opts Options,
) error {
	todo := jobs(thread, opts)
	if len(todo) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(f.workers)

	for _, j := range todo {
		g.Go(func() error {
			if err := f.fetchOne(ctx, gameID, j); err != nil {
				log.Warn().Err(err).Str("url", j.url).Int64("game", gameID).Msg("asset download failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Debug().Int64("game", gameID).Int("assets", len(todo)).Int("failed", len(errs)).Msg("assets fetched")
	return errors.Join(errs...)
}

func (f *Fetcher) fetchOne(ctx context.Context, gameID int64, j job) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	out := filepath.Join(f.dir, strconv.FormatInt(gameID, 10), fileName(j))
	err := f.dl.DownloadFile(ctx, httpclient.DownloadFileArgs{
		URL:        j.url,
		OutputPath: out,
		TempPath:   out + ".part",
	})
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", j.url, err)
	}

	err = f.db.AddImage(ctx, database.Image{
		GameDBID: gameID,
		Kind:     j.kind,
		Path:     out,
		Position: j.position,
	})
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", out, err)
	}
	return nil
}

func fileName(j job) string {
	ext := ".jpg"
	if j.kind == database.ImageKindVideo {
		ext = ".mp4"
	}
	if u, err := url.Parse(j.url); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); e != "" && len(e) <= 5 {
			ext = e
		}
	}
	if j.kind == database.ImageKindBanner {
		return j.kind + ext
	}
	return fmt.Sprintf("%s_%02d%s", j.kind, j.position, ext)
}
