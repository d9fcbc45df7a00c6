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

package refsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/towerwatchman/atlas/pkg/database"
)

// csvRow is one line of a reference export. List columns are separated
// with "|".
type csvRow struct {
	ThreadID    string `csv:"thread_id"`
	Banner      string `csv:"banner"`
	Screens     string `csv:"screens"`
	Videos      string `csv:"videos"`
	Title       string `csv:"title"`
	Creator     string `csv:"creator"`
	Engine      string `csv:"engine"`
	Version     string `csv:"version"`
	Overview    string `csv:"overview"`
	Status      string `csv:"status"`
	Category    string `csv:"category"`
	Language    string `csv:"language"`
	ReleaseDate string `csv:"release_date"`
	Tags        string `csv:"tags"`
	ID          int64  `csv:"id"`
	Censored    bool   `csv:"censored"`
}

// CSVFeed reads a reference export from a CSV file. The whole file is one
// batch stamped with its modification time.
type CSVFeed struct {
	Fs   afero.Fs
	Path string
}

func (f *CSVFeed) Batches(_ context.Context, after int64) ([]database.ReferenceBatch, error) {
	fs := f.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	info, err := fs.Stat(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalService, err)
	}
	stamp := info.ModTime().Unix()
	if stamp <= after {
		log.Debug().Str("path", f.Path).Msg("reference export already applied")
		return nil, nil
	}

	file, err := fs.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalService, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msgf("error closing file: %s", f.Path)
		}
	}()

	var rows []*csvRow
	if err := gocsv.Unmarshal(file, &rows); err != nil {
		return nil, fmt.Errorf("%w: malformed csv: %w", ErrExternalService, err)
	}

	batch := database.ReferenceBatch{
		Stamp:   stamp,
		Entries: make([]database.ReferenceEntry, 0, len(rows)),
	}
	for _, r := range rows {
		batch.Entries = append(batch.Entries, database.ReferenceEntry{
			RefID:       r.ID,
			Title:       r.Title,
			Creator:     r.Creator,
			Engine:      r.Engine,
			Version:     r.Version,
			Overview:    r.Overview,
			Status:      r.Status,
			Category:    r.Category,
			Language:    r.Language,
			ReleaseDate: r.ReleaseDate,
			Tags:        r.Tags,
			Censored:    r.Censored,
		})
		if r.ThreadID == "" && r.Banner == "" {
			continue
		}
		batch.Threads = append(batch.Threads, database.ReferenceThread{
			RefID:       r.ID,
			ThreadID:    r.ThreadID,
			BannerURL:   r.Banner,
			PreviewURLs: splitPipe(r.Screens),
			VideoURLs:   splitPipe(r.Videos),
		})
	}
	return []database.ReferenceBatch{batch}, nil
}

func splitPipe(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "|") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
