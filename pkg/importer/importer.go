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

// Package importer commits reviewed scan candidates to the catalog and
// fetches their reference assets.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/towerwatchman/atlas/pkg/assets"
	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/database/libraryscanner"
)

const (
	PhasePersist = "persist"
	PhaseAssets  = "assets"
)

var (
	ErrImportInProgress = errors.New("import already in progress")
	ErrNoExtractor      = errors.New("no archive extractor configured")
	ErrInvalidPath      = errors.New("install path does not exist")
	ErrPartialImport    = errors.New("partial import failure")
)

type Options struct {
	ExecutableExts    []string `json:"executableExts"`
	PreviewLimit      int      `json:"previewLimit" validate:"min=0,max=50"`
	DeleteArchive     bool     `json:"deleteArchive"`
	ComputeFolderSize bool     `json:"computeFolderSize"`
	FetchBanner       bool     `json:"fetchBanner"`
	FetchPreviews     bool     `json:"fetchPreviews"`
	FetchVideos       bool     `json:"fetchVideos"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid import options: %w", err)
	}
	return nil
}

func (o *Options) assets() assets.Options {
	return assets.Options{
		Banner:       o.FetchBanner,
		Previews:     o.FetchPreviews,
		Videos:       o.FetchVideos,
		PreviewLimit: o.PreviewLimit,
	}
}

// Extractor unpacks an archive and returns the directory it was unpacked to.
type Extractor interface {
	Extract(ctx context.Context, archivePath string) (string, error)
}

type AssetFetcher interface {
	Fetch(ctx context.Context, gameID int64, thread database.ReferenceThread, opts assets.Options) error
}

type Progress struct {
	Label     string `json:"label"`
	Phase     string `json:"phase"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// Outcome is the result of importing one candidate. GameID is only set
// when the candidate imported completely. A failure after the game row was
// written leaves that row in the catalog and Err names its id.
type Outcome struct {
	Err          error  `json:"-"`
	AssetsErr    error  `json:"-"`
	Label        string `json:"label"`
	VersionLabel string `json:"version"`
	Index        int    `json:"index"`
	GameID       int64  `json:"gameId,omitempty"`
	RefID        int64  `json:"refId,omitempty"`
}

func (o *Outcome) OK() bool {
	return o.Err == nil
}

type Report struct {
	ID           string    `json:"id"`
	Outcomes     []Outcome `json:"outcomes"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	AssetsFailed int       `json:"assetsFailed"`
}

// PartialImportError reports that some items of a batch failed. The
// successful items are committed.
type PartialImportError struct {
	Errs      []error
	Failed    int
	Succeeded int
}

func (e *PartialImportError) Error() string {
	return fmt.Sprintf("%d of %d imports failed", e.Failed, e.Failed+e.Succeeded)
}

func (e *PartialImportError) Is(target error) bool {
	return target == ErrPartialImport
}

func (e *PartialImportError) Unwrap() []error {
	return e.Errs
}

// Sink receives import events. Done fires once per Import call, after both
// phases.
type Sink interface {
	Progress(p Progress)
	Done(r Report)
}

type SinkFuncs struct {
	OnProgress func(Progress)
	OnDone     func(Report)
}

func (s SinkFuncs) Progress(p Progress) {
	if s.OnProgress != nil {
		s.OnProgress(p)
	}
}

func (s SinkFuncs) Done(r Report) {
	if s.OnDone != nil {
		s.OnDone(r)
	}
}

type Coordinator struct {
	db        database.CatalogDBI
	fs        afero.Fs
	extractor Extractor
	assets    AssetFetcher
	running   atomic.Bool
}

// New creates a Coordinator. extractor and fetcher may be nil; archive
// candidates then fail and assets are skipped.
func New(db database.CatalogDBI, fs afero.Fs, extractor Extractor, fetcher AssetFetcher) *Coordinator {
	return &Coordinator{db: db, fs: fs, extractor: extractor, assets: fetcher}
}

// Import persists every candidate in order, then fetches assets for the
// ones linked to a reference entry. A failing item never stops the batch;
// if any failed the returned error is a *PartialImportError. Cancelling ctx
// stops before the next item.
func (c *Coordinator) Import(
	ctx context.Context,
	items []libraryscanner.Candidate,
	opts Options,
	sink Sink,
) (Report, error) {
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}
	if !c.running.CompareAndSwap(false, true) {
		return Report{}, ErrImportInProgress
	}
	defer c.running.Store(false)

	if sink == nil {
		sink = SinkFuncs{}
	}

	report := Report{ID: uuid.NewString(), Outcomes: make([]Outcome, 0, len(items))}
	total := len(items)

	for i := range items {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("import interrupted: %w", err)
		}
		item := &items[i]
		label := itemLabel(item)

		sink.Progress(Progress{Phase: PhasePersist, Processed: i, Total: total, Label: label})
		out := Outcome{Index: i, Label: label, VersionLabel: item.Version, RefID: item.RefID}
		out.GameID, out.Err = c.persist(ctx, item, &opts, func(step string) {
			sink.Progress(Progress{Phase: PhasePersist, Processed: i, Total: total, Label: label + ": " + step})
		})
		if out.Err != nil {
			log.Error().Err(out.Err).Str("path", item.Path).Msgf("failed to import %s", label)
			report.Failed++
		} else {
			report.Succeeded++
		}
		report.Outcomes = append(report.Outcomes, out)
		sink.Progress(Progress{Phase: PhasePersist, Processed: i + 1, Total: total, Label: label})
	}

	c.fetchAssets(ctx, &report, &opts, sink)

	log.Info().
		Str("id", report.ID).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("assetsFailed", report.AssetsFailed).
		Msg("import finished")
	sink.Done(report)

	if report.Failed > 0 {
		perr := &PartialImportError{Failed: report.Failed, Succeeded: report.Succeeded}
		for i := range report.Outcomes {
			if report.Outcomes[i].Err != nil {
				perr.Errs = append(perr.Errs, report.Outcomes[i].Err)
			}
		}
		return report, perr
	}
	return report, nil
}

func itemLabel(item *libraryscanner.Candidate) string {
	if item.Creator == "" {
		return item.Title
	}
	return item.Title + " - " + item.Creator
}

func (c *Coordinator) persist(
	ctx context.Context,
	item *libraryscanner.Candidate,
	opts *Options,
	step func(string),
) (int64, error) {
	if strings.TrimSpace(item.Title) == "" {
		return 0, errors.New("candidate has no title")
	}

	installPath := item.Path
	execs := item.Executables
	engine := item.Engine
	inPlace := true

	if item.Archive {
		if c.extractor == nil {
			return 0, ErrNoExtractor
		}
		step("extracting")
		dir, err := c.extractor.Extract(ctx, item.Path)
		if err != nil {
			return 0, fmt.Errorf("failed to extract %s: %w", item.Path, err)
		}
		if opts.DeleteArchive {
			if err := c.fs.Remove(item.Path); err != nil {
				log.Warn().Err(err).Msgf("failed to delete archive: %s", item.Path)
			}
		}

		found, err := libraryscanner.FindExecutables(ctx, c.fs, dir, opts.ExecutableExts, 0)
		if err != nil {
			return 0, fmt.Errorf("failed to inspect extracted files: %w", err)
		}
		installPath = dir
		execs = nil
		if found.Dir != "" {
			installPath = found.Dir
			execs = found.Executables
			if found.Engine != "" {
				engine = found.Engine
			}
		}
		inPlace = false
	}

	info, err := c.fs.Stat(installPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPath, installPath)
	}

	var execPath string
	if !info.IsDir() {
		// loose executable unit
		execPath = installPath
		installPath = filepath.Dir(installPath)
	} else if len(execs) > 0 {
		execPath = filepath.Join(installPath, execs[0])
	}

	var size int64
	if opts.ComputeFolderSize {
		step("measuring folder size")
		size, err = FolderSize(c.fs, installPath)
		if err != nil {
			log.Warn().Err(err).Msgf("failed to measure folder size: %s", installPath)
		}
	}

	gameID, err := c.db.UpsertGame(ctx, item.Title, item.Creator, engine)
	if err != nil {
		return 0, fmt.Errorf("failed to save game: %w", err)
	}

	err = c.db.UpsertVersion(ctx, &database.Version{
		GameDBID:    gameID,
		Version:     item.Version,
		InstallPath: installPath,
		ExecPath:    execPath,
		SourcePath:  item.Path,
		InPlace:     inPlace,
		FolderSize:  size,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save version of game %d: %w", gameID, err)
	}

	if item.RefID != 0 {
		if err := c.db.AddMapping(ctx, gameID, item.RefID); err != nil {
			return 0, fmt.Errorf("failed to link game %d to reference %d: %w", gameID, item.RefID, err)
		}
	}
	return gameID, nil
}

func (c *Coordinator) fetchAssets(ctx context.Context, report *Report, opts *Options, sink Sink) {
	aopts := opts.assets()
	if c.assets == nil || !aopts.Any() {
		return
	}

	var todo []*Outcome
	for i := range report.Outcomes {
		if o := &report.Outcomes[i]; o.OK() && o.RefID != 0 {
			todo = append(todo, o)
		}
	}

	for i, o := range todo {
		if ctx.Err() != nil {
			return
		}
		sink.Progress(Progress{Phase: PhaseAssets, Processed: i, Total: len(todo), Label: o.Label})

		thread, err := c.db.GetReferenceThread(ctx, o.RefID)
		if err == nil {
			err = c.assets.Fetch(ctx, o.GameID, thread, aopts)
		}
		if err != nil {
			log.Warn().Err(err).Msgf("failed to fetch assets for %s", o.Label)
			o.AssetsErr = err
			report.AssetsFailed++
		}
	}
	sink.Progress(Progress{Phase: PhaseAssets, Processed: len(todo), Total: len(todo)})
}
