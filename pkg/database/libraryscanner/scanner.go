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

// Package libraryscanner walks a library root and turns each game folder or
// archive it finds into an import candidate.
package libraryscanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/towerwatchman/atlas/pkg/database"
)

// DefaultMaxDepth is how many levels below a top-level directory are
// searched for game folders.
const DefaultMaxDepth = 15

var (
	ErrScanInProgress = errors.New("scan already in progress")
	ErrIOFailure      = errors.New("library root could not be read")
)

// DefaultExecutableExts is used when Options.ExecutableExts is empty.
var DefaultExecutableExts = []string{".exe", ".sh", ".x86_64", ".py", ".html", ".swf", ".jar", ".app"}

// DefaultArchiveExts is used when Options.ArchiveExts is empty.
var DefaultArchiveExts = []string{".zip", ".rar", ".7z"}

type State int32

const (
	StateIdle State = iota
	StateScanning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Options struct {
	Root           string
	Pattern        string
	ExecutableExts []string
	ArchiveExts    []string
	// ArchiveSource treats every archive file at the root as a unit instead
	// of walking directories.
	ArchiveSource bool
	MaxDepth      int
}

// Candidate is a game found on disk that is not yet in the catalog.
type Candidate struct {
	ID          string                        `json:"id"`
	Title       string                        `json:"title"`
	Creator     string                        `json:"creator"`
	Version     string                        `json:"version"`
	Engine      string                        `json:"engine"`
	Path        string                        `json:"path"`
	Executables []string                      `json:"executables"`
	Matches     []database.ReferenceCandidate `json:"matches,omitempty"`
	ThreadID    string                        `json:"threadId,omitempty"`
	RefID       int64                         `json:"refId,omitempty"`
	// Selected is the index into Matches the candidate was matched to, or
	// -1 when nothing has been chosen.
	Selected int  `json:"selected"`
	Archive  bool `json:"archive"`
}

type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Found     int `json:"found"`
}

type Result struct {
	Candidates []Candidate `json:"candidates"`
	State      State       `json:"state"`
	Processed  int         `json:"processed"`
	Total      int         `json:"total"`
}

// Matcher looks up reference entries for a title and creator.
type Matcher interface {
	Search(ctx context.Context, title, creator string) ([]database.ReferenceCandidate, error)
}

// Catalog reports whether a version is already installed.
type Catalog interface {
	VersionExists(ctx context.Context, title, creator, version, path string) (bool, error)
}

type Scanner struct {
	fs      afero.Fs
	matcher Matcher
	catalog Catalog
	state   atomic.Int32
	running atomic.Bool
}

func New(fs afero.Fs, m Matcher, c Catalog) *Scanner {
	return &Scanner{fs: fs, matcher: m, catalog: c}
}

// Status returns the state of the current or most recent scan.
func (s *Scanner) Status() State {
	return State(s.state.Load())
}

type run struct {
	ctx        context.Context
	s          *Scanner
	sink       Sink
	pattern    *Pattern
	root       string
	execExts   []string
	archExts   []string
	maxDepth   int
	candidates []Candidate
}

// Scan walks opts.Root and reports candidates to sink as they are found.
// Only one scan runs at a time. Cancelling ctx stops the scan at the next
// unit boundary and returns the candidates found so far with ctx's error.
func (s *Scanner) Scan(ctx context.Context, opts Options, sink Sink) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{State: StateScanning}, ErrScanInProgress
	}
	defer s.running.Store(false)

	if sink == nil {
		sink = discardSink{}
	}

	s.state.Store(int32(StateScanning))
	r := &run{
		ctx:      ctx,
		s:        s,
		sink:     sink,
		pattern:  ParsePattern(opts.Pattern),
		root:     filepath.Clean(opts.Root),
		execExts: normalizeExts(opts.ExecutableExts, DefaultExecutableExts),
		archExts: normalizeExts(opts.ArchiveExts, DefaultArchiveExts),
		maxDepth: opts.MaxDepth,
	}
	if r.maxDepth <= 0 {
		r.maxDepth = DefaultMaxDepth
	}

	result, err := r.scan(opts.ArchiveSource)
	switch {
	case err == nil:
		result.State = StateCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		result.State = StateCancelled
	default:
		result.State = StateFailed
	}
	s.state.Store(int32(result.State))

	log.Info().
		Str("root", r.root).
		Str("state", result.State.String()).
		Int("candidates", len(result.Candidates)).
		Msg("library scan finished")

	return result, err
}

func (r *run) scan(archiveSource bool) (Result, error) {
	entries, err := afero.ReadDir(r.s.fs, r.root)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrIOFailure, r.root, err)
	}

	var units []string
	for _, e := range entries {
		if archiveSource && !e.IsDir() && hasExt(e.Name(), r.archExts) {
			units = append(units, e.Name())
		} else if !archiveSource && e.IsDir() {
			units = append(units, e.Name())
		}
	}

	res := Result{Total: len(units)}
	for i, name := range units {
		if err := r.ctx.Err(); err != nil {
			res.Candidates = r.candidates
			return res, fmt.Errorf("scan interrupted: %w", err)
		}

		path := filepath.Join(r.root, name)
		if archiveSource {
			r.unit(path, true, r.archExts)
		} else if err := r.topLevel(path); err != nil {
			res.Candidates = r.candidates
			return res, err
		}

		res.Processed = i + 1
		r.sink.Progress(Progress{Processed: res.Processed, Total: res.Total, Found: len(r.candidates)})
	}

	res.Candidates = r.candidates
	return res, nil
}

// topLevel searches the directories below a top-level directory breadth
// first, from one level down to maxDepth levels down. Once any directory
// yields a usable title, deeper levels are not visited. If none does, loose
// executables directly inside top become file units.
func (r *run) topLevel(top string) error {
	entries, err := afero.ReadDir(r.s.fs, top)
	if err != nil {
		log.Warn().Err(err).Str("path", top).Msg("failed to read directory")
		return nil
	}

	found, err := walkLevels(r.ctx, r.s.fs, subdirs(top, entries), r.maxDepth,
		func(dir string, _ []os.FileInfo) bool {
			return r.unit(dir, false, r.execExts)
		})
	if err != nil || found {
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !hasExt(e.Name(), r.execExts) {
			continue
		}
		if err := r.ctx.Err(); err != nil {
			return fmt.Errorf("scan interrupted: %w", err)
		}
		r.unit(filepath.Join(top, e.Name()), true, r.execExts)
	}
	return nil
}

// unit evaluates one directory or file and emits a candidate for it. It
// reports whether the unit yielded a usable title, even if the candidate
// was then dropped as already installed. Failures are logged and skip only
// this unit.
func (r *run) unit(path string, isFile bool, exts []string) bool {
	c, err := r.extract(path, isFile, exts)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("skipping scan unit")
		return false
	}
	if c == nil {
		return false
	}

	exists, err := r.s.catalog.VersionExists(r.ctx, c.Title, c.Creator, c.Version, c.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to check installed versions")
		return true
	}
	if exists {
		log.Debug().Str("path", path).Msg("version already installed")
		return true
	}

	r.candidates = append(r.candidates, *c)
	r.sink.Candidate(*c)
	return true
}

func (r *run) extract(path string, isFile bool, exts []string) (*Candidate, error) {
	var execs, names []string
	if isFile {
		if !hasExt(path, exts) {
			return nil, nil
		}
		execs = []string{filepath.Base(path)}
		names = execs
		if !hasExt(path, r.archExts) {
			names = r.siblings(path)
		}
	} else {
		entries, err := afero.ReadDir(r.s.fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			names = append(names, e.Name())
			if hasExt(e.Name(), exts) {
				execs = append(execs, e.Name())
			}
		}
		if len(execs) == 0 {
			return nil, nil
		}
	}
	sort.Strings(execs)

	info, err := ParsePath(r.pattern, r.root, path, isFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse path: %w", err)
	}
	if strings.TrimSpace(info.Title) == "" {
		return nil, nil
	}
	if info.Engine == "" {
		info.Engine = GuessEngine(names)
	}

	c := &Candidate{
		ID:          uuid.NewString(),
		Title:       info.Title,
		Creator:     info.Creator,
		Version:     info.Version,
		Engine:      info.Engine,
		Path:        path,
		Executables: execs,
		Selected:    -1,
		Archive:     isFile && hasExt(path, r.archExts),
	}

	matches, err := r.s.matcher.Search(r.ctx, info.Title, info.Creator)
	if err != nil {
		return nil, fmt.Errorf("reference lookup failed: %w", err)
	}
	switch len(matches) {
	case 0:
	case 1:
		m := matches[0]
		c.Title = m.Title
		c.Creator = m.Creator
		if m.Engine != "" {
			c.Engine = m.Engine
		}
		c.RefID = m.RefID
		c.ThreadID = m.ThreadID
		c.Matches = matches
		c.Selected = 0
	default:
		c.Matches = matches
	}
	return c, nil
}

// siblings lists the file names next to a loose executable, for engine
// detection.
func (r *run) siblings(path string) []string {
	entries, err := afero.ReadDir(r.s.fs, filepath.Dir(path))
	if err != nil {
		return []string{filepath.Base(path)}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func normalizeExts(exts, defaults []string) []string {
	if len(exts) == 0 {
		exts = defaults
	}
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func hasExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, e := range exts {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}
