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

package libraryscanner

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/testing/helpers"
)

const root = "/library"

type fakeMatcher struct {
	err     error
	results map[string][]database.ReferenceCandidate
	calls   []string
	mu      sync.Mutex
}

func (m *fakeMatcher) Search(_ context.Context, title, _ string) ([]database.ReferenceCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, title)
	if m.err != nil {
		return nil, m.err
	}
	return m.results[title], nil
}

type recordingSink struct {
	candidates []Candidate
	progress   []Progress
}

func (s *recordingSink) Candidate(c Candidate) { s.candidates = append(s.candidates, c) }
func (s *recordingSink) Progress(p Progress)   { s.progress = append(s.progress, p) }

func emptyCatalog() *helpers.MockCatalogDBI {
	cat := helpers.NewMockCatalogDBI()
	cat.On("VersionExists", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(false, nil)
	return cat
}

func newFS(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	h := helpers.NewMemoryFS()
	require.NoError(t, h.Fs.MkdirAll(root, 0o755))
	require.NoError(t, h.CreateFiles(root, files...))
	return h.Fs
}

func titles(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Title)
	}
	return out
}

func TestScanHeuristicFolders(t *testing.T) {
	t.Parallel()

	fs := newFS(t,
		"My Game-1.5/game.exe",
		"My Game-1.5/UnityPlayer.dll",
		"Dev/Some Title/start.sh",
		"[Tag] Title-2/renpy.exe",
		"Empty Folder/readme.txt",
	)
	s := New(fs, &fakeMatcher{}, emptyCatalog())
	sink := &recordingSink{}

	res, err := s.Scan(context.Background(), Options{Root: root}, sink)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, StateCompleted, s.Status())
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 4, res.Processed)
	assert.ElementsMatch(t, []string{"My Game", "Some Title", "Tag Title"}, titles(res.Candidates))
	assert.Equal(t, res.Candidates, sink.candidates)

	byTitle := map[string]Candidate{}
	for _, c := range res.Candidates {
		byTitle[c.Title] = c
	}
	assert.Equal(t, "1.5", byTitle["My Game"].Version)
	assert.Equal(t, "Unity", byTitle["My Game"].Engine)
	assert.Equal(t, []string{"game.exe"}, byTitle["My Game"].Executables)
	assert.Equal(t, "1.0", byTitle["Some Title"].Version)
	assert.Equal(t, "2", byTitle["Tag Title"].Version)
	assert.Equal(t, "Ren'Py", byTitle["Tag Title"].Engine)
	assert.Equal(t, -1, byTitle["Some Title"].Selected)
	assert.NotEmpty(t, byTitle["Some Title"].ID)

	require.Len(t, sink.progress, 4)
	assert.Equal(t, Progress{Processed: 4, Total: 4, Found: 3}, sink.progress[3])
}

func TestScanPattern(t *testing.T) {
	t.Parallel()

	fs := newFS(t,
		"CreatorX/TitleY/3.0/game.exe",
		"Loose Game-2.0/game.exe",
	)
	s := New(fs, &fakeMatcher{}, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{
		Root:    root,
		Pattern: "{creator}/{title}/{version}",
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)

	byPath := map[string]Candidate{}
	for _, c := range res.Candidates {
		byPath[c.Path] = c
	}

	patterned := byPath[filepath.Join(root, "CreatorX/TitleY/3.0")]
	assert.Equal(t, "TitleY", patterned.Title)
	assert.Equal(t, "CreatorX", patterned.Creator)
	assert.Equal(t, "3.0", patterned.Version)

	fallback := byPath[filepath.Join(root, "Loose Game-2.0", "game.exe")]
	assert.Equal(t, "Loose Game", fallback.Title)
	assert.Equal(t, "2.0", fallback.Version)
}

func TestScanStopsAtShallowestDepth(t *testing.T) {
	t.Parallel()

	fs := newFS(t,
		"A/B/game.exe",
		"A/B/C/other.exe",
	)
	s := New(fs, &fakeMatcher{}, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{Root: root}, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, filepath.Join(root, "A/B"), res.Candidates[0].Path)
	assert.Equal(t, "B", res.Candidates[0].Title)
}

func TestScanSameDepthSiblings(t *testing.T) {
	t.Parallel()

	fs := newFS(t,
		"Creator/Game One/one.exe",
		"Creator/Game Two/two.exe",
		"Creator/Game Two/Extras/Deep/deep.exe",
	)
	s := New(fs, &fakeMatcher{}, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{Root: root}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Game One", "Game Two"}, titles(res.Candidates))
}

func TestScanMaxDepth(t *testing.T) {
	t.Parallel()

	fs := newFS(t, "A/B/C/D/game.exe")
	s := New(fs, &fakeMatcher{}, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{Root: root, MaxDepth: 2}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)

	res, err = s.Scan(context.Background(), Options{Root: root, MaxDepth: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"D"}, titles(res.Candidates))
}

func TestScanLooseFilesInCollection(t *testing.T) {
	t.Parallel()

	fs := newFS(t,
		"Collection/Sub/readme.txt",
		"Collection/Alpha Game-1.0.exe",
		"Collection/Beta Game-2.0.exe",
	)
	s := New(fs, &fakeMatcher{}, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{Root: root, ExecutableExts: []string{"exe"}}, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.ElementsMatch(t, []string{"Alpha Game", "Beta Game"}, titles(res.Candidates))

	byTitle := map[string]Candidate{}
	for _, c := range res.Candidates {
		byTitle[c.Title] = c
	}
	assert.Equal(t, "1.0", byTitle["Alpha Game"].Version)
	assert.Equal(t, filepath.Join(root, "Collection", "Beta Game-2.0.exe"), byTitle["Beta Game"].Path)
	assert.Equal(t, "2.0", byTitle["Beta Game"].Version)
}

func TestScanTopLevelFolderIsNotAUnit(t *testing.T) {
	t.Parallel()

	fs := newFS(t,
		"Collection/launcher.exe",
		"Collection/Game One-1.0/one.exe",
	)
	s := New(fs, &fakeMatcher{}, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{Root: root}, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "Game One", res.Candidates[0].Title)
	assert.Equal(t, filepath.Join(root, "Collection", "Game One-1.0"), res.Candidates[0].Path)
}

func TestScanVersionedFolderWithLooseExecutable(t *testing.T) {
	t.Parallel()

	fs := newFS(t,
		"Eternum-0.6/Eternum.exe",
		"Eternum-0.6/Eternum.rpa",
	)
	s := New(fs, &fakeMatcher{}, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{Root: root}, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, "Eternum", c.Title)
	assert.Equal(t, "0.6", c.Version)
	assert.Equal(t, "Ren'Py", c.Engine)
	assert.Equal(t, filepath.Join(root, "Eternum-0.6", "Eternum.exe"), c.Path)
	assert.False(t, c.Archive)
}

func TestScanLooseFileFallback(t *testing.T) {
	t.Parallel()

	fs := newFS(t,
		"[]/Tiny Game-1.2.exe",
		"[]/Other.exe",
		"[]/notes.txt",
	)
	s := New(fs, &fakeMatcher{}, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{Root: root}, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)

	byTitle := map[string]Candidate{}
	for _, c := range res.Candidates {
		byTitle[c.Title] = c
	}
	assert.Equal(t, "1.2", byTitle["Tiny Game"].Version)
	assert.Equal(t, filepath.Join(root, "[]", "Tiny Game-1.2.exe"), byTitle["Tiny Game"].Path)
	assert.Equal(t, []string{"Tiny Game-1.2.exe"}, byTitle["Tiny Game"].Executables)
	assert.Equal(t, "1.0", byTitle["Other"].Version)
	assert.False(t, byTitle["Other"].Archive)
}

func TestScanArchives(t *testing.T) {
	t.Parallel()

	fs := newFS(t,
		"Eternum-0.6.zip",
		"Other Game.7z",
		"readme.txt",
		"Folder Game/game.exe",
	)
	s := New(fs, &fakeMatcher{}, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{Root: root, ArchiveSource: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Candidates, 2)
	assert.ElementsMatch(t, []string{"Eternum", "Other Game"}, titles(res.Candidates))
	for _, c := range res.Candidates {
		assert.True(t, c.Archive)
	}
}

func TestScanMatcherAdoption(t *testing.T) {
	t.Parallel()

	single := database.ReferenceCandidate{
		ThreadID: "t-1",
		ReferenceEntry: database.ReferenceEntry{
			RefID: 1, Title: "Eternum", Creator: "Caribdis", Engine: "Ren'Py",
		},
	}
	m := &fakeMatcher{results: map[string][]database.ReferenceCandidate{
		"eternum": {single},
		"Ambiguous": {
			{ReferenceEntry: database.ReferenceEntry{RefID: 2, Title: "Ambiguous One"}},
			{ReferenceEntry: database.ReferenceEntry{RefID: 3, Title: "Ambiguous Two"}},
		},
	}}
	fs := newFS(t,
		"eternum-0.6/Eternum.exe",
		"Dev/Ambiguous/game.exe",
		"Dev/Unknown/game.exe",
	)
	s := New(fs, m, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{Root: root}, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 3)

	byPath := map[string]Candidate{}
	for _, c := range res.Candidates {
		byPath[filepath.Base(c.Path)] = c
	}

	adopted := byPath["Eternum.exe"]
	assert.Equal(t, "Eternum", adopted.Title)
	assert.Equal(t, "Caribdis", adopted.Creator)
	assert.Equal(t, "Ren'Py", adopted.Engine)
	assert.Equal(t, int64(1), adopted.RefID)
	assert.Equal(t, "t-1", adopted.ThreadID)
	assert.Equal(t, 0, adopted.Selected)
	assert.Equal(t, "0.6", adopted.Version)

	ambiguous := byPath["Ambiguous"]
	assert.Equal(t, "Ambiguous", ambiguous.Title)
	assert.Len(t, ambiguous.Matches, 2)
	assert.Equal(t, -1, ambiguous.Selected)
	assert.Zero(t, ambiguous.RefID)

	unknown := byPath["Unknown"]
	assert.Equal(t, "Unknown", unknown.Title)
	assert.Empty(t, unknown.Matches)
}

func TestScanMatcherFailureSkipsUnit(t *testing.T) {
	t.Parallel()

	fs := newFS(t, "Game/game.exe")
	s := New(fs, &fakeMatcher{err: errors.New("db gone")}, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{Root: root}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, 1, res.Processed)
}

func TestScanSkipsInstalledVersions(t *testing.T) {
	t.Parallel()

	db, cleanup := helpers.NewInMemoryCatalogDB(t)
	defer cleanup()

	ctx := context.Background()
	gameID, err := db.UpsertGame(ctx, "Installed", "", "")
	require.NoError(t, err)
	require.NoError(t, db.UpsertVersion(ctx, &database.Version{
		GameDBID:    gameID,
		Version:     "1.0",
		InstallPath: filepath.Join(root, "Dev", "Installed-1.0"),
	}))

	fs := newFS(t,
		"Dev/Installed-1.0/game.exe",
		"Dev/Installed-2.0/game.exe",
	)
	s := New(fs, &fakeMatcher{}, db)

	res, err := s.Scan(ctx, Options{Root: root}, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "2.0", res.Candidates[0].Version)
}

func TestScanMissingRoot(t *testing.T) {
	t.Parallel()

	s := New(afero.NewMemMapFs(), &fakeMatcher{}, emptyCatalog())

	res, err := s.Scan(context.Background(), Options{Root: "/nope"}, nil)
	require.ErrorIs(t, err, ErrIOFailure)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateFailed, s.Status())
}

func TestScanCancelled(t *testing.T) {
	t.Parallel()

	fs := newFS(t, "One/game.exe", "Two/game.exe")
	s := New(fs, &fakeMatcher{}, emptyCatalog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Scan(ctx, Options{Root: root}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, res.State)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, 0, res.Processed)
}

type blockingMatcher struct {
	entered chan struct{}
	release chan struct{}
}

func (m *blockingMatcher) Search(context.Context, string, string) ([]database.ReferenceCandidate, error) {
	m.entered <- struct{}{}
	<-m.release
	return nil, nil
}

func TestScanRejectsConcurrentScan(t *testing.T) {
	t.Parallel()

	fs := newFS(t, "Game/game.exe")
	m := &blockingMatcher{entered: make(chan struct{}), release: make(chan struct{})}
	s := New(fs, m, emptyCatalog())

	done := make(chan error, 1)
	go func() {
		_, err := s.Scan(context.Background(), Options{Root: root}, nil)
		done <- err
	}()

	<-m.entered
	assert.Equal(t, StateScanning, s.Status())
	_, err := s.Scan(context.Background(), Options{Root: root}, nil)
	require.ErrorIs(t, err, ErrScanInProgress)

	close(m.release)
	require.NoError(t, <-done)
	assert.Equal(t, StateCompleted, s.Status())
}

func TestChanSinkDoesNotBlock(t *testing.T) {
	t.Parallel()

	candidates := make(chan Candidate, 1)
	updates := make(chan Progress, 1)
	sink := ChanSink{Candidates: candidates, Updates: updates}

	sink.Candidate(Candidate{Title: "a"})
	sink.Candidate(Candidate{Title: "b"})
	sink.Progress(Progress{Processed: 1})
	sink.Progress(Progress{Processed: 2})

	assert.Equal(t, "a", (<-candidates).Title)
	assert.Equal(t, 1, (<-updates).Processed)

	ChanSink{}.Candidate(Candidate{})
	ChanSink{}.Progress(Progress{})
}
