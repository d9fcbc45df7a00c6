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

package assets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/shared/httpclient"
	"github.com/towerwatchman/atlas/pkg/testing/helpers"
	"go.uber.org/goleak"
)

func TestFetchDownloadsAndRecords(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	client := httpclient.NewClient()
	client.Fs = fs

	db := helpers.NewMockCatalogDBI()
	db.On("AddImage", mock.Anything, mock.Anything).Return(nil)

	f := NewFetcher(client, db, Config{Dir: "/data/images", RequestsPerSecond: 100})
	thread := database.ReferenceThread{
		RefID:       7,
		BannerURL:   srv.URL + "/banner.png",
		PreviewURLs: []string{srv.URL + "/p1.jpg", srv.URL + "/broken.jpg", srv.URL + "/p3.jpg"},
		VideoURLs:   []string{srv.URL + "/v.webm"},
	}

	err := f.Fetch(context.Background(), 3, thread, Options{Banner: true, Previews: true, PreviewLimit: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.jpg")

	data, err := afero.ReadFile(fs, "/data/images/3/banner.png")
	require.NoError(t, err)
	assert.Equal(t, "/banner.png", string(data))
	exists, _ := afero.Exists(fs, "/data/images/3/preview_00.jpg")
	assert.True(t, exists)
	exists, _ = afero.Exists(fs, "/data/images/3/preview_02.jpg")
	assert.False(t, exists, "preview limit")
	exists, _ = afero.Exists(fs, "/data/images/3/video_00.webm")
	assert.False(t, exists, "videos not requested")

	db.AssertNumberOfCalls(t, "AddImage", 2)
	db.AssertCalled(t, "AddImage", mock.Anything, database.Image{
		GameDBID: 3, Kind: database.ImageKindBanner, Path: "/data/images/3/banner.png",
	})
	srv.CloseClientConnections()
	client.CloseIdleConnections()
}

type fakeDownloader struct {
	err  error
	urls []string
	mu   sync.Mutex
}

func (d *fakeDownloader) DownloadFile(_ context.Context, args httpclient.DownloadFileArgs) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, args.URL)
	return d.err
}

func TestFetchNothingRequested(t *testing.T) {
	t.Parallel()

	dl := &fakeDownloader{}
	f := NewFetcher(dl, helpers.NewMockCatalogDBI(), Config{Dir: "/img"})

	thread := database.ReferenceThread{BannerURL: "http://x/b.jpg", PreviewURLs: []string{"http://x/1.jpg"}}
	require.NoError(t, f.Fetch(context.Background(), 1, thread, Options{}))
	require.NoError(t, f.Fetch(context.Background(), 1, database.ReferenceThread{}, Options{Banner: true}))
	assert.Empty(t, dl.urls)
}

func TestFetchAllFail(t *testing.T) {
	t.Parallel()

	dl := &fakeDownloader{err: errors.New("offline")}
	db := helpers.NewMockCatalogDBI()
	f := NewFetcher(dl, db, Config{Dir: "/img", RequestsPerSecond: 1000})

	thread := database.ReferenceThread{
		BannerURL: "http://x/b.jpg",
		VideoURLs: []string{"http://x/a.mp4", "http://x/b.mp4"},
	}
	err := f.Fetch(context.Background(), 1, thread, Options{Banner: true, Videos: true})
	require.Error(t, err)
	assert.Len(t, dl.urls, 3)
	db.AssertNotCalled(t, "AddImage", mock.Anything, mock.Anything)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "banner.png", fileName(job{kind: database.ImageKindBanner, url: "http://x/a/b.PNG?s=1"}))
	assert.Equal(t, "banner.jpg", fileName(job{kind: database.ImageKindBanner, url: "http://x/noext"}))
	assert.Equal(t, "preview_04.webp", fileName(job{kind: database.ImageKindPreview, url: "http://x/p.webp", position: 4}))
	assert.Equal(t, "video_01.mp4", fileName(job{kind: database.ImageKindVideo, url: "http://x/v", position: 1}))
}
