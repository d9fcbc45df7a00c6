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

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(fs afero.Fs) *Client {
	c := NewClient()
	c.Fs = fs
	return c
}

func TestDownloadFile(t *testing.T) {
	t.Parallel()

	agent := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent <- r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("banner-bytes"))
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	c := newTestClient(fs)

	err := c.DownloadFile(context.Background(), DownloadFileArgs{
		URL:        srv.URL + "/banner.jpg",
		OutputPath: "/data/images/1/banner.jpg",
		TempPath:   "/data/images/1/banner.jpg.part",
	})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/data/images/1/banner.jpg")
	require.NoError(t, err)
	assert.Equal(t, "banner-bytes", string(data))
	assert.Equal(t, UserAgent, <-agent)

	exists, err := afero.Exists(fs, "/data/images/1/banner.jpg.part")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDownloadFileBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	err := newTestClient(fs).DownloadFile(context.Background(), DownloadFileArgs{
		URL:        srv.URL,
		OutputPath: "/out.jpg",
	})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)

	exists, _ := afero.Exists(fs, "/out.jpg")
	assert.False(t, exists)
}

func TestGetJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"atlas","count":3}`))
	}))
	defer srv.Close()

	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, NewClient().GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "atlas", out.Name)
	assert.Equal(t, 3, out.Count)
}

func TestGetJSONMalformed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := NewClient().GetJSON(context.Background(), srv.URL, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error decoding response")
}
