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
	"errors"
	"strings"

	"github.com/spf13/afero"
	"github.com/towerwatchman/atlas/pkg/shared/httpclient"
)

var ErrNoFeed = errors.New("no reference feed configured")

// Source names where reference batches come from. File wins over URL.
type Source struct {
	Fs     afero.Fs
	Client *httpclient.Client
	URL    string
	File   string
}

func (s Source) Feed() (Feed, error) {
	switch {
	case strings.TrimSpace(s.File) != "":
		fs := s.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return &CSVFeed{Fs: fs, Path: s.File}, nil
	case strings.TrimSpace(s.URL) != "":
		return &HTTPFeed{Client: s.Client, URL: s.URL}, nil
	default:
		return nil, ErrNoFeed
	}
}
