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
	"net/url"
	"strconv"

	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/shared/httpclient"
)

// HTTPFeed fetches batches from a JSON endpoint:
//
//	GET <URL>?after=<stamp>
//	{"batches":[{"stamp":1,"entries":[...],"threads":[...]}]}
type HTTPFeed struct {
	Client *httpclient.Client
	URL    string
}

type feedResponse struct {
	Batches []database.ReferenceBatch `json:"batches"`
}

func (f *HTTPFeed) Batches(ctx context.Context, after int64) ([]database.ReferenceBatch, error) {
	u, err := url.Parse(f.URL)
	if err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("%w: invalid feed url %q", ErrExternalService, f.URL)
	}
	q := u.Query()
	q.Set("after", strconv.FormatInt(after, 10))
	u.RawQuery = q.Encode()

	client := f.Client
	if client == nil {
		client = httpclient.NewClient()
	}

	var resp feedResponse
	if err := client.GetJSON(ctx, u.String(), &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExternalService, err)
	}
	return resp.Batches, nil
}
