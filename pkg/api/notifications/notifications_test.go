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

package notifications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/towerwatchman/atlas/pkg/api/models"
	"github.com/towerwatchman/atlas/pkg/database/libraryscanner"
	"github.com/towerwatchman/atlas/pkg/refsync"
)

func TestSendDoesNotBlock(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification)
	done := make(chan struct{})
	go func() {
		ScanProgress(ns, models.ScanProgressParams{SessionID: "s"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("send blocked on an unbuffered channel")
	}
}

func TestScanCandidatePayload(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	ScanCandidate(ns, models.ScanCandidateParams{
		SessionID: "abc",
		Candidate: libraryscanner.Candidate{Title: "Eternum", Version: "0.5", Selected: -1},
	})

	n := <-ns
	assert.Equal(t, models.NotificationScanCandidate, n.Method)

	var got map[string]any
	require.NoError(t, json.Unmarshal(n.Params, &got))
	assert.Equal(t, "abc", got["sessionId"])
	assert.Equal(t, "Eternum", got["title"])
	assert.Equal(t, "0.5", got["version"])
}

func TestSyncDonePayload(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	SyncDone(ns, models.SyncDoneParams{
		SessionID: "s1",
		Result:    refsync.Result{Applied: []int64{3, 4}, Entries: 10, LastStamp: 4},
	})

	n := <-ns
	assert.Equal(t, models.NotificationSyncDone, n.Method)
	assert.JSONEq(t,
		`{"sessionId":"s1","applied":[3,4],"skipped":0,"entries":10,"lastStamp":4}`,
		string(n.Params))
}

func TestSendDropsWhenFull(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	ScanDone(ns, models.ScanDoneParams{SessionID: "first"})
	ImportDone(ns, models.ImportDoneParams{SessionID: "second"})
	ImportProgress(ns, models.ImportProgressParams{SessionID: "third"})

	n := <-ns
	assert.Equal(t, models.NotificationScanDone, n.Method)
	assert.Empty(t, ns)
}
