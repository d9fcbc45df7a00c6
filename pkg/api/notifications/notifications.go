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

	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/api/models"
)

// send never blocks. A full channel drops the notification.
func send(ns chan<- models.Notification, method string, payload any) {
	var params json.RawMessage
	if payload != nil {
		var err error
		params, err = json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("error marshalling notification params")
			return
		}
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification channel full, dropping notification")
	}
}

func ScanCandidate(ns chan<- models.Notification, payload models.ScanCandidateParams) {
	send(ns, models.NotificationScanCandidate, payload)
}

func ScanProgress(ns chan<- models.Notification, payload models.ScanProgressParams) {
	send(ns, models.NotificationScanProgress, payload)
}

func ScanDone(ns chan<- models.Notification, payload models.ScanDoneParams) {
	send(ns, models.NotificationScanDone, payload)
}

func ImportProgress(ns chan<- models.Notification, payload models.ImportProgressParams) {
	send(ns, models.NotificationImportProgress, payload)
}

func ImportDone(ns chan<- models.Notification, payload models.ImportDoneParams) {
	send(ns, models.NotificationImportDone, payload)
}

func SyncDone(ns chan<- models.Notification, payload models.SyncDoneParams) {
	send(ns, models.NotificationSyncDone, payload)
}
