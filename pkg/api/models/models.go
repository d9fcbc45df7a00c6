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

package models

import "encoding/json"

const (
	MethodLibraryScan       = "library.scan"
	MethodLibraryScanCancel = "library.scan.cancel"
	MethodLibraryImport     = "library.import"
	MethodReferenceSearch   = "reference.search"
	MethodReferenceSync     = "reference.sync"
	MethodGames             = "games"
	MethodGamesGet          = "games.get"
	MethodGamesRemove       = "games.remove"
	MethodGamesUpdate       = "games.update"
	MethodVersionsUpdate    = "versions.update"
	MethodMappingsNew       = "mappings.new"
	MethodVersion           = "version"
)

const (
	NotificationScanCandidate  = "library.scan.candidate"
	NotificationScanProgress   = "library.scan.progress"
	NotificationScanDone       = "library.scan.done"
	NotificationImportProgress = "library.import.progress"
	NotificationImportDone     = "library.import.done"
	NotificationSyncDone       = "reference.sync.done"
)

type Notification struct {
	Method string
	Params json.RawMessage
}

type RequestObject struct {
	ID      *RPCID          `json:"id,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NotificationObject is a server-sent JSON-RPC notification. It has no ID.
type NotificationObject struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResponseObject struct {
	JSONRPC string `json:"jsonrpc"`
	ID      RPCID  `json:"id"`
	Result  any    `json:"result"`
}

// ResponseErrorObject omits result so error responses carry only error.
type ResponseErrorObject struct {
	Error   *ErrorObject `json:"error"`
	JSONRPC string       `json:"jsonrpc"`
	ID      RPCID        `json:"id"`
}
