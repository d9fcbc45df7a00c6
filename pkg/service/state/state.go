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

package state

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/api/models"
	"github.com/towerwatchman/atlas/pkg/helpers/syncutil"
)

// NotificationBuffer leaves headroom for bursts of scan progress without
// dropping the done events.
const NotificationBuffer = 500

// State holds the runtime state of the service.
//
// Never send on Notifications while holding mu.
type State struct {
	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	Notifications chan<- models.Notification
	scanCancel    context.CancelFunc
	scanID        string
	mu            syncutil.RWMutex
	stopService   bool
}

func NewState() (state *State, notificationCh <-chan models.Notification) {
	ns := make(chan models.Notification, NotificationBuffer)
	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	return &State{
		Notifications: ns,
		ctx:           ctx,
		ctxCancelFunc: ctxCancelFunc,
	}, ns
}

// GetContext is cancelled when the service stops. Background jobs derive
// from it.
func (s *State) GetContext() context.Context {
	return s.ctx
}

func (s *State) StopService() {
	s.mu.Lock()
	s.stopService = true
	s.mu.Unlock()
	s.ctxCancelFunc()
}

func (s *State) ShouldStopService() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopService
}

// BeginScan registers a new scan session. ok is false if one is already
// running. The returned context is cancelled by CancelScan or by stopping
// the service.
func (s *State) BeginScan() (id string, ctx context.Context, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanCancel != nil {
		return s.scanID, nil, false
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.scanID = uuid.New().String()
	s.scanCancel = cancel
	log.Debug().Str("session", s.scanID).Msg("scan session started")
	return s.scanID, ctx, true
}

// EndScan releases the session if id is still the active one.
func (s *State) EndScan(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanID != id || s.scanCancel == nil {
		return
	}
	s.scanCancel()
	s.scanCancel = nil
	s.scanID = ""
}

// CancelScan cancels the running scan session, if any, and returns its ID.
func (s *State) CancelScan() (string, bool) {
	s.mu.RLock()
	id, cancel := s.scanID, s.scanCancel
	s.mu.RUnlock()
	if cancel == nil {
		return "", false
	}
	cancel()
	return id, true
}

func (s *State) ActiveScan() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanID, s.scanCancel != nil
}
