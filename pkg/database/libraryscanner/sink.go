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

import "github.com/rs/zerolog/log"

// Sink receives scan events as they happen.
type Sink interface {
	Candidate(c Candidate)
	Progress(p Progress)
}

// ChanSink forwards events to channels without blocking the scan. Events
// are dropped when a channel is full; the final Result still holds every
// candidate.
type ChanSink struct {
	Candidates chan<- Candidate
	Updates    chan<- Progress
}

func (s ChanSink) Candidate(c Candidate) {
	if s.Candidates == nil {
		return
	}
	select {
	case s.Candidates <- c:
	default:
		log.Debug().Str("path", c.Path).Msg("candidate event dropped")
	}
}

func (s ChanSink) Progress(p Progress) {
	if s.Updates == nil {
		return
	}
	select {
	case s.Updates <- p:
	default:
	}
}

type discardSink struct{}

func (discardSink) Candidate(Candidate) {}
func (discardSink) Progress(Progress)   {}

// SinkFuncs adapts plain functions to a Sink. Nil fields are skipped.
type SinkFuncs struct {
	OnCandidate func(Candidate)
	OnProgress  func(Progress)
}

func (s SinkFuncs) Candidate(c Candidate) {
	if s.OnCandidate != nil {
		s.OnCandidate(c)
	}
}

func (s SinkFuncs) Progress(p Progress) {
	if s.OnProgress != nil {
		s.OnProgress(p)
	}
}
