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

// Package refsync applies versioned reference catalog batches from an
// external feed.
package refsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/database"
)

var (
	ErrExternalService = errors.New("reference feed failure")
	ErrSyncInProgress  = errors.New("reference sync already in progress")
)

// Feed delivers every batch stamped after the given stamp.
type Feed interface {
	Batches(ctx context.Context, after int64) ([]database.ReferenceBatch, error)
}

type Store interface {
	LastAppliedUpdate(ctx context.Context) (int64, error)
	SyncReferenceCatalog(ctx context.Context, batch *database.ReferenceBatch) error
}

type Result struct {
	Applied   []int64 `json:"applied"`
	Skipped   int     `json:"skipped"`
	Entries   int     `json:"entries"`
	LastStamp int64   `json:"lastStamp"`
}

type Syncer struct {
	store   Store
	running atomic.Bool
}

func NewSyncer(store Store) *Syncer {
	return &Syncer{store: store}
}

// Sync applies the feed's batches newer than the last applied stamp, oldest
// first. Each batch commits on its own, so a failure leaves earlier batches
// applied and the next Sync resumes after them.
func (s *Syncer) Sync(ctx context.Context, feed Feed) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Result{}, ErrSyncInProgress
	}
	defer s.running.Store(false)

	last, err := s.store.LastAppliedUpdate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read last applied update: %w", err)
	}
	res := Result{LastStamp: last}

	batches, err := feed.Batches(ctx, last)
	if err != nil {
		return res, err
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].Stamp < batches[j].Stamp
	})

	for i := range batches {
		b := &batches[i]
		if b.Stamp <= res.LastStamp {
			res.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("sync interrupted: %w", err)
		}
		if err := validateBatch(b); err != nil {
			return res, err
		}
		if err := s.store.SyncReferenceCatalog(ctx, b); err != nil {
			return res, fmt.Errorf("failed to apply batch %d: %w", b.Stamp, err)
		}
		log.Info().Int64("stamp", b.Stamp).Int("entries", len(b.Entries)).Msg("applied reference batch")
		res.Applied = append(res.Applied, b.Stamp)
		res.Entries += len(b.Entries)
		res.LastStamp = b.Stamp
	}
	return res, nil
}

func validateBatch(b *database.ReferenceBatch) error {
	for i := range b.Entries {
		e := &b.Entries[i]
		if e.RefID <= 0 || strings.TrimSpace(e.Title) == "" {
			return fmt.Errorf("%w: batch %d: entry %d has no id or title", ErrExternalService, b.Stamp, i)
		}
	}
	for i := range b.Threads {
		if b.Threads[i].RefID <= 0 {
			return fmt.Errorf("%w: batch %d: thread %d has no id", ErrExternalService, b.Stamp, i)
		}
	}
	return nil
}
