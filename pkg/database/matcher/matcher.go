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

// Package matcher finds reference catalog entries for a free-text title and
// creator using progressively looser strategies.
package matcher

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/database/slugs"
)

// Tier identifies which strategy produced a result.
type Tier int

const (
	TierNone Tier = iota
	TierTitleCreator
	TierShortName
	TierFullName
	TierTitle
)

func (t Tier) String() string {
	switch t {
	case TierTitleCreator:
		return "title+creator"
	case TierShortName:
		return "short name"
	case TierFullName:
		return "full name"
	case TierTitle:
		return "title"
	default:
		return "union"
	}
}

type Matcher struct {
	src database.ReferenceSearcher
}

func New(src database.ReferenceSearcher) *Matcher {
	return &Matcher{src: src}
}

type tier struct {
	query func(ctx context.Context) ([]database.ReferenceEntry, error)
	// name selects the normalized column that proximity tiers rank by. Nil
	// keeps query order.
	name   func(e *database.ReferenceEntry) string
	rankBy string
	id     Tier
}

// Search runs the tiers in order and returns the first tier that has a
// candidate with a secondary identifier, preferring those candidates. When
// no tier does, it returns every candidate seen, deduplicated by reference
// id in first-seen order. Each tier queries the store at most once.
func (m *Matcher) Search(ctx context.Context, title, creator string) ([]database.ReferenceCandidate, error) {
	results, _, err := m.SearchTier(ctx, title, creator)
	return results, err
}

// SearchTier is Search that also reports the tier the results came from.
func (m *Matcher) SearchTier(
	ctx context.Context,
	title, creator string,
) ([]database.ReferenceCandidate, Tier, error) {
	title = strings.TrimSpace(title)
	creator = strings.TrimSpace(creator)
	if title == "" {
		return []database.ReferenceCandidate{}, TierNone, nil
	}

	seen := make(map[int64]struct{})
	union := make([]database.ReferenceCandidate, 0)

	for _, t := range m.tiers(title, creator) {
		if err := ctx.Err(); err != nil {
			return nil, TierNone, fmt.Errorf("reference search cancelled: %w", err)
		}

		rows, err := t.query(ctx)
		if err != nil {
			return nil, TierNone, fmt.Errorf("reference search %s: %w", t.id, err)
		}
		if t.name != nil {
			rankByProximity(rows, t.rankBy, t.name)
		}

		candidates := m.enrich(ctx, rows)
		if preferred, ok := preferThreaded(candidates); ok {
			log.Debug().
				Str("title", title).
				Str("creator", creator).
				Stringer("tier", t.id).
				Int("results", len(preferred)).
				Msg("reference match")
			return preferred, t.id, nil
		}

		for _, c := range candidates {
			if _, dup := seen[c.RefID]; dup {
				continue
			}
			seen[c.RefID] = struct{}{}
			union = append(union, c)
		}
	}

	return union, TierNone, nil
}

func (m *Matcher) tiers(title, creator string) []tier {
	shortName := slugs.ShortName(title)
	fullName := slugs.FullName(title, creator)

	tiers := []tier{{
		id: TierTitleCreator,
		query: func(ctx context.Context) ([]database.ReferenceEntry, error) {
			//nolint:wrapcheck // wrapped by caller with tier name
			return m.src.SearchReferenceByTitleCreator(ctx, title, creator)
		},
	}}
	if shortName != "" {
		tiers = append(tiers, tier{
			id:     TierShortName,
			rankBy: shortName,
			name:   func(e *database.ReferenceEntry) string { return e.ShortName },
			query: func(ctx context.Context) ([]database.ReferenceEntry, error) {
				//nolint:wrapcheck // wrapped by caller with tier name
				return m.src.SearchReferenceByShortName(ctx, shortName)
			},
		})
	}
	if fullName != "" {
		tiers = append(tiers, tier{
			id:     TierFullName,
			rankBy: fullName,
			name:   func(e *database.ReferenceEntry) string { return e.FullName },
			query: func(ctx context.Context) ([]database.ReferenceEntry, error) {
				//nolint:wrapcheck // wrapped by caller with tier name
				return m.src.SearchReferenceByFullName(ctx, fullName)
			},
		})
	}
	return append(tiers, tier{
		id: TierTitle,
		query: func(ctx context.Context) ([]database.ReferenceEntry, error) {
			//nolint:wrapcheck // wrapped by caller with tier name
			return m.src.SearchReferenceByTitle(ctx, title)
		},
	})
}

// enrich looks up each row's secondary identifier. A failed lookup is
// logged and leaves the identifier empty.
func (m *Matcher) enrich(ctx context.Context, rows []database.ReferenceEntry) []database.ReferenceCandidate {
	candidates := make([]database.ReferenceCandidate, 0, len(rows))
	for _, row := range rows {
		c := database.ReferenceCandidate{ReferenceEntry: row}
		thread, err := m.src.GetReferenceThread(ctx, row.RefID)
		if err != nil {
			log.Warn().Err(err).Int64("ref_id", row.RefID).Msg("failed to look up reference thread")
		} else {
			c.ThreadID = thread.ThreadID
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// preferThreaded returns the candidates with a secondary identifier, or all
// candidates if filtering leaves nothing. ok is false when no candidate has
// one.
func preferThreaded(candidates []database.ReferenceCandidate) ([]database.ReferenceCandidate, bool) {
	filtered := make([]database.ReferenceCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.HasThread() {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return candidates, false
	}
	return filtered, true
}

// rankByProximity orders rows by absolute length difference to the query,
// closest first. Equal distances are broken by Jaro-Winkler similarity.
func rankByProximity(rows []database.ReferenceEntry, query string, nameOf func(*database.ReferenceEntry) string) {
	type ranked struct {
		dist int
		sim  float32
	}
	keys := make(map[int64]ranked, len(rows))
	for i := range rows {
		name := nameOf(&rows[i])
		dist := len(name) - len(query)
		if dist < 0 {
			dist = -dist
		}
		keys[rows[i].RefID] = ranked{
			dist: dist,
			sim:  edlib.JaroWinklerSimilarity(query, name),
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := keys[rows[i].RefID], keys[rows[j].RefID]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		return a.sim > b.sim
	})
}
