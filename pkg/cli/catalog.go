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

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/towerwatchman/atlas/pkg/config"
	"github.com/towerwatchman/atlas/pkg/database"
	"github.com/towerwatchman/atlas/pkg/refsync"
)

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func gamesTable(games []database.Game) string {
	rows := make([][]string, 0, len(games))
	for i := range games {
		g := &games[i]
		versions := make([]string, 0, len(g.Versions))
		for _, v := range g.Versions {
			versions = append(versions, v.Version)
		}
		ref := "-"
		if g.Reference != nil {
			ref = strconv.FormatInt(g.Reference.RefID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(g.DBID, 10),
			g.Title,
			g.Creator,
			fmt.Sprint(versions),
			ref,
			yesNo(g.UpdateAvailable),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Creator", "Versions", "Reference", "Update"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func newGamesCommand(ctx *commandContext) *cobra.Command {
	var offset, limit int

	cmd := &cobra.Command{
		Use:   "games",
		Short: "List games in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withLocal(cmd.Context(), func(_ *config.Instance, local *Local) error {
				games, err := local.DB.ListGames(cmd.Context(), offset, limit)
				if err != nil {
					return fmt.Errorf("error listing games: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(games) == 0 {
					_, err = fmt.Fprintln(out, "The catalog is empty.")
					return err
				}
				_, err = fmt.Fprintln(out, gamesTable(games))
				return err
			})
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many games")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum games to list")

	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var creator string

	cmd := &cobra.Command{
		Use:   "search <title>",
		Short: "Look up a title in the reference catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLocal(cmd.Context(), func(_ *config.Instance, local *Local) error {
				results, tier, err := local.Matcher.SearchTier(cmd.Context(), args[0], creator)
				if err != nil {
					return fmt.Errorf("reference search failed: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(results) == 0 {
					_, err = fmt.Fprintln(out, "No reference entries found.")
					return err
				}

				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{
						strconv.FormatInt(r.RefID, 10), r.Title, r.Creator, r.Version, r.ThreadID,
					})
				}
				_, err = fmt.Fprintf(out, "%s\nmatched by %s\n", renderTable(
					[]string{"ID", "Title", "Creator", "Version", "Thread"},
					rows,
					[]columnAlignment{alignRight},
				), tier)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&creator, "creator", "", "creator to narrow the search")

	return cmd
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var file, url string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Apply the reference catalog feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withLocal(cmd.Context(), func(cfg *config.Instance, local *Local) error {
				src := refsync.Source{
					Fs:     local.Fs,
					Client: local.HTTP,
					URL:    cfg.ReferenceFeedURL(),
					File:   cfg.ReferenceFeedFile(),
				}
				if cmd.Flags().Changed("url") {
					src.URL = url
					src.File = ""
				}
				if cmd.Flags().Changed("file") {
					src.File = file
				}
				feed, err := src.Feed()
				if err != nil {
					return fmt.Errorf("reference sync: %w", err)
				}

				result, err := local.Syncer.Sync(cmd.Context(), feed)
				if err != nil {
					return fmt.Errorf("reference sync failed: %w", err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(),
					"Applied %d batches with %d entries (%d skipped).\n",
					len(result.Applied), result.Entries, result.Skipped)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "read entries from a CSV file")
	cmd.Flags().StringVar(&url, "url", "", "fetch entries from this feed URL")

	return cmd
}
