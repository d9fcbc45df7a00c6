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
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/towerwatchman/atlas/pkg/config"
	"github.com/towerwatchman/atlas/pkg/database/libraryscanner"
	"github.com/towerwatchman/atlas/pkg/importer"
	"github.com/towerwatchman/atlas/pkg/service"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API service until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stop, done, err := service.Start(cfg)
			if err != nil {
				return fmt.Errorf("error starting service: %w", err)
			}
			log.Info().Str("listen", cfg.APIListen()).Msg("service started")

			select {
			case <-cmd.Context().Done():
				log.Info().Msg("shutdown requested")
			case <-done:
				log.Warn().Msg("service stopped on its own")
			}
			if err := stop(); err != nil {
				return fmt.Errorf("error stopping service: %w", err)
			}
			return nil
		},
	}
}

func importOptions(cfg *config.Instance) importer.Options {
	d := cfg.ImportDefaults()
	return importer.Options{
		ExecutableExts:    cfg.ExecutableExts(),
		PreviewLimit:      d.PreviewLimit,
		DeleteArchive:     d.DeleteArchive,
		ComputeFolderSize: d.ComputeFolderSize,
		FetchBanner:       d.FetchBanner,
		FetchPreviews:     d.FetchPreviews,
		FetchVideos:       d.FetchVideos,
	}
}

func matchLabel(c *libraryscanner.Candidate) string {
	switch {
	case c.RefID != 0:
		return strconv.FormatInt(c.RefID, 10)
	case len(c.Matches) > 1:
		return fmt.Sprintf("%d matches", len(c.Matches))
	default:
		return "-"
	}
}

// matchedCandidates keeps the candidates the scanner resolved to exactly one
// reference entry. The rest need a choice made by the user.
func matchedCandidates(candidates []libraryscanner.Candidate) []libraryscanner.Candidate {
	matched := make([]libraryscanner.Candidate, 0, len(candidates))
	for i := range candidates {
		if candidates[i].RefID != 0 {
			matched = append(matched, candidates[i])
		}
	}
	return matched
}

func candidatesTable(candidates []libraryscanner.Candidate) string {
	rows := make([][]string, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		rows = append(rows, []string{c.Title, c.Creator, c.Version, c.Engine, matchLabel(c), c.Path})
	}
	return renderTable(
		[]string{"Title", "Creator", "Version", "Engine", "Match", "Path"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func reportTable(report *importer.Report) string {
	rows := make([][]string, 0, len(report.Outcomes))
	for i := range report.Outcomes {
		o := &report.Outcomes[i]
		status := "ok"
		if o.Err != nil {
			status = o.Err.Error()
		} else if o.AssetsErr != nil {
			status = "assets: " + o.AssetsErr.Error()
		}
		rows = append(rows, []string{o.Label, o.VersionLabel, strconv.FormatInt(o.GameID, 10), status})
	}
	return renderTable(
		[]string{"Game", "Version", "ID", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		pattern  string
		archives bool
		doImport bool
		maxDepth int
	)

	cmd := &cobra.Command{
		Use:   "scan <root>",
		Short: "Find games under a library root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLocal(cmd.Context(), func(cfg *config.Instance, local *Local) error {
				opts := libraryscanner.Options{
					Root:           args[0],
					Pattern:        cfg.ScanPattern(),
					ExecutableExts: cfg.ExecutableExts(),
					ArchiveExts:    cfg.ArchiveExts(),
					ArchiveSource:  archives,
					MaxDepth:       cfg.ScanMaxDepth(),
				}
				if cmd.Flags().Changed("pattern") {
					opts.Pattern = pattern
				}
				if maxDepth > 0 {
					opts.MaxDepth = maxDepth
				}

				result, err := local.Scanner.Scan(cmd.Context(), opts, nil)
				if err != nil {
					return fmt.Errorf("scan failed: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(result.Candidates) == 0 {
					_, err = fmt.Fprintln(out, "No new games found.")
					return err
				}
				if _, err = fmt.Fprintln(out, candidatesTable(result.Candidates)); err != nil {
					return err
				}
				if !doImport {
					return nil
				}

				matched := matchedCandidates(result.Candidates)
				if len(matched) == 0 {
					_, err = fmt.Fprintln(out, "No games with a single reference match to import.")
					return err
				}

				report, err := local.Importer.Import(cmd.Context(), matched, importOptions(cfg), nil)
				if _, werr := fmt.Fprintln(out, reportTable(&report)); werr != nil {
					return werr
				}
				var perr *importer.PartialImportError
				if errors.As(err, &perr) {
					return fmt.Errorf("%d of %d games failed to import", perr.Failed, perr.Failed+perr.Succeeded)
				}
				if err != nil {
					return fmt.Errorf("import failed: %w", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "folder pattern such as {creator}/{title}/{version}")
	cmd.Flags().BoolVar(&archives, "archives", false, "treat archives at the root as games")
	cmd.Flags().BoolVar(&doImport, "import", false, "import games with a single reference match")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "deepest folder level to search")

	return cmd
}
