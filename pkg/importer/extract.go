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

package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/towerwatchman/atlas/pkg/helpers"
	"github.com/towerwatchman/atlas/pkg/helpers/command"
)

const (
	archivePlaceholder = "{archive}"
	destPlaceholder    = "{dest}"
)

var ErrExtractFailed = errors.New("archive extraction failed")

// CommandExtractor unpacks archives by running an external tool such as
// 7z or unzip. Each archive goes to DestRoot/<archive name without ext>.
type CommandExtractor struct {
	Exec     command.Executor
	DestRoot string
	// Command is the program followed by its arguments, with {archive}
	// and {dest} substituted.
	Command []string
}

func NewCommandExtractor(cmd []string, destRoot string) (*CommandExtractor, error) {
	if len(cmd) == 0 || strings.TrimSpace(cmd[0]) == "" {
		return nil, ErrNoExtractor
	}
	return &CommandExtractor{
		Exec:     &command.RealExecutor{},
		Command:  cmd,
		DestRoot: destRoot,
	}, nil
}

func (e *CommandExtractor) Extract(ctx context.Context, archivePath string) (string, error) {
	base := filepath.Base(archivePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." {
		return "", fmt.Errorf("%w: unusable archive name: %s", ErrExtractFailed, archivePath)
	}
	dest := filepath.Join(e.DestRoot, name)
	if !helpers.PathHasPrefix(dest, e.DestRoot) {
		return "", fmt.Errorf("%w: destination escapes extract dir: %s", ErrExtractFailed, dest)
	}

	args := make([]string, 0, len(e.Command)-1)
	for _, a := range e.Command[1:] {
		a = strings.ReplaceAll(a, archivePlaceholder, archivePath)
		a = strings.ReplaceAll(a, destPlaceholder, dest)
		args = append(args, a)
	}

	log.Info().Str("archive", archivePath).Str("dest", dest).Msg("extracting archive")
	out, err := e.Exec.CombinedOutput(ctx, e.Command[0], args...)
	if err != nil {
		log.Debug().Str("output", string(out)).Msg("extractor output")
		return "", fmt.Errorf("%w: %s: %w", ErrExtractFailed, archivePath, err)
	}
	return dest, nil
}
