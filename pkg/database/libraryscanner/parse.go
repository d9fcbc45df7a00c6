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

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultVersion is used when a name carries no version number.
const DefaultVersion = "1.0"

var (
	bracketRe = regexp.MustCompile(`\[([^\]]*)\]`)
	numberRe  = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// PathInfo is what a scan unit's path says about the game it holds.
type PathInfo struct {
	Title   string
	Creator string
	Version string
	Engine  string
}

// ParseName splits a directory or file name into title and version.
// Bracketed annotations lose their brackets, the name is split on hyphens
// and the last part that is an integer or decimal number is the version;
// the parts before it form the title. Dotted labels such as "1.2.3" are not
// numbers. Without a numeric part the whole name is the title.
//
//	ParseName("My Game-1.5")     == ("My Game", "1.5")
//	ParseName("[Tag] Title-2")   == ("Tag Title", "2")
//	ParseName("Some Title")      == ("Some Title", "1.0")
//	ParseName("Game-1.2.3")      == ("Game 1.2.3", "1.0")
func ParseName(name string) (title, version string) {
	title, version, _ = parseName(name)
	return title, version
}

// parseName is ParseName that also reports whether the name carried a
// version number.
func parseName(name string) (title, version string, ok bool) {
	name = bracketRe.ReplaceAllString(name, "$1")

	raw := strings.Split(name, "-")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			parts = append(parts, p)
		}
	}

	for i := len(parts) - 1; i > 0; i-- {
		if numberRe.MatchString(parts[i]) {
			return strings.Join(parts[:i], " "), parts[i], true
		}
	}

	return strings.Join(parts, " "), DefaultVersion, false
}

// Pattern is a parsed folder structure pattern such as
// "{creator}/{title}/{version}".
type Pattern struct {
	segments []patternSegment
}

type patternSegment struct {
	literal     string
	placeholder string
}

const (
	PlaceholderCreator = "creator"
	PlaceholderTitle   = "title"
	PlaceholderVersion = "version"
	PlaceholderEngine  = "engine"
)

// ParsePattern parses a slash separated pattern. Segments written as
// "{name}" are placeholders; anything else must match the path literally.
// An empty pattern returns nil.
func ParsePattern(s string) *Pattern {
	s = strings.Trim(strings.ReplaceAll(strings.TrimSpace(s), `\`, "/"), "/")
	if s == "" {
		return nil
	}
	p := &Pattern{}
	for _, seg := range strings.Split(s, "/") {
		seg = strings.TrimSpace(seg)
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") && len(seg) > 2 {
			p.segments = append(p.segments, patternSegment{
				placeholder: strings.ToLower(seg[1 : len(seg)-1]),
			})
			continue
		}
		p.segments = append(p.segments, patternSegment{literal: seg})
	}
	return p
}

// Apply maps relative path segments onto the pattern. ok is false when the
// segment count or a literal segment does not match, which means the
// pattern does not apply to this path.
func (p *Pattern) Apply(segments []string) (info PathInfo, ok bool) {
	if p == nil || len(segments) != len(p.segments) {
		return PathInfo{}, false
	}
	for i, seg := range p.segments {
		value := strings.TrimSpace(segments[i])
		switch seg.placeholder {
		case "":
			if !strings.EqualFold(seg.literal, value) {
				return PathInfo{}, false
			}
		case PlaceholderCreator:
			info.Creator = value
		case PlaceholderTitle:
			info.Title = value
		case PlaceholderVersion:
			info.Version = value
		case PlaceholderEngine:
			info.Engine = value
		}
	}
	if info.Version == "" {
		info.Version = DefaultVersion
	}
	return info, true
}

// splitRel returns the segments of path relative to root. File names lose
// their extension.
func splitRel(root, path string, isFile bool) ([]string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, err //nolint:wrapcheck // caller logs the unit path
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	if isFile {
		last := segments[len(segments)-1]
		segments[len(segments)-1] = strings.TrimSuffix(last, filepath.Ext(last))
	}
	return segments, nil
}

// ParsePath derives title, creator and version for a unit. The pattern is
// used when it applies, otherwise the last segment is parsed heuristically.
// A file whose name has no version takes title and version from its folder
// when the folder name has one, so "Game-1.5/game.exe" is Game 1.5.
func ParsePath(pattern *Pattern, root, path string, isFile bool) (PathInfo, error) {
	segments, err := splitRel(root, path, isFile)
	if err != nil {
		return PathInfo{}, err
	}
	if info, ok := pattern.Apply(segments); ok {
		return info, nil
	}
	title, version, ok := parseName(segments[len(segments)-1])
	if !ok && isFile && len(segments) > 1 {
		if dirTitle, dirVersion, dirOK := parseName(segments[len(segments)-2]); dirOK && dirTitle != "" {
			return PathInfo{Title: dirTitle, Version: dirVersion}, nil
		}
	}
	return PathInfo{Title: title, Version: version}, nil
}
