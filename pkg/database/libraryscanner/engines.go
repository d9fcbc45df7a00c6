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

import "strings"

type engineRule struct {
	Engine    string
	Fragments []string
}

// engineTable is checked in order and the first rule with a matching
// fragment wins, so more specific runtimes come before generic ones.
var engineTable = []engineRule{
	{Engine: "Unity", Fragments: []string{"unityplayer.dll", "unitycrashhandler"}},
	{Engine: "Unreal Engine", Fragments: []string{"-win64-shipping", "ue4prereq", "ue5prereq"}},
	{Engine: "Ren'Py", Fragments: []string{"renpy.exe", "renpy.sh", ".rpa", "script_version.txt"}},
	{Engine: "RPGM", Fragments: []string{"rpg_rt.exe", ".rgss3a", ".rgss2a", ".rgssad", "rpg_core.js"}},
	{Engine: "Wolf RPG", Fragments: []string{"game.wolf", "data.wolf", "gurugurusmf"}},
	{Engine: "TyranoBuilder", Fragments: []string{"tyrano"}},
	{Engine: "Godot", Fragments: []string{".pck", "godotsharp.dll"}},
	{Engine: "Flash", Fragments: []string{".swf"}},
	{Engine: "Java", Fragments: []string{".jar"}},
	{Engine: "QSP", Fragments: []string{".qsp"}},
	{Engine: "HTML", Fragments: []string{"nw.exe", "nw.dll", "index.html"}},
}

// GuessEngine returns the engine of the first table rule matching any of the
// file names, or "" when nothing matches.
func GuessEngine(fileNames []string) string {
	lowered := make([]string, len(fileNames))
	for i, n := range fileNames {
		lowered[i] = strings.ToLower(n)
	}
	for _, rule := range engineTable {
		for _, name := range lowered {
			for _, frag := range rule.Fragments {
				if strings.Contains(name, frag) {
					return rule.Engine
				}
			}
		}
	}
	return ""
}
