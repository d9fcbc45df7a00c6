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
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/spf13/afero"
)

// FolderSize sums the size of every regular file under root. The OS
// filesystem is walked in parallel.
func FolderSize(afs afero.Fs, root string) (int64, error) {
	if _, ok := afs.(*afero.OsFs); ok {
		return osFolderSize(root)
	}

	var total int64
	err := afero.Walk(afs, root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return total, nil
}

func osFolderSize(root string) (int64, error) {
	var total atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // file vanished mid-walk
		}
		total.Add(info.Size())
		return nil
	})
	if err != nil {
		return total.Load(), fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return total.Load(), nil
}
