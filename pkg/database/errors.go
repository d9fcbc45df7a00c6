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

package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrNullSQL  = errors.New("catalog database is not connected")
)

type StorageKind int

const (
	KindOther StorageKind = iota
	KindNotFound
	KindConflict
	KindBusy
)

func (k StorageKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindBusy:
		return "busy"
	default:
		return "storage failure"
	}
}

// StorageError is returned by catalog writes and reads that fail inside the
// driver. It matches ErrConflict and ErrNotFound with errors.Is.
type StorageError struct {
	Err  error
	Op   string
	Kind StorageKind
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	switch {
	case errors.Is(target, ErrConflict):
		return e.Kind == KindConflict
	case errors.Is(target, ErrNotFound):
		return e.Kind == KindNotFound
	default:
		return false
	}
}

// Retryable is true for lock contention. Unique violations are never
// retryable: the caller used a raw insert where an upsert was expected.
func (e *StorageError) Retryable() bool {
	return e.Kind == KindBusy
}

// ClassifyError wraps a driver error in a StorageError with the matching kind.
// A nil error stays nil.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var existing *StorageError
	if errors.As(err, &existing) {
		return err
	}

	kind := KindOther
	var sqliteErr sqlite3.Error
	switch {
	case errors.Is(err, sql.ErrNoRows):
		kind = KindNotFound
	case errors.As(err, &sqliteErr):
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
				kind = KindConflict
			}
			if sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
				kind = KindNotFound
			}
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			kind = KindBusy
		default:
		}
	}

	return &StorageError{Op: op, Kind: kind, Err: err}
}

// IsRetryable reports whether err is a StorageError caused by lock contention.
func IsRetryable(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return false
}
