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

package helpers

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/towerwatchman/atlas/pkg/helpers/command"
)

// MockCommandExecutor is a testify mock of command.Executor. Expectations
// receive the arguments as a []string, not variadic.
type MockCommandExecutor struct {
	mock.Mock
}

var _ command.Executor = (*MockCommandExecutor)(nil)

// NewMockCommandExecutor returns a MockCommandExecutor where every call
// succeeds unless overridden. Clear ExpectedCalls before setting exact ones:
//
//	cmd := helpers.NewMockCommandExecutor()
//	cmd.ExpectedCalls = nil
//	cmd.On("CombinedOutput", mock.Anything, "7z", []string{"x", "a.7z"}).Return([]byte{}, nil)
func NewMockCommandExecutor() *MockCommandExecutor {
	cmd := &MockCommandExecutor{}
	cmd.On("Run", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil).Maybe()
	cmd.On("CombinedOutput", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return([]byte{}, nil).Maybe()
	return cmd
}

func (m *MockCommandExecutor) Run(ctx context.Context, name string, args ...string) error {
	called := m.Called(ctx, name, args)
	//nolint:wrapcheck // mock
	return called.Error(0)
}

func (m *MockCommandExecutor) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	called := m.Called(ctx, name, args)
	out, _ := called.Get(0).([]byte)
	//nolint:wrapcheck // mock
	return out, called.Error(1)
}
