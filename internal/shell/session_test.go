// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"bytes"
	"context"
	"testing"

	"github.com/dotandev/wasmdbg/internal/debugger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalModule() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
}

func newTestSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()
	dbg, err := debugger.Load(context.Background(), minimalModule())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbg.Close() })

	var out bytes.Buffer
	return NewSession(dbg, &out), &out
}

func TestDispatch_Quit(t *testing.T) {
	s, _ := newTestSession(t)
	done := s.Dispatch("quit")
	assert.True(t, done)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	s, out := newTestSession(t)
	done := s.Dispatch("frobnicate")
	assert.False(t, done)
	assert.Contains(t, out.String(), "unknown command")
}

func TestDispatch_BreakRecordsName(t *testing.T) {
	s, out := newTestSession(t)
	s.Dispatch("break main")
	assert.Contains(t, out.String(), "Breakpoint set on main")

	out.Reset()
	s.Dispatch("breakpoints")
	assert.Contains(t, out.String(), "main")
}

func TestDispatch_PrintMissingVariableReportsError(t *testing.T) {
	s, out := newTestSession(t)
	s.Dispatch("print nonexistent")
	assert.NotEmpty(t, out.String())
	assert.Error(t, s.Summary().LastError)
}

func TestDispatch_PrintRequiresArgument(t *testing.T) {
	s, out := newTestSession(t)
	s.Dispatch("print")
	assert.Contains(t, out.String(), "usage: print")
}

func TestDispatch_RunOnEmptyModuleReportsState(t *testing.T) {
	s, out := newTestSession(t)
	s.Dispatch("run")
	assert.Contains(t, out.String(), "[Running]")
}

func TestSummary_TracksCommandCount(t *testing.T) {
	s, _ := newTestSession(t)
	s.Dispatch("symbols")
	s.Dispatch("symbols")
	assert.Equal(t, 2, s.Summary().CommandCount)
}
