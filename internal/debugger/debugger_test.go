// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package debugger

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalModule is a valid, empty WebAssembly module: just the magic
// number and version, no sections at all.
func minimalModule() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
}

func loadMinimal(t *testing.T) *Debugger {
	t.Helper()
	dbg, err := Load(context.Background(), minimalModule())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbg.Close() })
	return dbg
}

func TestLoad_StartsIdle(t *testing.T) {
	dbg := loadMinimal(t)
	assert.Equal(t, Idle, dbg.State())
}

func TestLoad_RejectsGarbage(t *testing.T) {
	_, err := Load(context.Background(), []byte("not wasm"))
	assert.Error(t, err)
}

func TestRun_TransitionsToRunning(t *testing.T) {
	dbg := loadMinimal(t)
	res, err := dbg.Run()
	require.NoError(t, err)
	assert.Equal(t, Running, res.State)
	assert.Equal(t, Running, dbg.State())
}

func TestStep_BeforeRunReportsError(t *testing.T) {
	dbg := loadMinimal(t)
	_, err := dbg.Step()
	assert.Error(t, err)
}

func TestStep_OnEmptyModuleTerminates(t *testing.T) {
	dbg := loadMinimal(t)
	_, err := dbg.Run()
	require.NoError(t, err)

	res, err := dbg.Step()
	require.NoError(t, err)
	assert.Equal(t, Terminated, res.State)
	assert.Equal(t, Terminated, dbg.State())
}

func TestStep_AfterTerminatedReportsError(t *testing.T) {
	dbg := loadMinimal(t)
	_, _ = dbg.Run()
	_, _ = dbg.Step()
	require.Equal(t, Terminated, dbg.State())

	_, err := dbg.Step()
	assert.Error(t, err)
}

func TestContinue_OnEmptyModuleTerminates(t *testing.T) {
	dbg := loadMinimal(t)
	_, err := dbg.Run()
	require.NoError(t, err)

	res, err := dbg.Continue()
	require.NoError(t, err)
	assert.Equal(t, Terminated, res.State)
}

func TestQuit_ForcesTerminated(t *testing.T) {
	dbg := loadMinimal(t)
	_, _ = dbg.Run()
	dbg.Quit()
	assert.Equal(t, Terminated, dbg.State())
}

func TestBreak_IsIdempotentAndSorted(t *testing.T) {
	dbg := loadMinimal(t)
	dbg.Break("zeta")
	dbg.Break("alpha")
	dbg.Break("alpha")
	assert.Equal(t, []string{"alpha", "zeta"}, dbg.Breakpoints())
}

func TestSymbols_EmptyModuleReturnsNone(t *testing.T) {
	dbg := loadMinimal(t)
	assert.Empty(t, dbg.Symbols(""))
}

func TestPrint_UnknownNameReportsError(t *testing.T) {
	dbg := loadMinimal(t)
	_, err := dbg.Print("nonexistent")
	assert.Error(t, err)
}

func TestMemdump_NoMemoryReportsError(t *testing.T) {
	dbg := loadMinimal(t)
	_, err := dbg.Memdump("nonexistent", 16)
	assert.Error(t, err)
}

func TestDisassemble_UnknownFunctionReportsError(t *testing.T) {
	dbg := loadMinimal(t)
	_, err := dbg.Disassemble("nonexistent")
	assert.Error(t, err)
}

func TestHexdump_SingleLine(t *testing.T) {
	out := Hexdump(0x10, []byte("hi"))
	assert.Equal(t, "0x0010: 68 69  |hi|", out)
}

func TestHexdump_SpecScenario2_PartialLineNotPadded(t *testing.T) {
	// spec.md §8 scenario 2.
	out := Hexdump(0x400, []byte{0x01, 0x00})
	assert.Equal(t, "0x0400: 01 00  |..|", out)
}

func TestHexdump_MultiLine(t *testing.T) {
	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i)
	}
	out := Hexdump(0, data)
	assert.Contains(t, out, "0x0000:")
	assert.Contains(t, out, "0x0010:")
}

func TestHexdump_MultiLine_InteriorLinePadded_LastLinePartial(t *testing.T) {
	data := make([]byte, 18)
	for i := range data {
		data[i] = byte(i)
	}
	out := Hexdump(0, data)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "0x0000: 00 01 02 03 04 05 06 07 08 09 0a 0b 0c 0d 0e 0f  |................|", lines[0])
	assert.Equal(t, "0x0010: 10 11  |..|", lines[1])
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "Running", Running.String())
	assert.Equal(t, "AtBreakpoint", AtBreakpoint.String())
	assert.Equal(t, "Stepping", Stepping.String())
	assert.Equal(t, "Terminated", Terminated.String())
}

func TestSymbolKind_String(t *testing.T) {
	assert.Equal(t, "function", SymbolFunction.String())
	assert.Equal(t, "global", SymbolGlobal.String())
	assert.Equal(t, "table", SymbolTable.String())
	assert.Equal(t, "memory", SymbolMemory.String())
}
