// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeULEB(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	var out []byte
	for v > 0 {
		b := byte(v & 0x7f)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func wasmSection(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, encodeULEB(uint64(len(payload)))...)
	return append(out, payload...)
}

// buildAddModule builds a minimal valid wasm module exporting:
//   - memory "memory" (1 page)
//   - global "counter" (mutable i32, initial 0)
//   - function "add" (i32,i32)->i32, returns a+b
func buildAddModule() []byte {
	module := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// Type section: type 0 = (i32,i32)->i32
	typePayload := append(encodeULEB(1), 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f)
	module = append(module, wasmSection(1, typePayload)...)

	// Function section: function 0 uses type 0.
	funcPayload := append(encodeULEB(1), encodeULEB(0)...)
	module = append(module, wasmSection(3, funcPayload)...)

	// Memory section: one memory, min 1 page.
	memPayload := append(encodeULEB(1), 0x00)
	memPayload = append(memPayload, encodeULEB(1)...)
	module = append(module, wasmSection(5, memPayload)...)

	// Global section: one mutable i32 global, init 0.
	globalPayload := encodeULEB(1)
	globalPayload = append(globalPayload, 0x7f, 0x01) // i32, mutable
	globalPayload = append(globalPayload, 0x41, 0x00, 0x0b) // i32.const 0, end
	module = append(module, wasmSection(6, globalPayload)...)

	// Export section: "memory" (memory 0), "counter" (global 0), "add" (func 0).
	exportPayload := encodeULEB(3)
	exportPayload = append(exportPayload, encodeULEB(uint64(len("memory")))...)
	exportPayload = append(exportPayload, []byte("memory")...)
	exportPayload = append(exportPayload, 0x02, 0x00)
	exportPayload = append(exportPayload, encodeULEB(uint64(len("counter")))...)
	exportPayload = append(exportPayload, []byte("counter")...)
	exportPayload = append(exportPayload, 0x03, 0x00)
	exportPayload = append(exportPayload, encodeULEB(uint64(len("add")))...)
	exportPayload = append(exportPayload, []byte("add")...)
	exportPayload = append(exportPayload, 0x00, 0x00)
	module = append(module, wasmSection(7, exportPayload)...)

	// Code section: local.get 0, local.get 1, i32.add, end.
	body := []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}
	codePayload := encodeULEB(1)
	codePayload = append(codePayload, encodeULEB(uint64(len(body)))...)
	codePayload = append(codePayload, body...)
	module = append(module, wasmSection(10, codePayload)...)

	return module
}

func TestInstantiateAndCall(t *testing.T) {
	ctx := context.Background()
	mod := buildAddModule()

	a, err := Instantiate(ctx, mod)
	require.NoError(t, err)
	defer a.Close()

	results, err := a.Call("add", 3, 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(7), results[0])
}

func TestInstantiateMemoryReadWrite(t *testing.T) {
	ctx := context.Background()
	a, err := Instantiate(ctx, buildAddModule())
	require.NoError(t, err)
	defer a.Close()

	require.True(t, a.HasMemory())
	require.NoError(t, a.WriteMemory(0, []byte{1, 2, 3, 4}))

	got, err := a.ReadMemory(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestGetSetGlobal(t *testing.T) {
	ctx := context.Background()
	a, err := Instantiate(ctx, buildAddModule())
	require.NoError(t, err)
	defer a.Close()

	v, err := a.GetGlobal("counter")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)

	require.NoError(t, a.SetGlobal("counter", 42))
	v, err = a.GetGlobal("counter")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)
}

func TestCallInitSequence_NoCandidates(t *testing.T) {
	ctx := context.Background()
	a, err := Instantiate(ctx, buildAddModule())
	require.NoError(t, err)
	defer a.Close()

	ran, err := a.CallInitSequence()
	require.NoError(t, err)
	assert.Empty(t, ran)
}

func TestSnapshotMemoryIndependentOfLiveWrites(t *testing.T) {
	ctx := context.Background()
	a, err := Instantiate(ctx, buildAddModule())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.WriteMemory(0, []byte{9}))
	snap, err := a.SnapshotMemory()
	require.NoError(t, err)

	require.NoError(t, a.WriteMemory(0, []byte{99}))
	assert.Equal(t, byte(9), snap[0])
}

func TestResolveSymbolAddress_FallsBackToGlobal(t *testing.T) {
	ctx := context.Background()
	a, err := Instantiate(ctx, buildAddModule())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.SetGlobal("counter", 0x1000))
	addr, err := a.ResolveSymbolAddress("counter")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), addr)
}
