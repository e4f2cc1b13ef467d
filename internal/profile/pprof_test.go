// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"bytes"
	"testing"

	"github.com/dotandev/wasmdbg/internal/debugger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepsToPprof_NoSteps(t *testing.T) {
	_, err := StepsToPprof(nil, "test.wasm")
	assert.Error(t, err)
}

func TestStepsToPprof_SingleFunction(t *testing.T) {
	steps := []debugger.StepResult{
		{State: debugger.Stepping, FunctionName: "transfer", InstrIndex: 0, Text: "local.get 0"},
		{State: debugger.Stepping, FunctionName: "transfer", InstrIndex: 1, Text: "i32.const 1"},
	}

	p, err := StepsToPprof(steps, "test.wasm")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Len(t, p.SampleType, 1)
	assert.Equal(t, SampleTypeInstructions, p.SampleType[0].Type)
	assert.Equal(t, SampleUnitCount, p.SampleType[0].Unit)
	require.Len(t, p.Sample, 2)
	assert.Equal(t, []int64{1}, p.Sample[0].Value)
	assert.Len(t, p.Function, 1)
	assert.Len(t, p.Location, 1)
}

func TestStepsToPprof_MultipleFunctions(t *testing.T) {
	steps := []debugger.StepResult{
		{FunctionName: "foo", InstrIndex: 0},
		{FunctionName: "bar", InstrIndex: 0},
		{FunctionName: "foo", InstrIndex: 1},
	}

	p, err := StepsToPprof(steps, "test.wasm")
	require.NoError(t, err)
	require.Len(t, p.Sample, 3)
	assert.Len(t, p.Function, 2)
	assert.Len(t, p.Location, 2)
}

func TestStepsToPprof_WithSourceLine(t *testing.T) {
	steps := []debugger.StepResult{
		{FunctionName: "foo", InstrIndex: 0, File: "main.c", Line: 42, HasLine: true},
	}

	p, err := StepsToPprof(steps, "test.wasm")
	require.NoError(t, err)
	require.Len(t, p.Function, 1)
	assert.Equal(t, "main.c", p.Function[0].Filename)
	assert.Equal(t, int64(42), p.Function[0].StartLine)
}

func TestWritePprof(t *testing.T) {
	steps := []debugger.StepResult{
		{FunctionName: "foo", InstrIndex: 0},
	}

	var buf bytes.Buffer
	err := WritePprof(steps, "test.wasm", &buf)
	require.NoError(t, err)
	assert.Greater(t, buf.Len(), 0)
}
