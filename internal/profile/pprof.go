// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package profile turns a recorded sequence of debugger step results into a
// pprof-compliant profile, so a debug session's instruction-level activity
// can be inspected with `go tool pprof` (flat/cum views, flame graphs).
package profile

import (
	"fmt"
	"io"

	"github.com/dotandev/wasmdbg/internal/debugger"
	"github.com/google/pprof/profile"
)

const (
	// SampleTypeInstructions is the pprof sample type for instructions executed.
	SampleTypeInstructions = "instructions"
	// SampleUnitCount is the unit for instruction-count samples.
	SampleUnitCount = "count"
)

// StepsToPprof synthesizes a recorded sequence of debugger.StepResult into a
// pprof profile that maps one sample per step to the function it occurred
// in, so hot functions show up under `go tool pprof -top`.
func StepsToPprof(steps []debugger.StepResult, moduleName string) (*profile.Profile, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("profile: no steps recorded")
	}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: SampleTypeInstructions, Unit: SampleUnitCount},
		},
		DefaultSampleType: SampleTypeInstructions,
		Mapping: []*profile.Mapping{
			{ID: 1, Start: 0, Limit: 0, File: moduleName, HasFunctions: true},
		},
		Function: make([]*profile.Function, 0),
		Location: make([]*profile.Location, 0),
		Sample:   make([]*profile.Sample, 0),
	}

	funcByKey := make(map[string]*profile.Function)
	locByKey := make(map[string]*profile.Location)
	mapping := p.Mapping[0]
	var funcID, locID uint64

	nextFuncID := func() uint64 {
		funcID++
		return funcID
	}
	nextLocID := func() uint64 {
		locID++
		return locID
	}

	for i, step := range steps {
		name := step.FunctionName
		if name == "" {
			name = fmt.Sprintf("step_%d", i)
		}

		loc, ok := locByKey[name]
		if !ok {
			fn, ok := funcByKey[name]
			if !ok {
				var filename string
				var startLine int64
				if step.HasLine {
					filename = step.File
					startLine = int64(step.Line)
				}
				fn = &profile.Function{
					ID:        nextFuncID(),
					Name:      name,
					Filename:  filename,
					StartLine: startLine,
				}
				p.Function = append(p.Function, fn)
				funcByKey[name] = fn
			}
			line := int64(step.InstrIndex)
			if step.HasLine {
				line = int64(step.Line)
			}
			loc = &profile.Location{
				ID:      nextLocID(),
				Mapping: mapping,
				Address: step.Offset,
				Line:    []profile.Line{{Function: fn, Line: line}},
			}
			p.Location = append(p.Location, loc)
			locByKey[name] = loc
		}

		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{1},
		})
	}

	if err := p.CheckValid(); err != nil {
		return nil, fmt.Errorf("profile validation failed: %w", err)
	}
	return p, nil
}

// WritePprof writes the recorded steps as a pprof profile to w
// (gzip-compressed protobuf).
func WritePprof(steps []debugger.StepResult, moduleName string, w io.Writer) error {
	p, err := StepsToPprof(steps, moduleName)
	if err != nil {
		return err
	}
	return p.Write(w)
}
