// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	assert.NotNil(t, ErrMalformedModule)
	assert.NotNil(t, ErrUnsupportedVersion)
	assert.NotNil(t, ErrUnsupportedExpression)
	assert.NotNil(t, ErrInvalidMemoryAccess)
	assert.NotNil(t, ErrVariableNotFound)
}

func TestErrorWrapping(t *testing.T) {
	wrapped := WrapFunctionNotFound("main")
	assert.True(t, errors.Is(wrapped, ErrFunctionNotFound))
	assert.Contains(t, wrapped.Error(), "main")

	wrapped = WrapInvalidMemoryAccess(0x400, 8, 0x100)
	assert.True(t, errors.Is(wrapped, ErrInvalidMemoryAccess))
	assert.Contains(t, wrapped.Error(), "0x400")

	wrapped = WrapUnsupportedSize(3)
	assert.True(t, errors.Is(wrapped, ErrUnsupportedSize))
	assert.Contains(t, wrapped.Error(), "3")

	wrapped = WrapInstanceCreation(errors.New("boom"))
	assert.True(t, errors.Is(wrapped, ErrInstanceCreation))
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestErrorComparison(t *testing.T) {
	err1 := WrapFunctionNotFound("a")
	err2 := WrapGlobalNotFound("a")

	assert.True(t, errors.Is(err1, ErrFunctionNotFound))
	assert.False(t, errors.Is(err1, ErrGlobalNotFound))
	assert.True(t, errors.Is(err2, ErrGlobalNotFound))
}
