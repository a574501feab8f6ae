// Copyright 2024 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))
	assert.InDelta(t, 1/(1+math.Exp(-2)), Sigmoid(2), 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(3)), Sigmoid(-3), 1e-12)
	assert.InDelta(t, 1, Sigmoid(3)+Sigmoid(-3), 1e-12)
}

func TestSigmoid_Extreme(t *testing.T) {
	for _, x := range []float64{1000, -1000, math.MaxFloat64, -math.MaxFloat64, math.Inf(1), math.Inf(-1)} {
		y := Sigmoid(x)
		assert.False(t, math.IsNaN(y), x)
		assert.False(t, math.IsInf(y, 0), x)
		assert.Greater(t, y, 0.0, x)
		assert.Less(t, y, 1.0, x)
	}
	// the update step evaluates sigmoid(-xuij) at xuij = ±1000
	assert.InDelta(t, 0, Sigmoid(-1000), 1e-12)
	assert.InDelta(t, 1, Sigmoid(1000), 1e-12)
}

func TestSigmoid_NaN(t *testing.T) {
	assert.True(t, math.IsNaN(Sigmoid(math.NaN())))
}

func TestNumLossSamples(t *testing.T) {
	assert.Equal(t, 141, NumLossSamples(2))
	assert.Equal(t, 100, NumLossSamples(1))
	assert.Equal(t, 1000, NumLossSamples(100))
	assert.Equal(t, 0, NumLossSamples(0))
}
