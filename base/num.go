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

import "math"

var maxSigmoid = math.Nextafter(1, 0)

// Sigmoid computes 1 / (1 + exp(-x)) without overflowing for large |x|. The result
// stays strictly inside (0, 1) even where float64 would round it to 0 or 1. NaN is
// propagated.
func Sigmoid(x float64) float64 {
	var y float64
	if x >= 0 {
		y = 1 / (1 + math.Exp(-x))
	} else {
		z := math.Exp(x)
		y = z / (1 + z)
	}
	return min(max(y, math.SmallestNonzeroFloat64), maxSigmoid)
}

// NumLossSamples is the rule of thumb for the size of the fixed loss sample set.
func NumLossSamples(nUsers int) int {
	return int(math.Round(100 * math.Sqrt(float64(nUsers))))
}
