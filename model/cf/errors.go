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

package cf

import "github.com/juju/errors"

var (
	// ErrInvalidConfig is returned for a non-positive learning rate, a negative
	// regularization coefficient or a non-positive number of factors.
	ErrInvalidConfig = errors.NotValidf("training config")
	// ErrDimensionMismatch is returned for indices beyond the allocated factors
	// or bulk-loaded arrays with inconsistent shapes.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrDegenerateEvaluation is returned when no test user has any candidate
	// negative item left after excluding known positives.
	ErrDegenerateEvaluation = errors.New("degenerate evaluation")
	// ErrNoSamples is returned when no triple can be drawn from the feedback.
	ErrNoSamples = errors.New("no samples")
)
