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

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gorse-io/bpr/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func newTestSamplers(empirical bool, seed int64) map[string]Sampler {
	samplers := make(map[string]Sampler)
	for _, name := range []string{
		UniformUserUniformItemName,
		UniformUserUniformItemWithoutReplacementName,
		UniformPairName,
		UniformPairWithoutReplacementName,
	} {
		sampler, err := NewSampler(SamplerOptions{
			Name:                           name,
			SampleNegativeItemsEmpirically: empirical,
			RandomState:                    seed,
		})
		if err != nil {
			panic(err)
		}
		samplers[name] = sampler
	}
	return samplers
}

func assertValidSamples(t *testing.T, data dataset.Matrix, samples []Triple) {
	for _, s := range samples {
		assert.True(t, data.Contains(s.UserIndex, s.PositiveIndex), "%v", s)
		assert.False(t, data.Contains(s.UserIndex, s.NegativeIndex), "%v", s)
	}
}

func TestSampler_GenerateSamples(t *testing.T) {
	data := dataset.NewDatasetFromDense([][]int{
		{1, 0, 1, 0, 0},
		{0, 1, 0, 0, 1},
		{0, 0, 0, 0, 0},
		{1, 1, 1, 0, 0},
	})
	for _, empirical := range []bool{false, true} {
		for name, sampler := range newTestSamplers(empirical, 0) {
			samples, err := sampler.GenerateSamples(data, 0)
			assert.NoError(t, err, name)
			assert.Len(t, samples, data.CountFeedback(), name)
			assertValidSamples(t, data, samples)
			// users without feedback are never drawn
			assert.False(t, lo.ContainsBy(samples, func(s Triple) bool { return s.UserIndex == 2 }), name)
		}
	}
}

func TestSampler_Size(t *testing.T) {
	data := newTestData()
	for name, sampler := range newTestSamplers(false, 0) {
		samples, err := sampler.GenerateSamples(data, 2)
		assert.NoError(t, err, name)
		assert.Len(t, samples, 2, name)
	}
	// with replacement
	for _, name := range []string{UniformUserUniformItemName, UniformUserUniformItemWithoutReplacementName, UniformPairName} {
		samples, err := newTestSamplers(false, 0)[name].GenerateSamples(data, 100)
		assert.NoError(t, err, name)
		assert.Len(t, samples, 100, name)
		assertValidSamples(t, data, samples)
	}
	// without replacement
	samples, err := newTestSamplers(false, 0)[UniformPairWithoutReplacementName].GenerateSamples(data, 100)
	assert.NoError(t, err)
	assert.Len(t, samples, 3)

	// max samples
	sampler, err := NewSampler(SamplerOptions{Name: UniformPairName, MaxSamples: 5})
	assert.NoError(t, err)
	samples, err = sampler.GenerateSamples(data, 100)
	assert.NoError(t, err)
	assert.Len(t, samples, 5)
}

func TestSampler_Deterministic(t *testing.T) {
	data := newTestData()
	a, b := newTestSamplers(true, 42), newTestSamplers(true, 42)
	for name := range a {
		samplesA, err := a[name].GenerateSamples(data, 50)
		assert.NoError(t, err)
		samplesB, err := b[name].GenerateSamples(data, 50)
		assert.NoError(t, err)
		assert.Equal(t, samplesA, samplesB, name)
	}
}

func TestSampler_NoSamples(t *testing.T) {
	for _, data := range []*dataset.Dataset{
		dataset.NewDataset(),
		dataset.NewDatasetFromDense([][]int{{0, 0}, {0, 0}}),
		dataset.NewDatasetFromDense([][]int{{1, 1}, {1, 1}}),
	} {
		for name, sampler := range newTestSamplers(false, 0) {
			_, err := sampler.GenerateSamples(data, 0)
			assert.ErrorIs(t, err, ErrNoSamples, name)
		}
	}
}

func TestSampler_FullUser(t *testing.T) {
	// user 0 likes every item
	data := dataset.NewDatasetFromDense([][]int{{1, 1, 1}, {1, 0, 0}})
	for name, sampler := range newTestSamplers(false, 0) {
		samples, err := sampler.GenerateSamples(data, 20)
		assert.NoError(t, err, name)
		assertValidSamples(t, data, samples)
		for _, s := range samples {
			assert.Equal(t, int32(1), s.UserIndex, name)
		}
	}
}

func TestSampler_Empirical(t *testing.T) {
	// item 2 has no feedback
	data := dataset.NewDatasetFromDense([][]int{{1, 0, 0}, {0, 1, 0}})
	for name, sampler := range newTestSamplers(true, 0) {
		samples, err := sampler.GenerateSamples(data, 50)
		assert.NoError(t, err, name)
		for _, s := range samples {
			assert.Equal(t, 1-s.UserIndex, s.NegativeIndex, name)
		}
	}
	// user 0 likes every rated item
	data = dataset.NewDatasetFromDense([][]int{{1, 1, 0}, {1, 0, 0}})
	for name, sampler := range newTestSamplers(true, 0) {
		samples, err := sampler.GenerateSamples(data, 20)
		assert.NoError(t, err, name)
		for _, s := range samples {
			assert.Equal(t, Triple{UserIndex: 1, PositiveIndex: 0, NegativeIndex: 1}, s, name)
		}
	}
}

func TestUniformUserUniformItemWithoutReplacement(t *testing.T) {
	data := dataset.NewDatasetFromDense([][]int{{1, 1, 1, 0}})
	sampler, err := NewSampler(SamplerOptions{Name: UniformUserUniformItemWithoutReplacementName})
	assert.NoError(t, err)
	samples, err := sampler.GenerateSamples(data, 6)
	assert.NoError(t, err)
	positives := lo.Map(samples, func(s Triple, _ int) int32 { return s.PositiveIndex })
	assert.ElementsMatch(t, []int32{0, 1, 2}, positives[:3])
	assert.ElementsMatch(t, []int32{0, 1, 2}, positives[3:])
	for _, s := range samples {
		assert.Equal(t, int32(3), s.NegativeIndex)
	}
}

func TestUniformPairWithoutReplacement(t *testing.T) {
	data := newTestData()
	samples, err := NewUniformPairWithoutReplacement(false, 0).GenerateSamples(data, 0)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []Triple{
		{UserIndex: 0, PositiveIndex: 0, NegativeIndex: 1},
		{UserIndex: 0, PositiveIndex: 2, NegativeIndex: 1},
	}, lo.Filter(samples, func(s Triple, _ int) bool { return s.UserIndex == 0 }))
	pairs := lo.Map(samples, func(s Triple, _ int) [2]int32 { return [2]int32{s.UserIndex, s.PositiveIndex} })
	assert.ElementsMatch(t, [][2]int32{{0, 0}, {0, 2}, {1, 1}}, pairs)
}

func TestExternalSchedule(t *testing.T) {
	data := newTestData()
	path := filepath.Join(t.TempDir(), "schedule.txt")
	assert.NoError(t, os.WriteFile(path, []byte("1 1 2\n1 3 2\n\n2 2 1\n"), 0644))
	sampler, err := NewSampler(SamplerOptions{Name: ExternalScheduleName, SchedulePath: path, IndexOffset: 1})
	assert.NoError(t, err)
	samples, err := sampler.GenerateSamples(data, 0)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []Triple{
		{UserIndex: 0, PositiveIndex: 0, NegativeIndex: 1},
		{UserIndex: 0, PositiveIndex: 2, NegativeIndex: 1},
		{UserIndex: 1, PositiveIndex: 1, NegativeIndex: 0},
	}, samples)
	samples, err = sampler.GenerateSamples(data, 2)
	assert.NoError(t, err)
	assert.Len(t, samples, 2)

	// not a positive
	assert.NoError(t, os.WriteFile(path, []byte("1 2 1\n"), 0644))
	_, err = sampler.GenerateSamples(data, 0)
	assert.Error(t, err)
	// malformed
	assert.NoError(t, os.WriteFile(path, []byte("1 1\n"), 0644))
	_, err = sampler.GenerateSamples(data, 0)
	assert.Error(t, err)
	assert.NoError(t, os.WriteFile(path, []byte("1 a 2\n"), 0644))
	_, err = sampler.GenerateSamples(data, 0)
	assert.Error(t, err)
	// missing
	assert.NoError(t, os.Remove(path))
	_, err = sampler.GenerateSamples(data, 0)
	assert.Error(t, err)
}

func TestNewSampler(t *testing.T) {
	_, err := NewSampler(SamplerOptions{Name: "unknown"})
	assert.True(t, errors.Is(err, errors.NotSupported))
	_, err = NewSampler(SamplerOptions{Name: ExternalScheduleName})
	assert.True(t, errors.Is(err, errors.NotValid))
}
