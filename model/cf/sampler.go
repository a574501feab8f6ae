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
	"bufio"
	"os"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/bpr/base"
	"github.com/gorse-io/bpr/dataset"
	"github.com/juju/errors"
)

// Triple is a preference of a user for a positive item over a negative item.
type Triple struct {
	UserIndex     int32
	PositiveIndex int32
	NegativeIndex int32
}

// Sampler draws preference triples from implicit feedback. The positive item of every
// triple is an observed positive of the user. If n is positive, exactly n triples are
// drawn, unless the strategy draws without replacement from a smaller pool. Otherwise
// one triple is drawn per positive interaction.
type Sampler interface {
	GenerateSamples(data dataset.Matrix, n int) ([]Triple, error)
}

const (
	UniformUserUniformItemName                   = "uniform_user_uniform_item"
	UniformUserUniformItemWithoutReplacementName = "uniform_user_uniform_item_without_replacement"
	UniformPairName                              = "uniform_pair"
	UniformPairWithoutReplacementName            = "uniform_pair_without_replacement"
	ExternalScheduleName                         = "external_schedule"
)

// SamplerOptions selects and configures a sampling strategy.
type SamplerOptions struct {
	Name string
	// SampleNegativeItemsEmpirically draws negatives from the empirical item distribution
	// (a random positive of a random user) instead of uniformly.
	SampleNegativeItemsEmpirically bool
	// MaxSamples caps the number of triples per call. Zero means no cap.
	MaxSamples int
	// SchedulePath and IndexOffset configure the external schedule.
	SchedulePath string
	IndexOffset  int32
	RandomState  int64
}

// NewSampler creates a sampler by name.
func NewSampler(opts SamplerOptions) (Sampler, error) {
	sb := newSamplerBase(opts.SampleNegativeItemsEmpirically, opts.MaxSamples, opts.RandomState)
	switch opts.Name {
	case UniformUserUniformItemName:
		return &UniformUserUniformItem{samplerBase: sb}, nil
	case UniformUserUniformItemWithoutReplacementName:
		return &UniformUserUniformItemWithoutReplacement{samplerBase: sb}, nil
	case UniformPairName:
		return &UniformPair{samplerBase: sb}, nil
	case UniformPairWithoutReplacementName:
		return &UniformPairWithoutReplacement{samplerBase: sb}, nil
	case ExternalScheduleName:
		if opts.SchedulePath == "" {
			return nil, errors.NotValidf("external schedule without path")
		}
		return &ExternalSchedule{samplerBase: sb, path: opts.SchedulePath, indexOffset: opts.IndexOffset}, nil
	}
	return nil, errors.NotSupportedf("sampler %q", opts.Name)
}

type samplerBase struct {
	rng        base.RandomGenerator
	empirical  bool
	maxSamples int
}

func newSamplerBase(empirical bool, maxSamples int, seed int64) samplerBase {
	return samplerBase{
		rng:        base.NewRandomGenerator(seed),
		empirical:  empirical,
		maxSamples: maxSamples,
	}
}

func (s *samplerBase) numSamples(n, natural int) int {
	if n <= 0 {
		n = natural
	}
	if s.maxSamples > 0 {
		n = min(n, s.maxSamples)
	}
	return n
}

// sampleContext holds the users a triple can be drawn for. A user is eligible if it has
// at least one positive item and at least one item left to be drawn as negative.
type sampleContext struct {
	data          dataset.Matrix
	nItems        int32
	userFeedback  [][]int32
	users         []int32
	feedbackUsers []int32
}

func (s *samplerBase) prepare(data dataset.Matrix) (*sampleContext, error) {
	_, nItems := data.Shape()
	ctx := &sampleContext{
		data:         data,
		nItems:       int32(nItems),
		userFeedback: data.GetUserFeedback(),
	}
	ratedItems := mapset.NewThreadUnsafeSet[int32]()
	for userIndex, items := range ctx.userFeedback {
		if len(items) > 0 {
			ctx.feedbackUsers = append(ctx.feedbackUsers, int32(userIndex))
			ratedItems.Append(items...)
		}
	}
	// empirical negatives come from rated items only
	candidates := nItems
	if s.empirical {
		candidates = ratedItems.Cardinality()
	}
	for _, userIndex := range ctx.feedbackUsers {
		if len(ctx.userFeedback[userIndex]) < candidates {
			ctx.users = append(ctx.users, userIndex)
		}
	}
	if len(ctx.users) == 0 {
		return nil, errors.Annotate(ErrNoSamples, "no user has both positive and negative items")
	}
	return ctx, nil
}

func (s *samplerBase) uniformUser(ctx *sampleContext) int32 {
	return ctx.users[s.rng.Intn(len(ctx.users))]
}

func (s *samplerBase) randomItem(ctx *sampleContext) int32 {
	if s.empirical {
		// just pick something someone liked
		userIndex := ctx.feedbackUsers[s.rng.Intn(len(ctx.feedbackUsers))]
		items := ctx.userFeedback[userIndex]
		return items[s.rng.Intn(len(items))]
	}
	return s.rng.Int31n(ctx.nItems)
}

func (s *samplerBase) sampleNegativeItem(ctx *sampleContext, userIndex int32) int32 {
	for {
		itemIndex := s.randomItem(ctx)
		if !ctx.data.Contains(userIndex, itemIndex) {
			return itemIndex
		}
	}
}

// UniformUserUniformItem draws a user uniformly, then one of its positive items uniformly.
type UniformUserUniformItem struct {
	samplerBase
}

// NewUniformUserUniformItem creates a UniformUserUniformItem sampler.
func NewUniformUserUniformItem(empirical bool, seed int64) *UniformUserUniformItem {
	return &UniformUserUniformItem{samplerBase: newSamplerBase(empirical, 0, seed)}
}

func (s *UniformUserUniformItem) GenerateSamples(data dataset.Matrix, n int) ([]Triple, error) {
	ctx, err := s.prepare(data)
	if err != nil {
		return nil, errors.Trace(err)
	}
	samples := make([]Triple, s.numSamples(n, data.CountFeedback()))
	for k := range samples {
		userIndex := s.uniformUser(ctx)
		items := ctx.userFeedback[userIndex]
		samples[k] = Triple{
			UserIndex:     userIndex,
			PositiveIndex: items[s.rng.Intn(len(items))],
			NegativeIndex: s.sampleNegativeItem(ctx, userIndex),
		}
	}
	return samples, nil
}

// UniformUserUniformItemWithoutReplacement draws a user uniformly, then one of its positive
// items that has not been drawn yet. Once every positive item of a user has been drawn, the
// user starts over.
type UniformUserUniformItemWithoutReplacement struct {
	samplerBase
}

// NewUniformUserUniformItemWithoutReplacement creates a UniformUserUniformItemWithoutReplacement sampler.
func NewUniformUserUniformItemWithoutReplacement(empirical bool, seed int64) *UniformUserUniformItemWithoutReplacement {
	return &UniformUserUniformItemWithoutReplacement{samplerBase: newSamplerBase(empirical, 0, seed)}
}

func (s *UniformUserUniformItemWithoutReplacement) GenerateSamples(data dataset.Matrix, n int) ([]Triple, error) {
	ctx, err := s.prepare(data)
	if err != nil {
		return nil, errors.Trace(err)
	}
	remaining := make(map[int32][]int32)
	samples := make([]Triple, s.numSamples(n, data.CountFeedback()))
	for k := range samples {
		userIndex := s.uniformUser(ctx)
		items := remaining[userIndex]
		if len(items) == 0 {
			items = append([]int32(nil), ctx.userFeedback[userIndex]...)
		}
		pos := s.rng.Intn(len(items))
		positiveIndex := items[pos]
		items[pos] = items[len(items)-1]
		remaining[userIndex] = items[:len(items)-1]
		samples[k] = Triple{
			UserIndex:     userIndex,
			PositiveIndex: positiveIndex,
			NegativeIndex: s.sampleNegativeItem(ctx, userIndex),
		}
	}
	return samples, nil
}

func (ctx *sampleContext) pairs() []feedbackPair {
	var pairs []feedbackPair
	for _, userIndex := range ctx.users {
		for _, itemIndex := range ctx.userFeedback[userIndex] {
			pairs = append(pairs, feedbackPair{userIndex, itemIndex})
		}
	}
	return pairs
}

type feedbackPair struct {
	userIndex int32
	itemIndex int32
}

// UniformPair draws positive interactions uniformly with replacement.
type UniformPair struct {
	samplerBase
}

func NewUniformPair(empirical bool, seed int64) *UniformPair {
	return &UniformPair{samplerBase: newSamplerBase(empirical, 0, seed)}
}

func (s *UniformPair) GenerateSamples(data dataset.Matrix, n int) ([]Triple, error) {
	ctx, err := s.prepare(data)
	if err != nil {
		return nil, errors.Trace(err)
	}
	pairs := ctx.pairs()
	samples := make([]Triple, s.numSamples(n, data.CountFeedback()))
	for k := range samples {
		pair := pairs[s.rng.Intn(len(pairs))]
		samples[k] = Triple{
			UserIndex:     pair.userIndex,
			PositiveIndex: pair.itemIndex,
			NegativeIndex: s.sampleNegativeItem(ctx, pair.userIndex),
		}
	}
	return samples, nil
}

// UniformPairWithoutReplacement visits positive interactions in a random order, each at most once.
type UniformPairWithoutReplacement struct {
	samplerBase
}

// NewUniformPairWithoutReplacement creates a UniformPairWithoutReplacement sampler.
func NewUniformPairWithoutReplacement(empirical bool, seed int64) *UniformPairWithoutReplacement {
	return &UniformPairWithoutReplacement{samplerBase: newSamplerBase(empirical, 0, seed)}
}

func (s *UniformPairWithoutReplacement) GenerateSamples(data dataset.Matrix, n int) ([]Triple, error) {
	ctx, err := s.prepare(data)
	if err != nil {
		return nil, errors.Trace(err)
	}
	pairs := ctx.pairs()
	s.rng.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})
	samples := make([]Triple, min(s.numSamples(n, len(pairs)), len(pairs)))
	for k := range samples {
		samples[k] = Triple{
			UserIndex:     pairs[k].userIndex,
			PositiveIndex: pairs[k].itemIndex,
			NegativeIndex: s.sampleNegativeItem(ctx, pairs[k].userIndex),
		}
	}
	return samples, nil
}

// ExternalSchedule replays triples from a file with one "user positive negative" triple per
// line. Triples are shuffled on every call and shifted by the index offset.
type ExternalSchedule struct {
	samplerBase
	path        string
	indexOffset int32
}

func NewExternalSchedule(path string, indexOffset int32, seed int64) *ExternalSchedule {
	return &ExternalSchedule{samplerBase: newSamplerBase(false, 0, seed), path: path, indexOffset: indexOffset}
}

func (s *ExternalSchedule) GenerateSamples(data dataset.Matrix, n int) ([]Triple, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	var samples []Triple
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		} else if len(fields) != 3 {
			return nil, errors.Errorf("%s:%d: expect 3 fields but got %d", s.path, lineNumber, len(fields))
		}
		var indices [3]int32
		for k, field := range fields {
			index, err := strconv.ParseInt(field, 10, 32)
			if err != nil {
				return nil, errors.Annotatef(err, "%s:%d", s.path, lineNumber)
			}
			indices[k] = int32(index) - s.indexOffset
		}
		triple := Triple{UserIndex: indices[0], PositiveIndex: indices[1], NegativeIndex: indices[2]}
		if !data.Contains(triple.UserIndex, triple.PositiveIndex) {
			return nil, errors.Errorf("%s:%d: item %d is not a positive of user %d",
				s.path, lineNumber, triple.PositiveIndex, triple.UserIndex)
		}
		samples = append(samples, triple)
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	s.rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
	return samples[:min(s.numSamples(n, len(samples)), len(samples))], nil
}
