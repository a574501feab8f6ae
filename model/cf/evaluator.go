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
	"github.com/gorse-io/bpr/base"
	"github.com/gorse-io/bpr/base/log"
	"github.com/gorse-io/bpr/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// DefaultNumNegatives is the number of candidates drawn per held-out interaction.
const DefaultNumNegatives = 1200

// Predictor scores an item for a user.
type Predictor interface {
	Predict(userIndex, itemIndex int32) (float64, error)
}

// HeldOutScore is the result of a held-out evaluation.
type HeldOutScore struct {
	// AUC is the mean win ratio over evaluated interactions.
	AUC float64
	// Users is the number of evaluated interactions.
	Users int
	// Skipped is the number of interactions without any candidate left.
	Skipped int
	// SkippedUsers are the users of the skipped interactions.
	SkippedUsers []int32
}

// HeldOutEvaluator estimates the AUC of held-out interactions against randomly drawn candidates.
type HeldOutEvaluator struct {
	numNegatives int
	rng          base.RandomGenerator
}

// NewHeldOutEvaluator creates a HeldOutEvaluator. A non-positive number of negatives falls
// back to DefaultNumNegatives.
func NewHeldOutEvaluator(numNegatives int, seed int64) *HeldOutEvaluator {
	if numNegatives <= 0 {
		numNegatives = DefaultNumNegatives
	}
	return &HeldOutEvaluator{
		numNegatives: numNegatives,
		rng:          base.NewRandomGenerator(seed),
	}
}

// Evaluate draws candidates uniformly with replacement for every held-out interaction, drops
// the candidates the user interacted with in the training data and counts the candidates
// scored below the held-out item. Interactions without any candidate left are skipped.
func (e *HeldOutEvaluator) Evaluate(m Predictor, train dataset.Matrix, test []dataset.Assignment) (HeldOutScore, error) {
	var score HeldOutScore
	_, nItems := train.Shape()
	if len(test) == 0 || nItems == 0 {
		return score, errors.Annotatef(ErrDegenerateEvaluation, "%d test interactions over %d items", len(test), nItems)
	}
	ratios := make([]float64, 0, len(test))
	for _, assignment := range test {
		userIndex := assignment.UserIndex
		xui, err := m.Predict(userIndex, assignment.ItemIndex)
		if err != nil {
			return score, errors.Trace(err)
		}
		candidates := lo.Filter(e.rng.Choice(int32(nItems), e.numNegatives), func(itemIndex int32, _ int) bool {
			return !train.Contains(userIndex, itemIndex)
		})
		if len(candidates) == 0 {
			log.Logger().Debug("skip user without candidates",
				zap.Int32("user_index", userIndex),
				zap.Int32("item_index", assignment.ItemIndex))
			score.Skipped++
			score.SkippedUsers = append(score.SkippedUsers, userIndex)
			continue
		}
		wins := 0
		for _, itemIndex := range candidates {
			xuj, err := m.Predict(userIndex, itemIndex)
			if err != nil {
				return score, errors.Trace(err)
			}
			if xui > xuj {
				wins++
			}
		}
		ratios = append(ratios, float64(wins)/float64(len(candidates)))
	}
	score.Users = len(ratios)
	if len(ratios) == 0 {
		return score, errors.Annotatef(ErrDegenerateEvaluation, "all %d test interactions skipped", score.Skipped)
	}
	score.AUC = stat.Mean(ratios, nil)
	HeldOutAUC.Set(score.AUC)
	return score, nil
}
