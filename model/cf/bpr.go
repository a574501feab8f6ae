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
	"github.com/gorse-io/bpr/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

const defaultNFactors = 10

// BPR means Bayesian Personal Ranking, is a pairwise learning algorithm for matrix factorization
// model with implicit feedback. The pairwise ranking between item i and j for user u is estimated
// by:
//
//	p(i >_u j) = \sigma( b_i - b_j + p_u^T (q_i - q_j) )
//
// Hyper-parameters:
//
//	Lr              - The learning rate of SGD. Default is 0.05.
//	BiasReg         - The regularization of item biases. Default is 1.0.
//	UserReg         - The regularization of user factors. Default is 1.0.
//	PositiveItemReg - The regularization of positive item factors. Default is 1.0.
//	NegativeItemReg - The regularization of negative item factors. Default is 1.0.
//	NFactors        - The number of latent factors. Default is 10.
//	RandomState     - The random seed. Default is 0.
//
// A BPR model is not safe for concurrent use.
type BPR struct {
	model.BaseModel
	TrainingConfig
	// Model parameters
	ItemBias   []float64
	UserFactor [][]float64
	ItemFactor [][]float64
	// Hyper parameters
	nFactors int
	// Fixed triples for loss and AUC
	lossSamples []Triple
	updateCount int
	buffer      []float64
}

var (
	_ model.Model = (*BPR)(nil)
	_ Predictor   = (*BPR)(nil)
)

// NewBPR creates a BPR model.
func NewBPR(params model.Params) (*BPR, error) {
	bpr := new(BPR)
	if err := bpr.SetParams(params); err != nil {
		return nil, errors.Trace(err)
	}
	return bpr, nil
}

// SetParams sets hyper-parameters of the BPR model.
func (bpr *BPR) SetParams(params model.Params) error {
	if params == nil {
		params = model.Params{}
	}
	nFactors := params.GetInt(model.NFactors, defaultNFactors)
	if nFactors <= 0 {
		return errors.Annotatef(ErrInvalidConfig, "number of factors must be positive, got %d", nFactors)
	}
	config, err := NewTrainingConfig(params)
	if err != nil {
		return errors.Trace(err)
	}
	if !config.UpdateNegativeItemFactors {
		log.Logger().Warn("negative item factors are always updated",
			zap.String("param", string(model.UpdateNegativeItemFactors)))
	}
	bpr.BaseModel.SetParams(params)
	bpr.TrainingConfig = config
	bpr.nFactors = nFactors
	return nil
}

// NFactors returns the number of latent factors.
func (bpr *BPR) NFactors() int {
	return bpr.nFactors
}

// Clear removes factors, biases and loss samples.
func (bpr *BPR) Clear() {
	bpr.ItemBias = nil
	bpr.UserFactor = nil
	bpr.ItemFactor = nil
	bpr.lossSamples = nil
	bpr.updateCount = 0
}

// Invalid returns true if the model has not been initialized or loaded.
func (bpr *BPR) Invalid() bool {
	return bpr == nil ||
		bpr.ItemBias == nil ||
		bpr.UserFactor == nil ||
		bpr.ItemFactor == nil
}

// Shape returns the number of users and the number of items.
func (bpr *BPR) Shape() (int, int) {
	return len(bpr.UserFactor), len(bpr.ItemFactor)
}

// Init allocates biases and factors for the shape of data and draws the fixed loss samples.
// Item biases start at zero, factors are uniform in [0, 1). The model is left untouched
// if the loss samples cannot be drawn.
func (bpr *BPR) Init(data dataset.Matrix) error {
	nUsers, nItems := data.Shape()
	rng := bpr.GetRandomGenerator()
	userFactor := rng.UniformMatrix(nUsers, bpr.nFactors, 0, 1)
	itemFactor := rng.UniformMatrix(nItems, bpr.nFactors, 0, 1)
	sampler := NewUniformUserUniformItem(true, rng.Int63())
	samples, err := sampler.GenerateSamples(data, base.NumLossSamples(nUsers))
	if err != nil {
		return errors.Annotate(err, "failed to draw loss samples")
	}
	bpr.ItemBias = make([]float64, nItems)
	bpr.UserFactor = userFactor
	bpr.ItemFactor = itemFactor
	bpr.buffer = make([]float64, bpr.nFactors)
	bpr.updateCount = 0
	bpr.lossSamples = samples
	return nil
}

// Load copies item biases and factors into the model. The number of users and items are
// taken from the arrays. Loss samples and the update count of another shape are reset.
func (bpr *BPR) Load(itemBias []float64, userFactor, itemFactor [][]float64) error {
	if len(itemBias) != len(itemFactor) {
		return errors.Annotatef(ErrDimensionMismatch, "%d item biases but %d item factors", len(itemBias), len(itemFactor))
	}
	for userIndex, row := range userFactor {
		if len(row) != bpr.nFactors {
			return errors.Annotatef(ErrDimensionMismatch, "user %d has %d factors, expect %d", userIndex, len(row), bpr.nFactors)
		}
	}
	for itemIndex, row := range itemFactor {
		if len(row) != bpr.nFactors {
			return errors.Annotatef(ErrDimensionMismatch, "item %d has %d factors, expect %d", itemIndex, len(row), bpr.nFactors)
		}
	}
	nUsers, nItems := bpr.Shape()
	if bpr.Invalid() || nUsers != len(userFactor) || nItems != len(itemFactor) {
		bpr.lossSamples = nil
		bpr.updateCount = 0
	}
	bpr.ItemBias = append(make([]float64, 0, len(itemBias)), itemBias...)
	bpr.UserFactor = cloneMatrix(userFactor)
	bpr.ItemFactor = cloneMatrix(itemFactor)
	bpr.buffer = make([]float64, bpr.nFactors)
	return nil
}

func cloneMatrix(m [][]float64) [][]float64 {
	cloned := make([][]float64, len(m))
	for i, row := range m {
		cloned[i] = append(make([]float64, 0, len(row)), row...)
	}
	return cloned
}

func (bpr *BPR) checkIndex(userIndex int32, itemIndices ...int32) error {
	if userIndex < 0 || int(userIndex) >= len(bpr.UserFactor) {
		return errors.Annotatef(ErrDimensionMismatch, "user index %d out of range [0, %d)", userIndex, len(bpr.UserFactor))
	}
	for _, itemIndex := range itemIndices {
		if itemIndex < 0 || int(itemIndex) >= len(bpr.ItemFactor) {
			return errors.Annotatef(ErrDimensionMismatch, "item index %d out of range [0, %d)", itemIndex, len(bpr.ItemFactor))
		}
	}
	return nil
}

// Predict returns the score of an item for a user.
func (bpr *BPR) Predict(userIndex, itemIndex int32) (float64, error) {
	if err := bpr.checkIndex(userIndex, itemIndex); err != nil {
		return 0, err
	}
	return bpr.internalPredict(userIndex, itemIndex), nil
}

func (bpr *BPR) internalPredict(userIndex, itemIndex int32) float64 {
	return bpr.ItemBias[itemIndex] + floats.Dot(bpr.UserFactor[userIndex], bpr.ItemFactor[itemIndex])
}

// UpdateFactors applies one SGD step for the preference of user u for item i over item j.
// The user row is updated from the item rows before the step, and both item rows are
// updated from the new user row.
func (bpr *BPR) UpdateFactors(userIndex, positiveIndex, negativeIndex int32) error {
	if err := bpr.checkIndex(userIndex, positiveIndex, negativeIndex); err != nil {
		return err
	}
	userFactor := bpr.UserFactor[userIndex]
	positiveFactor := bpr.ItemFactor[positiveIndex]
	negativeFactor := bpr.ItemFactor[negativeIndex]
	xuij := bpr.internalPredict(userIndex, positiveIndex) - bpr.internalPredict(userIndex, negativeIndex)
	z := base.Sigmoid(-xuij)
	// Update item biases
	bpr.ItemBias[positiveIndex] += bpr.LearningRate * (z - bpr.BiasRegularization*bpr.ItemBias[positiveIndex])
	bpr.ItemBias[negativeIndex] += bpr.LearningRate * (-z - bpr.BiasRegularization*bpr.ItemBias[negativeIndex])
	// Update user latent factor: q_i - q_j
	grad := bpr.buffer
	floats.SubTo(grad, positiveFactor, negativeFactor)
	floats.Scale(z, grad)
	floats.AddScaled(grad, -bpr.UserRegularization, userFactor)
	floats.AddScaled(userFactor, bpr.LearningRate, grad)
	// Update positive item latent factor: +p_u
	floats.ScaleTo(grad, z, userFactor)
	floats.AddScaled(grad, -bpr.PositiveItemRegularization, positiveFactor)
	floats.AddScaled(positiveFactor, bpr.LearningRate, grad)
	// Update negative item latent factor: -p_u
	floats.ScaleTo(grad, -z, userFactor)
	floats.AddScaled(grad, -bpr.NegativeItemRegularization, negativeFactor)
	floats.AddScaled(negativeFactor, bpr.LearningRate, grad)
	bpr.updateCount++
	return nil
}

// UpdateCount returns the number of SGD steps applied since the last Init.
func (bpr *BPR) UpdateCount() int {
	return bpr.updateCount
}

// LossSamples returns a copy of the fixed loss samples.
func (bpr *BPR) LossSamples() []Triple {
	return append([]Triple(nil), bpr.lossSamples...)
}

// Loss returns the sampled ranking loss plus half of the regularization penalty, averaged over
// the loss samples. It returns zero without loss samples.
func (bpr *BPR) Loss() float64 {
	if len(bpr.lossSamples) == 0 {
		return 0
	}
	var rankingLoss, complexity float64
	for _, t := range bpr.lossSamples {
		xuij := bpr.internalPredict(t.UserIndex, t.PositiveIndex) - bpr.internalPredict(t.UserIndex, t.NegativeIndex)
		rankingLoss += base.Sigmoid(-xuij)
	}
	for _, t := range bpr.lossSamples {
		userFactor := bpr.UserFactor[t.UserIndex]
		positiveFactor := bpr.ItemFactor[t.PositiveIndex]
		negativeFactor := bpr.ItemFactor[t.NegativeIndex]
		positiveBias := bpr.ItemBias[t.PositiveIndex]
		negativeBias := bpr.ItemBias[t.NegativeIndex]
		complexity += bpr.UserRegularization*floats.Dot(userFactor, userFactor) +
			bpr.PositiveItemRegularization*floats.Dot(positiveFactor, positiveFactor) +
			bpr.NegativeItemRegularization*floats.Dot(negativeFactor, negativeFactor) +
			bpr.BiasRegularization*(positiveBias*positiveBias+negativeBias*negativeBias)
	}
	return (rankingLoss + 0.5*complexity) / float64(len(bpr.lossSamples))
}

// AUC returns the fraction of loss samples ranked correctly. It returns zero without loss samples.
func (bpr *BPR) AUC() float64 {
	if len(bpr.lossSamples) == 0 {
		return 0
	}
	correct := lo.CountBy(bpr.lossSamples, func(t Triple) bool {
		return bpr.internalPredict(t.UserIndex, t.PositiveIndex) > bpr.internalPredict(t.UserIndex, t.NegativeIndex)
	})
	return float64(correct) / float64(len(bpr.lossSamples))
}
