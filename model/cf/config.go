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
	"github.com/go-playground/validator/v10"
	"github.com/gorse-io/bpr/model"
	"github.com/juju/errors"
)

// TrainingConfig holds the hyper-parameters of the pairwise SGD update.
type TrainingConfig struct {
	LearningRate               float64 `validate:"gt=0"`
	BiasRegularization         float64 `validate:"gte=0"`
	UserRegularization         float64 `validate:"gte=0"`
	PositiveItemRegularization float64 `validate:"gte=0"`
	NegativeItemRegularization float64 `validate:"gte=0"`
	UpdateNegativeItemFactors  bool
}

// NewTrainingConfig reads a TrainingConfig from hyper-parameters. Missing values take the
// defaults: learning rate 0.05, every regularization 1.0, negative item factors updated.
func NewTrainingConfig(params model.Params) (TrainingConfig, error) {
	config := TrainingConfig{
		LearningRate:               params.GetFloat64(model.Lr, 0.05),
		BiasRegularization:         params.GetFloat64(model.BiasReg, 1.0),
		UserRegularization:         params.GetFloat64(model.UserReg, 1.0),
		PositiveItemRegularization: params.GetFloat64(model.PositiveItemReg, 1.0),
		NegativeItemRegularization: params.GetFloat64(model.NegativeItemReg, 1.0),
		UpdateNegativeItemFactors:  params.GetBool(model.UpdateNegativeItemFactors, true),
	}
	if err := config.Validate(); err != nil {
		return TrainingConfig{}, err
	}
	return config, nil
}

// Validate rejects a non-positive learning rate and negative regularization coefficients.
func (config TrainingConfig) Validate() error {
	if err := validator.New().Struct(config); err != nil {
		return errors.Annotate(ErrInvalidConfig, err.Error())
	}
	return nil
}
