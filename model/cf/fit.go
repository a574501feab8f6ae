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
	"context"
	"fmt"
	"time"

	"github.com/gorse-io/bpr/base/log"
	"github.com/gorse-io/bpr/base/progress"
	"github.com/gorse-io/bpr/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Observer receives the AUC on the loss samples after each epoch. Epoch 0 is the initial model.
type Observer func(epoch int, auc float64)

type FitConfig struct {
	Observers []Observer
}

func NewFitConfig() *FitConfig {
	return &FitConfig{}
}

// SetObserver appends an observer.
func (config *FitConfig) SetObserver(observer Observer) *FitConfig {
	config.Observers = append(config.Observers, observer)
	return config
}

func (config *FitConfig) notify(epoch int, auc float64) {
	for _, observer := range config.Observers {
		observer(epoch, auc)
	}
}

// Fit initializes the model for data and trains it for nEpochs epochs. Every epoch consumes
// the whole stream of triples drawn by the sampler. The AUC on the loss samples after each
// epoch is returned.
func (bpr *BPR) Fit(ctx context.Context, data dataset.Matrix, sampler Sampler, nEpochs int, config *FitConfig) ([]float64, error) {
	if nEpochs < 0 {
		return nil, errors.Annotatef(ErrInvalidConfig, "number of epochs must not be negative, got %d", nEpochs)
	}
	if config == nil {
		config = NewFitConfig()
	}
	log.Logger().Info("fit bpr",
		zap.Int("train_set_size", data.CountFeedback()),
		zap.Int("n_epochs", nEpochs),
		zap.Any("params", bpr.GetParams()))
	if err := bpr.Init(data); err != nil {
		return nil, errors.Trace(err)
	}
	evalStart := time.Now()
	auc := bpr.AUC()
	evalTime := time.Since(evalStart)
	log.Logger().Debug(fmt.Sprintf("fit bpr %v/%v", 0, nEpochs),
		zap.String("eval_time", evalTime.String()),
		zap.Float64("auc", auc))
	FitEpoch.Set(0)
	FitAUC.Set(auc)
	config.notify(0, auc)
	// Training
	_, span := progress.Start(ctx, "BPR.Fit", nEpochs)
	scores := make([]float64, 0, nEpochs)
	for epoch := 1; epoch <= nEpochs; epoch++ {
		fitStart := time.Now()
		samples, err := sampler.GenerateSamples(data, 0)
		if err != nil {
			span.Fail(err)
			return nil, errors.Trace(err)
		}
		for _, t := range samples {
			if err = bpr.UpdateFactors(t.UserIndex, t.PositiveIndex, t.NegativeIndex); err != nil {
				span.Fail(err)
				return nil, errors.Annotatef(err, "epoch %d", epoch)
			}
		}
		UpdatesTotal.Add(float64(len(samples)))
		fitTime := time.Since(fitStart)
		// Evaluate on loss samples
		evalStart = time.Now()
		auc = bpr.AUC()
		loss := bpr.Loss()
		evalTime = time.Since(evalStart)
		log.Logger().Debug(fmt.Sprintf("fit bpr %v/%v", epoch, nEpochs),
			zap.Int("n_samples", len(samples)),
			zap.String("fit_time", fitTime.String()),
			zap.String("eval_time", evalTime.String()),
			zap.Float64("auc", auc),
			zap.Float64("loss", loss))
		FitEpoch.Set(float64(epoch))
		FitAUC.Set(auc)
		FitLoss.Set(loss)
		FitEpochSecondsVec.WithLabelValues(StepFit).Set(fitTime.Seconds())
		FitEpochSecondsVec.WithLabelValues(StepEval).Set(evalTime.Seconds())
		scores = append(scores, auc)
		config.notify(epoch, auc)
		span.Add(1)
	}
	span.End()
	log.Logger().Info("fit bpr complete",
		zap.Int("n_updates", bpr.updateCount),
		zap.Float64("auc", auc))
	return scores, nil
}
