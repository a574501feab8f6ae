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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gorse-io/bpr/base/log"
	"github.com/gorse-io/bpr/base/progress"
	"github.com/gorse-io/bpr/dataset"
	"github.com/gorse-io/bpr/model/cf"
	"github.com/gorse-io/bpr/storage/blob"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train a model and save it to the model directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		train, test, err := loadDataset(conf)
		if err != nil {
			return errors.Trace(err)
		}
		m, err := cf.NewBPR(conf.ModelParams())
		if err != nil {
			return errors.Trace(err)
		}
		sampler, err := cf.NewSampler(conf.SamplerOptions())
		if err != nil {
			return errors.Trace(err)
		}

		// fit
		bar := progressbar.Default(int64(conf.Model.NEpochs), "fit bpr")
		fitConfig := cf.NewFitConfig().SetObserver(func(epoch int, _ float64) {
			if epoch > 0 {
				_ = bar.Add(1)
			}
		})
		tracer := progress.NewTracer("gorse-bpr")
		defer logProgress(tracer)
		ctx, span := tracer.Start(context.Background(), "train", 1)
		scores, err := m.Fit(ctx, train, sampler, conf.Model.NEpochs, fitConfig)
		if err != nil {
			span.Fail(err)
			return errors.Trace(err)
		}
		span.End()
		_ = bar.Finish()
		if err = printScores(scores); err != nil {
			return errors.Trace(err)
		}

		// evaluate
		if err = evaluate(conf.Evaluation.NumNegatives, conf.Evaluation.RandomState, m, train, test); err != nil {
			return errors.Trace(err)
		}

		// save
		name, _ := cmd.Flags().GetString("model")
		if err = blob.NewPOSIX(conf.Data.ModelDir).SaveModel(name, m); err != nil {
			return errors.Trace(err)
		}
		return writeMetrics(cmd)
	},
}

func printScores(scores []float64) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Epoch", "AUC")
	rows := lo.Map(scores, func(score float64, i int) []string {
		return []string{fmt.Sprint(i + 1), fmt.Sprintf("%.6f", score)}
	})
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

// evaluate prints the held-out AUC. A degenerate evaluation is reported but not fatal.
func evaluate(numNegatives int, seed int64, m cf.Predictor, train *dataset.Dataset, test []dataset.Assignment) error {
	score, err := cf.NewHeldOutEvaluator(numNegatives, seed).Evaluate(m, train, test)
	if errors.Is(err, cf.ErrDegenerateEvaluation) {
		log.Logger().Warn("skip held-out evaluation", zap.Error(err))
		return nil
	} else if err != nil {
		return errors.Trace(err)
	}
	if score.Skipped > 0 {
		log.Logger().Warn("skip users without candidates",
			zap.Strings("users", describeUsers(train.GetUserDict(), score.SkippedUsers)))
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Held-out AUC", "Users", "Skipped")
	if err = table.Append([]string{
		fmt.Sprintf("%.6f", score.AUC),
		fmt.Sprint(score.Users),
		fmt.Sprint(score.Skipped),
	}); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}

// describeUsers formats user indices as their ids with the number of interactions.
func describeUsers(dict *dataset.FreqDict, users []int32) []string {
	return lo.Map(users, func(userIndex int32, _ int) string {
		userId, ok := dict.String(userIndex)
		if !ok {
			userId = fmt.Sprintf("#%d", userIndex)
		}
		return fmt.Sprintf("%s (%d interactions)", userId, dict.Freq(userIndex))
	})
}

// logProgress logs the final state of every span recorded by tracer.
func logProgress(tracer *progress.Tracer) {
	for _, p := range tracer.List() {
		log.Logger().Info("progress", progressFields(p)...)
	}
}

func progressFields(p progress.Progress) []zap.Field {
	fields := []zap.Field{
		zap.String("name", p.Name),
		zap.String("status", string(p.Status)),
		zap.Int("count", p.Count),
		zap.Int("total", p.Total),
		zap.Duration("elapsed", p.FinishTime.Sub(p.StartTime)),
	}
	if p.Error != "" {
		fields = append(fields, zap.String("error", p.Error))
	}
	return fields
}
