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
	"github.com/gorse-io/bpr/base/log"
	"github.com/gorse-io/bpr/storage/blob"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var evaluateCommand = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a saved model on held-out interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return errors.Trace(err)
		}
		train, test, err := loadDataset(conf)
		if err != nil {
			return errors.Trace(err)
		}
		name, _ := cmd.Flags().GetString("model")
		m, err := blob.NewPOSIX(conf.Data.ModelDir).LoadModel(name)
		if err != nil {
			return errors.Trace(err)
		}
		nUsers, nItems := m.Shape()
		if nUsers != train.CountUsers() || nItems != train.CountItems() {
			log.Logger().Warn("model shape differs from dataset",
				zap.Int("model_users", nUsers), zap.Int("model_items", nItems),
				zap.Int("data_users", train.CountUsers()), zap.Int("data_items", train.CountItems()))
		}
		if err = evaluate(conf.Evaluation.NumNegatives, conf.Evaluation.RandomState, m, train, test); err != nil {
			return errors.Trace(err)
		}
		return writeMetrics(cmd)
	},
}
