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
	"fmt"

	"github.com/gorse-io/bpr/base/log"
	"github.com/gorse-io/bpr/cmd/version"
	"github.com/gorse-io/bpr/config"
	"github.com/gorse-io/bpr/dataset"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "gorse-bpr",
	Short: "Train BPR matrix factorization on implicit feedback.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show the version of gorse-bpr",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.BuildInfo())
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.PersistentFlags().String("data", "", "feedback file or database path (overrides [data] path)")
	rootCommand.PersistentFlags().String("model", "bpr.model", "model name in the model directory")
	rootCommand.PersistentFlags().String("metrics-textfile", "", "write metrics to a node exporter textfile")
	rootCommand.AddCommand(trainCommand, evaluateCommand, versionCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}

// loadConfig loads the configuration file given by --config, or the default configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	var conf *config.Config
	if configPath == "" {
		conf = config.GetDefaultConfig()
	} else {
		log.Logger().Info("load config", zap.String("config", configPath))
		var err error
		if conf, err = config.LoadConfig(configPath); err != nil {
			return nil, errors.Annotate(err, "failed to load config")
		}
	}
	if dataPath, _ := cmd.Flags().GetString("data"); dataPath != "" {
		conf.Data.Path = dataPath
	}
	if conf.Data.Path == "" {
		return nil, errors.NotValidf("empty data path")
	}
	return conf, nil
}

// loadDataset loads feedback and holds out one interaction per user.
func loadDataset(conf *config.Config) (*dataset.Dataset, []dataset.Assignment, error) {
	var (
		data *dataset.Dataset
		err  error
	)
	switch conf.Data.Source {
	case "csv":
		data, err = dataset.LoadDataFromCSV(conf.Data.Path, conf.Data.Separator, conf.Data.Header)
	case "sqlite":
		data, err = dataset.LoadDataFromSQLite(conf.Data.Path, conf.Data.Query)
	default:
		err = errors.NotSupportedf("data source %s", conf.Data.Source)
	}
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	train, test := data.SplitLeaveOneOut(conf.Evaluation.RandomState)
	log.Logger().Info("load dataset",
		zap.Int("n_users", train.CountUsers()),
		zap.Int("n_items", train.CountItems()),
		zap.Int("n_train", train.CountFeedback()),
		zap.Int("n_test", len(test)))
	return train, test, nil
}

func writeMetrics(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("metrics-textfile")
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return errors.Annotatef(err, "failed to write metrics to %s", path)
	}
	return nil
}
