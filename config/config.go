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

package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/gorse-io/bpr/base/log"
	"github.com/gorse-io/bpr/dataset"
	"github.com/gorse-io/bpr/model"
	"github.com/gorse-io/bpr/model/cf"
	"github.com/juju/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the configuration of a training run.
type Config struct {
	Model      ModelConfig      `mapstructure:"model"`
	Sampler    SamplerConfig    `mapstructure:"sampler"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Data       DataConfig       `mapstructure:"data"`
}

// ModelConfig is the configuration for the model.
type ModelConfig struct {
	NFactors                   int     `mapstructure:"n_factors" validate:"gt=0"`
	NEpochs                    int     `mapstructure:"n_epochs" validate:"gte=0"`
	LearningRate               float64 `mapstructure:"learning_rate" validate:"gt=0"`
	BiasRegularization         float64 `mapstructure:"bias_regularization" validate:"gte=0"`
	UserRegularization         float64 `mapstructure:"user_regularization" validate:"gte=0"`
	PositiveItemRegularization float64 `mapstructure:"positive_item_regularization" validate:"gte=0"`
	NegativeItemRegularization float64 `mapstructure:"negative_item_regularization" validate:"gte=0"`
	UpdateNegativeItemFactors  bool    `mapstructure:"update_negative_item_factors"`
	RandomState                int64   `mapstructure:"random_state"`
}

// SamplerConfig is the configuration for the triple sampler.
type SamplerConfig struct {
	Name                           string `mapstructure:"name" validate:"oneof=uniform_user_uniform_item uniform_user_uniform_item_without_replacement uniform_pair uniform_pair_without_replacement external_schedule"`
	SampleNegativeItemsEmpirically bool   `mapstructure:"sample_negative_items_empirically"`
	MaxSamples                     int    `mapstructure:"max_samples" validate:"gte=0"`
	SchedulePath                   string `mapstructure:"schedule_path" validate:"required_if=Name external_schedule"`
	IndexOffset                    int32  `mapstructure:"index_offset"`
	RandomState                    int64  `mapstructure:"random_state"`
}

// EvaluationConfig is the configuration for the held-out evaluation.
type EvaluationConfig struct {
	NumNegatives int   `mapstructure:"num_negatives" validate:"gt=0"`
	RandomState  int64 `mapstructure:"random_state"`
}

// DataConfig is the configuration for the feedback source and the model store.
type DataConfig struct {
	Source    string `mapstructure:"source" validate:"oneof=csv sqlite"`
	Path      string `mapstructure:"path"`
	Separator string `mapstructure:"separator" validate:"required"`
	Header    bool   `mapstructure:"header"`
	Query     string `mapstructure:"query" validate:"required_if=Source sqlite"`
	ModelDir  string `mapstructure:"model_dir" validate:"required"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			NFactors:                   10,
			NEpochs:                    10,
			LearningRate:               0.05,
			BiasRegularization:         1.0,
			UserRegularization:         1.0,
			PositiveItemRegularization: 1.0,
			NegativeItemRegularization: 1.0,
			UpdateNegativeItemFactors:  true,
		},
		Sampler: SamplerConfig{
			Name: cf.UniformPairWithoutReplacementName,
		},
		Evaluation: EvaluationConfig{
			NumNegatives: cf.DefaultNumNegatives,
		},
		Data: DataConfig{
			Source:    "csv",
			Separator: ",",
			Query:     dataset.DefaultFeedbackQuery,
			ModelDir:  "models",
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [model]
	viper.SetDefault("model.n_factors", defaultConfig.Model.NFactors)
	viper.SetDefault("model.n_epochs", defaultConfig.Model.NEpochs)
	viper.SetDefault("model.learning_rate", defaultConfig.Model.LearningRate)
	viper.SetDefault("model.bias_regularization", defaultConfig.Model.BiasRegularization)
	viper.SetDefault("model.user_regularization", defaultConfig.Model.UserRegularization)
	viper.SetDefault("model.positive_item_regularization", defaultConfig.Model.PositiveItemRegularization)
	viper.SetDefault("model.negative_item_regularization", defaultConfig.Model.NegativeItemRegularization)
	viper.SetDefault("model.update_negative_item_factors", defaultConfig.Model.UpdateNegativeItemFactors)
	viper.SetDefault("model.random_state", defaultConfig.Model.RandomState)
	// [sampler]
	viper.SetDefault("sampler.name", defaultConfig.Sampler.Name)
	viper.SetDefault("sampler.sample_negative_items_empirically", defaultConfig.Sampler.SampleNegativeItemsEmpirically)
	viper.SetDefault("sampler.max_samples", defaultConfig.Sampler.MaxSamples)
	viper.SetDefault("sampler.schedule_path", defaultConfig.Sampler.SchedulePath)
	viper.SetDefault("sampler.index_offset", defaultConfig.Sampler.IndexOffset)
	viper.SetDefault("sampler.random_state", defaultConfig.Sampler.RandomState)
	// [evaluation]
	viper.SetDefault("evaluation.num_negatives", defaultConfig.Evaluation.NumNegatives)
	viper.SetDefault("evaluation.random_state", defaultConfig.Evaluation.RandomState)
	// [data]
	viper.SetDefault("data.source", defaultConfig.Data.Source)
	viper.SetDefault("data.path", defaultConfig.Data.Path)
	viper.SetDefault("data.separator", defaultConfig.Data.Separator)
	viper.SetDefault("data.header", defaultConfig.Data.Header)
	viper.SetDefault("data.query", defaultConfig.Data.Query)
	viper.SetDefault("data.model_dir", defaultConfig.Data.ModelDir)
}

type configBinding struct {
	key string
	env string
}

// LoadConfig loads configuration from toml file. Environment variables take precedence.
func LoadConfig(path string) (*Config, error) {
	// set default config
	setDefault()

	// bind environment bindings
	bindings := []configBinding{
		{"model.n_epochs", "GORSE_BPR_N_EPOCHS"},
		{"model.random_state", "GORSE_BPR_RANDOM_STATE"},
		{"data.path", "GORSE_BPR_DATA_PATH"},
		{"data.model_dir", "GORSE_BPR_MODEL_DIR"},
	}
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			log.Logger().Fatal("failed to bind a Viper key to a ENV variable", zap.Error(err))
		}
	}

	// load config file
	viper.SetConfigType("toml")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}

	// unmarshal config file
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	return validate.Struct(config)
}

// ModelParams converts the model section into hyper-parameters.
func (config *Config) ModelParams() model.Params {
	return model.Params{
		model.NFactors:                  config.Model.NFactors,
		model.NEpochs:                   config.Model.NEpochs,
		model.Lr:                        config.Model.LearningRate,
		model.BiasReg:                   config.Model.BiasRegularization,
		model.UserReg:                   config.Model.UserRegularization,
		model.PositiveItemReg:           config.Model.PositiveItemRegularization,
		model.NegativeItemReg:           config.Model.NegativeItemRegularization,
		model.UpdateNegativeItemFactors: config.Model.UpdateNegativeItemFactors,
		model.RandomState:               config.Model.RandomState,
	}
}

// SamplerOptions converts the sampler section into sampler options.
func (config *Config) SamplerOptions() cf.SamplerOptions {
	return cf.SamplerOptions{
		Name:                           config.Sampler.Name,
		SampleNegativeItemsEmpirically: config.Sampler.SampleNegativeItemsEmpirically,
		MaxSamples:                     config.Sampler.MaxSamples,
		SchedulePath:                   config.Sampler.SchedulePath,
		IndexOffset:                    config.Sampler.IndexOffset,
		RandomState:                    config.Sampler.RandomState,
	}
}
