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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gorse-io/bpr/model"
	"github.com/gorse-io/bpr/model/cf"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("config.toml")
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
}

func TestUnmarshal(t *testing.T) {
	data, err := os.ReadFile("config.toml")
	assert.NoError(t, err)
	text := string(data)
	text = strings.Replace(text, "n_factors = 10", "n_factors = 16", 1)
	text = strings.Replace(text, "learning_rate = 0.05", "learning_rate = 0.01", 1)
	text = strings.Replace(text, "name = \"uniform_pair_without_replacement\"", "name = \"external_schedule\"", 1)
	text = strings.Replace(text, "schedule_path = \"\"", "schedule_path = \"schedule.txt\"", 1)
	text = strings.Replace(text, "index_offset = 0", "index_offset = 1", 1)
	text = strings.Replace(text, "source = \"csv\"", "source = \"sqlite\"", 1)
	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte(text), 0644))

	config, err := LoadConfig(path)
	assert.NoError(t, err)
	// [model]
	assert.Equal(t, 16, config.Model.NFactors)
	assert.Equal(t, 0.01, config.Model.LearningRate)
	assert.Equal(t, 1.0, config.Model.UserRegularization)
	assert.True(t, config.Model.UpdateNegativeItemFactors)
	// [sampler]
	assert.Equal(t, cf.ExternalScheduleName, config.Sampler.Name)
	assert.Equal(t, "schedule.txt", config.Sampler.SchedulePath)
	assert.Equal(t, int32(1), config.Sampler.IndexOffset)
	// [evaluation]
	assert.Equal(t, 1200, config.Evaluation.NumNegatives)
	// [data]
	assert.Equal(t, "sqlite", config.Data.Source)
	assert.Equal(t, "models", config.Data.ModelDir)

	assert.Equal(t, model.Params{
		model.NFactors:                  16,
		model.NEpochs:                   10,
		model.Lr:                        0.01,
		model.BiasReg:                   1.0,
		model.UserReg:                   1.0,
		model.PositiveItemReg:           1.0,
		model.NegativeItemReg:           1.0,
		model.UpdateNegativeItemFactors: true,
		model.RandomState:               int64(0),
	}, config.ModelParams())
	assert.Equal(t, cf.SamplerOptions{
		Name:         cf.ExternalScheduleName,
		SchedulePath: "schedule.txt",
		IndexOffset:  1,
	}, config.SamplerOptions())
}

func TestSetDefault(t *testing.T) {
	setDefault()
	viper.SetConfigType("toml")
	err := viper.ReadConfig(strings.NewReader(""))
	assert.NoError(t, err)
	var config Config
	err = viper.Unmarshal(&config)
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), &config)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("GORSE_BPR_N_EPOCHS", "42")
	t.Setenv("GORSE_BPR_RANDOM_STATE", "7")
	t.Setenv("GORSE_BPR_DATA_PATH", "<data_path>")
	t.Setenv("GORSE_BPR_MODEL_DIR", "<model_dir>")
	config, err := LoadConfig("config.toml")
	assert.NoError(t, err)
	assert.Equal(t, 42, config.Model.NEpochs)
	assert.Equal(t, int64(7), config.Model.RandomState)
	assert.Equal(t, "<data_path>", config.Data.Path)
	assert.Equal(t, "<model_dir>", config.Data.ModelDir)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, GetDefaultConfig().Validate())
	for _, mutate := range []func(*Config){
		func(c *Config) { c.Model.NFactors = 0 },
		func(c *Config) { c.Model.NEpochs = -1 },
		func(c *Config) { c.Model.LearningRate = 0 },
		func(c *Config) { c.Model.UserRegularization = -1 },
		func(c *Config) { c.Sampler.Name = "unknown" },
		func(c *Config) { c.Sampler.Name = cf.ExternalScheduleName },
		func(c *Config) { c.Sampler.MaxSamples = -1 },
		func(c *Config) { c.Evaluation.NumNegatives = 0 },
		func(c *Config) { c.Data.Source = "mysql" },
		func(c *Config) { c.Data.ModelDir = "" },
	} {
		config := GetDefaultConfig()
		mutate(config)
		err := config.Validate()
		assert.IsType(t, validator.ValidationErrors{}, err)
	}
}
