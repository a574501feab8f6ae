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
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorse-io/bpr/base/progress"
	"github.com/gorse-io/bpr/dataset"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTrainAndEvaluate(t *testing.T) {
	dir := t.TempDir()
	// feedback
	var builder strings.Builder
	for userId := 0; userId < 20; userId++ {
		for itemId := userId % 5; itemId < 30; itemId += 3 {
			builder.WriteString(fmt.Sprintf("u%d,i%d\n", userId, itemId))
		}
	}
	dataPath := filepath.Join(dir, "feedback.csv")
	assert.NoError(t, os.WriteFile(dataPath, []byte(builder.String()), 0644))
	// config
	configPath := filepath.Join(dir, "config.toml")
	modelDir := filepath.Join(dir, "models")
	assert.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
[model]
n_factors = 4
n_epochs = 3

[evaluation]
num_negatives = 100

[data]
model_dir = %q
`, modelDir)), 0644))
	metricsPath := filepath.Join(dir, "bpr.prom")

	rootCommand.SetArgs([]string{"train", "-c", configPath, "--data", dataPath, "--metrics-textfile", metricsPath})
	assert.NoError(t, rootCommand.Execute())
	assert.FileExists(t, filepath.Join(modelDir, "bpr.model"))
	metrics, err := os.ReadFile(metricsPath)
	assert.NoError(t, err)
	assert.Contains(t, string(metrics), "gorse_bpr_fit_auc")
	assert.Contains(t, string(metrics), "gorse_bpr_held_out_auc")

	rootCommand.SetArgs([]string{"evaluate", "-c", configPath, "--data", dataPath})
	assert.NoError(t, rootCommand.Execute())

	// missing model lists the stored ones
	rootCommand.SetArgs([]string{"evaluate", "-c", configPath, "--data", dataPath, "--model", "missing.model"})
	err = rootCommand.Execute()
	assert.ErrorIs(t, err, errors.NotFound)
	assert.ErrorContains(t, err, ": [bpr.model]")
	rootCommand.SetArgs([]string{"evaluate", "-c", configPath, "--data", dataPath, "--model", "bpr.model"})
	assert.NoError(t, rootCommand.Execute())

	// missing data path
	rootCommand.SetArgs([]string{"train", "-c", configPath, "--data", ""})
	assert.Error(t, rootCommand.Execute())
}

func TestDescribeUsers(t *testing.T) {
	d := dataset.NewDataset()
	d.AddFeedback("alice", "1")
	d.AddFeedback("alice", "2")
	d.AddFeedback("bob", "1")
	assert.Equal(t, []string{
		"bob (1 interactions)",
		"alice (2 interactions)",
		"#7 (0 interactions)",
	}, describeUsers(d.GetUserDict(), []int32{1, 0, 7}))
}

func TestProgressFields(t *testing.T) {
	tracer := progress.NewTracer("test")
	ctx, span := tracer.Start(context.Background(), "train", 1)
	_, child := progress.Start(ctx, "BPR.Fit", 3)
	child.Add(2)
	child.Fail(errors.New("broken"))
	span.End()

	list := tracer.List()
	assert.Len(t, list, 2)
	fields := progressFields(list[1])
	assert.Equal(t, zap.String("name", "BPR.Fit"), fields[0])
	assert.Equal(t, zap.String("status", string(progress.StatusFailed)), fields[1])
	assert.Equal(t, zap.Int("count", 2), fields[2])
	assert.Equal(t, zap.Int("total", 3), fields[3])
	assert.Equal(t, zap.String("error", "broken"), fields[5])
	assert.Len(t, progressFields(list[0]), 5)
	logProgress(tracer)
}
