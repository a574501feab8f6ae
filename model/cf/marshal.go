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
	"io"

	"github.com/gorse-io/bpr/base/encoding"
	"github.com/gorse-io/bpr/model"
	"github.com/juju/errors"
)

const modelName = "bpr"

type lossSampleSet struct {
	Triples []Triple
}

// MarshalModel writes the model name followed by the model.
func MarshalModel(w io.Writer, bpr *BPR) error {
	if err := encoding.WriteString(w, modelName); err != nil {
		return errors.Trace(err)
	}
	if err := bpr.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// UnmarshalModel reads a model written by MarshalModel.
func UnmarshalModel(r io.Reader) (*BPR, error) {
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if name != modelName {
		return nil, errors.NotSupportedf("model %v", name)
	}
	var bpr BPR
	if err = bpr.Unmarshal(r); err != nil {
		return nil, errors.Trace(err)
	}
	return &bpr, nil
}

// Marshal model into byte stream.
func (bpr *BPR) Marshal(w io.Writer) error {
	if bpr.Invalid() {
		return errors.New("marshal uninitialized model")
	}
	// write params
	if err := encoding.WriteGob(w, bpr.Params); err != nil {
		return errors.Trace(err)
	}
	// write biases and factors
	if err := encoding.WriteVector(w, bpr.ItemBias); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, bpr.UserFactor); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, bpr.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	// write loss samples
	return encoding.WriteGob(w, lossSampleSet{Triples: bpr.lossSamples})
}

// Unmarshal model from byte stream. Factors go through the same validation as Load.
func (bpr *BPR) Unmarshal(r io.Reader) error {
	var params model.Params
	if err := encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	if err := bpr.SetParams(params); err != nil {
		return errors.Trace(err)
	}
	itemBias, err := encoding.ReadVector(r)
	if err != nil {
		return errors.Trace(err)
	}
	userFactor, err := encoding.ReadMatrix(r)
	if err != nil {
		return errors.Trace(err)
	}
	itemFactor, err := encoding.ReadMatrix(r)
	if err != nil {
		return errors.Trace(err)
	}
	bpr.Clear()
	if err = bpr.Load(itemBias, userFactor, itemFactor); err != nil {
		return errors.Trace(err)
	}
	var samples lossSampleSet
	if err = encoding.ReadGob(r, &samples); err != nil {
		return errors.Trace(err)
	}
	for _, t := range samples.Triples {
		if err = bpr.checkIndex(t.UserIndex, t.PositiveIndex, t.NegativeIndex); err != nil {
			return errors.Annotate(err, "invalid loss sample")
		}
	}
	bpr.lossSamples = samples.Triples
	return nil
}
