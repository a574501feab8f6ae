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

package blob

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/gorse-io/bpr/base/log"
	"github.com/gorse-io/bpr/model/cf"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// SaveModel writes a model under name.
func (p *POSIX) SaveModel(name string, m *cf.BPR) error {
	err := p.Create(name, func(w io.Writer) error {
		return cf.MarshalModel(w, m)
	})
	if err != nil {
		return errors.Annotatef(err, "failed to save model %s", name)
	}
	log.Logger().Info("save model", zap.String("dir", p.dir), zap.String("name", name))
	return nil
}

// LoadModel reads the model saved under name. A missing model is reported as NotFound
// together with the stored names.
func (p *POSIX) LoadModel(name string) (*cf.BPR, error) {
	r, err := p.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		names, listErr := p.List()
		if listErr != nil {
			return nil, errors.Trace(listErr)
		}
		return nil, errors.Annotatef(errors.NotFoundf("model %s", name),
			"available models in %s: [%s]", p.dir, strings.Join(names, ", "))
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close()
	m, err := cf.UnmarshalModel(bufio.NewReader(r))
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load model %s", name)
	}
	return m, nil
}
