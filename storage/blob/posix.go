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
	"path"
	"sort"
	"strings"

	"github.com/gorse-io/bpr/base/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const uploadPrefix = "upload-"

// POSIX stores blobs as files in a directory.
type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

// Open a file for reading.
func (p *POSIX) Open(name string) (io.ReadCloser, error) {
	fullPath := path.Join(p.dir, name)
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return file, nil
}

// Create writes a file by calling write. Content goes to a temporary file first and the
// file appears under its name only if write succeeds.
func (p *POSIX) Create(name string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(p.dir, os.ModePerm); err != nil {
		return errors.Trace(err)
	}
	file, err := os.CreateTemp(p.dir, uploadPrefix+"*")
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := os.Remove(file.Name()); err != nil && !os.IsNotExist(err) {
			log.Logger().Warn("failed to remove temp file", zap.String("file", file.Name()), zap.Error(err))
		}
	}()
	w := bufio.NewWriter(file)
	if err = write(w); err != nil {
		_ = file.Close()
		return errors.Trace(err)
	}
	if err = w.Flush(); err != nil {
		_ = file.Close()
		return errors.Trace(err)
	}
	if err = file.Close(); err != nil {
		return errors.Trace(err)
	}
	// Rename file
	return errors.Trace(os.Rename(file.Name(), path.Join(p.dir, name)))
}

// List returns names of stored files in lexical order.
func (p *POSIX) List() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Trace(err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && !strings.HasPrefix(entry.Name(), uploadPrefix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
