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

package dataset

import (
	"bufio"
	"database/sql"
	"os"
	"strings"

	"github.com/gorse-io/bpr/base/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DefaultFeedbackQuery selects positive interactions from a gorse-style feedback table.
const DefaultFeedbackQuery = "SELECT user_id, item_id FROM feedback"

// LoadDataFromCSV loads positive interactions from a text file. Each line holds a user id and
// an item id separated by sep; further fields are ignored.
func LoadDataFromCSV(path, sep string, header bool) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	dataset := NewDataset()
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	duplicates := 0
	for scanner.Scan() {
		lineNumber++
		if header && lineNumber == 1 {
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, sep)
		if len(fields) < 2 {
			return nil, errors.Errorf("line %d: expect at least 2 fields but got %d", lineNumber, len(fields))
		}
		userId, itemId := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if userId == "" || itemId == "" {
			return nil, errors.Errorf("line %d: empty user or item id", lineNumber)
		}
		if !dataset.AddFeedback(userId, itemId) {
			duplicates++
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load dataset from csv",
		zap.String("path", path),
		zap.Int("n_users", dataset.CountUsers()),
		zap.Int("n_items", dataset.CountItems()),
		zap.Int("n_feedback", dataset.CountFeedback()),
		zap.Int("n_duplicates", duplicates))
	return dataset, nil
}

// LoadDataFromSQLite loads positive interactions from a SQLite database. The query must return
// user ids and item ids in its first two columns.
func LoadDataFromSQLite(path, query string) (*Dataset, error) {
	if query == "" {
		query = DefaultFeedbackQuery
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer db.Close()
	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	dataset := NewDataset()
	for rows.Next() {
		var userId, itemId string
		if err = rows.Scan(&userId, &itemId); err != nil {
			return nil, errors.Trace(err)
		}
		dataset.AddFeedback(userId, itemId)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load dataset from sqlite",
		zap.String("path", path),
		zap.Int("n_users", dataset.CountUsers()),
		zap.Int("n_items", dataset.CountItems()),
		zap.Int("n_feedback", dataset.CountFeedback()))
	return dataset, nil
}
