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
	"strconv"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/bpr/base"
)

// Matrix is a read-only implicit feedback matrix. Users and items are zero-indexed.
type Matrix interface {
	// Shape returns the number of users and the number of items.
	Shape() (int, int)
	// Contains returns true if the user has a positive interaction with the item.
	Contains(userIndex, itemIndex int32) bool
	// CountFeedback returns the number of positive interactions.
	CountFeedback() int
	// GetUserFeedback returns positive items of each user.
	GetUserFeedback() [][]int32
}

// Assignment is a held-out positive interaction.
type Assignment struct {
	UserIndex int32
	ItemIndex int32
}

// Dataset is a sparse implicit feedback matrix with id dictionaries.
type Dataset struct {
	userDict     *FreqDict
	itemDict     *FreqDict
	userFeedback [][]int32
	positives    []*bitset.BitSet
	numFeedback  int
}

func NewDataset() *Dataset {
	return &Dataset{
		userDict: NewFreqDict(),
		itemDict: NewFreqDict(),
	}
}

// NewDatasetFromDense creates a dataset from a dense 0/1 matrix. User and item ids are their indices.
func NewDatasetFromDense(rows [][]int) *Dataset {
	d := NewDataset()
	for userIndex := range rows {
		d.AddUser(strconv.Itoa(userIndex))
	}
	if len(rows) > 0 {
		for itemIndex := range rows[0] {
			d.AddItem(strconv.Itoa(itemIndex))
		}
	}
	for userIndex, row := range rows {
		for itemIndex, value := range row {
			if value != 0 {
				d.AddFeedback(strconv.Itoa(userIndex), strconv.Itoa(itemIndex))
			}
		}
	}
	return d
}

func (d *Dataset) Shape() (int, int) {
	return d.CountUsers(), d.CountItems()
}

func (d *Dataset) CountUsers() int {
	return int(d.userDict.Count())
}

func (d *Dataset) CountItems() int {
	return int(d.itemDict.Count())
}

func (d *Dataset) CountFeedback() int {
	return d.numFeedback
}

func (d *Dataset) GetUserFeedback() [][]int32 {
	return d.userFeedback
}

func (d *Dataset) GetUserDict() *FreqDict {
	return d.userDict
}

func (d *Dataset) Contains(userIndex, itemIndex int32) bool {
	if userIndex < 0 || int(userIndex) >= len(d.positives) || itemIndex < 0 {
		return false
	}
	return d.positives[userIndex].Test(uint(itemIndex))
}

// AddUser registers a user without feedback.
func (d *Dataset) AddUser(userId string) int32 {
	userIndex := d.userDict.NotCount(userId)
	for int(userIndex) >= len(d.userFeedback) {
		d.userFeedback = append(d.userFeedback, nil)
		d.positives = append(d.positives, bitset.New(0))
	}
	return userIndex
}

// AddItem registers an item without feedback.
func (d *Dataset) AddItem(itemId string) int32 {
	return d.itemDict.NotCount(itemId)
}

// AddFeedback inserts a positive interaction. Duplicates are ignored and reported by returning false.
func (d *Dataset) AddFeedback(userId, itemId string) bool {
	userIndex := d.AddUser(userId)
	itemIndex := d.AddItem(itemId)
	if d.positives[userIndex].Test(uint(itemIndex)) {
		return false
	}
	d.userDict.Id(userId)
	d.itemDict.Id(itemId)
	d.positives[userIndex].Set(uint(itemIndex))
	d.userFeedback[userIndex] = append(d.userFeedback[userIndex], itemIndex)
	d.numFeedback++
	return true
}

// emptyCopy creates a dataset sharing the id space of d but without feedback.
func (d *Dataset) emptyCopy() *Dataset {
	copied := &Dataset{
		userDict:     d.userDict,
		itemDict:     d.itemDict,
		userFeedback: make([][]int32, len(d.userFeedback)),
		positives:    make([]*bitset.BitSet, len(d.positives)),
	}
	for i := range copied.positives {
		copied.positives[i] = bitset.New(uint(d.itemDict.Count()))
	}
	return copied
}

func (d *Dataset) addFeedbackIndex(userIndex, itemIndex int32) {
	d.positives[userIndex].Set(uint(itemIndex))
	d.userFeedback[userIndex] = append(d.userFeedback[userIndex], itemIndex)
	d.numFeedback++
}

// SplitLeaveOneOut holds out one random positive item for every user with at least
// two positive items. The remaining interactions form the training set.
func (d *Dataset) SplitLeaveOneOut(seed int64) (*Dataset, []Assignment) {
	rng := base.NewRandomGenerator(seed)
	train := d.emptyCopy()
	var test []Assignment
	for userIndex, items := range d.userFeedback {
		heldOut := -1
		if len(items) >= 2 {
			heldOut = rng.Intn(len(items))
			test = append(test, Assignment{UserIndex: int32(userIndex), ItemIndex: items[heldOut]})
		}
		for k, itemIndex := range items {
			if k != heldOut {
				train.addFeedbackIndex(int32(userIndex), itemIndex)
			}
		}
	}
	return train, test
}
