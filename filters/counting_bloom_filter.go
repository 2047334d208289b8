/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package filters

import (
	"fmt"

	"github.com/mike-huls/bloomlib/common"
	"github.com/mike-huls/bloomlib/internal"
)

// CountingBloomFilter is a Bloom filter whose slots are counters, so items
// can be removed again.
//
// Removal is only safe for items that were inserted. Even then, two items
// that share a slot are indistinguishable: removing one can drive a shared
// counter to zero while the other is still present, and the other then
// queries as absent. This false negative is inherent to counting filters.
type CountingBloomFilter interface {
	Insert(datum []byte)
	InsertItem(item any) error
	InsertItems(items ...any) error

	Query(datum []byte) bool
	QueryItem(item any) (bool, error)

	// Remove decrements the item's counters, never below zero.
	Remove(datum []byte)
	RemoveItem(item any) error

	IsEmpty() bool
	CountersUsed() uint64
	NumCounters() uint64
	NumHashes() uint16
	ExpectedItems() uint64
	EstimateFalsePositiveRate() float64

	Snapshot() *Snapshot
	ToCompactSlice() ([]byte, error)
	Clear()
}

type countingBloomFilterImpl struct {
	numHashes     uint16
	expectedItems uint64
	numNonZero    uint64
	counters      *counterArray
}

// NewCountingBloomFilterBySize creates a counting Bloom filter with
// numCounters 32-bit counters and numHashes hash functions.
func NewCountingBloomFilterBySize(numCounters uint64, numHashes uint16, opts ...FilterOption) (CountingBloomFilter, error) {
	expectedItems, err := validateShape(numCounters, numHashes, opts)
	if err != nil {
		return nil, err
	}
	return &countingBloomFilterImpl{
		numHashes:     numHashes,
		expectedItems: expectedItems,
		counters:      newCounterArray(numCounters),
	}, nil
}

// NewCountingBloomFilterByAccuracy sizes a counting Bloom filter with the same
// formulas as NewBloomFilterByAccuracy, one counter per bit.
func NewCountingBloomFilterByAccuracy(maxDistinctItems uint64, targetFpp float64) (CountingBloomFilter, error) {
	numCounters, numHashes, err := suggestShape(maxDistinctItems, targetFpp)
	if err != nil {
		return nil, err
	}
	return NewCountingBloomFilterBySize(numCounters, numHashes, WithExpectedItems(maxDistinctItems))
}

// NewCountingBloomFilterFromSnapshot rebuilds a counting filter. The number of
// counters is derived from the payload length.
func NewCountingBloomFilterFromSnapshot(s *Snapshot) (CountingBloomFilter, error) {
	if err := s.validateHeader(familyCountingBloom(), ErrDeserialization); err != nil {
		return nil, err
	}
	counters, ok := counterArrayFromPayload(s.Payload)
	if !ok || counters.len() != s.NumSlots {
		return nil, fmt.Errorf("%w: payload of %d bytes does not hold %d counters", ErrDeserialization, len(s.Payload), s.NumSlots)
	}
	return &countingBloomFilterImpl{
		numHashes:     s.NumHashes,
		expectedItems: s.ExpectedItems,
		numNonZero:    counters.countNonZero(),
		counters:      counters,
	}, nil
}

// NewCountingBloomFilterFromSlice deserializes a counting filter produced by
// ToCompactSlice.
func NewCountingBloomFilterFromSlice(bytes []byte) (CountingBloomFilter, error) {
	s, err := UnmarshalSnapshot(bytes)
	if err != nil {
		return nil, err
	}
	return NewCountingBloomFilterFromSnapshot(s)
}

func (cf *countingBloomFilterImpl) IsEmpty() bool {
	return cf.numNonZero == 0
}

// CountersUsed returns the number of non-zero counters.
func (cf *countingBloomFilterImpl) CountersUsed() uint64 {
	return cf.numNonZero
}

func (cf *countingBloomFilterImpl) NumCounters() uint64 {
	return cf.counters.len()
}

func (cf *countingBloomFilterImpl) NumHashes() uint16 {
	return cf.numHashes
}

func (cf *countingBloomFilterImpl) ExpectedItems() uint64 {
	return cf.expectedItems
}

func (cf *countingBloomFilterImpl) EstimateFalsePositiveRate() float64 {
	return estimateFalsePositiveRate(cf.numHashes, cf.counters.len(), cf.expectedItems)
}

// Clear zeroes every counter, saturated ones included. Size, hash count and
// expected items are kept.
func (cf *countingBloomFilterImpl) Clear() {
	cf.counters.reset()
	cf.numNonZero = 0
}

func (cf *countingBloomFilterImpl) Insert(datum []byte) {
	m := cf.counters.len()
	for i := uint16(0); i < cf.numHashes; i++ {
		if cf.counters.increment(hashIndex(datum, uint32(i), m)) {
			cf.numNonZero++
		}
	}
}

func (cf *countingBloomFilterImpl) Query(datum []byte) bool {
	m := cf.counters.len()
	for i := uint16(0); i < cf.numHashes; i++ {
		if cf.counters.get(hashIndex(datum, uint32(i), m)) == 0 {
			return false
		}
	}
	return true
}

// Remove decrements every counter the datum maps to. When k probes hit the
// same slot, that counter is decremented once per probe, mirroring Insert.
func (cf *countingBloomFilterImpl) Remove(datum []byte) {
	m := cf.counters.len()
	for i := uint16(0); i < cf.numHashes; i++ {
		if cf.counters.decrement(hashIndex(datum, uint32(i), m)) {
			cf.numNonZero--
		}
	}
}

func (cf *countingBloomFilterImpl) InsertItem(item any) error {
	datum, err := common.Canonicalize(item)
	if err != nil {
		return err
	}
	cf.Insert(datum)
	return nil
}

// InsertItems inserts each item in order, stopping at the first failure.
func (cf *countingBloomFilterImpl) InsertItems(items ...any) error {
	for i, item := range items {
		if err := cf.InsertItem(item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func (cf *countingBloomFilterImpl) QueryItem(item any) (bool, error) {
	datum, err := common.Canonicalize(item)
	if err != nil {
		return false, err
	}
	return cf.Query(datum), nil
}

func (cf *countingBloomFilterImpl) RemoveItem(item any) error {
	datum, err := common.Canonicalize(item)
	if err != nil {
		return err
	}
	cf.Remove(datum)
	return nil
}

func (cf *countingBloomFilterImpl) Snapshot() *Snapshot {
	return &Snapshot{
		FamilyID:      uint8(internal.FamilyEnum.CountingBloomFilter.Id),
		NumHashes:     cf.numHashes,
		ExpectedItems: cf.expectedItems,
		NumSlots:      cf.counters.len(),
		Payload:       cf.counters.appendCounters(make([]byte, 0, cf.counters.len()*counterBytes)),
	}
}

func (cf *countingBloomFilterImpl) ToCompactSlice() ([]byte, error) {
	return cf.Snapshot().MarshalBinary()
}
