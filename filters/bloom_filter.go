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

// Package filters provides probabilistic membership data structures for efficient
// set membership testing with controlled false positive rates.
//
// The Bloom filter is a space-efficient probabilistic data structure that is used
// to test whether an element is a member of a set. False positive matches are
// possible, but false negatives are not. The counting Bloom filter replaces each
// bit with a counter so that items can be removed again.
//
// Both filters derive k slot indexes from a single seeded 32-bit murmur3 hash
// evaluated with seeds 0..k-1. Typed values are reduced to bytes by
// common.Canonicalize before hashing; raw byte slices are hashed as given.
//
// Filters do no locking. Concurrent queries are safe only while no insert,
// remove or clear is in flight; callers that mix readers and writers must
// guard the filter with their own mutex.
package filters

import (
	"fmt"

	"github.com/mike-huls/bloomlib/common"
	"github.com/mike-huls/bloomlib/internal"
)

// BloomFilter is a probabilistic data structure for set membership testing.
// It provides constant-time updates and queries with a configurable false
// positive rate. No false negatives are possible.
type BloomFilter interface {
	// Insert methods add items to the filter
	Insert(datum []byte)
	InsertItem(item any) error
	InsertItems(items ...any) error
	InsertInt64(datum int64)
	InsertString(datum string)
	InsertFloat64(datum float64)

	// Query methods test membership
	Query(datum []byte) bool
	QueryItem(item any) (bool, error)
	QueryInt64(datum int64) bool
	QueryString(datum string) bool
	QueryFloat64(datum float64) bool

	// QueryAndInsert tests membership and inserts in one pass (test-and-set)
	QueryAndInsert(datum []byte) bool

	// Set operations
	Union(other BloomFilter) error
	Intersect(other BloomFilter) error
	IsCompatible(other BloomFilter) bool

	// State queries
	IsEmpty() bool
	BitsUsed() uint64
	NumBits() uint64
	NumHashes() uint16
	ExpectedItems() uint64
	EstimateFalsePositiveRate() float64

	// Serialization
	Snapshot() *Snapshot
	ToCompactSlice() ([]byte, error)
	Clear()
}

// bloomFilterImpl is the concrete implementation of BloomFilter.
type bloomFilterImpl struct {
	numHashes     uint16
	expectedItems uint64
	numBitsSet    uint64
	bits          *bitArray
}

// IsEmpty returns true if no bits are set in the filter.
func (bf *bloomFilterImpl) IsEmpty() bool {
	return bf.numBitsSet == 0
}

// BitsUsed returns the number of bits currently set to 1.
func (bf *bloomFilterImpl) BitsUsed() uint64 {
	return bf.numBitsSet
}

// NumBits returns the length m of the bit array.
func (bf *bloomFilterImpl) NumBits() uint64 {
	return bf.bits.len()
}

// NumHashes returns the number of hash functions k.
func (bf *bloomFilterImpl) NumHashes() uint16 {
	return bf.numHashes
}

// ExpectedItems returns the item count the filter was sized for.
func (bf *bloomFilterImpl) ExpectedItems() uint64 {
	return bf.expectedItems
}

// EstimateFalsePositiveRate returns (1 - e^(-k*n/m))^k for the configured
// k, m and expected items n. It does not depend on what was inserted.
func (bf *bloomFilterImpl) EstimateFalsePositiveRate() float64 {
	return estimateFalsePositiveRate(bf.numHashes, bf.bits.len(), bf.expectedItems)
}

// Clear resets all bits. Size, hash count and expected items are kept.
func (bf *bloomFilterImpl) Clear() {
	bf.bits.reset()
	bf.numBitsSet = 0
}

// IsCompatible checks if two filters can be combined (union/intersection).
// Filters are compatible if they have the same hash count and bit length.
func (bf *bloomFilterImpl) IsCompatible(other BloomFilter) bool {
	return bf.numHashes == other.NumHashes() &&
		bf.bits.len() == other.NumBits()
}

// Insert adds a byte slice to the filter. Inserting twice has no further effect.
func (bf *bloomFilterImpl) Insert(datum []byte) {
	m := bf.bits.len()
	for i := uint16(0); i < bf.numHashes; i++ {
		if !bf.bits.getAndSet(hashIndex(datum, uint32(i), m)) {
			bf.numBitsSet++
		}
	}
}

// Query tests if a byte slice might be in the filter. It stops at the first
// unset bit.
func (bf *bloomFilterImpl) Query(datum []byte) bool {
	m := bf.bits.len()
	for i := uint16(0); i < bf.numHashes; i++ {
		if !bf.bits.get(hashIndex(datum, uint32(i), m)) {
			return false
		}
	}
	return true
}

// QueryAndInsert inserts datum and reports whether it was already present
// (all k bits were set before the insert).
func (bf *bloomFilterImpl) QueryAndInsert(datum []byte) bool {
	m := bf.bits.len()
	valueExists := true
	for i := uint16(0); i < bf.numHashes; i++ {
		if !bf.bits.getAndSet(hashIndex(datum, uint32(i), m)) {
			bf.numBitsSet++
			valueExists = false
		}
	}
	return valueExists
}

// InsertItem canonicalizes item and inserts the result.
func (bf *bloomFilterImpl) InsertItem(item any) error {
	datum, err := common.Canonicalize(item)
	if err != nil {
		return err
	}
	bf.Insert(datum)
	return nil
}

// InsertItems inserts each item in order. It stops at the first item that
// cannot be canonicalized; items before it stay inserted.
func (bf *bloomFilterImpl) InsertItems(items ...any) error {
	for i, item := range items {
		if err := bf.InsertItem(item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// QueryItem canonicalizes item and queries the result. A canonicalization
// failure is returned as an error, never reported as absent.
func (bf *bloomFilterImpl) QueryItem(item any) (bool, error) {
	datum, err := common.Canonicalize(item)
	if err != nil {
		return false, err
	}
	return bf.Query(datum), nil
}

// InsertInt64 adds an int64 value to the filter.
func (bf *bloomFilterImpl) InsertInt64(datum int64) {
	bf.Insert(common.CanonicalInteger(datum))
}

// InsertString adds a string to the filter.
func (bf *bloomFilterImpl) InsertString(datum string) {
	bf.Insert(common.CanonicalString(datum))
}

// InsertFloat64 adds a float64 value to the filter.
func (bf *bloomFilterImpl) InsertFloat64(datum float64) {
	bf.Insert(common.CanonicalFloat(datum))
}

// QueryInt64 tests if an int64 value might be in the filter.
func (bf *bloomFilterImpl) QueryInt64(datum int64) bool {
	return bf.Query(common.CanonicalInteger(datum))
}

// QueryString tests if a string might be in the filter.
func (bf *bloomFilterImpl) QueryString(datum string) bool {
	return bf.Query(common.CanonicalString(datum))
}

// QueryFloat64 tests if a float64 value might be in the filter.
func (bf *bloomFilterImpl) QueryFloat64(datum float64) bool {
	return bf.Query(common.CanonicalFloat(datum))
}

// Union performs a bitwise OR operation with another filter.
// After union, this filter will contain items from both filters.
func (bf *bloomFilterImpl) Union(other BloomFilter) error {
	otherImpl, err := bf.compatibleImpl(other)
	if err != nil {
		return fmt.Errorf("cannot union: %w", err)
	}
	bf.numBitsSet = bf.bits.unionWith(otherImpl.bits)
	return nil
}

// Intersect performs a bitwise AND operation with another filter.
// After intersection, this filter will only contain items present in both filters.
func (bf *bloomFilterImpl) Intersect(other BloomFilter) error {
	otherImpl, err := bf.compatibleImpl(other)
	if err != nil {
		return fmt.Errorf("cannot intersect: %w", err)
	}
	bf.numBitsSet = bf.bits.intersect(otherImpl.bits)
	return nil
}

func (bf *bloomFilterImpl) compatibleImpl(other BloomFilter) (*bloomFilterImpl, error) {
	if !bf.IsCompatible(other) {
		return nil, fmt.Errorf("%w: got %d bits/%d hashes, want %d bits/%d hashes",
			ErrIncompatible, other.NumBits(), other.NumHashes(), bf.bits.len(), bf.numHashes)
	}
	otherImpl, ok := other.(*bloomFilterImpl)
	if !ok {
		return nil, fmt.Errorf("%w: non-standard bloom filter implementation", ErrIncompatible)
	}
	return otherImpl, nil
}

// Snapshot returns a copy of the filter state.
func (bf *bloomFilterImpl) Snapshot() *Snapshot {
	return &Snapshot{
		FamilyID:      uint8(internal.FamilyEnum.BloomFilter.Id),
		NumHashes:     bf.numHashes,
		ExpectedItems: bf.expectedItems,
		NumSlots:      bf.bits.len(),
		Payload:       bf.bits.appendWords(make([]byte, 0, len(bf.bits.words)*8)),
	}
}

// ToCompactSlice serializes the filter to a byte slice.
func (bf *bloomFilterImpl) ToCompactSlice() ([]byte, error) {
	return bf.Snapshot().MarshalBinary()
}
