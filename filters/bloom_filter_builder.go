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

import "fmt"

// filterOptions holds optional parameters for filter construction.
type filterOptions struct {
	expectedItems uint64
}

// FilterOption is a functional option for configuring a filter.
type FilterOption func(*filterOptions)

// WithExpectedItems sets the item count used by EstimateFalsePositiveRate for
// filters sized explicitly. Without it the count for which the size and hash
// count are optimal is used.
func WithExpectedItems(n uint64) FilterOption {
	return func(opts *filterOptions) {
		opts.expectedItems = n
	}
}

func validateShape(numSlots uint64, numHashes uint16, opts []FilterOption) (uint64, error) {
	if numSlots == 0 {
		return 0, fmt.Errorf("%w: number of slots must be positive", ErrInvalidParameter)
	}
	if numSlots > maxSlots {
		return 0, fmt.Errorf("%w: %d slots exceeds the maximum of %d", ErrInvalidParameter, numSlots, maxSlots)
	}
	if numHashes == 0 {
		return 0, fmt.Errorf("%w: numHashes must be positive", ErrInvalidParameter)
	}

	options := &filterOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.expectedItems == 0 {
		return defaultExpectedItems(numSlots, numHashes), nil
	}
	return options.expectedItems, nil
}

// NewBloomFilterBySize creates a new Bloom filter with explicit size parameters.
//
// Parameters:
//   - numBits: The number of bits in the filter, used as given
//   - numHashes: The number of hash functions to use
//   - opts: Optional configuration (expected items)
//
// Returns an error wrapping ErrInvalidParameter if parameters are invalid.
func NewBloomFilterBySize(numBits uint64, numHashes uint16, opts ...FilterOption) (BloomFilter, error) {
	expectedItems, err := validateShape(numBits, numHashes, opts)
	if err != nil {
		return nil, err
	}

	return &bloomFilterImpl{
		numHashes:     numHashes,
		expectedItems: expectedItems,
		bits:          newBitArray(numBits),
	}, nil
}

// NewBloomFilterByAccuracy creates a new Bloom filter optimized for target accuracy.
//
// The filter is sized to achieve the specified false positive probability for the
// given number of expected items:
//
//	m = ceil(-n * ln(p) / (ln 2)^2)
//	k = ceil((m / n) * ln 2)
//
// Returns an error wrapping ErrInvalidParameter unless n >= 1 and 0 < p < 1.
func NewBloomFilterByAccuracy(maxDistinctItems uint64, targetFpp float64) (BloomFilter, error) {
	numBits, numHashes, err := suggestShape(maxDistinctItems, targetFpp)
	if err != nil {
		return nil, err
	}
	return NewBloomFilterBySize(numBits, numHashes, WithExpectedItems(maxDistinctItems))
}

// NewBloomFilterWithDefault creates a new Bloom filter with default parameters.
// Suitable for approximately 10,000 items with 1% false positive rate.
func NewBloomFilterWithDefault() (BloomFilter, error) {
	return NewBloomFilterByAccuracy(10000, 0.01)
}

func suggestShape(maxDistinctItems uint64, targetFpp float64) (uint64, uint16, error) {
	numBits, err := SuggestNumFilterBits(maxDistinctItems, targetFpp)
	if err != nil {
		return 0, 0, err
	}
	numHashes, err := SuggestNumHashesFromSize(maxDistinctItems, numBits)
	if err != nil {
		return 0, 0, err
	}
	return numBits, numHashes, nil
}

// NewBloomFilterFromSnapshot rebuilds a Bloom filter from a snapshot. The bit
// length is taken from the snapshot, never recomputed from an accuracy target.
func NewBloomFilterFromSnapshot(s *Snapshot) (BloomFilter, error) {
	if err := s.validateHeader(familyBloom(), ErrDeserialization); err != nil {
		return nil, err
	}
	bits, ok := bitArrayFromWords(s.NumSlots, s.Payload)
	if !ok {
		return nil, fmt.Errorf("%w: payload of %d bytes does not hold %d bits", ErrDeserialization, len(s.Payload), s.NumSlots)
	}
	return &bloomFilterImpl{
		numHashes:     s.NumHashes,
		expectedItems: s.ExpectedItems,
		numBitsSet:    bits.countBitsSet(),
		bits:          bits,
	}, nil
}

// NewBloomFilterFromSlice deserializes a Bloom filter from a byte slice
// produced by ToCompactSlice.
//
// Returns an error wrapping ErrDeserialization if the data is invalid or corrupted.
func NewBloomFilterFromSlice(bytes []byte) (BloomFilter, error) {
	s, err := UnmarshalSnapshot(bytes)
	if err != nil {
		return nil, err
	}
	return NewBloomFilterFromSnapshot(s)
}
