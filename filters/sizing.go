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
	"math"
)

// maxSlots bounds the array length: the indexer draws from a 32-bit hash.
const maxSlots = uint64(math.MaxUint32)

// SuggestNumFilterBits calculates the optimal number of bits for a Bloom filter.
//
// Formula: m = ceil(-n * ln(p) / (ln(2))^2)
// where n = number of items, p = target false positive probability
func SuggestNumFilterBits(maxDistinctItems uint64, targetFpp float64) (uint64, error) {
	if maxDistinctItems == 0 {
		return 0, fmt.Errorf("%w: expected items must be positive", ErrInvalidParameter)
	}
	if !(targetFpp > 0.0 && targetFpp < 1.0) {
		return 0, fmt.Errorf("%w: false positive rate must be in (0, 1), got %v", ErrInvalidParameter, targetFpp)
	}

	n := float64(maxDistinctItems)
	ln2 := math.Ln2

	bits := math.Ceil(-n * math.Log(targetFpp) / (ln2 * ln2))
	if bits > float64(maxSlots) {
		return 0, fmt.Errorf("%w: %v bits exceeds the maximum of %d", ErrInvalidParameter, bits, maxSlots)
	}
	return uint64(bits), nil
}

// SuggestNumHashes calculates the optimal number of hash functions from target FPP.
//
// Formula: k = ceil(-ln(p) / ln(2))
func SuggestNumHashes(targetFpp float64) (uint16, error) {
	if !(targetFpp > 0.0 && targetFpp < 1.0) {
		return 0, fmt.Errorf("%w: false positive rate must be in (0, 1), got %v", ErrInvalidParameter, targetFpp)
	}
	return clampHashes(-math.Log(targetFpp) / math.Ln2)
}

// SuggestNumHashesFromSize calculates optimal number of hash functions from filter size.
//
// Formula: k = ceil((m/n) * ln(2)), never less than 1.
func SuggestNumHashesFromSize(maxDistinctItems, numFilterBits uint64) (uint16, error) {
	if maxDistinctItems == 0 {
		return 0, fmt.Errorf("%w: expected items must be positive", ErrInvalidParameter)
	}
	ratio := float64(numFilterBits) / float64(maxDistinctItems)
	return clampHashes(ratio * math.Ln2)
}

func clampHashes(k float64) (uint16, error) {
	k = math.Ceil(k)
	if k > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %v hash functions exceeds the maximum of %d", ErrInvalidParameter, k, math.MaxUint16)
	}
	if k < 1 {
		return 1, nil
	}
	return uint16(k), nil
}

// defaultExpectedItems is the item count for which numSlots and numHashes are
// optimal, used when a filter is sized explicitly without an item count.
func defaultExpectedItems(numSlots uint64, numHashes uint16) uint64 {
	n := math.Round(float64(numSlots) * math.Ln2 / float64(numHashes))
	if n < 1 {
		return 1
	}
	return uint64(n)
}
