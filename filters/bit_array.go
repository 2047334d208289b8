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
	"encoding/binary"
	"math/bits"

	"github.com/mike-huls/bloomlib/internal"
)

// bitArray is a packed array of numBits flags, 64 per word. Bits past
// numBits in the last word are always zero.
type bitArray struct {
	numBits uint64
	words   []uint64
}

func wordsForBits(numBits uint64) uint64 {
	return internal.CeilDiv(numBits, 64)
}

func newBitArray(numBits uint64) *bitArray {
	return &bitArray{
		numBits: numBits,
		words:   make([]uint64, wordsForBits(numBits)),
	}
}

func (b *bitArray) len() uint64 {
	return b.numBits
}

// get returns the value of the bit at the specified index.
func (b *bitArray) get(index uint64) bool {
	return (b.words[index>>6] & (1 << (index & 0x3F))) != 0
}

// set sets the bit at the specified index to 1.
func (b *bitArray) set(index uint64) {
	b.words[index>>6] |= 1 << (index & 0x3F)
}

// getAndSet sets the bit and reports whether it was already set.
func (b *bitArray) getAndSet(index uint64) bool {
	mask := uint64(1) << (index & 0x3F)
	wasSet := (b.words[index>>6] & mask) != 0
	b.words[index>>6] |= mask
	return wasSet
}

func (b *bitArray) reset() {
	clear(b.words)
}

// countBitsSet counts the number of bits set to 1.
func (b *bitArray) countBitsSet() uint64 {
	count := uint64(0)
	for _, w := range b.words {
		count += uint64(bits.OnesCount64(w))
	}
	return count
}

// unionWith ORs other into b and returns the number of bits set in the result.
func (b *bitArray) unionWith(other *bitArray) uint64 {
	count := uint64(0)
	for i := range b.words {
		b.words[i] |= other.words[i]
		count += uint64(bits.OnesCount64(b.words[i]))
	}
	return count
}

// intersect ANDs other into b and returns the number of bits set in the result.
func (b *bitArray) intersect(other *bitArray) uint64 {
	count := uint64(0)
	for i := range b.words {
		b.words[i] &= other.words[i]
		count += uint64(bits.OnesCount64(b.words[i]))
	}
	return count
}

// appendWords appends the little-endian word payload.
func (b *bitArray) appendWords(dst []byte) []byte {
	for _, w := range b.words {
		dst = binary.LittleEndian.AppendUint64(dst, w)
	}
	return dst
}

// bitArrayFromWords restores an array from a payload produced by appendWords.
func bitArrayFromWords(numBits uint64, payload []byte) (*bitArray, bool) {
	numWords := wordsForBits(numBits)
	if uint64(len(payload)) != numWords*8 {
		return nil, false
	}
	b := &bitArray{
		numBits: numBits,
		words:   make([]uint64, numWords),
	}
	for i := range b.words {
		b.words[i] = binary.LittleEndian.Uint64(payload[i*8:])
	}
	if tail := numBits & 0x3F; tail != 0 {
		if b.words[numWords-1]>>tail != 0 {
			return nil, false
		}
	}
	return b, true
}
