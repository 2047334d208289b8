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

import "encoding/binary"

// Preamble layout shared by both filter families
const (
	// Header sizes
	preambleBytes      = 32 // Full preamble size for non-empty filter
	preambleEmptyBytes = 24 // Preamble size for empty filter
	checksumBytes      = 8  // xxhash64 trailer after the payload

	// Preamble field offsets
	preambleLongsOffset = 0
	serVerOffset        = 1
	familyIDOffset      = 2
	flagsOffset         = 3
	numHashesOffset     = 4
	expectedItemsOffset = 8
	numSlotsOffset      = 16
	slotsUsedOffset     = 24
	payloadOffset       = 32

	serVer = 1

	// Preamble size in longs for an empty filter; non-empty filters use
	// the family's MaxPreLongs.
	preambleLongsEmpty = 3

	// Flag masks
	emptyFlagMask = 0x04
)

func extractPreambleLongs(bytes []byte) uint8 {
	return bytes[preambleLongsOffset]
}

func extractSerVer(bytes []byte) uint8 {
	return bytes[serVerOffset]
}

func extractFamilyID(bytes []byte) uint8 {
	return bytes[familyIDOffset]
}

func extractFlags(bytes []byte) uint8 {
	return bytes[flagsOffset]
}

func extractNumHashes(bytes []byte) uint16 {
	return binary.LittleEndian.Uint16(bytes[numHashesOffset:])
}

func extractExpectedItems(bytes []byte) uint64 {
	return binary.LittleEndian.Uint64(bytes[expectedItemsOffset:])
}

// extractNumSlots extracts the array length m (bits or counters).
func extractNumSlots(bytes []byte) uint64 {
	return binary.LittleEndian.Uint64(bytes[numSlotsOffset:])
}

// extractSlotsUsed extracts the number of set bits or non-zero counters.
// Only present for non-empty filters.
func extractSlotsUsed(bytes []byte) uint64 {
	return binary.LittleEndian.Uint64(bytes[slotsUsedOffset:])
}

func insertPreambleLongs(bytes []byte, val uint8) {
	bytes[preambleLongsOffset] = val
}

func insertSerVer(bytes []byte) {
	bytes[serVerOffset] = serVer
}

func insertFamilyID(bytes []byte, id uint8) {
	bytes[familyIDOffset] = id
}

func insertFlags(bytes []byte, flags uint8) {
	bytes[flagsOffset] = flags
}

func insertNumHashes(bytes []byte, numHashes uint16) {
	binary.LittleEndian.PutUint16(bytes[numHashesOffset:], numHashes)
}

func insertExpectedItems(bytes []byte, n uint64) {
	binary.LittleEndian.PutUint64(bytes[expectedItemsOffset:], n)
}

func insertNumSlots(bytes []byte, numSlots uint64) {
	binary.LittleEndian.PutUint64(bytes[numSlotsOffset:], numSlots)
}

func insertSlotsUsed(bytes []byte, slotsUsed uint64) {
	binary.LittleEndian.PutUint64(bytes[slotsUsedOffset:], slotsUsed)
}

// isEmptyFlag checks if the empty flag is set in the flags byte.
func isEmptyFlag(flags uint8) bool {
	return (flags & emptyFlagMask) != 0
}

// setEmptyFlag sets the empty flag in the flags byte.
func setEmptyFlag(flags uint8) uint8 {
	return flags | emptyFlagMask
}
