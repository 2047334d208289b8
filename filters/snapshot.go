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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/cespare/xxhash/v2"

	"github.com/mike-huls/bloomlib/internal"
)

// Snapshot is the complete, self-describing state of a filter.
//
// Payload holds the raw storage: for a Bloom filter ceil(NumSlots/64)
// little-endian uint64 words, for a counting filter NumSlots little-endian
// uint32 counters. The payload is authoritative; the sizes are never
// recomputed from an accuracy target.
type Snapshot struct {
	FamilyID      uint8
	NumHashes     uint16
	ExpectedItems uint64
	NumSlots      uint64
	Payload       []byte
}

func familyBloom() internal.Family {
	return internal.FamilyEnum.BloomFilter
}

func familyCountingBloom() internal.Family {
	return internal.FamilyEnum.CountingBloomFilter
}

// payloadBytes returns the payload length implied by the family and NumSlots.
func (s *Snapshot) payloadBytes() uint64 {
	if int(s.FamilyID) == familyCountingBloom().Id {
		return s.NumSlots * counterBytes
	}
	return wordsForBits(s.NumSlots) * 8
}

// slotsUsed counts set bits or non-zero counters in the payload.
func (s *Snapshot) slotsUsed() uint64 {
	count := uint64(0)
	if int(s.FamilyID) == familyCountingBloom().Id {
		for i := 0; i+counterBytes <= len(s.Payload); i += counterBytes {
			if binary.LittleEndian.Uint32(s.Payload[i:]) != 0 {
				count++
			}
		}
		return count
	}
	for _, b := range s.Payload {
		count += uint64(bits.OnesCount8(b))
	}
	return count
}

// validateHeader checks every field except the payload contents. Failures
// wrap sentinel: ErrDeserialization when decoding, ErrInvalidParameter when
// encoding.
func (s *Snapshot) validateHeader(want internal.Family, sentinel error) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", sentinel)
	}
	if int(s.FamilyID) != want.Id {
		return fmt.Errorf("%w: family %d, expected %d", sentinel, s.FamilyID, want.Id)
	}
	if s.NumHashes == 0 {
		return fmt.Errorf("%w: numHashes must be positive", sentinel)
	}
	if s.ExpectedItems == 0 {
		return fmt.Errorf("%w: expected items must be positive", sentinel)
	}
	if s.NumSlots == 0 || s.NumSlots > maxSlots {
		return fmt.Errorf("%w: %d slots outside (0, %d]", sentinel, s.NumSlots, maxSlots)
	}
	if uint64(len(s.Payload)) != s.payloadBytes() {
		return fmt.Errorf("%w: payload of %d bytes, expected %d for %d slots",
			sentinel, len(s.Payload), s.payloadBytes(), s.NumSlots)
	}
	return nil
}

// MarshalBinary encodes the snapshot. Empty filters omit the payload. A
// malformed snapshot returns an error wrapping ErrInvalidParameter.
func (s *Snapshot) MarshalBinary() ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidParameter)
	}
	family, ok := internal.FamilyByID(int(s.FamilyID))
	if !ok {
		return nil, fmt.Errorf("%w: unknown family %d", ErrInvalidParameter, s.FamilyID)
	}
	if err := s.validateHeader(family, ErrInvalidParameter); err != nil {
		return nil, err
	}

	slotsUsed := s.slotsUsed()
	isEmpty := slotsUsed == 0
	var size int
	if isEmpty {
		size = preambleEmptyBytes
	} else {
		size = preambleBytes + len(s.Payload)
	}

	buf := make([]byte, size, size+checksumBytes)

	flags := uint8(0)
	if isEmpty {
		insertPreambleLongs(buf, preambleLongsEmpty)
		flags = setEmptyFlag(flags)
	} else {
		insertPreambleLongs(buf, uint8(family.MaxPreLongs))
	}
	insertSerVer(buf)
	insertFamilyID(buf, s.FamilyID)
	insertFlags(buf, flags)
	insertNumHashes(buf, s.NumHashes)
	insertExpectedItems(buf, s.ExpectedItems)
	insertNumSlots(buf, s.NumSlots)

	if !isEmpty {
		insertSlotsUsed(buf, slotsUsed)
		copy(buf[payloadOffset:], s.Payload)
	}

	return binary.LittleEndian.AppendUint64(buf, xxhash.Sum64(buf)), nil
}

// UnmarshalSnapshot decodes a snapshot produced by MarshalBinary. Trailing
// bytes are rejected.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	r := bytes.NewReader(data)
	dec := NewSnapshotDecoder(r)
	s, err := dec.Decode()
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrDeserialization, r.Len())
	}
	return s, nil
}

// SnapshotEncoder writes snapshots to a stream.
type SnapshotEncoder struct {
	w io.Writer
}

// NewSnapshotEncoder creates a new encoder.
func NewSnapshotEncoder(w io.Writer) SnapshotEncoder {
	return SnapshotEncoder{w: w}
}

// Encode writes one snapshot.
func (enc *SnapshotEncoder) Encode(s *Snapshot) error {
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = enc.w.Write(data)
	return err
}

// SnapshotDecoder reads snapshots from a stream.
type SnapshotDecoder struct {
	r io.Reader
}

// NewSnapshotDecoder creates a new decoder.
func NewSnapshotDecoder(r io.Reader) SnapshotDecoder {
	return SnapshotDecoder{r: r}
}

// Decode reads one snapshot. Every failure, including a short read, wraps
// ErrDeserialization and yields no snapshot.
func (dec *SnapshotDecoder) Decode() (*Snapshot, error) {
	digest := xxhash.New()
	tr := io.TeeReader(dec.r, digest)

	header := make([]byte, preambleBytes)
	if err := readFull(tr, header[:preambleEmptyBytes], "preamble"); err != nil {
		return nil, err
	}

	if v := extractSerVer(header); v != serVer {
		return nil, fmt.Errorf("%w: unsupported serialization version: %d (expected %d)", ErrDeserialization, v, serVer)
	}
	family, ok := internal.FamilyByID(int(extractFamilyID(header)))
	if !ok {
		return nil, fmt.Errorf("%w: invalid family ID: %d", ErrDeserialization, extractFamilyID(header))
	}
	flags := extractFlags(header)
	if flags&^emptyFlagMask != 0 {
		return nil, fmt.Errorf("%w: unknown flags 0x%02x", ErrDeserialization, flags)
	}
	isEmpty := isEmptyFlag(flags)
	expectedPreambleLongs := uint8(preambleLongsEmpty)
	if !isEmpty {
		expectedPreambleLongs = uint8(family.MaxPreLongs)
	}
	if pLongs := extractPreambleLongs(header); pLongs != expectedPreambleLongs {
		return nil, fmt.Errorf("%w: invalid preamble longs: %d (expected %d for empty=%v)",
			ErrDeserialization, pLongs, expectedPreambleLongs, isEmpty)
	}

	s := &Snapshot{
		FamilyID:      uint8(family.Id),
		NumHashes:     extractNumHashes(header),
		ExpectedItems: extractExpectedItems(header),
		NumSlots:      extractNumSlots(header),
	}
	if s.NumSlots == 0 || s.NumSlots > maxSlots {
		return nil, fmt.Errorf("%w: %d slots outside (0, %d]", ErrDeserialization, s.NumSlots, maxSlots)
	}

	var slotsUsed uint64
	if !isEmpty {
		if err := readFull(tr, header[preambleEmptyBytes:], "preamble"); err != nil {
			return nil, err
		}
		slotsUsed = extractSlotsUsed(header)

		size := s.payloadBytes()
		payload, err := io.ReadAll(io.LimitReader(tr, int64(size)))
		if err != nil {
			return nil, fmt.Errorf("%w: reading payload: %w", ErrDeserialization, err)
		}
		if uint64(len(payload)) != size {
			return nil, fmt.Errorf("%w: payload truncated: got %d bytes, expected %d", ErrDeserialization, len(payload), size)
		}
		s.Payload = payload
	}

	sum := digest.Sum64()
	trailer := make([]byte, checksumBytes)
	if err := readFull(dec.r, trailer, "checksum"); err != nil {
		return nil, err
	}
	if got := binary.LittleEndian.Uint64(trailer); got != sum {
		return nil, fmt.Errorf("%w: checksum mismatch: stored %016x, computed %016x", ErrDeserialization, got, sum)
	}

	if isEmpty {
		s.Payload = make([]byte, s.payloadBytes())
	}
	if err := s.validateHeader(family, ErrDeserialization); err != nil {
		return nil, err
	}
	if counted := s.slotsUsed(); counted != slotsUsed || (!isEmpty && counted == 0) {
		return nil, fmt.Errorf("%w: header reports %d slots in use, payload has %d", ErrDeserialization, slotsUsed, counted)
	}
	return s, nil
}

func readFull(r io.Reader, buf []byte, what string) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("%w: reading %s: %w", ErrDeserialization, what, err)
	}
	return nil
}
