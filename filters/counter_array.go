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
	"math"
)

const counterBytes = 4

// counterArray holds one 32-bit counter per slot.
//
// Increments saturate at math.MaxUint32. A saturated counter has lost its
// true count, so it is sticky: decrement leaves it saturated. Decrement of
// a zero counter is a no-op.
type counterArray struct {
	counters []uint32
}

func newCounterArray(numCounters uint64) *counterArray {
	return &counterArray{counters: make([]uint32, numCounters)}
}

func (c *counterArray) len() uint64 {
	return uint64(len(c.counters))
}

func (c *counterArray) get(index uint64) uint32 {
	return c.counters[index]
}

// increment bumps the counter and reports whether it was zero before.
func (c *counterArray) increment(index uint64) bool {
	v := c.counters[index]
	if v != math.MaxUint32 {
		c.counters[index] = v + 1
	}
	return v == 0
}

// decrement lowers the counter and reports whether it reached zero.
func (c *counterArray) decrement(index uint64) bool {
	v := c.counters[index]
	if v == 0 || v == math.MaxUint32 {
		return false
	}
	c.counters[index] = v - 1
	return v == 1
}

func (c *counterArray) reset() {
	clear(c.counters)
}

func (c *counterArray) countNonZero() uint64 {
	count := uint64(0)
	for _, v := range c.counters {
		if v != 0 {
			count++
		}
	}
	return count
}

func (c *counterArray) appendCounters(dst []byte) []byte {
	for _, v := range c.counters {
		dst = binary.LittleEndian.AppendUint32(dst, v)
	}
	return dst
}

// counterArrayFromPayload derives the counter count from the payload length.
func counterArrayFromPayload(payload []byte) (*counterArray, bool) {
	if len(payload) == 0 || len(payload)%counterBytes != 0 {
		return nil, false
	}
	c := newCounterArray(uint64(len(payload) / counterBytes))
	for i := range c.counters {
		c.counters[i] = binary.LittleEndian.Uint32(payload[i*counterBytes:])
	}
	return c, true
}
