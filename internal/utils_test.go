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

package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, BoolToInt(true))
	assert.Equal(t, 0, BoolToInt(false))
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, uint64(0), CeilDiv(uint64(0), 64))
	assert.Equal(t, uint64(1), CeilDiv(uint64(1), 64))
	assert.Equal(t, uint64(1), CeilDiv(uint64(64), 64))
	assert.Equal(t, uint64(2), CeilDiv(uint64(65), 64))
	assert.Equal(t, uint64(150), CeilDiv(uint64(9586), 64))
	assert.Equal(t, uint32(3), CeilDiv(uint32(9), 4))
}

func TestFamilyByID(t *testing.T) {
	family, ok := FamilyByID(21)
	assert.True(t, ok)
	assert.Equal(t, FamilyEnum.BloomFilter, family)

	family, ok = FamilyByID(22)
	assert.True(t, ok)
	assert.Equal(t, FamilyEnum.CountingBloomFilter, family)

	_, ok = FamilyByID(0)
	assert.False(t, ok)
	_, ok = FamilyByID(7)
	assert.False(t, ok)
}
