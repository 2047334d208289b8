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
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-huls/bloomlib/common"
)

func TestInvalidConstructorArguments(t *testing.T) {
	// numBits = 0
	_, err := NewBloomFilterBySize(0, 3)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// numHashes = 0
	_, err = NewBloomFilterBySize(64, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// numBits too large for the 32-bit indexer
	_, err = NewBloomFilterBySize(1<<33, 3)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// Invalid FPP
	_, err = NewBloomFilterByAccuracy(1000, 0.0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewBloomFilterByAccuracy(1000, 1.0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// Zero max items
	_, err = NewBloomFilterByAccuracy(0, 0.01)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestStandardConstructors(t *testing.T) {
	bf1, err := NewBloomFilterByAccuracy(1000, 0.01)
	require.NoError(t, err)
	assert.Equal(t, uint64(9586), bf1.NumBits())
	assert.Equal(t, uint16(7), bf1.NumHashes())
	assert.Equal(t, uint64(1000), bf1.ExpectedItems())
	assert.True(t, bf1.IsEmpty())
	assert.Equal(t, uint64(0), bf1.BitsUsed())

	// Same shape by size
	bf2, err := NewBloomFilterBySize(9586, 7, WithExpectedItems(1000))
	require.NoError(t, err)
	assert.Equal(t, bf1.NumBits(), bf2.NumBits())
	assert.Equal(t, bf1.NumHashes(), bf2.NumHashes())
	assert.Equal(t, bf1.EstimateFalsePositiveRate(), bf2.EstimateFalsePositiveRate())
	assert.True(t, bf1.IsCompatible(bf2))

	// Without an item count the optimal one for the shape is used
	bf3, err := NewBloomFilterBySize(9586, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(949), bf3.ExpectedItems())

	bf4, err := NewBloomFilterWithDefault()
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), bf4.ExpectedItems())
}

func TestBasicOperations(t *testing.T) {
	numItems := uint64(5000)
	targetFpp := 0.01

	bf, err := NewBloomFilterByAccuracy(numItems, targetFpp)
	require.NoError(t, err)

	for i := uint64(0); i < numItems; i++ {
		bf.InsertInt64(int64(i))
	}
	assert.False(t, bf.IsEmpty())

	// Check bits used is reasonable (should be around 50% for optimal parameters)
	utilizationPercent := float64(bf.BitsUsed()) * 100.0 / float64(bf.NumBits())
	assert.Greater(t, utilizationPercent, 30.0)
	assert.Less(t, utilizationPercent, 70.0)

	// All inserted items should be found
	for i := uint64(0); i < numItems; i++ {
		assert.True(t, bf.QueryInt64(int64(i)), "Item %d should be found", i)
	}

	// Count false positives on non-inserted items
	falsePositives := 0
	testSize := 10000
	for i := numItems; i < numItems+uint64(testSize); i++ {
		if bf.QueryInt64(int64(i)) {
			falsePositives++
		}
	}

	// Allow up to 3x the target FPP (probabilistic structure)
	actualFpp := float64(falsePositives) / float64(testSize)
	assert.Less(t, actualFpp, targetFpp*3.0, "Actual FPP: %.4f, Target: %.4f", actualFpp, targetFpp)

	bf.Clear()
	assert.True(t, bf.IsEmpty())
	assert.Equal(t, uint64(0), bf.BitsUsed())
	assert.Equal(t, uint64(47926), bf.NumBits())
}

func TestNoFalseNegatives(t *testing.T) {
	bf, err := NewBloomFilterByAccuracy(100, 0.05)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	inserted := make([][]byte, 0, 500)
	// Far more items than the filter was sized for: still no false negatives
	for i := 0; i < 500; i++ {
		datum := make([]byte, 1+rng.Intn(64))
		rng.Read(datum)
		bf.Insert(datum)
		inserted = append(inserted, datum)
	}
	for _, datum := range inserted {
		assert.True(t, bf.Query(datum))
	}

	// Empty input is a valid datum
	bf.Insert([]byte{})
	assert.True(t, bf.Query(nil))
}

func TestInsertIsIdempotent(t *testing.T) {
	bf, err := NewBloomFilterByAccuracy(100, 0.01)
	require.NoError(t, err)

	bf.Insert([]byte{12, 48, 94, 127, 255})
	used := bf.BitsUsed()
	words := append([]uint64(nil), bf.(*bloomFilterImpl).bits.words...)

	bf.Insert([]byte{12, 48, 94, 127, 255})
	assert.Equal(t, used, bf.BitsUsed())
	assert.Equal(t, words, bf.(*bloomFilterImpl).bits.words)
}

func TestBitsAreMonotonic(t *testing.T) {
	bf, err := NewBloomFilterBySize(512, 3)
	require.NoError(t, err)
	impl := bf.(*bloomFilterImpl)

	prev := make([]uint64, len(impl.bits.words))
	for i := 0; i < 200; i++ {
		bf.InsertString(fmt.Sprintf("key-%d", i))
		for w := range prev {
			// Every bit set before is still set
			assert.Equal(t, prev[w], impl.bits.words[w]&prev[w])
		}
		copy(prev, impl.bits.words)
	}

	bf.Clear()
	for _, w := range impl.bits.words {
		assert.Equal(t, uint64(0), w)
	}
}

func TestClearMatchesFreshFilter(t *testing.T) {
	bf, err := NewBloomFilterByAccuracy(100, 0.01)
	require.NoError(t, err)
	fresh, err := NewBloomFilterByAccuracy(100, 0.01)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		bf.InsertInt64(int64(i))
	}
	bf.Clear()

	assert.Equal(t, fresh.NumBits(), bf.NumBits())
	assert.Equal(t, fresh.NumHashes(), bf.NumHashes())
	assert.Equal(t, fresh.ExpectedItems(), bf.ExpectedItems())
	assert.Equal(t, fresh.BitsUsed(), bf.BitsUsed())
	for i := 0; i < 100; i++ {
		assert.False(t, bf.QueryInt64(int64(i)))
		assert.Equal(t, fresh.QueryInt64(int64(i)), bf.QueryInt64(int64(i)))
	}
}

func TestQueryAndInsert(t *testing.T) {
	bf, err := NewBloomFilterByAccuracy(1000, 0.01)
	require.NoError(t, err)

	assert.False(t, bf.QueryAndInsert([]byte("new_item")))
	assert.True(t, bf.QueryAndInsert([]byte("new_item")))
	assert.True(t, bf.Query([]byte("new_item")))
	assert.Equal(t, bf.(*bloomFilterImpl).bits.countBitsSet(), bf.BitsUsed())
}

type person struct {
	Name string
	Age  int
}

func TestTypedItems(t *testing.T) {
	bf, err := NewBloomFilterByAccuracy(100, 0.01)
	require.NoError(t, err)

	when := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	items := []any{
		"string",
		0.004,
		6546,
		true,
		[]string{"list", "of", "strings"},
		[3]string{"tuple", "of", "strings"},
		map[string]int{"a": 1, "b": 2},
		when,
		person{Name: "mike", Age: 30},
		&person{Name: "anna", Age: 41},
	}
	require.NoError(t, bf.InsertItems(items...))

	for _, item := range items {
		found, err := bf.QueryItem(item)
		assert.NoError(t, err)
		assert.True(t, found, "%v should be found", item)
	}

	// Numerically equal integers of different widths are the same item
	found, err := bf.QueryItem(int16(6546))
	assert.NoError(t, err)
	assert.True(t, found)

	// The same instant in another zone is the same item
	found, err = bf.QueryItem(when.In(time.FixedZone("CET", 3600)))
	assert.NoError(t, err)
	assert.True(t, found)

	// Typed fast paths agree with the reflective path
	assert.True(t, bf.QueryString("string"))
	assert.True(t, bf.QueryFloat64(0.004))
	assert.True(t, bf.QueryInt64(6546))

	found, err = bf.QueryItem("nope")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestTypedAndTextualFormsDiffer(t *testing.T) {
	bf, err := NewBloomFilterByAccuracy(100, 0.001)
	require.NoError(t, err)

	bf.InsertInt64(1)
	assert.True(t, bf.QueryInt64(1))
	assert.False(t, bf.QueryString("1"))
}

func TestInsertItemsIsNotAtomic(t *testing.T) {
	bf, err := NewBloomFilterByAccuracy(100, 0.01)
	require.NoError(t, err)

	err = bf.InsertItems("first", 2, nil, "never")
	assert.ErrorIs(t, err, common.ErrCanonicalization)
	assert.Contains(t, err.Error(), "item 2")

	assert.True(t, bf.QueryString("first"))
	assert.True(t, bf.QueryInt64(2))
	assert.False(t, bf.QueryString("never"))
}

func TestQueryItemSurfacesCanonicalizationError(t *testing.T) {
	bf, err := NewBloomFilterByAccuracy(100, 0.01)
	require.NoError(t, err)

	_, err = bf.QueryItem(nil)
	assert.ErrorIs(t, err, common.ErrCanonicalization)

	assert.ErrorIs(t, bf.InsertItem(nil), common.ErrCanonicalization)
	assert.True(t, bf.IsEmpty())
}

func TestEstimateIgnoresInsertions(t *testing.T) {
	bf, err := NewBloomFilterByAccuracy(1000, 0.01)
	require.NoError(t, err)

	est := bf.EstimateFalsePositiveRate()
	assert.InEpsilon(t, 0.01, est, 0.1)
	assert.NotEqual(t, 0.01, est)

	for i := 0; i < 5000; i++ {
		bf.InsertInt64(int64(i))
	}
	assert.Equal(t, est, bf.EstimateFalsePositiveRate())
}

func TestObservedFalsePositiveRate(t *testing.T) {
	n := 10000
	p := 0.05

	bf, err := NewBloomFilterByAccuracy(uint64(n), p)
	require.NoError(t, err)
	assert.Equal(t, uint64(62353), bf.NumBits())
	assert.Equal(t, uint16(5), bf.NumHashes())

	for i := 0; i < n; i++ {
		require.NoError(t, bf.InsertItem(i))
	}

	observed := 0
	for i := n; i < 2*n; i++ {
		found, err := bf.QueryItem(i)
		require.NoError(t, err)
		if found {
			observed++
		}
	}

	expected := float64(n) * p
	assert.InDelta(t, expected, float64(observed), 0.1*expected, "observed %d false positives", observed)
}

func TestIncompatibleSetOperations(t *testing.T) {
	bf1, _ := NewBloomFilterBySize(256, 5)

	// Different num_bits
	bf2, _ := NewBloomFilterBySize(512, 5)
	assert.False(t, bf1.IsCompatible(bf2))
	assert.ErrorIs(t, bf1.Union(bf2), ErrIncompatible)
	assert.ErrorIs(t, bf1.Intersect(bf2), ErrIncompatible)

	// Different num_hashes
	bf3, _ := NewBloomFilterBySize(256, 7)
	assert.False(t, bf1.IsCompatible(bf3))
	assert.ErrorIs(t, bf1.Union(bf3), ErrIncompatible)
}

func TestUnionAndIntersect(t *testing.T) {
	n := 1000
	bf1, _ := NewBloomFilterBySize(12288, 4)
	bf2, _ := NewBloomFilterBySize(12288, 4)

	for i := 0; i < n; i++ {
		bf1.InsertInt64(int64(i))
		bf2.InsertInt64(int64(n/2 + i))
	}

	union, _ := NewBloomFilterBySize(12288, 4)
	require.NoError(t, union.Union(bf1))
	require.NoError(t, union.Union(bf2))
	for i := 0; i < n+n/2; i++ {
		assert.True(t, union.QueryInt64(int64(i)))
	}
	assert.Equal(t, union.(*bloomFilterImpl).bits.countBitsSet(), union.BitsUsed())

	require.NoError(t, bf1.Intersect(bf2))
	for i := n / 2; i < n; i++ {
		assert.True(t, bf1.QueryInt64(int64(i)))
	}
	assert.Equal(t, bf1.(*bloomFilterImpl).bits.countBitsSet(), bf1.BitsUsed())
}
