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

package common

import (
	"time"

	"golang.org/x/exp/constraints"
)

// CanonicalInteger returns the same bytes Canonicalize produces for v,
// without reflection.
func CanonicalInteger[T constraints.Integer](v T) []byte {
	dst := make([]byte, 0, 9)
	if v < 0 {
		return appendSigned(dst, int64(v))
	}
	return appendUnsigned(dst, uint64(v))
}

// CanonicalFloat returns the same bytes Canonicalize produces for v.
// float32 values are widened to float64 first.
func CanonicalFloat[T constraints.Float](v T) []byte {
	return appendFloat(make([]byte, 0, 9), float64(v))
}

// CanonicalBool returns the same bytes Canonicalize produces for b.
func CanonicalBool(b bool) []byte {
	return appendBool(make([]byte, 0, 2), b)
}

// CanonicalString returns the same bytes Canonicalize produces for s.
func CanonicalString(s string) []byte {
	return appendString(make([]byte, 0, len(s)+1), s)
}

// CanonicalTime returns the same bytes Canonicalize produces for t.
func CanonicalTime(t time.Time) []byte {
	return appendTime(nil, t)
}
