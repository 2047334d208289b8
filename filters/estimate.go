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

import "math"

// estimateFalsePositiveRate evaluates (1 - e^(-k*n/m))^k. n is the item count
// the filter was sized for, not the number of items inserted so far.
func estimateFalsePositiveRate(numHashes uint16, numSlots, expectedItems uint64) float64 {
	k := float64(numHashes)
	exponent := -k * float64(expectedItems) / float64(numSlots)
	return math.Pow(1.0-math.Exp(exponent), k)
}
