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

import "github.com/twmb/murmur3"

// hashIndex maps data to a slot in [0, numSlots) using the seeded 32-bit
// murmur3 hash. The i-th of the k probes uses seed i, so indexes are stable
// across processes and snapshot round trips.
func hashIndex(data []byte, seed uint32, numSlots uint64) uint64 {
	return uint64(murmur3.SeedSum32(seed, data)) % numSlots
}
