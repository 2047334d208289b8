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

type Family struct {
	Id          int
	MaxPreLongs int
}

type families struct {
	BloomFilter         Family
	CountingBloomFilter Family
}

// FamilyEnum identifies the filter kind stored in a serialized preamble.
var FamilyEnum = &families{
	BloomFilter: Family{
		Id:          21,
		MaxPreLongs: 4,
	},
	CountingBloomFilter: Family{
		Id:          22,
		MaxPreLongs: 4,
	},
}

// FamilyByID returns the family registered under id.
func FamilyByID(id int) (Family, bool) {
	switch id {
	case FamilyEnum.BloomFilter.Id:
		return FamilyEnum.BloomFilter, true
	case FamilyEnum.CountingBloomFilter.Id:
		return FamilyEnum.CountingBloomFilter, true
	}
	return Family{}, false
}
