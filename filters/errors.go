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

import "errors"

var (
	// ErrInvalidParameter is returned when a filter cannot be built from the
	// requested size, hash count or accuracy, or when a malformed Snapshot is
	// encoded.
	ErrInvalidParameter = errors.New("invalid filter parameter")

	// ErrDeserialization is returned when a snapshot is malformed, truncated,
	// corrupted or inconsistent with the sizes it declares.
	ErrDeserialization = errors.New("invalid filter snapshot")

	// ErrIncompatible is returned when combining filters of different shape.
	ErrIncompatible = errors.New("incompatible filters")
)
