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

// Package common turns arbitrary Go values into deterministic byte strings
// that can be fed to the filters' hash functions.
//
// Canonicalize applies the following rules; the first that matches wins:
//
//  0. Values implementing Canonicalizable supply their own bytes.
//  1. Booleans and integers hash a fixed-width two's-complement pattern, so
//     int8(7), int(7) and uint64(7) agree while "7" does not.
//  2. Floating-point values hash their IEEE-754 bits. Negative zero folds to
//     zero and every NaN folds to the canonical quiet NaN.
//  3. Strings hash their text. Slices, arrays, maps, structs with exported
//     fields and encoding.TextMarshaler structs hash a canonical textual
//     rendering. Maps render with keys in sorted order so a set modelled as
//     map[T]struct{} is independent of insertion order.
//  4. time.Time hashes its RFC 3339 rendering in UTC with nanoseconds.
//  5. Anything else (structs without exported fields, channels, functions)
//     falls back to Hashable, then to the runtime identity of reference
//     kinds. Values with no usable form return ErrCanonicalization.
//
// Every form starts with a one-byte tag naming the rule, so values of
// different shapes never share an encoding.
//
// Composite values are rendered as trees. A pointer reachable along several
// paths is rendered once per path, so values whose rendering would exceed
// 16 MiB return ErrCanonicalization. Nesting deeper than 64 levels is treated
// as a cycle and fails the same way.
package common

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/mike-huls/bloomlib/internal"
)

// ErrCanonicalization is returned when a value cannot be reduced to bytes.
var ErrCanonicalization = errors.New("value cannot be canonicalized")

// Canonicalizable is implemented by types that define their own byte form.
type Canonicalizable interface {
	CanonicalBytes() ([]byte, error)
}

// Hashable is the last-resort identity for values with no structural form.
type Hashable interface {
	HashCode() uint64
}

const (
	tagNil       byte = 'n'
	tagBool      byte = 'b'
	tagInt       byte = 'i'
	tagUint      byte = 'u'
	tagFloat     byte = 'f'
	tagComplex   byte = 'x'
	tagString    byte = 's'
	tagComposite byte = 'c'
	tagTime      byte = 't'
	tagCustom    byte = 'a'
	tagOpaque    byte = 'h'
)

// maxDepth bounds nesting; deeper values are treated as cyclic.
const maxDepth = 64

// maxTextBytes bounds the textual rendering of one composite value. Shared
// pointers are rendered once per reference, so a small acyclic value can
// expand exponentially.
const maxTextBytes = 1 << 24

// canonicalNaN matches Java's Double.doubleToLongBits(NaN).
const canonicalNaN = uint64(0x7ff8000000000000)

var (
	canonicalizableType = reflect.TypeFor[Canonicalizable]()
	hashableType        = reflect.TypeFor[Hashable]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	timeType            = reflect.TypeFor[time.Time]()
)

// Canonicalize returns the canonical byte form of v.
func Canonicalize(v any) ([]byte, error) {
	return AppendCanonical(nil, v)
}

// AppendCanonical appends the canonical byte form of v to dst.
func AppendCanonical(dst []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil value", ErrCanonicalization)
	case Canonicalizable:
		if isNilRef(reflect.ValueOf(x)) {
			return append(dst, tagNil), nil
		}
		return appendCustom(dst, x)
	case bool:
		return appendBool(dst, x), nil
	case int:
		return appendSigned(dst, int64(x)), nil
	case int64:
		return appendSigned(dst, x), nil
	case int32:
		return appendSigned(dst, int64(x)), nil
	case uint64:
		return appendUnsigned(dst, x), nil
	case uint32:
		return appendUnsigned(dst, uint64(x)), nil
	case float64:
		return appendFloat(dst, x), nil
	case string:
		return appendString(dst, x), nil
	case time.Time:
		return appendTime(dst, x), nil
	}
	return appendValue(dst, reflect.ValueOf(v), 0)
}

func appendValue(dst []byte, v reflect.Value, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d, value may be cyclic", ErrCanonicalization, maxDepth)
	}
	if isNilRef(v) {
		return append(dst, tagNil), nil
	}
	if c, ok := lookup[Canonicalizable](v, canonicalizableType); ok {
		return appendCustom(dst, c)
	}

	switch v.Kind() {
	case reflect.Bool:
		return appendBool(dst, v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return appendSigned(dst, v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return appendUnsigned(dst, v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return appendFloat(dst, v.Float()), nil
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		dst = append(dst, tagComplex)
		dst = binary.LittleEndian.AppendUint64(dst, canonicalFloatBits(real(c)))
		return binary.LittleEndian.AppendUint64(dst, canonicalFloatBits(imag(c))), nil
	case reflect.String:
		return appendString(dst, v.String()), nil
	case reflect.Pointer, reflect.Interface:
		return appendValue(dst, v.Elem(), depth+1)
	case reflect.Struct:
		if v.Type() == timeType {
			return appendTime(dst, valueTime(v)), nil
		}
		if isOpaqueStruct(v) {
			return appendOpaque(dst, v)
		}
		fallthrough
	case reflect.Slice, reflect.Array, reflect.Map:
		text, err := appendText(nil, v, depth+1)
		if err != nil {
			return nil, err
		}
		dst = append(dst, tagComposite)
		return append(dst, text...), nil
	}
	return appendOpaque(dst, v)
}

// appendText renders v as text. It is used for the elements of composite
// values, so scalars render in their usual decimal or quoted form.
func appendText(dst []byte, v reflect.Value, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d, value may be cyclic", ErrCanonicalization, maxDepth)
	}
	if len(dst) > maxTextBytes {
		return nil, errTextTooLarge()
	}
	if isNilRef(v) {
		return append(dst, "nil"...), nil
	}
	if c, ok := lookup[Canonicalizable](v, canonicalizableType); ok {
		b, err := c.CanonicalBytes()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCanonicalization, err)
		}
		dst = append(dst, "0x"...)
		return hex.AppendEncode(dst, b), nil
	}

	var err error
	switch v.Kind() {
	case reflect.Bool:
		return strconv.AppendBool(dst, v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(dst, v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.AppendUint(dst, v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return appendFloatText(dst, v.Float()), nil
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		dst = append(dst, '(')
		dst = appendFloatText(dst, real(c))
		dst = append(dst, ", "...)
		dst = appendFloatText(dst, imag(c))
		return append(dst, ')'), nil
	case reflect.String:
		return strconv.AppendQuote(dst, v.String()), nil
	case reflect.Pointer, reflect.Interface:
		return appendText(dst, v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		dst = append(dst, '[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			if dst, err = appendText(dst, v.Index(i), depth+1); err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case reflect.Map:
		return appendMapText(dst, v, depth)
	case reflect.Struct:
		if v.Type() == timeType {
			return strconv.AppendQuote(dst, formatTime(valueTime(v))), nil
		}
		if m, ok := lookup[encoding.TextMarshaler](v, textMarshalerType); ok {
			text, err := m.MarshalText()
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrCanonicalization, err)
			}
			return strconv.AppendQuote(dst, string(text)), nil
		}
		if !isOpaqueStruct(v) {
			return appendStructText(dst, v, depth)
		}
	}

	code, err := opaqueHash(v)
	if err != nil {
		return nil, err
	}
	dst = append(dst, '#')
	return strconv.AppendUint(dst, code, 16), nil
}

type mapEntry struct {
	key   []byte
	value []byte
}

func appendMapText(dst []byte, v reflect.Value, depth int) ([]byte, error) {
	entries := make([]mapEntry, 0, v.Len())
	size := len(dst)
	iter := v.MapRange()
	for iter.Next() {
		if size > maxTextBytes {
			return nil, errTextTooLarge()
		}
		key, err := appendText(nil, iter.Key(), depth+1)
		if err != nil {
			return nil, err
		}
		value, err := appendText(nil, iter.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, mapEntry{key: key, value: value})
		size += len(key) + len(value)
	}
	slices.SortFunc(entries, func(a, b mapEntry) int {
		if c := bytes.Compare(a.key, b.key); c != 0 {
			return c
		}
		return bytes.Compare(a.value, b.value)
	})

	dst = append(dst, '{')
	for i, e := range entries {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = append(dst, e.key...)
		dst = append(dst, ": "...)
		dst = append(dst, e.value...)
	}
	return append(dst, '}'), nil
}

// appendStructText renders exported fields in declaration order.
func appendStructText(dst []byte, v reflect.Value, depth int) ([]byte, error) {
	t := v.Type()
	dst = append(dst, t.String()...)
	dst = append(dst, '{')
	first := true
	var err error
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if !first {
			dst = append(dst, ", "...)
		}
		first = false
		dst = append(dst, f.Name...)
		dst = append(dst, ": "...)
		if dst, err = appendText(dst, v.Field(i), depth+1); err != nil {
			return nil, err
		}
	}
	return append(dst, '}'), nil
}

func errTextTooLarge() error {
	return fmt.Errorf("%w: rendering exceeds %d bytes, value may share pointers deeply", ErrCanonicalization, maxTextBytes)
}

func appendOpaque(dst []byte, v reflect.Value) ([]byte, error) {
	code, err := opaqueHash(v)
	if err != nil {
		return nil, err
	}
	dst = append(dst, tagOpaque)
	return binary.LittleEndian.AppendUint64(dst, code), nil
}

// opaqueHash returns the value's own hash code or, for reference kinds, its
// runtime identity. Identities are only stable within one process.
func opaqueHash(v reflect.Value) (uint64, error) {
	if h, ok := lookup[Hashable](v, hashableType); ok {
		return h.HashCode(), nil
	}
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return uint64(v.Pointer()), nil
	}
	return 0, fmt.Errorf("%w: %s has no exported structure and does not implement Hashable", ErrCanonicalization, v.Type())
}

func appendCustom(dst []byte, c Canonicalizable) ([]byte, error) {
	b, err := c.CanonicalBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCanonicalization, err)
	}
	dst = append(dst, tagCustom)
	return append(dst, b...), nil
}

func appendBool(dst []byte, b bool) []byte {
	return append(dst, tagBool, byte(internal.BoolToInt(b)))
}

func appendSigned(dst []byte, x int64) []byte {
	dst = append(dst, tagInt)
	return binary.LittleEndian.AppendUint64(dst, uint64(x))
}

// appendUnsigned shares the signed form for values that fit in an int64.
func appendUnsigned(dst []byte, x uint64) []byte {
	if x <= math.MaxInt64 {
		return appendSigned(dst, int64(x))
	}
	dst = append(dst, tagUint)
	return binary.LittleEndian.AppendUint64(dst, x)
}

func appendFloat(dst []byte, f float64) []byte {
	dst = append(dst, tagFloat)
	return binary.LittleEndian.AppendUint64(dst, canonicalFloatBits(f))
}

func canonicalFloatBits(f float64) uint64 {
	if f == 0 {
		return 0
	}
	if math.IsNaN(f) {
		return canonicalNaN
	}
	return math.Float64bits(f)
}

func appendFloatText(dst []byte, f float64) []byte {
	if f == 0 {
		return append(dst, '0')
	}
	return strconv.AppendFloat(dst, f, 'g', -1, 64)
}

func appendString(dst []byte, s string) []byte {
	dst = append(dst, tagString)
	return append(dst, s...)
}

func appendTime(dst []byte, t time.Time) []byte {
	dst = append(dst, tagTime)
	return append(dst, formatTime(t)...)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// valueTime is only reached through exported fields, so v is always
// convertible to an interface.
func valueTime(v reflect.Value) time.Time {
	return v.Interface().(time.Time)
}

func isNilRef(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func isOpaqueStruct(v reflect.Value) bool {
	if v.Kind() != reflect.Struct || v.Type() == timeType {
		return false
	}
	if _, ok := lookup[encoding.TextMarshaler](v, textMarshalerType); ok {
		return false
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return false
		}
	}
	// struct{} has nothing to hide and renders as an empty composite.
	return t.NumField() > 0
}

// lookup returns v, or its address, as T when either implements it.
// Values read through unexported fields cannot be converted and are skipped.
func lookup[T any](v reflect.Value, t reflect.Type) (T, bool) {
	var zero T
	if v.Type().Implements(t) && v.CanInterface() {
		x, ok := v.Interface().(T)
		return x, ok
	}
	if v.CanAddr() && reflect.PointerTo(v.Type()).Implements(t) && v.Addr().CanInterface() {
		x, ok := v.Addr().Interface().(T)
		return x, ok
	}
	return zero, false
}
