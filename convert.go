// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// Converter factories for the common type-constructor conversions. Each is
// idempotent: feeding a converter its own output yields the same value, so
// tables stay correct when a value arrives already converted.

// ToInt converts numbers, numeric strings, json.Number, and bools to int.
func ToInt() Converter {
	return func(v any) (any, error) {
		return cast.ToIntE(v)
	}
}

// ToFloat converts numbers and numeric strings to float64.
func ToFloat() Converter {
	return func(v any) (any, error) {
		return cast.ToFloat64E(v)
	}
}

// ToBool converts bools, numbers, and the usual string spellings ("true",
// "1", "f", ...) to bool.
func ToBool() Converter {
	return func(v any) (any, error) {
		return cast.ToBoolE(v)
	}
}

// ToString renders scalars as strings.
func ToString() Converter {
	return func(v any) (any, error) {
		return cast.ToStringE(v)
	}
}

// ToTime parses strings into time.Time. With no layouts a broad set of
// common formats is tried; with layouts only those parse, in order.
// time.Time values pass through, and numbers are read as Unix seconds when
// no layouts are given.
func ToTime(layouts ...string) Converter {
	if len(layouts) == 0 {
		return func(v any) (any, error) {
			return cast.ToTimeE(v)
		}
	}

	return func(v any) (any, error) {
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		for _, layout := range layouts {
			if t, perr := time.Parse(layout, s); perr == nil {
				return t, nil
			}
		}

		return nil, fmt.Errorf("unable to parse time %q", s)
	}
}

// ToDuration parses Go duration strings ("1h30m") and numbers into
// time.Duration.
func ToDuration() Converter {
	return func(v any) (any, error) {
		return cast.ToDurationE(v)
	}
}

// ToStrings converts slices of anything stringable to []string. A plain
// string becomes a one-element slice; use [Split] for delimited strings.
func ToStrings() Converter {
	return func(v any) (any, error) {
		return cast.ToStringSliceE(v)
	}
}

// Split converts a delimited string to []string. Existing []string values
// pass through and other slices convert element-wise, so the conversion is
// safe to apply to an argument that may arrive pre-split from a JSON body.
func Split(sep string) Converter {
	return func(v any) (any, error) {
		switch s := v.(type) {
		case []string:
			return s, nil
		case string:
			if s == "" {
				return []string{}, nil
			}
			return strings.Split(s, sep), nil
		default:
			return cast.ToStringSliceE(v)
		}
	}
}

// ToFloats converts a sequence to []float64, element-wise. Combine with
// [Split] via [Chain] to accept "1,2,3" from a query string.
func ToFloats() Converter {
	return func(v any) (any, error) {
		if fs, ok := v.([]float64); ok {
			return fs, nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("want a sequence, got %T", v)
		}
		out := make([]float64, rv.Len())
		for i := range out {
			f, err := cast.ToFloat64E(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = f
		}

		return out, nil
	}
}

// ToInts converts a sequence to []int, element-wise.
func ToInts() Converter {
	return func(v any) (any, error) {
		if ns, ok := v.([]int); ok {
			return ns, nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("want a sequence, got %T", v)
		}
		out := make([]int, rv.Len())
		for i := range out {
			n, err := cast.ToIntE(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = n
		}

		return out, nil
	}
}

// Struct decodes a map argument into T. Field names follow json tags, and
// scalar fields accept weakly typed input the same way the argument
// converters do.
//
// Example:
//
//	type Window struct {
//	    From time.Time `json:"from"`
//	    To   time.Time `json:"to"`
//	}
//
//	Args: map[string]dispatch.Rule{
//	    "window": dispatch.Conv(dispatch.Struct[Window]()),
//	}
func Struct[T any]() Converter {
	return func(v any) (any, error) {
		if t, ok := v.(T); ok {
			return t, nil
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("want an object, got %T", v)
		}
		var out T
		if err := decodeMap(m, &out); err != nil {
			return nil, err
		}

		return out, nil
	}
}

// Envelope wraps non-object results in a single-key map so every response
// body is an object. Maps pass through untouched. It is the conventional
// Else rule for output tables.
func Envelope(key string) Converter {
	return func(v any) (any, error) {
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}

		return map[string]any{key: v}, nil
	}
}

// Chain composes converters left to right, stopping at the first error.
func Chain(fns ...Converter) Converter {
	return func(v any) (any, error) {
		var err error
		for _, fn := range fns {
			if v, err = fn(v); err != nil {
				return nil, err
			}
		}

		return v, nil
	}
}

// decodeMap decodes an argument map into a struct (or map) pointer with the
// same weak typing the scalar converters use, honoring json tags and the
// string forms of time.Time and time.Duration.
func decodeMap(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}

	return dec.Decode(in)
}

var (
	timeType         = reflect.TypeOf((*time.Time)(nil)).Elem()
	durationType     = reflect.TypeOf((*time.Duration)(nil)).Elem()
	ctxType          = reflect.TypeOf((*context.Context)(nil)).Elem()
	mapStringAnyType = reflect.TypeOf((*map[string]any)(nil)).Elem()
	errType          = reflect.TypeOf((*error)(nil)).Elem()
)

// coerce adapts a converted value to the parameter type it is about to
// fill. Rules produce any; coerce bridges the remaining gap (float64 from
// JSON into an int parameter, string into a named string type) with the
// same weak typing the converters use. Values already assignable pass
// through untouched.
func coerce(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		default:
			return reflect.Value{}, fmt.Errorf("cannot use null as %s", t)
		}
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	switch t {
	case timeType:
		tv, err := cast.ToTimeE(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(tv), nil
	case durationType:
		d, err := cast.ToDurationE(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(d), nil
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetString(s)
	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, t)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowUint(n) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, t)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case reflect.Pointer:
		ev, err := coerce(v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(ev)
		return p, nil
	case reflect.Slice:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", v, t)
		}
		out = reflect.MakeSlice(t, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := coerce(rv.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
	case reflect.Map, reflect.Struct:
		m, ok := v.(map[string]any)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", v, t)
		}
		p := reflect.New(t)
		if err := decodeMap(m, p.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return p.Elem(), nil
	default:
		return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", v, t)
	}

	return out, nil
}
