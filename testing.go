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
	"errors"
	"testing"
)

// Test helpers for code that builds on dispatch. They fail the test
// immediately on misuse so call sites stay free of error plumbing.

// TestWrapper builds a wrapper and fails the test if construction errors.
func TestWrapper(t *testing.T, target any, opts ...Option) *Wrapper {
	t.Helper()
	w, err := New(target, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return w
}

// MustDispatch dispatches a request and fails the test on any error.
func MustDispatch(t *testing.T, w *Wrapper, req Request) any {
	t.Helper()
	out, err := w.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatalf("Dispatch(%q): %v", req.Attr, err)
	}

	return out
}

// AssertRouteError fails the test unless err is a [RouteError], and returns
// it for further checks.
func AssertRouteError(t *testing.T, err error) *RouteError {
	t.Helper()
	var re *RouteError
	if !errors.As(err, &re) {
		t.Fatalf("want RouteError, got %v (%T)", err, err)
	}

	return re
}

// AssertConvertError fails the test unless err is a [ConvertError], and
// returns it for further checks.
func AssertConvertError(t *testing.T, err error) *ConvertError {
	t.Helper()
	var ce *ConvertError
	if !errors.As(err, &ce) {
		t.Fatalf("want ConvertError, got %v (%T)", err, err)
	}

	return ce
}

// AssertUpstreamError fails the test unless err is an [UpstreamError], and
// returns it for further checks.
func AssertUpstreamError(t *testing.T, err error) *UpstreamError {
	t.Helper()
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("want UpstreamError, got %v (%T)", err, err)
	}

	return ue
}
