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
	"errors"
	"fmt"
	"net/http"
)

// Routing sentinels. They are always wrapped in a [RouteError]; match them
// with [errors.Is].
var (
	// ErrAttrMissing reports a request with an empty attribute name.
	ErrAttrMissing = errors.New("no attribute specified")

	// ErrAttrForbidden reports an attribute outside the permissible set.
	ErrAttrForbidden = errors.New("attribute not permitted")

	// ErrAttrUnknown reports a permitted name that resolves to no
	// capability on the target.
	ErrAttrUnknown = errors.New("unknown attribute")

	// ErrNilTarget reports a dotted path that crossed a nil pointer.
	ErrNilTarget = errors.New("nil value in attribute path")
)

// Construction sentinels, returned (wrapped) by [New].
var (
	// ErrInvalidTarget reports a target that cannot be wrapped: nil, or a
	// constructor function with an unsupported shape.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrInvalidRuleset reports a malformed conversion table.
	ErrInvalidRuleset = errors.New("invalid ruleset")

	// ErrInvalidPattern reports a permission pattern that does not compile.
	ErrInvalidPattern = errors.New("invalid permission pattern")

	// ErrUnknownCapability reports an allowed literal name, an argument
	// name list, or a default that references no capability.
	ErrUnknownCapability = errors.New("name matches no capability")

	// ErrUnsupportedSignature reports a method whose signature cannot be
	// dispatched to. Explicitly allowed names fail construction with it;
	// names that are only pattern-matched are silently skipped.
	ErrUnsupportedSignature = errors.New("unsupported method signature")

	// ErrInvalidOption reports options that contradict the target or each
	// other.
	ErrInvalidOption = errors.New("invalid option")
)

// RouteError reports that a request never reached the target: the attribute
// was missing, not permitted, or not a capability. The wrapped sentinel
// distinguishes the three cases.
type RouteError struct {
	// Attr is the requested attribute name, possibly empty.
	Attr string

	// Err is one of the routing sentinels.
	Err error
}

func (e *RouteError) Error() string {
	if e.Attr == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("%v: %q", e.Err, e.Attr)
}

// Unwrap returns the routing sentinel.
func (e *RouteError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status a transport should respond with: 400 for a
// missing name, 403 for a forbidden one, and 404 otherwise.
func (e *RouteError) HTTPStatus() int {
	switch {
	case errors.Is(e.Err, ErrAttrMissing):
		return http.StatusBadRequest
	case errors.Is(e.Err, ErrAttrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusNotFound
	}
}

// Code returns a stable machine-readable identifier for the failure.
func (e *RouteError) Code() string {
	switch {
	case errors.Is(e.Err, ErrAttrMissing):
		return "missing_attribute"
	case errors.Is(e.Err, ErrAttrForbidden):
		return "forbidden_attribute"
	default:
		return "unknown_attribute"
	}
}

// ConvertError reports a value that could not be converted: a request
// argument on the way in, or a result on the way out. Input conversion
// failures are the caller's fault and map to 400; they carry the argument
// name and the offending value for the response body.
type ConvertError struct {
	// Attr is the attribute being dispatched.
	Attr string

	// Arg is the argument name, empty when Output is set.
	Arg string

	// Value is the raw value that failed to convert.
	Value any

	// Output marks a result conversion failure.
	Output bool

	// Reason optionally describes the failure when no underlying error
	// exists, for missing required arguments.
	Reason string

	// Err is the underlying conversion error, if any.
	Err error
}

func (e *ConvertError) Error() string {
	var msg string
	switch {
	case e.Err != nil:
		msg = e.Err.Error()
	case e.Reason != "":
		msg = e.Reason
	default:
		msg = "cannot convert value"
	}
	if e.Output {
		return fmt.Sprintf("converting result of %q: %s", e.Attr, msg)
	}
	if e.Arg != "" {
		return fmt.Sprintf("converting argument %q of %q: %s", e.Arg, e.Attr, msg)
	}

	return fmt.Sprintf("converting arguments of %q: %s", e.Attr, msg)
}

// Unwrap returns the underlying conversion error, which may be nil.
func (e *ConvertError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns 400: conversion failures are request errors.
func (e *ConvertError) HTTPStatus() int {
	return http.StatusBadRequest
}

// Code returns a stable machine-readable identifier for the failure.
func (e *ConvertError) Code() string {
	if e.Output {
		return "output_conversion_error"
	}

	return "conversion_error"
}

// UpstreamError reports a failure inside the wrapped target: an error
// return, a panic, or a constructor failure. Transports map it to 500 and
// mask the detail unless the wrapper was built with [WithDebug].
type UpstreamError struct {
	// Attr is the attribute being dispatched.
	Attr string

	// Err is the target's error, or the recovered panic wrapped as one.
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("dispatching %q: %v", e.Attr, e.Err)
}

// Unwrap returns the target's error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns 500: the request was valid, the target failed.
func (e *UpstreamError) HTTPStatus() int {
	return http.StatusInternalServerError
}

// Code returns a stable machine-readable identifier for the failure.
func (e *UpstreamError) Code() string {
	return "upstream_error"
}
