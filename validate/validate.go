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

// Package validate provides struct-tag validation for dispatched arguments.
//
// This package adapts github.com/go-playground/validator/v10 to the
// dispatch.Validator interface, so capabilities that take an argument
// struct can reject bad input before the method runs. Field names in
// violations follow json struct tags, matching how dispatch names
// arguments.
//
// Example:
//
//	type greetArgs struct {
//	    Name  string `json:"name" validate:"required"`
//	    Times int    `json:"times" validate:"min=1,max=10"`
//	}
//
//	w, err := dispatch.New(svc,
//	    dispatch.WithAllow("greet"),
//	    dispatch.WithValidator(validate.MustNew()),
//	)
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Func is an alias for validator.Func to simplify custom rule registration.
type Func = validator.Func

// Option configures validation behavior.
type Option func(*config)

// config holds validation configuration.
type config struct {
	tagName string
	rules   []customRule
}

type customRule struct {
	name string
	fn   Func
}

// WithTagName changes the struct tag validation rules are read from.
// The default is "validate".
func WithTagName(name string) Option {
	return func(c *config) {
		c.tagName = name
	}
}

// WithRule registers a custom validation rule under the given tag name.
//
// Example:
//
//	v := validate.MustNew(validate.WithRule("even", func(fl validator.FieldLevel) bool {
//	    return fl.Field().Int()%2 == 0
//	}))
func WithRule(name string, fn Func) Option {
	return func(c *config) {
		c.rules = append(c.rules, customRule{name: name, fn: fn})
	}
}

// Validator validates argument structs against their validation tags.
// It implements the dispatch.Validator interface and is safe for
// concurrent use by multiple goroutines.
type Validator struct {
	v *validator.Validate
}

// New creates a [Validator] with the given options.
// New returns an error if a custom rule cannot be registered.
func New(opts ...Option) (*Validator, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if cfg.tagName != "" {
		v.SetTagName(cfg.tagName)
	}

	// Report json names so violations match the argument names clients sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "-" {
			return ""
		}
		if idx := strings.Index(name, ","); idx != -1 {
			name = name[:idx]
		}
		if name == "" {
			return fld.Name
		}

		return name
	})

	for _, r := range cfg.rules {
		if err := v.RegisterValidation(r.name, r.fn); err != nil {
			return nil, fmt.Errorf("register rule %q: %w", r.name, err)
		}
	}

	return &Validator{v: v}, nil
}

// MustNew creates a [Validator] with the given options.
// Panics if a custom rule cannot be registered.
//
// Use in main() or init() where panic on startup is acceptable.
func MustNew(opts ...Option) *Validator {
	v, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("validate.MustNew: %v", err))
	}

	return v
}

// Validate checks value against its validation tags. Values that are not
// structs (or pointers to structs) pass unchecked, so map-shaped arguments
// flow through untouched.
func (v *Validator) Validate(value any) error {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := v.v.Struct(value)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	e := &Error{Violations: make([]Violation, 0, len(verrs))}
	for _, fe := range verrs {
		e.Violations = append(e.Violations, Violation{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}

	return e
}
