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

package validate

import (
	"fmt"
	"strings"
)

// Violation describes a single failed validation rule.
type Violation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// String renders the violation as a human-readable message.
func (v Violation) String() string {
	switch v.Rule {
	case "required":
		return fmt.Sprintf("%s is required", v.Field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", v.Field, v.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", v.Field, v.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", v.Field, v.Param)
	default:
		if v.Param != "" {
			return fmt.Sprintf("%s failed rule %s=%s", v.Field, v.Rule, v.Param)
		}

		return fmt.Sprintf("%s failed rule %s", v.Field, v.Rule)
	}
}

// Error reports every validation rule a value broke.
type Error struct {
	Violations []Violation `json:"violations"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}

	return strings.Join(msgs, "; ")
}
