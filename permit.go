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
	"fmt"
	"regexp"
)

// permissions is the compiled permissible set. Nothing is reachable unless
// an allow entry names it, and deny entries veto allow entries. Patterns
// are anchored: they must match the whole attribute name.
type permissions struct {
	allowNames map[string]struct{}
	denyNames  map[string]struct{}
	allowPats  []*regexp.Regexp
	denyPats   []*regexp.Regexp
}

func newPermissions(cfg *config) (*permissions, error) {
	p := &permissions{
		allowNames: make(map[string]struct{}, len(cfg.allow)),
		denyNames:  make(map[string]struct{}, len(cfg.deny)),
	}
	for _, name := range cfg.allow {
		if name == "" {
			return nil, fmt.Errorf("%w: empty allow name", ErrInvalidOption)
		}
		p.allowNames[name] = struct{}{}
	}
	for _, name := range cfg.deny {
		if name == "" {
			return nil, fmt.Errorf("%w: empty deny name", ErrInvalidOption)
		}
		p.denyNames[name] = struct{}{}
	}
	var err error
	if p.allowPats, err = compilePatterns(cfg.allowPats); err != nil {
		return nil, err
	}
	if p.denyPats, err = compilePatterns(cfg.denyPats); err != nil {
		return nil, err
	}

	return p, nil
}

func compilePatterns(pats []string) ([]*regexp.Regexp, error) {
	if len(pats) == 0 {
		return nil, nil
	}
	out := make([]*regexp.Regexp, len(pats))
	for i, pat := range pats {
		re, err := regexp.Compile(`\A(?:` + pat + `)\z`)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pat, err)
		}
		out[i] = re
	}

	return out, nil
}

// permit reports whether the attribute is in the permissible set. Deny
// always wins over allow.
func (p *permissions) permit(attr string) bool {
	if _, ok := p.denyNames[attr]; ok {
		return false
	}
	for _, re := range p.denyPats {
		if re.MatchString(attr) {
			return false
		}
	}
	if _, ok := p.allowNames[attr]; ok {
		return true
	}
	for _, re := range p.allowPats {
		if re.MatchString(attr) {
			return true
		}
	}

	return false
}

// literal reports whether the attribute was allowed by name rather than by
// pattern. Literal names must resolve to a capability at construction;
// pattern matches are best-effort.
func (p *permissions) literal(attr string) bool {
	_, ok := p.allowNames[attr]

	return ok
}
