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
	"fmt"
	"reflect"
	"time"
)

// Wrapper exposes a target object, or a constructor for one, as a set of
// named capabilities reachable through [Wrapper.Dispatch]. It is built once
// by [New], is immutable afterwards, and is safe for concurrent use.
type Wrapper struct {
	cfg    *config
	name   string
	target reflect.Value
	ctor   *constructor
	root   reflect.Type
	perms  *permissions
	caps   map[string]*capEntry
	in     *Ruleset
	out    *Ruleset
	stats  stats
}

// constructor describes a function target invoked once per dispatch, its
// arguments popped from the merged request values.
type constructor struct {
	fn       reflect.Value
	takesCtx bool
	names    []string
	params   []reflect.Type
	hasErr   bool
	out      reflect.Type
}

// New wraps a target for dispatch. The target is either an instance, shared
// by every request, or a function, called once per request to build the
// instance (see [WithConstructorArgs]).
//
// All validation happens here: permission patterns compile, rule tables are
// checked and deep-copied, capabilities are enumerated against the target
// type, and every literal allow name must resolve. A wrapper that
// constructs is a wrapper whose dispatches cannot fail for configuration
// reasons.
//
// Example:
//
//	w, err := dispatch.New(&Greeter{},
//	    dispatch.WithAllow("greet"),
//	    dispatch.WithInputRules(&dispatch.Ruleset{
//	        Args: map[string]dispatch.Rule{"times": dispatch.Conv(dispatch.ToInt())},
//	    }),
//	)
func New(target any, opts ...Option) (*Wrapper, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidTarget)
	}
	cfg := applyOptions(opts)
	w := &Wrapper{cfg: cfg}

	tv := reflect.ValueOf(target)
	if tv.Kind() == reflect.Func {
		ctor, err := newConstructor(tv, cfg)
		if err != nil {
			return nil, err
		}
		w.ctor = ctor
		w.root = ctor.out
	} else {
		if len(cfg.ctorArgs) > 0 {
			return nil, fmt.Errorf("%w: constructor argument names for a non-function target", ErrInvalidOption)
		}
		if tv.Kind() == reflect.Pointer && tv.IsNil() {
			return nil, fmt.Errorf("%w: nil pointer", ErrInvalidTarget)
		}
		w.target = tv
		w.root = tv.Type()
	}

	perms, err := newPermissions(cfg)
	if err != nil {
		return nil, err
	}
	w.perms = perms

	if cfg.in != nil {
		if err := cfg.in.validate(false, false, map[*Ruleset]bool{}); err != nil {
			return nil, err
		}
		w.in = cfg.in.clone()
	}
	if cfg.out != nil {
		if err := cfg.out.validate(true, false, map[*Ruleset]bool{}); err != nil {
			return nil, err
		}
		w.out = cfg.out.clone()
	}

	caps, err := enumerate(w.root, cfg, perms)
	if err != nil {
		return nil, err
	}
	w.caps = caps

	w.name = cfg.name
	if w.name == "" {
		w.name = rootName(w.root)
	}

	return w, nil
}

// MustNew is [New] that panics on error, for wrappers built at program
// start from static configuration.
func MustNew(target any, opts ...Option) *Wrapper {
	w, err := New(target, opts...)
	if err != nil {
		panic(err)
	}

	return w
}

func newConstructor(fn reflect.Value, cfg *config) (*constructor, error) {
	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic constructor", ErrInvalidTarget)
	}
	c := &constructor{fn: fn}

	switch ft.NumOut() {
	case 1:
		if ft.Out(0) == errType {
			return nil, fmt.Errorf("%w: constructor returns only an error", ErrInvalidTarget)
		}
	case 2:
		if ft.Out(1) != errType {
			return nil, fmt.Errorf("%w: constructor second result must be error", ErrInvalidTarget)
		}
		c.hasErr = true
	default:
		return nil, fmt.Errorf("%w: constructor must return the target and an optional error", ErrInvalidTarget)
	}
	c.out = ft.Out(0)

	first := 0
	if ft.NumIn() > 0 && ft.In(0) == ctxType {
		c.takesCtx = true
		first = 1
	}
	for i := first; i < ft.NumIn(); i++ {
		c.params = append(c.params, ft.In(i))
	}
	if len(cfg.ctorArgs) != len(c.params) {
		return nil, fmt.Errorf("%w: constructor takes %d arguments, %d names given (see WithConstructorArgs)",
			ErrInvalidTarget, len(c.params), len(cfg.ctorArgs))
	}
	seen := make(map[string]bool, len(cfg.ctorArgs))
	for _, name := range cfg.ctorArgs {
		if name == "" || seen[name] {
			return nil, fmt.Errorf("%w: duplicate or empty constructor argument name", ErrInvalidTarget)
		}
		seen[name] = true
	}
	c.names = cfg.ctorArgs

	return c, nil
}

func rootName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}

	return t.String()
}

// Name returns the wrapper's display name: [WithName] or the target's type
// name.
func (w *Wrapper) Name() string {
	return w.name
}

// Debug reports whether the wrapper was built with [WithDebug]. Transports
// consult it when deciding how much upstream failure detail to expose.
func (w *Wrapper) Debug() bool {
	return w.cfg.debug
}

// Stats returns a snapshot of the wrapper's cumulative dispatch counters.
func (w *Wrapper) Stats() Stats {
	return w.stats.snapshot()
}

// Dispatch routes one request through the full flow: permission check,
// source merge, argument conversion, optional construction, invocation,
// and result conversion. The returned error is always one of the three
// classified kinds ([RouteError], [ConvertError], [UpstreamError]).
func (w *Wrapper) Dispatch(ctx context.Context, req Request) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	w.stats.dispatches.Add(1)

	result, err := w.dispatch(ctx, req)
	if err != nil {
		w.count(err)
		if w.cfg.events.Failed != nil {
			w.cfg.events.Failed(req.Attr, err)
		}
		return nil, err
	}
	if w.cfg.events.Dispatched != nil {
		w.cfg.events.Dispatched(req.Attr, time.Since(start))
	}

	return result, nil
}

func (w *Wrapper) count(err error) {
	var (
		re *RouteError
		ce *ConvertError
		ue *UpstreamError
	)
	switch {
	case errors.As(err, &re):
		w.stats.routeErrors.Add(1)
	case errors.As(err, &ce):
		w.stats.convertErrors.Add(1)
	case errors.As(err, &ue):
		w.stats.upstreamErrors.Add(1)
	}
}

func (w *Wrapper) dispatch(ctx context.Context, req Request) (any, error) {
	attr := req.Attr
	if attr == "" {
		return nil, &RouteError{Err: ErrAttrMissing}
	}
	c, ok := w.caps[attr]
	if !ok {
		if !w.perms.permit(attr) {
			return nil, &RouteError{Attr: attr, Err: ErrAttrForbidden}
		}
		return nil, &RouteError{Attr: attr, Err: ErrAttrUnknown}
	}

	args, origin := req.merge()
	for name, v := range w.cfg.defaults[attr] {
		if _, ok := args[name]; !ok {
			args[name] = v
			origin[name] = KindUnknown
		}
	}

	for name, raw := range args {
		fn := w.in.resolveFrom(origin[name], attr, name, raw)
		v, err := fn(raw)
		if err != nil {
			return nil, &ConvertError{Attr: attr, Arg: name, Value: raw, Err: err}
		}
		args[name] = v
		if w.cfg.events.ArgConverted != nil {
			w.cfg.events.ArgConverted(attr, name, origin[name])
		}
	}

	root := w.target
	if w.ctor != nil {
		var err error
		if root, err = w.construct(ctx, attr, args); err != nil {
			return nil, err
		}
	}

	out, err := w.invoke(ctx, root, c, attr, args)
	if err != nil {
		return nil, err
	}

	return w.renderOutput(attr, req.Format, out)
}

// construct builds the per-request instance, popping the constructor's
// arguments from the merged values so they are not offered to the method.
func (w *Wrapper) construct(ctx context.Context, attr string, args map[string]any) (reflect.Value, error) {
	ct := w.ctor
	in := make([]reflect.Value, 0, len(ct.params)+1)
	if ct.takesCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, name := range ct.names {
		raw, ok := args[name]
		if !ok {
			return reflect.Value{}, &ConvertError{Attr: attr, Arg: name, Reason: "missing constructor argument"}
		}
		delete(args, name)
		cv, err := coerce(raw, ct.params[i])
		if err != nil {
			return reflect.Value{}, &ConvertError{Attr: attr, Arg: name, Value: raw, Err: err}
		}
		in = append(in, cv)
	}

	out, err := call(ct.fn, in)
	if err != nil {
		return reflect.Value{}, &UpstreamError{Attr: attr, Err: err}
	}
	if ct.hasErr && !out[1].IsNil() {
		return reflect.Value{}, &UpstreamError{Attr: attr, Err: out[1].Interface().(error)}
	}
	v := out[0]
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return reflect.Value{}, &UpstreamError{Attr: attr, Err: ErrNilTarget}
		}
	}

	return v, nil
}

// invoke reaches the capability on the (possibly freshly constructed)
// instance and calls it with the converted arguments.
func (w *Wrapper) invoke(ctx context.Context, root reflect.Value, c *capEntry, attr string, args map[string]any) (any, error) {
	if c.kind == capField {
		v, err := walkPath(root, c.path)
		if err != nil {
			return nil, &UpstreamError{Attr: attr, Err: err}
		}
		return v.Interface(), nil
	}

	recv, err := walkPath(root, c.path)
	if err != nil {
		return nil, &UpstreamError{Attr: attr, Err: err}
	}
	if c.recvPtr && recv.Kind() != reflect.Pointer {
		recv = recv.Addr()
	}
	switch recv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if recv.IsNil() {
			return nil, &UpstreamError{Attr: attr, Err: ErrNilTarget}
		}
	}
	fn := recv.Method(c.method)

	in := make([]reflect.Value, 0, len(c.params)+2)
	if c.takesCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	switch c.mode {
	case modeStruct:
		av, aerr := w.structValue(c, attr, args)
		if aerr != nil {
			return nil, aerr
		}
		in = append(in, av)
	case modeNamed:
		for _, p := range c.params {
			raw, ok := args[p.name]
			if !ok {
				return nil, &ConvertError{Attr: attr, Arg: p.name, Reason: "missing required argument"}
			}
			cv, cerr := coerce(raw, p.typ)
			if cerr != nil {
				return nil, &ConvertError{Attr: attr, Arg: p.name, Value: raw, Err: cerr}
			}
			in = append(in, cv)
		}
	}

	out, err := call(fn, in)
	if err != nil {
		return nil, &UpstreamError{Attr: attr, Err: err}
	}

	return c.unpack(attr, out)
}

// structValue fills a struct-mode parameter from the whole argument map and
// runs the configured validator over it.
func (w *Wrapper) structValue(c *capEntry, attr string, args map[string]any) (reflect.Value, error) {
	p := c.structParam
	if p == mapStringAnyType {
		return reflect.ValueOf(args), nil
	}
	elem := p
	if elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	ptr := reflect.New(elem)
	if err := decodeMap(args, ptr.Interface()); err != nil {
		return reflect.Value{}, &ConvertError{Attr: attr, Err: err}
	}
	if w.cfg.validator != nil {
		if err := w.cfg.validator.Validate(ptr.Interface()); err != nil {
			return reflect.Value{}, &ConvertError{Attr: attr, Reason: "validation failed", Err: err}
		}
	}
	if p.Kind() == reflect.Pointer {
		return ptr, nil
	}

	return ptr.Elem(), nil
}

// call invokes fn, turning a panic in the target into an error.
func call(fn reflect.Value, in []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn.Call(in), nil
}

// unpack splits a call's results into (value, error) per the capability's
// signature.
func (c *capEntry) unpack(attr string, out []reflect.Value) (any, error) {
	if c.hasErr {
		ev := out[len(out)-1]
		if !ev.IsNil() {
			return nil, &UpstreamError{Attr: attr, Err: ev.Interface().(error)}
		}
	}
	if c.outType == nil {
		return nil, nil
	}

	return out[0].Interface(), nil
}
