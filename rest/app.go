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

package rest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"rivaas.dev/dispatch"
)

// DefaultMaxBodyBytes caps request bodies unless [WithMaxBodyBytes]
// overrides it.
const DefaultMaxBodyBytes int64 = 10 << 20

// Reserved query parameters. They steer the adapter and are never offered
// to the wrapper as arguments; neither is any other parameter starting
// with an underscore.
const (
	// FormatParam selects a named output rendering, as registered with
	// [dispatch.WithFormat].
	FormatParam = "_format"

	// HelpParam asks for the capability's descriptor instead of
	// dispatching to it.
	HelpParam = "_help"
)

type config struct {
	logger   *slog.Logger
	cors     *cors.Options
	maxBody  int64
	decoders []Decoder
}

// Option configures an [App].
type Option func(*config)

// WithLogger sets the structured logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCORS enables CORS handling for every mounted wrapper.
//
// Example:
//
//	rest.WithCORS(cors.Options{
//	    AllowedOrigins: []string{"https://*", "http://*"},
//	    AllowedMethods: []string{"GET", "POST"},
//	})
func WithCORS(opts cors.Options) Option {
	return func(c *config) {
		c.cors = &opts
	}
}

// WithMaxBodyBytes bounds request body size. Values below one keep the
// default.
func WithMaxBodyBytes(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithDecoder registers a body decoder for its content type, replacing any
// earlier registration for the same type.
//
// Example:
//
//	rest.WithDecoder(yaml.Decoder())
func WithDecoder(d Decoder) Option {
	return func(c *config) {
		if d != nil {
			c.decoders = append(c.decoders, d)
		}
	}
}

func defaultConfig() *config {
	return &config{
		logger:  slog.Default(),
		maxBody: DefaultMaxBodyBytes,
	}
}

// App serves dispatch wrappers over HTTP. Each mounted wrapper answers GET
// and POST on prefix/{attr}, reading arguments from the decoded body, the
// query string, and route captures, in that merge order. App implements
// [http.Handler]; wire it into any server or parent router.
type App struct {
	mux      *chi.Mux
	log      *slog.Logger
	maxBody  int64
	decoders map[string]Decoder
}

// New builds an empty App. Mount wrappers onto it before serving.
func New(opts ...Option) *App {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	mux := chi.NewRouter()
	if cfg.cors != nil {
		mux.Use(cors.Handler(*cfg.cors))
	}

	app := &App{
		mux:      mux,
		log:      cfg.logger,
		maxBody:  cfg.maxBody,
		decoders: map[string]Decoder{},
	}
	for _, d := range append([]Decoder{JSON()}, cfg.decoders...) {
		app.decoders[d.ContentType()] = d
	}

	return app
}

// Handler wraps a single dispatcher as a root-mounted [http.Handler], the
// one-liner for services exposing exactly one wrapper.
func Handler(w *dispatch.Wrapper, opts ...Option) http.Handler {
	app := New(opts...)
	app.Mount("/", w)

	return app
}

// ServeHTTP implements [http.Handler].
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// Mount exposes a wrapper under a path prefix: GET and POST on
// prefix/{attr} dispatch, and GET on the prefix itself lists the exposed
// capabilities. Dotted attribute names are single path segments, so
// "memory.add" is reachable as prefix/memory.add.
func (a *App) Mount(prefix string, w *dispatch.Wrapper) {
	prefix = "/" + strings.Trim(prefix, "/")
	pattern := prefix + "/{attr}"
	if prefix == "/" {
		pattern = "/{attr}"
	}

	h := a.dispatchHandler(w)
	a.mux.Get(pattern, h)
	a.mux.Post(pattern, h)
	a.mux.Get(prefix, a.describeHandler(w))

	a.log.Info("mounted wrapper",
		"name", w.Name(),
		"prefix", prefix,
		"capabilities", len(w.Capabilities()),
	)
}

func (a *App) describeHandler(wr *dispatch.Wrapper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.writeJSON(w, requestID(r), http.StatusOK, map[string]any{
			"name":         wr.Name(),
			"capabilities": wr.Describe(),
		})
	}
}

func (a *App) dispatchHandler(wr *dispatch.Wrapper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := requestID(r)
		attr := chi.URLParam(r, "attr")
		query := r.URL.Query()

		if query.Has(HelpParam) {
			a.writeHelp(w, wr, reqID, attr)
			return
		}

		var sources []dispatch.Source
		if r.Method == http.MethodPost && r.ContentLength != 0 {
			values, ok := a.readBody(w, r, reqID)
			if !ok {
				return
			}
			sources = append(sources, dispatch.Source{Kind: dispatch.KindBody, Values: values})
		}
		if qv := queryValues(query); len(qv) > 0 {
			sources = append(sources, dispatch.Source{Kind: dispatch.KindQuery, Values: qv})
		}
		if rv := routeValues(r); len(rv) > 0 {
			sources = append(sources, dispatch.Source{Kind: dispatch.KindRoute, Values: rv})
		}

		out, err := wr.Dispatch(r.Context(), dispatch.Request{
			Attr:    attr,
			Format:  query.Get(FormatParam),
			Sources: sources,
		})
		if err != nil {
			a.writeError(w, wr, reqID, err)
			return
		}
		a.writeResult(w, reqID, out)
		a.log.Debug("dispatched",
			"wrapper", wr.Name(),
			"attr", attr,
			"duration", time.Since(start),
			"request_id", reqID)
	}
}

// readBody decodes the request body by content type. It reports failure
// after writing the response itself.
func (a *App) readBody(w http.ResponseWriter, r *http.Request, reqID string) (map[string]any, bool) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		a.reject(w, reqID, http.StatusUnsupportedMediaType, "unsupported_media_type", "unparseable Content-Type")
		return nil, false
	}
	dec, ok := a.decoders[mediaType]
	if !ok {
		a.reject(w, reqID, http.StatusUnsupportedMediaType, "unsupported_media_type",
			"no decoder for "+mediaType)
		return nil, false
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.reject(w, reqID, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
		} else {
			a.reject(w, reqID, http.StatusBadRequest, "unreadable_body", err.Error())
		}
		return nil, false
	}

	values, err := dec.Decode(data)
	if err != nil {
		a.reject(w, reqID, http.StatusBadRequest, "malformed_body", err.Error())
		return nil, false
	}

	return values, true
}

func (a *App) writeHelp(w http.ResponseWriter, wr *dispatch.Wrapper, reqID, attr string) {
	for _, c := range wr.Describe() {
		if c.Name == attr {
			a.writeJSON(w, reqID, http.StatusOK, c)
			return
		}
	}
	a.reject(w, reqID, http.StatusNotFound, "unknown_attribute", "no capability "+attr)
}

func (a *App) writeResult(w http.ResponseWriter, reqID string, out any) {
	w.Header().Set("X-Request-ID", reqID)

	if enc, ok := out.(*dispatch.Encoded); ok {
		w.Header().Set("Content-Type", enc.ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(enc.Body)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(out); err != nil {
		a.log.Error("writing response", "err", err, "request_id", reqID)
	}
}

func (a *App) writeJSON(w http.ResponseWriter, reqID string, status int, body any) {
	w.Header().Set("X-Request-ID", reqID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Error("writing response", "err", err, "request_id", reqID)
	}
}

// queryValues collects the first value of every non-reserved query
// parameter.
func queryValues(q map[string][]string) map[string]any {
	out := make(map[string]any, len(q))
	for k, vs := range q {
		if strings.HasPrefix(k, "_") || len(vs) == 0 {
			continue
		}
		out[k] = vs[0]
	}

	return out
}

// routeValues collects captures inherited from parent routers. The attr
// capture itself is the dispatch target, not an argument.
func routeValues(r *http.Request) map[string]any {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}
	out := make(map[string]any)
	for i, key := range rctx.URLParams.Keys {
		if key == "attr" || key == "*" {
			continue
		}
		out[key] = rctx.URLParams.Values[i]
	}

	return out
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}

	return uuid.NewString()
}
