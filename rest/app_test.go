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

package rest_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/rest"
)

type calcSvc struct{}

func (calcSvc) Ping() string { return "pong" }

func (calcSvc) Add(a, b float64) float64 { return a + b }

func (calcSvc) Fail() (string, error) { return "", errors.New("secret detail") }

func (calcSvc) Quiet() {}

func (calcSvc) Echo(m map[string]any) map[string]any { return m }

func newCalcWrapper(t *testing.T, opts ...dispatch.Option) *dispatch.Wrapper {
	t.Helper()
	base := []dispatch.Option{
		dispatch.WithAllow("ping", "add", "fail", "quiet", "echo"),
		dispatch.WithArgNames("add", "a", "b"),
	}

	return dispatch.TestWrapper(t, calcSvc{}, append(base, opts...)...)
}

func newTestApp(t *testing.T, w *dispatch.Wrapper, opts ...rest.Option) *rest.App {
	t.Helper()
	quiet := rest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	app := rest.New(append([]rest.Option{quiet}, opts...)...)
	app.Mount("/calc", w)

	return app
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())

	return v
}

func TestAppGET(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, newCalcWrapper(t))
	rec := do(t, app, http.MethodGet, "/calc/add?a=1&b=2", "", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, 3.0, decodeBody[float64](t, rec))
}

func TestAppPOST(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, newCalcWrapper(t))

	t.Run("json body", func(t *testing.T) {
		t.Parallel()

		rec := do(t, app, http.MethodPost, "/calc/add", "application/json", `{"a": 1, "b": 2}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 3.0, decodeBody[float64](t, rec))
	})

	t.Run("query beats body", func(t *testing.T) {
		t.Parallel()

		rec := do(t, app, http.MethodPost, "/calc/add?b=10", "application/json", `{"a": 1, "b": 2}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 11.0, decodeBody[float64](t, rec))
	})

	t.Run("missing content type defaults to json", func(t *testing.T) {
		t.Parallel()

		rec := do(t, app, http.MethodPost, "/calc/add", "", `{"a": 1, "b": 2}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func TestAppBodyNumbersKeepPrecision(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, newCalcWrapper(t))
	rec := do(t, app, http.MethodPost, "/calc/echo", "application/json", `{"n": 9007199254740993}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "9007199254740993")
}

func TestAppErrors(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, newCalcWrapper(t))

	t.Run("forbidden attribute", func(t *testing.T) {
		t.Parallel()

		rec := do(t, app, http.MethodGet, "/calc/secrets", "", "")
		require.Equal(t, http.StatusForbidden, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "forbidden_attribute", body["code"])
		assert.Equal(t, "secrets", body["attr"])
		assert.NotEmpty(t, body["request_id"])
	})

	t.Run("conversion failure names the argument", func(t *testing.T) {
		t.Parallel()

		rec := do(t, app, http.MethodGet, "/calc/add?a=x&b=2", "", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "conversion_error", body["code"])
		assert.Equal(t, "a", body["arg"])
	})

	t.Run("upstream detail is masked", func(t *testing.T) {
		t.Parallel()

		rec := do(t, app, http.MethodGet, "/calc/fail", "", "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "internal error", body["error"])
		assert.NotContains(t, rec.Body.String(), "secret detail")
	})

	t.Run("debug exposes upstream detail", func(t *testing.T) {
		t.Parallel()

		dbg := newTestApp(t, newCalcWrapper(t, dispatch.WithDebug()))
		rec := do(t, dbg, http.MethodGet, "/calc/fail", "", "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "secret detail")
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		rec := do(t, app, http.MethodPost, "/calc/add", "application/json", `{"a": `)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "malformed_body", decodeBody[map[string]any](t, rec)["code"])
	})

	t.Run("unsupported media type", func(t *testing.T) {
		t.Parallel()

		rec := do(t, app, http.MethodPost, "/calc/add", "text/csv", `a,b`)
		require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		assert.Equal(t, "unsupported_media_type", decodeBody[map[string]any](t, rec)["code"])
	})
}

func TestAppBodyTooLarge(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, newCalcWrapper(t), rest.WithMaxBodyBytes(8))
	rec := do(t, app, http.MethodPost, "/calc/add", "application/json", `{"a": 1, "b": 2}`)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "body_too_large", decodeBody[map[string]any](t, rec)["code"])
}

func TestAppNoContent(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, newCalcWrapper(t))
	rec := do(t, app, http.MethodGet, "/calc/quiet", "", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestAppEncodedResult(t *testing.T) {
	t.Parallel()

	raw := func(any) (any, error) {
		return &dispatch.Encoded{ContentType: "text/plain", Body: []byte("RAW")}, nil
	}
	app := newTestApp(t, newCalcWrapper(t, dispatch.WithFormat("raw", raw)))
	rec := do(t, app, http.MethodGet, "/calc/ping?_format=raw", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "RAW", rec.Body.String())
}

func TestAppHelp(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, newCalcWrapper(t))

	t.Run("descriptor for one capability", func(t *testing.T) {
		t.Parallel()

		rec := do(t, app, http.MethodGet, "/calc/add?_help", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "add", body["name"])
		assert.Equal(t, "method", body["kind"])
	})

	t.Run("unknown capability", func(t *testing.T) {
		t.Parallel()

		rec := do(t, app, http.MethodGet, "/calc/warp?_help", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAppDescribeIndex(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, newCalcWrapper(t))
	rec := do(t, app, http.MethodGet, "/calc", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "calcSvc", body["name"])
	caps, ok := body["capabilities"].([]any)
	require.True(t, ok, "capabilities: %v", body["capabilities"])
	assert.Len(t, caps, 5)
}

func TestAppRequestIDPropagation(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, newCalcWrapper(t))
	req := httptest.NewRequest(http.MethodGet, "/calc/ping", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestAppCORS(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, newCalcWrapper(t), rest.WithCORS(cors.Options{
		AllowedOrigins: []string{"*"},
	}))
	req := httptest.NewRequest(http.MethodGet, "/calc/ping", nil)
	req.Header.Set("Origin", "http://client.test")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAppRouteCaptures(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, newCalcWrapper(t))
	parent := chi.NewRouter()
	parent.Mount("/t/{tenant}", app)

	rec := do(t, parent, http.MethodGet, "/t/acme/calc/echo?x=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "acme", body["tenant"])
	assert.Equal(t, "1", body["x"])
}

func TestHandlerRootMount(t *testing.T) {
	t.Parallel()

	quiet := rest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := rest.Handler(newCalcWrapper(t), quiet)

	rec := do(t, h, http.MethodGet, "/ping", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "pong", decodeBody[string](t, rec))
}
