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

// Package rest serves dispatch wrappers over HTTP.
//
// An [App] mounts any number of [dispatch.Wrapper] values, each under its
// own path prefix. Every capability answers GET and POST on
// prefix/{attr}: the decoded request body, the query string, and route
// captures become the request's sources, merged in that order with later
// sources winning. The query parameters [FormatParam] and [HelpParam] are
// reserved, as is anything else starting with an underscore.
//
//	w := dispatch.MustNew(&store{}, dispatch.WithAllow("get", "put"))
//
//	app := rest.New(rest.WithCORS(cors.Options{AllowedOrigins: []string{"*"}}))
//	app.Mount("/store", w)
//	log.Fatal(http.ListenAndServe(":8080", app))
//
// Responses are JSON by default. A capability whose result is a
// [*dispatch.Encoded], typically produced by a format converter, is
// written verbatim with its own content type. Errors arrive as a JSON
// object carrying a message, a stable code, and the request ID that is
// also echoed in the X-Request-ID header; upstream failure detail is
// masked unless the wrapper was built with [dispatch.WithDebug].
//
// The adapter stays deliberately thin: no sessions, no authentication, no
// lifecycle beyond what [dispatch.New] fixed. Anything a deployment needs
// on top composes the usual way, by wrapping App in middleware.
package rest
