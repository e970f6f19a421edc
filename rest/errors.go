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
	"errors"
	"net/http"

	"rivaas.dev/dispatch"
)

// errorBody is the JSON shape of every failure response.
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Attr      string `json:"attr,omitempty"`
	Arg       string `json:"arg,omitempty"`
	RequestID string `json:"request_id"`
}

// writeError maps a classified dispatch error onto an HTTP response.
// Routing and conversion failures are the caller's and are reported in
// full; upstream detail is masked behind a generic message unless the
// wrapper was built with debug enabled.
func (a *App) writeError(w http.ResponseWriter, wr *dispatch.Wrapper, reqID string, err error) {
	var (
		re *dispatch.RouteError
		ce *dispatch.ConvertError
		ue *dispatch.UpstreamError
	)
	switch {
	case errors.As(err, &re):
		a.log.Debug("request rejected", "attr", re.Attr, "code", re.Code(), "request_id", reqID)
		a.writeJSON(w, reqID, re.HTTPStatus(), errorBody{
			Error:     re.Error(),
			Code:      re.Code(),
			Attr:      re.Attr,
			RequestID: reqID,
		})
	case errors.As(err, &ce):
		a.log.Debug("conversion failed", "attr", ce.Attr, "arg", ce.Arg, "err", err, "request_id", reqID)
		a.writeJSON(w, reqID, ce.HTTPStatus(), errorBody{
			Error:     ce.Error(),
			Code:      ce.Code(),
			Attr:      ce.Attr,
			Arg:       ce.Arg,
			RequestID: reqID,
		})
	case errors.As(err, &ue):
		a.log.Error("dispatch failed", "attr", ue.Attr, "err", err, "request_id", reqID)
		msg := "internal error"
		if wr.Debug() {
			msg = ue.Error()
		}
		a.writeJSON(w, reqID, ue.HTTPStatus(), errorBody{
			Error:     msg,
			Code:      ue.Code(),
			Attr:      ue.Attr,
			RequestID: reqID,
		})
	default:
		a.log.Error("dispatch failed", "err", err, "request_id", reqID)
		a.writeJSON(w, reqID, http.StatusInternalServerError, errorBody{
			Error:     "internal error",
			Code:      "internal_error",
			RequestID: reqID,
		})
	}
}

// reject writes a transport-level failure that never reached the wrapper.
func (a *App) reject(w http.ResponseWriter, reqID string, status int, code, msg string) {
	a.writeJSON(w, reqID, status, errorBody{
		Error:     msg,
		Code:      code,
		RequestID: reqID,
	})
}
